// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// ServerConfig holds settings for the HTTP upload server.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes caps the total size of one conversion request body.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	// MaxFiles caps the number of PDFs accepted in one request.
	MaxFiles int `json:"max_files" yaml:"max_files" mapstructure:"max_files"`

	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// AuthTokenKey names the secret file holding the bearer token. When the
	// secret is absent the server accepts unauthenticated uploads.
	AuthTokenKey string `json:"auth_token_key" yaml:"auth_token_key" mapstructure:"auth_token_key"`
}

// ExtractionBackend identifies the PDF text extraction tool.
type ExtractionBackend string

const (
	BackendLedongthuc ExtractionBackend = "ledongthuc"
	BackendPdftotext  ExtractionBackend = "pdftotext"
)

// ConversionConfig holds settings for the batch conversion stage.
type ConversionConfig struct {
	// Backend selects the extractor: ledongthuc or pdftotext.
	Backend ExtractionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Workers bounds per-document parallelism (1 means sequential).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// ContainerImage is the image that provides pdftotext for the pdftotext backend.
	ContainerImage string `json:"container_image" yaml:"container_image" mapstructure:"container_image"`
}

// FetchConfig holds HTTP settings for loading PDFs from URLs.
type FetchConfig struct {
	Timeout    time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// HistoryConfig holds settings for the conversion run log.
type HistoryConfig struct {
	// DBPath is the SQLite database file. Empty disables the run log.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Development bool   `json:"development" yaml:"development" mapstructure:"development"`
}

// Config groups all settings for the pdf2txt binary.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	History    HistoryConfig    `json:"history" yaml:"history" mapstructure:"history"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
	SecretsDir string           `json:"secrets_dir" yaml:"secrets_dir" mapstructure:"secrets_dir"`
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Conversion.Backend {
	case BackendLedongthuc, BackendPdftotext:
	default:
		return fmt.Errorf("conversion.backend must be %q or %q, got %q",
			BackendLedongthuc, BackendPdftotext, c.Conversion.Backend)
	}
	if c.Conversion.Workers < 1 {
		return fmt.Errorf("conversion.workers must be at least 1")
	}
	if c.Conversion.Backend == BackendPdftotext && c.Conversion.ContainerImage == "" {
		return fmt.Errorf("conversion.container_image is required for the pdftotext backend")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if c.Server.MaxFiles < 1 {
		return fmt.Errorf("server.max_files must be at least 1")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must be non-negative")
	}
	return nil
}
