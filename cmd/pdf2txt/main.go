// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf2txt CLI. It converts batches
// of PDFs to plain text, packaged as a zip of per-file texts or one merged
// text file, from the command line or over HTTP.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pdf2txt/internal/logger"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by the root command's PersistentPreRunE.
var (
	cfg  types.Config
	zlog = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "pdf2txt",
	Short: "Convert batches of PDFs to plain text",
	Long: `pdf2txt extracts the text of every PDF in a batch and packages the
results either as a zip archive holding one .txt file per PDF or as a
single merged text file with a header line per document.

Use convert for local files and URLs, serve for the browser upload form,
history to review past runs, and inspect to split a merged file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := logger.New(c.Log.Level, c.Log.Development)
		if err != nil {
			return err
		}
		cfg, zlog = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		zlog.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf2txt.yaml or ~/.config/pdf2txt/pdf2txt.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("secrets-dir", "", "directory holding one file per secret")
	rootCmd.PersistentFlags().String("history-db", "", "SQLite file for the run history (empty disables it)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("secrets_dir", rootCmd.PersistentFlags().Lookup("secrets-dir"))
	viper.BindPFlag("history.db_path", rootCmd.PersistentFlags().Lookup("history-db"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_bytes", 64<<20)
	v.SetDefault("server.max_files", 100)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.auth_token_key", "upload-token")
	v.SetDefault("conversion.backend", string(types.BackendLedongthuc))
	v.SetDefault("conversion.workers", 1)
	v.SetDefault("conversion.container_image", "pdftotext:latest")
	v.SetDefault("fetch.timeout", "60s")
	v.SetDefault("fetch.max_retries", 5)
	v.SetDefault("fetch.user_agent", "pdf2txt/"+version)
	v.SetDefault("history.db_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("secrets_dir", ".secrets/")
}

func initConfig() {
	setDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf2txt")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf2txt"))
		}
	}

	viper.SetEnvPrefix("PDF2TXT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged flag, env, file, and default settings.
func loadConfig() (types.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
