// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pdf2txt/internal/convert"
	"github.com/pdiddy/pdf2txt/internal/extract"
	"github.com/pdiddy/pdf2txt/internal/history"
	"github.com/pdiddy/pdf2txt/internal/secrets"
	"github.com/pdiddy/pdf2txt/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the PDF upload form over HTTP",
	Long: `Serve runs an HTTP server with an upload form at "/". Uploaded PDFs are
converted in memory and returned as pdfs_converted_to_text.zip
(POST /convert/zip) or merged_text_files.txt (POST /convert/merged).
POST /convert/preview returns per-file status as JSON.

When the secret named by server.auth_token_key exists in the secrets
directory, conversion routes require "Authorization: Bearer <token>".
The server drains in-flight requests on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Int("workers", 0, "number of PDFs extracted in parallel per request")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ex, err := extract.New(cfg.Conversion.Backend, cfg.Conversion.ContainerImage)
	if err != nil {
		return err
	}
	workers := cfg.Conversion.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	conv := convert.New(ex, convert.WithWorkers(workers), convert.WithLogger(zlog))

	token, err := secrets.Lookup(cfg.SecretsDir, cfg.Server.AuthTokenKey)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(zlog), server.WithToken(token)}
	if cfg.History.DBPath != "" {
		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, server.WithRecorder(store))
		zlog.Info("recording conversion history", zap.String("db_path", cfg.History.DBPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(cfg.Server, conv, ex.Name(), opts...).Run(ctx)
}
