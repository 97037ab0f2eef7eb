// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pdf2txt/internal/convert"
	"github.com/pdiddy/pdf2txt/internal/extract"
	"github.com/pdiddy/pdf2txt/internal/history"
	"github.com/pdiddy/pdf2txt/internal/source"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

// Output formats accepted by --format.
const (
	formatZip    = "zip"
	formatMerged = "merged"
	formatBoth   = "both"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdf paths or URLs...]",
	Short: "Convert PDFs to a zip of text files or a merged text file",
	Long: `Convert extracts the text of each PDF, in argument order, and writes
pdfs_converted_to_text.zip (one .txt per PDF), merged_text_files.txt
(one "===== name =====" block per PDF), or both, into --out-dir.

Arguments may be local paths or http(s) URLs. A source that cannot be read
aborts the command before anything is written. PDFs whose text cannot be
extracted are reported and contribute empty text. With --strict the command
still writes its outputs but exits non-zero when any PDF failed or lost pages.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvertCmd,
}

func init() {
	convertCmd.Flags().String("format", formatZip, "output format: zip, merged, or both")
	convertCmd.Flags().String("out-dir", ".", "directory for the output files")
	convertCmd.Flags().String("backend", "", "extraction backend: ledongthuc or pdftotext")
	convertCmd.Flags().Int("workers", 0, "number of PDFs extracted in parallel")
	convertCmd.Flags().Bool("strict", false, "exit non-zero if any PDF failed or lost pages")

	viper.BindPFlag("conversion.backend", convertCmd.Flags().Lookup("backend"))

	rootCmd.AddCommand(convertCmd)
}

func runConvertCmd(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outDir, _ := cmd.Flags().GetString("out-dir")
	strict, _ := cmd.Flags().GetBool("strict")
	if err := validateFormat(format); err != nil {
		return err
	}

	workers := cfg.Conversion.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}

	ex, err := extract.New(cfg.Conversion.Backend, cfg.Conversion.ContainerImage)
	if err != nil {
		return err
	}

	rec, closeRec, err := openRecorder(cfg.History)
	if err != nil {
		return err
	}
	defer closeRec()

	loader := &source.Loader{
		Client:     &http.Client{Timeout: cfg.Fetch.Timeout},
		MaxRetries: cfg.Fetch.MaxRetries,
		UserAgent:  cfg.Fetch.UserAgent,
		Logger:     zlog,
	}
	return runConvert(cmd.Context(), convertJob{
		refs:      args,
		format:    format,
		outDir:    outDir,
		loader:    loader,
		extractor: ex,
		workers:   workers,
		recorder:  rec,
		logger:    zlog,
		strict:    strict,
	}, cmd.OutOrStdout())
}

// recorder is the subset of history.Store the convert command needs.
type recorder interface {
	Record(ctx context.Context, run history.Run) error
}

type documentLoader interface {
	Load(ctx context.Context, refs []string) ([]types.SourceDocument, error)
}

type convertJob struct {
	refs      []string
	format    string
	outDir    string
	loader    documentLoader
	extractor extract.Extractor
	workers   int
	recorder  recorder
	logger    *zap.Logger
	strict    bool
}

func validateFormat(format string) error {
	switch format {
	case formatZip, formatMerged, formatBoth:
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use zip, merged, or both", format)
	}
}

func runConvert(ctx context.Context, job convertJob, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := job.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	docs, err := job.loader.Load(ctx, job.refs)
	if err != nil {
		return err
	}

	conv := convert.New(job.extractor, convert.WithWorkers(job.workers), convert.WithLogger(logger))
	batch := conv.ConvertAll(ctx, docs)
	convert.WriteReport(out, batch)

	if err := os.MkdirAll(job.outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var written int64
	if job.format == formatZip || job.format == formatBoth {
		path := filepath.Join(job.outDir, types.ArchiveFileName)
		n, err := writeFileAtomic(path, func(w io.Writer) error { return convert.WriteArchive(w, batch) })
		if err != nil {
			return err
		}
		written += n
		fmt.Fprintf(out, "wrote %s (%d bytes)\n", path, n)
	}
	if job.format == formatMerged || job.format == formatBoth {
		path := filepath.Join(job.outDir, types.MergedFileName)
		n, err := writeFileAtomic(path, func(w io.Writer) error {
			_, err := w.Write(convert.BuildMerged(batch))
			return err
		})
		if err != nil {
			return err
		}
		written += n
		fmt.Fprintf(out, "wrote %s (%d bytes)\n", path, n)
	}

	if job.recorder != nil {
		run := history.NewRun(history.Mode(job.format), job.extractor.Name(), batch, written)
		if err := job.recorder.Record(ctx, run); err != nil {
			logger.Warn("recording history failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}

	if sum := batch.Summary(); job.strict && sum.HasFailures() {
		return fmt.Errorf("%d failed and %d partial of %d document(s)", sum.Failed, sum.Partial, sum.Total())
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeFileAtomic writes through a temporary file in the same directory and
// renames it into place, so path is either complete or untouched.
func writeFileAtomic(path string, write func(io.Writer) error) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pdf2txt-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	cw := &countingWriter{w: tmp}
	if err := write(cw); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("renaming into %s: %w", path, err)
	}
	return cw.n, nil
}

// openRecorder opens the history store when one is configured. The
// returned close function is always safe to call.
func openRecorder(hc types.HistoryConfig) (recorder, func(), error) {
	if hc.DBPath == "" {
		return nil, func() {}, nil
	}
	store, err := history.Open(hc.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}
