// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/pdf2txt/internal/extract"
	"github.com/pdiddy/pdf2txt/internal/history"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

// --- fakes ---

type fakeLoader struct {
	docs []types.SourceDocument
	err  error
}

func (f fakeLoader) Load(context.Context, []string) ([]types.SourceDocument, error) {
	return f.docs, f.err
}

// textExtractor returns the PDF bytes as text; "broken" fails to open.
type textExtractor struct{}

func (textExtractor) Name() string { return "text" }

func (textExtractor) Extract(_ context.Context, content []byte) (extract.Result, error) {
	if string(content) == "broken" {
		return extract.Result{}, errors.New("not a pdf")
	}
	return extract.Result{Text: string(content), Pages: 1}, nil
}

type captureRecorder struct{ runs []history.Run }

func (c *captureRecorder) Record(_ context.Context, run history.Run) error {
	c.runs = append(c.runs, run)
	return nil
}

func sampleDocs() []types.SourceDocument {
	return []types.SourceDocument{
		{Name: "report.pdf", Content: []byte("Hello World")},
		{Name: "notes.pdf", Content: []byte("Second doc")},
	}
}

// --- config ---

func TestDecodeConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	c, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, int64(64<<20), c.Server.MaxUploadBytes)
	assert.Equal(t, 100, c.Server.MaxFiles)
	assert.Equal(t, 60*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, c.Server.WriteTimeout)
	assert.Equal(t, "upload-token", c.Server.AuthTokenKey)
	assert.Equal(t, types.BackendLedongthuc, c.Conversion.Backend)
	assert.Equal(t, 1, c.Conversion.Workers)
	assert.Equal(t, 5, c.Fetch.MaxRetries)
	assert.Equal(t, time.Minute, c.Fetch.Timeout)
	assert.Empty(t, c.History.DBPath)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, ".secrets/", c.SecretsDir)
}

func TestDecodeConfigEnvOverrides(t *testing.T) {
	t.Setenv("PDF2TXT_CONVERSION_WORKERS", "4")
	t.Setenv("PDF2TXT_SERVER_MAX_FILES", "7")
	t.Setenv("PDF2TXT_HISTORY_DB_PATH", "/tmp/runs.db")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PDF2TXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Conversion.Workers)
	assert.Equal(t, 7, c.Server.MaxFiles)
	assert.Equal(t, "/tmp/runs.db", c.History.DBPath)
}

func TestDecodeConfigInvalid(t *testing.T) {
	tests := []struct {
		name, key string
		value     any
		wantErr   string
	}{
		{name: "unknown backend", key: "conversion.backend", value: "tesseract", wantErr: "conversion.backend"},
		{name: "zero workers", key: "conversion.workers", value: 0, wantErr: "conversion.workers"},
		{name: "no upload budget", key: "server.max_upload_bytes", value: 0, wantErr: "server.max_upload_bytes"},
		{name: "negative retries", key: "fetch.max_retries", value: -1, wantErr: "fetch.max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			setDefaults(v)
			v.Set(tt.key, tt.value)

			_, err := decodeConfig(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// --- convert ---

func TestRunConvertBoth(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	rec := &captureRecorder{}
	var out bytes.Buffer

	err := runConvert(context.Background(), convertJob{
		refs:      []string{"report.pdf", "notes.pdf"},
		format:    formatBoth,
		outDir:    dir,
		loader:    fakeLoader{docs: sampleDocs()},
		extractor: textExtractor{},
		workers:   2,
		recorder:  rec,
		logger:    zaptest.NewLogger(t),
	}, &out)
	require.NoError(t, err)

	merged, err := os.ReadFile(filepath.Join(dir, types.MergedFileName))
	require.NoError(t, err)
	assert.Equal(t, "===== report.txt =====\nHello World\n\n===== notes.txt =====\nSecond doc", string(merged))

	zr, err := zip.OpenReader(filepath.Join(dir, types.ArchiveFileName))
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 2)
	assert.Equal(t, "report.txt", zr.File[0].Name)
	assert.Equal(t, "notes.txt", zr.File[1].Name)

	report := out.String()
	assert.Contains(t, report, "converted: report.pdf -> report.txt (1 pages)")
	assert.Contains(t, report, "Batch summary: 2 converted, 0 partial, 0 failed (total: 2)")
	assert.Contains(t, report, "wrote "+filepath.Join(dir, types.MergedFileName))

	require.Len(t, rec.runs, 1)
	assert.Equal(t, history.ModeBoth, rec.runs[0].Mode)
	assert.Equal(t, "text", rec.runs[0].Backend)
	assert.Positive(t, rec.runs[0].OutputBytes)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestRunConvertExtractionFailureIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	err := runConvert(context.Background(), convertJob{
		format:    formatMerged,
		outDir:    dir,
		loader:    fakeLoader{docs: []types.SourceDocument{{Name: "scan.pdf", Content: []byte("broken")}}},
		extractor: textExtractor{},
	}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "failed:    scan.pdf -> scan.txt")
	merged, err := os.ReadFile(filepath.Join(dir, types.MergedFileName))
	require.NoError(t, err)
	assert.Equal(t, "===== scan.txt =====", string(merged))
}

func TestRunConvertStrictFailsAfterWriting(t *testing.T) {
	docs := []types.SourceDocument{
		{Name: "report.pdf", Content: []byte("Hello World")},
		{Name: "scan.pdf", Content: []byte("broken")},
	}

	dir := t.TempDir()
	rec := &captureRecorder{}
	err := runConvert(context.Background(), convertJob{
		format:    formatMerged,
		outDir:    dir,
		loader:    fakeLoader{docs: docs},
		extractor: textExtractor{},
		recorder:  rec,
		strict:    true,
	}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 failed and 0 partial of 2 document(s)")

	merged, err := os.ReadFile(filepath.Join(dir, types.MergedFileName))
	require.NoError(t, err)
	assert.Equal(t, "===== report.txt =====\nHello World\n\n===== scan.txt =====", string(merged))
	assert.Len(t, rec.runs, 1)

	err = runConvert(context.Background(), convertJob{
		format:    formatMerged,
		outDir:    t.TempDir(),
		loader:    fakeLoader{docs: sampleDocs()},
		extractor: textExtractor{},
		strict:    true,
	}, io.Discard)
	assert.NoError(t, err)
}

func TestRunConvertLoadFailureWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	err := runConvert(context.Background(), convertJob{
		format:    formatZip,
		outDir:    dir,
		loader:    fakeLoader{err: errors.New("opening missing.pdf: no such file")},
		extractor: textExtractor{},
	}, io.Discard)
	require.Error(t, err)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "output directory should not be created")
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{formatZip, formatMerged, formatBoth} {
		assert.NoError(t, validateFormat(f))
	}
	assert.Error(t, validateFormat("tar"))
}

func TestWriteFileAtomicLeavesTargetOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	_, err := writeFileAtomic(path, func(w io.Writer) error {
		w.Write([]byte("half"))
		return errors.New("disk full")
	})
	require.Error(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenRecorderDisabled(t *testing.T) {
	rec, closeFn, err := openRecorder(types.HistoryConfig{})
	require.NoError(t, err)
	assert.Nil(t, rec)
	closeFn()
}

// --- inspect ---

func TestRunInspect(t *testing.T) {
	merged := []byte("===== report.txt =====\nHello World\n\n===== notes.txt =====\nSecond doc")

	var out bytes.Buffer
	require.NoError(t, runInspect(merged, "", &out))
	assert.Contains(t, out.String(), "report.txt")
	assert.Contains(t, out.String(), "11 chars")
	assert.Contains(t, out.String(), "2 section(s), 21 chars")

	out.Reset()
	require.NoError(t, runInspect(merged, "notes.txt", &out))
	assert.Equal(t, "Second doc\n", out.String())

	assert.Error(t, runInspect(merged, "missing.txt", io.Discard))
}
