// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs a set of uploaded PDFs through an extractor and
// packages the resulting texts as a zip archive or one merged text file.
//
// A batch always has one document per source, in source order. Extraction
// failures never abort a batch: the failing document keeps its slot with
// empty text and status failed.
package convert

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pdf2txt/internal/extract"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

const textExt = ".txt"

// Converter converts upload sets into batches. It holds no per-batch state
// and is safe for concurrent use.
type Converter struct {
	extractor extract.Extractor
	workers   int
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithWorkers bounds the number of documents extracted at once. Values
// below 1 mean sequential extraction.
func WithWorkers(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger for per-document status and batch summaries.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Converter that extracts text with ex.
func New(ex extract.Extractor, opts ...Option) *Converter {
	c := &Converter{
		extractor: ex,
		workers:   1,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConvertAll extracts every source and returns the batch in source order.
// Documents are independent, so up to the configured number of workers run
// at once; each writes only its own slot. When ctx is cancelled, documents
// not yet started are recorded as failed.
func (c *Converter) ConvertAll(ctx context.Context, sources []types.SourceDocument) types.Batch {
	batch := types.Batch{
		Documents:   make([]types.ConvertedDocument, len(sources)),
		ConvertedAt: c.now().UTC().Truncate(time.Second),
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			batch.Documents[i] = c.convertOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	c.logCollisions(batch)
	s := batch.Summary()
	c.logger.Info("batch converted",
		zap.String("backend", c.extractor.Name()),
		zap.Int("converted", s.Converted),
		zap.Int("partial", s.Partial),
		zap.Int("failed", s.Failed),
		zap.Int("total", s.Total()),
	)
	return batch
}

func (c *Converter) convertOne(ctx context.Context, src types.SourceDocument) types.ConvertedDocument {
	doc := types.ConvertedDocument{
		SourceName:   src.Name,
		TextFileName: TextFileName(src.Name),
	}

	if err := ctx.Err(); err != nil {
		doc.Status = types.ConversionFailed
		c.logger.Warn("document skipped", zap.String("source", src.Name), zap.Error(err))
		return doc
	}

	res, err := c.extractor.Extract(ctx, src.Content)
	if err != nil {
		doc.Status = types.ConversionFailed
		c.logger.Warn("document failed", zap.String("source", src.Name), zap.Error(err))
		return doc
	}

	doc.Text = strings.ToValidUTF8(res.Text, "\uFFFD")
	doc.Chars = utf8.RuneCountInString(doc.Text)
	doc.Pages = res.Pages
	doc.FailedPages = len(res.FailedPages)
	doc.Status = types.ConversionDone
	if doc.FailedPages > 0 {
		doc.Status = types.ConversionPartial
		c.logger.Warn("document partially converted",
			zap.String("source", src.Name),
			zap.Ints("failed_pages", res.FailedPages),
		)
	}
	c.logger.Debug("document converted",
		zap.String("source", src.Name),
		zap.String("text_file", doc.TextFileName),
		zap.Int("pages", doc.Pages),
		zap.Int("chars", doc.Chars),
	)
	return doc
}

// logCollisions reports text file names shared by more than one document.
// Both documents stay in the batch and in the archive.
func (c *Converter) logCollisions(batch types.Batch) {
	seen := make(map[string]int, batch.Len())
	for _, d := range batch.Documents {
		seen[d.TextFileName]++
	}
	for _, d := range batch.Documents {
		if n := seen[d.TextFileName]; n > 1 {
			c.logger.Warn("duplicate text file name", zap.String("name", d.TextFileName), zap.Int("count", n))
			seen[d.TextFileName] = 0
		}
	}
}

// Stem removes the final extension from name. Leading dots of the base name
// never start an extension, so ".pdf" and "..pdf" are returned unchanged.
func Stem(name string) string {
	base := name[strings.LastIndexByte(name, '/')+1:]
	dot := strings.LastIndexByte(base, '.')
	if dot < 0 || strings.Trim(base[:dot], ".") == "" {
		return name
	}
	return name[:len(name)-len(base)+dot]
}

// TextFileName returns the output name for a source file name.
func TextFileName(name string) string {
	return Stem(name) + textExt
}

// WriteReport prints one status line per document and a batch summary to w.
func WriteReport(w io.Writer, batch types.Batch) {
	for _, d := range batch.Documents {
		switch d.Status {
		case types.ConversionDone:
			fmt.Fprintf(w, "converted: %s -> %s (%d pages)\n", d.SourceName, d.TextFileName, d.Pages)
		case types.ConversionPartial:
			fmt.Fprintf(w, "partial:   %s -> %s (%d of %d pages unreadable)\n", d.SourceName, d.TextFileName, d.FailedPages, d.Pages)
		case types.ConversionFailed:
			fmt.Fprintf(w, "failed:    %s -> %s (no text extracted)\n", d.SourceName, d.TextFileName)
		}
	}
	s := batch.Summary()
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d partial, %d failed (total: %d)\n",
		s.Converted, s.Partial, s.Failed, s.Total())
}
