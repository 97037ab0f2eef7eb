// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/pdf2txt/internal/container"
)

var _ Extractor = (*PdftotextExtractor)(nil)

// pdftotextArgs reads the PDF from stdin and writes UTF-8 text to stdout.
// pdftotext ends every page with a form feed.
var pdftotextArgs = []string{"pdftotext", "-enc", "UTF-8", "-", "-"}

// PdftotextExtractor runs poppler's pdftotext inside a container image.
type PdftotextExtractor struct {
	runtime container.Runtime
	image   string
}

// NewPdftotextExtractor verifies that image exists in rt before returning.
func NewPdftotextExtractor(rt container.Runtime, image string) (*PdftotextExtractor, error) {
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("pdftotext image not available in %s: %w", rt.Name(), err)
	}
	return &PdftotextExtractor{runtime: rt, image: image}, nil
}

// Name implements Extractor.
func (p *PdftotextExtractor) Name() string { return "pdftotext" }

// Extract implements Extractor. pdftotext reports no per-page errors, so
// FailedPages is always empty; a non-zero exit is a document failure.
func (p *PdftotextExtractor) Extract(ctx context.Context, content []byte) (Result, error) {
	var out bytes.Buffer
	if err := p.runtime.Run(ctx, p.image, pdftotextArgs, bytes.NewReader(content), &out); err != nil {
		return Result{}, fmt.Errorf("pdftotext: %w", err)
	}
	pages := splitPages(out.String())
	return Result{
		Text:  strings.Join(pages, ""),
		Pages: len(pages),
	}, nil
}

// splitPages cuts pdftotext output on form feeds. The feed after the last
// page does not start another page.
func splitPages(s string) []string {
	if s == "" {
		return nil
	}
	pages := strings.Split(s, "\f")
	if pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
