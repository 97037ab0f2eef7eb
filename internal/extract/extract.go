// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns PDF bytes into plain text with pluggable backends.
//
// Every backend is best effort: a page that cannot be read contributes an
// empty string and the remaining pages are still returned. Pages are joined
// in physical order with no separator, so words may run together across a
// page boundary.
package extract

import (
	"context"
	"fmt"

	"github.com/pdiddy/pdf2txt/internal/container"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

// Extractor pulls the text layer out of a PDF.
type Extractor interface {
	// Name identifies the backend in logs and run history.
	Name() string

	// Extract returns the concatenated page text of the PDF in content.
	// Result.Text is always usable. A non-nil error means the document
	// could not be opened at all; Result.Text is then empty.
	Extract(ctx context.Context, content []byte) (Result, error)
}

// Result holds extracted text and page accounting for one document.
type Result struct {
	Text string

	// Pages is the number of pages the backend saw (0 when unknown).
	Pages int

	// FailedPages lists 1-based page numbers whose extraction errored.
	FailedPages []int
}

// New builds the extractor for backend. The pdftotext backend needs a
// container runtime with image available locally.
func New(backend types.ExtractionBackend, image string) (Extractor, error) {
	switch backend {
	case types.BackendLedongthuc, "":
		return NewPDFExtractor(), nil
	case types.BackendPdftotext:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return NewPdftotextExtractor(rt, image)
	default:
		return nil, fmt.Errorf("unknown extraction backend %q", backend)
	}
}
