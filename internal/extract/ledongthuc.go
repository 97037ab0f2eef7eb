// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var _ Extractor = (*PDFExtractor)(nil)

// PDFExtractor reads the embedded text layer with the pure-Go
// github.com/ledongthuc/pdf parser. Scanned image-only pages yield "".
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// Name implements Extractor.
func (e *PDFExtractor) Name() string { return "ledongthuc" }

// Extract implements Extractor.
func (e *PDFExtractor) Extract(_ context.Context, content []byte) (Result, error) {
	if len(content) == 0 {
		return Result{}, errors.New("empty PDF content")
	}

	r, err := openReader(content)
	if err != nil {
		return Result{}, err
	}

	res := Result{Pages: r.NumPage()}
	var text strings.Builder
	for i := 1; i <= res.Pages; i++ {
		pageText, err := pageText(r, i)
		if err != nil {
			res.FailedPages = append(res.FailedPages, i)
			continue
		}
		text.WriteString(pageText)
	}
	res.Text = text.String()
	return res, nil
}

// openReader parses the xref and trailer. The parser panics on some
// truncated files, so the panic is turned into an error.
func openReader(content []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("open pdf: %v", p)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return r, nil
}

// pageText extracts one page. A null page object is an empty page, not an error.
func pageText(r *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("read page %d: %v", n, p)
		}
	}()
	page := r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("read page %d: %w", n, err)
	}
	return text, nil
}
