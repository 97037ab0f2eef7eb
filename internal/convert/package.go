// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdiddy/pdf2txt/pkg/types"
)

// WriteArchive writes a zip with one deflated entry per document to w, in
// batch order. Documents sharing a text file name produce duplicate entries.
func WriteArchive(w io.Writer, batch types.Batch) error {
	zw := zip.NewWriter(w)
	for _, d := range batch.Documents {
		hdr := &zip.FileHeader{
			Name:     d.TextFileName,
			Method:   zip.Deflate,
			Modified: batch.ConvertedAt,
		}
		hdr.SetMode(0o644)
		f, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("adding %s to archive: %w", d.TextFileName, err)
		}
		if _, err := io.WriteString(f, d.Text); err != nil {
			return fmt.Errorf("writing %s to archive: %w", d.TextFileName, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return nil
}

// BuildArchive returns the zip archive for batch as bytes.
func BuildArchive(batch types.Batch) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteArchive(&buf, batch); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildMerged concatenates one block per document:
//
//	\n===== <name> =====\n<text>\n
//
// and trims leading and trailing whitespace from the result. An empty batch
// yields zero bytes.
func BuildMerged(batch types.Batch) []byte {
	var b strings.Builder
	for _, d := range batch.Documents {
		b.WriteString("\n===== ")
		b.WriteString(d.TextFileName)
		b.WriteString(" =====\n")
		b.WriteString(d.Text)
		b.WriteString("\n")
	}
	return []byte(strings.TrimSpace(b.String()))
}

// Section is one document recovered from merged output.
type Section struct {
	Name string
	Text string
}

var headerRe = regexp.MustCompile(`(?m)^===== (.+) =====$`)

// SplitMerged recovers the per-document sections of merged output in order.
// Text that itself contains a header line is split there too.
func SplitMerged(merged []byte) []Section {
	s := string(merged)
	idx := headerRe.FindAllStringSubmatchIndex(s, -1)
	sections := make([]Section, 0, len(idx))
	for i, m := range idx {
		start := min(m[1]+1, len(s))
		end := len(s)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		text := ""
		if start <= end {
			// Up to two newlines before the next header belong to the block
			// boundary, not to the text.
			text = strings.TrimSuffix(strings.TrimSuffix(s[start:end], "\n"), "\n")
		}
		sections = append(sections, Section{Name: s[m[2]:m[3]], Text: text})
	}
	return sections
}
