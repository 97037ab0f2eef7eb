// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Download names and MIME types offered to clients for the two outputs.
const (
	ArchiveFileName = "pdfs_converted_to_text.zip"
	ArchiveMIME     = "application/zip"

	MergedFileName = "merged_text_files.txt"
	MergedMIME     = "text/plain"
)

// ConversionStatus indicates how much of a PDF yielded text.
type ConversionStatus string

const (
	// ConversionDone means every page was read.
	ConversionDone ConversionStatus = "converted"
	// ConversionPartial means at least one page failed and contributed no text.
	ConversionPartial ConversionStatus = "partial"
	// ConversionFailed means the document could not be opened; its text is empty.
	ConversionFailed ConversionStatus = "failed"
)

// SourceDocument is one uploaded PDF. Content is never modified after upload.
type SourceDocument struct {
	// Name is the client-supplied file name (e.g. "report.pdf").
	Name string

	Content []byte
}

// ConvertedDocument is the text derived from one SourceDocument.
type ConvertedDocument struct {
	// SourceName is the originating SourceDocument.Name.
	SourceName string `json:"source_name" yaml:"source_name"`

	// TextFileName is the stem of SourceName plus ".txt".
	TextFileName string `json:"text_file_name" yaml:"text_file_name"`

	// Text is the best-effort extracted text. Empty when extraction failed.
	Text string `json:"-" yaml:"-"`

	Status ConversionStatus `json:"status" yaml:"status"`

	// Pages is the page count reported by the extractor (0 when unknown).
	Pages int `json:"pages" yaml:"pages"`

	// FailedPages counts pages that contributed empty text because of an error.
	FailedPages int `json:"failed_pages" yaml:"failed_pages"`

	// Chars is the number of characters (runes) in Text.
	Chars int `json:"chars" yaml:"chars"`
}

// Batch is the ordered result of converting one upload set. Documents[i]
// always corresponds to the i-th source.
type Batch struct {
	Documents   []ConvertedDocument
	ConvertedAt time.Time
}

// Len returns the number of documents in the batch.
func (b Batch) Len() int { return len(b.Documents) }

// Summary counts documents by conversion status.
func (b Batch) Summary() Summary {
	var s Summary
	for _, d := range b.Documents {
		switch d.Status {
		case ConversionDone:
			s.Converted++
		case ConversionPartial:
			s.Partial++
		case ConversionFailed:
			s.Failed++
		}
	}
	return s
}

// Summary holds per-status document counts for one batch.
type Summary struct {
	Converted int `json:"converted" yaml:"converted"`
	Partial   int `json:"partial" yaml:"partial"`
	Failed    int `json:"failed" yaml:"failed"`
}

// Total returns the total number of documents processed.
func (s Summary) Total() int {
	return s.Converted + s.Partial + s.Failed
}

// HasFailures reports whether any document failed or lost pages.
func (s Summary) HasFailures() bool {
	return s.Failed > 0 || s.Partial > 0
}
