// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes runs to w as a YAML sequence.
func ExportYAML(w io.Writer, runs []Run) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes runs to w as an indented JSON array.
func ExportJSON(w io.Writer, runs []Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

// WriteTable prints one line per run followed by its documents.
func WriteTable(w io.Writer, runs []Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no conversion runs recorded")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-7s %-10s %d docs (%d converted, %d partial, %d failed)  %d bytes\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.Mode, r.Backend,
			r.Summary.Total(), r.Summary.Converted, r.Summary.Partial, r.Summary.Failed, r.OutputBytes)
		for _, d := range r.Documents {
			fmt.Fprintf(w, "    %-9s %s -> %s (%d pages, %d chars)\n",
				d.Status, d.SourceName, d.TextFileName, d.Pages, d.Chars)
		}
	}
}
