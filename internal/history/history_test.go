// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2txt/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history", "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleBatch(at time.Time) types.Batch {
	return types.Batch{
		ConvertedAt: at,
		Documents: []types.ConvertedDocument{
			{SourceName: "report.pdf", TextFileName: "report.txt", Text: "Hello World", Status: types.ConversionDone, Pages: 1, Chars: 11},
			{SourceName: "scan.pdf", TextFileName: "scan.txt", Status: types.ConversionFailed},
			{SourceName: "notes.pdf", TextFileName: "notes.txt", Text: "Second", Status: types.ConversionPartial, Pages: 3, FailedPages: 1, Chars: 6},
		},
	}
}

// --- tests ---

func TestOpenCreatesDBFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		store.Close()
	}
}

func TestNewRun(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := NewRun(ModeArchive, "ledongthuc", sampleBatch(at), 512)

	if run.ID == "" {
		t.Error("run ID is empty")
	}
	if !run.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", run.CreatedAt, at)
	}
	want := types.Summary{Converted: 1, Partial: 1, Failed: 1}
	if run.Summary != want {
		t.Errorf("Summary = %+v, want %+v", run.Summary, want)
	}

	other := NewRun(ModeArchive, "ledongthuc", sampleBatch(at), 512)
	if other.ID == run.ID {
		t.Error("two runs share an ID")
	}
}

func TestRecordAndList(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := NewRun(ModeMerged, "ledongthuc", sampleBatch(at), 128)
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	got := runs[0]
	if got.ID != run.ID || got.Mode != ModeMerged || got.Backend != "ledongthuc" || got.OutputBytes != 128 {
		t.Errorf("run = %+v", got)
	}
	if !got.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, at)
	}
	if got.Summary != run.Summary {
		t.Errorf("Summary = %+v, want %+v", got.Summary, run.Summary)
	}
	if len(got.Documents) != 3 {
		t.Fatalf("got %d documents, want 3", len(got.Documents))
	}
	for i, name := range []string{"report.pdf", "scan.pdf", "notes.pdf"} {
		if got.Documents[i].SourceName != name {
			t.Errorf("document %d = %q, want %q", i, got.Documents[i].SourceName, name)
		}
	}
	notes := got.Documents[2]
	if notes.Status != types.ConversionPartial || notes.Pages != 3 || notes.FailedPages != 1 || notes.Chars != 6 {
		t.Errorf("notes = %+v", notes)
	}
}

func TestRecordNeverStoresText(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, NewRun(ModeArchive, "ledongthuc", sampleBatch(time.Now().UTC()), 1)); err != nil {
		t.Fatal(err)
	}
	runs, err := store.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range runs[0].Documents {
		if d.Text != "" {
			t.Errorf("document %s carries text %q", d.SourceName, d.Text)
		}
	}
}

func TestRecordDuplicateIDFails(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	run := NewRun(ModeArchive, "ledongthuc", sampleBatch(time.Now().UTC()), 1)
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, run); err == nil {
		t.Error("expected error recording the same run twice")
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		run := NewRun(ModeArchive, "ledongthuc", sampleBatch(base.Add(time.Duration(i)*time.Hour)), 1)
		ids = append(ids, run.ID)
		if err := store.Record(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("order = [%s %s], want [%s %s]", runs[0].ID, runs[1].ID, ids[2], ids[1])
	}
}

func TestPrune(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	old := NewRun(ModeArchive, "ledongthuc", sampleBatch(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), 1)
	recent := NewRun(ModeArchive, "ledongthuc", sampleBatch(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)), 1)
	for _, r := range []Run{old, recent} {
		if err := store.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.Prune(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d runs, want 1", n)
	}

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != recent.ID {
		t.Fatalf("remaining runs = %+v", runs)
	}

	var docs int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM run_documents`).Scan(&docs); err != nil {
		t.Fatal(err)
	}
	if docs != 3 {
		t.Errorf("run_documents rows = %d, want 3 (cascade delete)", docs)
	}
}

func TestPruneWithinSameSecond(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	noon := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := NewRun(ModeArchive, "ledongthuc", sampleBatch(noon), 1)
	if err := store.Record(ctx, run); err != nil {
		t.Fatal(err)
	}

	n, err := store.Prune(ctx, noon.Add(500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d runs, want 1", n)
	}
}

func TestListOrdersSubsecondRuns(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	noon := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := NewRun(ModeArchive, "ledongthuc", sampleBatch(noon), 1)
	second := NewRun(ModeArchive, "ledongthuc", sampleBatch(noon.Add(500*time.Millisecond)), 1)
	for _, r := range []Run{first, second} {
		if err := store.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Errorf("order = [%s %s], want [%s %s]", runs[0].ID, runs[1].ID, second.ID, first.ID)
	}
	if !runs[0].CreatedAt.Equal(noon.Add(500 * time.Millisecond)) {
		t.Errorf("CreatedAt = %v, want %v", runs[0].CreatedAt, noon.Add(500*time.Millisecond))
	}
}

func TestExportYAML(t *testing.T) {
	run := NewRun(ModeArchive, "pdftotext", sampleBatch(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)), 64)

	var buf bytes.Buffer
	if err := ExportYAML(&buf, []Run{run}); err != nil {
		t.Fatal(err)
	}

	var got []Run
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("parsing YAML: %v", err)
	}
	if len(got) != 1 || got[0].ID != run.ID || got[0].Backend != "pdftotext" {
		t.Errorf("got %+v", got)
	}
	if strings.Contains(buf.String(), "Hello World") {
		t.Error("YAML export contains extracted text")
	}
}

func TestExportJSON(t *testing.T) {
	run := NewRun(ModePreview, "ledongthuc", sampleBatch(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)), 0)

	var buf bytes.Buffer
	if err := ExportJSON(&buf, []Run{run}); err != nil {
		t.Fatal(err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("parsing JSON: %v", err)
	}
	if len(got) != 1 || got[0]["mode"] != "preview" {
		t.Errorf("got %v", got)
	}
	docs, ok := got[0]["documents"].([]any)
	if !ok || len(docs) != 3 {
		t.Fatalf("documents = %v", got[0]["documents"])
	}
	if _, has := docs[0].(map[string]any)["text"]; has {
		t.Error("JSON export contains text field")
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, nil)
	if !strings.Contains(buf.String(), "no conversion runs recorded") {
		t.Errorf("empty table = %q", buf.String())
	}

	buf.Reset()
	run := NewRun(ModeArchive, "ledongthuc", sampleBatch(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)), 42)
	WriteTable(&buf, []Run{run})
	out := buf.String()
	for _, want := range []string{
		"2026-03-01 09:30:00",
		run.ID,
		"3 docs (1 converted, 1 partial, 1 failed)",
		"42 bytes",
		"report.pdf -> report.txt (1 pages, 11 chars)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
