package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rag-platform/internal/ai"
	"rag-platform/internal/vectorstore"
)

func newTestPipeline(t *testing.T, store *memStore, extractor TextExtractor, clean bool) (*IngestionPipeline, *IngestionState) {
	t.Helper()
	state := NewIngestionState()
	docs := NewDocumentService(t.TempDir())
	pipeline := NewIngestionPipeline(
		testRegistry(store, ai.NewLocalEmbedder(8)),
		extractor,
		NewChunkingService(200, 20),
		docs,
		state,
		nil,
		clean,
	)
	return pipeline, state
}

func TestPipelineRunHappyPath(t *testing.T) {
	store := newMemStore()
	extractor := &stubExtractor{texts: map[string]string{
		"/docs/a.pdf": strings.Repeat("alpha content. ", 40),
		"/docs/b.pdf": "short document",
	}}
	pipeline, state := newTestPipeline(t, store, extractor, false)

	if !state.TryStart() {
		t.Fatal("could not claim slot")
	}
	pipeline.Run(context.Background(), []string{"/docs/a.pdf", "/docs/b.pdf"})

	snap := state.Snapshot()
	if snap.IsProcessing {
		t.Error("slot not released")
	}
	if snap.Status != "completed" {
		t.Errorf("expected completed, got %s (errors: %v)", snap.Status, snap.Errors)
	}
	if snap.DocumentsProcessed == nil || *snap.DocumentsProcessed != 2 {
		t.Errorf("unexpected documents_processed: %v", snap.DocumentsProcessed)
	}
	if snap.ChunksAdded == nil || *snap.ChunksAdded != store.rowCount() {
		t.Errorf("chunks_added %v does not match stored rows %d", snap.ChunksAdded, store.rowCount())
	}
	if store.rowCount() == 0 {
		t.Fatal("no rows written")
	}
}

func TestPipelineRecordsPerFileFailures(t *testing.T) {
	store := newMemStore()
	extractor := &stubExtractor{
		texts: map[string]string{"/docs/good.pdf": "usable text here"},
		errs:  map[string]error{"/docs/bad.pdf": errors.New("corrupt xref table")},
	}
	pipeline, state := newTestPipeline(t, store, extractor, false)

	state.TryStart()
	pipeline.Run(context.Background(), []string{"/docs/bad.pdf", "/docs/good.pdf"})

	snap := state.Snapshot()
	if snap.Status != "completed_with_errors" {
		t.Errorf("expected completed_with_errors, got %s", snap.Status)
	}
	if snap.DocumentsProcessed == nil || *snap.DocumentsProcessed != 1 {
		t.Errorf("good file should still be processed: %v", snap.DocumentsProcessed)
	}
	if len(snap.Errors) != 1 || !strings.Contains(snap.Errors[0], "bad.pdf") {
		t.Errorf("unexpected errors: %v", snap.Errors)
	}
}

func TestPipelineSkipsEmptyDocumentsSilently(t *testing.T) {
	store := newMemStore()
	extractor := &stubExtractor{texts: map[string]string{
		"/docs/empty.pdf": "   \n\n  ",
		"/docs/full.pdf":  "real content",
	}}
	pipeline, state := newTestPipeline(t, store, extractor, false)

	state.TryStart()
	pipeline.Run(context.Background(), []string{"/docs/empty.pdf", "/docs/full.pdf"})

	snap := state.Snapshot()
	if snap.Status != "completed" {
		t.Errorf("empty document must not error the run: %s / %v", snap.Status, snap.Errors)
	}
	if snap.DocumentsProcessed == nil || *snap.DocumentsProcessed != 1 {
		t.Errorf("only the non-empty document counts: %v", snap.DocumentsProcessed)
	}
}

func TestPipelineAddFailureAbortsFileNotRun(t *testing.T) {
	oldBackoff := storeRetryBackoff
	storeRetryBackoff = time.Millisecond
	defer func() { storeRetryBackoff = oldBackoff }()

	store := newMemStore()
	store.addErr = errors.New("index write refused")
	extractor := &stubExtractor{texts: map[string]string{"/docs/a.pdf": "content"}}
	pipeline, state := newTestPipeline(t, store, extractor, false)

	state.TryStart()
	pipeline.Run(context.Background(), []string{"/docs/a.pdf"})

	snap := state.Snapshot()
	if snap.Status != "completed_with_errors" {
		t.Errorf("expected completed_with_errors, got %s", snap.Status)
	}
	if snap.IsProcessing {
		t.Error("slot not released after failure")
	}
	if store.addCalls < 2 {
		t.Errorf("expected retries on write failure, got %d attempts", store.addCalls)
	}
}

func TestAddWithRetryReturnsAfterLastAttempt(t *testing.T) {
	oldBackoff := storeRetryBackoff
	storeRetryBackoff = 50 * time.Millisecond
	defer func() { storeRetryBackoff = oldBackoff }()

	store := newMemStore()
	store.addErr = errors.New("index write refused")
	pipeline, _ := newTestPipeline(t, store, &stubExtractor{}, false)

	start := time.Now()
	err := pipeline.addWithRetry(context.Background(), store, []vectorstore.Row{
		{ID: "a_chunk_0", Text: "content", Embedding: []float32{1, 0}},
	})
	elapsed := time.Since(start)

	if !errors.Is(err, store.addErr) {
		t.Fatalf("expected the final write error, got %v", err)
	}
	if store.addCalls != storeWriteAttempts {
		t.Errorf("expected %d attempts, got %d", storeWriteAttempts, store.addCalls)
	}
	// Two sleeps between three attempts (1x + 2x the base delay); a sleep
	// after the final failure would push this past 6x.
	if elapsed >= 6*storeRetryBackoff {
		t.Errorf("retry loop slept after the final attempt (elapsed %v)", elapsed)
	}
}

func TestPipelineChunkMetadataAndIDs(t *testing.T) {
	store := newMemStore()
	extractor := &stubExtractor{texts: map[string]string{
		"/docs/report.pdf": strings.Repeat("sentence of interest. ", 30),
	}}
	pipeline, state := newTestPipeline(t, store, extractor, false)

	state.TryStart()
	pipeline.Run(context.Background(), []string{"/docs/report.pdf"})

	if store.rowCount() == 0 {
		t.Fatal("no rows written")
	}
	for id, row := range store.rows {
		if !strings.HasPrefix(id, "report.pdf_chunk_") {
			t.Errorf("unexpected chunk id %s", id)
		}
		if row.Metadata["source"] != "report.pdf" {
			t.Errorf("chunk %s missing source metadata: %v", id, row.Metadata)
		}
		if row.Metadata["start_index"] == "" {
			t.Errorf("chunk %s missing start_index metadata", id)
		}
		if len(row.Embedding) != 8 {
			t.Errorf("chunk %s has embedding of %d dims", id, len(row.Embedding))
		}
	}
}

func TestNewFilesSkipsAlreadyIngestedSources(t *testing.T) {
	store := newMemStore()
	state := NewIngestionState()
	dir := t.TempDir()
	docs := NewDocumentService(dir)

	for _, name := range []string{"old.pdf", "new.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// Seed the store with rows from old.pdf.
	store.rows["old.pdf_chunk_0"] = storeRow("old.pdf")

	pipeline := NewIngestionPipeline(
		testRegistry(store, ai.NewLocalEmbedder(8)),
		&stubExtractor{}, NewChunkingService(200, 20), docs, state, nil, false,
	)

	paths, err := pipeline.NewFiles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "new.pdf" {
		t.Errorf("expected only new.pdf, got %v", paths)
	}
}

func TestClearServiceIdempotent(t *testing.T) {
	store := newMemStore()
	store.rows["doc.pdf_chunk_0"] = storeRow("doc.pdf")
	state := NewIngestionState()
	dir := t.TempDir()
	docs := NewDocumentService(dir)

	if err := os.WriteFile(filepath.Join(dir, "doc.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewClearService(testRegistry(store, ai.NewLocalEmbedder(8)), docs, state)

	first, err := svc.Clear(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.SourceFilesCleared || !first.CollectionDeleted || first.FilesDeleted != 1 {
		t.Errorf("unexpected first clear result: %+v", first)
	}

	// Second clear: no files, collection already gone. Still a success.
	second, err := svc.Clear(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.SourceFilesCleared || !second.CollectionDeleted || second.FilesDeleted != 0 {
		t.Errorf("clear is not idempotent: %+v", second)
	}
}

func TestClearServiceRejectedWhileIngesting(t *testing.T) {
	state := NewIngestionState()
	state.TryStart()

	svc := NewClearService(testRegistry(newMemStore(), ai.NewLocalEmbedder(8)), NewDocumentService(t.TempDir()), state)
	if _, err := svc.Clear(context.Background()); !errors.Is(err, ErrIngestionBusy) {
		t.Fatalf("expected ErrIngestionBusy, got %v", err)
	}
}
