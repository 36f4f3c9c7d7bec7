package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"rag-platform/internal/ai"
	"rag-platform/internal/logger"
	"rag-platform/internal/telemetry"
	"rag-platform/internal/vectorstore"
)

const (
	// writeBatchSize bounds how many chunks go to the embedder and the store
	// in one round trip.
	writeBatchSize = 64

	storeWriteAttempts = 3
)

// storeRetryBackoff is the base delay between write retries; attempt n waits
// n times this long.
var storeRetryBackoff = time.Second

// IngestionPipeline drives one end-to-end ingestion run: scan, extract,
// chunk, embed, write. It never starts itself; the caller claims the
// ingestion slot first, and Run releases it through the state controller.
type IngestionPipeline struct {
	registry  *vectorstore.Registry
	extractor TextExtractor
	chunker   *ChunkingService
	docs      *DocumentService
	state     *IngestionState
	metrics   *telemetry.Metrics

	cleanBeforeIngest bool
}

func NewIngestionPipeline(
	registry *vectorstore.Registry,
	extractor TextExtractor,
	chunker *ChunkingService,
	docs *DocumentService,
	state *IngestionState,
	metrics *telemetry.Metrics,
	cleanBeforeIngest bool,
) *IngestionPipeline {
	return &IngestionPipeline{
		registry:          registry,
		extractor:         extractor,
		chunker:           chunker,
		docs:              docs,
		state:             state,
		metrics:           metrics,
		cleanBeforeIngest: cleanBeforeIngest,
	}
}

func (p *IngestionPipeline) State() *IngestionState { return p.state }

// NewFiles returns the PDFs in the source directory that the collection does
// not already hold, keyed by base name. When the pipeline is configured to
// wipe the collection first, every file counts as new.
func (p *IngestionPipeline) NewFiles(ctx context.Context) ([]string, error) {
	paths, err := p.docs.FindPDFs()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 || p.cleanBeforeIngest {
		return paths, nil
	}

	store, err := p.registry.Store(ctx)
	if err != nil {
		return nil, err
	}

	sources, err := store.Sources(ctx)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return paths, nil
	}
	if err != nil {
		return nil, err
	}

	var fresh []string
	for _, path := range paths {
		if !sources[filepath.Base(path)] {
			fresh = append(fresh, path)
		}
	}
	return fresh, nil
}

// Run processes the given files. The caller must hold the ingestion slot;
// Run always releases it, including on panic, and records the run outcome
// in the state controller.
func (p *IngestionPipeline) Run(ctx context.Context, paths []string) {
	start := time.Now()

	var (
		documentsProcessed int
		chunksAdded        int
		runErrors          []string
	)

	defer func() {
		if r := recover(); r != nil {
			runErrors = []string{fmt.Sprintf("ingestion panicked: %v", r)}
			logger.Error("ingestion run panicked", "panic", r)
		}
		p.state.Finish(documentsProcessed, chunksAdded, runErrors)
		if p.metrics != nil {
			p.metrics.RecordIngestionRun(documentsProcessed, chunksAdded, time.Since(start).Seconds(), len(runErrors) > 0)
		}
		logger.Info("ingestion run finished",
			"documents", documentsProcessed,
			"chunks", chunksAdded,
			"errors", len(runErrors),
			"duration", time.Since(start).String())
	}()

	store, cleanErr, err := p.prepareStore(ctx)
	if err != nil {
		runErrors = append(runErrors, err.Error())
		return
	}
	if cleanErr != "" {
		// A failed wipe is recorded but does not abort the run.
		runErrors = append(runErrors, cleanErr)
	}

	embedder, err := p.registry.Embedder(ctx)
	if err != nil {
		runErrors = append(runErrors, fmt.Sprintf("failed to initialize embedder: %v", err))
		return
	}

	for _, path := range paths {
		base := filepath.Base(path)

		if err := ctx.Err(); err != nil {
			runErrors = append(runErrors, fmt.Sprintf("run cancelled before %s: %v", base, err))
			return
		}

		text, err := p.extractor.Extract(ctx, path)
		if err != nil {
			runErrors = append(runErrors, fmt.Sprintf("%s: %v", base, err))
			continue
		}

		chunks := p.chunker.Split(text, path)
		if len(chunks) == 0 {
			logger.Warn("document produced no chunks, skipping", "file", base)
			continue
		}

		written, err := p.writeChunks(ctx, store, embedder, chunks)
		chunksAdded += written
		if err != nil {
			runErrors = append(runErrors, fmt.Sprintf("%s: %v", base, err))
			continue
		}

		documentsProcessed++
		logger.Info("document ingested", "file", base, "chunks", len(chunks))
	}
}

// prepareStore wipes the collection first when configured to, resetting the
// registry so no handle caches dropped collection state, then makes sure the
// collection exists. A failed wipe comes back as cleanErr so the caller can
// record it and keep going; a missing collection during the wipe counts as
// success.
func (p *IngestionPipeline) prepareStore(ctx context.Context) (store vectorstore.Store, cleanErr string, err error) {
	store, err = p.registry.Store(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to initialize vector store: %v", err)
	}

	if p.cleanBeforeIngest {
		if delErr := store.DeleteCollection(ctx); delErr != nil && !errors.Is(delErr, vectorstore.ErrCollectionNotFound) {
			cleanErr = fmt.Sprintf("failed to clean collection: %v", delErr)
		}
		p.registry.Reset()
		store, err = p.registry.Store(ctx)
		if err != nil {
			return nil, cleanErr, fmt.Errorf("failed to reopen vector store: %v", err)
		}
	}

	if err := store.EnsureCollection(ctx); err != nil {
		return nil, cleanErr, fmt.Errorf("failed to ensure collection: %v", err)
	}
	return store, cleanErr, nil
}

// writeChunks embeds and stores chunks in batches, returning how many made it
// into the collection.
func (p *IngestionPipeline) writeChunks(ctx context.Context, store vectorstore.Store, embedder ai.Embedder, chunks []Chunk) (int, error) {
	written := 0

	for offset := 0; offset < len(chunks); offset += writeBatchSize {
		end := offset + writeBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embedding failed: %v", err)
		}
		if len(vectors) != len(batch) {
			return written, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		rows := make([]vectorstore.Row, len(batch))
		for i, c := range batch {
			rows[i] = vectorstore.Row{
				ID:        c.ID,
				Text:      c.Text,
				Embedding: vectors[i],
				Metadata: map[string]string{
					"source":      c.Source,
					"start_index": strconv.Itoa(c.StartIndex),
				},
			}
		}

		if err := p.addWithRetry(ctx, store, rows); err != nil {
			return written, fmt.Errorf("store write failed: %v", err)
		}
		written += len(batch)
	}

	return written, nil
}

func (p *IngestionPipeline) addWithRetry(ctx context.Context, store vectorstore.Store, rows []vectorstore.Row) error {
	var lastErr error
	for attempt := 1; attempt <= storeWriteAttempts; attempt++ {
		lastErr = store.Add(ctx, rows)
		if lastErr == nil {
			return nil
		}
		if attempt == storeWriteAttempts {
			break
		}

		logger.Warn("vector store write failed, retrying",
			"attempt", attempt, "max_attempts", storeWriteAttempts, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * storeRetryBackoff):
		}
	}
	return lastErr
}
