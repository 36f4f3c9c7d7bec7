package services

import (
	"context"
	"errors"
	"fmt"

	"rag-platform/internal/logger"
	"rag-platform/internal/vectorstore"
	"rag-platform/models"
)

// ClearService wipes the platform's durable state: every PDF in the source
// directory and the vector collection, in that order. It holds the ingestion
// slot for the whole sweep so it cannot race a running pipeline.
type ClearService struct {
	registry *vectorstore.Registry
	docs     *DocumentService
	state    *IngestionState
}

func NewClearService(registry *vectorstore.Registry, docs *DocumentService, state *IngestionState) *ClearService {
	return &ClearService{
		registry: registry,
		docs:     docs,
		state:    state,
	}
}

// ClearResult reports per-step outcomes. Both steps are always attempted;
// the HTTP layer decides between 200, 207, and 500 from the two booleans.
type ClearResult struct {
	FilesDeleted       int
	SourceFilesCleared bool
	CollectionDeleted  bool
	Details            []string
}

// Clear runs both wipe steps under the ingestion slot. It returns
// ErrIngestionBusy when a run is in flight. A collection that is already
// gone counts as a successful delete, which makes the whole operation
// idempotent.
func (s *ClearService) Clear(ctx context.Context) (*ClearResult, error) {
	result := &ClearResult{}

	err := s.state.RunExclusive(func() error {
		deleted, failures := s.docs.Clear()
		result.FilesDeleted = deleted
		result.SourceFilesCleared = len(failures) == 0
		for _, f := range failures {
			result.Details = append(result.Details, "file delete failed: "+f)
		}

		store, err := s.registry.Store(ctx)
		if err != nil {
			result.Details = append(result.Details, fmt.Sprintf("vector store unavailable: %v", err))
			return nil
		}

		err = store.DeleteCollection(ctx)
		switch {
		case err == nil:
			result.CollectionDeleted = true
		case errors.Is(err, vectorstore.ErrCollectionNotFound):
			result.CollectionDeleted = true
			result.Details = append(result.Details, "collection did not exist, nothing to delete")
		default:
			result.Details = append(result.Details, fmt.Sprintf("collection delete failed: %v", err))
		}

		// Cached handles may reference the dropped collection; drop them
		// together so the next access starts clean.
		s.registry.Reset()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("clear finished",
		"files_deleted", result.FilesDeleted,
		"collection_deleted", result.CollectionDeleted,
		"source_files_cleared", result.SourceFilesCleared)
	return result, nil
}

// Response renders the result as the wire body with a summary message.
func (r *ClearResult) Response() models.ClearResponse {
	var message string
	switch {
	case r.SourceFilesCleared && r.CollectionDeleted:
		message = "All documents and the vector collection were cleared."
	case r.SourceFilesCleared || r.CollectionDeleted:
		message = "Clear completed partially; see details."
	default:
		message = "Clear failed; see details."
	}

	details := r.Details
	if details == nil {
		details = []string{}
	}
	return models.ClearResponse{
		Message:            message,
		FilesDeletedCount:  r.FilesDeleted,
		CollectionDeleted:  r.CollectionDeleted,
		SourceFilesCleared: r.SourceFilesCleared,
		Details:            details,
	}
}
