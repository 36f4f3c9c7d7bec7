package models

// DTOs crossing service boundaries. Field names are part of the wire
// contract between the orchestrator and the backend services; renaming
// one means bumping every service together.

// ChatRequest is the public chat request accepted by the orchestrator.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the public chat response.
type ChatResponse struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// RetrieveRequest is the service-to-service retrieval request.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// RetrieveResponse carries the surviving chunk texts in index order.
type RetrieveResponse struct {
	Chunks         []string `json:"chunks"`
	CollectionName string   `json:"collection_name"`
	Query          string   `json:"query"`
}

// GenerateRequest is the service-to-service generation request.
type GenerateRequest struct {
	Query         string   `json:"query"`
	ContextChunks []string `json:"context_chunks"`
}

// GenerateResponse carries the completion text.
type GenerateResponse struct {
	Answer string `json:"answer"`
}

// UploadResponse is returned by the ingestion upload endpoint and, when the
// downstream body cannot be parsed, synthesized by the orchestrator proxy.
type UploadResponse struct {
	Status         string `json:"status"`
	Filename       string `json:"filename"`
	Message        string `json:"message"`
	DocumentsFound *int   `json:"documents_found,omitempty"`
}

// TriggerResponse is returned by POST /ingest.
type TriggerResponse struct {
	Status         string `json:"status"`
	DocumentsFound int    `json:"documents_found"`
}

// DocumentInfo describes one PDF in the source directory.
type DocumentInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

// ListDocumentsResponse is returned by GET /documents.
type ListDocumentsResponse struct {
	Count     int            `json:"count"`
	Documents []DocumentInfo `json:"documents"`
}

// IngestionStatusResponse is the public snapshot of the ingestion state.
// DocumentsProcessed and ChunksAdded are null until the first run finishes.
type IngestionStatusResponse struct {
	IsProcessing       bool     `json:"is_processing"`
	Status             string   `json:"status"`
	LastCompleted      *string  `json:"last_completed"`
	DocumentsProcessed *int     `json:"documents_processed"`
	ChunksAdded        *int     `json:"chunks_added"`
	Errors             []string `json:"errors"`
}

// ClearResponse is the structured body for DELETE /documents. It is returned
// with 200 on full success, 207 when one step failed, and 500 when both did.
type ClearResponse struct {
	Message            string   `json:"message"`
	FilesDeletedCount  int      `json:"files_deleted_count"`
	CollectionDeleted  bool     `json:"collection_deleted"`
	SourceFilesCleared bool     `json:"source_files_cleared"`
	Details            []string `json:"details"`
}

// HealthResponse is returned by every service's GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
