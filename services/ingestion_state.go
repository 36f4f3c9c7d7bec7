package services

import (
	"errors"
	"sync"
	"time"
)

// ErrIngestionBusy is returned when an operation needs the ingestion slot but
// a run is already in flight.
var ErrIngestionBusy = errors.New("an ingestion process is already running")

// IngestionStatus is a point-in-time copy of the controller state, safe to
// serialize without holding the lock.
type IngestionStatus struct {
	IsProcessing       bool
	Status             string
	LastCompleted      *time.Time
	DocumentsProcessed *int
	ChunksAdded        *int
	Errors             []string
}

// IngestionState serializes access to the single ingestion slot. At most one
// run (or one exclusive maintenance operation, like clearing the collection)
// holds the slot at a time; everything else observes the state through
// snapshots.
type IngestionState struct {
	mu sync.Mutex

	isProcessing       bool
	status             string
	lastCompleted      *time.Time
	documentsProcessed *int
	chunksAdded        *int
	errors             []string
}

func NewIngestionState() *IngestionState {
	return &IngestionState{status: "idle"}
}

// TryStart claims the ingestion slot. It returns false without blocking when
// a run is already in progress. Claiming the slot resets the results of the
// previous run.
func (s *IngestionState) TryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isProcessing {
		return false
	}

	s.isProcessing = true
	s.status = "processing"
	s.documentsProcessed = nil
	s.chunksAdded = nil
	s.errors = nil
	return true
}

// Finish releases the slot and records the run's outcome. Callers must have
// claimed the slot with TryStart.
func (s *IngestionState) Finish(documentsProcessed, chunksAdded int, runErrors []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.isProcessing = false
	s.lastCompleted = &now
	s.documentsProcessed = &documentsProcessed
	s.chunksAdded = &chunksAdded
	s.errors = runErrors

	if len(runErrors) > 0 {
		s.status = "completed_with_errors"
	} else {
		s.status = "completed"
	}
}

// RunExclusive claims the slot for the duration of fn, for maintenance
// operations that must not overlap a run. It returns ErrIngestionBusy
// without blocking when the slot is taken. The run results from the last
// ingestion are preserved.
func (s *IngestionState) RunExclusive(fn func() error) error {
	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		return ErrIngestionBusy
	}
	s.isProcessing = true
	prevStatus := s.status
	s.status = "processing"
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.status = prevStatus
		s.mu.Unlock()
	}()

	return fn()
}

// Snapshot returns a copy of the current state.
func (s *IngestionState) Snapshot() IngestionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := IngestionStatus{
		IsProcessing: s.isProcessing,
		Status:       s.status,
	}
	if s.lastCompleted != nil {
		t := *s.lastCompleted
		snap.LastCompleted = &t
	}
	if s.documentsProcessed != nil {
		n := *s.documentsProcessed
		snap.DocumentsProcessed = &n
	}
	if s.chunksAdded != nil {
		n := *s.chunksAdded
		snap.ChunksAdded = &n
	}
	if len(s.errors) > 0 {
		snap.Errors = append([]string(nil), s.errors...)
	}
	return snap
}
