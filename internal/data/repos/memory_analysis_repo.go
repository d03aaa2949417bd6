package repos

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/equitylens/internal/contracts"
)

// MemoryAnalysisRepository keeps records in process when no database is configured
type MemoryAnalysisRepository struct {
	mu      sync.RWMutex
	records map[string]contracts.AnalysisRecord
}

// NewMemoryAnalysisRepository creates an empty repository
func NewMemoryAnalysisRepository() *MemoryAnalysisRepository {
	return &MemoryAnalysisRepository{records: make(map[string]contracts.AnalysisRecord)}
}

// Create stores a copy of rec
func (r *MemoryAnalysisRepository) Create(_ context.Context, rec *contracts.AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.records[rec.ID] = *rec
	r.mu.Unlock()
	return nil
}

// GetByID returns a copy of the stored record
func (r *MemoryAnalysisRepository) GetByID(_ context.Context, id string) (*contracts.AnalysisRecord, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// UpdateNarrative records the narrative outcome of a record
func (r *MemoryAnalysisRepository) UpdateNarrative(_ context.Context, id, status string, n *contracts.Narrative) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	rec.NarrativeStatus = &status
	rec.Narrative = n
	rec.NarrativeCreatedAt = &now
	r.records[id] = rec
	return nil
}
