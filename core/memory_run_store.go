package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRunStore keeps the run ledger in process memory. It backs tests
// and short-lived tooling; durable deployments use the SQL-backed store.
type MemoryRunStore struct {
	mu      sync.RWMutex
	records map[string]RunRecord
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		records: map[string]RunRecord{},
	}
}

func (s *MemoryRunStore) Create(ctx context.Context, input CreateRunRecordInput) (RunRecord, error) {
	if input.RunID == "" {
		return RunRecord{}, clientConfigurationError("run record requires a run id", nil)
	}

	now := time.Now().UTC()
	record := RunRecord{
		ID:               uuid.NewString(),
		RunID:            input.RunID,
		Status:           input.Status,
		Shots:            input.Shots,
		CircuitCount:     input.CircuitCount,
		CalibrationSetID: input.CalibrationSetID,
		Metadata:         copyAnyMap(input.Metadata),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[input.RunID]; exists {
		return RunRecord{}, runRecordConflictError(input.RunID)
	}
	s.records[input.RunID] = record
	return record, nil
}

func (s *MemoryRunStore) UpdateStatus(ctx context.Context, runID string, status string, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[runID]
	if !ok {
		return clientConfigurationError("run record not found: "+runID, nil)
	}
	record.Status = status
	record.Error = detail
	record.UpdatedAt = time.Now().UTC()
	s.records[runID] = record
	return nil
}

func (s *MemoryRunStore) GetByRunID(ctx context.Context, runID string) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[runID]
	if !ok {
		return RunRecord{}, clientConfigurationError("run record not found: "+runID, nil)
	}
	return record, nil
}

func (s *MemoryRunStore) ListRecent(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	records := make([]RunRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

var _ RunStore = (*MemoryRunStore)(nil)
