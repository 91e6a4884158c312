package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-quantum-client/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RunStore persists the run ledger in SQL through go-repository-bun.
type RunStore struct {
	db   *bun.DB
	repo repository.Repository[*runRecord]
}

func NewRunStore(db *bun.DB) (*RunStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*runRecord](db, runRecordHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid run repository wiring: %w", err)
		}
	}
	return &RunStore{db: db, repo: repo}, nil
}

func (s *RunStore) Create(ctx context.Context, in core.CreateRunRecordInput) (core.RunRecord, error) {
	if s == nil || s.repo == nil {
		return core.RunRecord{}, fmt.Errorf("sqlstore: run store is not configured")
	}
	runID := strings.TrimSpace(in.RunID)
	if runID == "" {
		return core.RunRecord{}, fmt.Errorf("sqlstore: run id is required")
	}

	now := time.Now().UTC()
	record := &runRecord{
		ID:               uuid.NewString(),
		RunID:            runID,
		Status:           strings.TrimSpace(in.Status),
		Shots:            in.Shots,
		CircuitCount:     in.CircuitCount,
		CalibrationSetID: strings.TrimSpace(in.CalibrationSetID),
		Metadata:         copyAnyMap(in.Metadata),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.RunRecord{}, err
	}
	return created.toDomain(), nil
}

func (s *RunStore) UpdateStatus(ctx context.Context, runID string, status string, detail string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: run store is not configured")
	}
	current, err := s.findByRunID(ctx, runID)
	if err != nil {
		return err
	}
	current.Status = strings.TrimSpace(status)
	current.Error = strings.TrimSpace(detail)
	current.UpdatedAt = time.Now().UTC()

	_, err = s.repo.Update(ctx, current, repository.UpdateByID(current.ID))
	return err
}

func (s *RunStore) GetByRunID(ctx context.Context, runID string) (core.RunRecord, error) {
	if s == nil || s.repo == nil {
		return core.RunRecord{}, fmt.Errorf("sqlstore: run store is not configured")
	}
	record, err := s.findByRunID(ctx, runID)
	if err != nil {
		return core.RunRecord{}, err
	}
	return record.toDomain(), nil
}

func (s *RunStore) ListRecent(ctx context.Context, limit int) ([]core.RunRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: run store is not configured")
	}
	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
	}
	if limit > 0 {
		selectors = append(selectors, repository.SelectPaginate(limit, 0))
	}
	records, _, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return nil, err
	}
	out := make([]core.RunRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *RunStore) findByRunID(ctx context.Context, runID string) (*runRecord, error) {
	trimmed := strings.TrimSpace(runID)
	if trimmed == "" {
		return nil, fmt.Errorf("sqlstore: run id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("run_id", "=", trimmed),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sqlstore: run record %s not found", trimmed)
	}
	return records[0], nil
}
