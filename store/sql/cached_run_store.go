package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-quantum-client/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const runRecordCacheKeyPrefix = "go-quantum-client::run_record::v1"

// CachedRunStore layers a read-through cache over a base run store.
// Writes invalidate so pollers observing a run never read a stale
// terminal status.
type CachedRunStore struct {
	base  core.RunStore
	cache repositorycache.CacheService
}

func NewCachedRunStore(base core.RunStore, cacheService repositorycache.CacheService) (*CachedRunStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base run store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: run record cache service is required")
	}
	return &CachedRunStore{base: base, cache: cacheService}, nil
}

// RunRecordCacheKey returns the deterministic cache key for a run:
// go-quantum-client::run_record::v1::<run_id> with the id URL-path
// escaped.
func RunRecordCacheKey(runID string) (string, error) {
	trimmed := strings.TrimSpace(runID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: run id is required")
	}
	return runRecordCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (s *CachedRunStore) Create(ctx context.Context, in core.CreateRunRecordInput) (core.RunRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.RunRecord{}, fmt.Errorf("sqlstore: cached run store is not configured")
	}
	created, err := s.base.Create(ctx, in)
	if err != nil {
		return core.RunRecord{}, err
	}
	cacheKey, err := RunRecordCacheKey(created.RunID)
	if err != nil {
		return core.RunRecord{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.RunRecord{}, err
	}
	return cloneRunRecord(created), nil
}

func (s *CachedRunStore) UpdateStatus(ctx context.Context, runID string, status string, detail string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached run store is not configured")
	}
	cacheKey, err := RunRecordCacheKey(runID)
	if err != nil {
		return err
	}
	if err := s.base.UpdateStatus(ctx, runID, status, detail); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedRunStore) GetByRunID(ctx context.Context, runID string) (core.RunRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.RunRecord{}, fmt.Errorf("sqlstore: cached run store is not configured")
	}
	cacheKey, err := RunRecordCacheKey(runID)
	if err != nil {
		return core.RunRecord{}, err
	}
	record, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.RunRecord, error) {
		fetched, fetchErr := s.base.GetByRunID(ctx, runID)
		if fetchErr != nil {
			return core.RunRecord{}, fetchErr
		}
		return cloneRunRecord(fetched), nil
	})
	if err != nil {
		return core.RunRecord{}, err
	}
	return cloneRunRecord(record), nil
}

// ListRecent always reads through to the base store. The listing is
// ordered by recency and changes on every submit, so caching it would
// only serve stale pages.
func (s *CachedRunStore) ListRecent(ctx context.Context, limit int) ([]core.RunRecord, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached run store is not configured")
	}
	return s.base.ListRecent(ctx, limit)
}

func cloneRunRecord(record core.RunRecord) core.RunRecord {
	cloned := record
	cloned.Metadata = copyAnyMap(record.Metadata)
	return cloned
}
