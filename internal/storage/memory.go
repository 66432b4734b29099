package storage

import (
	"context"
	"sync"
	"time"

	"github.com/futurescope/futuresdata/internal/models"
)

// MemoryPriceStore is an in-memory PriceStorage implementation with
// the same watermark semantics as the CSV store. Used by tests and as
// a throwaway backend for dry runs.
type MemoryPriceStore struct {
	mu      sync.RWMutex
	records []models.PriceRecord
}

// NewMemoryPriceStore creates an empty in-memory price store.
func NewMemoryPriceStore() *MemoryPriceStore {
	return &MemoryPriceStore{}
}

// Exists reports whether the store holds at least one row.
func (s *MemoryPriceStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records) > 0
}

// LastDate returns the watermark, or nil for an empty store.
func (s *MemoryPriceStore) LastDate(ctx context.Context) (*time.Time, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return nil, nil
	}
	last := s.records[len(s.records)-1].Date
	return &last, nil
}

// ReadAll returns a copy of the stored rows in ascending date order.
func (s *MemoryPriceStore) ReadAll(ctx context.Context) ([]models.PriceRecord, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PriceRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Append merges rows with the same filtering as the CSV store.
func (s *MemoryPriceStore) Append(ctx context.Context, records []models.PriceRecord) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, NewStorageError("append", datasetPrices, "", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var watermark *time.Time
	if len(s.records) > 0 {
		last := s.records[len(s.records)-1].Date
		watermark = &last
	}

	fresh := filterAfter(records, watermark, func(r models.PriceRecord) time.Time { return r.Date })
	s.records = append(s.records, fresh...)
	return len(fresh), nil
}

// MemoryPositioningStore is the in-memory PositioningStorage
// counterpart of MemoryPriceStore.
type MemoryPositioningStore struct {
	mu      sync.RWMutex
	records []models.PositioningRecord
}

// NewMemoryPositioningStore creates an empty in-memory positioning
// store.
func NewMemoryPositioningStore() *MemoryPositioningStore {
	return &MemoryPositioningStore{}
}

// Exists reports whether the store holds at least one row.
func (s *MemoryPositioningStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records) > 0
}

// LastDate returns the watermark, or nil for an empty store.
func (s *MemoryPositioningStore) LastDate(ctx context.Context) (*time.Time, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return nil, nil
	}
	last := s.records[len(s.records)-1].Date
	return &last, nil
}

// ReadAll returns a copy of the stored rows in ascending date order.
func (s *MemoryPositioningStore) ReadAll(ctx context.Context) ([]models.PositioningRecord, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PositioningRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Append merges rows with the same filtering as the CSV store.
func (s *MemoryPositioningStore) Append(ctx context.Context, records []models.PositioningRecord) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, NewStorageError("append", datasetPositioning, "", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var watermark *time.Time
	if len(s.records) > 0 {
		last := s.records[len(s.records)-1].Date
		watermark = &last
	}

	fresh := filterAfter(records, watermark, func(r models.PositioningRecord) time.Time { return r.Date })
	s.records = append(s.records, fresh...)
	return len(fresh), nil
}
