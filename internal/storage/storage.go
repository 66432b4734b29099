// Package storage provides append-only time-series stores for daily
// price bars and weekly positioning reports. A store holds the rows
// for one (symbol, dataset) pair, sorted by date with no duplicates.
// The watermark - the maximum stored date - is the single dedup
// boundary: appends silently drop rows at or below it and never
// rewrite existing data. The invariant is enforced on both read and
// write, so a corrupted or hand-edited file is rejected instead of
// silently extended.
package storage

import (
	"context"
	"time"

	"github.com/futurescope/futuresdata/internal/models"
)

// PriceStorage is the contract for daily price history persistence.
type PriceStorage interface {
	// Exists reports whether the store has been created and holds at
	// least one row.
	Exists() bool

	// LastDate returns the watermark, or nil for a missing/empty store.
	LastDate(ctx context.Context) (*time.Time, error)

	// ReadAll returns every stored row in ascending date order.
	ReadAll(ctx context.Context) ([]models.PriceRecord, error)

	// Append merges fetched rows into the store. Rows dated at or
	// before the watermark are dropped; the remainder must be strictly
	// increasing. Returns the number of rows actually written. An
	// all-filtered batch returns 0 without touching the store.
	Append(ctx context.Context, records []models.PriceRecord) (int, error)
}

// PositioningStorage is the contract for weekly positioning report
// persistence. Semantics match PriceStorage.
type PositioningStorage interface {
	Exists() bool
	LastDate(ctx context.Context) (*time.Time, error)
	ReadAll(ctx context.Context) ([]models.PositioningRecord, error)
	Append(ctx context.Context, records []models.PositioningRecord) (int, error)
}
