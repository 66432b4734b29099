package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/futurescope/futuresdata/internal/models"
)

const (
	datasetPrices      = "prices"
	datasetPositioning = "positioning"
)

var (
	priceHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}
	cotHeader   = []string{"Date", "Open_Interest", "NonComm_Long", "NonComm_Short",
		"NonComm_Net", "Comm_Long", "Comm_Short", "Comm_Net"}
)

// CSVPriceStore persists daily price bars as a human-readable CSV
// file with a header line, one row per calendar day.
type CSVPriceStore struct {
	path   string
	logger *slog.Logger
}

// NewCSVPriceStore creates a price store backed by the given file
// path. The file is created on first append.
func NewCSVPriceStore(path string, logger *slog.Logger) *CSVPriceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVPriceStore{path: path, logger: logger}
}

// Exists reports whether the store file exists and is non-empty.
func (s *CSVPriceStore) Exists() bool {
	return fileHasData(s.path)
}

// LastDate returns the watermark, or nil for a missing/empty store.
func (s *CSVPriceStore) LastDate(ctx context.Context) (*time.Time, error) {
	if !s.Exists() {
		return nil, nil
	}
	records, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	last := records[len(records)-1].Date
	return &last, nil
}

// ReadAll loads and validates the full store. The header must match
// the expected columns and the date column must be strictly
// increasing; anything else is reported as a storage error rather
// than silently accepted.
func (s *CSVPriceStore) ReadAll(ctx context.Context) ([]models.PriceRecord, error) {
	rows, err := readCSVFile(ctx, s.path, priceHeader)
	if err != nil {
		return nil, NewStorageError("read", datasetPrices, s.path, err)
	}

	records := make([]models.PriceRecord, 0, len(rows))
	var prev time.Time
	for i, row := range rows {
		date, err := time.Parse(models.DateFormat, row[0])
		if err != nil {
			return nil, NewStorageError("read", datasetPrices, s.path,
				fmt.Errorf("malformed date %q on line %d: %w", row[0], i+2, err))
		}
		if !prev.IsZero() && !date.After(prev) {
			return nil, NewStorageError("read", datasetPrices, s.path,
				fmt.Errorf("date column not strictly increasing at line %d (%s after %s)",
					i+2, row[0], prev.Format(models.DateFormat)))
		}
		prev = date

		fields, err := parseDecimals(row[1:])
		if err != nil {
			return nil, NewStorageError("read", datasetPrices, s.path,
				fmt.Errorf("line %d: %w", i+2, err))
		}
		records = append(records, models.PriceRecord{
			Date:   models.Day(date),
			Open:   fields[0],
			High:   fields[1],
			Low:    fields[2],
			Close:  fields[3],
			Volume: fields[4],
		})
	}
	return records, nil
}

// Append merges fetched bars into the store: rows at or below the
// watermark are dropped, the remainder is sorted and written after
// the existing data. The header is written only when the file is new.
func (s *CSVPriceStore) Append(ctx context.Context, records []models.PriceRecord) (int, error) {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, NewStorageError("append", datasetPrices, s.path,
				fmt.Errorf("record %d: %w", i, err))
		}
	}

	watermark, err := s.LastDate(ctx)
	if err != nil {
		return 0, err
	}

	fresh := filterAfter(records, watermark, func(r models.PriceRecord) time.Time { return r.Date })
	if len(fresh) == 0 {
		s.logger.Debug("no rows beyond watermark, store untouched", "path", s.path)
		return 0, nil
	}

	rows := make([][]string, 0, len(fresh))
	for _, r := range fresh {
		rows = append(rows, []string{
			r.Date.Format(models.DateFormat),
			r.Open.String(), r.High.String(), r.Low.String(), r.Close.String(),
			r.Volume.String(),
		})
	}

	if err := appendCSVFile(ctx, s.path, priceHeader, rows); err != nil {
		return 0, NewStorageError("append", datasetPrices, s.path, err)
	}

	s.logger.Info("appended price rows",
		"path", s.path,
		"rows", len(fresh),
		"last_date", fresh[len(fresh)-1].Date.Format(models.DateFormat))
	return len(fresh), nil
}

// CSVPositioningStore persists weekly positioning reports as a
// human-readable CSV file with derived net columns included.
type CSVPositioningStore struct {
	path   string
	logger *slog.Logger
}

// NewCSVPositioningStore creates a positioning store backed by the
// given file path.
func NewCSVPositioningStore(path string, logger *slog.Logger) *CSVPositioningStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVPositioningStore{path: path, logger: logger}
}

// Exists reports whether the store file exists and is non-empty.
func (s *CSVPositioningStore) Exists() bool {
	return fileHasData(s.path)
}

// LastDate returns the watermark, or nil for a missing/empty store.
func (s *CSVPositioningStore) LastDate(ctx context.Context) (*time.Time, error) {
	if !s.Exists() {
		return nil, nil
	}
	records, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	last := records[len(records)-1].Date
	return &last, nil
}

// ReadAll loads and validates the full store, including the
// net == long - short invariant on every row.
func (s *CSVPositioningStore) ReadAll(ctx context.Context) ([]models.PositioningRecord, error) {
	rows, err := readCSVFile(ctx, s.path, cotHeader)
	if err != nil {
		return nil, NewStorageError("read", datasetPositioning, s.path, err)
	}

	records := make([]models.PositioningRecord, 0, len(rows))
	var prev time.Time
	for i, row := range rows {
		date, err := time.Parse(models.DateFormat, row[0])
		if err != nil {
			return nil, NewStorageError("read", datasetPositioning, s.path,
				fmt.Errorf("malformed date %q on line %d: %w", row[0], i+2, err))
		}
		if !prev.IsZero() && !date.After(prev) {
			return nil, NewStorageError("read", datasetPositioning, s.path,
				fmt.Errorf("date column not strictly increasing at line %d (%s after %s)",
					i+2, row[0], prev.Format(models.DateFormat)))
		}
		prev = date

		fields, err := parseDecimals(row[1:])
		if err != nil {
			return nil, NewStorageError("read", datasetPositioning, s.path,
				fmt.Errorf("line %d: %w", i+2, err))
		}
		record := models.PositioningRecord{
			Date:         models.Day(date),
			OpenInterest: fields[0],
			NonCommLong:  fields[1],
			NonCommShort: fields[2],
			NonCommNet:   fields[3],
			CommLong:     fields[4],
			CommShort:    fields[5],
			CommNet:      fields[6],
		}
		if err := record.Validate(); err != nil {
			return nil, NewStorageError("read", datasetPositioning, s.path,
				fmt.Errorf("line %d: %w", i+2, err))
		}
		records = append(records, record)
	}
	return records, nil
}

// Append merges fetched report rows into the store with the same
// watermark semantics as the price store. Net fields must already be
// derived; Validate rejects rows where they do not match.
func (s *CSVPositioningStore) Append(ctx context.Context, records []models.PositioningRecord) (int, error) {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, NewStorageError("append", datasetPositioning, s.path,
				fmt.Errorf("record %d: %w", i, err))
		}
	}

	watermark, err := s.LastDate(ctx)
	if err != nil {
		return 0, err
	}

	fresh := filterAfter(records, watermark, func(r models.PositioningRecord) time.Time { return r.Date })
	if len(fresh) == 0 {
		s.logger.Debug("no rows beyond watermark, store untouched", "path", s.path)
		return 0, nil
	}

	rows := make([][]string, 0, len(fresh))
	for _, r := range fresh {
		rows = append(rows, []string{
			r.Date.Format(models.DateFormat),
			r.OpenInterest.String(),
			r.NonCommLong.String(), r.NonCommShort.String(), r.NonCommNet.String(),
			r.CommLong.String(), r.CommShort.String(), r.CommNet.String(),
		})
	}

	if err := appendCSVFile(ctx, s.path, cotHeader, rows); err != nil {
		return 0, NewStorageError("append", datasetPositioning, s.path, err)
	}

	s.logger.Info("appended positioning rows",
		"path", s.path,
		"rows", len(fresh),
		"last_date", fresh[len(fresh)-1].Date.Format(models.DateFormat))
	return len(fresh), nil
}

// Shared CSV helpers

// fileHasData reports whether a path exists with a non-zero size.
func fileHasData(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// readCSVFile reads all data rows from a store file after checking
// the header. Returns the rows without the header line.
func readCSVFile(ctx context.Context, path string, header []string) ([][]string, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(header)

	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}
	if len(all) == 0 {
		return nil, errors.New("store file is empty")
	}
	for i, name := range header {
		if all[0][i] != name {
			return nil, fmt.Errorf("unexpected header column %d: got %q, want %q", i, all[0][i], name)
		}
	}
	return all[1:], nil
}

// appendCSVFile appends rows to a store file, creating it with the
// header when missing. Existing rows are never rewritten.
func appendCSVFile(ctx context.Context, path string, header []string, rows [][]string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	writeHeader := !fileHasData(path)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// filterAfter drops rows at or below the watermark and returns the
// remainder sorted by ascending date. Duplicate dates within the
// batch collapse to the first occurrence.
func filterAfter[T any](records []T, watermark *time.Time, dateOf func(T) time.Time) []T {
	fresh := make([]T, 0, len(records))
	for _, r := range records {
		if watermark != nil && !dateOf(r).After(*watermark) {
			continue
		}
		fresh = append(fresh, r)
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return dateOf(fresh[i]).Before(dateOf(fresh[j]))
	})

	deduped := fresh[:0]
	var prev time.Time
	for _, r := range fresh {
		d := dateOf(r)
		if !prev.IsZero() && d.Equal(prev) {
			continue
		}
		deduped = append(deduped, r)
		prev = d
	}
	return deduped
}

// parseDecimals parses a slice of CSV fields into decimals.
func parseDecimals(fields []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(fields))
	for i, field := range fields {
		d, err := decimal.NewFromString(field)
		if err != nil {
			return nil, fmt.Errorf("malformed numeric field %q: %w", field, err)
		}
		out[i] = d
	}
	return out, nil
}
