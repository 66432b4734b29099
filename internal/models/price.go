// Package models provides the data structures for commodity futures
// time series: daily price bars and weekly regulatory positioning
// reports. Records are validated at construction so that stores and
// the analytics engine can rely on well-formed input.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the calendar-day format used across stores, fetchers
// and JSON output. Dates carry no time component.
const DateFormat = "2006-01-02"

// PriceRecord represents one daily OHLCV bar for a symbol.
// Date is a calendar day at UTC midnight and is the unique sort key
// within a store.
type PriceRecord struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// FieldError reports a validation failure for a specific record field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface for FieldError.
func (e *FieldError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// Validate checks that the record carries a usable date and that the
// numeric fields are internally consistent. Prices are not required to
// be positive (some futures contracts have traded below zero) but
// volume must be non-negative and the high/low bounds must hold.
func (r *PriceRecord) Validate() error {
	if r.Date.IsZero() {
		return &FieldError{Field: "date", Message: "date cannot be zero"}
	}
	if r.Volume.IsNegative() {
		return &FieldError{Field: "volume", Message: "volume must be greater than or equal to 0"}
	}
	if r.High.LessThan(r.Low) {
		return &FieldError{
			Field:   "high",
			Message: fmt.Sprintf("high (%s) must be greater than or equal to low (%s)", r.High, r.Low),
		}
	}
	return nil
}

// CloseFloat returns the close price as a float64 for curve math.
func (r *PriceRecord) CloseFloat() float64 {
	f, _ := r.Close.Float64()
	return f
}

// Day truncates the record date to a UTC calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewPriceRecord builds and validates a daily bar. The date is
// normalized to UTC midnight.
func NewPriceRecord(date time.Time, open, high, low, close, volume decimal.Decimal) (*PriceRecord, error) {
	r := &PriceRecord{
		Date:   Day(date),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create price record: %w", err)
	}
	return r, nil
}

// String implements fmt.Stringer for log output.
func (r *PriceRecord) String() string {
	return fmt.Sprintf("PriceRecord{Date: %s, O: %s, H: %s, L: %s, C: %s, V: %s}",
		r.Date.Format(DateFormat), r.Open, r.High, r.Low, r.Close, r.Volume)
}
