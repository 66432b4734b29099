package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PositioningRecord represents one weekly Commitment of Traders report
// row for a single market: open interest plus long/short positions for
// the non-commercial (managed money) and commercial (producer/merchant)
// trader classes. Net fields are derived, never fetched.
type PositioningRecord struct {
	Date         time.Time       `json:"date"`
	OpenInterest decimal.Decimal `json:"open_interest"`
	NonCommLong  decimal.Decimal `json:"noncomm_long"`
	NonCommShort decimal.Decimal `json:"noncomm_short"`
	NonCommNet   decimal.Decimal `json:"noncomm_net"`
	CommLong     decimal.Decimal `json:"comm_long"`
	CommShort    decimal.Decimal `json:"comm_short"`
	CommNet      decimal.Decimal `json:"comm_net"`
}

// DeriveNets recomputes the net position fields from the long and
// short legs. Called before any record reaches a store so the
// net == long - short invariant holds exactly.
func (r *PositioningRecord) DeriveNets() {
	r.NonCommNet = r.NonCommLong.Sub(r.NonCommShort)
	r.CommNet = r.CommLong.Sub(r.CommShort)
}

// Validate checks the date and the derived-net invariant.
func (r *PositioningRecord) Validate() error {
	if r.Date.IsZero() {
		return &FieldError{Field: "date", Message: "date cannot be zero"}
	}
	if r.OpenInterest.IsNegative() {
		return &FieldError{Field: "open_interest", Message: "open interest must be greater than or equal to 0"}
	}
	if !r.NonCommNet.Equal(r.NonCommLong.Sub(r.NonCommShort)) {
		return &FieldError{
			Field:   "noncomm_net",
			Message: fmt.Sprintf("noncomm_net (%s) must equal noncomm_long - noncomm_short (%s)", r.NonCommNet, r.NonCommLong.Sub(r.NonCommShort)),
		}
	}
	if !r.CommNet.Equal(r.CommLong.Sub(r.CommShort)) {
		return &FieldError{
			Field:   "comm_net",
			Message: fmt.Sprintf("comm_net (%s) must equal comm_long - comm_short (%s)", r.CommNet, r.CommLong.Sub(r.CommShort)),
		}
	}
	return nil
}

// NewPositioningRecord builds a report row from its fetched legs,
// derives the net fields and validates the result. The date is
// normalized to UTC midnight.
func NewPositioningRecord(date time.Time, openInterest, nonCommLong, nonCommShort, commLong, commShort decimal.Decimal) (*PositioningRecord, error) {
	r := &PositioningRecord{
		Date:         Day(date),
		OpenInterest: openInterest,
		NonCommLong:  nonCommLong,
		NonCommShort: nonCommShort,
		CommLong:     commLong,
		CommShort:    commShort,
	}
	r.DeriveNets()
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create positioning record: %w", err)
	}
	return r, nil
}

// String implements fmt.Stringer for log output.
func (r *PositioningRecord) String() string {
	return fmt.Sprintf("PositioningRecord{Date: %s, OI: %s, NonCommNet: %s, CommNet: %s}",
		r.Date.Format(DateFormat), r.OpenInterest, r.NonCommNet, r.CommNet)
}
