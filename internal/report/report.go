// Package report serializes engine output into the JSON envelopes
// consumed by the visualization layer. Every payload carries a
// success flag; handled failures become {success:false, message} and
// are printed to stdout exactly like successes, so callers branch on
// the envelope rather than the process exit code.
//
// Numeric fields that can be undefined for a given row or day are
// pointers and serialize as explicit JSON null, never as a sentinel
// number.
package report

import (
	"encoding/json"
	"io"

	"github.com/futurescope/futuresdata/internal/analytics"
	apperrors "github.com/futurescope/futuresdata/internal/errors"
	"github.com/futurescope/futuresdata/internal/models"
)

// Fetch is the envelope for fetch commands.
type Fetch struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message,omitempty"`
	RowsAdded int     `json:"rows_added"`
	LastDate  *string `json:"last_date,omitempty"`
}

// Failure is the generic handled-error envelope.
type Failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Positioning is the envelope for positioning metrics. All arrays are
// index-aligned with Dates.
type Positioning struct {
	Success          bool       `json:"success"`
	Dates            []string   `json:"dates"`
	OpenInterest     []float64  `json:"open_interest"`
	NonCommNet       []float64  `json:"noncomm_net"`
	CommNet          []float64  `json:"comm_net"`
	NonCommLong      []float64  `json:"noncomm_long"`
	NonCommShort     []float64  `json:"noncomm_short"`
	CommLong         []float64  `json:"comm_long"`
	CommShort        []float64  `json:"comm_short"`
	NonCommNetChange []*float64 `json:"noncomm_net_change"`
	CommNetChange    []*float64 `json:"comm_net_change"`
	OIChange         []*float64 `json:"oi_change"`
}

// Seasonality is the envelope for seasonality curves. Omitted lookback
// windows serialize as empty arrays, never null; the actual series
// uses null for days the target year has not reached.
type Seasonality struct {
	Success    bool       `json:"success"`
	Avg2yr     []float64  `json:"avg_2yr"`
	Avg5yr     []float64  `json:"avg_5yr"`
	Avg10yr    []float64  `json:"avg_10yr"`
	Actual     []*float64 `json:"actual"`
	TargetYear int        `json:"target_year"`
}

// NewFailure builds a handled-error envelope.
func NewFailure(message string) *Failure {
	return &Failure{Success: false, Message: message}
}

// FailureFromError builds a handled-error envelope from a domain
// error chain, using the classified message when present.
func FailureFromError(err error) *Failure {
	return NewFailure(apperrors.Message(err))
}

// NewFetch builds a successful fetch envelope.
func NewFetch(message string, rowsAdded int, lastDate *string) *Fetch {
	return &Fetch{Success: true, Message: message, RowsAdded: rowsAdded, LastDate: lastDate}
}

// NewPositioning wraps a computed positioning series.
func NewPositioning(series *analytics.PositioningSeries) *Positioning {
	dates := make([]string, len(series.Dates))
	for i, d := range series.Dates {
		dates[i] = d.Format(models.DateFormat)
	}
	return &Positioning{
		Success:          true,
		Dates:            dates,
		OpenInterest:     series.OpenInterest,
		NonCommNet:       series.NonCommNet,
		CommNet:          series.CommNet,
		NonCommLong:      series.NonCommLong,
		NonCommShort:     series.NonCommShort,
		CommLong:         series.CommLong,
		CommShort:        series.CommShort,
		NonCommNetChange: series.NonCommNetChange,
		CommNetChange:    series.CommNetChange,
		OIChange:         series.OpenInterestChange,
	}
}

// NewSeasonality wraps a computed seasonality result.
func NewSeasonality(result *analytics.SeasonalResult) *Seasonality {
	return &Seasonality{
		Success:    true,
		Avg2yr:     emptyIfNil(result.Avg2yr),
		Avg5yr:     emptyIfNil(result.Avg5yr),
		Avg10yr:    emptyIfNil(result.Avg10yr),
		Actual:     emptyPtrsIfNil(result.Actual),
		TargetYear: result.TargetYear,
	}
}

// Write encodes an envelope as a single JSON line.
func Write(w io.Writer, envelope any) error {
	return json.NewEncoder(w).Encode(envelope)
}

func emptyIfNil(vals []float64) []float64 {
	if vals == nil {
		return []float64{}
	}
	return vals
}

func emptyPtrsIfNil(vals []*float64) []*float64 {
	if vals == nil {
		return []*float64{}
	}
	return vals
}
