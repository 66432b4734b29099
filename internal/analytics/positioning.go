package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/futurescope/futuresdata/internal/errors"
	"github.com/futurescope/futuresdata/internal/models"
)

// PositioningSeries holds the trailing-window positioning metrics for
// one market. All slices are aligned by index; change fields are nil
// where no prior report exists anywhere in the store.
type PositioningSeries struct {
	Dates              []time.Time
	OpenInterest       []float64
	NonCommLong        []float64
	NonCommShort       []float64
	NonCommNet         []float64
	CommLong           []float64
	CommShort          []float64
	CommNet            []float64
	NonCommNetChange   []*float64
	CommNetChange      []*float64
	OpenInterestChange []*float64
}

// PositioningMetrics filters the report series to the trailing window
// of the given number of years and derives week-over-week first
// differences of the net positions and open interest.
//
// Differences are computed over the full series before the window
// filter, so the first retained row carries a valid delta whenever
// older history exists; only the very first report in the whole store
// has nil changes. An empty filtered window is a no-data error,
// distinct from the zero-new-rows fetch success.
func PositioningMetrics(records []models.PositioningRecord, years int, now time.Time) (*PositioningSeries, error) {
	if len(records) == 0 {
		return nil, apperrors.New(apperrors.KindNoData,
			"No data available for the last %d year(s)", years)
	}

	sorted := make([]models.PositioningRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	nonCommNetChange := firstDifferences(sorted, func(r models.PositioningRecord) float64 {
		f, _ := r.NonCommNet.Float64()
		return f
	})
	commNetChange := firstDifferences(sorted, func(r models.PositioningRecord) float64 {
		f, _ := r.CommNet.Float64()
		return f
	})
	oiChange := firstDifferences(sorted, func(r models.PositioningRecord) float64 {
		f, _ := r.OpenInterest.Float64()
		return f
	})

	cutoff := now.AddDate(0, 0, -365*years)

	series := &PositioningSeries{}
	for i, r := range sorted {
		if r.Date.Before(cutoff) {
			continue
		}
		series.Dates = append(series.Dates, r.Date)
		series.OpenInterest = append(series.OpenInterest, toFloat(r.OpenInterest))
		series.NonCommLong = append(series.NonCommLong, toFloat(r.NonCommLong))
		series.NonCommShort = append(series.NonCommShort, toFloat(r.NonCommShort))
		series.NonCommNet = append(series.NonCommNet, toFloat(r.NonCommNet))
		series.CommLong = append(series.CommLong, toFloat(r.CommLong))
		series.CommShort = append(series.CommShort, toFloat(r.CommShort))
		series.CommNet = append(series.CommNet, toFloat(r.CommNet))
		series.NonCommNetChange = append(series.NonCommNetChange, nonCommNetChange[i])
		series.CommNetChange = append(series.CommNetChange, commNetChange[i])
		series.OpenInterestChange = append(series.OpenInterestChange, oiChange[i])
	}

	if len(series.Dates) == 0 {
		return nil, apperrors.New(apperrors.KindNoData,
			"No data available for the last %d year(s)", years)
	}
	return series, nil
}

// firstDifferences returns v[i]-v[i-1] per row, nil for the first row.
func firstDifferences(records []models.PositioningRecord, value func(models.PositioningRecord) float64) []*float64 {
	out := make([]*float64, len(records))
	for i := 1; i < len(records); i++ {
		d := value(records[i]) - value(records[i-1])
		v := d
		out[i] = &v
	}
	return out
}

// toFloat converts a decimal store field for the JSON-facing series.
func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
