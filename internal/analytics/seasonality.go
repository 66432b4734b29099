// Package analytics implements the normalization and metrics engine:
// calendar-aligned seasonality curves over daily price history and
// trailing-window deltas over weekly positioning reports. All
// functions are pure; input slices come from a store's ReadAll and are
// never mutated.
package analytics

import (
	"sort"

	apperrors "github.com/futurescope/futuresdata/internal/errors"
	"github.com/futurescope/futuresdata/internal/models"
)

// daysPerYear fixes the non-leap day-of-year convention: curves are
// indexed 1..365 and a leap year's day 366 is dropped.
const daysPerYear = 365

// smoothingRadius is the half-width of the centered moving average
// applied to historical curves (7-day window).
const smoothingRadius = 3

// lookbackYears are the supported multi-year averaging windows.
var lookbackYears = []int{2, 5, 10}

// SeasonalResult holds the seasonality curves for one target year.
//
// The averaged curves are dense 365-cell arrays (percentage change
// from each year's first trading day, averaged, interpolated and
// smoothed); a curve is empty when the store's history is too short
// for its lookback. Actual is the target year's own rebased series
// with nil cells wherever the year has no observation yet - values
// are never fabricated past the last known trading day.
type SeasonalResult struct {
	TargetYear int
	Avg2yr     []float64
	Avg5yr     []float64
	Avg10yr    []float64
	Actual     []*float64
}

// Seasonality computes the seasonality curves for targetYear from a
// full price history. Records dated before January 1 of targetYear
// form the historical reference; records within targetYear form the
// actual series. Returns a no-data error when no historical records
// exist.
func Seasonality(records []models.PriceRecord, targetYear int) (*SeasonalResult, error) {
	sorted := make([]models.PriceRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var historical, target []models.PriceRecord
	for _, r := range sorted {
		switch {
		case r.Date.Year() < targetYear:
			historical = append(historical, r)
		case r.Date.Year() == targetYear:
			target = append(target, r)
		}
	}

	if len(historical) == 0 {
		return nil, apperrors.New(apperrors.KindNoData,
			"No historical data available before %d", targetYear)
	}

	latestYear := historical[len(historical)-1].Date.Year()

	result := &SeasonalResult{
		TargetYear: targetYear,
		Avg2yr:     []float64{},
		Avg5yr:     []float64{},
		Avg10yr:    []float64{},
		Actual:     []*float64{},
	}

	curves := map[int]*[]float64{
		2:  &result.Avg2yr,
		5:  &result.Avg5yr,
		10: &result.Avg10yr,
	}
	for _, n := range lookbackYears {
		// A window whose newest historical year is further back than
		// the full lookback would be computed from insufficient data;
		// it is omitted instead.
		if latestYear < targetYear-n {
			continue
		}
		*curves[n] = averageCurve(historical, latestYear, n)
	}

	if len(target) > 0 {
		result.Actual = actualCurve(target)
	}

	return result, nil
}

// dayPct is one rebased observation: percentage change from the
// year's first close, keyed by day-of-year.
type dayPct struct {
	day int
	pct float64
}

// rebaseYear converts one year's bars into percentage change relative
// to the year's first observed close. The first trading day is always
// exactly 0. Day 366 of a leap year is dropped.
func rebaseYear(records []models.PriceRecord) []dayPct {
	if len(records) == 0 {
		return nil
	}
	first := records[0].CloseFloat()
	if first == 0 {
		// A zero first close makes rebasing undefined; the year
		// contributes nothing.
		return nil
	}

	out := make([]dayPct, 0, len(records))
	for _, r := range records {
		day := r.Date.YearDay()
		if day > daysPerYear {
			continue
		}
		out = append(out, dayPct{day: day, pct: (r.CloseFloat()/first - 1) * 100})
	}
	return out
}

// averageCurve builds the smoothed n-year average curve: rebase each
// selected year, pool the observations per day-of-year, average,
// densify and smooth.
func averageCurve(historical []models.PriceRecord, latestYear, n int) []float64 {
	startYear := latestYear - n + 1

	byYear := make(map[int][]models.PriceRecord)
	for _, r := range historical {
		year := r.Date.Year()
		if year >= startYear {
			byYear[year] = append(byYear[year], r)
		}
	}

	var sums [daysPerYear]float64
	var counts [daysPerYear]int
	for _, yearRecords := range byYear {
		for _, obs := range rebaseYear(yearRecords) {
			sums[obs.day-1] += obs.pct
			counts[obs.day-1]++
		}
	}

	// Years with no trading on a given day-of-year contribute nothing
	// to that day: the mean runs over however many years have data.
	var means [daysPerYear]float64
	var present [daysPerYear]bool
	for i := range sums {
		if counts[i] > 0 {
			means[i] = sums[i] / float64(counts[i])
			present[i] = true
		}
	}

	dense := densify(means, present)
	return smooth(dense, smoothingRadius)
}

// densify turns sparse per-day means into a full 365-cell array.
// Interior gaps are linearly interpolated between the nearest
// populated neighbours. Edges with no populated point before or after
// are filled with 0 rather than left undefined - a deliberate
// simplification for the reference curves that the target-year series
// intentionally does not share (see actualCurve).
func densify(vals [daysPerYear]float64, present [daysPerYear]bool) []float64 {
	out := make([]float64, daysPerYear)

	first, last := -1, -1
	for i := 0; i < daysPerYear; i++ {
		if present[i] {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return out
	}

	prev := first
	for i := 0; i < daysPerYear; i++ {
		switch {
		case present[i]:
			out[i] = vals[i]
			prev = i
		case i < first || i > last:
			out[i] = 0
		default:
			next := i + 1
			for !present[next] {
				next++
			}
			frac := float64(i-prev) / float64(next-prev)
			out[i] = vals[prev] + (vals[next]-vals[prev])*frac
		}
	}
	return out
}

// smooth applies a centered moving average of half-width radius. The
// window shrinks at the array boundaries instead of padding, so the
// curve's start and end values stay anchored to real data.
func smooth(vals []float64, radius int) []float64 {
	out := make([]float64, len(vals))
	for i := range vals {
		lo := i - radius
		if lo < 0 {
			lo = 0
		}
		hi := i + radius
		if hi > len(vals)-1 {
			hi = len(vals) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += vals[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// actualCurve builds the target year's own rebased series. Gaps are
// interpolated only between two existing observations; cells before
// the first and after the last real trading day stay nil so that an
// ongoing year never shows fabricated future values.
func actualCurve(target []models.PriceRecord) []*float64 {
	out := make([]*float64, daysPerYear)

	first := target[0].CloseFloat()
	if first == 0 {
		return out
	}

	for _, r := range target {
		day := r.Date.YearDay()
		if day > daysPerYear {
			continue
		}
		pct := (r.CloseFloat()/first - 1) * 100
		v := pct
		out[day-1] = &v
	}

	// Interior-only linear interpolation.
	firstIdx, lastIdx := -1, -1
	for i := 0; i < daysPerYear; i++ {
		if out[i] != nil {
			if firstIdx < 0 {
				firstIdx = i
			}
			lastIdx = i
		}
	}
	if firstIdx < 0 {
		return out
	}

	prev := firstIdx
	for i := firstIdx + 1; i < lastIdx; i++ {
		if out[i] != nil {
			prev = i
			continue
		}
		next := i + 1
		for out[next] == nil {
			next++
		}
		frac := float64(i-prev) / float64(next-prev)
		v := *out[prev] + (*out[next]-*out[prev])*frac
		out[i] = &v
	}
	return out
}
