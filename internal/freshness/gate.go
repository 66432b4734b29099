// Package freshness decides whether a store needs a remote fetch and,
// if so, what range to request. Decisions are pure functions of the
// store watermark and the current time; no I/O happens here.
package freshness

import (
	"fmt"
	"time"

	"github.com/futurescope/futuresdata/internal/models"
)

// Decision is the outcome of a freshness check.
type Decision struct {
	// FetchNeeded is false when the store is already current.
	FetchNeeded bool

	// Start is the first date to request from the price provider.
	// Only set for price decisions.
	Start time.Time

	// ReportYears lists the report years to request from the
	// positioning provider, newest first. Only set for positioning
	// decisions.
	ReportYears []int

	// Reason explains the decision for logging and the "already
	// current" result message.
	Reason string
}

// ForPrices decides the fetch range for a daily price store.
//
// A missing store is backfilled from the epoch (the earliest supported
// history). An existing store is topped up from the day after its
// watermark, unless the watermark already reaches today, in which case
// no fetch is needed.
func ForPrices(lastDate *time.Time, now time.Time, epoch time.Time) Decision {
	today := models.Day(now)

	if lastDate == nil {
		return Decision{
			FetchNeeded: true,
			Start:       models.Day(epoch),
			Reason:      fmt.Sprintf("no existing data, fetching from %s", epoch.Format(models.DateFormat)),
		}
	}

	last := models.Day(*lastDate)
	if !last.Before(today) {
		return Decision{Reason: "data is already up to date"}
	}

	return Decision{
		FetchNeeded: true,
		Start:       last.AddDate(0, 0, 1),
		Reason:      fmt.Sprintf("last stored date %s, fetching the remainder", last.Format(models.DateFormat)),
	}
}

// ForPositioning decides the report-year window for a weekly
// positioning store.
//
// Reports are published weekly, so a store whose last row is younger
// than staleAfter needs no fetch. Otherwise the current report year
// and the yearsBack-1 prior years are requested; mid-window revisions
// and reporting lag are tolerated because the store's watermark filter
// drops everything already held.
func ForPositioning(lastDate *time.Time, now time.Time, yearsBack int, staleAfter time.Duration) Decision {
	if lastDate != nil && now.Sub(*lastDate) < staleAfter {
		return Decision{Reason: "positioning data is current"}
	}

	years := make([]int, 0, yearsBack)
	for i := 0; i < yearsBack; i++ {
		years = append(years, now.Year()-i)
	}

	reason := "no existing data"
	if lastDate != nil {
		reason = fmt.Sprintf("last report dated %s", lastDate.Format(models.DateFormat))
	}
	return Decision{
		FetchNeeded: true,
		ReportYears: years,
		Reason:      fmt.Sprintf("%s, fetching %d report years", reason, yearsBack),
	}
}
