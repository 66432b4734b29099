package freshness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	epoch   = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	someNow = time.Date(2025, 8, 31, 15, 30, 0, 0, time.UTC)
)

func datePtr(t time.Time) *time.Time { return &t }

func TestForPrices_MissingStoreBackfillsFromEpoch(t *testing.T) {
	d := ForPrices(nil, someNow, epoch)
	assert.True(t, d.FetchNeeded)
	assert.Equal(t, epoch, d.Start)
	assert.Contains(t, d.Reason, "no existing data")
}

func TestForPrices_CurrentStoreNeedsNoFetch(t *testing.T) {
	last := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
	d := ForPrices(datePtr(last), someNow, epoch)
	assert.False(t, d.FetchNeeded)
}

func TestForPrices_TopUpStartsDayAfterWatermark(t *testing.T) {
	last := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	d := ForPrices(datePtr(last), someNow, epoch)
	require.True(t, d.FetchNeeded)
	assert.Equal(t, time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC), d.Start)
}

func TestForPrices_WatermarkBeyondTodayNeedsNoFetch(t *testing.T) {
	// A clock skew or pre-dated row must not trigger a negative range.
	last := time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC)
	d := ForPrices(datePtr(last), someNow, epoch)
	assert.False(t, d.FetchNeeded)
}

func TestForPositioning_MissingStoreFetchesYearWindow(t *testing.T) {
	d := ForPositioning(nil, someNow, 4, 7*24*time.Hour)
	require.True(t, d.FetchNeeded)
	assert.Equal(t, []int{2025, 2024, 2023, 2022}, d.ReportYears)
	assert.Contains(t, d.Reason, "no existing data")
}

func TestForPositioning_FreshStoreNeedsNoFetch(t *testing.T) {
	last := someNow.Add(-3 * 24 * time.Hour)
	d := ForPositioning(datePtr(last), someNow, 4, 7*24*time.Hour)
	assert.False(t, d.FetchNeeded)
}

func TestForPositioning_StaleStoreRefetchesWindow(t *testing.T) {
	last := someNow.Add(-10 * 24 * time.Hour)
	d := ForPositioning(datePtr(last), someNow, 4, 7*24*time.Hour)
	require.True(t, d.FetchNeeded)
	assert.Equal(t, []int{2025, 2024, 2023, 2022}, d.ReportYears)
	assert.Contains(t, d.Reason, "2025-08-21")
}

func TestForPositioning_ExactThresholdIsStale(t *testing.T) {
	last := someNow.Add(-7 * 24 * time.Hour)
	d := ForPositioning(datePtr(last), someNow, 4, 7*24*time.Hour)
	assert.True(t, d.FetchNeeded)
}
