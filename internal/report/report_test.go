package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurescope/futuresdata/internal/analytics"
	apperrors "github.com/futurescope/futuresdata/internal/errors"
)

func TestNewSeasonality_OmittedWindowsSerializeAsEmptyArrays(t *testing.T) {
	result := &analytics.SeasonalResult{
		TargetYear: 2025,
		Avg5yr:     []float64{1.5, 2.5},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, NewSeasonality(result)))

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	// nil slices must come out as [], never null.
	assert.JSONEq(t, `[]`, string(decoded["avg_2yr"]))
	assert.JSONEq(t, `[]`, string(decoded["avg_10yr"]))
	assert.JSONEq(t, `[]`, string(decoded["actual"]))
	assert.JSONEq(t, `[1.5,2.5]`, string(decoded["avg_5yr"]))
	assert.JSONEq(t, `2025`, string(decoded["target_year"]))
	assert.JSONEq(t, `true`, string(decoded["success"]))
}

func TestNewSeasonality_ActualNullsPreserved(t *testing.T) {
	v := 3.25
	result := &analytics.SeasonalResult{
		TargetYear: 2025,
		Actual:     []*float64{nil, &v, nil},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, NewSeasonality(result)))

	var decoded struct {
		Actual []*float64 `json:"actual"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Actual, 3)
	assert.Nil(t, decoded.Actual[0])
	require.NotNil(t, decoded.Actual[1])
	assert.InDelta(t, 3.25, *decoded.Actual[1], 1e-9)
	assert.Nil(t, decoded.Actual[2])
}

func TestNewPositioning_FieldNamesAndNulls(t *testing.T) {
	change := 40.0
	series := &analytics.PositioningSeries{
		Dates:              []time.Time{time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)},
		OpenInterest:       []float64{1100},
		NonCommLong:        []float64{550},
		NonCommShort:       []float64{210},
		NonCommNet:         []float64{340},
		CommLong:           []float64{310},
		CommShort:          []float64{390},
		CommNet:            []float64{-80},
		NonCommNetChange:   []*float64{&change},
		CommNetChange:      []*float64{nil},
		OpenInterestChange: []*float64{nil},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, NewPositioning(series)))
	out := buf.String()

	assert.Contains(t, out, `"dates":["2025-06-03"]`)
	assert.Contains(t, out, `"open_interest":[1100]`)
	assert.Contains(t, out, `"noncomm_net":[340]`)
	assert.Contains(t, out, `"comm_net":[-80]`)
	assert.Contains(t, out, `"noncomm_net_change":[40]`)
	assert.Contains(t, out, `"comm_net_change":[null]`)
	assert.Contains(t, out, `"oi_change":[null]`)
}

func TestFailureFromError_UsesClassifiedMessage(t *testing.T) {
	err := apperrors.Wrap(apperrors.KindIO,
		assert.AnError, "Error reading data file")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FailureFromError(err)))

	var decoded Failure
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.False(t, decoded.Success)
	// The underlying cause stays in the logs, not in the envelope.
	assert.Equal(t, "Error reading data file", decoded.Message)
}

func TestNewFetch(t *testing.T) {
	last := "2024-01-04"
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, NewFetch("Successfully updated GC=F", 3, &last)))

	var decoded Fetch
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.True(t, decoded.Success)
	assert.Equal(t, "Successfully updated GC=F", decoded.Message)
	assert.Equal(t, 3, decoded.RowsAdded)
	require.NotNil(t, decoded.LastDate)
	assert.Equal(t, "2024-01-04", *decoded.LastDate)
}

func TestNewFetch_NilLastDateOmitted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, NewFetch("No new data available", 0, nil)))
	assert.NotContains(t, buf.String(), "last_date")
	assert.Contains(t, buf.String(), `"rows_added":0`)
}
