package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/futurescope/futuresdata/internal/errors"
	"github.com/futurescope/futuresdata/internal/models"
)

func chartJSON(timestamps []int64, closes []string) string {
	ts := ""
	for i, v := range timestamps {
		if i > 0 {
			ts += ","
		}
		ts += fmt.Sprintf("%d", v)
	}
	cl := ""
	for i, v := range closes {
		if i > 0 {
			cl += ","
		}
		cl += v
	}
	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"timestamp": [%s],
				"indicators": {"quote": [{
					"open": [%s], "high": [%s], "low": [%s],
					"close": [%s], "volume": [%s]
				}]}
			}],
			"error": null
		}
	}`, ts, cl, cl, cl, cl, cl)
}

func TestYahooClient_DailyHistory(t *testing.T) {
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/GC=F", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		fmt.Fprint(w, chartJSON(
			[]int64{day1.Unix(), day2.Unix()},
			[]string{"2050.5", "2061.25"}))
	}))
	defer server.Close()

	client := NewYahooClient(WithYahooBaseURL(server.URL))
	records, err := client.DailyHistory(context.Background(), "GC=F", day1, day2.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "2024-01-02", records[0].Date.Format(models.DateFormat))
	f, _ := records[0].Close.Float64()
	assert.InDelta(t, 2050.5, f, 1e-9)
	assert.Equal(t, "2024-01-03", records[1].Date.Format(models.DateFormat))
}

func TestYahooClient_SkipsNullCloseDays(t *testing.T) {
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON(
			[]int64{day1.Unix(), day2.Unix(), day3.Unix()},
			[]string{"2050", "null", "2070"}))
	}))
	defer server.Close()

	client := NewYahooClient(WithYahooBaseURL(server.URL))
	records, err := client.DailyHistory(context.Background(), "GC=F", day1, day3.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-01-02", records[0].Date.Format(models.DateFormat))
	assert.Equal(t, "2024-01-04", records[1].Date.Format(models.DateFormat))
}

func TestYahooClient_SkipsBarsWithNullPriceFields(t *testing.T) {
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	// Second bar has a real close but a null open and low; persisting
	// it would fabricate zero prices.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"chart": {
				"result": [{
					"timestamp": [%d, %d],
					"indicators": {"quote": [{
						"open": [2050, null], "high": [2055, 2065], "low": [2045, null],
						"close": [2052, 2060], "volume": [1000, 900]
					}]}
				}],
				"error": null
			}
		}`, day1.Unix(), day2.Unix())
	}))
	defer server.Close()

	client := NewYahooClient(WithYahooBaseURL(server.URL))
	records, err := client.DailyHistory(context.Background(), "GC=F", day1, day2.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-01-02", records[0].Date.Format(models.DateFormat))
	f, _ := records[0].Open.Float64()
	assert.InDelta(t, 2050.0, f, 1e-9)
}

func TestYahooClient_ProviderErrorIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer server.Close()

	client := NewYahooClient(WithYahooBaseURL(server.URL))
	_, err := client.DailyHistory(context.Background(), "BOGUS=F",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, apperrors.IsNoData(err))
}

func TestYahooClient_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewYahooClient(WithYahooBaseURL(server.URL))
	_, err := client.DailyHistory(context.Background(), "GC=F",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransientFetch, apperrors.KindOf(err))
}

func TestYahooClient_EmptyResultIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}))
	defer server.Close()

	client := NewYahooClient(WithYahooBaseURL(server.URL))
	records, err := client.DailyHistory(context.Background(), "GC=F",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, records)
}
