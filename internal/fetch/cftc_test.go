package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurescope/futuresdata/internal/models"
)

const testMarket = "GOLD - COMMODITY EXCHANGE INC."

// reportArchive zips a disaggregated report file the way the yearly
// archives are laid out: a single comma-separated .txt inside.
func reportArchive(t *testing.T, rows []string) []byte {
	t.Helper()

	header := strings.Join([]string{
		colMarketName, colReportDate, colOpenInterest,
		colMoneyLong, colMoneyShort, colProdLong, colProdShort,
	}, ",")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("f_year.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte(header + "\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func goldRow(date string, oi, mLong, mShort, pLong, pShort int) string {
	return fmt.Sprintf("%q,%s,%d,%d,%d,%d,%d", testMarket, date, oi, mLong, mShort, pLong, pShort)
}

func TestCFTCClient_ReportYear(t *testing.T) {
	archive := reportArchive(t, []string{
		goldRow("2024-01-09", 1100, 550, 210, 310, 390),
		goldRow("2024-01-02", 1000, 500, 200, 300, 400),
		`"SILVER - COMMODITY EXCHANGE INC.",2024-01-02,5000,100,50,80,70`,
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/dea/history/fut_disagg_txt_2024.zip", r.URL.Path)
		w.Write(archive)
	}))
	defer server.Close()

	client := NewCFTCClient(WithCFTCBaseURL(server.URL))
	records, err := client.ReportYear(context.Background(), 2024, testMarket)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Rows come back date sorted with nets derived.
	assert.Equal(t, "2024-01-02", records[0].Date.Format(models.DateFormat))
	assert.Equal(t, "300", records[0].NonCommNet.String())
	assert.Equal(t, "-100", records[0].CommNet.String())
	assert.Equal(t, "340", records[1].NonCommNet.String())
}

func TestCFTCClient_ReportYearsFoldTolerantOfFailures(t *testing.T) {
	archive := reportArchive(t, []string{
		goldRow("2024-06-04", 1000, 500, 200, 300, 400),
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "2025") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(archive)
	}))
	defer server.Close()

	client := NewCFTCClient(WithCFTCBaseURL(server.URL))
	records, failures := client.ReportYears(context.Background(), []int{2025, 2024}, testMarket)

	require.Len(t, failures, 1)
	assert.Equal(t, 2025, failures[0].Year)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-06-04", records[0].Date.Format(models.DateFormat))
}

func TestCFTCClient_AllYearsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewCFTCClient(WithCFTCBaseURL(server.URL))
	records, failures := client.ReportYears(context.Background(), []int{2025, 2024}, testMarket)
	assert.Empty(t, records)
	assert.Len(t, failures, 2)
}

func TestParseArchive_MarketWithNoRowsYieldsEmpty(t *testing.T) {
	archive := reportArchive(t, []string{
		`"SILVER - COMMODITY EXCHANGE INC.",2024-01-02,5000,100,50,80,70`,
	})

	records, err := parseArchive(archive, testMarket)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseArchive_MissingColumn(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("f_year.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("Market_and_Exchange_Names,Report_Date_as_YYYY-MM-DD\nx,2024-01-02\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = parseArchive(buf.Bytes(), testMarket)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestParseArchive_TruncatedRow(t *testing.T) {
	// A cut-off download can leave a matching row without its position
	// columns; that must surface as an error, never a panic.
	archive := reportArchive(t, []string{
		goldRow("2024-01-02", 1000, 500, 200, 300, 400),
		fmt.Sprintf("%q,2024-01-09", testMarket),
	})

	_, err := parseArchive(archive, testMarket)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated report row")
}

func TestParseArchive_NotAZip(t *testing.T) {
	_, err := parseArchive([]byte("plain text, not an archive"), testMarket)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open archive")
}

func TestParseArchive_NoReportFile(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("readme.md")
	require.NoError(t, err)
	_, err = f.Write([]byte("nothing here"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = parseArchive(buf.Bytes(), testMarket)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no report file")
}
