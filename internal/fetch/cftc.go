package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	apperrors "github.com/futurescope/futuresdata/internal/errors"
	"github.com/futurescope/futuresdata/internal/models"
)

const (
	cftcBaseURL         = "https://www.cftc.gov"
	cftcArchiveEndpoint = "/files/dea/history/fut_disagg_txt_%d.zip"
)

// Column names in the CFTC disaggregated futures-only report. Column
// presence is the only schema validation performed on the archive.
const (
	colMarketName   = "Market_and_Exchange_Names"
	colReportDate   = "Report_Date_as_YYYY-MM-DD"
	colOpenInterest = "Open_Interest_All"
	colMoneyLong    = "M_Money_Positions_Long_All"
	colMoneyShort   = "M_Money_Positions_Short_All"
	colProdLong     = "Prod_Merc_Positions_Long_All"
	colProdShort    = "Prod_Merc_Positions_Short_All"
)

var requiredColumns = []string{
	colMarketName, colReportDate, colOpenInterest,
	colMoneyLong, colMoneyShort, colProdLong, colProdShort,
}

// CFTCClient fetches weekly positioning reports from the CFTC's
// yearly disaggregated futures-only archives.
type CFTCClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     *slog.Logger
}

// CFTCOption customizes a CFTCClient.
type CFTCOption func(*CFTCClient)

// WithCFTCBaseURL overrides the archive base URL, used by tests.
func WithCFTCBaseURL(base string) CFTCOption {
	return func(c *CFTCClient) { c.baseURL = base }
}

// WithCFTCLogger sets the client logger.
func WithCFTCLogger(logger *slog.Logger) CFTCOption {
	return func(c *CFTCClient) { c.logger = logger }
}

// NewCFTCClient creates a positioning report client.
func NewCFTCClient(opts ...CFTCOption) *CFTCClient {
	c := &CFTCClient{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(maxRequestsPerSecond), rateLimitBurst),
		baseURL: cftcBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// YearError records a report year that failed to fetch.
type YearError struct {
	Year int
	Err  error
}

// Error implements the error interface.
func (e *YearError) Error() string {
	return fmt.Sprintf("report year %d: %v", e.Year, e.Err)
}

// Unwrap returns the underlying error.
func (e *YearError) Unwrap() error {
	return e.Err
}

// ReportYears fetches the given report years for one market and folds
// the results: successful years accumulate, failed years are collected
// and returned alongside. The fold succeeds when at least one year
// yields rows; the caller only treats it as a total failure when every
// year failed. A fetched-but-empty year (e.g. a future year with no
// reports yet) is neither a success nor a failure, matching the
// publication lag at year boundaries.
func (c *CFTCClient) ReportYears(ctx context.Context, years []int, market string) ([]models.PositioningRecord, []YearError) {
	var all []models.PositioningRecord
	var failures []YearError

	for _, year := range years {
		records, err := c.ReportYear(ctx, year, market)
		if err != nil {
			c.logger.Warn("skipping report year", "year", year, "market", market, "error", err)
			failures = append(failures, YearError{Year: year, Err: err})
			continue
		}
		all = append(all, records...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	return all, failures
}

// ReportYear downloads one yearly archive and extracts the rows for a
// single market, identified by its exchange/commodity name string.
func (c *CFTCClient) ReportYear(ctx context.Context, year int, market string) ([]models.PositioningRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	requestURL := c.baseURL + fmt.Sprintf(cftcArchiveEndpoint, year)
	c.logger.Debug("fetching positioning archive", "year", year, "url", requestURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransientFetch, err, "archive request failed for %d", year)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.KindTransientFetch,
			"archive request for %d returned status %d", year, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransientFetch, err, "failed to read archive for %d", year)
	}

	return parseArchive(body, market)
}

// parseArchive extracts the report rows for one market from a yearly
// zip archive. The archive holds a single comma-separated text file.
func parseArchive(data []byte, market string) ([]models.PositioningRecord, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var reportFile *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".txt") {
			reportFile = f
			break
		}
	}
	if reportFile == nil {
		return nil, fmt.Errorf("archive contains no report file")
	}

	rc, err := reportFile.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read report header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	maxIdx := 0
	for _, name := range requiredColumns {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("report is missing required column %q", name)
		}
		if i > maxIdx {
			maxIdx = i
		}
	}

	var records []models.PositioningRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read report row: %w", err)
		}
		// A truncated download can cut a row short of the position
		// columns; reject it before indexing.
		if len(row) <= maxIdx {
			return nil, fmt.Errorf("truncated report row with %d fields, need %d", len(row), maxIdx+1)
		}
		if strings.TrimSpace(row[index[colMarketName]]) != market {
			continue
		}

		record, err := parseReportRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("malformed report row: %w", err)
		}
		records = append(records, *record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}

// parseReportRow converts one matching report row, deriving the net
// position columns before the row ever reaches a store.
func parseReportRow(row []string, index map[string]int) (*models.PositioningRecord, error) {
	date, err := time.Parse(models.DateFormat, strings.TrimSpace(row[index[colReportDate]]))
	if err != nil {
		return nil, fmt.Errorf("bad report date %q: %w", row[index[colReportDate]], err)
	}

	fields := make(map[string]decimal.Decimal, 5)
	for _, name := range []string{colOpenInterest, colMoneyLong, colMoneyShort, colProdLong, colProdShort} {
		d, err := decimal.NewFromString(strings.TrimSpace(row[index[name]]))
		if err != nil {
			return nil, fmt.Errorf("bad %s value %q: %w", name, row[index[name]], err)
		}
		fields[name] = d
	}

	return models.NewPositioningRecord(
		date,
		fields[colOpenInterest],
		fields[colMoneyLong], fields[colMoneyShort],
		fields[colProdLong], fields[colProdShort],
	)
}
