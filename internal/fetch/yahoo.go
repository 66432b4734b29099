// Package fetch provides the remote data providers: daily price
// history from the Yahoo Finance chart API and weekly positioning
// reports from the CFTC disaggregated futures archives.
//
// Fetches are blocking, rate limited and single-shot. Retry and
// backoff are deliberately absent; a failed range is either skipped
// (positioning year fold) or surfaced to the command boundary.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	apperrors "github.com/futurescope/futuresdata/internal/errors"
	"github.com/futurescope/futuresdata/internal/models"
)

const (
	yahooBaseURL       = "https://query1.finance.yahoo.com"
	yahooChartEndpoint = "/v8/finance/chart/%s"

	requestTimeout       = 30 * time.Second
	maxRequestsPerSecond = 2
	rateLimitBurst       = 1
)

// YahooClient fetches daily price bars from the Yahoo Finance chart
// API.
type YahooClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     *slog.Logger
}

// YahooOption customizes a YahooClient.
type YahooOption func(*YahooClient)

// WithYahooBaseURL overrides the API base URL, used by tests.
func WithYahooBaseURL(base string) YahooOption {
	return func(c *YahooClient) { c.baseURL = base }
}

// WithYahooLogger sets the client logger.
func WithYahooLogger(logger *slog.Logger) YahooOption {
	return func(c *YahooClient) { c.logger = logger }
}

// NewYahooClient creates a price history client with connection
// pooling and rate limiting.
func NewYahooClient(opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(maxRequestsPerSecond), rateLimitBurst),
		baseURL: yahooBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chartResponse mirrors the subset of the chart API payload we need.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyHistory fetches daily bars for symbol in [start, end). Days the
// provider reports with a null close or any null open/high/low
// (holidays, partial rows) are skipped rather than zero-filled, so a
// fabricated price never reaches a store. An empty range is a success
// with zero rows, not an error.
func (c *YahooClient) DailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	requestURL := c.baseURL + fmt.Sprintf(yahooChartEndpoint, url.PathEscape(symbol))
	query := url.Values{
		"period1":  {strconv.FormatInt(start.Unix(), 10)},
		"period2":  {strconv.FormatInt(end.Unix(), 10)},
		"interval": {"1d"},
		"events":   {"history"},
	}

	c.logger.Debug("fetching price history",
		"symbol", symbol,
		"start", start.Format(models.DateFormat),
		"end", end.Format(models.DateFormat))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "futuresdata/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransientFetch, err, "price history request failed for %s", symbol)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransientFetch, err, "failed to read price history response for %s", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.KindTransientFetch,
			"price history request for %s returned status %d", symbol, resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}
	if parsed.Chart.Error != nil {
		return nil, apperrors.New(apperrors.KindNoData,
			"provider error for %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return []models.PriceRecord{}, nil
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	records := make([]models.PriceRecord, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		open := floatAt(quote.Open, i)
		high := floatAt(quote.High, i)
		low := floatAt(quote.Low, i)
		if open == nil || high == nil || low == nil {
			c.logger.Warn("skipping partial bar", "symbol", symbol, "timestamp", ts)
			continue
		}
		record, err := models.NewPriceRecord(
			time.Unix(ts, 0).UTC(),
			decimal.NewFromFloat(*open),
			decimal.NewFromFloat(*high),
			decimal.NewFromFloat(*low),
			decimal.NewFromFloat(*quote.Close[i]),
			decimalAt(quote.Volume, i),
		)
		if err != nil {
			c.logger.Warn("skipping malformed bar", "symbol", symbol, "timestamp", ts, "error", err)
			continue
		}
		records = append(records, *record)
	}

	c.logger.Debug("fetched price history", "symbol", symbol, "rows", len(records))
	return records, nil
}

// floatAt returns an optional float series entry, nil when absent.
func floatAt(series []*float64, i int) *float64 {
	if i >= len(series) {
		return nil
	}
	return series[i]
}

// decimalAt converts an optional float series entry, treating a
// missing value as zero. Only used for volume, where zero is a real
// quiet-day value rather than a fabricated price.
func decimalAt(series []*float64, i int) decimal.Decimal {
	if i >= len(series) || series[i] == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*series[i])
}
