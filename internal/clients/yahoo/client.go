// Package yahoo provides a client for the public Yahoo Finance endpoints
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/vire-analyst/internal/common"
	"github.com/bobmcallan/vire-analyst/internal/interfaces"
	"github.com/bobmcallan/vire-analyst/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultSearchURL = "https://query2.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	userAgent = "Mozilla/5.0 (compatible; vire-analyst)"
	source    = "yahoo"
)

// Client implements interfaces.MarketDataSource against Yahoo Finance
type Client struct {
	baseURL    string
	searchURL  string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

var _ interfaces.MarketDataSource = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL for chart and quoteSummary requests
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithSearchURL sets the base URL for news search requests
func WithSearchURL(searchURL string) ClientOption {
	return func(c *Client) {
		c.searchURL = strings.TrimRight(searchURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		searchURL: DefaultSearchURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-200 response
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request and decodes the JSON body
func (c *Client) get(ctx context.Context, base, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := base + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", base+path).Msg("Yahoo API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// chartResponse is the v8 chart payload. Quote arrays hold null for
// sessions without trades, so they decode into pointers.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
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
		Error *apiErrorBody `json:"error"`
	} `json:"chart"`
}

type apiErrorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// FetchHistory retrieves daily bars for the lookback window, oldest first
func (c *Client) FetchHistory(ctx context.Context, symbol string, lookback models.Lookback) (*models.PriceSeries, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", string(lookback))

	path := "/v8/finance/chart/" + url.PathEscape(symbol)

	var resp chartResponse
	if err := c.get(ctx, c.baseURL, path, params, &resp); err != nil {
		if isNotFound(err) {
			return nil, &models.NoDataError{Symbol: symbol}
		}
		return nil, &models.TransportError{Source: source, Op: "chart", Err: err}
	}

	if resp.Chart.Error != nil {
		if strings.EqualFold(resp.Chart.Error.Code, "Not Found") {
			return nil, &models.NoDataError{Symbol: symbol}
		}
		return nil, &models.TransportError{
			Source: source,
			Op:     "chart",
			Err:    fmt.Errorf("api error: %s", resp.Chart.Error.Description),
		}
	}

	series := &models.PriceSeries{
		Symbol:    symbol,
		Lookback:  lookback,
		FetchedAt: c.now(),
	}

	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, &models.NoDataError{Symbol: symbol}
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]models.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		closePrice := valueAt(quote.Close, i)
		if closePrice == nil {
			continue // no trades that session
		}
		bar := models.PriceBar{
			Date:  dailyDate(ts),
			Close: *closePrice,
			Open:  orDefault(valueAt(quote.Open, i), *closePrice),
			High:  orDefault(valueAt(quote.High, i), *closePrice),
			Low:   orDefault(valueAt(quote.Low, i), *closePrice),
		}
		if v := valueAt(quote.Volume, i); v != nil {
			bar.Volume = int64(*v)
		}
		bars = append(bars, bar)
	}

	series.Bars = models.OrderBars(bars)

	if series.Len() == 0 {
		return nil, &models.NoDataError{Symbol: symbol}
	}

	c.logger.Debug().Str("symbol", symbol).Int("bars", series.Len()).Msg("Fetched Yahoo price history")
	return series, nil
}

// quoteSummaryResponse is the subset of the v10 quoteSummary payload we read
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"price"`
			SummaryProfile struct {
				Sector string `json:"sector"`
			} `json:"summaryProfile"`
			SummaryDetail struct {
				TrailingPE rawValue `json:"trailingPE"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PriceToBook rawValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *apiErrorBody `json:"error"`
	} `json:"quoteSummary"`
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper
type rawValue struct {
	Raw *float64 `json:"raw"`
}

// FetchMetadata retrieves company name, sector and valuation ratios
func (c *Client) FetchMetadata(ctx context.Context, symbol string) (*models.Metadata, error) {
	params := url.Values{}
	params.Set("modules", "price,summaryProfile,summaryDetail,defaultKeyStatistics")

	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol)

	var resp quoteSummaryResponse
	if err := c.get(ctx, c.baseURL, path, params, &resp); err != nil {
		if isNotFound(err) {
			return nil, &models.NoDataError{Symbol: symbol}
		}
		return nil, &models.TransportError{Source: source, Op: "quoteSummary", Err: err}
	}
	if resp.QuoteSummary.Error != nil {
		return nil, &models.TransportError{
			Source: source,
			Op:     "quoteSummary",
			Err:    fmt.Errorf("api error: %s", resp.QuoteSummary.Error.Description),
		}
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, &models.NoDataError{Symbol: symbol}
	}

	r := resp.QuoteSummary.Result[0]
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}

	return &models.Metadata{
		Symbol:      symbol,
		Name:        name,
		Sector:      r.SummaryProfile.Sector,
		PERatio:     r.SummaryDetail.TrailingPE.Raw,
		PriceToBook: r.DefaultKeyStatistics.PriceToBook.Raw,
	}, nil
}

type searchResponse struct {
	News []struct {
		Title     string `json:"title"`
		Publisher string `json:"publisher"`
		Link      string `json:"link"`
	} `json:"news"`
}

// FetchHeadlines retrieves up to limit recent news titles for the symbol
func (c *Client) FetchHeadlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", symbol)
	params.Set("quotesCount", "0")
	params.Set("newsCount", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.get(ctx, c.searchURL, "/v1/finance/search", params, &resp); err != nil {
		return nil, &models.TransportError{Source: source, Op: "search", Err: err}
	}

	headlines := make([]string, 0, limit)
	for _, item := range resp.News {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		headlines = append(headlines, title)
		if len(headlines) == limit {
			break
		}
	}
	return headlines, nil
}

func isNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

func valueAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func orDefault(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// dailyDate truncates a session timestamp to its UTC calendar date
func dailyDate(ts int64) time.Time {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
