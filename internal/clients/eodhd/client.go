// Package eodhd provides a client for the EODHD API
package eodhd

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

// flexFloat64 handles JSON values that may be a number, a string or null.
// Missing values decode as unset.
type flexFloat64 struct {
	value float64
	set   bool
}

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = flexFloat64{}
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64{value: num, set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = flexFloat64{}
			return nil
		}
		*f = flexFloat64{value: num, set: true}
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// ptr returns nil for unset or zero values, which EODHD uses for "not reported"
func (f flexFloat64) ptr() *float64 {
	if !f.set || f.value == 0 {
		return nil
	}
	v := f.value
	return &v
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	source = "eodhd"
)

// Client implements interfaces.MarketDataSource against EODHD
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

var _ interfaces.MarketDataSource = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
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

// WithClock overrides the clock used to resolve lookback windows
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
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

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

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

// wrap converts a request error into the domain error for the symbol
func wrap(op, symbol string, err error) error {
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
		return &models.NoDataError{Symbol: symbol}
	}
	return &models.TransportError{Source: source, Op: op, Err: err}
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date   string      `json:"date"`
	Open   flexFloat64 `json:"open"`
	High   flexFloat64 `json:"high"`
	Low    flexFloat64 `json:"low"`
	Close  flexFloat64 `json:"close"`
	Volume int64       `json:"volume"`
}

// FetchHistory retrieves daily bars for the lookback window, oldest first
func (c *Client) FetchHistory(ctx context.Context, symbol string, lookback models.Lookback) (*models.PriceSeries, error) {
	now := c.now()

	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	params.Set("from", lookback.Start(now).Format("2006-01-02"))
	params.Set("to", now.Format("2006-01-02"))

	path := fmt.Sprintf("/eod/%s", url.PathEscape(symbol))

	var raw []eodBarResponse
	if err := c.get(ctx, path, params, &raw); err != nil {
		return nil, wrap("eod", symbol, err)
	}

	bars := make([]models.PriceBar, 0, len(raw))
	for _, b := range raw {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil || !b.Close.set {
			continue
		}
		bars = append(bars, models.PriceBar{
			Date:   date,
			Open:   b.Open.value,
			High:   b.High.value,
			Low:    b.Low.value,
			Close:  b.Close.value,
			Volume: b.Volume,
		})
	}
	bars = models.OrderBars(bars)

	if len(bars) == 0 {
		return nil, &models.NoDataError{Symbol: symbol}
	}

	c.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Fetched EODHD price history")

	return &models.PriceSeries{
		Symbol:    symbol,
		Lookback:  lookback,
		Bars:      bars,
		FetchedAt: now,
	}, nil
}

// fundamentalsResponse represents the subset of the fundamentals payload we read
type fundamentalsResponse struct {
	General struct {
		Code   string `json:"Code"`
		Name   string `json:"Name"`
		Sector string `json:"Sector"`
	} `json:"General"`
	Highlights struct {
		PERatio flexFloat64 `json:"PERatio"`
	} `json:"Highlights"`
	Valuation struct {
		TrailingPE   flexFloat64 `json:"TrailingPE"`
		PriceBookMRQ flexFloat64 `json:"PriceBookMRQ"`
	} `json:"Valuation"`
}

// FetchMetadata retrieves company name, sector and valuation ratios
func (c *Client) FetchMetadata(ctx context.Context, symbol string) (*models.Metadata, error) {
	path := fmt.Sprintf("/fundamentals/%s", url.PathEscape(symbol))

	params := url.Values{}
	params.Set("filter", "General,Highlights,Valuation")

	var resp fundamentalsResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, wrap("fundamentals", symbol, err)
	}

	pe := resp.Valuation.TrailingPE.ptr()
	if pe == nil {
		pe = resp.Highlights.PERatio.ptr()
	}

	return &models.Metadata{
		Symbol:      symbol,
		Name:        resp.General.Name,
		Sector:      resp.General.Sector,
		PERatio:     pe,
		PriceToBook: resp.Valuation.PriceBookMRQ.ptr(),
	}, nil
}

type newsResponse struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

// FetchHeadlines retrieves up to limit recent news titles
func (c *Client) FetchHeadlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("s", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var newsResp []newsResponse
	if err := c.get(ctx, "/news", params, &newsResp); err != nil {
		return nil, wrap("news", symbol, err)
	}

	headlines := make([]string, 0, limit)
	for _, item := range newsResp {
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
