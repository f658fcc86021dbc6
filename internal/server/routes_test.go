package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-analyst/internal/app"
	"github.com/bobmcallan/vire-analyst/internal/common"
	"github.com/bobmcallan/vire-analyst/internal/models"
	"github.com/bobmcallan/vire-analyst/internal/signals"
)

// mockAnalysisService implements interfaces.AnalysisService
type mockAnalysisService struct {
	series  *models.PriceSeries
	report  *models.InsightReport
	err     error
	symbols []string
}

func (m *mockAnalysisService) Indicators(ctx context.Context, symbol string) (*models.Indicators, *models.PriceSeries, error) {
	m.symbols = append(m.symbols, symbol)
	if m.err != nil {
		return nil, nil, m.err
	}
	if strings.TrimSpace(symbol) == "" {
		return nil, nil, models.ErrEmptySymbol
	}
	ind, err := signals.NewComputer(models.ChangeBasisPreviousClose).Compute(m.series)
	return ind, m.series, err
}

func (m *mockAnalysisService) Analyze(ctx context.Context, symbol string) (*models.Analysis, error) {
	ind, series, err := m.Indicators(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &models.Analysis{
		RequestID: "req-1",
		Symbol:    series.Symbol,
		Snapshot:  ind.Snapshot,
		Chart:     models.BuildChartRows(series, ind),
		Headlines: []string{"Apple <b>beats</b>"},
		Report:    m.report,
	}, nil
}

func testSeries(n int) *models.PriceSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)*0.5
		bars[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c - 0.2, High: c + 1, Low: c - 1, Close: c}
	}
	return &models.PriceSeries{Symbol: "AAPL", Lookback: models.Lookback1Year, Bars: bars}
}

func newTestServer(svc *mockAnalysisService) *Server {
	a := &app.App{
		Config:    common.NewDefaultConfig(),
		Logger:    common.NewSilentLogger(),
		Analysis:  svc,
		MCPServer: mcpserver.NewMCPServer("vire-analyst-test", "test"),
	}
	return NewServer(a)
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestNewServer_Addr(t *testing.T) {
	s := newTestServer(&mockAnalysisService{})
	assert.Equal(t, "0.0.0.0:8080", s.Addr())
}

func TestNewServer_WriteTimeoutCoversFetchAndModel(t *testing.T) {
	s := newTestServer(&mockAnalysisService{})
	assert.Equal(t, 120*time.Second, s.server.WriteTimeout)

	cfg := common.NewDefaultConfig()
	cfg.Market.Provider = common.ProviderEODHD
	cfg.Clients.EODHD.Timeout = "45s"
	cfg.Clients.Gemini.Timeout = "90s"
	assert.Equal(t, 165*time.Second, writeTimeout(cfg))
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&mockAnalysisService{})

	rr := serve(s, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))

	rr = serve(s, http.MethodPost, "/api/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleVersion(t *testing.T) {
	s := newTestServer(&mockAnalysisService{})

	rr := serve(s, http.MethodGet, "/api/version")
	require.Equal(t, http.StatusOK, rr.Code)

	var v common.VersionInfo
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	assert.Equal(t, common.GetVersionInfo(), v)
}

func TestHandleAnalysis(t *testing.T) {
	svc := &mockAnalysisService{
		series: testSeries(250),
		report: &models.InsightReport{Signal: models.SignalPositive, Confidence: 80},
	}
	s := newTestServer(svc)

	rr := serve(s, http.MethodGet, "/api/analysis/AAPL")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"AAPL"}, svc.symbols)

	var got models.Analysis
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, models.TrendUp, got.Snapshot.Trend)
	assert.Len(t, got.Chart, 250)
	require.NotNil(t, got.Report)
	assert.Equal(t, models.SignalPositive, got.Report.Signal)
}

func TestHandleAnalysis_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target string
		status int
	}{
		{"no data", &models.NoDataError{Symbol: "ZZZZ"}, "/api/analysis/ZZZZ", http.StatusNotFound},
		{"transport", &models.TransportError{Source: "yahoo", Op: "chart", Err: errors.New("timeout")}, "/api/analysis/AAPL", http.StatusBadGateway},
		{"empty symbol", nil, "/api/analysis/", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockAnalysisService{err: tt.err, series: testSeries(10)})
			rr := serve(s, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rr.Code)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.Code)
		})
	}
}

func TestRouteAnalysis_UnknownSubpath(t *testing.T) {
	s := newTestServer(&mockAnalysisService{series: testSeries(10)})
	rr := serve(s, http.MethodGet, "/api/analysis/AAPL/unknown")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleIndicators(t *testing.T) {
	svc := &mockAnalysisService{series: testSeries(60)}
	s := newTestServer(svc)

	rr := serve(s, http.MethodGet, "/api/indicators/AAPL")
	require.Equal(t, http.StatusOK, rr.Code)

	var got indicatorsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, models.Lookback1Year, got.Lookback)
	assert.Len(t, got.Chart, 60)
	assert.Nil(t, got.Chart[0].SMA50)
	assert.NotNil(t, got.Chart[59].SMA50)
	assert.Nil(t, got.Snapshot.SMA200)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "insufficient history")

	require.Len(t, got.RSI, 60)
	assert.True(t, math.IsNaN(got.RSI[13]))
	assert.Equal(t, 100.0, got.RSI[14])
	assert.True(t, math.IsNaN(got.SMA50[48]))
	assert.InDelta(t, 112.25, got.SMA50[49], 1e-9)
}

func TestHandleIndicators_UndefinedSeriesValuesAreNull(t *testing.T) {
	s := newTestServer(&mockAnalysisService{series: testSeries(16)})

	rr := serve(s, http.MethodGet, "/api/indicators/AAPL")
	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))

	var rsi []*float64
	require.NoError(t, json.Unmarshal(raw["rsi"], &rsi))
	require.Len(t, rsi, 16)
	assert.Nil(t, rsi[0])
	assert.Nil(t, rsi[13])
	require.NotNil(t, rsi[14])
	assert.Equal(t, 100.0, *rsi[14])

	assert.Equal(t, "["+strings.TrimSuffix(strings.Repeat("null,", 16), ",")+"]", string(raw["sma200"]))
}

func TestHandleChart(t *testing.T) {
	s := newTestServer(&mockAnalysisService{series: testSeries(60)})

	rr := serve(s, http.MethodGet, "/api/analysis/AAPL/chart.png")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "\x89PNG"))
}

func TestHandleChart_Errors(t *testing.T) {
	s := newTestServer(&mockAnalysisService{err: &models.NoDataError{Symbol: "ZZZZ"}})
	rr := serve(s, http.MethodGet, "/api/analysis/ZZZZ/chart.png")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	s = newTestServer(&mockAnalysisService{series: testSeries(1)})
	rr = serve(s, http.MethodGet, "/api/analysis/AAPL/chart.png")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandleDashboard_Empty(t *testing.T) {
	svc := &mockAnalysisService{}
	s := newTestServer(svc)

	rr := serve(s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `<form method="get" action="/">`)
	assert.Empty(t, svc.symbols)
}

func TestHandleDashboard_WithSymbol(t *testing.T) {
	svc := &mockAnalysisService{
		series: testSeries(250),
		report: &models.InsightReport{Signal: models.SignalNegative, Confidence: 35, Analysis: "overbought", Strategy: "trim"},
	}
	s := newTestServer(svc)

	rr := serve(s, http.MethodGet, "/?symbol=AAPL")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "<h2>AAPL</h2>")
	assert.Contains(t, body, `<span class="negative">NEGATIVE</span> (35%)`)
	assert.Contains(t, body, `src="/api/analysis/AAPL/chart.png"`)
	assert.Contains(t, body, "Apple &lt;b&gt;beats&lt;/b&gt;")
	assert.Contains(t, body, "<td>UP</td>")
	// a steadily rising series has no losses in the RSI window
	assert.Contains(t, body, `<td>100.00 <span class="zone">overbought</span></td>`)
}

func TestHandleDashboard_Error(t *testing.T) {
	s := newTestServer(&mockAnalysisService{err: &models.NoDataError{Symbol: "ZZZZ"}})

	rr := serve(s, http.MethodGet, "/?symbol=ZZZZ")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `<p class="error">no price data for ZZZZ</p>`)
}

func TestHandleDashboard_UnknownPath(t *testing.T) {
	s := newTestServer(&mockAnalysisService{})
	rr := serve(s, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflightThroughServer(t *testing.T) {
	s := newTestServer(&mockAnalysisService{})
	rr := serve(s, http.MethodOptions, "/api/analysis/AAPL")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
