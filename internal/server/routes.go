package server

import (
	"net/http"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/vire-analyst/internal/common"
	"github.com/bobmcallan/vire-analyst/internal/models"
	"github.com/bobmcallan/vire-analyst/internal/services/analysis"
)

const chartSuffix = "/chart.png"

// registerRoutes sets up the REST API, dashboard and MCP routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Analysis
	mux.HandleFunc("/api/analysis/", s.routeAnalysis)
	mux.HandleFunc("/api/indicators/", s.handleIndicators)

	// MCP over Streamable HTTP
	if s.app.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.app.MCPServer,
			mcpserver.WithStateLess(true),
		))
	}

	// Dashboard
	mux.HandleFunc("/", s.handleDashboard)
}

// routeAnalysis dispatches /api/analysis/{symbol} and /api/analysis/{symbol}/chart.png
func (s *Server) routeAnalysis(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, chartSuffix) {
		s.handleChart(w, r, PathParam(r, "/api/analysis/", chartSuffix))
		return
	}

	symbol := PathParam(r, "/api/analysis/", "")
	if strings.TrimPrefix(r.URL.Path, "/api/analysis/"+symbol) != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	s.handleAnalysis(w, r, symbol)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

// --- Analysis handlers ---

// handleAnalysis handles GET /api/analysis/{symbol}
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result, err := s.app.Analysis.Analyze(r.Context(), symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Analysis request failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// indicatorsResponse is the body of GET /api/indicators/{symbol}
type indicatorsResponse struct {
	Symbol   string                   `json:"symbol"`
	Lookback models.Lookback          `json:"lookback"`
	Snapshot models.IndicatorSnapshot `json:"snapshot"`
	Chart    []models.ChartRow        `json:"chart"`
	RSI      models.Series            `json:"rsi"`
	SMA50    models.Series            `json:"sma50"`
	SMA200   models.Series            `json:"sma200"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// handleIndicators handles GET /api/indicators/{symbol}
func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := PathParam(r, "/api/indicators/", "")
	ind, series, err := s.app.Analysis.Indicators(r.Context(), symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Indicators request failed")
		WriteServiceError(w, err)
		return
	}

	resp := indicatorsResponse{
		Symbol:   series.Symbol,
		Lookback: series.Lookback,
		Snapshot: ind.Snapshot,
		Chart:    models.BuildChartRows(series, ind),
		RSI:      ind.RSI,
		SMA50:    ind.SMA50,
		SMA200:   ind.SMA200,
	}
	if herr := ind.HistoryErr(); herr != nil {
		resp.Warnings = append(resp.Warnings, herr.Error())
	}

	WriteJSON(w, http.StatusOK, resp)
}

// handleChart handles GET /api/analysis/{symbol}/chart.png
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	ind, series, err := s.app.Analysis.Indicators(r.Context(), symbol)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	png, err := analysis.RenderIndicatorChart(series.Symbol, series, ind)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", series.Symbol).Msg("Chart render failed")
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), "chart_unavailable")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
