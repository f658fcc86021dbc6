package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/vire-analyst/internal/app"
	"github.com/bobmcallan/vire-analyst/internal/common"
)

// Server serves the REST API, the dashboard and MCP from one listener.
type Server struct {
	app    *app.App
	server *http.Server
	logger *common.Logger
}

// NewServer creates the HTTP server carrying the REST API, the dashboard
// and the MCP endpoint.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := applyMiddleware(mux, a.Logger)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout(a.Config),
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// writeTimeout bounds the slowest route: a price history fetch followed by
// the model call, plus headroom for rendering.
func writeTimeout(cfg *common.Config) time.Duration {
	fetch := cfg.Clients.Yahoo.GetTimeout()
	if cfg.Market.Provider == common.ProviderEODHD {
		fetch = cfg.Clients.EODHD.GetTimeout()
	}
	return fetch + cfg.Clients.Gemini.GetTimeout() + 30*time.Second
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Str("provider", s.app.Config.Market.Provider).
		Bool("insight", s.app.Model != nil).
		Dur("write_timeout", s.server.WriteTimeout).
		Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
