package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/vire-analyst/internal/cache"
	"github.com/bobmcallan/vire-analyst/internal/clients/eodhd"
	"github.com/bobmcallan/vire-analyst/internal/clients/gemini"
	"github.com/bobmcallan/vire-analyst/internal/clients/yahoo"
	"github.com/bobmcallan/vire-analyst/internal/common"
	"github.com/bobmcallan/vire-analyst/internal/interfaces"
	"github.com/bobmcallan/vire-analyst/internal/services/analysis"
)

// App holds the initialized clients, the analysis service and the MCP server.
// It is the shared core behind the REST and MCP surfaces.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Source      interfaces.MarketDataSource
	Cache       *cache.SeriesCache
	Model       interfaces.LanguageModel
	Analysis    interfaces.AnalysisService
	MCPServer   *server.MCPServer
	StartupTime time.Time

	logCloser io.Closer
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath picks the config file: explicit path, VIRE_CONFIG,
// next to the binary, then the development fallback.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("VIRE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "vire-analyst.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/vire-analyst.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and wires the data source, cache, language
// model, analysis service and MCP tools. configPath may be empty.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	binDir := getBinaryDir()
	config, err := common.LoadConfig(resolveConfigPath(configPath, binDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger, logCloser, err := common.NewLoggerFromConfig(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	source := newDataSource(config, logger)
	seriesCache := cache.NewSeriesCache(source,
		cache.WithTTL(config.Market.GetCacheTTL()),
		cache.WithLogger(logger),
	)

	model := newLanguageModel(context.Background(), config, logger)

	svc := analysis.NewService(seriesCache, model,
		analysis.WithLookback(config.Market.GetLookback()),
		analysis.WithChangeBasis(config.Market.GetChangeBasis()),
		analysis.WithHeadlineLimit(config.Market.HeadlineLimit),
		analysis.WithLogger(logger),
	)

	mcpServer := server.NewMCPServer(
		"vire-analyst",
		common.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	a := &App{
		Config:      config,
		Logger:      logger,
		Source:      source,
		Cache:       seriesCache,
		Model:       model,
		Analysis:    svc,
		MCPServer:   mcpServer,
		StartupTime: startupStart,
		logCloser:   logCloser,
	}

	a.registerTools()

	logger.Info().
		Str("provider", config.Market.Provider).
		Bool("model", model != nil).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// newDataSource builds the configured market data client. EODHD without
// an API key falls back to Yahoo.
func newDataSource(config *common.Config, logger *common.Logger) interfaces.MarketDataSource {
	if config.Market.Provider == common.ProviderEODHD {
		key, err := common.ResolveAPIKey("eodhd_api_key", config.Clients.EODHD.APIKey)
		if err == nil {
			cfg := config.Clients.EODHD
			return eodhd.NewClient(key,
				eodhd.WithBaseURL(cfg.BaseURL),
				eodhd.WithLogger(logger),
				eodhd.WithRateLimit(cfg.RateLimit),
				eodhd.WithTimeout(cfg.GetTimeout()),
			)
		}
		logger.Warn().Msg("EODHD API key not configured - falling back to Yahoo Finance")
		config.Market.Provider = common.ProviderYahoo
	}

	cfg := config.Clients.Yahoo
	return yahoo.NewClient(
		yahoo.WithBaseURL(cfg.BaseURL),
		yahoo.WithSearchURL(cfg.SearchURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(cfg.RateLimit),
		yahoo.WithTimeout(cfg.GetTimeout()),
	)
}

// newLanguageModel returns nil when no Gemini key is available; the
// analysis service then reports the insight as unavailable.
func newLanguageModel(ctx context.Context, config *common.Config, logger *common.Logger) interfaces.LanguageModel {
	key, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - AI insight will be unavailable")
		return nil
	}

	client, err := gemini.NewClient(ctx, key,
		gemini.WithModel(config.Clients.Gemini.Model),
		gemini.WithTimeout(config.Clients.Gemini.GetTimeout()),
		gemini.WithLogger(logger),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		return nil
	}
	return client
}

// Close releases resources held by the App. Safe to call more than once.
func (a *App) Close() {
	if a.Cache != nil {
		a.Cache.Purge()
	}
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}

// registerTools registers the MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createAnalyzeStockTool(), handleAnalyzeStock(a.Analysis, logger))
	s.AddTool(createGetIndicatorsTool(), handleGetIndicators(a.Analysis, logger))
	s.AddTool(createGetChartTool(), handleGetChart(a.Analysis, logger))
}
