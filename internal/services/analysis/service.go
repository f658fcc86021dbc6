// Package analysis runs the stock analysis pipeline: price history,
// indicators, contextual data and the language model insight.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/vire-analyst/internal/common"
	"github.com/bobmcallan/vire-analyst/internal/insight"
	"github.com/bobmcallan/vire-analyst/internal/interfaces"
	"github.com/bobmcallan/vire-analyst/internal/models"
	"github.com/bobmcallan/vire-analyst/internal/signals"
)

const DefaultHeadlineLimit = 3

// Service implements AnalysisService
type Service struct {
	source        interfaces.MarketDataSource
	model         interfaces.LanguageModel
	computer      *signals.Computer
	lookback      models.Lookback
	headlineLimit int
	safety        models.SafetyConfig
	logger        *common.Logger
	now           func() time.Time
}

var _ interfaces.AnalysisService = (*Service)(nil)

// Option configures the service
type Option func(*Service)

// WithLookback sets the history window requested from the source
func WithLookback(lookback models.Lookback) Option {
	return func(s *Service) {
		if l, ok := models.ParseLookback(string(lookback)); ok {
			s.lookback = l
		}
	}
}

// WithChangeBasis sets the reference price for the change percentage
func WithChangeBasis(basis models.ChangeBasis) Option {
	return func(s *Service) {
		s.computer = signals.NewComputer(basis)
	}
}

// WithHeadlineLimit sets how many headlines are collected; zero disables them
func WithHeadlineLimit(limit int) Option {
	return func(s *Service) {
		if limit >= 0 {
			s.headlineLimit = limit
		}
	}
}

// WithSafety sets the content filter thresholds sent to the model
func WithSafety(safety models.SafetyConfig) Option {
	return func(s *Service) {
		s.safety = safety
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the clock used for GeneratedAt
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new analysis service. model may be nil, in which
// case every report is the unavailable report.
func NewService(source interfaces.MarketDataSource, model interfaces.LanguageModel, opts ...Option) *Service {
	s := &Service{
		source:        source,
		model:         model,
		computer:      signals.NewComputer(models.ChangeBasisPreviousClose),
		lookback:      models.Lookback1Year,
		headlineLimit: DefaultHeadlineLimit,
		safety:        models.PermissiveSafety(),
		logger:        common.NewSilentLogger(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeSymbol trims and upper-cases a ticker, rejecting empty input
func NormalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", models.ErrEmptySymbol
	}
	return symbol, nil
}

// Indicators fetches history and computes indicators without calling the model
func (s *Service) Indicators(ctx context.Context, symbol string) (*models.Indicators, *models.PriceSeries, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, nil, err
	}
	return s.indicators(ctx, symbol)
}

func (s *Service) indicators(ctx context.Context, symbol string) (*models.Indicators, *models.PriceSeries, error) {
	series, err := s.source.FetchHistory(ctx, symbol, s.lookback)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}

	ind, err := s.computer.Compute(series)
	if err != nil {
		return nil, nil, err
	}

	return ind, series, nil
}

// Analyze runs the full pipeline for one symbol. Only a missing symbol or
// a failed history fetch is an error; metadata, headlines and the model
// are best-effort and failures surface as warnings on the result.
func (s *Service) Analyze(ctx context.Context, symbol string) (*models.Analysis, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	ind, series, err := s.indicators(ctx, symbol)
	if err != nil {
		return nil, err
	}

	result := &models.Analysis{
		RequestID:   uuid.NewString(),
		Symbol:      symbol,
		GeneratedAt: s.now(),
		Snapshot:    ind.Snapshot,
		Chart:       models.BuildChartRows(series, ind),
	}

	logger := s.logger.With().Str("request_id", result.RequestID).Str("symbol", result.Symbol).Logger()

	var mu sync.Mutex
	warn := func(msg string) {
		mu.Lock()
		result.Warnings = append(result.Warnings, msg)
		mu.Unlock()
	}

	if histErr := ind.HistoryErr(); histErr != nil {
		warn(histErr.Error())
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		meta, err := s.source.FetchMetadata(ctx, result.Symbol)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to fetch metadata")
			warn(fmt.Sprintf("metadata unavailable: %v", err))
			return
		}
		result.Metadata = meta
	}()

	go func() {
		defer wg.Done()
		if s.headlineLimit == 0 {
			return
		}
		headlines, err := s.source.FetchHeadlines(ctx, result.Symbol, s.headlineLimit)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to fetch headlines")
			warn(fmt.Sprintf("headlines unavailable: %v", err))
			return
		}
		result.Headlines = headlines
	}()

	go func() {
		defer wg.Done()
		report, warning := s.generateReport(ctx, ind.Snapshot)
		if warning != "" {
			logger.Warn().Str("reason", warning).Msg("Insight degraded")
			warn(warning)
		}
		result.Report = &report
	}()

	wg.Wait()

	logger.Info().
		Str("signal", string(result.Report.Signal)).
		Int("confidence", result.Report.Confidence).
		Int("bars", result.Snapshot.Bars).
		Int("warnings", len(result.Warnings)).
		Msg("Analysis complete")

	return result, nil
}

// generateReport asks the model for a report. The returned warning is empty when
// the model answered with at least one recognised line.
func (s *Service) generateReport(ctx context.Context, snap models.IndicatorSnapshot) (models.InsightReport, string) {
	if s.model == nil {
		return models.UnavailableReport(), "language model not configured"
	}

	text, err := s.model.Generate(ctx, insight.BuildPrompt(snap), s.safety)
	if err != nil {
		return models.UnavailableReport(), fmt.Sprintf("language model unavailable: %v", err)
	}

	report, err := insight.ParseResponse(text)
	var malformed *models.MalformedResponseError
	if errors.As(err, &malformed) {
		return report, malformed.Error()
	}
	return report, ""
}
