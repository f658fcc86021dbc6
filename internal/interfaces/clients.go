// Package interfaces defines service contracts for Vire Analyst
package interfaces

import (
	"context"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

// MarketDataSource provides price history and descriptive data for a symbol
type MarketDataSource interface {
	// FetchHistory retrieves daily bars covering the lookback window, oldest first
	FetchHistory(ctx context.Context, symbol string, lookback models.Lookback) (*models.PriceSeries, error)

	// FetchMetadata retrieves company name, sector and valuation ratios
	FetchMetadata(ctx context.Context, symbol string) (*models.Metadata, error)

	// FetchHeadlines retrieves up to limit recent news titles
	FetchHeadlines(ctx context.Context, symbol string, limit int) ([]string, error)
}

// LanguageModel generates free text from a prompt
type LanguageModel interface {
	// Generate sends the prompt with the given safety configuration and
	// returns the model's text answer
	Generate(ctx context.Context, prompt string, safety models.SafetyConfig) (string, error)
}
