package interfaces

import (
	"context"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

// AnalysisService produces indicator snapshots and AI insight reports
type AnalysisService interface {
	// Analyze runs the full pipeline: history, indicators, insight and context
	Analyze(ctx context.Context, symbol string) (*models.Analysis, error)

	// Indicators computes indicators only, without calling the language model
	Indicators(ctx context.Context, symbol string) (*models.Indicators, *models.PriceSeries, error)
}
