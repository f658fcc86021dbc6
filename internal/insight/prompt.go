// Package insight builds model prompts from indicator snapshots and parses
// the model's labelled free-text answer into a report.
package insight

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

// BuildPrompt renders the snapshot into a prompt for the language model.
// Only numeric and categorical fields are embedded; the symbol, company
// name, sector and headlines are deliberately left out so the model reasons
// from the numbers alone.
func BuildPrompt(snap models.IndicatorSnapshot) string {
	var sb strings.Builder

	sb.WriteString("You are a professional equity market analyst. Analyse the following anonymised technical data.\n\n")
	sb.WriteString("TECHNICAL DATA:\n")
	sb.WriteString(fmt.Sprintf("- Price: %.2f\n", snap.Price))
	sb.WriteString(fmt.Sprintf("- RSI (14): %s\n", models.FormatValue(snap.RSI)))
	sb.WriteString(fmt.Sprintf("- 50-day moving average: %s\n", models.FormatValue(snap.SMA50)))
	sb.WriteString(fmt.Sprintf("- Trend (price vs 200-day moving average): %s\n", trendLabel(snap.Trend)))

	sb.WriteString(`
Interpret the momentum and trend, then answer using exactly these four lines:
SIGNAL: POSITIVE, NEGATIVE or NEUTRAL
CONFIDENCE: an integer from 0 to 100
ANALYSIS: one or two sentences explaining the technical picture
STRATEGY: a short- to medium-term course of action
`)

	return sb.String()
}

func trendLabel(t models.TrendType) string {
	switch t {
	case models.TrendUp:
		return "UP"
	case models.TrendDown:
		return "DOWN"
	default:
		return "n/a (insufficient history)"
	}
}
