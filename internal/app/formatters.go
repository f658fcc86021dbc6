package app

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-analyst/internal/models"
	"github.com/bobmcallan/vire-analyst/internal/signals"
)

// formatRSI appends the overbought/oversold zone to the RSI value
func formatRSI(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f (%s)", *v, signals.ClassifyRSI(*v))
}

func formatSignedPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

// writeSnapshotTable writes the latest-bar metrics as a markdown table
func writeSnapshotTable(sb *strings.Builder, snap models.IndicatorSnapshot) {
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Price | %.2f |\n", snap.Price))
	sb.WriteString(fmt.Sprintf("| Change (%s) | %s |\n", snap.ChangeBasis, formatSignedPct(snap.ChangePct)))
	sb.WriteString(fmt.Sprintf("| RSI (14) | %s |\n", formatRSI(snap.RSI)))
	sb.WriteString(fmt.Sprintf("| SMA 50 | %s |\n", models.FormatValue(snap.SMA50)))
	sb.WriteString(fmt.Sprintf("| SMA 200 | %s |\n", models.FormatValue(snap.SMA200)))
	sb.WriteString(fmt.Sprintf("| Trend | %s |\n", snap.Trend))
	sb.WriteString(fmt.Sprintf("| Bars | %d |\n", snap.Bars))
	sb.WriteString("\n")
}

// formatAnalysis formats a full analysis as markdown
func formatAnalysis(a *models.Analysis) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Analysis: %s\n\n", a.Symbol))
	sb.WriteString(fmt.Sprintf("**As of:** %s\n", a.Snapshot.AsOf.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", a.GeneratedAt.Format("2006-01-02 15:04 MST")))

	sb.WriteString("## Indicators\n\n")
	writeSnapshotTable(&sb, a.Snapshot)

	if a.Report != nil {
		r := a.Report
		sb.WriteString("## AI Insight\n\n")
		sb.WriteString(fmt.Sprintf("**Signal:** %s\n", r.Signal))
		sb.WriteString(fmt.Sprintf("**Confidence:** %d%%\n\n", r.Confidence))
		if r.Analysis != "" {
			sb.WriteString(fmt.Sprintf("**Analysis:** %s\n\n", r.Analysis))
		}
		if r.Strategy != "" {
			sb.WriteString(fmt.Sprintf("**Strategy:** %s\n\n", r.Strategy))
		}
	}

	if m := a.Metadata; m != nil {
		sb.WriteString("## Company\n\n")
		if m.Name != "" {
			sb.WriteString(fmt.Sprintf("- **Name:** %s\n", m.Name))
		}
		if m.Sector != "" {
			sb.WriteString(fmt.Sprintf("- **Sector:** %s\n", m.Sector))
		}
		sb.WriteString(fmt.Sprintf("- **P/E:** %s\n", models.FormatValue(m.PERatio)))
		sb.WriteString(fmt.Sprintf("- **P/B:** %s\n\n", models.FormatValue(m.PriceToBook)))
	}

	if len(a.Headlines) > 0 {
		sb.WriteString("## Headlines\n\n")
		for _, h := range a.Headlines {
			sb.WriteString(fmt.Sprintf("- %s\n", h))
		}
		sb.WriteString("\n")
	}

	if len(a.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range a.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatIndicators formats an indicator-only result as markdown
func formatIndicators(series *models.PriceSeries, ind *models.Indicators) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Indicators: %s\n\n", series.Symbol))
	if series.Len() > 0 {
		sb.WriteString(fmt.Sprintf("**Window:** %s to %s (%s)\n\n",
			series.Bars[0].Date.Format("2006-01-02"),
			series.Last().Date.Format("2006-01-02"),
			series.Lookback))
	}

	writeSnapshotTable(&sb, ind.Snapshot)

	if err := ind.HistoryErr(); err != nil {
		sb.WriteString(fmt.Sprintf("_Note: %v_\n", err))
	}

	return sb.String()
}
