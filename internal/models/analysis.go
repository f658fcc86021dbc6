package models

import "time"

// ChartRow is one bar joined with its derived indicator values
type ChartRow struct {
	PriceBar
	RSI    *float64 `json:"rsi"`
	SMA50  *float64 `json:"sma50"`
	SMA200 *float64 `json:"sma200"`
}

// Analysis is the per-request result handed to the presentation layer
type Analysis struct {
	RequestID   string            `json:"request_id"`
	Symbol      string            `json:"symbol"`
	GeneratedAt time.Time         `json:"generated_at"`
	Snapshot    IndicatorSnapshot `json:"snapshot"`
	Chart       []ChartRow        `json:"chart"`
	Metadata    *Metadata         `json:"metadata,omitempty"`
	Headlines   []string          `json:"headlines,omitempty"`
	Report      *InsightReport    `json:"report,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// BuildChartRows joins bars with their indicator values index-for-index
func BuildChartRows(series *PriceSeries, ind *Indicators) []ChartRow {
	rows := make([]ChartRow, series.Len())
	for i, bar := range series.Bars {
		rows[i] = ChartRow{
			PriceBar: bar,
			RSI:      ind.RSI.At(i),
			SMA50:    ind.SMA50.At(i),
			SMA200:   ind.SMA200.At(i),
		}
	}
	return rows
}
