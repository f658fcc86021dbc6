// Package models defines data structures for Vire Analyst
package models

import (
	"sort"
	"strings"
	"time"
)

// PriceBar represents a single trading period's price data
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries holds the bars for one symbol over a lookback window.
// Bars are ordered oldest first with strictly increasing dates.
type PriceSeries struct {
	Symbol    string     `json:"symbol"`
	Lookback  Lookback   `json:"lookback"`
	Bars      []PriceBar `json:"bars"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// OrderBars sorts bars oldest first and keeps only the last bar seen for
// each date, so the result has strictly increasing dates.
func OrderBars(bars []PriceBar) []PriceBar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if len(bars) < 2 {
		return bars
	}
	out := bars[:0]
	for i, b := range bars {
		if i+1 < len(bars) && bars[i+1].Date.Equal(b.Date) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Len returns the number of bars in the series
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the close prices in bar order
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar. Callers must check Len first.
func (s *PriceSeries) Last() PriceBar {
	return s.Bars[len(s.Bars)-1]
}

// Lookback is the history window requested from a market data source
type Lookback string

const (
	Lookback6Months Lookback = "6mo"
	Lookback1Year   Lookback = "1y"
)

// ParseLookback normalises a lookback string, returning ok=false for unknown values
func ParseLookback(s string) (Lookback, bool) {
	switch Lookback(strings.ToLower(strings.TrimSpace(s))) {
	case Lookback6Months:
		return Lookback6Months, true
	case Lookback1Year:
		return Lookback1Year, true
	}
	return "", false
}

// Start returns the first calendar date covered by the lookback, relative to now
func (l Lookback) Start(now time.Time) time.Time {
	if l == Lookback6Months {
		return now.AddDate(0, -6, 0)
	}
	return now.AddDate(-1, 0, 0)
}

// Metadata holds descriptive data for a symbol
type Metadata struct {
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name,omitempty"`
	Sector      string   `json:"sector,omitempty"`
	PERatio     *float64 `json:"pe_ratio,omitempty"`
	PriceToBook *float64 `json:"price_to_book,omitempty"`
}
