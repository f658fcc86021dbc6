package signals

import (
	"github.com/bobmcallan/vire-analyst/internal/models"
)

// Computer derives indicators from a price series
type Computer struct {
	basis models.ChangeBasis
}

// NewComputer creates a new signal computer using the given change basis.
// An unrecognised basis falls back to the previous close.
func NewComputer(basis models.ChangeBasis) *Computer {
	if _, ok := models.ParseChangeBasis(string(basis)); !ok {
		basis = models.ChangeBasisPreviousClose
	}
	return &Computer{basis: basis}
}

// Compute calculates the derived series and latest snapshot.
// An empty series returns a NoDataError. A series shorter than the long
// moving average window is not an error; see Indicators.HistoryErr.
func (c *Computer) Compute(series *models.PriceSeries) (*models.Indicators, error) {
	if series.Len() == 0 {
		symbol := ""
		if series != nil {
			symbol = series.Symbol
		}
		return nil, &models.NoDataError{Symbol: symbol}
	}

	closes := series.Closes()
	last := series.Last()

	ind := &models.Indicators{
		RSI:      RSISeries(closes, RSIPeriod),
		SMA50:    SMASeries(closes, ShortSMAPeriod),
		SMA200:   SMASeries(closes, LongSMAPeriod),
		Required: LongSMAPeriod,
	}

	snap := models.IndicatorSnapshot{
		AsOf:        last.Date,
		Price:       last.Close,
		ChangeBasis: c.basis,
		RSI:         ind.RSI.Last(),
		SMA50:       ind.SMA50.Last(),
		SMA200:      ind.SMA200.Last(),
		Bars:        len(closes),
	}

	if pct, ok := c.changePct(series); ok {
		snap.ChangePct = &pct
	}
	snap.Trend = DetermineTrend(snap.Price, snap.SMA200)

	ind.Snapshot = snap
	return ind, nil
}

// changePct applies the configured basis to the latest bar
func (c *Computer) changePct(series *models.PriceSeries) (float64, bool) {
	last := series.Last()
	if c.basis == models.ChangeBasisOpen {
		return ChangePct(last.Open, last.Close)
	}
	if series.Len() < 2 {
		return 0, false
	}
	prev := series.Bars[series.Len()-2]
	return ChangePct(prev.Close, last.Close)
}
