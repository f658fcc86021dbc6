// Package signals provides technical indicator calculations
package signals

import (
	"math"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

// Indicator windows
const (
	RSIPeriod      = 14
	ShortSMAPeriod = 50
	LongSMAPeriod  = 200
)

// neutralRSI is reported when a window has neither gains nor losses
const neutralRSI = 50.0

// undefined returns a series of the given length filled with NaN
func undefined(n int) models.Series {
	s := make(models.Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// SMASeries calculates the Simple Moving Average of closes at every index.
// Indices before period-1 are undefined.
func SMASeries(closes []float64, period int) models.Series {
	out := undefined(len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	for i := period - 1; i < len(closes); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += closes[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// RSISeries calculates the Relative Strength Index at every index using
// simple averages of the trailing period gains and losses. The first value
// is at index period, once period price changes exist.
func RSISeries(closes []float64, period int) models.Series {
	out := undefined(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	for i := period; i < len(closes); i++ {
		var sumGain, sumLoss float64
		for j := i - period + 1; j <= i; j++ {
			sumGain += gains[j]
			sumLoss += losses[j]
		}
		out[i] = RSIValue(sumGain/float64(period), sumLoss/float64(period))
	}
	return out
}

// RSIValue converts average gain and loss into an RSI value.
// A zero average loss is handled explicitly: 100 when there were gains,
// neutral when the window was flat.
func RSIValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain > 0 {
			return 100
		}
		return neutralRSI
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ChangePct calculates the percentage change from ref to current.
// ok is false when ref is zero or either input is not finite.
func ChangePct(ref, current float64) (pct float64, ok bool) {
	if ref == 0 || math.IsNaN(ref) || math.IsNaN(current) || math.IsInf(ref, 0) || math.IsInf(current, 0) {
		return 0, false
	}
	pct = ((current - ref) / ref) * 100
	if math.IsInf(pct, 0) || math.IsNaN(pct) {
		return 0, false
	}
	return pct, true
}

// DetermineTrend classifies price against the long moving average.
// A nil average means insufficient history and yields TrendUndefined.
func DetermineTrend(price float64, smaLong *float64) models.TrendType {
	if smaLong == nil {
		return models.TrendUndefined
	}
	if price > *smaLong {
		return models.TrendUp
	}
	return models.TrendDown
}

// ClassifyRSI classifies an RSI value
func ClassifyRSI(rsi float64) string {
	if rsi >= 70 {
		return "overbought"
	}
	if rsi <= 30 {
		return "oversold"
	}
	return "neutral"
}
