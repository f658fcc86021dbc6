package signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

// === SMA stress tests ===

func TestSMASeries_EmptyCloses(t *testing.T) {
	assert.Empty(t, SMASeries(nil, 10))
	assert.Empty(t, SMASeries([]float64{}, 10))
}

func TestSMASeries_NonPositivePeriod(t *testing.T) {
	result := SMASeries([]float64{1, 2, 3}, 0)
	for _, v := range result {
		assert.True(t, math.IsNaN(v))
	}
	result = SMASeries([]float64{1, 2, 3}, -5)
	for _, v := range result {
		assert.True(t, math.IsNaN(v))
	}
}

func TestSMASeries_ExtremeValues_NoOverflow(t *testing.T) {
	closes := []float64{1e15, 1e15, 1e15, 1e15, 1e15}
	result := SMASeries(closes, 5)
	assert.False(t, math.IsInf(result[4], 0), "SMA should not overflow to Inf")
	assert.InDelta(t, 1e15, result[4], 1)
}

// === RSI stress tests ===

func TestRSISeries_EmptyCloses(t *testing.T) {
	assert.Empty(t, RSISeries(nil, RSIPeriod))
}

func TestRSISeries_SingleSpikeThenFlat(t *testing.T) {
	// One gain followed by flat prices: the gain stays in the window for
	// 14 bars giving RSI 100, then the window is flat and neutral.
	closes := []float64{10, 20}
	for i := 0; i < 30; i++ {
		closes = append(closes, 20)
	}
	result := RSISeries(closes, RSIPeriod)

	assert.Equal(t, 100.0, result[RSIPeriod])
	assert.Equal(t, 50.0, result[RSIPeriod+1])
	assert.Equal(t, 50.0, result[len(result)-1])
}

func TestRSISeries_NeverNaNAfterWarmUp(t *testing.T) {
	patterns := [][]float64{
		trendCloses(50, 100, 0),
		trendCloses(50, 100, 2),
		trendCloses(50, 100, -2),
		trendCloses(50, 1e-9, 1e-12),
	}
	for _, closes := range patterns {
		result := RSISeries(closes, RSIPeriod)
		for i := RSIPeriod; i < len(result); i++ {
			assert.False(t, math.IsNaN(result[i]), "index %d", i)
			assert.GreaterOrEqual(t, result[i], 0.0)
			assert.LessOrEqual(t, result[i], 100.0)
		}
	}
}

// === Compute stress tests ===

func TestCompute_ExactlyLongWindow(t *testing.T) {
	series := generateSeries("EDGE", trendCloses(LongSMAPeriod, 10, 0.25))
	ind, err := NewComputer(models.ChangeBasisPreviousClose).Compute(series)
	assert.NoError(t, err)
	assert.NotNil(t, ind.Snapshot.SMA200)
	assert.NotEqual(t, models.TrendUndefined, ind.Snapshot.Trend)
	assert.NoError(t, ind.HistoryErr())
}

func TestCompute_OneShortOfLongWindow(t *testing.T) {
	series := generateSeries("EDGE", trendCloses(LongSMAPeriod-1, 10, 0.25))
	ind, err := NewComputer(models.ChangeBasisPreviousClose).Compute(series)
	assert.NoError(t, err)
	assert.Nil(t, ind.Snapshot.SMA200)
	assert.Equal(t, models.TrendUndefined, ind.Snapshot.Trend)
	assert.Error(t, ind.HistoryErr())
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	closes := trendCloses(30, 10, 1)
	series := generateSeries("IMM", closes)
	before := make([]models.PriceBar, len(series.Bars))
	copy(before, series.Bars)

	_, err := NewComputer(models.ChangeBasisOpen).Compute(series)
	assert.NoError(t, err)
	assert.Equal(t, before, series.Bars)
}
