package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderBars_SortsAndKeepsLastPerDate(t *testing.T) {
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bars := []PriceBar{
		{Date: day.AddDate(0, 0, 1), Close: 3},
		{Date: day, Close: 1},
		{Date: day, Close: 2},
	}

	out := OrderBars(bars)
	require.Len(t, out, 2)
	assert.Equal(t, 2.0, out[0].Close)
	assert.Equal(t, 3.0, out[1].Close)
	assert.True(t, out[0].Date.Before(out[1].Date))
}

func TestOrderBars_Short(t *testing.T) {
	assert.Empty(t, OrderBars(nil))
	one := []PriceBar{{Close: 1}}
	assert.Equal(t, one, OrderBars(one))
}

func TestFormatValue(t *testing.T) {
	v := 63.204
	assert.Equal(t, "63.20", FormatValue(&v))
	assert.Equal(t, "n/a", FormatValue(nil))
}
