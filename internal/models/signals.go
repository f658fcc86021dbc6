package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TrendType represents the long-window trend classification
type TrendType string

const (
	TrendUp        TrendType = "UP"
	TrendDown      TrendType = "DOWN"
	TrendUndefined TrendType = "UNDEFINED"
)

// ChangeBasis selects the reference price for the change rate
type ChangeBasis string

const (
	ChangeBasisPreviousClose ChangeBasis = "previous_close" // last close vs prior bar's close
	ChangeBasisOpen          ChangeBasis = "open"           // last close vs same bar's open
)

// ParseChangeBasis normalises a change basis string, returning ok=false for unknown values
func ParseChangeBasis(s string) (ChangeBasis, bool) {
	switch ChangeBasis(strings.ToLower(strings.TrimSpace(s))) {
	case ChangeBasisPreviousClose:
		return ChangeBasisPreviousClose, true
	case ChangeBasisOpen:
		return ChangeBasisOpen, true
	}
	return "", false
}

// Series is an indicator series aligned with a PriceSeries. NaN marks
// indices where the indicator is undefined; they encode as JSON null.
type Series []float64

// At returns the value at i, or nil when undefined or out of range
func (s Series) At(i int) *float64 {
	if i < 0 || i >= len(s) || math.IsNaN(s[i]) {
		return nil
	}
	v := s[i]
	return &v
}

// Last returns the final value, or nil when undefined
func (s Series) Last() *float64 {
	return s.At(len(s) - 1)
}

// FormatValue renders an optional indicator value to two decimals, or n/a when undefined
func FormatValue(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// MarshalJSON encodes undefined values as null
func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes null entries as NaN
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	*s = out
	return nil
}

// IndicatorSnapshot is the scalar view of the indicators at the latest bar.
// Pointer fields are nil when the value is undefined.
type IndicatorSnapshot struct {
	AsOf        time.Time   `json:"as_of"`
	Price       float64     `json:"price"`
	ChangePct   *float64    `json:"change_pct"`
	ChangeBasis ChangeBasis `json:"change_basis"`
	RSI         *float64    `json:"rsi"`
	SMA50       *float64    `json:"sma50"`
	SMA200      *float64    `json:"sma200"`
	Trend       TrendType   `json:"trend"`
	Bars        int         `json:"bars"`
}

// Indicators holds the derived series and the latest snapshot
type Indicators struct {
	Snapshot IndicatorSnapshot `json:"snapshot"`
	RSI      Series            `json:"rsi"`
	SMA50    Series            `json:"sma50"`
	SMA200   Series            `json:"sma200"`
	Required int               `json:"-"` // bars needed for the long moving average
}

// HistoryErr reports an InsufficientHistoryError when the long moving
// average, and therefore the trend, could not be computed.
func (ind *Indicators) HistoryErr() error {
	if ind == nil || ind.Snapshot.SMA200 != nil {
		return nil
	}
	return &InsufficientHistoryError{Bars: ind.Snapshot.Bars, Required: ind.Required}
}
