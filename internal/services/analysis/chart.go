package analysis

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

const (
	ChartWidth  = 900
	ChartHeight = 400
)

var (
	colorUp     = drawing.ColorFromHex("16a34a") // green-600
	colorDown   = drawing.ColorFromHex("dc2626") // red-600
	colorSMA50  = drawing.ColorFromHex("f59e0b") // amber-500
	colorSMA200 = drawing.ColorFromHex("2563eb") // blue-600
)

// RenderChart renders a PNG candlestick chart of the analysis bars with
// the 50 and 200 day moving averages overlaid. Returns raw PNG bytes.
func RenderChart(a *models.Analysis) ([]byte, error) {
	if a == nil || len(a.Chart) < 2 {
		n := 0
		if a != nil {
			n = len(a.Chart)
		}
		return nil, fmt.Errorf("need at least 2 bars, got %d", n)
	}

	series := []chart.Series{
		candleSeries{name: "Price", rows: a.Chart},
	}
	if ts, ok := averageSeries("SMA 50", a.Chart, func(r models.ChartRow) *float64 { return r.SMA50 }, colorSMA50); ok {
		series = append(series, ts)
	}
	if ts, ok := averageSeries("SMA 200", a.Chart, func(r models.ChartRow) *float64 { return r.SMA200 }, colorSMA200); ok {
		series = append(series, ts)
	}

	graph := chart.Chart{
		Title:  a.Symbol,
		Width:  ChartWidth,
		Height: ChartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// RenderIndicatorChart renders the chart for an indicator-only result,
// without running the insight step.
func RenderIndicatorChart(symbol string, series *models.PriceSeries, ind *models.Indicators) ([]byte, error) {
	if series == nil || ind == nil {
		return nil, fmt.Errorf("need at least 2 bars, got 0")
	}
	return RenderChart(&models.Analysis{
		Symbol:   symbol,
		Snapshot: ind.Snapshot,
		Chart:    models.BuildChartRows(series, ind),
	})
}

// averageSeries builds a line series from the defined values of one
// indicator column. ok is false when fewer than two values are defined.
func averageSeries(name string, rows []models.ChartRow, pick func(models.ChartRow) *float64, color drawing.Color) (chart.TimeSeries, bool) {
	ts := chart.TimeSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: 1.5,
		},
	}
	for _, r := range rows {
		v := pick(r)
		if v == nil || math.IsNaN(*v) {
			continue
		}
		ts.XValues = append(ts.XValues, r.Date)
		ts.YValues = append(ts.YValues, *v)
	}
	return ts, len(ts.XValues) >= 2
}

// candleSeries draws OHLC bars as candlesticks. It reports high and low as
// bounded values so the chart's y range covers every wick.
type candleSeries struct {
	name string
	rows []models.ChartRow
}

func (c candleSeries) GetName() string                { return c.name }
func (c candleSeries) GetYAxis() chart.YAxisType      { return chart.YAxisPrimary }
func (c candleSeries) GetStyle() chart.Style          { return chart.Style{StrokeColor: colorUp, FillColor: colorUp} }
func (c candleSeries) Len() int                       { return len(c.rows) }
func (c candleSeries) GetValues(i int) (x, y float64) { return chart.TimeToFloat64(c.rows[i].Date), c.rows[i].Close }

func (c candleSeries) GetBoundedValues(i int) (x, y1, y2 float64) {
	row := c.rows[i]
	return chart.TimeToFloat64(row.Date), row.High, row.Low
}

func (c candleSeries) Validate() error {
	if len(c.rows) == 0 {
		return fmt.Errorf("candle series must have rows")
	}
	return nil
}

func (c candleSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, defaults chart.Style) {
	body := int(float64(canvasBox.Width()) / float64(len(c.rows)) * 0.6)
	half := body / 2
	if half < 1 {
		half = 1
	}

	for _, row := range c.rows {
		x := canvasBox.Left + xrange.Translate(chart.TimeToFloat64(row.Date))
		yHigh := canvasBox.Bottom - yrange.Translate(row.High)
		yLow := canvasBox.Bottom - yrange.Translate(row.Low)
		yOpen := canvasBox.Bottom - yrange.Translate(row.Open)
		yClose := canvasBox.Bottom - yrange.Translate(row.Close)

		color := colorUp
		if row.Close < row.Open {
			color = colorDown
		}

		r.SetStrokeColor(color)
		r.SetFillColor(color)
		r.SetStrokeWidth(1)

		// wick
		r.MoveTo(x, yHigh)
		r.LineTo(x, yLow)
		r.Stroke()

		top, bottom := yOpen, yClose
		if top > bottom {
			top, bottom = bottom, top
		}
		if bottom == top {
			bottom = top + 1
		}

		r.MoveTo(x-half, top)
		r.LineTo(x+half, top)
		r.LineTo(x+half, bottom)
		r.LineTo(x-half, bottom)
		r.Close()
		r.FillStroke()
	}
}
