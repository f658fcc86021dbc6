package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/bobmcallan/vire-analyst/internal/common"
	"github.com/bobmcallan/vire-analyst/internal/models"
	"github.com/bobmcallan/vire-analyst/internal/signals"
)

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"rsiZone": func(v *float64) string {
		if v == nil {
			return ""
		}
		return signals.ClassifyRSI(*v)
	},
	"pct": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%+.2f%%", *v)
	},
	"signalClass": func(s models.SignalType) string {
		return strings.ToLower(string(s))
	},
	"opt": models.FormatValue,
}).Parse(dashboardHTML))

// dashboardView is the data rendered by the dashboard template
type dashboardView struct {
	Version  string
	Symbol   string
	Error    string
	Analysis *models.Analysis
	ChartURL string
}

// handleDashboard handles GET / with an optional ?symbol= query
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	view := dashboardView{
		Version: common.GetVersionInfo().Version,
		Symbol:  strings.TrimSpace(r.URL.Query().Get("symbol")),
	}

	status := http.StatusOK
	if view.Symbol != "" {
		result, err := s.app.Analysis.Analyze(r.Context(), view.Symbol)
		if err != nil {
			status, _ = errorStatus(err)
			view.Error = err.Error()
		} else {
			view.Analysis = result
			view.Symbol = result.Symbol
			view.ChartURL = "/api/analysis/" + url.PathEscape(result.Symbol) + chartSuffix
		}
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, view); err != nil {
		s.logger.Error().Err(err).Msg("Dashboard render failed")
		WriteError(w, http.StatusInternalServerError, "Dashboard render failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Vire Analyst{{if .Symbol}} - {{.Symbol}}{{end}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 960px; color: #1f2937; }
form { margin-bottom: 1.5rem; }
input[type=text] { padding: .4rem; font-size: 1rem; }
table { border-collapse: collapse; margin-bottom: 1rem; }
td, th { border: 1px solid #e5e7eb; padding: .3rem .8rem; text-align: left; }
.error { color: #dc2626; }
.warn { color: #b45309; }
.positive { color: #16a34a; }
.negative { color: #dc2626; }
.neutral { color: #6b7280; }
footer { margin-top: 2rem; font-size: .8rem; color: #6b7280; }
</style>
</head>
<body>
<h1>Vire Analyst</h1>
<form method="get" action="/">
  <input type="text" name="symbol" value="{{.Symbol}}" placeholder="AAPL, THYAO.IS">
  <button type="submit">Analyze</button>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{with .Analysis}}
<h2>{{.Symbol}}</h2>
<table>
  <tr><th>Price</th><td>{{printf "%.2f" .Snapshot.Price}}</td></tr>
  <tr><th>Change</th><td>{{pct .Snapshot.ChangePct}}</td></tr>
  <tr><th>RSI (14)</th><td>{{opt .Snapshot.RSI}}{{with rsiZone .Snapshot.RSI}} <span class="zone">{{.}}</span>{{end}}</td></tr>
  <tr><th>SMA 50</th><td>{{opt .Snapshot.SMA50}}</td></tr>
  <tr><th>SMA 200</th><td>{{opt .Snapshot.SMA200}}</td></tr>
  <tr><th>Trend</th><td>{{.Snapshot.Trend}}</td></tr>
</table>
{{with .Report}}
<h3>AI Insight: <span class="{{signalClass .Signal}}">{{.Signal}}</span> ({{.Confidence}}%)</h3>
<p><strong>Analysis:</strong> {{.Analysis}}</p>
<p><strong>Strategy:</strong> {{.Strategy}}</p>
{{end}}
{{end}}
{{if .ChartURL}}<img src="{{.ChartURL}}" alt="price chart" width="900" height="400">{{end}}
{{with .Analysis}}
{{with .Metadata}}
<h3>Company</h3>
<table>
  {{if .Name}}<tr><th>Name</th><td>{{.Name}}</td></tr>{{end}}
  {{if .Sector}}<tr><th>Sector</th><td>{{.Sector}}</td></tr>{{end}}
  <tr><th>P/E</th><td>{{opt .PERatio}}</td></tr>
  <tr><th>P/B</th><td>{{opt .PriceToBook}}</td></tr>
</table>
{{end}}
{{if .Headlines}}
<h3>Headlines</h3>
<ul>{{range .Headlines}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{if .Warnings}}
<ul class="warn">{{range .Warnings}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{end}}
<footer>vire-analyst {{.Version}}</footer>
</body>
</html>
`
