package insight

import (
	"strconv"
	"strings"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

type field int

const (
	fieldNone field = iota
	fieldSignal
	fieldConfidence
	fieldAnalysis
	fieldStrategy
)

// labels maps accepted line prefixes to report fields. English labels are
// what BuildPrompt asks for; Turkish labels are accepted as well.
var labels = []struct {
	prefix string
	field  field
}{
	{"SIGNAL:", fieldSignal},
	{"SİNYAL:", fieldSignal},
	{"SINYAL:", fieldSignal},
	{"CONFIDENCE:", fieldConfidence},
	{"GÜVEN:", fieldConfidence},
	{"GUVEN:", fieldConfidence},
	{"ANALYSIS:", fieldAnalysis},
	{"ANALİZ:", fieldAnalysis},
	{"ANALIZ:", fieldAnalysis},
	{"STRATEGY:", fieldStrategy},
	{"STRATEJİ:", fieldStrategy},
	{"STRATEJI:", fieldStrategy},
}

// Markdown decoration trimmed from the start of a line and around values
const (
	lineDecoration  = "*_#>-` \t"
	valueDecoration = "*_` \t"
)

// ParseResponse extracts an InsightReport from the model's text. The
// report starts from defaults and each recognised line overwrites one
// field, so labels may appear in any order and the last occurrence wins.
// The returned report is always usable; a *models.MalformedResponseError
// is returned alongside it when no line was recognised.
func ParseResponse(text string) (models.InsightReport, error) {
	report := models.NewInsightReport()

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	matched := 0

	for _, raw := range lines {
		f, value := matchLabel(raw)
		if f == fieldNone {
			continue
		}
		matched++

		switch f {
		case fieldSignal:
			report.Signal = parseSignal(value)
		case fieldConfidence:
			report.Confidence = parseConfidence(value)
		case fieldAnalysis:
			report.Analysis = value
		case fieldStrategy:
			report.Strategy = value
		}
	}

	if matched == 0 {
		return report, &models.MalformedResponseError{Lines: countNonBlank(lines)}
	}
	return report, nil
}

// matchLabel tests a line against the known labels, case-insensitively
func matchLabel(line string) (field, string) {
	line = strings.TrimLeft(line, lineDecoration)
	for _, l := range labels {
		if len(line) < len(l.prefix) || !strings.EqualFold(line[:len(l.prefix)], l.prefix) {
			continue
		}
		return l.field, strings.Trim(line[len(l.prefix):], valueDecoration)
	}
	return fieldNone, ""
}

// parseSignal maps a signal value onto the three categories, defaulting to neutral
func parseSignal(value string) models.SignalType {
	word := strings.ToUpper(firstWord(value))
	switch word {
	case "POSITIVE", "BULLISH", "BUY", "POZİTİF", "POZITIF", "AL":
		return models.SignalPositive
	case "NEGATIVE", "BEARISH", "SELL", "NEGATİF", "NEGATIF", "SAT":
		return models.SignalNegative
	default:
		return models.SignalNeutral
	}
}

// parseConfidence parses an integer in [0, 100], defaulting otherwise
func parseConfidence(value string) int {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	n, err := strconv.Atoi(value)
	if err != nil || n < models.MinConfidence || n > models.MaxConfidence {
		return models.DefaultConfidence
	}
	return n
}

func firstWord(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '.' || r == '(' || r == '/' || r == '*'
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func countNonBlank(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}
