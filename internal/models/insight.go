package models

// SignalType is the directional call parsed from a model response
type SignalType string

const (
	SignalPositive SignalType = "POSITIVE"
	SignalNegative SignalType = "NEGATIVE"
	SignalNeutral  SignalType = "NEUTRAL"
)

// Report defaults used when a field is missing or fails validation
const (
	DefaultConfidence = 50
	MinConfidence     = 0
	MaxConfidence     = 100
)

// InsightReport is the structured result parsed from a model response
type InsightReport struct {
	Signal     SignalType `json:"signal"`
	Confidence int        `json:"confidence"`
	Analysis   string     `json:"analysis"`
	Strategy   string     `json:"strategy"`
}

// NewInsightReport returns a report holding the parser defaults
func NewInsightReport() InsightReport {
	return InsightReport{
		Signal:     SignalNeutral,
		Confidence: DefaultConfidence,
	}
}

// UnavailableReport is substituted when the model call itself fails
func UnavailableReport() InsightReport {
	return InsightReport{
		Signal:     SignalNeutral,
		Confidence: 0,
		Analysis:   "connection error",
		Strategy:   "no action",
	}
}

// SafetyCategory names a content filter category on the language model
type SafetyCategory string

const (
	SafetyHarassment       SafetyCategory = "HARASSMENT"
	SafetyHateSpeech       SafetyCategory = "HATE_SPEECH"
	SafetySexualContent    SafetyCategory = "SEXUAL_CONTENT"
	SafetyDangerousContent SafetyCategory = "DANGEROUS_CONTENT"
)

// SafetyCategories lists every recognised category
var SafetyCategories = []SafetyCategory{
	SafetyHarassment,
	SafetyHateSpeech,
	SafetySexualContent,
	SafetyDangerousContent,
}

// SafetyThreshold is the permissiveness level for a category
type SafetyThreshold string

const (
	ThresholdBlockNone   SafetyThreshold = "BLOCK_NONE"
	ThresholdBlockHigh   SafetyThreshold = "BLOCK_ONLY_HIGH"
	ThresholdBlockMedium SafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	ThresholdBlockLow    SafetyThreshold = "BLOCK_LOW_AND_ABOVE"
)

// SafetyConfig maps filter categories to thresholds
type SafetyConfig map[SafetyCategory]SafetyThreshold

// PermissiveSafety returns the most permissive threshold for every category
func PermissiveSafety() SafetyConfig {
	cfg := make(SafetyConfig, len(SafetyCategories))
	for _, c := range SafetyCategories {
		cfg[c] = ThresholdBlockNone
	}
	return cfg
}
