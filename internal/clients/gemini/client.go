// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/vire-analyst/internal/common"
	"github.com/bobmcallan/vire-analyst/internal/interfaces"
	"github.com/bobmcallan/vire-analyst/internal/models"
)

const (
	DefaultModel   = "gemini-3-flash-preview"
	DefaultTimeout = 60 * time.Second

	source = "gemini"
)

// ErrNoContent is returned when the model answers without any text,
// typically because the response was blocked
var ErrNoContent = errors.New("no content generated")

// Client implements interfaces.LanguageModel on top of the genai SDK
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	baseURL string
	logger  *common.Logger
}

var _ interfaces.LanguageModel = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each Generate call
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithBaseURL points the SDK at a different endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	c := &Client{
		model:   DefaultModel,
		timeout: DefaultTimeout,
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	genaiClient, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.client = genaiClient

	return c, nil
}

// Generate sends the prompt with the given safety thresholds and returns the text answer
func (c *Client) Generate(ctx context.Context, prompt string, safety models.SafetyConfig) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug().Str("model", c.model).Int("prompt_len", len(prompt)).Msg("Generating content")

	config := &genai.GenerateContentConfig{
		SafetySettings: safetySettings(safety),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", &models.TransportError{Source: source, Op: "generate", Err: err}
	}

	text, err := extractTextFromResponse(result)
	if err != nil {
		return "", &models.TransportError{Source: source, Op: "generate", Err: err}
	}

	return text, nil
}

var harmCategories = map[models.SafetyCategory]genai.HarmCategory{
	models.SafetyHarassment:       genai.HarmCategoryHarassment,
	models.SafetyHateSpeech:       genai.HarmCategoryHateSpeech,
	models.SafetySexualContent:    genai.HarmCategorySexuallyExplicit,
	models.SafetyDangerousContent: genai.HarmCategoryDangerousContent,
}

var harmThresholds = map[models.SafetyThreshold]genai.HarmBlockThreshold{
	models.ThresholdBlockNone:   genai.HarmBlockThresholdBlockNone,
	models.ThresholdBlockHigh:   genai.HarmBlockThresholdBlockOnlyHigh,
	models.ThresholdBlockMedium: genai.HarmBlockThresholdBlockMediumAndAbove,
	models.ThresholdBlockLow:    genai.HarmBlockThresholdBlockLowAndAbove,
}

// safetySettings converts the domain safety config into SDK settings.
// Categories are emitted in a fixed order; unknown entries are skipped.
func safetySettings(cfg models.SafetyConfig) []*genai.SafetySetting {
	if len(cfg) == 0 {
		return nil
	}
	settings := make([]*genai.SafetySetting, 0, len(cfg))
	for _, category := range models.SafetyCategories {
		threshold, ok := cfg[category]
		if !ok {
			continue
		}
		t, ok := harmThresholds[threshold]
		if !ok {
			continue
		}
		settings = append(settings, &genai.SafetySetting{
			Category:  harmCategories[category],
			Threshold: t,
		})
	}
	return settings
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoContent
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrNoContent
	}
	return sb.String(), nil
}
