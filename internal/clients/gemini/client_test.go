package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/bobmcallan/vire-analyst/internal/models"
)

type capturedRequest struct {
	Path string
	Body map[string]interface{}
}

func newTestClient(t *testing.T, status int, body string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), "test-key", WithBaseURL(srv.URL), WithTimeout(5*time.Second))
	require.NoError(t, err)
	return client, captured
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(context.Background(), "key")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, client.model)

	client, err = NewClient(context.Background(), "key", WithModel("gemini-2.5-flash"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", client.model)
}

func TestGenerate_ReturnsText(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "SIGNAL: POSITIVE\n"}, {"text": "CONFIDENCE: 70"}]}
		}]
	}`)

	text, err := client.Generate(context.Background(), "hello", models.PermissiveSafety())
	require.NoError(t, err)

	assert.Equal(t, "SIGNAL: POSITIVE\nCONFIDENCE: 70", text)
	assert.True(t, strings.HasSuffix(captured.Path, "models/"+DefaultModel+":generateContent"), captured.Path)

	raw, err := json.Marshal(captured.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "HARM_CATEGORY_HARASSMENT")
	assert.Contains(t, string(raw), "HARM_CATEGORY_SEXUALLY_EXPLICIT")
	assert.Contains(t, string(raw), "BLOCK_NONE")
	assert.Contains(t, string(raw), "hello")
}

func TestGenerate_NoCandidates(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, `{"promptFeedback": {"blockReason": "SAFETY"}}`)

	_, err := client.Generate(context.Background(), "hello", models.PermissiveSafety())
	var transport *models.TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, "gemini", transport.Source)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestGenerate_APIError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadRequest, `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`)

	_, err := client.Generate(context.Background(), "hello", nil)
	var transport *models.TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, "generate", transport.Op)
}

func TestSafetySettings_Mapping(t *testing.T) {
	settings := safetySettings(models.SafetyConfig{
		models.SafetyDangerousContent: models.ThresholdBlockHigh,
		models.SafetyHarassment:       models.ThresholdBlockNone,
		models.SafetyHateSpeech:       "UNKNOWN",
	})

	require.Len(t, settings, 2)
	assert.Equal(t, genai.HarmCategoryHarassment, settings[0].Category)
	assert.Equal(t, genai.HarmBlockThresholdBlockNone, settings[0].Threshold)
	assert.Equal(t, genai.HarmCategoryDangerousContent, settings[1].Category)
	assert.Equal(t, genai.HarmBlockThresholdBlockOnlyHigh, settings[1].Threshold)
}

func TestSafetySettings_Permissive(t *testing.T) {
	settings := safetySettings(models.PermissiveSafety())
	require.Len(t, settings, len(models.SafetyCategories))
	for _, s := range settings {
		assert.Equal(t, genai.HarmBlockThresholdBlockNone, s.Threshold)
	}
	assert.Nil(t, safetySettings(nil))
}

func TestExtractText_BlankParts(t *testing.T) {
	_, err := extractTextFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "  "}}}}},
	})
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = extractTextFromResponse(nil)
	assert.ErrorIs(t, err, ErrNoContent)
}
