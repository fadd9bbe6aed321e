package external

import (
	"context"
	"log/slog"
	"net/http"

	"dailypost/internal/types"

	"google.golang.org/genai"
)

// GeminiConfig holds the configuration for creating a GeminiModel.
type GeminiConfig struct {
	APIKey     types.SecretString
	Model      string
	BaseURL    string // Override for testing
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// GeminiModel implements LanguageModel with the Google GenAI SDK, asking for
// an application/json answer.
type GeminiModel struct {
	apiKey     types.SecretString
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiModel creates a GeminiModel. The SDK client is built per call
// because the credential may be overridden per request.
func NewGeminiModel(cfg GeminiConfig) *GeminiModel {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiModel{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     logger,
	}
}

// Name implements LanguageModel.
func (m *GeminiModel) Name() string { return "gemini" }

// WithAPIKey implements LanguageModel.
func (m *GeminiModel) WithAPIKey(key types.SecretString) LanguageModel {
	clone := *m
	clone.apiKey = key.Or(m.apiKey)
	return &clone
}

// Complete implements LanguageModel.
func (m *GeminiModel) Complete(ctx context.Context, creq CompletionRequest) (string, error) {
	if m.apiKey.IsZero() {
		return "", types.NewMissingCredentialError("gemini")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     m.apiKey.Unmask(),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: m.httpClient,
	}
	if m.baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: m.baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return "", segmenterError("gemini", err)
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(creq.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(creq.Temperature)),
		ResponseMIMEType:  "application/json",
	}
	if creq.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(creq.MaxTokens)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(creq.User, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, m.model, contents, genCfg)
	if err != nil {
		m.logger.ErrorContext(ctx, "Gemini generate content failed", "error", err)
		return "", segmenterError("gemini", err)
	}

	return resp.Text(), nil
}

var _ LanguageModel = (*GeminiModel)(nil)
