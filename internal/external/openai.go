package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"dailypost/internal/types"
)

const openAIAPIBase = "https://api.openai.com/v1"

// OpenAIConfig holds the configuration for creating an OpenAIModel.
type OpenAIConfig struct {
	APIKey  types.SecretString
	BaseURL string // Override for testing or compatible gateways
	Model   string
	Logger  *slog.Logger
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIModel implements LanguageModel against the chat completions endpoint,
// asking for a JSON object response.
type OpenAIModel struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	model   string
	logger  *slog.Logger
}

// NewOpenAIModel creates an OpenAIModel with its own circuit breaker.
func NewOpenAIModel(httpClient *http.Client, cfg OpenAIConfig) *OpenAIModel {
	base := NewBaseClient(httpClient, "openai", DefaultBreakerSettings(), "DailyPost/1.0")
	return NewOpenAIModelWithBase(base, cfg)
}

// NewOpenAIModelWithBase creates an OpenAIModel with a pre-configured BaseClient.
func NewOpenAIModelWithBase(base *BaseClient, cfg OpenAIConfig) *OpenAIModel {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIAPIBase
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIModel{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		logger:  logger,
	}
}

// Name implements LanguageModel.
func (m *OpenAIModel) Name() string { return "openai" }

// WithAPIKey implements LanguageModel.
func (m *OpenAIModel) WithAPIKey(key types.SecretString) LanguageModel {
	clone := *m
	clone.apiKey = key.Or(m.apiKey)
	return &clone
}

// Complete sends one chat completion and returns the first choice's content.
func (m *OpenAIModel) Complete(ctx context.Context, creq CompletionRequest) (string, error) {
	if m.apiKey.IsZero() {
		return "", types.NewMissingCredentialError("openai")
	}

	payload, err := json.Marshal(openAIChatRequest{
		Model: m.model,
		Messages: []openAIMessage{
			{Role: "system", Content: creq.System},
			{Role: "user", Content: creq.User},
		},
		Temperature:    creq.Temperature,
		MaxTokens:      creq.MaxTokens,
		ResponseFormat: &openAIResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to serialize completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey.Unmask())

	resp, err := m.base.Do(req)
	if err != nil {
		return "", segmenterError("openai", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp)
		m.logger.ErrorContext(ctx, "OpenAI API error",
			"status_code", resp.StatusCode,
			"response_body", body,
		)
		return "", segmenterError("openai", &types.RemoteError{
			Service:    "openai",
			Operation:  "chat completion",
			StatusCode: resp.StatusCode,
			Body:       body,
		})
	}

	var chat openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		// The envelope itself is broken; the segmenter degrades this to an
		// empty result like any other unparseable answer.
		m.logger.WarnContext(ctx, "undecodable OpenAI response", "error", err)
		return "", nil
	}
	if len(chat.Choices) == 0 {
		return "", nil
	}

	return strings.TrimSpace(chat.Choices[0].Message.Content), nil
}

// segmenterError wraps a provider failure in the segmenter's error code,
// keeping missing-credential errors as they are.
func segmenterError(provider string, err error) error {
	var appErr *types.AppError
	if isAppError(err, &appErr) && appErr.Code == types.ErrCodeConfigMissingCredential {
		return appErr
	}
	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamSegmenter,
		fmt.Sprintf("%s completion failed", provider),
		err,
		map[string]any{"provider": provider},
	)
}

var _ LanguageModel = (*OpenAIModel)(nil)
