package external

import (
	"context"
	"errors"
	"log/slog"

	"dailypost/internal/types"

	"github.com/aktagon/llmkit/anthropic"
	llmtypes "github.com/aktagon/llmkit/anthropic/types"
)

// anthropicPromptFunc performs one structured prompt and returns the text of
// the first content block.
type anthropicPromptFunc func(system, user, schema, apiKey string, settings llmtypes.RequestSettings) (string, error)

// AnthropicConfig holds the configuration for creating an AnthropicModel.
type AnthropicConfig struct {
	APIKey types.SecretString
	Model  string
	Logger *slog.Logger
}

// AnthropicModel implements LanguageModel with llmkit's structured-output
// prompt, which enforces the JSON schema on the answer.
type AnthropicModel struct {
	apiKey types.SecretString
	model  string
	prompt anthropicPromptFunc
	logger *slog.Logger
}

// NewAnthropicModel creates an AnthropicModel backed by llmkit.
func NewAnthropicModel(cfg AnthropicConfig) *AnthropicModel {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicModel{
		apiKey: cfg.APIKey,
		model:  model,
		prompt: llmkitPrompt,
		logger: logger,
	}
}

func llmkitPrompt(system, user, schema, apiKey string, settings llmtypes.RequestSettings) (string, error) {
	response, err := anthropic.PromptWithSettings(system, user, schema, apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", nil
	}
	return response.Content[0].Text, nil
}

// Name implements LanguageModel.
func (m *AnthropicModel) Name() string { return "anthropic" }

// WithAPIKey implements LanguageModel.
func (m *AnthropicModel) WithAPIKey(key types.SecretString) LanguageModel {
	clone := *m
	clone.apiKey = key.Or(m.apiKey)
	return &clone
}

// Complete implements LanguageModel. llmkit has no context support, so the
// call runs in its own goroutine and is abandoned if ctx ends first.
func (m *AnthropicModel) Complete(ctx context.Context, creq CompletionRequest) (string, error) {
	if m.apiKey.IsZero() {
		return "", types.NewMissingCredentialError("anthropic")
	}
	if err := ctx.Err(); err != nil {
		return "", segmenterError("anthropic", err)
	}

	settings := llmtypes.RequestSettings{
		Model:       m.model,
		MaxTokens:   creq.MaxTokens,
		Temperature: creq.Temperature,
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := m.prompt(creq.System, creq.User, creq.Schema, m.apiKey.Unmask(), settings)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", segmenterError("anthropic", ctx.Err())
	case r := <-done:
		if r.err != nil {
			m.logger.ErrorContext(ctx, "Anthropic prompt failed", "error", r.err)
			return "", segmenterError("anthropic", errors.Join(errors.New("anthropic prompt failed"), r.err))
		}
		return r.text, nil
	}
}

var _ LanguageModel = (*AnthropicModel)(nil)
