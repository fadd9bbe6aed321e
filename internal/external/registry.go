package external

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dailypost/internal/config"
)

// ---------------------------------------------------------------------------
// Client Registry
//
// Central factory that instantiates the external service clients from
// configuration. Credentials may be empty: callers can supply them per request
// through WithAPIKey, and a call without any credential reports a
// config_missing_credential error.
// ---------------------------------------------------------------------------

// ClientRegistry holds all external service client interfaces.
type ClientRegistry struct {
	Publishing PublishingClient
	Model      LanguageModel
}

// NewClientRegistry initializes the publishing client and the language model
// selected by cfg.Segmenter.Provider.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger) (*ClientRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Timeout: one create-post call must fit comfortably inside the request
	// timeout for the first few posts of a schedule.
	publishingHTTPClient := &http.Client{Timeout: 20 * time.Second}
	publishing := NewPostBridgeClient(publishingHTTPClient, PostBridgeClientConfig{
		APIKey:  cfg.PostBridge.APIKey,
		BaseURL: cfg.PostBridge.BaseURL,
		Logger:  logger.With("client", "postbridge"),
	})

	model, err := NewLanguageModel(cfg.Segmenter, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("external clients initialized",
		"postbridge_base_url", cfg.PostBridge.BaseURL,
		"postbridge_key_configured", !cfg.PostBridge.APIKey.IsZero(),
		"segmenter_provider", model.Name(),
	)

	return &ClientRegistry{
		Publishing: publishing,
		Model:      model,
	}, nil
}

// NewLanguageModel builds the model client for the configured provider.
func NewLanguageModel(cfg config.SegmenterConfig, logger *slog.Logger) (LanguageModel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Timeout: segmentation of a long text can take tens of seconds.
	modelHTTPClient := &http.Client{Timeout: 60 * time.Second}

	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIModel(modelHTTPClient, OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Logger:  logger.With("client", "openai"),
		}), nil
	case "anthropic":
		return NewAnthropicModel(AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			Logger: logger.With("client", "anthropic"),
		}), nil
	case "gemini":
		return NewGeminiModel(GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			HTTPClient: modelHTTPClient,
			Logger:     logger.With("client", "gemini"),
		}), nil
	default:
		return nil, &config.ConfigError{
			Type:    config.ErrValidation,
			Message: fmt.Sprintf("unknown segmenter provider %q", cfg.Provider),
		}
	}
}
