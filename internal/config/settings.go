package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SegmenterSettings overrides the segmenter's prompt and model parameters.
// Zero values leave the environment-provided configuration untouched.
type SegmenterSettings struct {
	SystemPrompt string   `yaml:"system_prompt"`
	UserPrompt   string   `yaml:"user_prompt"`
	Model        string   `yaml:"model"`
	MaxTokens    int      `yaml:"max_tokens"`
	Temperature  *float64 `yaml:"temperature"`
}

// LoadSegmenterSettings reads a YAML settings file. An empty path yields empty
// settings; a named file that is missing or malformed is a PARSING_FAILED
// ConfigError.
func LoadSegmenterSettings(path string) (*SegmenterSettings, error) {
	if path == "" {
		return &SegmenterSettings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: fmt.Sprintf("failed to read segmenter settings %s", path),
			Err:     err,
		}
	}

	var settings SegmenterSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: fmt.Sprintf("failed to parse segmenter settings %s", path),
			Err:     err,
		}
	}
	if settings.MaxTokens < 0 {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: fmt.Sprintf("segmenter settings %s: max_tokens must not be negative", path),
		}
	}

	return &settings, nil
}

// ApplyTo folds the non-zero settings into cfg, returning the merged copy.
func (s *SegmenterSettings) ApplyTo(cfg SegmenterConfig) SegmenterConfig {
	if s == nil {
		return cfg
	}
	if s.Model != "" {
		switch cfg.Provider {
		case "anthropic":
			cfg.AnthropicModel = s.Model
		case "gemini":
			cfg.GeminiModel = s.Model
		default:
			cfg.OpenAIModel = s.Model
		}
	}
	if s.MaxTokens > 0 {
		cfg.MaxTokens = s.MaxTokens
	}
	if s.Temperature != nil {
		cfg.Temperature = *s.Temperature
	}
	return cfg
}
