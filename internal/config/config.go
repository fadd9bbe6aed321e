// Package config defines the global configuration structure for the dailypost
// service and CLI. Configuration is loaded once at process initialization and
// is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any invalid format causes startup to fail immediately (fail fast). Upstream
// credentials are optional at load time because callers may supply them per
// request; a missing credential is reported when an operation needs it.
package config

import (
	"time"

	"dailypost/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"dailypost"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server        ServerConfig
	PostBridge    PostBridgeConfig
	Segmenter     SegmenterConfig
	Schedule      ScheduleConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	AWS           AWSConfig
	Feature       FeatureConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// RequestTimeout bounds every inbound request, including the sequential
	// dispatch of a whole schedule.
	RequestTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s" validate:"gt=0"`
}

// PostBridgeConfig holds the publishing service credentials and endpoint.
type PostBridgeConfig struct {
	APIKey  SecretString `envconfig:"POSTBRIDGE_API_KEY"`
	BaseURL string       `envconfig:"POSTBRIDGE_BASE_URL" default:"https://api.post-bridge.com" validate:"required,url"`
}

// SegmenterConfig selects the language model provider used to split text
// into posts, and holds each provider's credentials.
type SegmenterConfig struct {
	Provider    string  `envconfig:"SEGMENTER_PROVIDER" default:"openai" validate:"oneof=openai anthropic gemini"`
	Temperature float64 `envconfig:"SEGMENTER_TEMPERATURE" default:"0.3" validate:"gte=0,lte=2"`
	MaxTokens   int     `envconfig:"SEGMENTER_MAX_TOKENS" default:"2000" validate:"gt=0"`
	// SettingsFile optionally points at a YAML file overriding the prompt and
	// model parameters. See LoadSegmenterSettings.
	SettingsFile string `envconfig:"SEGMENTER_SETTINGS_FILE"`

	OpenAIAPIKey  SecretString `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string       `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" validate:"required,url"`
	OpenAIModel   string       `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	AnthropicAPIKey SecretString `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string       `envconfig:"ANTHROPIC_MODEL" default:"claude-3-5-haiku-latest"`

	GeminiAPIKey SecretString `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string       `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
}

// ScheduleConfig holds the defaults applied when a schedule request omits
// its timezone or local posting time.
type ScheduleConfig struct {
	DefaultTimezone string `envconfig:"DEFAULT_TIMEZONE" default:"UTC" validate:"required,timezone"`
	DefaultPostTime string `envconfig:"DEFAULT_POST_TIME" default:"21:00" validate:"required,datetime=15:04"`
}

// SecurityConfig holds CORS and rate limit settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	// RateLimitPerMinute bounds POST requests per client IP. Zero disables it.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30" validate:"gte=0"`
	// TrustedProxyHops is the number of reverse proxies in front of the
	// service that append to X-Forwarded-For. Zero keys on the peer address.
	TrustedProxyHops int `envconfig:"TRUSTED_PROXY_HOPS" default:"0" validate:"gte=0"`
}

// ObservabilityConfig holds telemetry and monitoring settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"DailyPost"`
}

// AWSConfig holds regional configuration for the CloudWatch client.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// FeatureConfig holds switches for optional surfaces.
type FeatureConfig struct {
	EnableDebugRoutes bool `envconfig:"ENABLE_DEBUG_ROUTES" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// DefaultPostTime parses Schedule.DefaultPostTime. The loader has already
// validated the format, so the fallback only applies to hand-built configs.
func (c *Config) DefaultPostTime() types.TimeOfDay {
	t, err := types.ParseTimeOfDay(c.Schedule.DefaultPostTime)
	if err != nil {
		return types.DefaultPostTime
	}
	return t
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types, or a settings file into its struct.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
