// Package segment splits free-form text into an ordered list of post-sized
// strings, either with a hosted language model or with a local heuristic.
package segment

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"dailypost/internal/external"
	"dailypost/internal/types"
)

//go:embed prompts/system.md
var defaultSystemPrompt string

//go:embed prompts/user.tmpl
var defaultUserPrompt string

//go:embed prompts/items-schema.json
var itemsSchema string

// Request is one segmentation call.
type Request struct {
	Text string
	// MaxItems truncates the result when positive.
	MaxItems int
	// APIKey overrides the model credential when non-empty.
	APIKey types.SecretString
}

// Segmenter turns text into post candidates. Every returned string is
// trimmed, non-empty and at most types.MaxPostLength characters.
type Segmenter interface {
	Segment(ctx context.Context, req Request) ([]string, error)
}

// Options tunes a ModelSegmenter. Empty prompts use the embedded defaults.
type Options struct {
	SystemPrompt string
	// UserPrompt is a text/template executed with {{.Text}}.
	UserPrompt  string
	Temperature float64
	MaxTokens   int
}

// ModelSegmenter asks a LanguageModel for {"items": [...]} and cleans the
// answer. Unparseable answers yield an empty result, not an error.
type ModelSegmenter struct {
	model       external.LanguageModel
	system      string
	user        *template.Template
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// NewModelSegmenter creates a ModelSegmenter. It fails only when the user
// prompt template does not parse.
func NewModelSegmenter(model external.LanguageModel, opts Options, logger *slog.Logger) (*ModelSegmenter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	system := opts.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = defaultSystemPrompt
	}
	userText := opts.UserPrompt
	if strings.TrimSpace(userText) == "" {
		userText = defaultUserPrompt
	}
	user, err := template.New("user").Parse(userText)
	if err != nil {
		return nil, fmt.Errorf("parsing segmenter user prompt: %w", err)
	}

	return &ModelSegmenter{
		model:       model,
		system:      strings.TrimSpace(system),
		user:        user,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      logger,
	}, nil
}

// Segment implements Segmenter.
func (s *ModelSegmenter) Segment(ctx context.Context, req Request) ([]string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "text is required", nil)
	}

	var prompt strings.Builder
	if err := s.user.Execute(&prompt, struct{ Text string }{Text: req.Text}); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to render segmenter prompt", err)
	}

	model := s.model
	if !req.APIKey.IsZero() {
		model = model.WithAPIKey(req.APIKey)
		s.logger.InfoContext(ctx, "using caller-supplied model credential",
			"provider", model.Name(),
			"key_fingerprint", req.APIKey.Fingerprint(),
		)
	}

	raw, err := model.Complete(ctx, external.CompletionRequest{
		System:      s.system,
		User:        prompt.String(),
		Schema:      itemsSchema,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	parsed := ParseItems(raw)
	items := Clean(parsed, req.MaxItems)

	s.logger.InfoContext(ctx, "text segmented",
		"provider", model.Name(),
		"input_chars", len([]rune(req.Text)),
		"parsed", len(parsed),
		"kept", len(items),
	)
	return items, nil
}

// HeuristicSegmenter splits text locally with SplitHeuristic.
type HeuristicSegmenter struct{}

// Segment implements Segmenter.
func (HeuristicSegmenter) Segment(_ context.Context, req Request) ([]string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "text is required", nil)
	}
	return Clean(SplitHeuristic(req.Text, types.MaxPostLength), req.MaxItems), nil
}

// fallbackSegmenter uses secondary when primary succeeds with nothing.
type fallbackSegmenter struct {
	primary   Segmenter
	secondary Segmenter
}

// WithFallback returns a Segmenter that runs secondary when primary returns
// an empty result. Errors from primary are returned as-is.
func WithFallback(primary, secondary Segmenter) Segmenter {
	return &fallbackSegmenter{primary: primary, secondary: secondary}
}

func (f *fallbackSegmenter) Segment(ctx context.Context, req Request) ([]string, error) {
	items, err := f.primary.Segment(ctx, req)
	if err != nil || len(items) > 0 {
		return items, err
	}
	return f.secondary.Segment(ctx, req)
}
