package external

import (
	"context"

	"dailypost/internal/types"
)

// ---------------------------------------------------------------------------
// Publishing Integration (Post-Bridge)
// ---------------------------------------------------------------------------

// PublishingClient abstracts the remote publishing service. Implementations
// translate between domain types and the vendor's REST API.
type PublishingClient interface {
	// ListSocialAccounts returns the connected accounts, normalized and in
	// the order the service returned them. Failures are RemoteFetchErrors.
	ListSocialAccounts(ctx context.Context) ([]types.SocialAccount, error)

	// CreatePost schedules one post. A call that reaches the service and is
	// refused, or never reaches it, fails with a *types.RemoteError.
	CreatePost(ctx context.Context, input types.CreatePostInput) (*types.CreatedPost, error)

	// WithAPIKey returns a client that authenticates with key instead of the
	// configured credential. The receiver is not modified.
	WithAPIKey(key types.SecretString) PublishingClient
}

// ---------------------------------------------------------------------------
// Language Model Integration (OpenAI, Anthropic, Gemini)
// ---------------------------------------------------------------------------

// CompletionRequest is a single-turn structured-output request.
type CompletionRequest struct {
	System string
	User   string
	// Schema is a JSON Schema document describing the expected output.
	// Providers that cannot enforce a schema still request JSON output.
	Schema      string
	Temperature float64
	MaxTokens   int
}

// LanguageModel abstracts one hosted model provider.
type LanguageModel interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Complete returns the raw text of the model's answer. It fails only on
	// missing credentials or transport/provider errors, never on content.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// WithAPIKey returns a model that authenticates with key instead of the
	// configured credential. The receiver is not modified.
	WithAPIKey(key types.SecretString) LanguageModel
}
