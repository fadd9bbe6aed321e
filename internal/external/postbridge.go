package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dailypost/internal/types"
)

// postBridgeAPIBase is the default Post-Bridge API base URL.
const postBridgeAPIBase = "https://api.post-bridge.com"

const postBridgeService = "postbridge"

// PostBridgeClientConfig holds the configuration for creating a PostBridgeClient.
type PostBridgeClientConfig struct {
	APIKey  types.SecretString
	BaseURL string // Override for testing; defaults to postBridgeAPIBase
	Logger  *slog.Logger
}

// postBridgeAccount is one entry of the social-accounts listing. The service
// has shipped several field spellings over time; all of them are accepted.
type postBridgeAccount struct {
	ID         json.RawMessage `json:"id"`
	Platform   string          `json:"platform"`
	Provider   string          `json:"provider"`
	Type       string          `json:"type"`
	Username   *string         `json:"username"`
	Handle     *string         `json:"handle"`
	ScreenName *string         `json:"screenName"`
}

// postBridgeAccountPage is the object form of the listing.
type postBridgeAccountPage struct {
	Items []postBridgeAccount `json:"items"`
	Data  []postBridgeAccount `json:"data"`
}

type postBridgeContent struct {
	Default postBridgeText `json:"default"`
}

type postBridgeText struct {
	Text string `json:"text"`
}

// postBridgeCreateRequest is the body of POST /v1/posts.
type postBridgeCreateRequest struct {
	ScheduledAt      string            `json:"scheduledAt"`
	SocialAccountIDs []string          `json:"socialAccountIds"`
	Content          postBridgeContent `json:"content"`
}

type postBridgeCreateResponse struct {
	ID json.RawMessage `json:"id"`
}

// PostBridgeClient implements PublishingClient with direct HTTP calls to the
// Post-Bridge REST API through BaseClient.
type PostBridgeClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewPostBridgeClient creates a PostBridgeClient with its own circuit breaker.
func NewPostBridgeClient(httpClient *http.Client, cfg PostBridgeClientConfig) *PostBridgeClient {
	base := NewBaseClient(
		httpClient,
		postBridgeService,
		DefaultBreakerSettings(),
		"DailyPost/1.0",
	)
	return NewPostBridgeClientWithBase(base, cfg)
}

// NewPostBridgeClientWithBase creates a PostBridgeClient with a pre-configured
// BaseClient.
func NewPostBridgeClientWithBase(base *BaseClient, cfg PostBridgeClientConfig) *PostBridgeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = postBridgeAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PostBridgeClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// WithAPIKey returns a copy sharing the BaseClient (and so the breaker) but
// authenticating with key. An empty key keeps the configured credential.
func (c *PostBridgeClient) WithAPIKey(key types.SecretString) PublishingClient {
	clone := *c
	clone.apiKey = key.Or(c.apiKey)
	return &clone
}

// ListSocialAccounts sends GET /v1/social-accounts and normalizes the result.
func (c *PostBridgeClient) ListSocialAccounts(ctx context.Context) ([]types.SocialAccount, error) {
	const operation = "list social accounts"

	if c.apiKey.IsZero() {
		return nil, types.NewMissingCredentialError(postBridgeService)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/social-accounts", nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create Post-Bridge accounts request",
			err,
		)
	}
	c.authorize(req)

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, types.NewRemoteFetchError(c.transportError(operation, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := c.statusError(operation, resp)
		c.logger.ErrorContext(ctx, "Post-Bridge API error",
			"operation", operation,
			"status_code", remote.StatusCode,
			"response_body", remote.Body,
		)
		return nil, types.NewRemoteFetchError(remote)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, types.NewRemoteFetchError(&types.RemoteError{
			Service:    postBridgeService,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       "undecodable response: " + err.Error(),
		})
	}

	entries, err := decodeAccountListing(raw)
	if err != nil {
		return nil, types.NewRemoteFetchError(&types.RemoteError{
			Service:    postBridgeService,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       err.Error(),
		})
	}

	accounts := make([]types.SocialAccount, 0, len(entries))
	for _, e := range entries {
		accounts = append(accounts, e.normalize())
	}

	c.logger.DebugContext(ctx, "Post-Bridge accounts listed",
		"count", len(accounts),
		"key_fingerprint", c.apiKey.Fingerprint(),
	)

	return accounts, nil
}

// CreatePost sends POST /v1/posts for a single scheduled post.
func (c *PostBridgeClient) CreatePost(ctx context.Context, input types.CreatePostInput) (*types.CreatedPost, error) {
	const operation = "create post"

	if c.apiKey.IsZero() {
		return nil, types.NewMissingCredentialError(postBridgeService)
	}

	body, err := json.Marshal(postBridgeCreateRequest{
		ScheduledAt:      input.ScheduledAt.UTC().Format(time.RFC3339),
		SocialAccountIDs: input.SocialAccountIDs,
		Content:          postBridgeContent{Default: postBridgeText{Text: input.Text}},
	})
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to serialize Post-Bridge post",
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/posts", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create Post-Bridge post request",
			err,
		)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, c.transportError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := c.statusError(operation, resp)
		c.logger.ErrorContext(ctx, "Post-Bridge API error",
			"operation", operation,
			"status_code", remote.StatusCode,
			"response_body", remote.Body,
		)
		return nil, remote
	}

	var created postBridgeCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &types.RemoteError{
			Service:    postBridgeService,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       "undecodable response: " + err.Error(),
		}
	}

	return &types.CreatedPost{ID: rawID(created.ID)}, nil
}

func (c *PostBridgeClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())
	req.Header.Set("Accept", "application/json")
}

func (c *PostBridgeClient) statusError(operation string, resp *http.Response) *types.RemoteError {
	return &types.RemoteError{
		Service:    postBridgeService,
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Body:       readErrorBody(resp),
	}
}

// transportError converts a BaseClient failure (no response) into a
// RemoteError with a zero status.
func (c *PostBridgeClient) transportError(operation string, err error) *types.RemoteError {
	msg := err.Error()
	var appErr *types.AppError
	if isAppError(err, &appErr) && appErr.Err != nil {
		msg = fmt.Sprintf("%s: %v", appErr.Message, appErr.Err)
	}
	return &types.RemoteError{
		Service:   postBridgeService,
		Operation: operation,
		Body:      msg,
	}
}

// decodeAccountListing accepts a bare array or an object wrapping the array
// under "items" or "data".
func decodeAccountListing(raw json.RawMessage) ([]postBridgeAccount, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []postBridgeAccount
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("malformed account list: %w", err)
		}
		return list, nil
	}

	var page postBridgeAccountPage
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("malformed account listing: %w", err)
	}
	if page.Items != nil {
		return page.Items, nil
	}
	return page.Data, nil
}

func (a postBridgeAccount) normalize() types.SocialAccount {
	platform := firstNonEmpty(a.Platform, a.Provider, a.Type)

	var username *string
	for _, candidate := range []*string{a.Username, a.Handle, a.ScreenName} {
		if candidate != nil {
			u := *candidate
			username = &u
			break
		}
	}

	return types.SocialAccount{
		ID:       rawID(a.ID),
		Platform: strings.ToLower(strings.TrimSpace(platform)),
		Username: username,
	}
}

// rawID renders a JSON string or number id as a string.
func rawID(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Compile-time interface compliance check.
var _ PublishingClient = (*PostBridgeClient)(nil)
