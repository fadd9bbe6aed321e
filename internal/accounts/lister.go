// Package accounts lists the social accounts connected to the publishing
// service and filters them by platform.
package accounts

import (
	"context"
	"log/slog"
	"strings"

	"dailypost/internal/external"
	"dailypost/internal/types"
)

// AllPlatforms disables platform filtering when passed as the only platform.
const AllPlatforms = "all"

// Lister fetches accounts through a publishing client.
type Lister struct {
	client external.PublishingClient
	logger *slog.Logger
}

// NewLister creates a Lister.
func NewLister(client external.PublishingClient, logger *slog.Logger) *Lister {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{client: client, logger: logger}
}

// List returns every account visible to the credential, in remote order. An
// empty override uses the configured credential.
func (l *Lister) List(ctx context.Context, override types.SecretString) ([]types.SocialAccount, error) {
	client := l.client
	if !override.IsZero() {
		client = client.WithAPIKey(override)
		l.logger.InfoContext(ctx, "using caller-supplied publishing credential",
			"key_fingerprint", override.Fingerprint(),
		)
	}
	return client.ListSocialAccounts(ctx)
}

// ListForPlatforms lists accounts and keeps those on the given platforms.
// No platforms means types.DefaultPlatforms.
func (l *Lister) ListForPlatforms(ctx context.Context, platforms []string, override types.SecretString) ([]types.SocialAccount, error) {
	all, err := l.List(ctx, override)
	if err != nil {
		return nil, err
	}
	if len(platforms) == 0 {
		platforms = types.DefaultPlatforms
	}
	kept := FilterByPlatform(all, platforms)

	l.logger.DebugContext(ctx, "accounts filtered",
		"total", len(all),
		"kept", len(kept),
		"platforms", strings.Join(platforms, ","),
	)
	return kept, nil
}

// FilterByPlatform keeps accounts whose platform matches one of platforms,
// case-insensitively, preserving order. A list containing AllPlatforms keeps
// everything. The input slice is not modified.
func FilterByPlatform(accounts []types.SocialAccount, platforms []string) []types.SocialAccount {
	wanted := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if p == AllPlatforms {
			return append([]types.SocialAccount(nil), accounts...)
		}
		wanted[p] = struct{}{}
	}

	kept := make([]types.SocialAccount, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := wanted[a.Platform]; ok {
			kept = append(kept, a)
		}
	}
	return kept
}

// ParsePlatforms splits a comma-separated platform list, dropping blanks.
func ParsePlatforms(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
