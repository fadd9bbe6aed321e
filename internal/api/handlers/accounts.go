// Package handlers contains the HTTP handlers of the dailypost API:
//   - Account listing (GET /v1/accounts, GET /v1/debug/accounts)
//   - Text segmentation (POST /v1/segment)
//   - Scheduling (POST /v1/schedule)
//
// Each handler depends on a service interface defined next to it, takes
// per-request credential overrides from headers, and writes errors through
// core.Error.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dailypost/internal/accounts"
	"dailypost/internal/core"
	"dailypost/internal/types"
)

// AccountServiceInterface is the subset of accounts.Lister used here.
type AccountServiceInterface interface {
	List(ctx context.Context, override types.SecretString) ([]types.SocialAccount, error)
	ListForPlatforms(ctx context.Context, platforms []string, override types.SecretString) ([]types.SocialAccount, error)
}

// AccountsResponse is the body of both account endpoints.
type AccountsResponse struct {
	Accounts []types.SocialAccount `json:"accounts"`
}

// AccountHandler serves the account listing.
type AccountHandler struct {
	service     AccountServiceInterface
	logger      *slog.Logger
	debugRoutes bool
}

// NewAccountHandler creates an AccountHandler. debugRoutes enables the
// unfiltered listing.
func NewAccountHandler(svc AccountServiceInterface, logger *slog.Logger, debugRoutes bool) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{
		service:     svc,
		logger:      logger,
		debugRoutes: debugRoutes,
	}
}

// RegisterRoutes mounts the account endpoints under /v1.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts", h.HandleList)
	if h.debugRoutes {
		r.Get("/debug/accounts", h.HandleDebugList)
	}
}

// HandleList handles GET /v1/accounts. The platform query parameter is a
// comma-separated list ("all" disables filtering); it defaults to twitter
// and x.
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	platforms := accounts.ParsePlatforms(r.URL.Query().Get("platform"))

	list, err := h.service.ListForPlatforms(r.Context(), platforms, postBridgeOverride(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, AccountsResponse{Accounts: nonNil(list)})
}

// HandleDebugList handles GET /v1/debug/accounts: every account, unfiltered.
func (h *AccountHandler) HandleDebugList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), postBridgeOverride(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, AccountsResponse{Accounts: nonNil(list)})
}

func postBridgeOverride(r *http.Request) types.SecretString {
	return types.SecretString(r.Header.Get(core.HeaderPostBridgeKey))
}

func llmOverride(r *http.Request) types.SecretString {
	return types.SecretString(r.Header.Get(core.HeaderLLMKey))
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
