// Package dispatch turns a list of posts and their computed instants into
// remote "create post" calls. Calls are issued strictly in order and the run
// stops at the first failure; nothing is retried or rolled back.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dailypost/internal/external"
	"dailypost/internal/schedule"
	"dailypost/internal/types"
)

// Dispatcher submits scheduled posts to a publishing client.
type Dispatcher struct {
	client external.PublishingClient
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(client external.PublishingClient, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: client, logger: logger}
}

// Dispatch creates one remote post per item, item i at instants[i], each
// addressed to every account in accountIDs. An empty override uses the
// client's configured credential.
//
// On the first failing call it returns the results of the calls that
// succeeded before it, together with an upstream_dispatch_failed AppError
// whose details carry failed_index, scheduled_count, results, status and body.
// A missing credential is returned unchanged.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	items []string,
	accountIDs []string,
	instants []time.Time,
	override types.SecretString,
) ([]types.ScheduledResult, error) {
	if len(items) != len(instants) {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("dispatch needs one instant per item: %d items, %d instants", len(items), len(instants)),
			nil,
		)
	}

	client := d.client
	if !override.IsZero() {
		client = client.WithAPIKey(override)
		d.logger.InfoContext(ctx, "using caller-supplied publishing credential",
			"key_fingerprint", override.Fingerprint(),
		)
	}

	results := make([]types.ScheduledResult, 0, len(items))
	for i, text := range items {
		created, err := client.CreatePost(ctx, types.CreatePostInput{
			ScheduledAt:      instants[i],
			SocialAccountIDs: accountIDs,
			Text:             text,
		})
		if err != nil {
			return results, d.failure(ctx, i, results, err)
		}

		result := types.ScheduledResult{
			Index:       i,
			Text:        text,
			ScheduledAt: schedule.Format(instants[i]),
			RemoteID:    created.ID,
		}
		results = append(results, result)

		d.logger.InfoContext(ctx, "post scheduled",
			"index", i,
			"scheduled_at", result.ScheduledAt,
			"remote_id", result.RemoteID,
			"accounts", len(accountIDs),
		)
	}

	return results, nil
}

func (d *Dispatcher) failure(ctx context.Context, index int, results []types.ScheduledResult, err error) error {
	if types.IsCode(err, types.ErrCodeConfigMissingCredential) {
		return err
	}

	details := map[string]any{
		"failed_index":    index,
		"scheduled_count": len(results),
		"results":         results,
		"status":          0,
		"body":            err.Error(),
	}
	var remote *types.RemoteError
	if errors.As(err, &remote) {
		details["status"] = remote.StatusCode
		details["body"] = remote.Body
	}

	d.logger.ErrorContext(ctx, "dispatch stopped at first failure",
		"failed_index", index,
		"scheduled_count", len(results),
		"status", details["status"],
		"error", err,
	)

	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamDispatchFailed,
		fmt.Sprintf("scheduling stopped at item %d after %d succeeded: %v", index, len(results), err),
		err,
		details,
	)
}
