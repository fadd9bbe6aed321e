package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dailypost/internal/core"
	"dailypost/internal/types"
)

// SchedulingServiceInterface is the subset of dispatch.PostingService used
// here.
type SchedulingServiceInterface interface {
	Schedule(ctx context.Context, req types.ScheduleRequest, override types.SecretString) ([]types.ScheduledResult, error)
	Plan(ctx context.Context, req types.ScheduleRequest) ([]types.PlannedPost, error)
}

// ScheduleRequest is the body of POST /v1/schedule.
type ScheduleRequest struct {
	Tweets           []string `json:"tweets" validate:"required,min=1,dive,not_blank,post_text"`
	SocialAccountIDs []string `json:"socialAccountIds" validate:"required,min=1,dive,not_blank"`
	StartDate        string   `json:"startDate,omitempty" validate:"omitempty,iso_date"`
	Timezone         string   `json:"timezone,omitempty" validate:"omitempty,is_timezone"`
	PostTimeLocal    string   `json:"postTimeLocal,omitempty" validate:"omitempty,time_of_day"`
	DryRun           bool     `json:"dryRun,omitempty"`
}

// ScheduleResponse reports every created post in input order.
type ScheduleResponse struct {
	OK      bool                    `json:"ok"`
	Results []types.ScheduledResult `json:"results"`
}

// PlanResponse is returned for dry runs.
type PlanResponse struct {
	OK      bool                `json:"ok"`
	DryRun  bool                `json:"dryRun"`
	Planned []types.PlannedPost `json:"planned"`
}

// ScheduleHandler serves scheduling.
type ScheduleHandler struct {
	service   SchedulingServiceInterface
	validator *core.Validator
	metrics   core.MetricsCollector
	logger    *slog.Logger
}

// NewScheduleHandler creates a ScheduleHandler. metrics may be nil.
func NewScheduleHandler(
	svc SchedulingServiceInterface,
	val *core.Validator,
	metrics core.MetricsCollector,
	logger *slog.Logger,
) *ScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleHandler{
		service:   svc,
		validator: val,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterRoutes mounts the scheduling endpoint under /v1.
func (h *ScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Post("/schedule", h.HandleSchedule)
}

// HandleSchedule handles POST /v1/schedule.
//
// Posts are created one at a time and the first failure stops the run. The
// error response then lists the posts already created under
// details.results so the caller can see what exists remotely.
func (h *ScheduleHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	var body ScheduleRequest
	if err := core.DecodeJSON(w, r, &body); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(body); err != nil {
		core.Error(w, r, err)
		return
	}

	req, err := body.toDomain()
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if body.DryRun {
		planned, err := h.service.Plan(r.Context(), req)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		core.JSON(w, r, http.StatusOK, PlanResponse{OK: true, DryRun: true, Planned: planned})
		return
	}

	results, err := h.service.Schedule(r.Context(), req, postBridgeOverride(r))
	if err != nil {
		h.recordFailure(r.Context(), err)
		core.Error(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordScheduled(r.Context(), len(results))
	}

	core.JSON(w, r, http.StatusOK, ScheduleResponse{OK: true, Results: nonNil(results)})
}

// recordFailure emits metrics for a run that stopped part-way.
func (h *ScheduleHandler) recordFailure(ctx context.Context, err error) {
	if h.metrics == nil {
		return
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamDispatchFailed {
		return
	}
	if n, ok := appErr.Details["scheduled_count"].(int); ok && n > 0 {
		h.metrics.RecordScheduled(ctx, n)
	}
	status, _ := appErr.Details["status"].(int)
	h.metrics.RecordDispatchFailure(ctx, status)
}

func (b ScheduleRequest) toDomain() (types.ScheduleRequest, error) {
	req := types.ScheduleRequest{
		Items:      b.Tweets,
		AccountIDs: b.SocialAccountIDs,
		Timezone:   b.Timezone,
	}
	if b.StartDate != "" {
		d, err := types.ParseDate(b.StartDate)
		if err != nil {
			return req, types.NewAppError(types.ErrCodeValidationInvalidDate, "startDate must be YYYY-MM-DD", err)
		}
		req.StartDate = &d
	}
	if b.PostTimeLocal != "" {
		at, err := types.ParseTimeOfDay(b.PostTimeLocal)
		if err != nil {
			return req, types.NewAppError(types.ErrCodeValidationInvalidTimeOfDay, "postTimeLocal must be HH:MM", err)
		}
		req.LocalTime = &at
	}
	return req, nil
}
