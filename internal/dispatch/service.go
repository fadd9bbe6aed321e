package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dailypost/internal/schedule"
	"dailypost/internal/types"
)

// PostingService validates a schedule request, computes its instants and
// either dispatches it or returns the plan.
type PostingService struct {
	calculator *schedule.Calculator
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewPostingService creates a PostingService.
func NewPostingService(calculator *schedule.Calculator, dispatcher *Dispatcher, logger *slog.Logger) *PostingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostingService{
		calculator: calculator,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Schedule computes one instant per item and dispatches them in order.
// Validation and calculation failures happen before any remote call.
func (s *PostingService) Schedule(ctx context.Context, req types.ScheduleRequest, override types.SecretString) ([]types.ScheduledResult, error) {
	items, instants, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "dispatching schedule",
		"items", len(items),
		"accounts", len(req.AccountIDs),
		"first", schedule.Format(instants[0]),
		"timezone", req.Timezone,
	)

	return s.dispatcher.Dispatch(ctx, items, req.AccountIDs, instants, override)
}

// Plan computes the schedule without contacting the publishing service.
func (s *PostingService) Plan(_ context.Context, req types.ScheduleRequest) ([]types.PlannedPost, error) {
	items, instants, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	tz, _ := s.calculator.Resolve(toCalcRequest(req, len(items)))
	loc, err := schedule.LoadZone(tz)
	if err != nil {
		return nil, err
	}

	plan := make([]types.PlannedPost, len(items))
	for i, text := range items {
		plan[i] = types.PlannedPost{
			Index:       i,
			Text:        text,
			ScheduledAt: schedule.Format(instants[i]),
			LocalTime:   instants[i].In(loc).Format("2006-01-02 15:04 MST"),
		}
	}
	return plan, nil
}

func (s *PostingService) prepare(req types.ScheduleRequest) ([]string, []time.Time, error) {
	if len(req.Items) == 0 {
		return nil, nil, types.NewAppError(types.ErrCodeValidationMissingField, "at least one post is required", nil)
	}
	if len(req.AccountIDs) == 0 {
		return nil, nil, types.NewAppError(types.ErrCodeValidationMissingField, "at least one social account id is required", nil)
	}

	items := make([]string, len(req.Items))
	for i, raw := range req.Items {
		text, ok := types.NormalizePost(raw)
		if !ok {
			code := types.ErrCodeValidationTextTooLong
			msg := fmt.Sprintf("post %d exceeds %d characters", i, types.MaxPostLength)
			if text == "" {
				code = types.ErrCodeValidationMissingField
				msg = fmt.Sprintf("post %d is empty", i)
			}
			return nil, nil, types.NewAppErrorWithDetails(code, msg, nil, map[string]any{"index": i})
		}
		items[i] = text
	}

	instants, err := s.calculator.Compute(toCalcRequest(req, len(items)))
	if err != nil {
		return nil, nil, err
	}
	return items, instants, nil
}

func toCalcRequest(req types.ScheduleRequest, count int) schedule.Request {
	return schedule.Request{
		Count:     count,
		StartDate: req.StartDate,
		Timezone:  req.Timezone,
		LocalTime: req.LocalTime,
	}
}
