package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"dailypost/internal/core"
	"dailypost/internal/types"
)

type mockSchedulingService struct {
	results     []types.ScheduledResult
	planned     []types.PlannedPost
	err         error
	gotReq      types.ScheduleRequest
	gotOverride types.SecretString
	scheduled   int
	plans       int
}

func (m *mockSchedulingService) Schedule(_ context.Context, req types.ScheduleRequest, override types.SecretString) ([]types.ScheduledResult, error) {
	m.scheduled++
	m.gotReq = req
	m.gotOverride = override
	return m.results, m.err
}

func (m *mockSchedulingService) Plan(_ context.Context, req types.ScheduleRequest) ([]types.PlannedPost, error) {
	m.plans++
	m.gotReq = req
	return m.planned, m.err
}

func makeScheduleRouter(svc SchedulingServiceInterface, metrics core.MetricsCollector) http.Handler {
	logger := slog.Default()
	h := NewScheduleHandler(svc, core.NewValidator(logger), metrics, logger)
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func TestHandleSchedule_Success(t *testing.T) {
	svc := &mockSchedulingService{results: []types.ScheduledResult{
		{Index: 0, Text: "hello", ScheduledAt: "2026-11-02T14:00:00Z", RemoteID: "p1"},
		{Index: 1, Text: "world", ScheduledAt: "2026-11-03T14:00:00Z", RemoteID: "p2"},
	}}
	metrics := &core.MockMetricsCollector{}
	router := makeScheduleRouter(svc, metrics)

	body := `{"tweets":["hello","world"],"socialAccountIds":["acc-1"],"startDate":"2026-11-02","timezone":"America/New_York","postTimeLocal":"09:00"}`
	rec := postJSON(router, "/v1/schedule", body, map[string]string{core.HeaderPostBridgeKey: "pb-override"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ScheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || len(resp.Results) != 2 || resp.Results[1].RemoteID != "p2" {
		t.Errorf("unexpected response %+v", resp)
	}

	got := svc.gotReq
	if got.StartDate == nil || got.StartDate.String() != "2026-11-02" {
		t.Errorf("start date = %v", got.StartDate)
	}
	if got.LocalTime == nil || got.LocalTime.String() != "09:00" {
		t.Errorf("local time = %v", got.LocalTime)
	}
	if got.Timezone != "America/New_York" || len(got.Items) != 2 || got.AccountIDs[0] != "acc-1" {
		t.Errorf("request = %+v", got)
	}
	if svc.gotOverride.Unmask() != "pb-override" {
		t.Error("credential override not forwarded")
	}
	if len(metrics.Scheduled) != 1 || metrics.Scheduled[0] != 2 {
		t.Errorf("scheduled metrics = %v", metrics.Scheduled)
	}
}

func TestHandleSchedule_DefaultsLeftToService(t *testing.T) {
	svc := &mockSchedulingService{}
	rec := postJSON(makeScheduleRouter(svc, nil), "/v1/schedule", `{"tweets":["a"],"socialAccountIds":["x"]}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotReq.StartDate != nil || svc.gotReq.LocalTime != nil || svc.gotReq.Timezone != "" {
		t.Errorf("optional fields should stay unset: %+v", svc.gotReq)
	}
	if !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleSchedule_DryRun(t *testing.T) {
	svc := &mockSchedulingService{planned: []types.PlannedPost{
		{Index: 0, Text: "a", ScheduledAt: "2026-11-02T14:00:00Z", LocalTime: "2026-11-02 09:00 EST"},
	}}
	rec := postJSON(makeScheduleRouter(svc, nil), "/v1/schedule",
		`{"tweets":["a"],"socialAccountIds":["x"],"dryRun":true}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.scheduled != 0 || svc.plans != 1 {
		t.Errorf("schedule=%d plan=%d", svc.scheduled, svc.plans)
	}
	var resp PlanResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.DryRun || len(resp.Planned) != 1 || resp.Planned[0].LocalTime != "2026-11-02 09:00 EST" {
		t.Errorf("unexpected plan %+v", resp)
	}
}

func TestHandleSchedule_Validation(t *testing.T) {
	long := strings.Repeat("x", types.MaxPostLength+1)
	tests := []struct {
		name     string
		body     string
		wantCode types.ErrorCode
	}{
		{"no tweets", `{"tweets":[],"socialAccountIds":["a"]}`, types.ErrCodeValidationMissingField},
		{"no accounts", `{"tweets":["a"]}`, types.ErrCodeValidationMissingField},
		{"blank tweet", `{"tweets":["a","  "],"socialAccountIds":["a"]}`, types.ErrCodeValidationMissingField},
		{"long tweet", `{"tweets":["` + long + `"],"socialAccountIds":["a"]}`, types.ErrCodeValidationTextTooLong},
		{"bad timezone", `{"tweets":["a"],"socialAccountIds":["a"],"timezone":"Moon/Base"}`, types.ErrCodeValidationInvalidTimezone},
		{"bad time", `{"tweets":["a"],"socialAccountIds":["a"],"postTimeLocal":"25:00"}`, types.ErrCodeValidationInvalidTimeOfDay},
		{"bad date", `{"tweets":["a"],"socialAccountIds":["a"],"startDate":"11/02/2026"}`, types.ErrCodeValidationInvalidDate},
		{"tweets not strings", `{"tweets":[1],"socialAccountIds":["a"]}`, types.ErrCodeValidationInvalidJSON},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockSchedulingService{}
			rec := postJSON(makeScheduleRouter(svc, nil), "/v1/schedule", tc.body, nil)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decodeError(t, rec).Error.Code; got != string(tc.wantCode) {
				t.Errorf("code = %s, want %s", got, tc.wantCode)
			}
			if svc.scheduled+svc.plans != 0 {
				t.Error("service must not be called on invalid input")
			}
		})
	}
}

func TestHandleSchedule_PartialFailure(t *testing.T) {
	done := []types.ScheduledResult{{Index: 0, Text: "a", ScheduledAt: "2026-11-02T14:00:00Z", RemoteID: "p1"}}
	svc := &mockSchedulingService{err: types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamDispatchFailed,
		"scheduling stopped at item 1 after 1 succeeded",
		nil,
		map[string]any{
			"failed_index":    1,
			"scheduled_count": 1,
			"results":         done,
			"status":          503,
			"body":            "maintenance",
		},
	)}
	metrics := &core.MockMetricsCollector{}
	rec := postJSON(makeScheduleRouter(svc, metrics), "/v1/schedule",
		`{"tweets":["a","b","c"],"socialAccountIds":["x"]}`, nil)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Error.Code != string(types.ErrCodeUpstreamDispatchFailed) {
		t.Errorf("code = %s", resp.Error.Code)
	}
	if idx, _ := resp.Error.Details["failed_index"].(float64); idx != 1 {
		t.Errorf("failed_index = %v", resp.Error.Details["failed_index"])
	}
	results, _ := resp.Error.Details["results"].([]any)
	if len(results) != 1 {
		t.Errorf("partial results = %v", resp.Error.Details["results"])
	}
	if len(metrics.Scheduled) != 1 || metrics.Scheduled[0] != 1 {
		t.Errorf("scheduled metrics = %v", metrics.Scheduled)
	}
	if len(metrics.DispatchFailures) != 1 || metrics.DispatchFailures[0] != 503 {
		t.Errorf("failure metrics = %v", metrics.DispatchFailures)
	}
}

func TestHandleSchedule_ScheduleErrorBeforeDispatch(t *testing.T) {
	svc := &mockSchedulingService{err: types.NewInvalidScheduleError(
		types.ErrCodeValidationInvalidSchedule, "02:30 does not exist on 2026-03-08 in America/New_York", nil)}
	metrics := &core.MockMetricsCollector{}
	rec := postJSON(makeScheduleRouter(svc, metrics), "/v1/schedule",
		`{"tweets":["a"],"socialAccountIds":["x"]}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(metrics.DispatchFailures) != 0 {
		t.Error("validation failures are not dispatch failures")
	}
}
