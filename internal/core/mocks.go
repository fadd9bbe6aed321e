package core

import (
	"context"
	"sync"
	"time"
)

// --- MockMetricsCollector ---

// MockMetricsCollector implements MetricsCollector in memory. Handler and
// middleware tests inspect the recorded calls.
type MockMetricsCollector struct {
	mu sync.Mutex

	Requests         []RequestMetric
	Segments         []SegmentMetric
	Scheduled        []int
	DispatchFailures []int
}

// RequestMetric records the arguments of one RecordRequest call.
type RequestMetric struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

// SegmentMetric records the arguments of one RecordSegment call.
type SegmentMetric struct {
	Provider string
	Items    int
}

// RecordRequest implements MetricsCollector.
func (m *MockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, RequestMetric{Method: method, Endpoint: endpoint, Status: status, Duration: duration})
}

// RecordSegment implements MetricsCollector.
func (m *MockMetricsCollector) RecordSegment(_ context.Context, provider string, items int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Segments = append(m.Segments, SegmentMetric{Provider: provider, Items: items})
}

// RecordScheduled implements MetricsCollector.
func (m *MockMetricsCollector) RecordScheduled(_ context.Context, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scheduled = append(m.Scheduled, count)
}

// RecordDispatchFailure implements MetricsCollector.
func (m *MockMetricsCollector) RecordDispatchFailure(_ context.Context, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DispatchFailures = append(m.DispatchFailures, status)
}

// --- MockRateLimitStore ---

// MockRateLimitStore implements the RateLimitStore interface for testing.
//
// Usage:
//
//	mock := &MockRateLimitStore{
//	    Result: RateLimitResult{Allowed: false, Remaining: 0, ResetAt: time.Now().Add(time.Minute)},
//	}
type MockRateLimitStore struct {
	// Result is the predefined RateLimitResult returned by IncrementAndCheck.
	Result RateLimitResult

	// Err is returned alongside Result when set.
	Err error

	mu sync.Mutex

	// Calls records every invocation for assertion purposes.
	Calls []RateLimitCall
}

// RateLimitCall records the arguments of a single IncrementAndCheck invocation.
type RateLimitCall struct {
	Key    string
	Limit  int
	Window time.Duration
}

// IncrementAndCheck implements the RateLimitStore interface.
func (m *MockRateLimitStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RateLimitCall{Key: key, Limit: limit, Window: window})
	m.mu.Unlock()

	return m.Result, m.Err
}

// --- MockHealthProbe ---

// MockHealthProbe implements HealthProbe. Delay simulates a slow dependency
// and honors the context deadline only when RespectContext is set.
type MockHealthProbe struct {
	ProbeName      string
	Err            error
	Delay          time.Duration
	RespectContext bool
	Panic          bool
}

// Name implements HealthProbe.
func (p *MockHealthProbe) Name() string { return p.ProbeName }

// Check implements HealthProbe.
func (p *MockHealthProbe) Check(ctx context.Context) error {
	if p.Panic {
		panic("probe exploded")
	}
	if p.Delay > 0 {
		if p.RespectContext {
			select {
			case <-time.After(p.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			time.Sleep(p.Delay)
		}
	}
	return p.Err
}
