package core

import (
	"context"
	"time"
)

// MetricsCollector records API telemetry. Implementations publish to
// CloudWatch or an equivalent backend.
type MetricsCollector interface {
	// RecordRequest records request latency and count.
	RecordRequest(method, endpoint, status string, duration time.Duration)

	// RecordSegment records how many posts a segmentation call produced.
	RecordSegment(ctx context.Context, provider string, items int)

	// RecordScheduled records posts created by one schedule call.
	RecordScheduled(ctx context.Context, count int)

	// RecordDispatchFailure records a schedule call that stopped early.
	RecordDispatchFailure(ctx context.Context, status int)
}

// RateLimitStore abstracts the backing store for rate limiting.
type RateLimitStore interface {
	// IncrementAndCheck consumes one request for key and reports whether it
	// is within limit requests per window.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	// Allowed indicates whether the request is within the rate limit.
	Allowed bool
	// Remaining is the number of requests remaining in the current window.
	Remaining int
	// ResetAt is the time when at least one more request will be allowed.
	ResetAt time.Time
}

// HealthProbe is one subsystem check run by HandleHealth.
type HealthProbe interface {
	// Name identifies the probe in the health response.
	Name() string

	// Check returns an error if the subsystem is unhealthy. It must respect
	// the context deadline.
	Check(ctx context.Context) error
}
