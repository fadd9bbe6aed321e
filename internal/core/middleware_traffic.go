package core

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dailypost/internal/types"
)

// rateLimitWindow is the window RATE_LIMIT_PER_MINUTE is expressed in.
const rateLimitWindow = time.Minute

// RateLimit bounds POST requests per client IP. Both POST operations call a
// paid upstream (the language model or the publishing service); reads pass
// through. A nil store or a zero limit disables the middleware.
//
// Every limited request gets X-RateLimit-* headers; a rejected one also gets
// Retry-After and a 429 rate_limited_client error.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := s.rateLimitPerMinute()
		if s.RateLimitStore == nil || limit <= 0 || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := extractClientIP(r, s.trustedProxyHops())
		result, err := s.RateLimitStore.IncrementAndCheck(r.Context(), clientIP, limit, rateLimitWindow)
		if err != nil {
			// Fail open: a store outage must not block all traffic.
			s.Logger.Error("rate limit store error",
				slog.String("client_ip", clientIP),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, limit, result)

		if !result.Allowed {
			s.Logger.Warn("rate limit exceeded",
				slog.String("client_ip", clientIP),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			Error(w, r, types.NewAppError(
				types.ErrCodeRateLimitedClient,
				"Rate limit exceeded. Please retry after the reset time.",
				nil,
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitPerMinute() int {
	if s.Config == nil {
		return 0
	}
	return s.Config.Security.RateLimitPerMinute
}

func (s *Server) trustedProxyHops() int {
	if s.Config == nil {
		return 0
	}
	return s.Config.Security.TrustedProxyHops
}

// setRateLimitHeaders writes the standard X-RateLimit-* headers to the response.
func setRateLimitHeaders(w http.ResponseWriter, limit int, result RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// extractClientIP returns the address the rate limit is keyed on.
//
// With trustedHops == 0 only RemoteAddr is used (in Lambda it holds the API
// Gateway source IP). Behind trustedHops reverse proxies, each of which
// appends the address it received the request from, the client is the entry
// trustedHops positions from the right of X-Forwarded-For. Entries further
// left are client-supplied and ignored. A header shorter than trustedHops
// falls back to RemoteAddr.
func extractClientIP(r *http.Request, trustedHops int) string {
	if trustedHops > 0 {
		var hops []string
		for _, v := range r.Header.Values("X-Forwarded-For") {
			for _, part := range strings.Split(v, ",") {
				hops = append(hops, strings.TrimSpace(part))
			}
		}
		if len(hops) >= trustedHops {
			if ip := hops[len(hops)-trustedHops]; ip != "" {
				return ip
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr may not have a port (e.g., in tests or Lambda).
		return r.RemoteAddr
	}
	return ip
}

// defaultMaxBuckets bounds the number of keys a TokenBucketStore tracks.
const defaultMaxBuckets = 10000

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	window   time.Duration
}

// TokenBucketStore is an in-process RateLimitStore with one token bucket per
// key. Buckets refill continuously at limit/window and hold at most limit
// tokens. Each process (or Lambda instance) keeps its own buckets.
//
// A bucket left idle for a whole window is full again, so it is dropped;
// idle buckets are swept at most once per window. When maxBuckets keys are
// still live, the least recently seen one is evicted to admit a new key.
type TokenBucketStore struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxBuckets int
	lastSweep  time.Time
	now        func() time.Time
}

// NewTokenBucketStore creates an empty TokenBucketStore.
func NewTokenBucketStore() *TokenBucketStore {
	return &TokenBucketStore{
		buckets:    make(map[string]*bucket),
		maxBuckets: defaultMaxBuckets,
		now:        time.Now,
	}
}

// IncrementAndCheck implements RateLimitStore.
func (s *TokenBucketStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	every := rate.Every(window / time.Duration(limit))
	now := s.now()

	s.mu.Lock()
	if now.Sub(s.lastSweep) >= window {
		s.sweepIdle(now)
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok || b.limiter.Burst() != limit || b.limiter.Limit() != every {
		if !ok && len(s.buckets) >= s.maxBuckets {
			s.sweepIdle(now)
			if len(s.buckets) >= s.maxBuckets {
				s.evictOldest()
			}
		}
		b = &bucket{limiter: rate.NewLimiter(every, limit)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	b.window = window

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	s.mu.Unlock()

	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now
	if tokens < 1 {
		missing := 1 - tokens
		resetAt = now.Add(time.Duration(missing * float64(window) / float64(limit)))
	}

	return RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Len reports the number of tracked keys.
func (s *TokenBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// sweepIdle drops buckets unused for at least their window. Caller holds mu.
func (s *TokenBucketStore) sweepIdle(now time.Time) {
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) >= b.window {
			delete(s.buckets, key)
		}
	}
}

// evictOldest drops the least recently seen bucket. Caller holds mu.
func (s *TokenBucketStore) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, b := range s.buckets {
		if !found || b.lastSeen.Before(oldest) {
			oldestKey, oldest, found = key, b.lastSeen, true
		}
	}
	if found {
		delete(s.buckets, oldestKey)
	}
}
