package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"dailypost/internal/external"
	"dailypost/internal/types"
)

// --- Mocks ---

// fakePublisher records CreatePost calls and fails the call at failAt.
type fakePublisher struct {
	calls   []types.CreatePostInput
	keys    []string
	failAt  int
	failErr error
	key     types.SecretString
	shared  *fakePublisher
}

func newFakePublisher() *fakePublisher {
	f := &fakePublisher{failAt: -1, key: "configured"}
	f.shared = f
	return f
}

func (f *fakePublisher) ListSocialAccounts(context.Context) ([]types.SocialAccount, error) {
	return nil, nil
}

func (f *fakePublisher) CreatePost(_ context.Context, input types.CreatePostInput) (*types.CreatedPost, error) {
	rec := f.shared
	idx := len(rec.calls)
	rec.calls = append(rec.calls, input)
	rec.keys = append(rec.keys, f.key.Unmask())
	if idx == rec.failAt {
		return nil, rec.failErr
	}
	return &types.CreatedPost{ID: fmt.Sprintf("post-%d", idx)}, nil
}

func (f *fakePublisher) WithAPIKey(key types.SecretString) external.PublishingClient {
	clone := *f
	clone.key = key.Or(f.key)
	return &clone
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dailyInstants(n int) []time.Time {
	base := time.Date(2026, 5, 4, 13, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.AddDate(0, 0, i)
	}
	return out
}

// --- Tests ---

func TestDispatch_AllSucceed(t *testing.T) {
	pub := newFakePublisher()
	d := NewDispatcher(pub, quietLogger())

	items := []string{"one", "two", "three"}
	results, err := d.Dispatch(context.Background(), items, []string{"a1", "a2"}, dailyInstants(3), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 || len(pub.calls) != 3 {
		t.Fatalf("results=%d calls=%d, want 3 and 3", len(results), len(pub.calls))
	}

	for i, r := range results {
		if r.Index != i || r.Text != items[i] {
			t.Errorf("result %d = %+v", i, r)
		}
		if r.RemoteID != fmt.Sprintf("post-%d", i) {
			t.Errorf("result %d remote id = %q", i, r.RemoteID)
		}
		if pub.calls[i].Text != items[i] {
			t.Errorf("call %d text = %q, want %q", i, pub.calls[i].Text, items[i])
		}
		if len(pub.calls[i].SocialAccountIDs) != 2 {
			t.Errorf("call %d should carry every account id", i)
		}
	}
	if results[0].ScheduledAt != "2026-05-04T13:00:00Z" {
		t.Errorf("ScheduledAt = %q", results[0].ScheduledAt)
	}
}

func TestDispatch_StopsAtFirstFailure(t *testing.T) {
	for k := 0; k < 4; k++ {
		t.Run(fmt.Sprintf("fail_at_%d", k), func(t *testing.T) {
			pub := newFakePublisher()
			pub.failAt = k
			pub.failErr = &types.RemoteError{
				Service:    "postbridge",
				Operation:  "create post",
				StatusCode: 422,
				Body:       `{"error":"bad account"}`,
			}
			d := NewDispatcher(pub, quietLogger())

			results, err := d.Dispatch(context.Background(),
				[]string{"a", "b", "c", "d"}, []string{"acct"}, dailyInstants(4), "")

			if len(pub.calls) != k+1 {
				t.Errorf("calls = %d, want %d", len(pub.calls), k+1)
			}
			if len(results) != k {
				t.Errorf("results = %d, want %d", len(results), k)
			}

			var appErr *types.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *AppError, got %T: %v", err, err)
			}
			if appErr.Code != types.ErrCodeUpstreamDispatchFailed {
				t.Errorf("code = %s", appErr.Code)
			}
			if appErr.Details["failed_index"] != k {
				t.Errorf("failed_index = %v, want %d", appErr.Details["failed_index"], k)
			}
			if appErr.Details["scheduled_count"] != k {
				t.Errorf("scheduled_count = %v, want %d", appErr.Details["scheduled_count"], k)
			}
			if appErr.Details["status"] != 422 {
				t.Errorf("status = %v, want 422", appErr.Details["status"])
			}
			if appErr.Details["body"] != `{"error":"bad account"}` {
				t.Errorf("body = %v", appErr.Details["body"])
			}
			if appErr.HTTPStatus() != 502 {
				t.Errorf("HTTPStatus = %d, want 502", appErr.HTTPStatus())
			}
		})
	}
}

func TestDispatch_TransportFailureHasZeroStatus(t *testing.T) {
	pub := newFakePublisher()
	pub.failAt = 0
	pub.failErr = &types.RemoteError{Service: "postbridge", Operation: "create post", Body: "connection refused"}

	_, err := NewDispatcher(pub, quietLogger()).Dispatch(context.Background(),
		[]string{"a"}, []string{"acct"}, dailyInstants(1), "")

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %v", err)
	}
	if appErr.Details["status"] != 0 {
		t.Errorf("status = %v, want 0", appErr.Details["status"])
	}
	var remote *types.RemoteError
	if !errors.As(err, &remote) {
		t.Error("the remote error should stay in the chain")
	}
}

func TestDispatch_MissingCredentialPassesThrough(t *testing.T) {
	pub := newFakePublisher()
	pub.failAt = 0
	pub.failErr = types.NewMissingCredentialError("postbridge")

	_, err := NewDispatcher(pub, quietLogger()).Dispatch(context.Background(),
		[]string{"a", "b"}, []string{"acct"}, dailyInstants(2), "")

	if !types.IsCode(err, types.ErrCodeConfigMissingCredential) {
		t.Errorf("expected missing credential, got %v", err)
	}
	if len(pub.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(pub.calls))
	}
}

func TestDispatch_LengthMismatch(t *testing.T) {
	pub := newFakePublisher()
	_, err := NewDispatcher(pub, quietLogger()).Dispatch(context.Background(),
		[]string{"a", "b"}, []string{"acct"}, dailyInstants(1), "")

	if !types.IsCode(err, types.ErrCodeInternalUnexpected) {
		t.Errorf("expected internal error, got %v", err)
	}
	if len(pub.calls) != 0 {
		t.Errorf("no call should be made, got %d", len(pub.calls))
	}
}

func TestDispatch_CredentialOverride(t *testing.T) {
	pub := newFakePublisher()
	d := NewDispatcher(pub, quietLogger())

	if _, err := d.Dispatch(context.Background(), []string{"a"}, []string{"x"}, dailyInstants(1), "override"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Dispatch(context.Background(), []string{"b"}, []string{"x"}, dailyInstants(1), ""); err != nil {
		t.Fatal(err)
	}

	if pub.keys[0] != "override" {
		t.Errorf("first call key = %q, want override", pub.keys[0])
	}
	if pub.keys[1] != "configured" {
		t.Errorf("second call key = %q, want configured", pub.keys[1])
	}
}
