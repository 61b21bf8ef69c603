package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type scriptCall struct {
	keys []string
	args []any
}

// fakeScripter answers EVALSHA with a canned token bucket result.
type fakeScripter struct {
	redis.Scripter
	result any
	err    error
	calls  []scriptCall
}

func (f *fakeScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	f.calls = append(f.calls, scriptCall{keys: keys, args: args})
	return redis.NewCmdResult(f.result, f.err)
}

func (f *fakeScripter) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, "", keys, args...)
}

func TestRedisLimiter_Allow(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

	t.Run("passes bucket parameters and decodes the result", func(t *testing.T) {
		t.Parallel()
		client := &fakeScripter{result: []any{int64(0), int64(0), int64(2500)}}
		limiter := NewRedisLimiter(client, 5, 30*time.Second)
		limiter.now = func() time.Time { return now }

		decision, err := limiter.Allow(context.Background(), "203.0.113.9")
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if decision.Allowed || decision.RetryAfter != 2500*time.Millisecond {
			t.Fatalf("unexpected decision %+v", decision)
		}

		if len(client.calls) != 1 {
			t.Fatalf("expected one script call, got %d", len(client.calls))
		}
		call := client.calls[0]
		if call.keys[0] != "homevisit:ratelimit:203.0.113.9" {
			t.Fatalf("unexpected key %q", call.keys[0])
		}
		if call.args[0] != now.UnixMilli() || call.args[1] != 5 || call.args[2] != int64(30000) {
			t.Fatalf("unexpected args %v", call.args)
		}
	})

	t.Run("allows while tokens remain", func(t *testing.T) {
		t.Parallel()
		client := &fakeScripter{result: []any{int64(1), int64(9), int64(0)}}
		decision, err := NewRedisLimiter(client, 10, time.Minute).Allow(context.Background(), "k")
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !decision.Allowed || decision.Remaining != 9 {
			t.Fatalf("unexpected decision %+v", decision)
		}
	})

	t.Run("reports redis failures", func(t *testing.T) {
		t.Parallel()
		client := &fakeScripter{err: errors.New("dial tcp: connection refused")}
		if _, err := NewRedisLimiter(client, 10, time.Minute).Allow(context.Background(), "k"); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("rejects malformed replies", func(t *testing.T) {
		t.Parallel()
		client := &fakeScripter{result: []any{int64(1)}}
		if _, err := NewRedisLimiter(client, 10, time.Minute).Allow(context.Background(), "k"); err == nil {
			t.Fatalf("expected error")
		}
	})
}
