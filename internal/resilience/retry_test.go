package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sells-group/chro-finder/internal/model"
)

func result(outcome model.Outcome) model.RawSourceResult {
	return model.RawSourceResult{
		Company:   "Acme",
		Source:    model.SourceGemini,
		RawText:   "raw",
		FetchedAt: time.Now().UTC(),
		Outcome:   outcome,
	}
}

func TestQueryWithRetry_SuccessFirstAttempt(t *testing.T) {
	var calls int
	got := QueryWithRetry(context.Background(), DefaultRetryConfig(), model.SourceGemini, "Acme",
		func(_ context.Context) model.RawSourceResult {
			calls++
			return result(model.Success())
		})
	if !got.Outcome.OK() {
		t.Fatalf("expected success, got %v", got.Outcome)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestQueryWithRetry_FailsTwiceThenSucceeds(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 3, RateLimitDelay: time.Millisecond}

	got := QueryWithRetry(context.Background(), cfg, model.SourceGemini, "Acme",
		func(_ context.Context) model.RawSourceResult {
			calls++
			if calls < 3 {
				return result(model.Failure("flaky selector"))
			}
			return result(model.Success())
		})

	if !got.Outcome.OK() {
		t.Fatalf("expected success, got %v", got.Outcome)
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", calls)
	}
}

func TestQueryWithRetry_ExhaustionConvertsToTerminalError(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 3, RateLimitDelay: time.Millisecond}

	got := QueryWithRetry(context.Background(), cfg, model.SourceChatGPT, "Acme",
		func(_ context.Context) model.RawSourceResult {
			calls++
			return result(model.Timeout("deadline exceeded"))
		})

	if calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", calls)
	}
	if got.Outcome.Kind != model.OutcomeError {
		t.Fatalf("expected terminal error outcome, got %v", got.Outcome.Kind)
	}
	if want := "max retries exceeded"; len(got.Outcome.Message) < len(want) || got.Outcome.Message[:len(want)] != want {
		t.Errorf("expected %q prefix, got %q", want, got.Outcome.Message)
	}
}

func TestQueryWithRetry_RateLimitSleepsFixedDelay(t *testing.T) {
	var calls int
	delay := 30 * time.Millisecond
	cfg := RetryConfig{MaxAttempts: 2, RateLimitDelay: delay}

	start := time.Now()
	got := QueryWithRetry(context.Background(), cfg, model.SourcePerplexity, "Acme",
		func(_ context.Context) model.RawSourceResult {
			calls++
			if calls == 1 {
				return result(model.RateLimited("quota exhausted"))
			}
			return result(model.Success())
		})

	if !got.Outcome.OK() {
		t.Fatalf("expected success, got %v", got.Outcome)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("expected fixed %v sleep before retry, elapsed %v", delay, elapsed)
	}
}

func TestQueryWithRetry_ErrorRetriesWithoutDelay(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 3, RateLimitDelay: 5 * time.Second}

	start := time.Now()
	QueryWithRetry(context.Background(), cfg, model.SourceLinkedIn, "Acme",
		func(_ context.Context) model.RawSourceResult {
			calls++
			return result(model.Failure("boom"))
		})

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("generic errors must retry immediately, elapsed %v", elapsed)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestQueryWithRetry_OnRetryResetsSession(t *testing.T) {
	var resets int
	cfg := RetryConfig{
		MaxAttempts:    3,
		RateLimitDelay: time.Millisecond,
		OnRetry:        func(_ int, _ model.Outcome) { resets++ },
	}

	QueryWithRetry(context.Background(), cfg, model.SourceChatGPT, "Acme",
		func(_ context.Context) model.RawSourceResult {
			return result(model.Failure("stale page"))
		})

	// OnRetry fires between attempts, not after the last one.
	if resets != 2 {
		t.Errorf("expected 2 reset callbacks, got %d", resets)
	}
}

func TestQueryWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := QueryWithRetry(ctx, DefaultRetryConfig(), model.SourceGemini, "Acme",
		func(_ context.Context) model.RawSourceResult {
			t.Fatal("op must not run after cancellation")
			return model.RawSourceResult{}
		})

	if got.Outcome.Kind != model.OutcomeError {
		t.Fatalf("expected terminal error outcome, got %v", got.Outcome.Kind)
	}
}

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewRateLimitError(errors.New("slow down"), 429), true},
		{errors.New("unexpected status 429: too many requests"), true},
		{errors.New("resource exhausted"), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsRateLimit(tt.err); got != tt.want {
			t.Errorf("IsRateLimit(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(context.DeadlineExceeded) {
		t.Error("deadline exceeded must classify as timeout")
	}
	if IsTimeout(errors.New("bad credentials")) {
		t.Error("credential errors are not timeouts")
	}
}
