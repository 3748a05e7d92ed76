package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/chro-finder/internal/model"
)

// RetryConfig controls how adapter queries are retried.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// RateLimitDelay is the fixed sleep before retrying a rate-limited
	// attempt. The rate-limited providers recover on a fixed cadence, so
	// this is deliberately not exponential. Default: 10s.
	RateLimitDelay time.Duration

	// OnRetry is called before each retry with the attempt number just
	// completed and its outcome. Callers use it to reset a stale session
	// before the next attempt.
	OnRetry func(attempt int, outcome model.Outcome)
}

// DefaultRetryConfig returns the retry policy used for all four sources.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		RateLimitDelay: 10 * time.Second,
	}
}

// QueryFunc is one adapter invocation for one company.
type QueryFunc func(ctx context.Context) model.RawSourceResult

// QueryWithRetry invokes op until it succeeds or attempts are exhausted.
// Rate-limited attempts sleep RateLimitDelay before retrying; errors and
// timeouts retry immediately. The returned result always has a terminal
// outcome: Success, or Error after exhaustion. It never panics and never
// returns a RateLimited or Timeout outcome to the caller.
func QueryWithRetry(ctx context.Context, cfg RetryConfig, source model.SourceID, company string, op QueryFunc) model.RawSourceResult {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = 10 * time.Second
	}

	log := zap.L().With(
		zap.String("source", string(source)),
		zap.String("company", company),
	)

	var last model.RawSourceResult
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return cancelled(source, company, ctx.Err())
		}

		last = op(ctx)
		if last.Outcome.OK() {
			return last
		}

		log.Warn("source attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.String("outcome", string(last.Outcome.Kind)),
			zap.String("reason", last.Outcome.Message),
		)

		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, last.Outcome)
		}

		if last.Outcome.Kind == model.OutcomeRateLimited {
			timer := time.NewTimer(cfg.RateLimitDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return cancelled(source, company, ctx.Err())
			case <-timer.C:
			}
		}
	}

	// Terminal conversion: the orchestrator always gets a result it can
	// reconcile, never an exception to handle.
	return model.RawSourceResult{
		Company:   company,
		Source:    source,
		RawText:   last.RawText,
		FetchedAt: time.Now().UTC(),
		Outcome:   model.Failure("max retries exceeded: " + last.Outcome.Message),
	}
}

func cancelled(source model.SourceID, company string, err error) model.RawSourceResult {
	return model.RawSourceResult{
		Company:   company,
		Source:    source,
		FetchedAt: time.Now().UTC(),
		Outcome:   model.Failure("cancelled: " + err.Error()),
	}
}
