package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"story-automation/internal/platform/metrics"
)

// DefaultMaxAttempts is how many times a session is tried before giving up.
const DefaultMaxAttempts = 3

const (
	baseBackoff = time.Second
	maxBackoff  = 30 * time.Second
)

// ErrRetriesExhausted is returned when every attempt of a session failed.
var ErrRetriesExhausted = errors.New("all attempts failed")

// SessionExecutor runs one unrecorded pipeline attempt.
type SessionExecutor interface {
	Execute(ctx context.Context) SessionResult
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the wait after the given failed attempt (1-based):
// 1s, 2s, 4s, ... capped at 30s.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 5 {
		return maxBackoff
	}
	d := baseBackoff << shift
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// RetryController wraps session attempts with bounded exponential backoff and
// records one history entry per retried session.
type RetryController struct {
	sessions SessionExecutor
	history  Recorder
	log      *slog.Logger
	metrics  *metrics.Metrics
	sleep    Sleeper
	now      func() time.Time
}

// RetryOption configures a RetryController.
type RetryOption func(*RetryController)

// WithSleeper replaces the backoff wait; tests use it to avoid real sleeps.
func WithSleeper(s Sleeper) RetryOption {
	return func(r *RetryController) { r.sleep = s }
}

// NewRetryController returns a RetryController around sessions. Metrics may be
// nil to disable metric recording (e.g. in tests).
func NewRetryController(sessions SessionExecutor, history Recorder, log *slog.Logger, m *metrics.Metrics, opts ...RetryOption) *RetryController {
	r := &RetryController{
		sessions: sessions,
		history:  history,
		log:      log,
		metrics:  m,
		sleep:    SleepContext,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunWithRetry runs up to maxAttempts attempts (DefaultMaxAttempts if <= 0),
// returning on the first success. After the last failed attempt it returns
// that attempt's result and an error wrapping ErrRetriesExhausted and the
// attempt's cause. trigger labels the session in logs and history.
func (r *RetryController) RunWithRetry(ctx context.Context, trigger string, maxAttempts int) (SessionResult, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	log := r.log.With(slog.String("trigger", trigger))

	var res SessionResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		log.Info("attempt starting", slog.Int("attempt", attempt), slog.Int("max_attempts", maxAttempts))
		if r.metrics != nil {
			r.metrics.IncAttempts()
		}

		res = r.sessions.Execute(ctx)
		res.Trigger = trigger
		res.Attempts = attempt

		if res.Success {
			log.Info("attempt succeeded",
				slog.Int("attempt", attempt),
				slog.String("session_id", res.SessionID),
				slog.String("video_id", res.VideoID),
				slog.String("title", res.Title),
				slog.Int64("duration_ms", res.DurationMs))
			r.finish(res)
			return res, nil
		}

		log.Error("attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.String("session_id", res.SessionID),
			slog.String("error", res.Error))

		if attempt == maxAttempts {
			break
		}

		wait := Backoff(attempt)
		log.Info("waiting before retry", slog.Int64("wait_ms", wait.Milliseconds()))
		if err := r.sleep(ctx, wait); err != nil {
			r.finish(res)
			return res, fmt.Errorf("retry aborted after attempt %d: %w", attempt, err)
		}
	}

	log.Error("all attempts failed, giving up", slog.Int("max_attempts", maxAttempts))
	r.finish(res)
	cause := res.Cause
	if cause == nil {
		cause = errors.New(res.Error)
	}
	return res, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, cause)
}

func (r *RetryController) finish(res SessionResult) {
	if r.metrics != nil {
		r.metrics.ObserveSession(res.Success, res.FinishedAt)
	}
	if r.history == nil {
		return
	}
	if err := r.history.Append(HistoryEntry{SessionResult: res, Timestamp: r.now().UTC()}); err != nil {
		r.log.Error("record session failed",
			slog.String("session_id", res.SessionID),
			slog.String("error", err.Error()))
	}
}
