package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/logger"
	"startup-match-workers/internal/common/metrics"
)

type RetryConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

// Retrying bounds every attempt with AttemptTimeout and retries transient
// failures with exponential backoff. Its errors are always StandardErrors:
// LLM_TIMEOUT when the last failure was a deadline, the validator's own error
// when the last answer was rejected, LLM_INVOCATION_FAILED otherwise.
type Retrying struct {
	next   Invoker
	cfg    RetryConfig
	logger logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func WithRetry(next Invoker, cfg RetryConfig, log logger.Logger) *Retrying {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 300 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return &Retrying{
		next:   next,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"invoker": next.Name()}),
		sleep:  sleepCtx,
	}
}

func (r *Retrying) Name() string { return r.next.Name() }

func (r *Retrying) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	var last error
	timedOut := false

	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
				timedOut = true
				last = err
				break
			}
		}

		raw, err := r.attempt(ctx, req)
		if err == nil && req.Validate != nil {
			if verr := req.Validate(raw); verr != nil {
				metrics.LLMAttempts.WithLabelValues(r.next.Name(), "invalid").Inc()
				r.logger.Warn("llm answer rejected", map[string]interface{}{
					"attempt": attempt + 1,
					"error":   verr.Error(),
				})
				last, timedOut = verr, false
				continue
			}
		}
		if err == nil {
			metrics.LLMAttempts.WithLabelValues(r.next.Name(), "ok").Inc()
			return raw, nil
		}

		last = err
		timedOut = errors.Is(err, context.DeadlineExceeded)
		metrics.LLMAttempts.WithLabelValues(r.next.Name(), attemptResult(timedOut)).Inc()

		r.logger.Warn("llm attempt failed", map[string]interface{}{
			"attempt":     attempt + 1,
			"maxAttempts": r.cfg.MaxAttempts,
			"timeout":     timedOut,
			"error":       err.Error(),
		})

		if IsPermanent(err) || ctx.Err() != nil {
			timedOut = timedOut || ctx.Err() != nil
			break
		}
	}

	if timedOut {
		return nil, apperrors.NewLLMTimeoutError(r.cfg.AttemptTimeout)
	}
	var stdErr *apperrors.StandardError
	if errors.As(last, &stdErr) {
		return nil, stdErr
	}
	return nil, apperrors.NewLLMInvocationFailedError(last)
}

func (r *Retrying) attempt(ctx context.Context, req Request) (json.RawMessage, error) {
	if r.cfg.AttemptTimeout <= 0 {
		return r.next.Invoke(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
	defer cancel()

	raw, err := r.next.Invoke(attemptCtx, req)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded && !errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(err, context.DeadlineExceeded)
	}
	return raw, err
}

func (r *Retrying) backoff(attempt int) time.Duration {
	d := r.cfg.BaseDelay * time.Duration(1<<(attempt-1))
	if d > r.cfg.MaxDelay {
		d = r.cfg.MaxDelay
	}
	return d
}

func attemptResult(timedOut bool) string {
	if timedOut {
		return "timeout"
	}
	return "error"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
