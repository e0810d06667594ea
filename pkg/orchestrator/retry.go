package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// backoffDelay returns the wait before retry attempt n (0-based): the base
// delay doubling each attempt, capped.
func backoffDelay(base, cap time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}

// retriable reports whether an external-call failure is transient: an
// explicit transient submission error, or a timeout.
func retriable(err error) bool {
	return domain.IsTransientSubmission(err) || errors.Is(err, context.DeadlineExceeded)
}

// callExternal runs fn under the configured call timeout.
func (o *Orchestrator) callExternal(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

// retryExternal runs fn with the timeout and backoff policy: up to
// MaxRetries additional attempts for transient failures, exponential delay
// between attempts. Permanent failures return immediately.
func (o *Orchestrator) retryExternal(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = o.callExternal(ctx, fn)
		if err == nil {
			return nil
		}
		if !retriable(err) || attempt >= o.cfg.MaxRetries {
			return err
		}

		delay := backoffDelay(o.cfg.BackoffBase, o.cfg.BackoffCap, attempt)
		o.metrics.Retries.Inc()
		o.logger.Warn("retrying external call",
			"op", op,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
