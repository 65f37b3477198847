// Package retry runs provider calls with per-attempt timeouts and capped
// exponential backoff between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/HerbHall/plangen/pkg/llm"
	"golang.org/x/time/rate"
)

var errAttemptTimeout = errors.New("attempt timed out")

// Policy configures Do. The zero value is usable; unset fields take the
// values from DefaultPolicy.
type Policy struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`

	// Limiter paces attempts client-side when non-nil.
	Limiter *rate.Limiter `mapstructure:"-"`

	// Sleep waits between attempts. Tests replace it to record delays.
	Sleep func(ctx context.Context, d time.Duration) error `mapstructure:"-"`

	// OnRetry is called before each backoff wait with the 1-based number
	// of the attempt that failed.
	OnRetry func(attempt int, delay time.Duration, err error) `mapstructure:"-"`
}

// DefaultPolicy returns 3 attempts, a 60s attempt timeout and backoff of
// 1s doubling up to 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Timeout:     60 * time.Second,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	return p
}

// Backoff returns the wait after the given failed attempt (1-based):
// min(BaseDelay * 2^(attempt-1), MaxDelay).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

// Do calls fn until it succeeds, returns an error that llm.IsRetryable
// rejects, or MaxAttempts is reached.
//
// Each call gets its own context, cancelled if fn has not returned within
// Timeout; the timeout is reported as an llm timeout error. Once fn returns
// successfully the timer is stopped but the context stays live so a
// response body can still be read. The returned release func cancels it
// and must be called when the caller is done with the result.
//
// Exhausting all attempts yields an llm.ErrCodeExhaustedRetries error
// wrapping the last failure. Cancellation of ctx ends the loop immediately
// with ctx.Err().
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, func(), error) {
	p = p.withDefaults()
	var zero T

	for attempt := 1; ; attempt++ {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return zero, nil, err
			}
		}

		attemptCtx, cancel := context.WithCancelCause(ctx)
		timer := time.AfterFunc(p.Timeout, func() { cancel(errAttemptTimeout) })

		v, err := fn(attemptCtx)
		timer.Stop()

		if err == nil {
			return v, func() { cancel(context.Canceled) }, nil
		}

		timedOut := errors.Is(context.Cause(attemptCtx), errAttemptTimeout)
		cancel(context.Canceled)

		if ctx.Err() != nil {
			return zero, nil, ctx.Err()
		}
		if timedOut && !llm.IsTimeoutError(err) {
			err = llm.NewTimeoutError(err)
		}
		if !llm.IsRetryable(err) {
			return zero, nil, err
		}
		if attempt >= p.MaxAttempts {
			return zero, nil, llm.NewExhaustedRetriesError(attempt, err)
		}

		delay := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := p.Sleep(ctx, delay); err != nil {
			return zero, nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
