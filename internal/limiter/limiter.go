// Package limiter bounds how many work units run at once. Callers beyond
// the ceiling wait in a FIFO queue and are admitted in arrival order.
package limiter

import (
	"context"
	"sync"
	"time"
)

// Limiter admits at most Max concurrent work units. The zero value is not
// usable; construct one with New.
type Limiter struct {
	name string
	max  int

	mu      sync.Mutex
	running int
	queue   []chan struct{}
}

// New creates a limiter identified by name in metrics. A max below 1 is
// treated as 1.
func New(name string, max int) *Limiter {
	if max < 1 {
		max = 1
	}
	l := &Limiter{name: name, max: max}
	l.report()
	return l
}

// Run executes task once a slot is free. The slot is released when task
// returns or panics, and handed to the oldest waiter if there is one.
//
// If ctx ends while the caller is still queued, the waiter is removed and
// Run returns ctx.Err() without running task.
func (l *Limiter) Run(ctx context.Context, task func(context.Context) error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	return task(ctx)
}

// Do is Run for tasks that produce a value.
func Do[T any](ctx context.Context, l *Limiter, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := l.Run(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// Running reports how many units hold a slot.
func (l *Limiter) Running() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Queued reports how many callers are waiting.
func (l *Limiter) Queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Max returns the concurrency ceiling.
func (l *Limiter) Max() int { return l.max }

func (l *Limiter) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	l.mu.Lock()
	if l.running < l.max && len(l.queue) == 0 {
		l.running++
		l.report()
		l.mu.Unlock()
		waitSeconds.WithLabelValues(l.name).Observe(0)
		return nil
	}
	ready := make(chan struct{})
	l.queue = append(l.queue, ready)
	l.report()
	l.mu.Unlock()

	select {
	case <-ready:
		waitSeconds.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		removed := l.dequeue(ready)
		l.mu.Unlock()
		if !removed {
			// The slot was handed over as ctx ended; pass it on.
			l.release()
		}
		return ctx.Err()
	}
}

// release frees a slot, or transfers it directly to the head waiter so
// that running never drops below the number of admitted units.
func (l *Limiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) > 0 {
		next := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		close(next)
	} else {
		l.running--
	}
	l.report()
}

// dequeue removes ready from the queue. Must be called with l.mu held.
func (l *Limiter) dequeue(ready chan struct{}) bool {
	for i, w := range l.queue {
		if w == ready {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			l.report()
			return true
		}
	}
	return false
}

// report publishes gauges. Must be called with l.mu held.
func (l *Limiter) report() {
	runningGauge.WithLabelValues(l.name).Set(float64(l.running))
	queuedGauge.WithLabelValues(l.name).Set(float64(len(l.queue)))
}
