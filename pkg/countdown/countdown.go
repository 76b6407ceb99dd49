// Package countdown runs a cancelable once-per-interval countdown, used to
// keep a login form disabled while a lock is active.
package countdown

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the time between ticks.
const DefaultInterval = time.Second

// Countdown is a running countdown. It is safe for concurrent use.
type Countdown struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	remaining int
	finished  bool
}

type options struct {
	interval time.Duration
}

// Option configures a countdown.
type Option func(*options)

// WithInterval overrides the tick interval.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// Start begins counting down from seconds. onTick receives the remaining
// count immediately and then once per interval down to 1; onDone runs when
// the count reaches zero. Cancelling ctx or calling Cancel stops the
// countdown without calling onDone. Either callback may be nil.
func Start(ctx context.Context, seconds int, onTick func(remaining int), onDone func(), opts ...Option) *Countdown {
	o := options{interval: DefaultInterval}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Countdown{
		cancel:    cancel,
		done:      make(chan struct{}),
		remaining: seconds,
	}

	if seconds <= 0 {
		c.finish()
		close(c.done)
		cancel()
		if onDone != nil {
			onDone()
		}
		return c
	}

	if onTick != nil {
		onTick(seconds)
	}

	go c.run(ctx, o.interval, onTick, onDone)
	return c
}

func (c *Countdown) run(ctx context.Context, interval time.Duration, onTick func(int), onDone func()) {
	defer close(c.done)
	defer c.cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := c.decrement()
			if remaining <= 0 {
				c.finish()
				if onDone != nil {
					onDone()
				}
				return
			}
			if onTick != nil {
				onTick(remaining)
			}
		}
	}
}

func (c *Countdown) decrement() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining--
	return c.remaining
}

func (c *Countdown) finish() {
	c.mu.Lock()
	c.finished = true
	c.remaining = 0
	c.mu.Unlock()
}

// Cancel stops the countdown. It is a no-op once the countdown has ended.
func (c *Countdown) Cancel() {
	c.cancel()
}

// Done is closed when the countdown stops, by finishing or cancellation.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

// Remaining returns the current count.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Finished reports whether the countdown reached zero.
func (c *Countdown) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Wait blocks until the countdown stops and reports whether it reached zero.
func (c *Countdown) Wait() bool {
	<-c.done
	return c.Finished()
}
