// Package debounce delays an action until input has been quiet for a fixed
// interval. A newer input cancels the pending or running action, and results of
// a superseded action are never delivered.
package debounce

import (
	"context"
	"sync"
	"time"
)

// DefaultDelay is the quiet interval used for search-as-you-type.
const DefaultDelay = 500 * time.Millisecond

// Func runs the debounced action for one input.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Result is the outcome of the latest input.
type Result[In, Out any] struct {
	Input In
	Value Out
	Err   error
}

type Debouncer[In, Out any] struct {
	delay   time.Duration
	fn      Func[In, Out]
	deliver func(Result[In, Out])

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// New returns a debouncer that calls fn after delay and passes the result to
// deliver, unless a newer Trigger came first.
func New[In, Out any](delay time.Duration, fn Func[In, Out], deliver func(Result[In, Out])) *Debouncer[In, Out] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[In, Out]{delay: delay, fn: fn, deliver: deliver}
}

// Trigger records a new input and restarts the quiet interval.
func (d *Debouncer[In, Out]) Trigger(parent context.Context, in In) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.seq++
	seq := d.seq
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel

	d.timer = time.AfterFunc(d.delay, func() {
		defer cancel()
		out, err := d.fn(ctx, in)
		d.mu.Lock()
		current := seq == d.seq
		d.mu.Unlock()
		if !current || ctx.Err() != nil {
			return
		}
		d.deliver(Result[In, Out]{Input: in, Value: out, Err: err})
	})
}

// Stop cancels any pending or running action.
func (d *Debouncer[In, Out]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.seq++
}

func (d *Debouncer[In, Out]) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}
}
