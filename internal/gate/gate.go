// Package gate collapses concurrent identical stage requests into a single
// upstream call.
package gate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Func is the expensive work guarded by the gate. The context it receives
// is detached from every caller and bounded only by the gate timeout.
type Func func(ctx context.Context) (any, error)

// Gate runs at most one Func per key at a time. Callers that arrive while
// a call is in flight wait for and share its outcome. Nothing is remembered
// after the call returns, so a failed key can be retried immediately.
type Gate struct {
	group    singleflight.Group
	timeout  time.Duration
	inFlight atomic.Int64
}

// New returns a Gate whose calls are bounded by timeout (zero means none).
func New(timeout time.Duration) *Gate {
	return &Gate{timeout: timeout}
}

// Do runs fn for key unless a call for key is already running, in which
// case it waits for that call. shared reports whether the result was
// delivered to more than one caller.
//
// If ctx ends first, Do returns ctx.Err() but the call keeps running so
// that its result still reaches the other waiters and any side effects of
// fn (such as caching) complete. Once the gate timeout passes every waiter
// is released with context.DeadlineExceeded, whether or not fn honours its
// context; fn is left to finish on its own.
func (g *Gate) Do(ctx context.Context, key string, fn Func) (v any, err error, shared bool) {
	ch := g.group.DoChan(key, func() (any, error) {
		g.inFlight.Add(1)
		defer g.inFlight.Add(-1)

		runCtx := context.WithoutCancel(ctx)
		if g.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, g.timeout)
			defer cancel()
		}

		done := make(chan result, 1)
		go func() {
			var res result
			// a panic here would take down the process; no handler can recover it
			defer func() {
				if r := recover(); r != nil {
					res = result{err: fmt.Errorf("gate: call %q panicked: %v", key, r)}
				}
				done <- res
			}()
			res.val, res.err = fn(runCtx)
		}()

		select {
		case res := <-done:
			return res.val, res.err
		case <-runCtx.Done():
			return nil, runCtx.Err()
		}
	})

	select {
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	case <-ctx.Done():
		return nil, ctx.Err(), false
	}
}

type result struct {
	val any
	err error
}

// InFlight returns the number of calls currently executing.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}
