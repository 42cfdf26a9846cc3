package api

import (
	"context"
	"sync"
)

// Call is the future for one issued request. It resolves exactly once, with
// the same event handlers receive.
type Call struct {
	Handle    Handle
	Op        Operation
	Method    string
	Path      string
	RequestID string

	once sync.Once
	done chan struct{}
	ev   Event
}

func newCall(h Handle, req Request, requestID string) *Call {
	return &Call{
		Handle:    h,
		Op:        req.Op,
		Method:    req.Method,
		Path:      req.Path,
		RequestID: requestID,
		done:      make(chan struct{}),
	}
}

// Done is closed once the call has an outcome.
func (c *Call) Done() <-chan struct{} { return c.done }

// Event returns the outcome, or nil while the call is still pending.
func (c *Call) Event() Event {
	select {
	case <-c.done:
		return c.ev
	default:
		return nil
	}
}

// Wait blocks until the call resolves or ctx ends. Giving up on the wait does
// not cancel the request.
func (c *Call) Wait(ctx context.Context) (Event, error) {
	select {
	case <-c.done:
		return c.ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Call) resolve(ev Event) bool {
	resolved := false
	c.once.Do(func() {
		c.ev = ev
		close(c.done)
		resolved = true
	})
	return resolved
}
