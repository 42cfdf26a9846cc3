// Package api dispatches flight-system requests and turns each response into
// exactly one typed event.
//
// A Client owns a single loop goroutine. Transport goroutines and deadline
// timers never touch client state directly; they post messages to the loop,
// which keeps the pending set, updates the session and fans events out to
// handlers in order.
package api

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/flightdesk/internal/clock"
	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/session"
	"github.com/unkn0wn-root/flightdesk/internal/transport"
)

const DefaultRequestTimeout = 30 * time.Second

const tracerName = "github.com/unkn0wn-root/flightdesk/internal/api"

var ErrClosed = errdef.New(errdef.CodeTransport, "client closed")

// Handler observes every terminal event. Handlers run on the loop goroutine
// and may issue further requests.
type Handler func(Event)

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithTimeout sets the per-request deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithHandler(h Handler) Option {
	return func(c *Client) {
		if h != nil {
			c.Subscribe(h)
		}
	}
}

type Client struct {
	sess    *session.Session
	doer    transport.Doer
	clock   clock.Clock
	timeout time.Duration
	log     *zap.Logger
	tracer  trace.Tracer
	prop    propagation.TextMapPropagator

	nextHandle atomic.Uint64
	inflight   atomic.Int64

	closeMu sync.RWMutex
	closed  bool

	hmu      sync.Mutex
	hseq     int
	handlers []subscription

	issueCh   chan *pending
	doneCh    chan completion
	timeoutCh chan Handle
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type subscription struct {
	id int
	fn Handler
}

type pending struct {
	call    *Call
	meta    Meta
	httpReq *http.Request
	start   time.Time
	cancel  context.CancelFunc
	span    trace.Span
	timer   clock.Timer
	aborted bool
}

type completion struct {
	handle Handle
	resp   *transport.Response
	err    error
}

// New starts the client loop. Close must be called to stop it.
func New(sess *session.Session, doer transport.Doer, opts ...Option) *Client {
	if sess == nil {
		sess = session.New("")
	}
	c := &Client{
		sess:      sess,
		doer:      doer,
		clock:     clock.Real(),
		timeout:   DefaultRequestTimeout,
		log:       zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
		prop:      otel.GetTextMapPropagator(),
		issueCh:   make(chan *pending, 64),
		doneCh:    make(chan completion),
		timeoutCh: make(chan Handle),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

func (c *Client) Session() *session.Session { return c.sess }

func (c *Client) Timeout() time.Duration { return c.timeout }

// InFlight counts issued calls that have not yet produced their event.
func (c *Client) InFlight() int { return int(c.inflight.Load()) }

// Subscribe registers h for every subsequent event and returns a function that
// removes it.
func (c *Client) Subscribe(h Handler) func() {
	c.hmu.Lock()
	c.hseq++
	id := c.hseq
	c.handlers = append(c.handlers, subscription{id: id, fn: h})
	c.hmu.Unlock()

	return func() {
		c.hmu.Lock()
		defer c.hmu.Unlock()
		for i, s := range c.handlers {
			if s.id == id {
				c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// Call issues an untagged request; its operation is derived from the path.
func (c *Client) Call(ctx context.Context, method, path string, payload map[string]any, auth bool) (*Call, error) {
	req, err := NewRequest(OpUnknown, method, path, payload, auth)
	if err != nil {
		return nil, err
	}
	return c.Issue(ctx, req)
}

// Issue sends req and returns its future. The session token is read now, so
// a request issued before login completes goes out unauthenticated.
func (c *Client) Issue(ctx context.Context, req Request) (*Call, error) {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Op == OpUnknown {
		req.Op = Classify(req.Path, req.Method)
	}

	h := Handle(c.nextHandle.Add(1))
	requestID := uuid.NewString()

	spanCtx, span := c.tracer.Start(ctx, "flightdesk."+req.Op.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("flightdesk.operation", req.Op.String()),
			attribute.String("flightdesk.request_id", requestID),
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		))
	reqCtx, cancel := context.WithCancel(spanCtx)

	httpReq, err := req.build(reqCtx, c.sess, requestID)
	if err != nil {
		cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	c.prop.Inject(reqCtx, propagation.HeaderCarrier(httpReq.Header))

	call := newCall(h, req, requestID)
	p := &pending{
		call:    call,
		httpReq: httpReq,
		cancel:  cancel,
		span:    span,
		meta: Meta{
			Handle:    h,
			RequestID: requestID,
			Op:        req.Op,
			Method:    req.Method,
			Path:      req.Path,
		},
	}
	c.inflight.Add(1)

	select {
	case c.issueCh <- p:
	default:
		// Buffer full, possibly because a handler on the loop is issuing.
		go c.postIssue(p)
	}
	return call, nil
}

// Close stops the loop. Calls still pending resolve with ErrClosed; handlers
// are not notified. Close must not be called from a Handler.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeMu.Lock()
		c.closed = true
		c.closeMu.Unlock()
		close(c.quit)
		<-c.stopped
	})
	return nil
}

func (c *Client) postIssue(p *pending) {
	select {
	case c.issueCh <- p:
	case <-c.quit:
		c.abandon(p)
	}
}

func (c *Client) run() {
	defer close(c.stopped)
	active := make(map[Handle]*pending)
	for {
		select {
		case p := <-c.issueCh:
			c.start(active, p)
		case d := <-c.doneCh:
			c.complete(active, d)
		case h := <-c.timeoutCh:
			c.expire(active, h)
		case <-c.quit:
			for h, p := range active {
				delete(active, h)
				if p.timer != nil {
					p.timer.Stop()
				}
				if !p.aborted {
					c.abandon(p)
				}
				p.cancel()
			}
			for {
				select {
				case p := <-c.issueCh:
					c.abandon(p)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) start(active map[Handle]*pending, p *pending) {
	h := p.meta.Handle
	p.start = c.clock.Now()
	active[h] = p
	p.timer = c.clock.AfterFunc(c.timeout, func() {
		select {
		case c.timeoutCh <- h:
		case <-c.quit:
		}
	})

	c.log.Debug("request issued",
		zap.Uint64("handle", uint64(h)),
		zap.String("op", p.meta.Op.String()),
		zap.String("method", p.meta.Method),
		zap.String("path", p.meta.Path),
		zap.String("request_id", p.meta.RequestID),
	)

	go func() {
		resp, err := c.doer.Do(p.httpReq)
		select {
		case c.doneCh <- completion{handle: h, resp: resp, err: err}:
		case <-c.quit:
		}
	}()
}

func (c *Client) complete(active map[Handle]*pending, d completion) {
	p, ok := active[d.handle]
	if !ok {
		return
	}
	delete(active, d.handle)
	p.timer.Stop()
	p.cancel()

	if p.aborted {
		c.log.Debug("late completion suppressed",
			zap.Uint64("handle", uint64(d.handle)),
			zap.String("path", p.meta.Path),
		)
		return
	}

	meta := p.meta
	meta.Duration = c.clock.Now().Sub(p.start)
	if d.err != nil {
		c.finish(p, ErrorOccurred{Meta: meta, Err: transportError(d.err)})
		return
	}
	if d.resp != nil {
		meta.StatusCode = d.resp.StatusCode
	}
	var raw []byte
	if d.resp != nil {
		raw = d.resp.Body
	}
	body, err := decodeObject(raw)
	if err != nil {
		c.finish(p, ErrorOccurred{Meta: meta, Err: err})
		return
	}
	c.finish(p, route(c.sess, meta, body))
}

func (c *Client) expire(active map[Handle]*pending, h Handle) {
	p, ok := active[h]
	if !ok || p.aborted {
		return
	}
	p.aborted = true
	meta := p.meta
	meta.Duration = c.timeout
	c.finish(p, TimedOut{Meta: meta, After: c.timeout})
	// The transport returns promptly once its context ends; that completion
	// is dropped in complete.
	p.cancel()
}

func (c *Client) finish(p *pending, ev Event) {
	meta := ev.Info()
	fields := []zap.Field{
		zap.Uint64("handle", uint64(meta.Handle)),
		zap.String("op", meta.Op.String()),
		zap.String("path", meta.Path),
		zap.Int("status", meta.StatusCode),
		zap.Duration("duration", meta.Duration),
	}
	if err := ErrOf(ev); err != nil {
		p.span.RecordError(err)
		p.span.SetStatus(codes.Error, err.Error())
		if _, ok := ev.(TimedOut); ok {
			c.log.Warn("request timed out", fields...)
		} else {
			c.log.Error("request failed", append(fields, zap.Error(err))...)
		}
	} else {
		c.log.Info("request completed", fields...)
	}
	if meta.StatusCode > 0 {
		p.span.SetAttributes(attribute.Int("http.response.status_code", meta.StatusCode))
	}
	p.span.End()

	c.inflight.Add(-1)

	c.hmu.Lock()
	subs := make([]subscription, len(c.handlers))
	copy(subs, c.handlers)
	c.hmu.Unlock()
	for _, s := range subs {
		s.fn(ev)
	}
	p.call.resolve(ev)
}

// abandon resolves a call that will never run to completion because the
// client is closing.
func (c *Client) abandon(p *pending) {
	meta := p.meta
	if p.call.resolve(ErrorOccurred{Meta: meta, Err: ErrClosed}) {
		c.inflight.Add(-1)
	}
	p.span.SetStatus(codes.Error, ErrClosed.Error())
	p.span.End()
	p.cancel()
}

func transportError(err error) error {
	if errdef.Is(err, errdef.CodeParse) {
		return err
	}
	return errdef.Wrap(errdef.CodeTransport, err, "API Error")
}
