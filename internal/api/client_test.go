package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/flightdesk/internal/clock"
	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/session"
	"github.com/unkn0wn-root/flightdesk/internal/transport"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func jsonResponse(status int, body string) *transport.Response {
	return &transport.Response{
		Status:     http.StatusText(status),
		StatusCode: status,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func wait(t *testing.T, call *Call) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := call.Wait(ctx)
	require.NoError(t, err, "call %s never resolved", call.Path)
	return ev
}

func newTestClient(t *testing.T, doer transport.Doer, opts ...Option) *Client {
	t.Helper()
	c := New(session.New("http://api.test/v1"), doer, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientEmitsExactlyOneEventPerRequest(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/flights/search"):
			return jsonResponse(200, `{"flights":[{"number":"CA1234"}]}`), nil
		case strings.Contains(req.URL.Path, "/system/status"):
			return nil, errors.New("connection refused")
		default:
			return jsonResponse(200, `{not json`), nil
		}
	})
	rec := &recorder{}
	c := newTestClient(t, doer, WithHandler(rec.handle))
	ctx := context.Background()

	var calls []*Call
	for i := 0; i < 5; i++ {
		call, err := c.SearchFlights(ctx, "PEK", "SHA", time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		calls = append(calls, call)
		call, err = c.SystemStatus(ctx)
		require.NoError(t, err)
		calls = append(calls, call)
		call, err = c.FlightStatistics(ctx)
		require.NoError(t, err)
		calls = append(calls, call)
	}
	for _, call := range calls {
		wait(t, call)
	}

	seen := map[Handle]int{}
	for _, ev := range rec.snapshot() {
		seen[ev.Info().Handle]++
	}
	require.Len(t, seen, len(calls))
	for _, call := range calls {
		assert.Equal(t, 1, seen[call.Handle], "handle %d", call.Handle)
	}
	assert.Equal(t, 0, c.InFlight())
}

func TestClientErrorTaxonomy(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/flights/CA1") {
			return nil, errors.New("dial tcp: no route to host")
		}
		return jsonResponse(200, `{"flights": [`), nil
	})
	c := newTestClient(t, doer)
	ctx := context.Background()

	call, err := c.FlightDetails(ctx, "CA1")
	require.NoError(t, err)
	ev := wait(t, call)
	failure, ok := ev.(ErrorOccurred)
	require.True(t, ok, "expected ErrorOccurred, got %T", ev)
	assert.True(t, errdef.Is(failure.Err, errdef.CodeTransport))
	assert.Contains(t, failure.Err.Error(), "API Error")

	call, err = c.SearchFlights(ctx, "PEK", "SHA", time.Now())
	require.NoError(t, err)
	ev = wait(t, call)
	failure, ok = ev.(ErrorOccurred)
	require.True(t, ok, "expected ErrorOccurred, got %T", ev)
	assert.True(t, errdef.Is(failure.Err, errdef.CodeParse))
	assert.Contains(t, failure.Err.Error(), "JSON Parse Error")
}

func TestClientLoginTokenPropagation(t *testing.T) {
	var mu sync.Mutex
	auth := map[string]string{}
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		mu.Lock()
		auth[req.URL.Path] = req.Header.Get("Authorization")
		mu.Unlock()
		if strings.HasSuffix(req.URL.Path, "/auth/login") {
			return jsonResponse(200, `{"code":0,"data":{"token":"T1","user_id":"u-7"}}`), nil
		}
		return jsonResponse(200, `{}`), nil
	})
	c := newTestClient(t, doer)
	ctx := context.Background()

	call, err := c.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	ev := wait(t, call)
	require.IsType(t, LoginCompleted{}, ev)
	assert.Equal(t, "T1", c.Session().Token())
	assert.Equal(t, "u-7", c.Session().UserID())

	call, err = c.SeatAvailability(ctx, "CA1234")
	require.NoError(t, err)
	wait(t, call)

	call, err = c.Logout(ctx)
	require.NoError(t, err)
	ev = wait(t, call)
	require.IsType(t, LogoutCompleted{}, ev)
	assert.False(t, c.Session().Authenticated())

	call, err = c.FlightReviews(ctx, "CA1234")
	require.NoError(t, err)
	wait(t, call)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "", auth["/v1/auth/login"])
	assert.Equal(t, "Bearer T1", auth["/v1/flights/CA1234/seats"])
	assert.Equal(t, "Bearer T1", auth["/v1/auth/logout"])
	assert.Equal(t, "", auth["/v1/flights/CA1234/reviews"])
}

func TestClientRefreshUsesTopLevelToken(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		return jsonResponse(200, `{"token":"T2"}`), nil
	})
	c := newTestClient(t, doer)
	c.Session().SetToken("T1")

	call, err := c.RefreshToken(context.Background())
	require.NoError(t, err)
	ev := wait(t, call)
	require.IsType(t, TokenRefreshed{}, ev)
	assert.Equal(t, "T2", c.Session().Token())
}

func TestClientLogoutKeepsTokenWhenBodyIsMalformed(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		return jsonResponse(200, `{"code":0,`), nil
	})
	c := newTestClient(t, doer)
	c.Session().SetToken("T1")

	call, err := c.Logout(context.Background())
	require.NoError(t, err)
	ev, ok := wait(t, call).(ErrorOccurred)
	require.True(t, ok)
	assert.True(t, errdef.Is(ev.Err, errdef.CodeParse))
	assert.Equal(t, "T1", c.Session().Token())
}

func TestClientTimeoutSuppressesLateCompletion(t *testing.T) {
	fc := clock.Fake(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	release := make(chan struct{})
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		<-release
		return jsonResponse(200, `{"seats":[]}`), nil
	})
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &recorder{}
	c := newTestClient(t, doer,
		WithClock(fc),
		WithTimeout(5*time.Second),
		WithLogger(zap.New(core)),
		WithHandler(rec.handle),
	)

	call, err := c.SeatAvailability(context.Background(), "CA1234")
	require.NoError(t, err)
	fc.WaitForTimers(1)
	fc.Advance(5 * time.Second)

	ev := wait(t, call)
	timedOut, ok := ev.(TimedOut)
	require.True(t, ok, "expected TimedOut, got %T", ev)
	assert.Equal(t, "/flights/CA1234/seats", timedOut.Path)
	assert.Equal(t, 5*time.Second, timedOut.After)
	assert.True(t, errdef.Is(timedOut.Err(), errdef.CodeTimeout))
	assert.Contains(t, timedOut.Err().Error(), "/flights/CA1234/seats")

	close(release)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("late completion suppressed").Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	events := rec.snapshot()
	require.Len(t, events, 1)
	assert.IsType(t, TimedOut{}, events[0])
	assert.Equal(t, 1, logs.FilterMessage("request timed out").Len())
}

func TestClientTimeoutCancelsRequestContext(t *testing.T) {
	fc := clock.Fake(time.Now())
	cancelled := make(chan error, 1)
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		<-req.Context().Done()
		cancelled <- req.Context().Err()
		return nil, req.Context().Err()
	})
	rec := &recorder{}
	c := newTestClient(t, doer, WithClock(fc), WithTimeout(time.Second), WithHandler(rec.handle))

	call, err := c.SystemStatus(context.Background())
	require.NoError(t, err)
	fc.WaitForTimers(1)
	fc.Advance(time.Second)

	require.IsType(t, TimedOut{}, wait(t, call))
	select {
	case err := <-cancelled:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("transport context was not cancelled")
	}
	require.Eventually(t, func() bool { return c.InFlight() == 0 }, time.Second, 5*time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestClientCompletionStopsTimer(t *testing.T) {
	fc := clock.Fake(time.Now())
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		return jsonResponse(200, `{"status":"ok"}`), nil
	})
	c := newTestClient(t, doer, WithClock(fc), WithTimeout(time.Second))

	call, err := c.SystemStatus(context.Background())
	require.NoError(t, err)
	ev := wait(t, call)
	require.IsType(t, SystemStatusReceived{}, ev)
	assert.Equal(t, 0, fc.Pending())
	assert.Equal(t, "ok", ev.(SystemStatusReceived).Status["status"])
}

func TestClientSearchWithoutFlightsYieldsEmptyList(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		return jsonResponse(200, `{"code":0}`), nil
	})
	c := newTestClient(t, doer)

	call, err := c.SearchFlights(context.Background(), "PEK", "SHA", time.Now())
	require.NoError(t, err)
	ev, ok := wait(t, call).(FlightSearchCompleted)
	require.True(t, ok)
	require.NotNil(t, ev.Flights)
	assert.Empty(t, ev.Flights)
}

func TestClientErrorStatusIsRouted(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		return jsonResponse(500, `{"code":500,"message":"boom"}`), nil
	})
	c := newTestClient(t, doer)

	call, err := c.BookingDetails(context.Background(), "B-1")
	require.NoError(t, err)
	ev, ok := wait(t, call).(BookingDetailsReceived)
	require.True(t, ok)
	assert.Equal(t, 500, ev.StatusCode)
	assert.Equal(t, "boom", ev.Booking["message"])
}

func TestClientRawCallClassifiesPath(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		return jsonResponse(200, `{"favorites":["CA1"],"extra":true}`), nil
	})
	c := newTestClient(t, doer)
	ctx := context.Background()

	call, err := c.Call(ctx, "get", "/users/u1/favorites", nil, true)
	require.NoError(t, err)
	assert.Equal(t, OpFavorites, call.Op)
	fav, ok := wait(t, call).(FavoritesReceived)
	require.True(t, ok)
	assert.Equal(t, []any{"CA1"}, fav.Favorites)

	call, err = c.Call(ctx, http.MethodDelete, "/users/u1/favorites/CA1", nil, true)
	require.NoError(t, err)
	assert.IsType(t, FavoriteRemoved{}, wait(t, call))

	call, err = c.Call(ctx, http.MethodGet, "/weather/today", nil, false)
	require.NoError(t, err)
	unknown, ok := wait(t, call).(ResponseReceived)
	require.True(t, ok)
	assert.Equal(t, true, unknown.Body["extra"])
}

func TestClientRejectsUnsupportedMethod(t *testing.T) {
	called := false
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		called = true
		return jsonResponse(200, `{}`), nil
	})
	c := newTestClient(t, doer)

	_, err := c.Call(context.Background(), "PATCH", "/users/u1", map[string]any{"a": 1}, true)
	require.Error(t, err)
	assert.True(t, errdef.Is(err, errdef.CodeMethod))
	assert.False(t, called)
	assert.Equal(t, 0, c.InFlight())
}

func TestClientRequestHeadersAndBody(t *testing.T) {
	type captured struct {
		header http.Header
		body   string
	}
	got := make(chan captured, 2)
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
		}
		got <- captured{header: req.Header.Clone(), body: string(body)}
		return jsonResponse(200, `{}`), nil
	})
	c := newTestClient(t, doer)
	ctx := context.Background()

	call, err := c.SearchFlights(ctx, "PEK", "SHA", time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	wait(t, call)
	first := <-got
	assert.Equal(t, `{"date":"2026-10-20","departure":"PEK","destination":"SHA"}`, first.body)
	assert.Equal(t, "application/json", first.header.Get("Content-Type"))
	assert.Equal(t, UserAgent, first.header.Get("User-Agent"))
	assert.Equal(t, call.RequestID, first.header.Get(HeaderRequestID))
	assert.NotEmpty(t, call.RequestID)

	call, err = c.RefreshToken(ctx)
	require.NoError(t, err)
	wait(t, call)
	second := <-got
	assert.Equal(t, "", second.body)
}

func TestClientSeatsOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/flights/CA1234/seats" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"seats":[{"seat":"12A","available":true},{"seat":"12B","available":false}]}`)
	}))
	defer srv.Close()

	c := New(session.New(srv.URL+"/v1/"), transport.NewWithHTTPClient(srv.Client()))
	defer c.Close()

	call, err := c.SeatAvailability(context.Background(), "CA1234")
	require.NoError(t, err)
	ev, ok := wait(t, call).(SeatsReceived)
	require.True(t, ok)
	require.Len(t, ev.Seats, 2)
	assert.Equal(t, "12A", ev.Seats[0].(map[string]any)["seat"])
	assert.Equal(t, http.StatusOK, ev.StatusCode)
}

func TestClientHandlerMayIssue(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		return jsonResponse(200, `{"data":{"token":"T9","user_id":"u1"}}`), nil
	})
	profile := make(chan *Call, 1)
	var c *Client
	c = newTestClient(t, doer, WithHandler(func(ev Event) {
		if _, ok := ev.(LoginCompleted); ok {
			call, err := c.UserProfile(context.Background(), c.Session().UserID())
			if err == nil {
				profile <- call
			}
		}
	}))

	call, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	wait(t, call)
	select {
	case next := <-profile:
		assert.Equal(t, "/users/u1", next.Path)
		assert.IsType(t, UserProfileReceived{}, wait(t, next))
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not issue follow-up")
	}
}

func TestClientCloseResolvesPending(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		select {
		case <-block:
		case <-req.Context().Done():
		}
		return nil, req.Context().Err()
	})
	rec := &recorder{}
	c := New(session.New(""), doer, WithHandler(rec.handle))

	call, err := c.SystemStatus(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	ev := wait(t, call)
	failure, ok := ev.(ErrorOccurred)
	require.True(t, ok)
	assert.ErrorIs(t, failure.Err, ErrClosed)
	assert.Empty(t, rec.snapshot())

	_, err = c.SystemStatus(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, c.Close())
}

func TestClientUnsubscribe(t *testing.T) {
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		return jsonResponse(200, `{}`), nil
	})
	rec := &recorder{}
	c := newTestClient(t, doer)
	stop := c.Subscribe(rec.handle)

	call, err := c.SystemStatus(context.Background())
	require.NoError(t, err)
	wait(t, call)
	stop()
	call, err = c.SystemStatus(context.Background())
	require.NoError(t, err)
	wait(t, call)

	assert.Len(t, rec.snapshot(), 1)
}
