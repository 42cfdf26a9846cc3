package command

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/flightdesk/internal/api"
	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/mockapi"
	"github.com/unkn0wn-root/flightdesk/internal/session"
	"github.com/unkn0wn-root/flightdesk/internal/transport"
)

type sent struct {
	method string
	path   string
	body   map[string]any
}

// recordingClient answers every request with {"code":0} and remembers what
// was sent.
func recordingClient(t *testing.T) (*api.Client, func() []sent) {
	t.Helper()
	var (
		mu  sync.Mutex
		out []sent
	)
	doer := transport.DoerFunc(func(req *http.Request) (*transport.Response, error) {
		s := sent{method: req.Method, path: req.URL.RequestURI()}
		if req.Body != nil {
			data, _ := io.ReadAll(req.Body)
			if len(data) > 0 {
				_ = json.Unmarshal(data, &s.body)
			}
		}
		mu.Lock()
		out = append(out, s)
		mu.Unlock()
		return &transport.Response{StatusCode: 200, Status: "200 OK", Body: []byte(`{"code":0}`)}, nil
	})
	sess := session.New("http://flights.test/v1")
	sess.SetUserID("u1")
	c := api.New(sess, doer)
	t.Cleanup(func() { _ = c.Close() })
	return c, func() []sent {
		mu.Lock()
		defer mu.Unlock()
		return append([]sent(nil), out...)
	}
}

func runAndWait(t *testing.T, env Env, line string) api.Event {
	t.Helper()
	name, args, err := Parse(line)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	call, err := Run(ctx, env, name, args)
	require.NoError(t, err)
	ev, err := call.Wait(ctx)
	require.NoError(t, err)
	return ev
}

func TestCommandsBuildRequests(t *testing.T) {
	client, requests := recordingClient(t)
	env := Env{Client: client, Now: func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }}

	cases := []struct {
		line   string
		op     api.Operation
		method string
		path   string
		body   map[string]any
	}{
		{"search pek sha", api.OpFlightSearch, "POST", "/v1/flights/search", map[string]any{"departure": "PEK", "destination": "SHA", "date": "2026-10-18"}},
		{"search PEK PVG 2026-10-20", api.OpFlightSearch, "POST", "/v1/flights/search", map[string]any{"departure": "PEK", "destination": "PVG", "date": "2026-10-20"}},
		{"seats ca1234", api.OpSeatAvailability, "GET", "/v1/flights/CA1234/seats", nil},
		{"schedule PEK", api.OpFlightSchedule, "GET", "/v1/flights/schedule?from=PEK", nil},
		{"book CA1234 3c", api.OpBookingCreate, "POST", "/v1/bookings", map[string]any{"flight_number": "CA1234", "seat": "3C"}},
		{`cancel BK000001 "plans changed"`, api.OpBookingCancel, "POST", "/v1/bookings/BK000001/cancel", map[string]any{"reason": "plans changed"}},
		{"review BK000001 4 nice crew", api.OpBookingReview, "POST", "/v1/bookings/BK000001/review", map[string]any{"rating": float64(4), "comment": "nice crew"}},
		{"update email=a@b.c", api.OpUserUpdate, "PUT", "/v1/users/u1", map[string]any{"email": "a@b.c"}},
		{"favorites", api.OpFavorites, "GET", "/v1/users/u1/favorites", nil},
		{"fav mu5678", api.OpFavoriteAdd, "POST", "/v1/users/u1/favorites/MU5678", nil},
		{"unfav MU5678", api.OpFavoriteRemove, "DELETE", "/v1/users/u1/favorites/MU5678", nil},
		{"notifications u2", api.OpNotifications, "GET", "/v1/users/u2/notifications", nil},
		{"pay BK000001 1280", api.OpPaymentProcess, "POST", "/v1/payments/process", map[string]any{"booking_id": "BK000001", "amount": float64(1280), "method": "card"}},
		{"flight-details CA1234", api.OpFlightDetails, "GET", "/v1/flights/CA1234", nil},
		{`raw post /users/u1/favorites/CA1234 {"note":"x"}`, api.OpFavoriteAdd, "POST", "/v1/users/u1/favorites/CA1234", map[string]any{"note": "x"}},
	}

	for i, tc := range cases {
		ev := runAndWait(t, env, tc.line)
		assert.Equal(t, tc.op, ev.Info().Op, tc.line)
		got := requests()
		require.Len(t, got, i+1)
		last := got[i]
		assert.Equal(t, tc.method, last.method, tc.line)
		assert.Equal(t, tc.path, last.path, tc.line)
		assert.Equal(t, tc.body, last.body, tc.line)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	client, requests := recordingClient(t)
	env := Env{Client: client}
	ctx := context.Background()

	cases := map[string][]string{
		"unknown command": {"fly"},
		"arity":           {"seats"},
		"too many":        {"status", "now"},
		"rating":          {"review", "BK1", "9"},
		"date":            {"search", "PEK", "SHA", "20/10/2026"},
		"update field":    {"update", "email"},
		"raw body":        {"raw", "POST", "/bookings", "[1]"},
	}
	for name, words := range cases {
		_, err := Run(ctx, env, words[0], words[1:])
		assert.True(t, errdef.Is(err, errdef.CodeUI), "%s: got %v", name, err)
	}

	client.Session().SetUserID("")
	_, err := Run(ctx, env, "bookings", nil)
	assert.ErrorContains(t, err, "log in first")
	assert.Empty(t, requests())
}

func TestLookupByOperationName(t *testing.T) {
	for _, op := range api.Operations() {
		spec, ok := Lookup(op.String())
		require.True(t, ok, op.String())
		assert.Equal(t, op, spec.Op)
	}
	_, ok := Lookup("unknown")
	assert.False(t, ok)
}

func TestSplit(t *testing.T) {
	words, err := Split(`  review  BK1 5 'great  flight' ""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"review", "BK1", "5", "great  flight", ""}, words)

	_, err = Split(`cancel BK1 "oops`)
	assert.Error(t, err)

	words, err = Split(`update note={"a":"b"} it's`)
	require.NoError(t, err)
	assert.Equal(t, []string{"update", `note={"a":"b"}`, "it's"}, words)
}

func TestParseKeepsRawBodyVerbatim(t *testing.T) {
	name, args, err := Parse(`RAW post /users/u1/favorites/CA1234   {"note": "two  spaces", "n": 1} `)
	require.NoError(t, err)
	assert.Equal(t, "raw", name)
	assert.Equal(t, []string{"post", "/users/u1/favorites/CA1234", `{"note": "two  spaces", "n": 1}`}, args)

	name, args, err = Parse(`raw get /system/status`)
	require.NoError(t, err)
	assert.Equal(t, "raw", name)
	assert.Equal(t, []string{"get", "/system/status"}, args)

	name, args, err = Parse(`Cancel BK1 'changed plans'`)
	require.NoError(t, err)
	assert.Equal(t, "cancel", name)
	assert.Equal(t, []string{"BK1", "changed plans"}, args)

	_, _, err = Parse("   ")
	assert.Error(t, err)
}

func TestRawBodyKeepsInnerWhitespace(t *testing.T) {
	client, requests := recordingClient(t)
	env := Env{Client: client}

	ev := runAndWait(t, env, `raw post /payments/validate {"card_number": "4111  1111"}`)
	assert.Equal(t, api.OpPaymentValidate, ev.Info().Op)
	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"card_number": "4111  1111"}, got[0].body)
}

func TestCommandsAgainstMockBackend(t *testing.T) {
	srv := httptest.NewServer(mockapi.New(mockapi.WithUser("alice", "pw")))
	t.Cleanup(srv.Close)
	client := api.New(session.New(srv.URL+mockapi.DefaultPrefix), transport.NewWithHTTPClient(srv.Client()))
	t.Cleanup(func() { _ = client.Close() })
	env := Env{Client: client}

	ev := runAndWait(t, env, "login alice pw")
	require.IsType(t, api.LoginCompleted{}, ev)
	require.True(t, client.Session().Authenticated())

	ev = runAndWait(t, env, "search PEK PVG 2026-10-20")
	search, ok := ev.(api.FlightSearchCompleted)
	require.True(t, ok, "got %T", ev)
	assert.Len(t, search.Flights, 4)

	ev = runAndWait(t, env, "book CA1234 4D")
	booked, ok := ev.(api.BookingCompleted)
	require.True(t, ok, "got %T", ev)
	id, _ := booked.Result["booking_id"].(string)
	require.NotEmpty(t, id)

	ev = runAndWait(t, env, "bookings")
	list, ok := ev.(api.UserBookingsReceived)
	require.True(t, ok, "got %T", ev)
	assert.Len(t, list.Bookings, 1)

	ev = runAndWait(t, env, "logout")
	require.IsType(t, api.LogoutCompleted{}, ev)
	assert.False(t, client.Session().Authenticated())
}
