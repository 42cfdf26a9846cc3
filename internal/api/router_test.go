package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/session"
)

func TestDecodeObject(t *testing.T) {
	obj, err := decodeObject(nil)
	require.NoError(t, err)
	assert.Empty(t, obj)

	obj, err = decodeObject([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, obj)

	obj, err = decodeObject([]byte(`[1,2,3]`))
	require.NoError(t, err)
	assert.Empty(t, obj)

	obj, err = decodeObject([]byte(`{"price": 1250.5}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("1250.5"), obj["price"])

	_, err = decodeObject([]byte(`{"a":1} {"b":2}`))
	assert.True(t, errdef.Is(err, errdef.CodeParse))

	_, err = decodeObject([]byte(`{"a":`))
	assert.True(t, errdef.Is(err, errdef.CodeParse))
}

func TestRouteListDefaults(t *testing.T) {
	sess := session.New("")
	ev := route(sess, Meta{Op: OpSeatAvailability}, map[string]any{"seats": "not-a-list"})
	seats, ok := ev.(SeatsReceived)
	require.True(t, ok)
	assert.NotNil(t, seats.Seats)
	assert.Empty(t, seats.Seats)

	ev = route(sess, Meta{Op: OpNotifications}, map[string]any{})
	notes, ok := ev.(NotificationsReceived)
	require.True(t, ok)
	assert.NotNil(t, notes.Notifications)
}

func TestRouteEveryOperation(t *testing.T) {
	sess := session.New("")
	for _, op := range Operations() {
		ev := route(sess, Meta{Op: op}, map[string]any{})
		require.NotNil(t, ev, op.String())
		assert.Equal(t, op, ev.Info().Op)
		_, unknown := ev.(ResponseReceived)
		assert.False(t, unknown, "%s fell through to ResponseReceived", op)
		assert.NotNil(t, Payload(ev), op.String())
	}
	_, ok := route(sess, Meta{}, map[string]any{"x": 1}).(ResponseReceived)
	assert.True(t, ok)
}

func TestRouteLoginIgnoresMissingToken(t *testing.T) {
	sess := session.New("")
	sess.SetToken("old")
	route(sess, Meta{Op: OpLogin}, map[string]any{"code": json.Number("401")})
	assert.Equal(t, "old", sess.Token())

	route(sess, Meta{Op: OpLogin}, map[string]any{
		"token": "top",
		"data":  map[string]any{"token": "nested", "user_id": json.Number("42")},
	})
	assert.Equal(t, "nested", sess.Token())
	assert.Equal(t, "42", sess.UserID())
}

func TestPayloadForFailures(t *testing.T) {
	ev := ErrorOccurred{Meta: Meta{Path: "/x"}, Err: errdef.New(errdef.CodeTransport, "API Error: refused")}
	assert.Equal(t, "transport: API Error: refused", Payload(ev))
	assert.True(t, Failed(ev))
	assert.False(t, Failed(SystemStatusReceived{}))
	assert.Nil(t, ErrOf(SystemStatusReceived{}))
}

func TestName(t *testing.T) {
	assert.Equal(t, "SeatsReceived", Name(SeatsReceived{}))
	assert.Equal(t, "TimedOut", Name(TimedOut{}))
}
