package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/mockapi"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("FLIGHTDESK_CONFIG_DIR", t.TempDir())
}

func mockURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(mockapi.New(mockapi.WithUser("alice", "pw")))
	t.Cleanup(srv.Close)
	return srv.URL + mockapi.DefaultPrefix
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut, func(string) string { return "" })
	root := newRootCmd(a)
	root.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	a.teardown()
	return out.String(), err
}

func TestCallPrintsEventAsJSON(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "call", "status", "--base-url", mockURL(t))
	require.NoError(t, err)

	var doc eventDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "SystemStatusReceived", doc.Event)
	assert.Equal(t, "system-status", doc.Operation)
	assert.Equal(t, "/system/status", doc.Path)
	assert.Equal(t, 200, doc.Status)
	assert.NotEmpty(t, doc.RequestID)
	assert.Empty(t, doc.Error)
}

func TestCallWithLoginAsYAML(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "call", "--base-url", mockURL(t), "--login", "alice:pw",
		"flight-search", "PEK", "PVG", "2026-10-20", "-o", "yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "FlightSearchCompleted", doc["event"])
	flights, ok := doc["payload"].([]any)
	require.True(t, ok, "payload %T", doc["payload"])
	assert.Len(t, flights, 4)
	first := flights[0].(map[string]any)
	assert.IsType(t, 0, first["price"], "numbers must not be quoted")
}

func TestCallTransportFailure(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(mockapi.New())
	url := srv.URL + mockapi.DefaultPrefix
	srv.Close()

	out, err := runCLI(t, "call", "status", "--base-url", url)
	require.ErrorIs(t, err, errEventFailed)
	assert.Contains(t, out, `"event": "ErrorOccurred"`)
	assert.Contains(t, out, "API Error")
}

func TestCallStopsWhenLoginRejected(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "call", "--base-url", mockURL(t), "--login", "alice:wrong", "bookings")
	require.ErrorIs(t, err, errEventFailed)
	assert.Contains(t, out, `"event": "LoginCompleted"`)
	assert.Contains(t, out, `"status": 401`)
}

func TestRawClassifiesByPath(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "raw", "--base-url", mockURL(t), "--login", "alice:pw", "GET", "/flights/CA1234/seats")
	require.NoError(t, err)
	assert.Contains(t, out, `"event": "SeatsReceived"`)
	assert.Contains(t, out, `"operation": "seats"`)
}

func TestHistoryRecordsCalls(t *testing.T) {
	isolate(t)
	base := mockURL(t)
	for i := 0; i < 2; i++ {
		_, err := runCLI(t, "call", "status", "--base-url", base)
		require.NoError(t, err)
	}

	out, err := runCLI(t, "history", "-o", "json")
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "system-status", entries[0]["operation"])
	assert.Equal(t, "ok", entries[0]["outcome"])

	out, err = runCLI(t, "history", "--stats")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "OPERATION"))
	assert.Contains(t, lines[1], "system-status")

	out, err = runCLI(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "/system/status")

	_, err = runCLI(t, "history", "--clear")
	require.NoError(t, err)
	out, err = runCLI(t, "history")
	require.NoError(t, err)
	assert.Equal(t, "no history\n", out)
}

func TestNoHistoryFlag(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "--no-history", "call", "status", "--base-url", mockURL(t))
	require.NoError(t, err)
	out, err := runCLI(t, "history")
	require.NoError(t, err)
	assert.Equal(t, "no history\n", out)
}

func TestConfigSetAndShow(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "config", "set", "api.timeout", "7s")
	require.NoError(t, err)
	assert.Contains(t, out, "settings.toml")

	out, err = runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "7s")

	_, err = runCLI(t, "config", "set", "api.timeout", "soon")
	assert.True(t, errdef.Is(err, errdef.CodeConfig), "got %v", err)
	_, err = runCLI(t, "config", "set", "api.colour", "red")
	assert.ErrorContains(t, err, "unknown setting")
}

func TestSetFlagRejectsUnknownKey(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "call", "status", "--base-url", mockURL(t), "--set", "colour=red")
	assert.ErrorContains(t, err, "unknown setting")
}

func TestCallRejectsUnknownFormat(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "call", "status", "-o", "xml")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errEventFailed))
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "flightdesk dev")
}

func TestPlainConvertsNumbers(t *testing.T) {
	got := plain(map[string]any{
		"n":    json.Number("3"),
		"f":    json.Number("1.5"),
		"list": []any{json.Number("7")},
	})
	m := got.(map[string]any)
	assert.Equal(t, int64(3), m["n"])
	assert.Equal(t, 1.5, m["f"])
	assert.Equal(t, []any{int64(7)}, m["list"])
}
