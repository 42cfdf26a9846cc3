package settings

import (
	"testing"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/session"
)

func TestApplyAllRoutesToFirstMatch(t *testing.T) {
	var got []string
	a := New(
		Handler{
			Match: PrefixMatcher("log-"),
			Apply: func(key, val string) error {
				got = append(got, key+"="+val)
				return nil
			},
		},
		Handler{Match: PrefixMatcher("log-level")},
	)
	left, err := a.ApplyAll(map[string]string{
		" LOG_LEVEL ": "debug",
		"color":       "off",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(got) != 1 || got[0] != "log-level=debug" {
		t.Fatalf("unexpected applied settings %v", got)
	}
	if len(left) != 1 || left["color"] != "off" {
		t.Fatalf("unexpected leftovers %v", left)
	}
}

func TestSessionHandler(t *testing.T) {
	sess := session.New("")
	a := New(SessionHandler(sess))

	if err := a.Apply("base_url", "http://127.0.0.1:8080/v1/"); err != nil {
		t.Fatalf("base-url: %v", err)
	}
	if sess.BaseURL() != "http://127.0.0.1:8080/v1" {
		t.Fatalf("unexpected base url %q", sess.BaseURL())
	}
	if err := a.Apply("token", "T1"); err != nil {
		t.Fatalf("token: %v", err)
	}
	if err := a.Apply("user", "u1"); err != nil {
		t.Fatalf("user: %v", err)
	}
	if sess.Token() != "T1" || sess.UserID() != "u1" {
		t.Fatalf("unexpected session %q/%q", sess.Token(), sess.UserID())
	}
	if err := a.Apply("token", ""); err != nil {
		t.Fatalf("clear token: %v", err)
	}
	if sess.Authenticated() {
		t.Fatalf("expected empty token to clear auth")
	}

	err := a.Apply("base-url", "ftp://example.com")
	if !errdef.Is(err, errdef.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	err = a.Apply("colour", "red")
	if !errdef.Is(err, errdef.CodeConfig) {
		t.Fatalf("expected unknown setting error, got %v", err)
	}
}

func TestParsePairs(t *testing.T) {
	got, err := ParsePairs([]string{"token=a", "Base_URL = http://x", "token=b"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["token"] != "b" || got["base-url"] != "http://x" {
		t.Fatalf("unexpected pairs %v", got)
	}
	if _, err := ParsePairs([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for missing '='")
	}
}

func TestMergeLaterScopesWin(t *testing.T) {
	out := Merge(map[string]string{"a": "1", "b": "1"}, map[string]string{"b": "2"})
	if out["a"] != "1" || out["b"] != "2" {
		t.Fatalf("unexpected merge %v", out)
	}
}
