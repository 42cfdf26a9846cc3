package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
	"github.com/unkn0wn-root/flightdesk/internal/session"
)

const UserAgent = "FlightSystem/1.0"

const HeaderRequestID = "X-Request-ID"

// Request describes one outbound call before it is bound to a session.
type Request struct {
	Op      Operation
	Method  string
	Path    string
	Payload map[string]any
	Auth    bool
}

// NewRequest validates method and path up front; an unsupported method is an
// error here rather than a request that silently never leaves.
func NewRequest(op Operation, method, path string, payload map[string]any, auth bool) (Request, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return Request{}, errdef.New(errdef.CodeMethod, "unsupported method %q for %s", method, path)
	}
	if !strings.HasPrefix(path, "/") {
		return Request{}, errdef.New(errdef.CodeMethod, "path %q must start with /", path)
	}
	return Request{Op: op, Method: m, Path: path, Payload: payload, Auth: auth}, nil
}

// build renders the request against the session. The body is compact JSON,
// or empty when the payload has no fields, whatever the method.
func (r Request) build(ctx context.Context, sess *session.Session, requestID string) (*http.Request, error) {
	var body io.Reader
	if len(r.Payload) > 0 {
		data, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeParse, err, "encode %s payload", r.Path)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, sess.BaseURL()+r.Path, body)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTransport, err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)
	if requestID != "" {
		httpReq.Header.Set(HeaderRequestID, requestID)
	}
	if r.Auth {
		if token := sess.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}
