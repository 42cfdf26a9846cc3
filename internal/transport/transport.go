// Package transport sends prepared HTTP requests and returns fully read
// responses. It knows nothing about operations or sessions; cancellation is
// driven entirely by the request context.
package transport

import (
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

type Options struct {
	// Timeout is a hard cap on the whole exchange. The dispatcher applies its
	// own per-request deadline, so zero is the usual value.
	Timeout            time.Duration
	InsecureSkipVerify bool
	ProxyURL           string
	RootCAs            []string
	RootMode           RootMode
	ClientCert         string
	ClientKey          string
	BaseDir            string
}

type Response struct {
	Status       string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	EffectiveURL string
}

// Doer is the seam the dispatcher sends through. Implementations must honour
// req.Context() cancellation and return its error when aborted.
type Doer interface {
	Do(req *http.Request) (*Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*Response, error)

func (f DoerFunc) Do(req *http.Request) (*Response, error) { return f(req) }

type Client struct {
	http *http.Client
}

func New(opts Options) (*Client, error) {
	hc, err := buildHTTPClient(opts)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc}, nil
}

// NewWithHTTPClient wraps an existing client, e.g. one from httptest.
func NewWithHTTPClient(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{http: hc}
}

func (c *Client) Do(req *http.Request) (*Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTransport, err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTransport, err, "read response body")
	}
	body, err := decodeBody(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	effective := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		effective = resp.Request.URL.String()
	}
	return &Response{
		Status:       resp.Status,
		StatusCode:   resp.StatusCode,
		Headers:      resp.Header.Clone(),
		Body:         body,
		Duration:     time.Since(start),
		EffectiveURL: effective,
	}, nil
}

// CloseIdle releases pooled connections.
func (c *Client) CloseIdle() {
	c.http.CloseIdleConnections()
}

// decodeBody converts a body to UTF-8 when the server declares some other
// charset. Undeclared bodies are passed through untouched.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	if len(body) == 0 || contentType == "" {
		return body, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	name := strings.ToLower(strings.TrimSpace(params["charset"]))
	if name == "" || name == "utf-8" || name == "utf8" {
		return body, nil
	}
	enc, _ := charset.Lookup(name)
	if enc == nil {
		return body, nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "decode %s body", name)
	}
	return decoded, nil
}

func buildHTTPClient(opts Options) (*http.Client, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}

	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeConfig, err, "parse proxy url")
		}
		tr.Proxy = http.ProxyURL(proxyURL)
	}

	if opts.InsecureSkipVerify || len(opts.RootCAs) > 0 || opts.ClientCert != "" || opts.ClientKey != "" {
		tc, err := BuildTLS(TLSFiles{
			RootCAs:    opts.RootCAs,
			RootMode:   opts.RootMode,
			ClientCert: opts.ClientCert,
			ClientKey:  opts.ClientKey,
			Insecure:   opts.InsecureSkipVerify,
		}, opts.BaseDir)
		if err != nil {
			return nil, err
		}
		tr.TLSClientConfig = tc
	}

	hc := &http.Client{Transport: tr}
	if opts.Timeout > 0 {
		hc.Timeout = opts.Timeout
	}
	return hc, nil
}
