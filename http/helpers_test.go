package http

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// stubClient returns a Client whose transport answers every request with
// status and body, and counts the requests it saw.
func stubClient(status int, body string, calls *atomic.Int64) *Client {
	return NewClient(WithRoundTripper(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if calls != nil {
			calls.Add(1)
		}
		return &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Proto:      "HTTP/1.1",
			Header:     http.Header{"Content-Type": []string{MediaTypeJSON}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	})))
}

// failingClient returns a Client whose transport always fails.
func failingClient(err error) *Client {
	return NewClient(WithRoundTripper(roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, err
	})))
}

// echoServer answers with the request body and content type, and reports the
// method and selected request headers back in response headers.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		w.Header().Set("X-Echo-Method", r.Method)
		w.Header().Set("X-Echo-Request-Id", r.Header.Get("X-Request-Id"))
		w.Header().Set("X-Echo-User-Agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

// errReader fails every read.
type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
func (r errReader) Close() error             { return nil }

var errBoom = errors.New("boom")
