package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/wesleyorama2/reqwire/internal/jsonutil"
)

// Recv consumes the builder and dispatches the request. It returns once the
// response status and headers have arrived; the body is left unread in
// Response.Body. Connection, TLS and protocol failures are reported with
// ErrTransport. Cancelling ctx aborts the exchange.
//
// The caller must close the response body, directly or through
// Response.GetBody.
func (b *RequestBuilder) Recv(ctx context.Context) (*Response, error) {
	if err := b.seal("recv"); err != nil {
		return nil, err
	}
	return b.client.dispatch(ctx, "recv", &b.req)
}

// RecvJSONInto consumes the builder, dispatches the request, drains the
// response body and decodes it into v, which must be a non-nil pointer.
//
// It fails with ErrTransport when the exchange or the body read fails,
// ErrEncoding when the body is not valid UTF-8 and ErrDeserialization when
// the text is not exactly one JSON value assignable to v. The response status
// is not interpreted.
//
// The client's logger receives a debug record with the outgoing request
// before dispatch and one with the response and its body afterwards.
func (b *RequestBuilder) RecvJSONInto(ctx context.Context, v any) error {
	const op = "recv_json"
	if err := b.seal(op); err != nil {
		return err
	}

	logger := b.client.logger
	logger.DebugContext(ctx, "sending request", requestAttrs(&b.req)...)

	resp, err := b.client.dispatch(ctx, op, &b.req)
	if err != nil {
		return err
	}

	body, err := resp.GetBody()
	if err != nil {
		return newError(KindTransport, op, err)
	}
	// The body is logged as text, so a non-UTF-8 body gets no response record.
	if !utf8.Valid(body) {
		return newError(KindEncoding, op, errors.New("response body is not valid UTF-8"))
	}

	logger.DebugContext(ctx, "received response",
		slog.String("status", resp.Status),
		slog.String("proto", resp.Proto),
		slog.Any("headers", resp.Headers),
		slog.String("body", string(body)),
	)

	if err := jsonutil.UnmarshalSingle(body, v); err != nil {
		return newError(KindDeserialization, op, err)
	}
	return nil
}

// RecvJSON consumes b, dispatches the request and decodes the JSON response
// body as a T. See RequestBuilder.RecvJSONInto for the error contract.
func RecvJSON[T any](ctx context.Context, b *RequestBuilder) (T, error) {
	var out T
	err := b.RecvJSONInto(ctx, &out)
	return out, err
}

func requestAttrs(r *request) []any {
	target := ""
	if r.uri != nil {
		target = r.uri.String()
	}
	return []any{
		slog.String("method", r.method),
		slog.String("uri", target),
		slog.Any("headers", r.header),
		slog.String("body", string(r.body)),
	}
}

// dispatch hands the request to the pool and waits for the response head.
func (c *Client) dispatch(ctx context.Context, op string, r *request) (*Response, error) {
	if r.uri == nil {
		return nil, newError(KindInvalidURI, op, errors.New("target uri not set"))
	}

	var body io.Reader = http.NoBody
	if len(r.body) > 0 {
		body = bytes.NewReader(r.body)
	}

	start := time.Now()
	trace := newTimingTrace(start)
	ctx = httptrace.WithClientTrace(ctx, trace.clientTrace())

	httpReq, err := http.NewRequestWithContext(ctx, r.method, r.uri.String(), body)
	if err != nil {
		return nil, newError(KindTransport, op, err)
	}
	httpReq.Header = r.header.Clone()

	host := r.uri.Host
	httpResp, err := c.httpClient.Do(httpReq)
	timing := trace.result()
	timing.TotalTime = time.Since(start)
	if err != nil {
		c.recorder.Record(timing.TotalTime, host, false, 0)
		return nil, newError(KindTransport, op, err)
	}
	c.recorder.Record(timing.TotalTime, host, true, 0)

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Proto:      httpResp.Proto,
		Headers:    httpResp.Header,
		Timing:     timing,
	}
	resp.Body = &timedBody{body: httpResp.Body, resp: resp, recorder: c.recorder}
	return resp, nil
}

// timingTrace fills TimingInfo from connection lifecycle events. Dials may
// race (happy eyeballs), so every callback holds mu.
type timingTrace struct {
	mu     sync.Mutex
	timing TimingInfo

	dnsStart, connectStart, tlsHandshakeStart time.Time
	connectDone                               bool
	// End of the last completed phase, the base for time to first byte
	lastPhaseEnd time.Time
}

func newTimingTrace(start time.Time) *timingTrace {
	return &timingTrace{
		timing:       TimingInfo{StartTime: start},
		lastPhaseEnd: start,
	}
}

// result returns the timings collected so far.
func (t *timingTrace) result() TimingInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timing
}

// clientTrace returns the hooks to install on the request context. Phases
// that do not happen on a reused connection stay zero.
func (t *timingTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.dnsStart = time.Now()
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()
			now := time.Now()
			t.timing.DNSLookupTime = now.Sub(t.dnsStart)
			t.lastPhaseEnd = now
		},
		ConnectStart: func(network, addr string) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.connectStart.IsZero() {
				t.connectStart = time.Now()
			}
		},
		ConnectDone: func(network, addr string, err error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if err == nil && !t.connectDone {
				now := time.Now()
				t.timing.TCPConnectTime = now.Sub(t.connectStart)
				t.connectDone = true
				t.lastPhaseEnd = now
			}
		},
		TLSHandshakeStart: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.tlsHandshakeStart = time.Now()
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if err == nil && !t.tlsHandshakeStart.IsZero() {
				now := time.Now()
				t.timing.TLSHandshakeTime = now.Sub(t.tlsHandshakeStart)
				t.lastPhaseEnd = now
			}
		},
		GotConn: func(info httptrace.GotConnInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.timing.ConnectionReused = info.Reused
		},
		GotFirstResponseByte: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.timing.TimeToFirstByte = time.Since(t.lastPhaseEnd)
		},
	}
}
