package http

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/wesleyorama2/reqwire/internal/jsonutil"
	"github.com/wesleyorama2/reqwire/internal/metrics"
	"github.com/wesleyorama2/reqwire/pkg/jsonpath"
	"github.com/wesleyorama2/reqwire/pkg/jsonschema"
)

// TimingInfo stores detailed timing information for an exchange.
// All durations represent the time spent in each phase of the request.
type TimingInfo struct {
	// StartTime is when the request was handed to the pool
	StartTime time.Time

	// DNSLookupTime is the time spent looking up the DNS address
	DNSLookupTime time.Duration

	// TCPConnectTime is the time spent establishing a TCP connection
	TCPConnectTime time.Duration

	// TLSHandshakeTime is the time spent performing the TLS handshake (for HTTPS)
	TLSHandshakeTime time.Duration

	// TimeToFirstByte (TTFB) is the time from the last connection phase to the first response byte
	TimeToFirstByte time.Duration

	// ContentTransferTime is the time spent draining the response body
	ContentTransferTime time.Duration

	// TotalTime is the time until the response head arrived, plus
	// ContentTransferTime once the body has been drained
	TotalTime time.Duration

	// ConnectionReused is true when the pool served an idle connection
	ConnectionReused bool
}

// Response is the result of a dispatched request. Body is a lazy stream:
// nothing is read until the caller reads it or calls GetBody.
type Response struct {
	// StatusCode is the HTTP status code (e.g., 200, 404, 500)
	StatusCode int

	// Status is the HTTP status string (e.g., "200 OK")
	Status string

	// Proto is the protocol negotiated by the transport (e.g., "HTTP/2.0")
	Proto string

	// Headers contains the response headers
	Headers http.Header

	// Body is the unread response body
	Body io.ReadCloser

	// Timing contains detailed timing information
	Timing TimingInfo

	rawBody []byte
	parsed  bool
}

// GetBody drains and closes the body and returns its bytes. The result is
// cached, so this method can be called multiple times.
func (r *Response) GetBody() ([]byte, error) {
	if r.parsed {
		return r.rawBody, nil
	}
	if r.Body == nil {
		r.parsed = true
		return nil, nil
	}

	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.rawBody = body
	r.parsed = true
	return body, nil
}

// GetBodyAsString returns the response body as a string.
func (r *Response) GetBodyAsString() (string, error) {
	body, err := r.GetBody()
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBodyAsJSON unmarshals the response body into the provided value.
//
// Example:
//
//	var users []User
//	if err := resp.GetBodyAsJSON(&users); err != nil {
//	    log.Fatal(err)
//	}
func (r *Response) GetBodyAsJSON(v any) error {
	body, err := r.GetBody()
	if err != nil {
		return err
	}
	return jsonutil.UnmarshalSingle(body, v)
}

// Extract returns the value at a JSONPath expression such as $.items[0].id
// in the JSON body.
func (r *Response) Extract(path string) (string, error) {
	body, err := r.GetBody()
	if err != nil {
		return "", err
	}
	return jsonpath.Extract(body, path)
}

// ValidateSchema checks the JSON body against a JSON Schema document and
// returns every violation. An empty result means the body is valid.
func (r *Response) ValidateSchema(schema string) (jsonschema.ValidationErrors, error) {
	body, err := r.GetBody()
	if err != nil {
		return nil, err
	}
	valid, errs := jsonschema.ValidateWithErrors(body, schema)
	if valid {
		return nil, nil
	}
	return errs, nil
}

// Close discards the body if it has not been read.
func (r *Response) Close() error {
	if r.parsed || r.Body == nil {
		return nil
	}
	r.parsed = true
	return r.Body.Close()
}

// GetHeader returns the first value of the named header.
// Returns an empty string if the header is not present.
func (r *Response) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// Header decodes a typed header from the response. It reports false when the
// header is absent.
func (r *Response) Header(dst HeaderDecoder) (bool, error) {
	return DecodeHeader(r.Headers, dst)
}

// IsSuccess returns true if the response status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect returns true if the response status code is in the 3xx range.
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// IsClientError returns true if the response status code is in the 4xx range.
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if the response status code is in the 5xx range.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// IsError returns true if the response status code indicates an error (4xx or 5xx).
func (r *Response) IsError() bool {
	return r.IsClientError() || r.IsServerError()
}

// GetTotalTimeMillis returns the total time in milliseconds.
func (r *Response) GetTotalTimeMillis() int64 {
	return r.Timing.TotalTime.Milliseconds()
}

// GetTimeToFirstByteMillis returns the time to first byte in milliseconds.
func (r *Response) GetTimeToFirstByteMillis() int64 {
	return r.Timing.TimeToFirstByte.Milliseconds()
}

// timedBody measures how long the caller spends draining the body and
// accounts the bytes to the client's recorder when it is closed.
type timedBody struct {
	body     io.ReadCloser
	resp     *Response
	recorder *metrics.Recorder

	started   time.Time
	bytesRead int64
	closeOnce sync.Once
}

func (b *timedBody) Read(p []byte) (int, error) {
	if b.started.IsZero() {
		b.started = time.Now()
	}
	n, err := b.body.Read(p)
	b.bytesRead += int64(n)
	return n, err
}

func (b *timedBody) Close() error {
	err := b.body.Close()
	b.closeOnce.Do(func() {
		if !b.started.IsZero() {
			transfer := time.Since(b.started)
			b.resp.Timing.ContentTransferTime = transfer
			b.resp.Timing.TotalTime += transfer
		}
		b.recorder.AddBytes(b.bytesRead)
	})
	return err
}
