package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"sync/atomic"

	"github.com/wesleyorama2/reqwire/internal/jsonutil"
)

// Request is a read-only snapshot of a request under construction.
type Request struct {
	// Method is the HTTP method. The builder starts with GET.
	Method string

	// URI is the absolute target, nil until RequestBuilder.URI succeeds.
	URI *url.URL

	// Header holds the headers keyed by canonical name.
	Header http.Header

	// HeaderOrder lists the header names in order of first insertion,
	// spelled as the most recent Header.Name for each. Look values up with
	// Header.Values, which canonicalises the key.
	HeaderOrder []string

	// Body is the request body, empty unless BodyJSON was called.
	Body []byte
}

// request is the in-progress request owned by a builder.
type request struct {
	method string
	uri    *url.URL
	header http.Header
	order  []string
	body   []byte
}

func (r *request) setHeader(h Header) {
	declared := h.Name()
	key := textproto.CanonicalMIMEHeaderKey(declared)
	values := h.Encode()

	if len(values) == 0 {
		r.deleteHeader(key)
		return
	}
	if i := r.orderIndex(key); i >= 0 {
		r.order[i] = declared
	} else {
		r.order = append(r.order, declared)
	}
	r.header[key] = append([]string(nil), values...)
}

func (r *request) deleteHeader(key string) {
	delete(r.header, key)
	if i := r.orderIndex(key); i >= 0 {
		r.order = append(r.order[:i:i], r.order[i+1:]...)
	}
}

// orderIndex returns the position of the header with canonical key in
// r.order, or -1.
func (r *request) orderIndex(key string) int {
	for i, n := range r.order {
		if textproto.CanonicalMIMEHeaderKey(n) == key {
			return i
		}
	}
	return -1
}

func (r *request) snapshot() Request {
	var uri *url.URL
	if r.uri != nil {
		u := *r.uri
		uri = &u
	}
	return Request{
		Method:      r.method,
		URI:         uri,
		Header:      r.header.Clone(),
		HeaderOrder: append([]string(nil), r.order...),
		Body:        append([]byte(nil), r.body...),
	}
}

// RequestBuilder assembles one request and dispatches it exactly once.
//
// A builder is obtained from Client.BuildRequest, configured through chained
// calls and consumed by one of the terminal operations Recv, RecvJSONInto or
// RecvJSON. After that every operation is rejected: fallible and terminal
// operations return an error matching ErrBuilderConsumed, while Method and
// Header, which have no error result, panic with it.
//
// A RequestBuilder is single-owner and must not be used from several
// goroutines at once. The Client it came from may be shared freely.
//
// Example:
//
//	b, err := client.BuildRequest().
//	    Method(http.MethodPost).
//	    Header(http.BearerAuth(token)).
//	    URI("https://api.example.com/users")
//	if err != nil {
//	    return err
//	}
//	if b, err = b.BodyJSON(newUser); err != nil {
//	    return err
//	}
//	user, err := http.RecvJSON[User](ctx, b)
type RequestBuilder struct {
	client *Client
	req    request
	sealed atomic.Bool
}

func newRequestBuilder(c *Client) *RequestBuilder {
	return &RequestBuilder{
		client: c,
		req: request{
			method: http.MethodGet,
			header: make(http.Header),
		},
	}
}

func usageError(op string) *Error {
	return newError(KindUsage, op, ErrBuilderConsumed)
}

// mustBeOpen panics if the builder was dispatched.
func (b *RequestBuilder) mustBeOpen(op string) {
	if b.sealed.Load() {
		panic(usageError(op))
	}
}

// Method sets the HTTP method, replacing any previous one.
func (b *RequestBuilder) Method(method string) *RequestBuilder {
	b.mustBeOpen("method")
	b.req.method = method
	return b
}

// Header encodes h and stores it under its canonical name, replacing any
// header of the same name. A header that encodes to no values is removed.
func (b *RequestBuilder) Header(h Header) *RequestBuilder {
	b.mustBeOpen("header")
	b.req.setHeader(h)
	return b
}

// URI parses s as an absolute URI and makes it the request target. It fails
// with ErrInvalidURI when s is empty, lacks a scheme or host, or contains
// characters outside RFC 3986; the previous target is kept in that case.
func (b *RequestBuilder) URI(s string) (*RequestBuilder, error) {
	if b.sealed.Load() {
		return nil, usageError("uri")
	}
	u, err := parseAbsoluteURI(s)
	if err != nil {
		return nil, newError(KindInvalidURI, "uri", err)
	}
	b.req.uri = u
	return b, nil
}

// BodyJSON encodes v as JSON, makes it the request body and sets
// Content-Type to application/json, replacing any previous content type. If
// v cannot be encoded (NaN or infinite numbers, channels, functions, cycles)
// it fails with ErrSerialization and leaves the body and headers untouched.
func (b *RequestBuilder) BodyJSON(v any) (*RequestBuilder, error) {
	if b.sealed.Load() {
		return nil, usageError("body_json")
	}
	data, err := jsonutil.Marshal(v)
	if err != nil {
		return nil, newError(KindSerialization, "body_json", err)
	}
	b.req.body = data
	b.req.setHeader(JSONContentType)
	return b, nil
}

// Snapshot returns a copy of the request as currently configured.
func (b *RequestBuilder) Snapshot() Request {
	return b.req.snapshot()
}

// Sent reports whether a terminal operation has consumed the builder.
func (b *RequestBuilder) Sent() bool {
	return b.sealed.Load()
}

// seal marks the builder consumed, failing if it already was.
func (b *RequestBuilder) seal(op string) error {
	if !b.sealed.CompareAndSwap(false, true) {
		return usageError(op)
	}
	return nil
}

var errRelativeURI = errors.New("uri must be absolute with scheme and host")

func parseAbsoluteURI(s string) (*url.URL, error) {
	if s == "" {
		return nil, errors.New("empty uri")
	}
	for i := 0; i < len(s); i++ {
		if !isURIChar(s[i]) {
			return nil, fmt.Errorf("illegal character %q at offset %d", s[i], i)
		}
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errRelativeURI
	}
	return u, nil
}

// isURIChar reports whether c may appear in a URI: unreserved, reserved or
// the percent sign of an escape.
func isURIChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '.', '_', '~', // unreserved
		':', '/', '?', '#', '[', ']', '@', // gen-delims
		'!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', // sub-delims
		'%':
		return true
	}
	return false
}
