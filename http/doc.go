// Package http builds and dispatches outbound HTTP requests over a shared,
// pooled transport and decodes JSON responses into typed values.
//
// This package provides:
//   - Client, a transport handle owning one connection pool. Clones share it.
//   - RequestBuilder, a single-use fluent builder for one request
//   - Typed headers that know their own wire name and encoding
//   - Response with a lazy body, timing details and JSON helpers
//   - An error taxonomy (ErrInvalidURI, ErrSerialization, ErrTransport,
//     ErrEncoding, ErrDeserialization) usable with errors.Is
//
// Basic Usage:
//
//	client := http.NewClient(http.WithTimeout(30 * time.Second))
//
//	b, err := client.BuildRequest().
//	    Header(http.Accept{"application/json"}).
//	    URI("https://api.example.com/users/42")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	user, err := http.RecvJSON[User](ctx, b)
//	if errors.Is(err, http.ErrDeserialization) {
//	    // the server answered with something that is not a User
//	}
//
// Sending JSON:
//
//	b, err := client.BuildRequest().
//	    Method(http.MethodPost).
//	    URI("https://api.example.com/users")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if b, err = b.BodyJSON(User{Name: "alice"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := b.Recv(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer resp.Close()
//	fmt.Printf("Status: %d, TTFB: %v\n", resp.StatusCode, resp.Timing.TimeToFirstByte)
//
// Thread Safety:
//
// Client is safe for concurrent use; many goroutines may build and dispatch
// requests through one Client or its clones at the same time. A
// RequestBuilder belongs to one goroutine and is consumed by its terminal
// call.
package http

import "net/http"

// Common HTTP methods, re-exported so callers need not import net/http.
const (
	MethodGet     = http.MethodGet
	MethodHead    = http.MethodHead
	MethodPost    = http.MethodPost
	MethodPut     = http.MethodPut
	MethodPatch   = http.MethodPatch
	MethodDelete  = http.MethodDelete
	MethodOptions = http.MethodOptions
)
