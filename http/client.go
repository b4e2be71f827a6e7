package http

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/wesleyorama2/reqwire/internal/metrics"
)

// Client is the transport handle: a pooled, TLS-capable HTTP client that
// hands out RequestBuilders. Client is immutable after NewClient returns and
// safe for concurrent use by multiple goroutines. Clone returns a handle that
// shares the same connection pool.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	recorder   *metrics.Recorder
	defaults   []Header

	// Only consulted while NewClient builds the transport
	timeout     time.Duration
	transport   http.RoundTripper
	rootCAs     *x509.CertPool
	rootCAsFile string
	insecure    bool
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a transport handle with its own connection pool.
//
// The TLS configuration uses the platform trust store unless WithRootCAs or
// WithRootCAsFile is given. If the TLS backend cannot be initialised (the
// trust store cannot be loaded, or the CA file is unreadable or holds no
// certificates) NewClient panics with a *TLSInitError. This is a startup-time
// misconfiguration with no degraded mode, so it is not returned as an
// ordinary error. Clients built with WithHTTPClient or WithRoundTripper skip
// TLS initialisation entirely.
//
// Example:
//
//	client := http.NewClient(
//	    http.WithTimeout(30*time.Second),
//	    http.WithUserAgent("billing/1.2"),
//	)
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		logger:   slog.New(discardHandler{}),
		recorder: metrics.NewRecorder(),
	}

	for _, option := range options {
		option(client)
	}

	if client.httpClient == nil {
		transport := client.transport
		if transport == nil {
			t, err := client.newTransport()
			if err != nil {
				panic(&TLSInitError{Err: err})
			}
			transport = t
		}
		client.httpClient = &http.Client{Transport: transport}
	}
	if client.timeout > 0 {
		httpClient := *client.httpClient
		httpClient.Timeout = client.timeout
		client.httpClient = &httpClient
	}

	return client
}

func (c *Client) newTransport() (*http.Transport, error) {
	tlsConfig, err := c.newTLSConfig()
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return transport, nil
}

func (c *Client) newTLSConfig() (*tls.Config, error) {
	config := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.insecure,
	}

	switch {
	case c.rootCAs != nil:
		config.RootCAs = c.rootCAs
	case c.rootCAsFile != "":
		pem, err := os.ReadFile(c.rootCAsFile)
		if err != nil {
			return nil, fmt.Errorf("reading root CAs: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.rootCAsFile)
		}
		config.RootCAs = pool
	default:
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("loading system trust store: %w", err)
		}
		if pool == nil {
			return nil, errors.New("system trust store unavailable")
		}
		config.RootCAs = pool
	}

	return config, nil
}

// WithTimeout bounds every exchange made through the client, including
// reading the response body. Zero, the default, means no limit; callers can
// also bound a single dispatch with its context.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets the diagnostic sink for RecvJSON trace records. The
// default discards everything.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient makes the handle dispatch through an existing *http.Client.
// The client's transport is used as the pool and TLS options are ignored.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRoundTripper makes the handle dispatch through rt. TLS options are
// ignored.
func WithRoundTripper(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithRootCAs replaces the platform trust store with pool.
func WithRootCAs(pool *x509.CertPool) ClientOption {
	return func(c *Client) {
		c.rootCAs = pool
	}
}

// WithRootCAsFile replaces the platform trust store with the PEM
// certificates in path.
func WithRootCAsFile(path string) ClientOption {
	return func(c *Client) {
		c.rootCAsFile = path
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// WARNING: This should only be used for testing purposes.
func WithInsecureSkipVerify() ClientOption {
	return func(c *Client) {
		c.insecure = true
	}
}

// WithUserAgent sets the User-Agent of every request built by the client.
func WithUserAgent(userAgent string) ClientOption {
	return WithDefaultHeader(UserAgent(userAgent))
}

// WithDefaultHeader seeds every RequestBuilder with h. Headers set on the
// builder replace defaults of the same name.
func WithDefaultHeader(h Header) ClientOption {
	return func(c *Client) {
		c.defaults = append(c.defaults, h)
	}
}

// BuildRequest returns a fresh RequestBuilder dispatching through c. The
// builder starts as GET with no target URI, the client's default headers and
// an empty body.
func (c *Client) BuildRequest() *RequestBuilder {
	b := newRequestBuilder(c)
	for _, h := range c.defaults {
		b.req.setHeader(h)
	}
	return b
}

// Clone returns a handle sharing c's connection pool, logger and latency
// statistics. It never creates a new pool.
func (c *Client) Clone() *Client {
	clone := *c
	return &clone
}

// Logger returns the diagnostic logger the handle writes to.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Stats is a point-in-time view of a handle's exchange counters and latency
// distribution.
type Stats = metrics.Snapshot

// LatencyStats holds latency percentiles.
type LatencyStats = metrics.LatencyStats

// Stats returns latency statistics for every exchange dispatched through
// this handle and its clones.
func (c *Client) Stats() Stats {
	return c.recorder.Snapshot()
}

// HostStats returns latency statistics per target host.
func (c *Client) HostStats() map[string]LatencyStats {
	return c.recorder.HostStats()
}

// CloseIdleConnections closes idle pooled connections. Connections in use
// are not interrupted.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
