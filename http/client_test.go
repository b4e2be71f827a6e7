package http

import (
	"context"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient()
	require.NotNil(t, client.httpClient)
	assert.Zero(t, client.httpClient.Timeout)

	transport, ok := client.httpClient.Transport.(*http.Transport)
	require.True(t, ok, "expected a pooled *http.Transport")
	require.NotNil(t, transport.TLSClientConfig)
	assert.NotNil(t, transport.TLSClientConfig.RootCAs)
	assert.False(t, transport.TLSClientConfig.InsecureSkipVerify)
}

func TestNewClient_WithOptions(t *testing.T) {
	pool := x509.NewCertPool()
	client := NewClient(
		WithTimeout(5*time.Second),
		WithRootCAs(pool),
		WithInsecureSkipVerify(),
		WithUserAgent("reqwire-test"),
	)

	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	transport := client.httpClient.Transport.(*http.Transport)
	assert.Same(t, pool, transport.TLSClientConfig.RootCAs)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)

	snapshot := client.BuildRequest().Snapshot()
	assert.Equal(t, "reqwire-test", snapshot.Header.Get("User-Agent"))
}

func TestNewClient_WithHTTPClientIsNotMutated(t *testing.T) {
	injected := &http.Client{}
	client := NewClient(WithHTTPClient(injected), WithTimeout(time.Second))

	assert.Zero(t, injected.Timeout)
	assert.Equal(t, time.Second, client.httpClient.Timeout)
}

func TestNewClient_TLSInitFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.pem")
	require.NoError(t, os.WriteFile(empty, []byte("not a certificate"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.pem")},
		{name: "no certificates", path: empty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var recovered any
			func() {
				defer func() { recovered = recover() }()
				NewClient(WithRootCAsFile(tt.path))
			}()

			require.NotNil(t, recovered, "NewClient should panic")
			tlsErr, ok := recovered.(*TLSInitError)
			require.True(t, ok, "panic value %T is not *TLSInitError", recovered)
			assert.Contains(t, tlsErr.Error(), "cannot initialise TLS")
		})
	}
}

func TestNewClient_InjectedTransportSkipsTLS(t *testing.T) {
	assert.NotPanics(t, func() {
		NewClient(WithRootCAsFile("/does/not/exist"), WithRoundTripper(http.DefaultTransport))
	})
}

func TestClient_BuildRequestDefaults(t *testing.T) {
	b := NewClient().BuildRequest()
	snapshot := b.Snapshot()

	assert.Equal(t, http.MethodGet, snapshot.Method)
	assert.Nil(t, snapshot.URI)
	assert.Empty(t, snapshot.Header)
	assert.Empty(t, snapshot.HeaderOrder)
	assert.Empty(t, snapshot.Body)
	assert.False(t, b.Sent())
}

func TestClient_DefaultHeadersAreOverridable(t *testing.T) {
	client := NewClient(
		WithDefaultHeader(Accept{"text/plain"}),
		WithUserAgent("default-agent"),
	)

	b := client.BuildRequest().Header(Accept{"application/json"})
	snapshot := b.Snapshot()
	assert.Equal(t, "application/json", snapshot.Header.Get("Accept"))
	assert.Equal(t, []string{"Accept", "User-Agent"}, snapshot.HeaderOrder)

	// Defaults are copied per builder
	assert.Equal(t, "text/plain", client.BuildRequest().Snapshot().Header.Get("Accept"))
}

func TestClient_CloneSharesPool(t *testing.T) {
	server := echoServer(t)
	client := NewClient()
	clone := client.Clone()

	assert.NotSame(t, client, clone)
	assert.Same(t, client.httpClient, clone.httpClient)
	assert.Same(t, client.recorder, clone.recorder)

	b, err := clone.BuildRequest().URI(server.URL)
	require.NoError(t, err)
	resp, err := b.Recv(context.Background())
	require.NoError(t, err)
	require.NoError(t, resp.Close())

	assert.Equal(t, int64(1), client.Stats().TotalRequests)
}

func TestClient_IndependentHandles(t *testing.T) {
	first := NewClient()
	second := NewClient()

	assert.NotSame(t, first.httpClient, second.httpClient)
	assert.NotSame(t, first.httpClient.Transport, second.httpClient.Transport)
	assert.NotSame(t, first.recorder, second.recorder)
}

func TestClient_ConcurrentBuildersDoNotCrossTalk(t *testing.T) {
	server := echoServer(t)
	clients := []*Client{NewClient(), NewClient()}

	var wg sync.WaitGroup
	for c, client := range clients {
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(client *Client, id string) {
				defer wg.Done()

				b, err := client.BuildRequest().
					Method(http.MethodPut).
					Header(RawHeader{Key: "X-Request-Id", Value: id}).
					URI(server.URL + "/items/" + id)
				if !assert.NoError(t, err) {
					return
				}
				b, err = b.BodyJSON(map[string]string{"id": id})
				if !assert.NoError(t, err) {
					return
				}

				resp, err := b.Recv(context.Background())
				if !assert.NoError(t, err) {
					return
				}
				var echoed map[string]string
				assert.NoError(t, resp.GetBodyAsJSON(&echoed))
				assert.Equal(t, id, echoed["id"])
				assert.Equal(t, id, resp.GetHeader("X-Echo-Request-Id"))
				assert.Equal(t, http.MethodPut, resp.GetHeader("X-Echo-Method"))
			}(client, fmt.Sprintf("%d-%d", c, i))
		}
	}
	wg.Wait()

	assert.Equal(t, int64(20), clients[0].Stats().TotalRequests)
	assert.Equal(t, int64(20), clients[1].Stats().TotalRequests)
}

func TestClient_HostStats(t *testing.T) {
	client := stubClient(http.StatusOK, `{}`, nil)

	for _, target := range []string{"https://a.example.com/", "https://a.example.com/x", "https://b.example.com/"} {
		b, err := client.BuildRequest().URI(target)
		require.NoError(t, err)
		resp, err := b.Recv(context.Background())
		require.NoError(t, err)
		require.NoError(t, resp.Close())
	}

	stats := client.HostStats()
	assert.Equal(t, int64(2), stats["a.example.com"].Count)
	assert.Equal(t, int64(1), stats["b.example.com"].Count)
}
