package output

import (
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/reqwire/http"
	"github.com/wesleyorama2/reqwire/internal/jsonutil"
)

func testRequest(t *testing.T) http.Request {
	t.Helper()
	u, err := url.Parse("https://api.example.com/users?page=1")
	require.NoError(t, err)
	return http.Request{
		Method: "POST",
		URI:    u,
		Header: nethttp.Header{
			"Accept":        {"application/json"},
			"Authorization": {"Bearer token123"},
		},
		HeaderOrder: []string{"Authorization", "Accept"},
		Body:        []byte(`{"name":"John Doe"}`),
	}
}

func testResponse(status int, body string) *http.Response {
	headers := make(nethttp.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Request-Id", "abc")
	return &http.Response{
		StatusCode: status,
		Status:     nethttp.StatusText(status),
		Proto:      "HTTP/1.1",
		Headers:    headers,
		Body:       io.NopCloser(strings.NewReader(body)),
		Timing: http.TimingInfo{
			DNSLookupTime:   5 * time.Millisecond,
			TCPConnectTime:  10 * time.Millisecond,
			TimeToFirstByte: 20 * time.Millisecond,
			TotalTime:       42 * time.Millisecond,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatText, "TEXT": FormatText, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestFormatter_FormatRequest(t *testing.T) {
	formatter := NewFormatter(true, true)
	output := formatter.FormatRequest(testRequest(t))

	expectedParts := []string{
		"REQUEST: POST https://api.example.com/users?page=1",
		"Headers:",
		"Accept: application/json",
		"Authorization: Bearer token123",
		"Body:",
		`"name": "John Doe"`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(output, part) {
			t.Errorf("Expected output to contain '%s', got:\n%s", part, output)
		}
	}

	// Headers follow insertion order
	if strings.Index(output, "Authorization:") > strings.Index(output, "Accept:") {
		t.Errorf("Expected Authorization before Accept, got:\n%s", output)
	}
}

func TestFormatter_FormatRequestWithoutURI(t *testing.T) {
	output := NewFormatter(false, true).FormatRequest(http.Request{Method: "GET"})
	assert.Contains(t, output, "REQUEST: GET")
	assert.NotContains(t, output, "Headers:")
	assert.NotContains(t, output, "Body:")
}

func TestFormatter_FormatResponse(t *testing.T) {
	t.Run("verbose", func(t *testing.T) {
		output := NewFormatter(true, true).FormatResponse(testResponse(200, `{"id":1}`))
		for _, part := range []string{
			"RESPONSE: OK (42ms)",
			"DNS Lookup:         5ms",
			"Time to First Byte: 20ms",
			"X-Request-Id: abc",
			`"id": 1`,
		} {
			assert.Contains(t, output, part)
		}
	})

	t.Run("quiet", func(t *testing.T) {
		output := NewFormatter(false, true).FormatResponse(testResponse(404, "not found"))
		assert.Contains(t, output, "RESPONSE: Not Found")
		assert.NotContains(t, output, "Timing:")
		assert.Contains(t, output, "not found")
	})
}

func TestFormatter_FormatResult(t *testing.T) {
	formatter := NewFormatter(false, true)

	passed := formatter.FormatResult(Result{Name: "get-user", Extracted: map[string]string{"id": "7", "name": "bob"}})
	assert.Contains(t, passed, "id = 7")
	assert.Contains(t, passed, "✓ get-user")
	assert.Less(t, strings.Index(passed, "id = 7"), strings.Index(passed, "name = bob"))

	failed := formatter.FormatResult(Result{Schema: []string{"/id: expected integer"}})
	assert.Contains(t, failed, "✗ Schema validation failed")
	assert.Contains(t, failed, "- /id: expected integer")
	assert.NotContains(t, failed, "✓")

	errored := formatter.FormatResult(Result{Err: "transport error"})
	assert.Contains(t, errored, "✗ transport error")
}

func TestFormatter_FormatStats(t *testing.T) {
	stats := http.Stats{
		TotalRequests:   10,
		SuccessRequests: 9,
		FailedRequests:  1,
		TotalBytes:      2048,
		ErrorRate:       0.1,
		Latency: http.LatencyStats{
			Min: time.Millisecond,
			P50: 2500 * time.Microsecond,
			P99: 9 * time.Millisecond,
		},
	}

	output := NewFormatter(false, true).FormatStats(stats)
	assert.Contains(t, output, "10 total, 9 ok, 1 failed (10.0% errors)")
	assert.Contains(t, output, "2048 bytes")
	assert.Contains(t, output, "min 1.00ms")
	assert.Contains(t, output, "p50 2.50ms")
}

func TestStructuredFormatter_JSON(t *testing.T) {
	formatter := GetFormatter(FormatJSON, true, true)

	var req RequestData
	require.NoError(t, jsonutil.Unmarshal([]byte(formatter.FormatRequest(testRequest(t))), &req))
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://api.example.com/users?page=1", req.URL)
	assert.Equal(t, "Bearer token123", req.Headers["Authorization"])
	assert.Equal(t, map[string]any{"name": "John Doe"}, req.Body)

	var resp ResponseData
	require.NoError(t, jsonutil.Unmarshal([]byte(formatter.FormatResponse(testResponse(201, `{"id":1}`))), &resp))
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, map[string]any{"id": float64(1)}, resp.Body)
	require.NotNil(t, resp.Timing)
	assert.Equal(t, int64(42), resp.Timing.Total)

	var text ResponseData
	require.NoError(t, jsonutil.Unmarshal([]byte(formatter.FormatResponse(testResponse(200, "plain"))), &text))
	assert.Equal(t, "plain", text.Body)
}

func TestStructuredFormatter_YAML(t *testing.T) {
	formatter := GetFormatter(FormatYAML, false, true)

	var resp ResponseData
	require.NoError(t, yaml.Unmarshal([]byte(formatter.FormatResponse(testResponse(200, `{"ok":true}`))), &resp))
	assert.Equal(t, 200, resp.StatusCode)
	assert.Nil(t, resp.Timing)
	assert.Equal(t, map[string]any{"ok": true}, resp.Body)

	var result Result
	require.NoError(t, yaml.Unmarshal([]byte(formatter.FormatResult(Result{Name: "r", Extracted: map[string]string{"a": "1"}})), &result))
	assert.Equal(t, "1", result.Extracted["a"])

	out := formatter.FormatStats(http.Stats{TotalRequests: 3})
	assert.Contains(t, out, "totalRequests: 3")
}

func TestGetFormatter_DefaultsToText(t *testing.T) {
	_, ok := GetFormatter(FormatText, false, true).(*Formatter)
	assert.True(t, ok)
	_, ok = GetFormatter("", false, true).(*Formatter)
	assert.True(t, ok)
}
