// Package output renders requests, responses and run summaries for the
// terminal in text, JSON or YAML form.
package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/reqwire/http"
	"github.com/wesleyorama2/reqwire/internal/jsonutil"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// FormatProvider is implemented by every output format.
type FormatProvider interface {
	FormatRequest(req http.Request) string
	FormatResponse(resp *http.Response) string
	FormatResult(result Result) string
	FormatStats(stats http.Stats) string
}

// Result describes the checks run against one response.
type Result struct {
	Name      string            `json:"name,omitempty" yaml:"name,omitempty"`
	Extracted map[string]string `json:"extracted,omitempty" yaml:"extracted,omitempty"`
	Schema    []string          `json:"schemaErrors,omitempty" yaml:"schemaErrors,omitempty"`
	Err       string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Passed reports whether the request succeeded and every check held.
func (r Result) Passed() bool {
	return r.Err == "" && len(r.Schema) == 0
}

// GetFormatter returns the appropriate formatter for the given format
func GetFormatter(format OutputFormat, verbose bool, noColor bool) FormatProvider {
	switch format {
	case FormatJSON:
		return &StructuredFormatter{Verbose: verbose, marshal: marshalJSON}
	case FormatYAML:
		return &StructuredFormatter{Verbose: verbose, marshal: yaml.Marshal}
	default:
		return NewFormatter(verbose, noColor)
	}
}

// Formatter formats requests and responses as human-readable text
type Formatter struct {
	Verbose bool
	NoColor bool
	colors  *ColorScheme
}

// NewFormatter creates a new text formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	return &Formatter{
		Verbose: verbose,
		NoColor: noColor,
		colors:  SchemeFor(noColor),
	}
}

// FormatRequest formats a request snapshot for display
func (f *Formatter) FormatRequest(req http.Request) string {
	var buf strings.Builder

	target := ""
	if req.URI != nil {
		target = req.URI.String()
	}
	fmt.Fprintf(&buf, "▶ REQUEST: %s %s\n", f.colors.Method.Sprint(req.Method), f.colors.URL.Sprint(target))

	if len(req.HeaderOrder) > 0 {
		buf.WriteString("  Headers:\n")
		for _, name := range req.HeaderOrder {
			for _, value := range req.Header.Values(name) {
				fmt.Fprintf(&buf, "    %s: %s\n", f.colors.HeaderKey.Sprint(name), value)
			}
		}
	}

	if len(req.Body) > 0 {
		buf.WriteString("  Body:\n")
		buf.WriteString(indentBody(req.Body))
		buf.WriteString("\n")
	}
	return buf.String()
}

// FormatResponse formats a response for display. The body is drained.
func (f *Formatter) FormatResponse(resp *http.Response) string {
	var buf strings.Builder

	statusColor := f.colors.StatusError
	switch {
	case resp.IsSuccess():
		statusColor = f.colors.StatusOK
	case resp.IsRedirect():
		statusColor = f.colors.StatusWarn
	}

	body, err := resp.GetBody()

	fmt.Fprintf(&buf, "◀ RESPONSE: %s (%dms)\n", statusColor.Sprint(resp.Status), resp.GetTotalTimeMillis())

	if f.Verbose {
		t := resp.Timing
		buf.WriteString("  Timing:\n")
		fmt.Fprintf(&buf, "    DNS Lookup:         %dms\n", t.DNSLookupTime.Milliseconds())
		fmt.Fprintf(&buf, "    TCP Connection:     %dms\n", t.TCPConnectTime.Milliseconds())
		fmt.Fprintf(&buf, "    TLS Handshake:      %dms\n", t.TLSHandshakeTime.Milliseconds())
		fmt.Fprintf(&buf, "    Time to First Byte: %dms\n", t.TimeToFirstByte.Milliseconds())
		fmt.Fprintf(&buf, "    Content Transfer:   %dms\n", t.ContentTransferTime.Milliseconds())
		fmt.Fprintf(&buf, "    Total:              %dms\n", t.TotalTime.Milliseconds())
		if t.ConnectionReused {
			buf.WriteString("    Connection reused\n")
		}

		buf.WriteString("  Headers:\n")
		for _, key := range sortedKeys(resp.Headers) {
			for _, value := range resp.Headers[key] {
				fmt.Fprintf(&buf, "    %s: %s\n", f.colors.HeaderKey.Sprint(key), value)
			}
		}
	}

	switch {
	case err != nil:
		fmt.Fprintf(&buf, "  %s reading body: %v\n", ErrorIcon(f.NoColor), err)
	case len(body) > 0:
		buf.WriteString("  Body:\n")
		buf.WriteString(indentBody(body))
		buf.WriteString("\n")
	}
	return buf.String()
}

// FormatResult formats the extracted values and schema verdict of a request.
func (f *Formatter) FormatResult(result Result) string {
	var buf strings.Builder

	if result.Err != "" {
		fmt.Fprintf(&buf, "%s %s\n", ErrorIcon(f.NoColor), f.colors.Error.Sprint(result.Err))
	}

	if len(result.Extracted) > 0 {
		buf.WriteString("  Extracted:\n")
		for _, name := range sortedKeys(result.Extracted) {
			fmt.Fprintf(&buf, "    %s = %s\n", f.colors.Highlight.Sprint(name), result.Extracted[name])
		}
	}

	if len(result.Schema) > 0 {
		fmt.Fprintf(&buf, "  %s Schema validation failed:\n", ErrorIcon(f.NoColor))
		for _, msg := range result.Schema {
			fmt.Fprintf(&buf, "    - %s\n", msg)
		}
	}

	if result.Passed() {
		label := "OK"
		if result.Name != "" {
			label = result.Name
		}
		fmt.Fprintf(&buf, "%s %s\n", SuccessIcon(f.NoColor), f.colors.Success.Sprint(label))
	}
	return buf.String()
}

// FormatStats formats the latency summary of a handle.
func (f *Formatter) FormatStats(stats http.Stats) string {
	var buf strings.Builder
	l := stats.Latency

	buf.WriteString(f.colors.Highlight.Sprint("Summary") + "\n")
	fmt.Fprintf(&buf, "  Requests:  %d total, %d ok, %d failed (%.1f%% errors)\n",
		stats.TotalRequests, stats.SuccessRequests, stats.FailedRequests, stats.ErrorRate*100)
	fmt.Fprintf(&buf, "  Received:  %d bytes in %s\n", stats.TotalBytes, stats.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&buf, "  Latency:   min %s  mean %s  max %s\n", ms(l.Min), ms(l.Mean), ms(l.Max))
	fmt.Fprintf(&buf, "  Percentiles: p50 %s  p90 %s  p95 %s  p99 %s\n", ms(l.P50), ms(l.P90), ms(l.P95), ms(l.P99))
	return buf.String()
}

// StructuredFormatter renders machine-readable documents, one per call.
type StructuredFormatter struct {
	Verbose bool
	marshal func(any) ([]byte, error)
}

// RequestData represents the structured data of an HTTP request
type RequestData struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    any               `json:"body,omitempty" yaml:"body,omitempty"`
}

// TimingData represents detailed timing information for an HTTP request
type TimingData struct {
	DNSLookup       int64 `json:"dnsLookupMs" yaml:"dnsLookupMs"`
	TCPConnection   int64 `json:"tcpConnectionMs" yaml:"tcpConnectionMs"`
	TLSHandshake    int64 `json:"tlsHandshakeMs" yaml:"tlsHandshakeMs"`
	TimeToFirstByte int64 `json:"timeToFirstByteMs" yaml:"timeToFirstByteMs"`
	ContentTransfer int64 `json:"contentTransferMs" yaml:"contentTransferMs"`
	Total           int64 `json:"totalMs" yaml:"totalMs"`
}

// ResponseData represents the structured data of an HTTP response
type ResponseData struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	Status     string            `json:"status" yaml:"status"`
	Proto      string            `json:"proto,omitempty" yaml:"proto,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       any               `json:"body,omitempty" yaml:"body,omitempty"`
	Timing     *TimingData       `json:"timing,omitempty" yaml:"timing,omitempty"`
}

// FormatRequest formats a request snapshot as a document
func (f *StructuredFormatter) FormatRequest(req http.Request) string {
	data := RequestData{
		Method:  req.Method,
		Headers: firstValues(req.Header),
		Body:    decodeBody(req.Body),
	}
	if req.URI != nil {
		data.URL = req.URI.String()
	}
	return f.render(data)
}

// FormatResponse formats a response as a document. The body is drained.
func (f *StructuredFormatter) FormatResponse(resp *http.Response) string {
	body, err := resp.GetBody()
	if err != nil {
		return f.render(Result{Err: err.Error()})
	}

	data := ResponseData{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Proto:      resp.Proto,
		Headers:    firstValues(resp.Headers),
		Body:       decodeBody(body),
	}
	if f.Verbose {
		t := resp.Timing
		data.Timing = &TimingData{
			DNSLookup:       t.DNSLookupTime.Milliseconds(),
			TCPConnection:   t.TCPConnectTime.Milliseconds(),
			TLSHandshake:    t.TLSHandshakeTime.Milliseconds(),
			TimeToFirstByte: t.TimeToFirstByte.Milliseconds(),
			ContentTransfer: t.ContentTransferTime.Milliseconds(),
			Total:           t.TotalTime.Milliseconds(),
		}
	}
	return f.render(data)
}

// FormatResult formats a check result as a document
func (f *StructuredFormatter) FormatResult(result Result) string {
	return f.render(result)
}

// FormatStats formats a latency summary as a document
func (f *StructuredFormatter) FormatStats(stats http.Stats) string {
	return f.render(stats)
}

func (f *StructuredFormatter) render(v any) string {
	out, err := f.marshal(v)
	if err != nil {
		return fmt.Sprintf("error: failed to marshal output: %s\n", err)
	}
	s := string(out)
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

func marshalJSON(v any) ([]byte, error) {
	return jsonutil.MarshalIndent(v, "", "  ")
}

// decodeBody returns a JSON body as a value and anything else as text.
func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := jsonutil.UnmarshalSingle(body, &v); err != nil {
		return string(body)
	}
	return v
}

// indentBody pretty-prints a JSON body, leaving other content unchanged.
func indentBody(body []byte) string {
	return "  " + string(jsonutil.Indent(body, "  ", "  "))
}

func firstValues(h map[string][]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}
