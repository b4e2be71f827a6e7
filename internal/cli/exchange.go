package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/wesleyorama2/reqwire/http"
	"github.com/wesleyorama2/reqwire/internal/output"
	"github.com/wesleyorama2/reqwire/pkg/jsonpath"
	"github.com/wesleyorama2/reqwire/pkg/jsonschema"
)

// requestSpec is a request as described on the command line or in a
// collection file.
type requestSpec struct {
	Name    string
	Method  string
	URL     string
	Headers []http.RawHeader
	// Body is encoded as the JSON body when non-nil.
	Body    any
	Extract map[string]string
	Schema  string
}

// build turns the spec into a ready-to-send builder. Explicit headers are
// applied after the body so they can override its Content-Type.
func (s *requestSpec) build(client *http.Client) (*http.RequestBuilder, error) {
	b, err := client.BuildRequest().Method(s.Method).URI(s.URL)
	if err != nil {
		return nil, err
	}
	if s.Body != nil {
		if b, err = b.BodyJSON(s.Body); err != nil {
			return nil, err
		}
	}
	for _, h := range s.Headers {
		b.Header(h)
	}
	return b, nil
}

// exchange is the outcome of sending one requestSpec.
type exchange struct {
	Request  http.Request
	Response *http.Response
	Result   output.Result
}

// execute sends spec and runs its checks. The response body is fully read
// before it returns.
func execute(ctx context.Context, client *http.Client, logger *slog.Logger, spec *requestSpec, failOnStatus bool) *exchange {
	ex := &exchange{Result: output.Result{Name: spec.Name}}

	b, err := spec.build(client)
	if err != nil {
		ex.Result.Err = err.Error()
		return ex
	}
	ex.Request = b.Snapshot()

	logger.DebugContext(ctx, "dispatching",
		slog.String("name", spec.Name),
		slog.String("method", ex.Request.Method),
		slog.String("url", spec.URL),
	)

	resp, err := b.Recv(ctx)
	if err != nil {
		logger.DebugContext(ctx, "request failed", slog.String("name", spec.Name), slog.Any("error", err))
		ex.Result.Err = err.Error()
		return ex
	}
	ex.Response = resp

	body, err := resp.GetBody()
	if err != nil {
		ex.Result.Err = fmt.Sprintf("reading body: %v", err)
		return ex
	}
	logger.DebugContext(ctx, "completed",
		slog.String("name", spec.Name),
		slog.String("status", resp.Status),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", resp.Timing.TotalTime),
	)

	if failOnStatus && resp.IsError() {
		ex.Result.Err = fmt.Sprintf("unexpected status %s", resp.Status)
	}

	if len(spec.Extract) > 0 {
		values, err := jsonpath.ExtractMultiple(body, spec.Extract)
		ex.Result.Extracted = values
		if err != nil && ex.Result.Err == "" {
			ex.Result.Err = err.Error()
		}
	}

	if spec.Schema != "" {
		if valid, errs := jsonschema.ValidateWithErrors(body, spec.Schema); !valid {
			for _, e := range errs {
				ex.Result.Schema = append(ex.Result.Schema, e.Error())
			}
		}
	}
	return ex
}

// report prints an exchange. The request is only shown in verbose mode.
func report(w io.Writer, f output.FormatProvider, ex *exchange, verbose bool) {
	if verbose && ex.Request.URI != nil {
		fmt.Fprint(w, f.FormatRequest(ex.Request))
	}
	if ex.Response != nil {
		fmt.Fprint(w, f.FormatResponse(ex.Response))
	}
	r := ex.Result
	if r.Name != "" || r.Err != "" || len(r.Extracted) > 0 || len(r.Schema) > 0 {
		fmt.Fprint(w, f.FormatResult(r))
	}
}
