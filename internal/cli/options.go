package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/wesleyorama2/reqwire/http"
	"github.com/wesleyorama2/reqwire/internal/jsonutil"
	"github.com/wesleyorama2/reqwire/internal/output"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	verbose      bool
	noColor      bool
	debug        bool
	format       string
	timeout      time.Duration
	insecure     bool
	caFile       string
	failOnStatus bool
}

// logger returns a debug text logger on stderr when --debug is set.
func (o *globalOptions) logger(stderr io.Writer) *slog.Logger {
	if !o.debug {
		return slog.New(discardHandler{})
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newClient builds the transport handle for a command. TLS setup failures
// are returned as errors.
func (o *globalOptions) newClient(logger *slog.Logger, timeout time.Duration, extra ...http.ClientOption) (client *http.Client, err error) {
	defer func() {
		if r := recover(); r != nil {
			tlsErr, ok := r.(*http.TLSInitError)
			if !ok {
				panic(r)
			}
			client, err = nil, tlsErr
		}
	}()

	options := []http.ClientOption{
		http.WithLogger(logger),
		http.WithTimeout(timeout),
		http.WithUserAgent("reqwire/" + version),
	}
	if o.caFile != "" {
		options = append(options, http.WithRootCAsFile(o.caFile))
	}
	if o.insecure {
		options = append(options, http.WithInsecureSkipVerify())
	}
	options = append(options, extra...)
	return http.NewClient(options...), nil
}

// formatter returns the output formatter for w.
func (o *globalOptions) formatter(w io.Writer) (output.FormatProvider, error) {
	format, err := output.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = output.ColorDisabled(o.noColor, f)
	}
	return output.GetFormatter(format, o.verbose, noColor), nil
}

// parseHeader parses a "Name: value" flag.
func parseHeader(s string) (http.RawHeader, error) {
	name, value, ok := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return http.RawHeader{}, fmt.Errorf("invalid header %q (want 'Name: value')", s)
	}
	return http.RawHeader{Key: name, Value: strings.TrimSpace(value)}, nil
}

// parseExtract parses a "name=path" flag.
func parseExtract(s string) (string, string, error) {
	name, path, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("invalid extraction %q (want name=$.path)", s)
	}
	return name, path, nil
}

// rawJSON is a JSON document passed through to the encoder unchanged.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) { return r, nil }

// parseJSONBody reads a -j flag value: inline JSON, or @file.
func parseJSONBody(s string) (rawJSON, error) {
	data := []byte(s)
	if name, ok := strings.CutPrefix(s, "@"); ok {
		var err error
		if data, err = os.ReadFile(name); err != nil {
			return nil, fmt.Errorf("reading JSON body: %w", err)
		}
	}
	if !jsonutil.Valid(data) {
		return nil, fmt.Errorf("request body is not valid JSON")
	}
	return rawJSON(data), nil
}
