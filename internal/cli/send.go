package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/reqwire/http"
	"github.com/wesleyorama2/reqwire/internal/pacer"
)

// sendFlags are the per-request flags of send and the method shortcuts.
type sendFlags struct {
	headers     []string
	body        string
	extract     []string
	schemaFile  string
	repeat      int
	concurrency int
	rate        float64
}

func (f *sendFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "HTTP header 'Name: value' (can be used multiple times)")
	flags.StringVarP(&f.body, "json", "j", "", "JSON request body, or @file to read it from a file")
	flags.StringArrayVar(&f.extract, "extract", nil, "Extract a value from the JSON response as name=$.path (can be used multiple times)")
	flags.StringVar(&f.schemaFile, "schema", "", "JSON Schema file the response body must satisfy")
	flags.IntVar(&f.repeat, "repeat", 1, "Send the request this many times and print a latency summary")
	flags.IntVar(&f.concurrency, "concurrency", 1, "Number of requests in flight with --repeat")
	flags.Float64Var(&f.rate, "rate", 0, "Maximum requests per second with --repeat (0 for no limit)")
}

// spec converts the flags into a request description.
func (f *sendFlags) spec(method, url string) (*requestSpec, error) {
	spec := &requestSpec{Method: strings.ToUpper(method), URL: url}

	for _, h := range f.headers {
		header, err := parseHeader(h)
		if err != nil {
			return nil, err
		}
		spec.Headers = append(spec.Headers, header)
	}

	if f.body != "" {
		body, err := parseJSONBody(f.body)
		if err != nil {
			return nil, err
		}
		spec.Body = body
	}

	if len(f.extract) > 0 {
		spec.Extract = make(map[string]string, len(f.extract))
		for _, e := range f.extract {
			name, path, err := parseExtract(e)
			if err != nil {
				return nil, err
			}
			spec.Extract[name] = path
		}
	}

	if f.schemaFile != "" {
		schema, err := os.ReadFile(f.schemaFile)
		if err != nil {
			return nil, fmt.Errorf("reading schema: %w", err)
		}
		spec.Schema = string(schema)
	}

	if f.repeat < 1 {
		return nil, fmt.Errorf("--repeat must be at least 1")
	}
	if f.concurrency < 1 {
		return nil, fmt.Errorf("--concurrency must be at least 1")
	}
	if f.rate < 0 {
		return nil, fmt.Errorf("--rate cannot be negative")
	}
	return spec, nil
}

func newSendCmd(opts *globalOptions) *cobra.Command {
	flags := &sendFlags{}
	cmd := &cobra.Command{
		Use:   "send METHOD URL",
		Short: "Send a request with any method",
		Example: `  reqwire send GET https://api.example.com/users -H 'Accept: application/json'
  reqwire send PATCH https://api.example.com/users/1 -j '{"name":"alice"}' --extract id=$.id`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts, flags, args[0], args[1])
		},
	}
	flags.register(cmd)
	return cmd
}

// newMethodCmd returns a shortcut command such as "get URL".
func newMethodCmd(opts *globalOptions, name, method string) *cobra.Command {
	flags := &sendFlags{}
	cmd := &cobra.Command{
		Use:   name + " URL",
		Short: fmt.Sprintf("Send a %s request to the specified URL", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts, flags, method, args[0])
		},
	}
	flags.register(cmd)
	return cmd
}

func runSend(cmd *cobra.Command, opts *globalOptions, flags *sendFlags, method, url string) error {
	spec, err := flags.spec(method, url)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	formatter, err := opts.formatter(out)
	if err != nil {
		return err
	}

	logger := opts.logger(cmd.ErrOrStderr())
	client, err := opts.newClient(logger, opts.timeout)
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	if flags.repeat == 1 {
		ex := execute(cmd.Context(), client, logger, spec, opts.failOnStatus)
		report(out, formatter, ex, opts.verbose)
		if !ex.Result.Passed() {
			return errChecksFailed
		}
		return nil
	}

	run := repeatRun{
		n:            flags.repeat,
		concurrency:  flags.concurrency,
		pacer:        pacer.New(flags.rate),
		failOnStatus: opts.failOnStatus,
	}
	failed, err := run.send(cmd.Context(), client, spec, out)
	fmt.Fprint(out, formatter.FormatStats(client.Stats()))
	if err != nil {
		return err
	}
	if failed > 0 {
		return errChecksFailed
	}
	return nil
}

// repeatRun sends the same request several times over one client.
type repeatRun struct {
	n            int
	concurrency  int
	pacer        *pacer.Pacer
	failOnStatus bool
}

// send dispatches spec r.n times with at most r.concurrency requests in
// flight, paced by r.pacer, and returns the number of failures. Only the
// first failure is described on w. Cancelling ctx stops scheduling new
// requests and is reported as the error.
func (r repeatRun) send(ctx context.Context, client *http.Client, spec *requestSpec, w io.Writer) (int64, error) {
	var (
		g        errgroup.Group
		failed   atomic.Int64
		reported atomic.Bool
		waitErr  error
	)
	g.SetLimit(r.concurrency)

	logger := client.Logger()
	for i := 0; i < r.n; i++ {
		if waitErr = r.pacer.Wait(ctx); waitErr != nil {
			break
		}
		i := i
		g.Go(func() error {
			ex := execute(ctx, client, logger, spec, r.failOnStatus)
			if !ex.Result.Passed() {
				failed.Add(1)
				if reported.CompareAndSwap(false, true) {
					fmt.Fprintf(w, "request %d failed: %s\n", i+1, describeFailure(ex))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed.Load(), waitErr
}

func describeFailure(ex *exchange) string {
	if ex.Result.Err != "" {
		return ex.Result.Err
	}
	return "schema validation failed: " + strings.Join(ex.Result.Schema, "; ")
}
