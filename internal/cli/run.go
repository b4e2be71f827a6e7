package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/reqwire/http"
	"github.com/wesleyorama2/reqwire/internal/config"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		names    []string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run the requests of a collection file",
		Long: `Run loads a YAML or JSON collection file and sends its requests, all of
them in name order or only those selected with --request. Responses are
printed in that order once every request has completed.`,
		Example: `  reqwire run api.yaml
  reqwire run api.yaml --request create-user --request get-user
  reqwire run api.json --parallel 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1")
			}

			collection, err := config.LoadCollection(args[0])
			if err != nil {
				return err
			}
			selected, err := collection.Select(names)
			if err != nil {
				return err
			}
			specs := collectionSpecs(collection, selected)

			out := cmd.OutOrStdout()
			formatter, err := opts.formatter(out)
			if err != nil {
				return err
			}

			logger := opts.logger(cmd.ErrOrStderr())
			timeout := collection.Defaults.Timeout.GetDuration(opts.timeout)
			var extra []http.ClientOption
			if ua := collection.Defaults.UserAgent; ua != "" {
				extra = append(extra, http.WithUserAgent(ua))
			}
			client, err := opts.newClient(logger, timeout, extra...)
			if err != nil {
				return err
			}
			defer client.CloseIdleConnections()

			results := make([]*exchange, len(specs))
			var g errgroup.Group
			g.SetLimit(parallel)
			for i, spec := range specs {
				i, spec := i, spec
				g.Go(func() error {
					results[i] = execute(cmd.Context(), client, logger, spec, opts.failOnStatus)
					return nil
				})
			}
			_ = g.Wait()

			failed := 0
			for _, ex := range results {
				report(out, formatter, ex, opts.verbose)
				if !ex.Result.Passed() {
					failed++
				}
			}
			if len(results) > 1 {
				fmt.Fprint(out, formatter.FormatStats(client.Stats()))
			}
			if failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d requests failed\n", failed, len(results))
				return errChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&names, "request", "r", nil, "Name of a request to run (can be used multiple times)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Number of requests in flight")
	return cmd
}

// collectionSpecs converts the named collection requests into request specs.
func collectionSpecs(c *config.Collection, names []string) []*requestSpec {
	specs := make([]*requestSpec, 0, len(names))
	for _, name := range names {
		req := c.Requests[name]
		spec := &requestSpec{
			Name:    name,
			Method:  req.MethodOrDefault(),
			URL:     req.URL,
			Body:    req.JSON,
			Extract: req.Extract,
			Schema:  req.Schema,
		}

		headers := c.HeadersFor(req)
		keys := make([]string, 0, len(headers))
		for k := range headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			spec.Headers = append(spec.Headers, http.RawHeader{Key: k, Value: headers[k]})
		}
		specs = append(specs, spec)
	}
	return specs
}
