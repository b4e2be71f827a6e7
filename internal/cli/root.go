// Package cli implements the reqwire command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// errChecksFailed is returned when requests completed but some failed; the
// details have already been printed.
var errChecksFailed = errors.New("one or more requests failed")

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "reqwire",
		Short:   "Build, send and check HTTP requests from the terminal",
		Version: version,
		Long: `reqwire assembles HTTP requests with typed headers and JSON bodies, sends
them over a shared connection pool and checks the responses with JSONPath
extraction and JSON Schema validation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show the request, timings and response headers")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&opts.debug, "debug", false, "Write debug logs to stderr")
	flags.StringVarP(&opts.format, "output", "o", "text", "Output format: text, json or yaml")
	flags.DurationVarP(&opts.timeout, "timeout", "t", 30*time.Second, "Timeout for each request (0 disables it)")
	flags.BoolVarP(&opts.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	flags.StringVar(&opts.caFile, "ca-file", "", "PEM file with the CA certificates to trust instead of the system pool")
	flags.BoolVar(&opts.failOnStatus, "fail", false, "Treat 4xx and 5xx responses as failures")

	rootCmd.AddCommand(
		newSendCmd(opts),
		newMethodCmd(opts, "get", "GET"),
		newMethodCmd(opts, "post", "POST"),
		newMethodCmd(opts, "put", "PUT"),
		newMethodCmd(opts, "delete", "DELETE"),
		newRunCmd(opts),
	)
	return rootCmd
}

// Execute runs the command line until completion or interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errChecksFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
