// Command pandoractl queries the measurement API from the terminal and prints
// the same figures the dashboard renders, or exports them as PNG.
//
// Usage:
//
//	pandoractl timeseries --chemical NO2 --site Goddard --range 7d
//	pandoractl compare --chemical HCHO --sites Mcmillan,Beltsville --year 2024
//	pandoractl export compare --sites Goddard -o goddard.png
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/pandora-dashboard/internal/adapter/pandora"
	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
)

type options struct {
	apiURL   string
	timeout  time.Duration
	chemical string
	verbose  bool
	logOut   io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "pandoractl",
		Short:        "Query Pandora total-column measurements",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.logOut = cmd.ErrOrStderr()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", sharedcfg.EnvOrDefault("PANDORA_API_URL", "http://localhost:8000"), "measurement API base URL")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	flags.StringVar(&opts.chemical, "chemical", string(domain.HCHO), "chemical: HCHO or NO2")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newTimeSeriesCmd(opts),
		newCompareCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// source builds the measurement client and resolves the chemical flag.
func (o *options) source() (*pandora.Client, domain.Chemical, error) {
	chem, err := domain.ParseChemical(o.chemical)
	if err != nil {
		return nil, "", err
	}
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logOut := o.logOut
	if logOut == nil {
		logOut = os.Stderr
	}
	logger := observability.NewTextLogger(logOut, level)
	// Metrics are collected but never exported from the CLI.
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	return pandora.NewClient(o.apiURL, o.timeout, metrics, logger), chem, nil
}

func writeFigure(w io.Writer, fig domain.Figure) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fig); err != nil {
		return fmt.Errorf("encode figure: %w", err)
	}
	return nil
}
