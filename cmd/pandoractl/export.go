package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/pandora-dashboard/internal/adapter/chart"
)

func newExportCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a figure to a PNG file",
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output file (required)")
	_ = cmd.MarkPersistentFlagRequired("output")

	ts := &timeSeriesFlags{}
	tsCmd := &cobra.Command{
		Use:   "timeseries",
		Short: "Export the time-series scatter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, series, err := fetchTimeSeries(cmd.Context(), opts, ts)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := chart.TimeSeriesPNG(&buf, q.Site, q.Range, series, q.Site.Color()); err != nil {
				return err
			}
			return writeFile(cmd, output, &buf)
		},
	}
	ts.register(tsCmd)

	cf := &compareFlags{}
	cmpCmd := &cobra.Command{
		Use:   "compare",
		Short: "Export the monthly distribution strips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, cmp, err := fetchComparison(cmd.Context(), opts, cf)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := chart.ComparisonPNG(&buf, q.Sites, q.Year, cmp); err != nil {
				return err
			}
			return writeFile(cmd, output, &buf)
		},
	}
	cf.register(cmpCmd)

	cmd.AddCommand(tsCmd, cmpCmd)
	return cmd
}

func writeFile(cmd *cobra.Command, path string, buf *bytes.Buffer) error {
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", path, buf.Len())
	return nil
}
