package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

type timeSeriesFlags struct {
	site string
	rng  string
}

type compareFlags struct {
	sites []string
	year  int
}

func (f *timeSeriesFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.site, "site", string(domain.Mcmillan), "site: Mcmillan, Goddard or Beltsville")
	cmd.Flags().StringVar(&f.rng, "range", string(domain.DefaultRange), "range: 3d, 7d, 1m or all")
}

func (f *compareFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.sites, "sites", []string{string(domain.Mcmillan)}, "comma separated sites")
	cmd.Flags().IntVar(&f.year, "year", domain.Clock().Now().Year(), "year to compare")
}

func (f *timeSeriesFlags) query(chem domain.Chemical) (domain.TimeSeriesQuery, error) {
	site, err := domain.ParseSite(f.site)
	if err != nil {
		return domain.TimeSeriesQuery{}, err
	}
	rng, err := domain.ParseRange(f.rng)
	if err != nil {
		return domain.TimeSeriesQuery{}, err
	}
	return domain.TimeSeriesQuery{Chemical: chem, Site: site, Range: rng}, nil
}

func (f *compareFlags) query(chem domain.Chemical) (domain.CompareQuery, error) {
	sites, err := domain.ParseSites(f.sites)
	if err != nil {
		return domain.CompareQuery{}, err
	}
	if len(sites) == 0 {
		return domain.CompareQuery{}, fmt.Errorf("at least one site is required")
	}
	if err := domain.ValidateYear(f.year); err != nil {
		return domain.CompareQuery{}, err
	}
	return domain.CompareQuery{Chemical: chem, Sites: sites, Year: f.year}, nil
}

func fetchTimeSeries(ctx context.Context, opts *options, f *timeSeriesFlags) (domain.TimeSeriesQuery, domain.TimeSeries, error) {
	client, chem, err := opts.source()
	if err != nil {
		return domain.TimeSeriesQuery{}, domain.TimeSeries{}, err
	}
	q, err := f.query(chem)
	if err != nil {
		return q, domain.TimeSeries{}, err
	}
	ts, err := client.TimeSeries(ctx, q)
	return q, ts, err
}

func fetchComparison(ctx context.Context, opts *options, f *compareFlags) (domain.CompareQuery, domain.Comparison, error) {
	client, chem, err := opts.source()
	if err != nil {
		return domain.CompareQuery{}, nil, err
	}
	q, err := f.query(chem)
	if err != nil {
		return q, nil, err
	}
	cmp, err := client.Compare(ctx, q)
	return q, cmp, err
}

func newTimeSeriesCmd(opts *options) *cobra.Command {
	f := &timeSeriesFlags{}
	cmd := &cobra.Command{
		Use:   "timeseries",
		Short: "Print the time-series figure for one site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, ts, err := fetchTimeSeries(cmd.Context(), opts, f)
			if err != nil {
				return err
			}
			return writeFigure(cmd.OutOrStdout(), domain.TimeSeriesFigure(q.Site, q.Range, ts, q.Site.Color()))
		},
	}
	f.register(cmd)
	return cmd
}

func newCompareCmd(opts *options) *cobra.Command {
	f := &compareFlags{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Print the monthly distribution figure for the selected sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, cmp, err := fetchComparison(cmd.Context(), opts, f)
			if err != nil {
				return err
			}
			return writeFigure(cmd.OutOrStdout(), domain.ComparisonFigure(q.Sites, q.Year, cmp))
		},
	}
	f.register(cmd)
	return cmd
}
