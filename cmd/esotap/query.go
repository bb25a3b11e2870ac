package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/esotap/adql"
	"github.com/jonwraymond/esotap/eso"
	"github.com/jonwraymond/esotap/tabular"
	"github.com/jonwraymond/esotap/tap"
)

type queryFlags struct {
	instruments []string
	collections []string
	columns     []string
	filters     []string
	cone        []float64
	startTime   string
	endTime     string
	orderBy     string
	desc        bool
	top         int
	count       bool
}

func newQueryCmd(opts *options) *cobra.Command {
	qf := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query [adql]",
		Short: "run a query against the archive",
		Long: `Run a query against the archive.

With a positional argument the query is raw ADQL, sent as-is. Without
one, a query is built from the flags: --instrument targets the raw-data
table, --collection the reduced-data catalogue, and neither queries raw
data unconstrained.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, shutdown, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer shutdown()

			if len(args) == 1 {
				res, err := client.QueryTAP(cmd.Context(), args[0], !opts.noCache)
				if err != nil {
					return err
				}
				return printResult(res.Table)
			}

			if len(qf.instruments) > 0 && len(qf.collections) > 0 {
				return fmt.Errorf("--instrument and --collection are mutually exclusive")
			}

			queryOpts, err := qf.queryOptions(opts.noCache)
			if err != nil {
				return err
			}

			var res *tap.Result
			switch {
			case len(qf.collections) > 0:
				res, err = client.QueryCollections(cmd.Context(), qf.collections, queryOpts)
			case len(qf.instruments) > 0:
				res, err = client.QueryInstrument(cmd.Context(), qf.instruments, queryOpts)
			default:
				res, err = client.QueryMain(cmd.Context(), queryOpts)
			}
			if err != nil {
				return err
			}
			return printResult(res.Table)
		},
	}

	cmd.Flags().StringSliceVarP(&qf.instruments, "instrument", "i", nil,
		"restrict to the named instruments (repeatable)")
	cmd.Flags().StringSliceVarP(&qf.collections, "collection", "C", nil,
		"query the named reduced-data collections (repeatable)")
	cmd.Flags().StringSliceVar(&qf.columns, "columns", nil,
		"columns to select (default: all)")
	cmd.Flags().StringArrayVarP(&qf.filters, "filter", "f", nil,
		`column filter as "column=value" or "column=<op> <value>" (repeatable)`)
	cmd.Flags().Float64SliceVar(&qf.cone, "cone", nil,
		"cone search as ra,dec,radius in degrees")
	cmd.Flags().StringVar(&qf.startTime, "start", "", `earliest observation time ("2006-01-02 15:04:05")`)
	cmd.Flags().StringVar(&qf.endTime, "end", "", `latest observation time ("2006-01-02 15:04:05")`)
	cmd.Flags().StringVar(&qf.orderBy, "order-by", "", "column to order results by")
	cmd.Flags().BoolVar(&qf.desc, "desc", false, "order descending")
	cmd.Flags().IntVar(&qf.top, "top", 0, "cap the number of result rows")
	cmd.Flags().BoolVar(&qf.count, "count", false, "return the matching row count instead of rows")

	return cmd
}

func (qf *queryFlags) queryOptions(noCache bool) (eso.QueryOptions, error) {
	queryOpts := eso.QueryOptions{
		Columns:   qf.columns,
		StartTime: qf.startTime,
		EndTime:   qf.endTime,
		OrderBy:   qf.orderBy,
		OrderDesc: qf.desc,
		CountOnly: qf.count,
		NoCache:   noCache,
	}
	if qf.top > 0 {
		queryOpts.Top = &qf.top
	}

	if len(qf.filters) > 0 {
		queryOpts.Filters = make(map[string]adql.Value, len(qf.filters))
		for _, f := range qf.filters {
			column, value, ok := strings.Cut(f, "=")
			if !ok {
				return eso.QueryOptions{}, fmt.Errorf("invalid filter %q, want column=value", f)
			}
			queryOpts.Filters[column] = adql.String(value)
		}
	}

	switch len(qf.cone) {
	case 0:
	case 3:
		queryOpts.ConeRA = &qf.cone[0]
		queryOpts.ConeDec = &qf.cone[1]
		queryOpts.ConeRadius = &qf.cone[2]
	default:
		return eso.QueryOptions{}, fmt.Errorf("--cone needs exactly ra,dec,radius")
	}
	return queryOpts, nil
}

// printResult writes the table as CSV to stdout.
func printResult(table *tabular.Table) error {
	if table == nil {
		return nil
	}
	w := csv.NewWriter(os.Stdout)
	if err := w.Write(table.Columns); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
