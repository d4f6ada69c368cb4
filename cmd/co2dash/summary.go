package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"go-co2-emissions-dashboard/internal/render"
	"go-co2-emissions-dashboard/internal/views"
)

var (
	summaryYear   int
	summaryMetric string
	summaryTop    int
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print statistics and top emitters for one year",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().IntVar(&summaryYear, "year", 0, "year to summarise (default: APP_DEFAULT_YEAR or the latest year)")
	summaryCmd.Flags().StringVar(&summaryMetric, "metric", "", "total or per_capita (default: APP_DEFAULT_METRIC)")
	summaryCmd.Flags().IntVar(&summaryTop, "top", 0, "number of top emitters to list (default: APP_TOP_N)")
}

func runSummary(cmd *cobra.Command, _ []string) error {
	dash, cleanup, err := loadDashboard(cmd.Context(), appConfig)
	if err != nil {
		return err
	}
	defer cleanup()

	tbl := dash.Table()
	sel, err := resolveSelection(appConfig, tbl, summaryYear, summaryMetric)
	if err != nil {
		return err
	}
	top := summaryTop
	if top <= 0 {
		top = dash.TopN()
	}
	return printSummary(cmd.OutOrStdout(), views.Summarize(tbl, sel, top), sel)
}

func printSummary(w io.Writer, s views.Summary, sel views.Selection) error {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	dim := color.New(color.Faint)

	_, _ = fmt.Fprintf(w, "%s %d (%s)\n", bold.Sprint("CO2 emissions in"), sel.Year, sel.Metric.Label())
	if s.Countries == 0 {
		_, _ = fmt.Fprintln(w, yellow.Sprint("No data for this year."))
		return nil
	}

	st := s.Stats
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "%s\t%d\n", dim.Sprint("countries"), s.Countries)
	_, _ = fmt.Fprintf(tw, "%s\t%d\n", dim.Sprint("missing"), st.Missing)
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", dim.Sprint("sum"), render.FormatThousands(st.Sum))
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", dim.Sprint("mean"), formatStat(st.Mean))
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", dim.Sprint("median"), formatStat(st.Median))
	_, _ = fmt.Fprintf(tw, "%s\t%s\n", dim.Sprint("p90"), formatStat(st.P90))
	_, _ = fmt.Fprintf(tw, "%s\t%s %s\n", dim.Sprint("min"), formatStat(st.Min), st.MinCountry)
	_, _ = fmt.Fprintf(tw, "%s\t%s %s\n", dim.Sprint("max"), formatStat(st.Max), st.MaxCountry)
	if err := tw.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "\n%s\n", bold.Sprintf("Top %d emitters (total)", len(s.TopEmitters)))
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, ct := range s.TopEmitters {
		_, _ = fmt.Fprintf(tw, "%2d.\t%s\t%s\n", i+1, ct.Country, green.Sprint(render.FormatThousands(ct.Total)))
	}
	return tw.Flush()
}

func formatStat(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
