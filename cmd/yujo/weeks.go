package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joacominatel/yujo/internal/domain"
)

// now is swapped in tests.
var now = time.Now

func newWeeksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weeks [YYYY-MM]",
		Short: "Print the week catalog of a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month := domain.DateOf(now()).YearMonth()
			if len(args) == 1 {
				parsed, err := domain.ParseYearMonth(args[0])
				if err != nil {
					return err
				}
				month = parsed
			}
			return printWeeks(cmd.OutOrStdout(), domain.WeeksOfMonth(month.Year, month.Month))
		},
	}
}

func printWeeks(out io.Writer, weeks []domain.WeekDescriptor) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tRANGE\tLABEL")
	for _, w := range weeks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", w.WeekNumber, w.Start, w.DateRangeLabel, w.Label)
	}
	return tw.Flush()
}
