package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cashbox/internal/core"
)

func newHistoryCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history <currency-id>",
		Short: "Print the price history of a currency, most recent day first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if days <= 0 {
				days = cfg.HistoryDays
			}
			gen, err := newGenerator(cfg)
			if err != nil {
				return err
			}
			d, err := day(cfg)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tPRICE")
			for _, e := range gen.History(args[0], d, days) {
				fmt.Fprintf(tw, "%s\t%s\n", e.Label, core.FormatDollars(e.Price))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "number of days (default $HISTORY_DAYS or 10)")
	return cmd
}
