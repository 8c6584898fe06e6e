package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cashbox/internal/core"
)

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <currency-id>",
		Short: "Print the price of a currency on a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			gen, err := newGenerator(cfg)
			if err != nil {
				return err
			}
			d, err := day(cfg)
			if err != nil {
				return err
			}
			id := args[0]
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", id, core.FormatDate(d), core.FormatDollars(gen.Price(id, d)))
			return nil
		},
	}
}
