package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cashbox/internal/backend"
	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/records"
)

func newBoxesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boxes",
		Short: "List the currencies of the configured backend with today's price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			level, _ := log.ParseLevel(cfg.LogLevel)
			logger := log.New(log.Config{
				Level:     level,
				Component: log.ComponentApp,
				Handler:   log.NewHandler(os.Stderr, cfg.LogFormat, level),
			})

			backendCfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
			if err != nil {
				return fmt.Errorf("create backend: %w", err)
			}
			defer res.Close()

			gen, err := newGenerator(cfg)
			if err != nil {
				return err
			}
			d, err := day(cfg)
			if err != nil {
				return err
			}
			return printBoxes(ctx, cmd.OutOrStdout(), res.Store, gen, d)
		},
	}
}

func printBoxes(ctx context.Context, w io.Writer, store records.CurrencyLister, gen *core.Generator, d time.Time) error {
	recs, err := store.ListCurrencies(ctx)
	if err != nil {
		return fmt.Errorf("list currencies: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTATUS")
	for _, r := range recs {
		if r.Validate() != nil {
			continue
		}
		b := core.NewBox(r, gen, d, 1)
		status := "active"
		if b.CashedOut {
			status = "cashed out"
		}
		price := "-"
		if amount, ok := b.Amount(); ok {
			price = core.FormatDollars(amount)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Title, price, status)
	}
	return tw.Flush()
}
