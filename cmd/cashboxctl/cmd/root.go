package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cashbox/internal/backend"
	"cashbox/internal/cli"
	"cashbox/internal/config"
	"cashbox/internal/core"
)

const dateLayout = "2006-01-02"

var (
	pricingFile string
	dateFlag    string
	backendFlag string
)

var rootCmd = &cobra.Command{
	Use:   "cashboxctl",
	Short: "Inspect currency boxes and their deterministic prices",
	Long: `cashboxctl reads the same configuration as the cashbox server.

It lists the currencies of the configured backend and prints the price of
a currency on any day, or its price history ending on that day. Prices are
derived from the currency id and the date only, so the output matches what
the web page shows on that day.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&pricingFile, "pricing", "", "pricing file (default $PRICING_FILE or ./data/pricing.yaml)")
	rootCmd.PersistentFlags().StringVar(&dateFlag, "date", "", "day to price, YYYY-MM-DD (default today)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "",
		"record store: "+strings.Join(backend.GetBackendTypeStrings(), "|")+" (default $DATA_BACKEND)")

	rootCmd.AddCommand(newBoxesCmd(), newPriceCmd(), newHistoryCmd())
}

func loadConfig() *config.Config {
	cfg := config.Load()
	if pricingFile != "" {
		cfg.PricingFile = pricingFile
	}
	if backendFlag != "" {
		cfg.DataBackend = backendFlag
	}
	return cfg
}

func newGenerator(cfg *config.Config) (*core.Generator, error) {
	pricing, err := config.LoadPricing(cfg.PricingFile)
	if err != nil {
		return nil, err
	}
	return core.NewGenerator(pricing.RangeTable()), nil
}

// day resolves --date in the configured time zone.
func day(cfg *config.Config) (time.Time, error) {
	loc, err := cfg.Location()
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone: %w", err)
	}
	if dateFlag == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, dateFlag, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad --date %q: want YYYY-MM-DD", dateFlag)
	}
	return t, nil
}
