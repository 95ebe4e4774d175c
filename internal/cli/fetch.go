package cli

import (
	"fmt"

	"github.com/mev-engine/ton-mev-lab/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download router transactions from tonapi",
	Long: `Page backwards through the STON.fi router's transaction history on tonapi
and write the raw transactions as NDJSON, ready for analyze.`,
	RunE: runFetch,
}

var fetchKeys = map[string]string{
	"out":       "fetch.output",
	"account":   "fetch.account",
	"limit":     "fetch.limit",
	"pages":     "fetch.pages",
	"before-lt": "fetch.before_lt",
	"max-age":   "fetch.max_age",
	"api-key":   "tonapi.api_key",
	"base-url":  "tonapi.base_url",
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	flags := fetchCmd.Flags()
	flags.String("out", "", "output NDJSON path")
	flags.String("account", "", "router account to page through")
	flags.Int("limit", 0, "transactions per page (max 1000)")
	flags.Int("pages", 0, "maximum pages, 0 for no limit")
	flags.Uint64("before-lt", 0, "start below this logical time")
	flags.Duration("max-age", 0, "stop at transactions older than this")
	flags.String("api-key", "", "tonapi bearer token")
	flags.String("base-url", "", "tonapi base URL")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, fetchKeys)
	if err != nil {
		return err
	}

	var application *app.Application
	fxApp, err := app.New(cfg, fx.Populate(&application))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := fxApp.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer fxApp.Stop(ctx)

	stats, err := application.Fetch(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d transactions from %d pages to %s (oldest lt %d, stopped: %s)\n",
		stats.Transactions, stats.Pages, cfg.Fetch.Output, stats.OldestLT, stats.StopReason)
	return nil
}
