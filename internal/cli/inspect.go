package cli

import (
	"fmt"
	"time"

	"github.com/mev-engine/ton-mev-lab/internal/app"
	"github.com/mev-engine/ton-mev-lab/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Browse sandwich candidates in the terminal",
	Long: `Launch an interactive terminal browser over sandwich triples and the swaps
closest to their minimum output. Analyses the input locally, or polls a running
serve instance with --remote. Use tab to switch views, arrow keys to select,
'r' to reload and 'q' to quit.`,
	RunE: runInspect,
}

var (
	remoteURL   string
	refreshRate time.Duration
	inspectKeys map[string]string
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	flags := inspectCmd.Flags()
	inspectKeys = analysisFlags(flags)
	flags.StringVar(&remoteURL, "remote", "", "base URL of a running serve instance")
	flags.DurationVarP(&refreshRate, "refresh", "r", 0, "reload interval, 0 to reload only on demand")
}

func runInspect(cmd *cobra.Command, args []string) error {
	tuiConfig := tui.Config{RefreshRate: refreshRate}

	if remoteURL != "" {
		return tui.StartInspector(tuiConfig, tui.NewRemoteSource(remoteURL))
	}

	cfg, err := loadConfig(cmd, inspectKeys)
	if err != nil {
		return err
	}
	if err := cfg.ValidateInput(); err != nil {
		return err
	}
	// the alt screen owns the terminal
	cfg.Logging.Level = "error"

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

	tuiConfig.Title = "STON.fi USDT/TON sandwich inspector: " + cfg.Analysis.Input
	return tui.StartInspector(tuiConfig, &tui.LocalSource{Analyzer: application})
}
