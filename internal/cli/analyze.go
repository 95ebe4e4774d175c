package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mev-engine/ton-mev-lab/internal/app"
	"github.com/mev-engine/ton-mev-lab/pkg/report"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse a raw transaction log",
	Long: `Reconstruct swaps from a raw tonapi NDJSON log, compute slippage and
adjacency indicators and print a report. Records can also be written as NDJSON,
persisted to postgres and summarised in a prometheus textfile.`,
	RunE: runAnalyze,
}

var analyzeKeys map[string]string

func init() {
	rootCmd.AddCommand(analyzeCmd)

	flags := analyzeCmd.Flags()
	analyzeKeys = withKeys(analysisFlags(flags), map[string]string{
		"output":           "analysis.output",
		"format":           "analysis.format",
		"records-out":      "analysis.records_out",
		"metrics-textfile": "metrics.textfile",
	})
	flags.StringP("output", "o", "", "write the report here instead of stdout")
	flags.StringP("format", "f", "", "report format (text, json)")
	flags.String("records-out", "", "write indicator records as NDJSON")
	flags.String("metrics-textfile", "", "write run metrics in node-exporter textfile format")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, analyzeKeys)
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

	res, err := application.Analyze(ctx)
	if err != nil {
		return err
	}

	opts := report.Options{Input: cfg.Analysis.Input}
	path := cfg.Analysis.Output
	if path == "" {
		out := cmd.OutOrStdout()
		opts.Styled = isTerminal(out)
		return report.Write(out, cfg.Analysis.Format, res.Analysis, opts)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := closeAfter(f, func(w io.Writer) error {
		return report.Write(w, cfg.Analysis.Format, res.Analysis, opts)
	}); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// closeAfter runs write and then closes wc. A failed close is returned.
func closeAfter(wc io.WriteCloser, write func(io.Writer) error) error {
	if err := write(wc); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
