package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mev-engine/ton-mev-lab/internal/app"
	"github.com/mev-engine/ton-mev-lab/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ton-mev",
	Short: "Sandwich analysis for the STON.fi USDT/TON pool",
	Long: `ton-mev reconstructs STON.fi router swaps on the USDT/TON pool from tonapi
transaction logs and scores them for sandwich activity: slippage headroom per swap,
front-runner/victim/back-runner triples and adjacent pair candidates.`,
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it with ctx.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig points viper at the --config file; config.Load does the rest.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// bindFlags binds a command's flags to config keys. Commands share keys
// (analyze and serve both set analysis.input), so binding happens when the
// command runs rather than in init.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for name, key := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	if err := bindFlags(cmd, keys); err != nil {
		return nil, err
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// analysisFlags are shared by every command that runs the pipeline
func analysisFlags(flags *pflag.FlagSet) map[string]string {
	flags.StringP("input", "i", "", "raw transaction NDJSON to analyse")
	flags.Bool("cross-block", false, "also scan adjacent blocks of the same shard")
	flags.Int("block-gap", 1, "maximum seqno gap for cross-block scans")
	flags.String("block-source", "", "where block refs come from (inline, tonapi, none)")
	flags.Float64("min-rate-impact", 0, "minimum relative rate impact on a victim")
	flags.String("postgres-dsn", "", "persist records to postgres")

	return map[string]string{
		"input":           "analysis.input",
		"cross-block":     "analysis.cross_block",
		"block-gap":       "analysis.block_gap",
		"block-source":    "analysis.block_source",
		"min-rate-impact": "analysis.min_rate_impact",
		"postgres-dsn":    "storage.postgres_dsn",
	}
}

func withKeys(base map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
