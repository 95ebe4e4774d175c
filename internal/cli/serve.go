package cli

import (
	"context"
	"fmt"

	"github.com/mev-engine/ton-mev-lab/internal/api"
	"github.com/mev-engine/ton-mev-lab/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an analysis over HTTP",
	Long: `Run the analysis once and serve it over a JSON API with prometheus
metrics. POST /api/v1/reload re-runs the analysis on the input file. The server
runs until interrupted.`,
	RunE: runServe,
}

var serveKeys map[string]string

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	serveKeys = withKeys(analysisFlags(flags), map[string]string{
		"bind":    "server.host",
		"port":    "server.port",
		"api-key": "server.api_key",
	})
	flags.String("bind", "", "bind address for the API server")
	flags.Int("port", 0, "port for the API server")
	flags.String("api-key", "", "bearer token required by /api/v1/reload")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, serveKeys)
	if err != nil {
		return err
	}
	if err := cfg.ValidateInput(); err != nil {
		return err
	}

	var (
		server *api.Server
		logger *zap.Logger
	)
	fxApp, err := app.New(cfg,
		fx.Populate(&server, &logger),
		fx.Invoke(func(lc fx.Lifecycle, s *api.Server) {
			lc.Append(fx.Hook{
				OnStart: s.Start,
				OnStop:  s.Stop,
			})
		}),
	)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := fxApp.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	if err := server.Load(ctx); err != nil {
		_ = fxApp.Stop(context.Background())
		return fmt.Errorf("initial analysis: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "serving analysis of %s on %s:%d\n",
		cfg.Analysis.Input, cfg.Server.Host, cfg.Server.Port)

	select {
	case <-ctx.Done():
	case sig := <-fxApp.Done():
		logger.Info("received signal", zap.String("signal", sig.String()))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), fxApp.StopTimeout())
	defer cancel()
	return fxApp.Stop(stopCtx)
}
