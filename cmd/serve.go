package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/agrobench/agrobench/internal/api"
	"github.com/agrobench/agrobench/internal/config"
	"github.com/agrobench/agrobench/internal/logging"
	"github.com/agrobench/agrobench/internal/monitor"
	"github.com/agrobench/agrobench/internal/prediction"
)

const poolSampleInterval = 15 * time.Second

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "Start the HTTP API",
		Description: `Serve the table catalogue, the query, median and frequency endpoints and the prediction proxy.`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "port to listen on"},
			&cli.StringFlag{Name: "prediction-url", Usage: "base URL of the prediction model"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if cmd.IsSet("port") {
				cfg.Server.Port = int(cmd.Int("port"))
			}

			if url := cmd.String("prediction-url"); url != "" {
				cfg.Prediction.URL = url
			}

			return a.runServe(ctx, cfg)
		},
	}
}

func (a *app) runServe(ctx context.Context, cfg *config.Config) error {
	eng, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if !cfg.Debug.Enabled {
		gin.SetMode(gin.ReleaseMode)
	}

	predictor := prediction.NewClient(cfg.Prediction)
	if !predictor.Configured() {
		logging.Warnf("No prediction URL configured, %s will answer 503", "/api/prediction")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolMonitor := monitor.NewPoolMonitor(eng.db)
	poolMonitor.Start(ctx, poolSampleInterval)
	defer poolMonitor.Stop()

	handler := api.NewHandler(eng.service, predictor, eng.db)
	server := api.NewServer(cfg.Server, api.NewRouter(cfg.Server, handler))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	fmt.Fprintf(a.out, "agrobench listening on %s (driver: %s)\n", server.Addr(), eng.db.Dialect().Name())
	logging.GetLogger().WithFields(map[string]any{
		"addr":   server.Addr(),
		"driver": eng.db.Dialect().Name(),
	}).Info("Server started")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	logging.Infof("Shutting down, waiting up to %s for open requests", cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	if cfg.Debug.Verbose {
		fmt.Fprintln(a.out, poolMonitor.GetFormattedStats())
	}

	return nil
}
