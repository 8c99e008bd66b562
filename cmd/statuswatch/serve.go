package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/statuswatch/statuswatch/pkg/config"
	"github.com/statuswatch/statuswatch/pkg/health"
	"github.com/statuswatch/statuswatch/pkg/htmlstatus"
	"github.com/statuswatch/statuswatch/pkg/log"
	"github.com/statuswatch/statuswatch/pkg/metrics"
	"github.com/statuswatch/statuswatch/pkg/monitor"
	"github.com/statuswatch/statuswatch/pkg/reconciler"
	"github.com/statuswatch/statuswatch/pkg/statuspage"
	"github.com/statuswatch/statuswatch/pkg/storage"
	"github.com/statuswatch/statuswatch/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the exporter",
	Long: `Start the metrics server and the monitoring schedule.

An initial monitoring cycle runs immediately on startup; subsequent
cycles follow the configured poll interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		level := log.InfoLevel
		if cfg.Debug {
			level = log.DebugLevel
		}
		log.Init(log.Config{Level: level, JSONOutput: cfg.JSONLogs})

		store, err := storage.NewBoltStore(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("open baseline store: %w", err)
		}
		defer store.Close()

		if cfg.ClearCacheOnStart {
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear baselines: %w", err)
			}
			log.Info("cleared all baselines on startup")
		}

		var engineOpts []reconciler.Option
		if cfg.RedrawEveryCycle {
			engineOpts = append(engineOpts, reconciler.WithRedrawEveryCycle())
		}
		engine := reconciler.NewEngine(engineOpts...)

		checkers := map[types.CheckerType]monitor.Checker{
			types.CheckerStatusPage: statuspage.NewChecker(),
			types.CheckerHTML:       htmlstatus.NewChecker(),
		}

		tracker := health.NewTracker()
		mon := monitor.New(cfg.Services, checkers, store, engine, metrics.NewSink(),
			monitor.WithObserver(tracker))

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/healthz", tracker.Handler())
		server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

		errCh := make(chan error, 1)
		go func() {
			log.Logger.Info().Str("addr", cfg.ListenAddr).Msg("metrics server listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()

		if err := mon.Start(cmd.Context(), cfg.CronSpec()); err != nil {
			return err
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
		case err := <-errCh:
			log.Errorf("server failed", err)
		}

		mon.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("metrics server shutdown", err)
		}

		log.Info("shutdown complete")
		return nil
	},
}
