package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketoracle/forecast/internal/api"
	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/internal/pipeline"
	"github.com/marketoracle/forecast/internal/scheduler"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the forecast HTTP API.

Endpoints:
  GET  /health
  GET  /metrics                (when METRICS_ENABLED)
  POST /v1/predict
  GET  /v1/predict/stream
  GET  /v1/models

Example:
  go run ./cmd/forecast serve
  go run ./cmd/forecast serve --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "override PORT from config")
}

func runServe(cmd *cobra.Command, args []string) error {
	deps, err := initForecastDeps()
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.close()

	if servePort != "" {
		deps.cfg.Port = servePort
	}

	forecastHandler := api.NewForecastHandler(deps.coordinator, deps.registry, deps.log)
	router := api.NewRouter(forecastHandler, deps.metrics, deps.log)
	server := api.New(deps.cfg, deps.log, router)

	var sched *scheduler.Scheduler
	if deps.cfg.SchedulerEnabled && len(deps.cfg.SchedulerWatchlist) > 0 {
		sched = scheduler.New(deps.log)
		refs := make([]struct{ Slug string }, 0, len(deps.cfg.SchedulerWatchlist))
		_ = refs
		job := scheduler.Job(pipeline.NewScheduledJob("watchlist-refresh", deps.cfg.SchedulerCron, deps.coordinator, watchlistReferences(deps.cfg.SchedulerWatchlist)))
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("schedule watchlist job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	go func() {
		if err := server.Start(); err != nil {
			deps.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	deps.log.WithField("port", deps.cfg.Port).Info("forecast API server started")
	fmt.Printf("Server running on http://localhost:%s\n", deps.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	deps.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	deps.log.Info("Server stopped")
	return nil
}

// watchlistReferences turns the configured watchlist entries into
// EventReferences, reading each one the way the predict command reads
// its argument.
func watchlistReferences(entries []string) []contracts.EventReference {
	refs := make([]contracts.EventReference, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, referenceFromArg(e))
	}
	return refs
}
