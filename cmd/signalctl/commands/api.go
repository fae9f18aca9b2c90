package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitolsignal/backend/internal/api"
	"github.com/capitolsignal/backend/internal/api/handlers"
	"github.com/capitolsignal/backend/pkg/metrics"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the signal API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                   - Health check
  GET  /api/signals              - Active signals
  POST /api/generate-signals     - Manual generation (authenticated)
  POST /api/regenerate-signals   - Service-level regeneration
  POST /api/preview-signals      - Preview without persistence

Example:
  go run ./cmd/signalctl api
  go run ./cmd/signalctl api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	signalsHandler := handlers.NewSignalsHandler(app.engine, app.signals, app.log)
	healthHandler := handlers.NewHealthHandler(app.db, app.disclosures, app.queue, app.log)
	router := api.NewRouter(signalsHandler, healthHandler, app.cfg.APIToken, app.log)
	server := api.New(app.cfg, app.log, router)

	if app.cfg.MetricsEnabled {
		go serveMetrics(app)
	}

	go func() {
		if err := server.Start(); err != nil {
			app.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", app.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func serveMetrics(app *app) {
	addr := ":" + app.cfg.MetricsPort
	app.log.WithField("addr", addr).Info("Metrics endpoint listening")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		app.log.WithError(err).Error("Metrics server stopped")
	}
}
