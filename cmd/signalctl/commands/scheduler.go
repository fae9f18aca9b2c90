package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/capitolsignal/backend/internal/scheduler"
	"github.com/capitolsignal/backend/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the background job scheduler",
	Long: `Runs the scheduled jobs:

  signal_regeneration - daily 06:00, replaces the active signal set
  target_refresh      - hourly on weekdays, refreshes price targets

Example:
  go run ./cmd/signalctl scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sched := scheduler.New(app.log)
	if err := sched.AddJob(jobs.NewRegenerationJob(app.engine, app.log)); err != nil {
		return err
	}
	if err := sched.AddJob(jobs.NewTargetRefreshJob(app.signals, app.prices, app.log)); err != nil {
		return err
	}

	if app.cfg.MetricsEnabled {
		go serveMetrics(app)
	}

	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
