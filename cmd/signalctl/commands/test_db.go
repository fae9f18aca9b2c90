package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitolsignal/backend/internal/store"
	"github.com/capitolsignal/backend/pkg/config"
	"github.com/capitolsignal/backend/pkg/database"
	"github.com/capitolsignal/backend/pkg/logger"
)

var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Verify database connectivity and disclosure freshness",
	RunE:  runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Printf("Database: healthy=%t response=%s\n", status.Healthy, status.ResponseTime)

	stats := db.Stats()
	fmt.Printf("Pool: total=%d idle=%d\n", stats.TotalConns, stats.IdleConns)

	disclosures := store.NewDisclosureRepository(db.Pool)
	count, err := disclosures.CountSince(ctx, time.Now().AddDate(0, 0, -30))
	if err != nil {
		log.WithError(err).Warn("Disclosure count failed, table may not exist yet")
		return nil
	}
	fmt.Printf("Disclosures in the last 30 days: %d\n", count)

	return nil
}
