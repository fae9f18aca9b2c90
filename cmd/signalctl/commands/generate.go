package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/internal/engine"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one signal generation pass from the command line",
	Long: `Runs the full pipeline once and prints a summary. Uses the strict
eligibility policy unless --relaxed is set.

Example:
  go run ./cmd/signalctl generate
  go run ./cmd/signalctl generate --lookback 90 --relaxed --use-ml --clear-old
  go run ./cmd/signalctl generate --dry-run`,
	RunE: runGenerate,
}

var (
	genLookback      int
	genMinConfidence float64
	genRelaxed       bool
	genUseML         bool
	genClearOld      bool
	genDryRun        bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVar(&genLookback, "lookback", 30, "lookback window in days")
	generateCmd.Flags().Float64Var(&genMinConfidence, "min-confidence", 0.65, "minimum confidence to emit")
	generateCmd.Flags().BoolVar(&genRelaxed, "relaxed", false, "use the relaxed eligibility policy")
	generateCmd.Flags().BoolVar(&genUseML, "use-ml", false, "attempt ML blending")
	generateCmd.Flags().BoolVar(&genClearOld, "clear-old", false, "delete active signals before inserting")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "preview only, do not persist")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	policy := contracts.StrictEligibility
	if genRelaxed || genDryRun {
		policy = contracts.RelaxedEligibility
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := app.engine.Generate(ctx, engine.Options{
		LookbackDays:    genLookback,
		MinConfidence:   genMinConfidence,
		Policy:          policy,
		FetchMarketData: true,
		UseML:           genUseML,
		ClearOld:        genClearOld,
		Preview:         genDryRun,
		TriggeredBy:     engine.TriggerUser,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Printf("Run %s finished in %s\n", result.RunID, result.Duration)
	fmt.Printf("  disclosures: %d\n", result.Stats.TotalDisclosures)
	fmt.Printf("  tickers:     %d\n", result.Stats.UniqueTickers)
	fmt.Printf("  signals:     %d\n", result.Stats.SignalsGenerated)
	if result.MLEnabled {
		fmt.Printf("  ml enhanced: %d/%d (model %s %s)\n",
			result.MLEnhancedCount, result.MLPredictionCount, result.ModelID, result.ModelVersion)
	}
	if !genDryRun {
		fmt.Printf("  queued:      %d\n", result.SignalsQueued)
	}

	for _, sig := range result.Signals {
		fmt.Printf("  %-8s %-12s %.3f (ratio %.2f, %d politicians)\n",
			sig.Ticker, sig.SignalType, sig.ConfidenceScore, sig.BuySellRatio, sig.PoliticianActivityCount)
	}
	return nil
}
