package jobs

import (
	"context"
	"fmt"

	"github.com/capitolsignal/backend/internal/contracts"
	"github.com/capitolsignal/backend/internal/engine"
	"github.com/capitolsignal/backend/pkg/logger"
)

// RegenerationJob replaces the active signal set nightly using the relaxed
// eligibility policy with ML blending, mirroring the service-level endpoint.
type RegenerationJob struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewRegenerationJob creates a new signal regeneration job.
func NewRegenerationJob(eng *engine.Engine, log *logger.Logger) *RegenerationJob {
	return &RegenerationJob{engine: eng, logger: log}
}

// Name returns the job name.
func (j *RegenerationJob) Name() string {
	return "signal_regeneration"
}

// Schedule runs daily at 06:00, after the overnight disclosure ingest.
func (j *RegenerationJob) Schedule() string {
	return "0 0 6 * * *"
}

// Run executes one scheduled regeneration.
func (j *RegenerationJob) Run(ctx context.Context) error {
	result, err := j.engine.Generate(ctx, engine.Options{
		LookbackDays:    90,
		MinConfidence:   0.60,
		Policy:          contracts.RelaxedEligibility,
		FetchMarketData: true,
		UseML:           true,
		ClearOld:        true,
		TriggeredBy:     engine.TriggerScheduler,
	})
	if err != nil {
		return fmt.Errorf("scheduled regeneration failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"signals":     result.Stats.SignalsGenerated,
		"ml_enhanced": result.MLEnhancedCount,
		"deleted":     result.SignalsDeleted,
		"queued":      result.SignalsQueued,
	}).Info("Scheduled signal regeneration completed")

	return nil
}
