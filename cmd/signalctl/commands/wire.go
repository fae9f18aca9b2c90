package commands

import (
	"fmt"
	"time"

	"github.com/capitolsignal/backend/internal/engine"
	"github.com/capitolsignal/backend/internal/lambda"
	"github.com/capitolsignal/backend/internal/lineage"
	"github.com/capitolsignal/backend/internal/marketdata"
	"github.com/capitolsignal/backend/internal/ml"
	"github.com/capitolsignal/backend/internal/portfolio"
	"github.com/capitolsignal/backend/internal/store"
	"github.com/capitolsignal/backend/pkg/config"
	"github.com/capitolsignal/backend/pkg/database"
	"github.com/capitolsignal/backend/pkg/logger"
	"github.com/capitolsignal/backend/pkg/metrics"
	"github.com/capitolsignal/backend/pkg/redis"
)

// app is the assembled dependency graph shared by the serving commands.
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *database.DB
	redis       *redis.Client
	engine      *engine.Engine
	recorder    *lineage.Recorder
	signals     *store.SignalRepository
	disclosures *store.DisclosureRepository
	queue       *portfolio.Repository
	prices      *marketdata.PriceFetcher
	metrics     *metrics.Recorder
}

// buildApp loads config, connects the stores, and wires the engine.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		// Redis only serves the shared quote-API budget; run without it.
		log.WithError(err).Warn("Redis unavailable, continuing without shared rate limit")
		redisClient = nil
	}

	quotes := marketdata.NewClient(cfg, log)
	if redisClient != nil && redisClient.Enabled() {
		quotes.WithRateLimiter(redis.NewRateLimiter(redisClient, "quote"))
	}

	enricher := marketdata.NewEnricher(quotes, marketdata.NewTTLCache(time.Now), log)
	prices := marketdata.NewPriceFetcher(quotes, log)
	predictor := ml.NewClient(cfg, log)
	lambdaExec := lambda.NewExecutor(cfg, log)

	disclosureRepo := store.NewDisclosureRepository(db.Pool)
	signalRepo := store.NewSignalRepository(db.Pool)
	modelRepo := store.NewModelRepository(db.Pool)
	configRepo := store.NewEngineConfigRepository(db.Pool)

	recorder := lineage.NewRecorder(lineage.NewRepository(db.Pool), log)
	queueRepo := portfolio.NewRepository(db.Pool)
	queuer := portfolio.NewQueuer(queueRepo, cfg.Engine.ReferenceThreshold, log)

	metricsRec := metrics.New()

	eng := engine.New(
		disclosureRepo, signalRepo, modelRepo, configRepo,
		enricher, prices, predictor, lambdaExec,
		queuer, recorder, metricsRec,
		cfg.Engine.DefaultBlendWeight, log,
	)

	return &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		redis:       redisClient,
		engine:      eng,
		recorder:    recorder,
		signals:     signalRepo,
		disclosures: disclosureRepo,
		queue:       queueRepo,
		prices:      prices,
		metrics:     metricsRec,
	}, nil
}

// Close flushes pending lineage writes and releases connections.
func (a *app) Close() {
	a.recorder.Close()
	if a.redis != nil {
		a.redis.Close()
	}
	a.db.Close()
}
