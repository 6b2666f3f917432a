package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hazard-risk-service/internal/adapter/elevation"
	httpadapter "github.com/couchcryptid/hazard-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-risk-service/internal/adapter/openweather"
	"github.com/couchcryptid/hazard-risk-service/internal/auth"
	"github.com/couchcryptid/hazard-risk-service/internal/config"
	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/history"
	"github.com/couchcryptid/hazard-risk-service/internal/model"
	"github.com/couchcryptid/hazard-risk-service/internal/observability"
	"github.com/couchcryptid/hazard-risk-service/internal/pipeline"
	"github.com/couchcryptid/hazard-risk-service/internal/store"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	hist, err := history.Load(cfg.FloodDataPath, cfg.CycloneDataPath)
	if err != nil {
		return err
	}
	logger.Info("historical datasets loaded",
		"flood_records", hist.FloodTable().Len(),
		"cyclone_records", hist.CycloneTable().Len(),
	)

	floodClf, err := model.Load(cfg.FloodModelPath)
	if err != nil {
		return err
	}
	cycloneClf, err := model.Load(cfg.CycloneModelPath)
	if err != nil {
		return err
	}
	logger.Info("classifiers loaded",
		"flood_features", floodClf.FeatureNames(),
		"cyclone_features", cycloneClf.FeatureNames(),
	)

	// Elevation lookup (feature-flagged via ELEVATION_ENABLED). When disabled
	// or failing, the configured default is used.
	var elevProvider domain.ElevationProvider
	if cfg.ElevationEnabled {
		client := elevation.NewClient(cfg.ElevationBaseURL, cfg.ElevationTimeout, metrics, logger)
		elevProvider = elevation.NewCachedProvider(client, cfg.ElevationCacheTTL, metrics)
		metrics.ElevationEnabled.Set(1)
		logger.Info("elevation lookup enabled", "base_url", cfg.ElevationBaseURL, "cache_ttl", cfg.ElevationCacheTTL)
	} else {
		metrics.ElevationEnabled.Set(0)
		logger.Info("elevation lookup disabled", "default_m", cfg.ElevationDefaultM)
	}
	elev := domain.NewFallbackElevation(elevProvider, cfg.ElevationDefaultM, logger, metrics.ElevationFallbacks.Inc)

	rules, err := config.LoadFeatureRules(cfg.FeatureRulesFile)
	if err != nil {
		return err
	}
	asm, err := domain.NewAssembler(rules, elev)
	if err != nil {
		return err
	}
	checks := []struct {
		hazard domain.Hazard
		clf    model.Classifier
		table  *history.Table
	}{
		{domain.HazardFlood, floodClf, hist.FloodTable()},
		{domain.HazardCyclone, cycloneClf, hist.CycloneTable()},
	}
	for _, c := range checks {
		if missing := asm.Unresolved(c.clf.FeatureNames(), c.table.ColumnSet()); len(missing) > 0 {
			logger.Warn("classifier features cannot be resolved, requests will fail",
				"hazard", c.hazard,
				"features", missing,
			)
		}
	}

	clock := clockwork.NewRealClock()
	db, err := store.Open(cfg.DBPath, clock)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()

	deps := pipeline.Deps{
		Weather:   openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.OpenWeatherTimeout, metrics, logger),
		History:   hist,
		Assembler: asm,
		Flood:     floodClf,
		Cyclone:   cycloneClf,
		Recorder:  db,
		Pinger:    db,
	}

	var publisher *kafkaadapter.Publisher
	if cfg.PublishingEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		deps.Publisher = publisher
		logger.Info("report publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("report publishing disabled")
	}

	svc, err := pipeline.New(deps, logger, metrics)
	if err != nil {
		return err
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:        cfg.HTTPAddr,
		Assessor:    svc,
		Ready:       svc,
		Stats:       hist,
		Users:       db,
		Hasher:      auth.NewHasher(0),
		Sessions:    auth.NewSessions(cfg.SecretKey, cfg.SessionTTL, clock),
		AdminEmail:  cfg.AdminEmail,
		RecentLimit: cfg.RecentPredictionsLimit,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
