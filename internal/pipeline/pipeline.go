package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/model"
	"github.com/couchcryptid/hazard-risk-service/internal/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// HistoryStore finds the historical record closest to a location.
type HistoryStore interface {
	NearestFlood(lat, lon float64) (domain.HistoricalRecord, error)
	NearestCyclone(lat float64) (domain.HistoricalRecord, error)
}

// Publisher sends a completed report downstream.
type Publisher interface {
	Publish(ctx context.Context, report domain.PublishedReport) error
}

// Recorder persists a completed report.
type Recorder interface {
	RecordPrediction(ctx context.Context, report domain.PublishedReport) error
}

// Pinger reports whether a backing resource is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Service. Publisher, Recorder and Pinger
// are optional.
type Deps struct {
	Weather   domain.WeatherProvider
	History   HistoryStore
	Assembler *domain.Assembler
	Flood     model.Classifier
	Cyclone   model.Classifier
	Publisher Publisher
	Recorder  Recorder
	Pinger    Pinger
}

// Service answers risk queries for a city.
type Service struct {
	deps    Deps
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New validates deps and returns a Service.
func New(deps Deps, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	switch {
	case deps.Weather == nil:
		return nil, errors.New("pipeline: weather provider is required")
	case deps.History == nil:
		return nil, errors.New("pipeline: history store is required")
	case deps.Assembler == nil:
		return nil, errors.New("pipeline: feature assembler is required")
	case deps.Flood == nil || deps.Cyclone == nil:
		return nil, errors.New("pipeline: flood and cyclone classifiers are required")
	}
	return &Service{deps: deps, logger: logger, metrics: metrics}, nil
}

// CheckReadiness returns nil once the service can answer queries.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if s.deps.Pinger == nil {
		return nil
	}
	if err := s.deps.Pinger.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	return nil
}

// Assess runs the full flow for city: weather lookup, then the flood and
// cyclone pipelines concurrently. The first pipeline failure fails the call.
func (s *Service) Assess(ctx context.Context, city string) (domain.RiskReport, error) {
	start := time.Now()
	report, err := s.assess(ctx, city)
	s.metrics.AssessDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, domain.ErrCityNotFound):
		s.metrics.AssessRequests.WithLabelValues("not_found").Inc()
		return domain.RiskReport{}, err
	case err != nil:
		s.metrics.AssessRequests.WithLabelValues("error").Inc()
		s.logger.Error("risk assessment failed", "city", city, "error", err)
		return domain.RiskReport{}, err
	}
	s.metrics.AssessRequests.WithLabelValues("success").Inc()
	return report, nil
}

func (s *Service) assess(ctx context.Context, city string) (domain.RiskReport, error) {
	weather, err := s.deps.Weather.Current(ctx, city)
	if err != nil {
		if !errors.Is(err, domain.ErrCityNotFound) {
			err = fmt.Errorf("%w: %v", domain.ErrCityNotFound, err)
		}
		return domain.RiskReport{}, err
	}

	var flood, cyclone domain.RiskAssessment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		flood, err = s.runHazard(gctx, domain.HazardFlood, weather)
		return err
	})
	g.Go(func() error {
		var err error
		cyclone, err = s.runHazard(gctx, domain.HazardCyclone, weather)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.RiskReport{}, err
	}

	report := domain.NewRiskReport(city, weather, flood, cyclone)
	s.logger.Info("risk assessed",
		"city", report.City,
		"flood_prob", report.FloodProb,
		"flood_risk", report.FloodRisk,
		"flood_alert", flood.Alert(),
		"cyclone_prob", report.CycloneProb,
		"cyclone_risk", report.CycloneRisk,
		"cyclone_alert", cyclone.Alert(),
	)

	s.afterAssess(ctx, report)
	return report, nil
}

func (s *Service) runHazard(ctx context.Context, hazard domain.Hazard, weather domain.WeatherSnapshot) (domain.RiskAssessment, error) {
	var (
		clf     model.Classifier
		nearest domain.HistoricalRecord
		err     error
	)
	switch hazard {
	case domain.HazardFlood:
		clf = s.deps.Flood
		nearest, err = s.deps.History.NearestFlood(weather.Lat, weather.Lon)
	case domain.HazardCyclone:
		clf = s.deps.Cyclone
		nearest, err = s.deps.History.NearestCyclone(weather.Lat)
	default:
		return domain.RiskAssessment{}, fmt.Errorf("unknown hazard %q", hazard)
	}
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("%s nearest record: %w", hazard, err)
	}

	vec, err := s.deps.Assembler.Assemble(ctx, clf.FeatureNames(), weather, nearest)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("%s features: %w", hazard, err)
	}

	assessment, err := model.Assess(clf, vec)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("%s classifier: %w", hazard, err)
	}

	s.metrics.Predictions.WithLabelValues(string(hazard), string(assessment.Label)).Inc()
	s.logger.Debug("hazard assessed",
		"hazard", hazard,
		"nearest_row", nearest.Row,
		"probability", assessment.Probability,
		"label", assessment.Label,
	)
	return assessment, nil
}

// afterAssess publishes and records the report. Both are best effort: a
// failure is logged and never changes the response.
func (s *Service) afterAssess(ctx context.Context, report domain.RiskReport) {
	if s.deps.Publisher == nil && s.deps.Recorder == nil {
		return
	}
	published := domain.NewPublishedReport(uuid.NewString(), report)

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(ctx, published); err != nil {
			s.metrics.PublishErrors.Inc()
			s.logger.Warn("publish report failed", "city", report.City, "id", published.ID, "error", err)
		}
	}
	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.RecordPrediction(ctx, published); err != nil {
			s.logger.Warn("record prediction failed", "city", report.City, "id", published.ID, "error", err)
		}
	}
}
