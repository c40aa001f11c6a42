// Package signals simulates streaming telemetry and opens anomalies when a
// metric drifts from its recent baseline.
package signals

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/metrics"
)

const (
	keepPoints        = 30
	detectionWindow   = 3
	anomalyThreshold  = 0.15
	highSeverityDelta = 0.3
)

type Config struct {
	Interval   time.Duration
	Workspaces []string
}

// Service owns metric series and anomalies for the configured workspaces.
type Service struct {
	metrics   domain.MetricRepository
	anomalies domain.AnomalyRepository
	pubsub    bus.Publisher
	cfg       Config

	// jitter returns a value in [0, 1).
	jitter func() float64
	now    func() time.Time
}

func New(metricRepo domain.MetricRepository, anomalyRepo domain.AnomalyRepository, pubsub bus.Publisher, cfg Config) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Service{
		metrics:   metricRepo,
		anomalies: anomalyRepo,
		pubsub:    pubsub,
		cfg:       cfg,
		jitter:    rand.Float64,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Metrics(ctx context.Context, workspaceID string) ([]*domain.MetricSeries, error) {
	out, err := s.metrics.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("signals.Service.Metrics: %w", err)
	}
	return out, nil
}

// Anomalies lists a workspace's anomalies in detection order.
func (s *Service) Anomalies(ctx context.Context, workspaceID string) ([]*domain.Anomaly, error) {
	out, err := s.anomalies.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("signals.Service.Anomalies: %w", err)
	}
	return out, nil
}

// Run ticks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, ws := range s.cfg.Workspaces {
				if err := s.Tick(ctx, ws); err != nil {
					log.Error().Err(err).Str("workspace_id", ws).Msg("signals.Service.Run: tick failed")
				}
			}
		}
	}
}

// Tick advances every metric of a workspace by one random-walk step and runs
// anomaly detection on the result.
func (s *Service) Tick(ctx context.Context, workspaceID string) error {
	series, err := s.metrics.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("signals.Service.Tick: list metrics: %w", err)
	}

	for _, m := range series {
		last, ok := m.Latest()
		if !ok {
			continue
		}

		volatility := 50.0
		if m.Unit == "percent" {
			volatility = 0.3
		}
		delta := round2(s.jitter()*volatility - volatility/2)
		next := domain.MetricPoint{Timestamp: s.now(), Value: round2(math.Max(0, last.Value+delta))}

		m.Points = append(slices.Clone(m.Tail(keepPoints-1)), next)
		if err := s.metrics.Save(ctx, m); err != nil {
			return fmt.Errorf("signals.Service.Tick: save %s: %w", m.ID, err)
		}
		bus.Emit(ctx, s.pubsub, domain.EventMetricUpdated, workspaceID, map[string]any{"metricId": m.ID, "latest": next})

		anomaly, found := Detect(m, s.now())
		if !found {
			continue
		}
		if err := s.anomalies.Create(ctx, anomaly); err != nil {
			return fmt.Errorf("signals.Service.Tick: create anomaly: %w", err)
		}
		metrics.AnomaliesDetected.Inc()
		bus.Emit(ctx, s.pubsub, domain.EventAnomalyDetected, workspaceID, anomaly)
	}

	return nil
}

// Detect compares the mean of the last three points with the three before.
// A relative move above 15% is an anomaly, above 30% a high-severity one.
func Detect(m *domain.MetricSeries, at time.Time) (*domain.Anomaly, bool) {
	if len(m.Points) < 2*detectionWindow {
		return nil, false
	}

	pts := m.Points[len(m.Points)-2*detectionWindow:]
	baseline := mean(pts[:detectionWindow])
	recent := mean(pts[detectionWindow:])
	if baseline == 0 {
		return nil, false
	}

	delta := math.Abs(recent-baseline) / baseline
	if delta <= anomalyThreshold {
		return nil, false
	}

	severity := domain.SeverityMedium
	if delta > highSeverityDelta {
		severity = domain.SeverityHigh
	}

	return &domain.Anomaly{
		ID:          domain.NewID("anom"),
		WorkspaceID: m.WorkspaceID,
		MetricID:    m.ID,
		Title:       fmt.Sprintf("%s moved %d%% vs baseline", m.Name, int(math.Round(delta*100))),
		Description: fmt.Sprintf("%s changed from %.2f to %.2f.", m.Name, baseline, recent),
		Severity:    severity,
		DetectedAt:  at,
		Baseline:    round2(baseline),
		Observed:    round2(recent),
	}, true
}

func mean(pts []domain.MetricPoint) float64 {
	var sum float64
	for _, p := range pts {
		sum += p.Value
	}
	return sum / float64(len(pts))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
