package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosuda/opspilot/internal/domain"
)

const maxIncidentInsights = 3

// Telemetry is the read side of the signals service.
type Telemetry interface {
	Metrics(ctx context.Context, workspaceID string) ([]*domain.MetricSeries, error)
	Anomalies(ctx context.Context, workspaceID string) ([]*domain.Anomaly, error)
}

// InsightGenerator derives turn insights from current metrics and anomalies.
type InsightGenerator struct {
	telemetry Telemetry
}

func NewInsightGenerator(telemetry Telemetry) *InsightGenerator {
	return &InsightGenerator{telemetry: telemetry}
}

// Generate returns the latest MRR insight, if any, followed by up to three
// incident insights in anomaly order.
func (g *InsightGenerator) Generate(ctx context.Context, workspaceID string) ([]*domain.Insight, error) {
	metrics, err := g.telemetry.Metrics(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("agent.InsightGenerator.Generate: metrics: %w", err)
	}
	anomalies, err := g.telemetry.Anomalies(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("agent.InsightGenerator.Generate: anomalies: %w", err)
	}

	var insights []*domain.Insight

	for _, m := range metrics {
		if !strings.Contains(m.ID, "mrr") {
			continue
		}
		if latest, ok := m.Latest(); ok {
			insights = append(insights, &domain.Insight{
				ID:          "insight-mrr-" + latest.Timestamp.UTC().Format(time.RFC3339),
				WorkspaceID: workspaceID,
				Text:        fmt.Sprintf("MRR is now $%.0f (%s).", latest.Value, m.Unit),
				Category:    domain.InsightMetric,
				CreatedAt:   time.Now().UTC(),
			})
		}
		break
	}

	for _, a := range anomalies[:min(len(anomalies), maxIncidentInsights)] {
		insights = append(insights, &domain.Insight{
			ID:          a.ID + "-insight",
			WorkspaceID: workspaceID,
			Text:        a.Title + ": " + a.Description,
			Category:    domain.InsightIncident,
			CreatedAt:   a.DetectedAt,
		})
	}

	return insights, nil
}
