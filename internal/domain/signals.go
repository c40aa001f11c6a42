package domain

import (
	"context"
	"time"
)

type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type MetricSeries struct {
	ID          string        `json:"id"`
	WorkspaceID string        `json:"workspaceId"`
	Name        string        `json:"name"`
	Unit        string        `json:"unit"`
	Points      []MetricPoint `json:"points"`
}

// Latest returns the newest point, or false when the series is empty.
func (m *MetricSeries) Latest() (MetricPoint, bool) {
	if len(m.Points) == 0 {
		return MetricPoint{}, false
	}
	return m.Points[len(m.Points)-1], true
}

// Tail returns at most the last n points.
func (m *MetricSeries) Tail(n int) []MetricPoint {
	if n >= len(m.Points) {
		return m.Points
	}
	return m.Points[len(m.Points)-n:]
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Anomaly struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	MetricID    string    `json:"metricId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	DetectedAt  time.Time `json:"detectedAt"`
	Baseline    float64   `json:"baseline"`
	Observed    float64   `json:"observed"`
}

type InsightCategory string

const (
	InsightMetric     InsightCategory = "metric"
	InsightIncident   InsightCategory = "incident"
	InsightSuggestion InsightCategory = "suggestion"
)

type Insight struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspaceId"`
	Text        string          `json:"text"`
	Category    InsightCategory `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type MetricRepository interface {
	Save(ctx context.Context, m *MetricSeries) error
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*MetricSeries, error)
}

// AnomalyRepository lists open anomalies in detection order.
type AnomalyRepository interface {
	Create(ctx context.Context, a *Anomaly) error
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*Anomaly, error)
}

type InsightRepository interface {
	Create(ctx context.Context, i *Insight) error
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*Insight, error)
}
