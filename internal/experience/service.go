// Package experience builds the versioned dashboard layout shown next to
// the chat.
package experience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/domain"
)

const (
	maxHeroStats     = 3
	maxMetricCards   = 4
	trendPoints      = 5
	maxAnomalyCards  = 5
	maxInsightCards  = 4
	defaultHeroTitle = "Ops Pulse"
	defaultSubtitle  = "Live revenue, product and workflow signals."
)

// Sources groups the repositories a layout is built from.
type Sources struct {
	Metrics   domain.MetricRepository
	Anomalies domain.AnomalyRepository
	Workflows domain.WorkflowRepository
	Insights  domain.InsightRepository
}

type Service struct {
	schemas domain.UISchemaRepository
	src     Sources
	pubsub  bus.Publisher

	// mu serializes regenerations so versions stay gapless.
	mu  sync.Mutex
	now func() time.Time
}

func New(schemas domain.UISchemaRepository, src Sources, pubsub bus.Publisher) *Service {
	return &Service{
		schemas: schemas,
		src:     src,
		pubsub:  pubsub,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Latest returns the newest layout, or domain.ErrNotFound.
func (s *Service) Latest(ctx context.Context, workspaceID, uiContext string) (*domain.UISchema, error) {
	schema, err := s.schemas.Latest(ctx, workspaceID, uiContext)
	if err != nil {
		return nil, fmt.Errorf("experience.Service.Latest: %w", err)
	}
	return schema, nil
}

// Regenerate builds a fresh layout from current data and stores it as the
// next version.
func (s *Service) Regenerate(ctx context.Context, workspaceID, uiContext string) (*domain.UISchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.schemas.Latest(ctx, workspaceID, uiContext)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("experience.Service.Regenerate: latest: %w", err)
	}

	layout, err := s.build(ctx, workspaceID, prev)
	if err != nil {
		return nil, fmt.Errorf("experience.Service.Regenerate: %w", err)
	}

	version := 1
	if prev != nil {
		version = prev.Version + 1
	}

	schema := &domain.UISchema{
		ID:          domain.NewID("ui"),
		WorkspaceID: workspaceID,
		Context:     uiContext,
		Version:     version,
		Layout:      layout,
		CreatedAt:   s.now(),
	}
	if err := s.schemas.Save(ctx, schema); err != nil {
		return nil, fmt.Errorf("experience.Service.Regenerate: save: %w", err)
	}

	bus.Emit(ctx, s.pubsub, domain.EventUISchemaGenerated, workspaceID, map[string]any{
		"schemaId": schema.ID,
		"context":  uiContext,
		"version":  version,
	})

	return schema, nil
}

func (s *Service) build(ctx context.Context, workspaceID string, prev *domain.UISchema) (domain.UILayout, error) {
	metrics, err := s.src.Metrics.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return domain.UILayout{}, fmt.Errorf("metrics: %w", err)
	}
	anomalies, err := s.src.Anomalies.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return domain.UILayout{}, fmt.Errorf("anomalies: %w", err)
	}
	workflows, err := s.src.Workflows.ListDefinitions(ctx, workspaceID)
	if err != nil {
		return domain.UILayout{}, fmt.Errorf("workflows: %w", err)
	}
	insights, err := s.src.Insights.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return domain.UILayout{}, fmt.Errorf("insights: %w", err)
	}

	hero := domain.UIHero{Title: defaultHeroTitle, Subtitle: defaultSubtitle}
	if prev != nil && prev.Layout.Hero.Title != "" {
		hero.Title = prev.Layout.Hero.Title
		hero.Subtitle = prev.Layout.Hero.Subtitle
	}

	metricCards := make([]domain.UICard, 0, maxMetricCards)
	for _, m := range metrics {
		latest, ok := m.Latest()
		if !ok {
			continue
		}
		if len(hero.Stats) < maxHeroStats {
			hero.Stats = append(hero.Stats, domain.UIStat{ID: m.ID, Label: m.Name, Value: latest.Value, Unit: m.Unit})
		}
		if len(metricCards) < maxMetricCards {
			trend := m.Tail(trendPoints)
			metricCards = append(metricCards, domain.UICard{
				ID:    m.ID,
				Title: m.Name,
				Value: latest.Value,
				Unit:  m.Unit,
				Delta: relativeChange(trend),
				Trend: append([]domain.MetricPoint(nil), trend...),
			})
		}
	}

	anomalyCards := make([]domain.UICard, 0, maxAnomalyCards)
	for i := len(anomalies) - 1; i >= 0 && len(anomalyCards) < maxAnomalyCards; i-- {
		a := anomalies[i]
		anomalyCards = append(anomalyCards, domain.UICard{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			Value:       a.Observed,
			Severity:    a.Severity,
		})
	}

	workflowCards := make([]domain.UICard, 0, len(workflows))
	for _, w := range workflows {
		steps := make([]string, 0, len(w.Steps))
		for _, st := range w.Steps {
			steps = append(steps, st.Name)
		}
		workflowCards = append(workflowCards, domain.UICard{ID: w.ID, Title: w.Name, Description: w.Description, Steps: steps})
	}

	insightCards := make([]domain.UICard, 0, maxInsightCards)
	for i := len(insights) - 1; i >= 0 && len(insightCards) < maxInsightCards; i-- {
		in := insights[i]
		insightCards = append(insightCards, domain.UICard{ID: in.ID, Title: string(in.Category), Description: in.Text})
	}

	return domain.UILayout{
		Hero: hero,
		Sections: []domain.UISection{
			{ID: "metrics", Kind: "metrics", Title: "Key metrics", Cards: metricCards},
			{ID: "anomalies", Kind: "anomalies", Title: "Anomalies", Cards: anomalyCards},
			{ID: "workflows", Kind: "workflows", Title: "Automations", Cards: workflowCards},
			{ID: "insights", Kind: "insights", Title: "Insights", Cards: insightCards},
		},
	}, nil
}

// relativeChange is (last-first)/first over the trend, rounded to 4 places.
func relativeChange(trend []domain.MetricPoint) float64 {
	if len(trend) < 2 || trend[0].Value == 0 {
		return 0
	}
	first, last := trend[0].Value, trend[len(trend)-1].Value
	change := (last - first) / first
	return float64(int64(change*10000)) / 10000
}
