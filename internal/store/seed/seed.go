// Package seed loads the demo workspace into an empty datastore.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gosuda/opspilot/internal/domain"
)

//go:embed seed.yaml
var seedYAML []byte

// Repositories is the accessor set the seeder writes through. Both
// *memory.Store and *postgres.Store satisfy it.
type Repositories interface {
	Workspaces() domain.WorkspaceRepository
	Sessions() domain.SessionRepository
	Agents() domain.AgentRepository
	Metrics() domain.MetricRepository
	Anomalies() domain.AnomalyRepository
	Insights() domain.InsightRepository
	Workflows() domain.WorkflowRepository
	UISchemas() domain.UISchemaRepository
}

type seedFile struct {
	Workspace struct {
		ID             string `yaml:"id"`
		Name           string `yaml:"name"`
		Timezone       string `yaml:"timezone"`
		DefaultAgentID string `yaml:"defaultAgentId"`
	} `yaml:"workspace"`
	Agents []struct {
		ID               string           `yaml:"id"`
		Name             string           `yaml:"name"`
		Description      string           `yaml:"description"`
		SystemPrompt     string           `yaml:"systemPrompt"`
		ToolsWhitelist   []string         `yaml:"toolsWhitelist"`
		DefaultInputRole string           `yaml:"defaultInputRole"`
		Triggers         []domain.Trigger `yaml:"triggers"`
	} `yaml:"agents"`
	Sessions []struct {
		ID       string `yaml:"id"`
		Title    string `yaml:"title"`
		AgentID  string `yaml:"agentId"`
		Model    string `yaml:"model"`
		Messages []struct {
			Role    string `yaml:"role"`
			Content string `yaml:"content"`
		} `yaml:"messages"`
	} `yaml:"sessions"`
	Workflows []struct {
		ID          string                `yaml:"id"`
		Name        string                `yaml:"name"`
		Description string                `yaml:"description"`
		Trigger     domain.Trigger        `yaml:"trigger"`
		Steps       []domain.WorkflowStep `yaml:"steps"`
	} `yaml:"workflows"`
	Metrics []struct {
		ID     string    `yaml:"id"`
		Name   string    `yaml:"name"`
		Unit   string    `yaml:"unit"`
		Values []float64 `yaml:"values"`
	} `yaml:"metrics"`
	Anomalies []struct {
		ID          string  `yaml:"id"`
		MetricID    string  `yaml:"metricId"`
		Title       string  `yaml:"title"`
		Description string  `yaml:"description"`
		Severity    string  `yaml:"severity"`
		Baseline    float64 `yaml:"baseline"`
		Observed    float64 `yaml:"observed"`
	} `yaml:"anomalies"`
	Insights []struct {
		ID       string `yaml:"id"`
		Text     string `yaml:"text"`
		Category string `yaml:"category"`
	} `yaml:"insights"`
	Dashboard struct {
		ID       string `yaml:"id"`
		Title    string `yaml:"title"`
		Subtitle string `yaml:"subtitle"`
	} `yaml:"dashboard"`
}

// Apply writes the embedded demo dataset unless its workspace already
// exists. It reports whether anything was written.
func Apply(ctx context.Context, repos Repositories) (bool, error) {
	var f seedFile
	err := yaml.Unmarshal(seedYAML, &f)
	if err != nil {
		return false, fmt.Errorf("seed.Apply: decode: %w", err)
	}

	wsID := f.Workspace.ID
	_, err = repos.Workspaces().GetByID(ctx, wsID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("seed.Apply: lookup workspace: %w", err)
	}

	now := time.Now().UTC()

	err = repos.Workspaces().Create(ctx, &domain.Workspace{
		ID:             wsID,
		Name:           f.Workspace.Name,
		Timezone:       f.Workspace.Timezone,
		DefaultAgentID: f.Workspace.DefaultAgentID,
		CreatedAt:      now,
	})
	if err != nil {
		return false, fmt.Errorf("seed.Apply: workspace: %w", err)
	}

	for _, a := range f.Agents {
		err = repos.Agents().Save(ctx, &domain.Agent{
			ID:               a.ID,
			WorkspaceID:      wsID,
			Name:             a.Name,
			Description:      a.Description,
			SystemPrompt:     a.SystemPrompt,
			ToolsWhitelist:   a.ToolsWhitelist,
			DefaultInputRole: domain.Role(a.DefaultInputRole),
			Triggers:         a.Triggers,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			return false, fmt.Errorf("seed.Apply: agent %s: %w", a.ID, err)
		}
	}

	for _, s := range f.Sessions {
		err = repos.Sessions().Create(ctx, &domain.Session{
			ID:            s.ID,
			WorkspaceID:   wsID,
			Title:         s.Title,
			ActiveAgentID: s.AgentID,
			Model:         s.Model,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return false, fmt.Errorf("seed.Apply: session %s: %w", s.ID, err)
		}
		for _, m := range s.Messages {
			err = repos.Sessions().AppendMessage(ctx, domain.NewMessage(s.ID, domain.Role(m.Role), m.Content))
			if err != nil {
				return false, fmt.Errorf("seed.Apply: session %s message: %w", s.ID, err)
			}
		}
	}

	for _, w := range f.Workflows {
		err = repos.Workflows().SaveDefinition(ctx, &domain.WorkflowDefinition{
			ID:          w.ID,
			WorkspaceID: wsID,
			Name:        w.Name,
			Description: w.Description,
			Trigger:     w.Trigger,
			Steps:       w.Steps,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return false, fmt.Errorf("seed.Apply: workflow %s: %w", w.ID, err)
		}
	}

	// Metric values are daily samples ending today.
	for _, m := range f.Metrics {
		points := make([]domain.MetricPoint, 0, len(m.Values))
		for i, v := range m.Values {
			age := time.Duration(len(m.Values)-1-i) * 24 * time.Hour
			points = append(points, domain.MetricPoint{Timestamp: now.Add(-age), Value: v})
		}
		err = repos.Metrics().Save(ctx, &domain.MetricSeries{
			ID:          m.ID,
			WorkspaceID: wsID,
			Name:        m.Name,
			Unit:        m.Unit,
			Points:      points,
		})
		if err != nil {
			return false, fmt.Errorf("seed.Apply: metric %s: %w", m.ID, err)
		}
	}

	for _, a := range f.Anomalies {
		err = repos.Anomalies().Create(ctx, &domain.Anomaly{
			ID:          a.ID,
			WorkspaceID: wsID,
			MetricID:    a.MetricID,
			Title:       a.Title,
			Description: a.Description,
			Severity:    domain.Severity(a.Severity),
			DetectedAt:  now,
			Baseline:    a.Baseline,
			Observed:    a.Observed,
		})
		if err != nil {
			return false, fmt.Errorf("seed.Apply: anomaly %s: %w", a.ID, err)
		}
	}

	for _, i := range f.Insights {
		err = repos.Insights().Create(ctx, &domain.Insight{
			ID:          i.ID,
			WorkspaceID: wsID,
			Text:        i.Text,
			Category:    domain.InsightCategory(i.Category),
			CreatedAt:   now,
		})
		if err != nil {
			return false, fmt.Errorf("seed.Apply: insight %s: %w", i.ID, err)
		}
	}

	err = repos.UISchemas().Save(ctx, &domain.UISchema{
		ID:          f.Dashboard.ID,
		WorkspaceID: wsID,
		Context:     domain.DashboardContext,
		Version:     1,
		Layout: domain.UILayout{
			Hero:     domain.UIHero{Title: f.Dashboard.Title, Subtitle: f.Dashboard.Subtitle},
			Sections: []domain.UISection{},
		},
		CreatedAt: now,
	})
	if err != nil {
		return false, fmt.Errorf("seed.Apply: dashboard: %w", err)
	}

	return true, nil
}
