package domain

import (
	"context"
	"errors"
	"time"
)

type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerSchedule TriggerType = "schedule"
	TriggerEvent    TriggerType = "event"
)

type Trigger struct {
	Type    TriggerType    `json:"type" yaml:"type"`
	Details map[string]any `json:"details" yaml:"details"`
}

// Cron returns the cron expression of a schedule trigger, or "" when absent.
func (t Trigger) Cron() string {
	if t.Type != TriggerSchedule {
		return ""
	}
	v, _ := t.Details["cron"].(string)
	return v
}

type Agent struct {
	ID               string    `json:"id"`
	WorkspaceID      string    `json:"workspaceId"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	SystemPrompt     string    `json:"systemPrompt"`
	ToolsWhitelist   []string  `json:"toolsWhitelist"`
	DefaultInputRole Role      `json:"defaultInputRole"`
	Triggers         []Trigger `json:"triggers"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Validate checks required fields before an agent is saved.
func (a *Agent) Validate() error {
	if a.WorkspaceID == "" {
		return errors.New("agent: workspace ID is required")
	}
	if a.Name == "" {
		return errors.New("agent: name is required")
	}
	if a.DefaultInputRole != "" && !a.DefaultInputRole.Valid() {
		return errors.New("agent: invalid default input role")
	}
	for _, tr := range a.Triggers {
		switch tr.Type {
		case TriggerManual, TriggerSchedule, TriggerEvent:
		default:
			return errors.New("agent: invalid trigger type " + string(tr.Type))
		}
	}
	return nil
}

type AgentRepository interface {
	Save(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id string) (*Agent, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*Agent, error)
}
