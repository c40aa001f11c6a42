package domain

import (
	"context"
	"time"
)

type StepType string

const (
	StepTool    StepType = "tool"
	StepCompute StepType = "compute"
	StepBranch  StepType = "branch"
	StepWait    StepType = "wait"
	StepNotify  StepType = "notify"
)

type WorkflowStep struct {
	ID         string         `json:"id" yaml:"id"`
	Type       StepType       `json:"type" yaml:"type"`
	Name       string         `json:"name" yaml:"name"`
	ToolID     string         `json:"toolId,omitempty" yaml:"toolId"`
	Input      map[string]any `json:"input,omitempty" yaml:"input"`
	Expression string         `json:"expression,omitempty" yaml:"expression"`
	Condition  string         `json:"condition,omitempty" yaml:"condition"`
	NextStepID string         `json:"nextStepId,omitempty" yaml:"nextStepId"`
}

type WorkflowDefinition struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspaceId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Trigger     Trigger        `json:"trigger"`
	Steps       []WorkflowStep `json:"steps"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "pending"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowSucceeded WorkflowStatus = "succeeded"
	WorkflowFailed    WorkflowStatus = "failed"
)

type WorkflowRun struct {
	ID           string         `json:"id"`
	DefinitionID string         `json:"definitionId"`
	WorkspaceID  string         `json:"workspaceId"`
	Status       WorkflowStatus `json:"status"`
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	Logs         []string       `json:"logs"`
	Output       map[string]any `json:"output,omitempty"`
}

// WorkflowRepository lists definitions and runs in insertion order.
type WorkflowRepository interface {
	SaveDefinition(ctx context.Context, d *WorkflowDefinition) error
	GetDefinition(ctx context.Context, id string) (*WorkflowDefinition, error)
	ListDefinitions(ctx context.Context, workspaceID string) ([]*WorkflowDefinition, error)
	CreateRun(ctx context.Context, r *WorkflowRun) error
	UpdateRun(ctx context.Context, r *WorkflowRun) error
	ListRuns(ctx context.Context, workspaceID string) ([]*WorkflowRun, error)
}
