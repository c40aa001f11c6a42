package v1

import (
	"context"

	"github.com/gosuda/opspilot/internal/agent"
	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/integration"
	"github.com/gosuda/opspilot/internal/workflow"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *memory.Store and *postgres.Store satisfy this interface.
type DataStore interface {
	Workspaces() domain.WorkspaceRepository
	Sessions() domain.SessionRepository
	Agents() domain.AgentRepository
}

// ChatRunner opens chat turns. *agent.Orchestrator satisfies this interface.
type ChatRunner interface {
	RunChat(ctx context.Context, req agent.ChatRequest) (*agent.Turn, error)
}

// ToolCatalog lists the registered connector tools. *gateway.Gateway
// satisfies this interface.
type ToolCatalog interface {
	ListTools() []domain.ToolDescription
}

// SignalReader serves metrics and anomalies. *signals.Service satisfies
// this interface.
type SignalReader interface {
	Metrics(ctx context.Context, workspaceID string) ([]*domain.MetricSeries, error)
	Anomalies(ctx context.Context, workspaceID string) ([]*domain.Anomaly, error)
}

// Experience serves dashboard layouts. *experience.Service satisfies this
// interface.
type Experience interface {
	Latest(ctx context.Context, workspaceID, uiContext string) (*domain.UISchema, error)
	Regenerate(ctx context.Context, workspaceID, uiContext string) (*domain.UISchema, error)
}

// WorkflowRunner abstracts the workflow engine. *workflow.Engine satisfies
// this interface.
type WorkflowRunner interface {
	ListDefinitions(ctx context.Context, workspaceID string) ([]*domain.WorkflowDefinition, error)
	ListRuns(ctx context.Context, workspaceID string) ([]*domain.WorkflowRun, error)
	RunWorkflow(ctx context.Context, definitionID string, rc workflow.RunContext) (*domain.WorkflowRun, error)
}

// Integrations abstracts connection management. *integration.Service
// satisfies this interface.
type Integrations interface {
	Catalog(ctx context.Context, workspaceID string) ([]integration.CatalogEntry, error)
	Connect(ctx context.Context, workspaceID, provider string, creds map[string]string) (*domain.IntegrationConnection, error)
	Disconnect(ctx context.Context, workspaceID, provider string) error
	Status(ctx context.Context, workspaceID, provider string) (integration.Status, error)
	StartOAuth(ctx context.Context, workspaceID, provider string) (integration.OAuthStart, error)
	CompleteOAuth(ctx context.Context, provider, state, code string) (*domain.IntegrationConnection, error)
}
