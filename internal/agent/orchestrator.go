package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/domain"
)

var (
	// ErrSessionNotFound is returned when a chat session does not exist.
	ErrSessionNotFound = errors.New("agent: session not found") //nolint:gochecknoglobals // sentinel error
	// ErrAgentNotFound is returned when a session's active agent does not exist.
	ErrAgentNotFound = errors.New("agent: agent not found") //nolint:gochecknoglobals // sentinel error
)

const (
	maxToolsPerTurn = 2
	defaultActorID  = "user"
)

// Planner produces the plan for a turn. It never fails.
type Planner interface {
	CreatePlan(ctx context.Context, session *domain.Session, agent *domain.Agent, message string) *domain.Plan
}

// InsightSource produces the ordered insights for a workspace.
type InsightSource interface {
	Generate(ctx context.Context, workspaceID string) ([]*domain.Insight, error)
}

// AnomalySource lists a workspace's current anomalies.
type AnomalySource interface {
	Anomalies(ctx context.Context, workspaceID string) ([]*domain.Anomaly, error)
}

// ToolExecutor runs a gateway tool.
type ToolExecutor interface {
	Execute(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error)
}

// Designer regenerates a workspace's UI schema.
type Designer interface {
	Regenerate(ctx context.Context, workspaceID, uiContext string) (*domain.UISchema, error)
}

// Remediator proposes workflows for anomalies.
type Remediator interface {
	Suggest(ctx context.Context, workspaceID string, anomalies []*domain.Anomaly) ([]domain.RemediationSuggestion, error)
}

// ChatRequest is one inbound user message. An empty WorkspaceID defaults to
// the session's workspace; an empty ActorID to "user".
type ChatRequest struct {
	WorkspaceID string
	SessionID   string
	Message     string
	ActorID     string
}

// Options tunes orchestrator behaviour.
type Options struct {
	// PersistOnAbandon stores a partial assistant message when the consumer
	// stops pulling events before the turn finishes.
	PersistOnAbandon bool
}

// Orchestrator runs chat turns: plan, insights, bounded tool calls, UI
// schema, remediation and summary.
type Orchestrator struct {
	sessions  domain.SessionRepository
	agents    domain.AgentRepository
	planner   Planner
	insights  InsightSource
	anomalies AnomalySource
	tools     ToolExecutor
	designer  Designer
	advisor   Remediator
	pubsub    bus.Publisher
	opts      Options
}

func NewOrchestrator(
	sessions domain.SessionRepository,
	agents domain.AgentRepository,
	planner Planner,
	insights InsightSource,
	anomalies AnomalySource,
	tools ToolExecutor,
	designer Designer,
	advisor Remediator,
	pubsub bus.Publisher,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		sessions:  sessions,
		agents:    agents,
		planner:   planner,
		insights:  insights,
		anomalies: anomalies,
		tools:     tools,
		designer:  designer,
		advisor:   advisor,
		pubsub:    pubsub,
		opts:      opts,
	}
}

// RunChat opens a turn. It resolves the session and its active agent, then
// appends the user message; if any of that fails nothing is emitted and the
// error is returned. The returned Turn yields the remaining events lazily.
func (o *Orchestrator) RunChat(ctx context.Context, req ChatRequest) (*Turn, error) {
	session, err := o.sessions.GetByID(ctx, req.SessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("agent.Orchestrator.RunChat(%q): %w", req.SessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("agent.Orchestrator.RunChat: get session: %w", err)
	}

	agent, err := o.agents.GetByID(ctx, session.ActiveAgentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("agent.Orchestrator.RunChat(%q): %w", session.ActiveAgentID, ErrAgentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("agent.Orchestrator.RunChat: get agent: %w", err)
	}

	if req.WorkspaceID == "" {
		req.WorkspaceID = session.WorkspaceID
	}
	if req.ActorID == "" {
		req.ActorID = defaultActorID
	}

	err = o.sessions.AppendMessage(ctx, domain.NewMessage(session.ID, domain.RoleUser, req.Message))
	if err != nil {
		return nil, fmt.Errorf("agent.Orchestrator.RunChat: append user message: %w", err)
	}

	return newTurn(o, req, session, agent), nil
}
