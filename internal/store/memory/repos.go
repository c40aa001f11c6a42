package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/gosuda/opspilot/internal/domain"
)

// Repositories hand out copies so callers never alias stored records.

type WorkspaceRepo struct{ s *Store }

func (r *WorkspaceRepo) Create(_ context.Context, w *domain.Workspace) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.Workspaces {
		if existing.ID == w.ID {
			return fmt.Errorf("workspaceRepo.Create: %w", domain.ErrConflict)
		}
	}
	cp := *w
	next := r.s.data
	next.Workspaces = appended(next.Workspaces, &cp)

	return r.s.commitLocked(next)
}

func (r *WorkspaceRepo) GetByID(_ context.Context, id string) (*domain.Workspace, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, w := range r.s.data.Workspaces {
		if w.ID == id {
			cp := *w
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("workspaceRepo.GetByID: %w", domain.ErrNotFound)
}

func (r *WorkspaceRepo) List(_ context.Context) ([]*domain.Workspace, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Workspace, 0, len(r.s.data.Workspaces))
	for _, w := range r.s.data.Workspaces {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

type SessionRepo struct{ s *Store }

func (r *SessionRepo) Create(_ context.Context, sess *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.Sessions {
		if existing.ID == sess.ID {
			return fmt.Errorf("sessionRepo.Create: %w", domain.ErrConflict)
		}
	}
	cp := *sess
	next := r.s.data
	next.Sessions = appended(next.Sessions, &cp)

	return r.s.commitLocked(next)
}

func (r *SessionRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess := r.findLocked(id)
	if sess == nil {
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", domain.ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

func (r *SessionRepo) ListByWorkspace(_ context.Context, workspaceID string) ([]*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Session
	for _, sess := range r.s.data.Sessions {
		if sess.WorkspaceID == workspaceID {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *SessionRepo) AppendMessage(_ context.Context, m *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess := r.findLocked(m.SessionID)
	if sess == nil {
		return fmt.Errorf("sessionRepo.AppendMessage: %w", domain.ErrNotFound)
	}

	cp := *m
	cp.Blocks = slices.Clone(m.Blocks)
	touched := *sess
	touched.UpdatedAt = time.Now().UTC()

	next := r.s.data
	next.Messages = maps.Clone(next.Messages)
	next.Messages[m.SessionID] = appended(next.Messages[m.SessionID], &cp)
	next.Sessions = upsert(next.Sessions, &touched, func(x *domain.Session) bool { return x.ID == sess.ID })

	return r.s.commitLocked(next)
}

func (r *SessionRepo) ListMessages(_ context.Context, sessionID string) ([]*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	msgs := r.s.data.Messages[sessionID]
	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *SessionRepo) findLocked(id string) *domain.Session {
	for _, sess := range r.s.data.Sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

type AgentRepo struct{ s *Store }

func (r *AgentRepo) Save(_ context.Context, a *domain.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *a
	cp.ToolsWhitelist = slices.Clone(a.ToolsWhitelist)
	cp.Triggers = slices.Clone(a.Triggers)

	next := r.s.data
	next.Agents = upsert(next.Agents, &cp, func(x *domain.Agent) bool { return x.ID == a.ID })

	return r.s.commitLocked(next)
}

func (r *AgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.data.Agents {
		if a.ID == id {
			cp := *a
			cp.ToolsWhitelist = slices.Clone(a.ToolsWhitelist)
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("agentRepo.GetByID: %w", domain.ErrNotFound)
}

func (r *AgentRepo) ListByWorkspace(_ context.Context, workspaceID string) ([]*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Agent
	for _, a := range r.s.data.Agents {
		if a.WorkspaceID == workspaceID {
			cp := *a
			cp.ToolsWhitelist = slices.Clone(a.ToolsWhitelist)
			out = append(out, &cp)
		}
	}
	return out, nil
}

type MetricRepo struct{ s *Store }

func (r *MetricRepo) Save(_ context.Context, m *domain.MetricSeries) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *m
	cp.Points = slices.Clone(m.Points)

	next := r.s.data
	next.Metrics = upsert(next.Metrics, &cp, func(x *domain.MetricSeries) bool { return x.ID == m.ID })

	return r.s.commitLocked(next)
}

func (r *MetricRepo) ListByWorkspace(_ context.Context, workspaceID string) ([]*domain.MetricSeries, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.MetricSeries
	for _, m := range r.s.data.Metrics {
		if m.WorkspaceID == workspaceID {
			cp := *m
			cp.Points = slices.Clone(m.Points)
			out = append(out, &cp)
		}
	}
	return out, nil
}

type AnomalyRepo struct{ s *Store }

func (r *AnomalyRepo) Create(_ context.Context, a *domain.Anomaly) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *a
	next := r.s.data
	next.Anomalies = appended(next.Anomalies, &cp)

	return r.s.commitLocked(next)
}

func (r *AnomalyRepo) ListByWorkspace(_ context.Context, workspaceID string) ([]*domain.Anomaly, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Anomaly
	for _, a := range r.s.data.Anomalies {
		if a.WorkspaceID == workspaceID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type InsightRepo struct{ s *Store }

func (r *InsightRepo) Create(_ context.Context, i *domain.Insight) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *i
	next := r.s.data
	next.Insights = appended(next.Insights, &cp)

	return r.s.commitLocked(next)
}

func (r *InsightRepo) ListByWorkspace(_ context.Context, workspaceID string) ([]*domain.Insight, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Insight
	for _, i := range r.s.data.Insights {
		if i.WorkspaceID == workspaceID {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

type WorkflowRepo struct{ s *Store }

func (r *WorkflowRepo) SaveDefinition(_ context.Context, d *domain.WorkflowDefinition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *d
	cp.Steps = slices.Clone(d.Steps)

	next := r.s.data
	next.Workflows = upsert(next.Workflows, &cp, func(x *domain.WorkflowDefinition) bool { return x.ID == d.ID })

	return r.s.commitLocked(next)
}

func (r *WorkflowRepo) GetDefinition(_ context.Context, id string) (*domain.WorkflowDefinition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, d := range r.s.data.Workflows {
		if d.ID == id {
			cp := *d
			cp.Steps = slices.Clone(d.Steps)
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("workflowRepo.GetDefinition: %w", domain.ErrNotFound)
}

func (r *WorkflowRepo) ListDefinitions(_ context.Context, workspaceID string) ([]*domain.WorkflowDefinition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.WorkflowDefinition
	for _, d := range r.s.data.Workflows {
		if d.WorkspaceID == workspaceID {
			cp := *d
			cp.Steps = slices.Clone(d.Steps)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *WorkflowRepo) CreateRun(_ context.Context, run *domain.WorkflowRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *run
	cp.Logs = slices.Clone(run.Logs)
	next := r.s.data
	next.Runs = appended(next.Runs, &cp)

	return r.s.commitLocked(next)
}

func (r *WorkflowRepo) UpdateRun(_ context.Context, run *domain.WorkflowRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	same := func(x *domain.WorkflowRun) bool { return x.ID == run.ID }
	if !slices.ContainsFunc(r.s.data.Runs, same) {
		return fmt.Errorf("workflowRepo.UpdateRun: %w", domain.ErrNotFound)
	}
	cp := *run
	cp.Logs = slices.Clone(run.Logs)
	next := r.s.data
	next.Runs = upsert(next.Runs, &cp, same)

	return r.s.commitLocked(next)
}

func (r *WorkflowRepo) ListRuns(_ context.Context, workspaceID string) ([]*domain.WorkflowRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.WorkflowRun
	for _, run := range r.s.data.Runs {
		if run.WorkspaceID == workspaceID {
			cp := *run
			cp.Logs = slices.Clone(run.Logs)
			out = append(out, &cp)
		}
	}
	return out, nil
}

type UISchemaRepo struct{ s *Store }

func (r *UISchemaRepo) Save(_ context.Context, schema *domain.UISchema) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *schema
	next := r.s.data
	next.UISchemas = upsert(next.UISchemas, &cp, func(x *domain.UISchema) bool { return x.ID == schema.ID })

	return r.s.commitLocked(next)
}

func (r *UISchemaRepo) Latest(_ context.Context, workspaceID, layoutContext string) (*domain.UISchema, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *domain.UISchema
	for _, schema := range r.s.data.UISchemas {
		if schema.WorkspaceID != workspaceID || schema.Context != layoutContext {
			continue
		}
		if latest == nil || schema.Version > latest.Version {
			latest = schema
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("uiSchemaRepo.Latest: %w", domain.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

type IntegrationRepo struct{ s *Store }

func (r *IntegrationRepo) Upsert(_ context.Context, c *domain.IntegrationConnection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := &storedIntegration{IntegrationConnection: *c, Credentials: c.Credentials}
	stored.Scopes = slices.Clone(c.Scopes)

	same := func(x *storedIntegration) bool {
		return x.WorkspaceID == c.WorkspaceID && x.Provider == c.Provider
	}
	if idx := slices.IndexFunc(r.s.data.Integrations, same); idx >= 0 {
		stored.ID = r.s.data.Integrations[idx].ID
	}
	next := r.s.data
	next.Integrations = upsert(next.Integrations, stored, same)

	return r.s.commitLocked(next)
}

func (r *IntegrationRepo) Get(_ context.Context, workspaceID, provider string) (*domain.IntegrationConnection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, in := range r.s.data.Integrations {
		if in.WorkspaceID == workspaceID && in.Provider == provider {
			cp := in.IntegrationConnection
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("integrationRepo.Get: %w", domain.ErrNotFound)
}

func (r *IntegrationRepo) ListByWorkspace(_ context.Context, workspaceID string) ([]*domain.IntegrationConnection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.IntegrationConnection
	for _, in := range r.s.data.Integrations {
		if in.WorkspaceID == workspaceID {
			cp := in.IntegrationConnection
			out = append(out, &cp)
		}
	}
	return out, nil
}
