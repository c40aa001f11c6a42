// Package workflow executes remediation workflows step by step and runs the
// scheduled ones on their cron expressions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/metrics"
)

// ErrWorkflowNotFound is returned when a definition id does not resolve.
var ErrWorkflowNotFound = errors.New("workflow: definition not found") //nolint:gochecknoglobals // sentinel error

const (
	defaultSchedule  = "@every 1m"
	defaultWait      = 500 * time.Millisecond
	schedulerActorID = "scheduler"
)

// ToolExecutor runs a gateway tool.
type ToolExecutor interface {
	Execute(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error)
}

// RunContext attributes a run.
type RunContext struct {
	WorkspaceID string
	ActorID     string
	Reason      string
}

type Engine struct {
	repo   domain.WorkflowRepository
	tools  ToolExecutor
	pubsub bus.Publisher
	now    func() time.Time
}

func NewEngine(repo domain.WorkflowRepository, tools ToolExecutor, pubsub bus.Publisher) *Engine {
	return &Engine{
		repo:   repo,
		tools:  tools,
		pubsub: pubsub,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) ListDefinitions(ctx context.Context, workspaceID string) ([]*domain.WorkflowDefinition, error) {
	defs, err := e.repo.ListDefinitions(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.ListDefinitions: %w", err)
	}
	return defs, nil
}

func (e *Engine) ListRuns(ctx context.Context, workspaceID string) ([]*domain.WorkflowRun, error) {
	runs, err := e.repo.ListRuns(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.ListRuns: %w", err)
	}
	return runs, nil
}

// RunWorkflow executes every step in order. A failing step marks the run
// failed and stops it; that outcome is reported through the returned run,
// not the error. The error is reserved for lookup and storage failures.
func (e *Engine) RunWorkflow(ctx context.Context, definitionID string, rc RunContext) (*domain.WorkflowRun, error) {
	def, err := e.repo.GetDefinition(ctx, definitionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("workflow.Engine.RunWorkflow(%q): %w", definitionID, ErrWorkflowNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("workflow.Engine.RunWorkflow: get definition: %w", err)
	}
	if rc.WorkspaceID != "" && rc.WorkspaceID != def.WorkspaceID {
		return nil, fmt.Errorf("workflow.Engine.RunWorkflow(%q): %w", definitionID, ErrWorkflowNotFound)
	}

	reason := rc.Reason
	if reason == "" {
		reason = "manual"
	}

	run := &domain.WorkflowRun{
		ID:           domain.NewID("run"),
		DefinitionID: def.ID,
		WorkspaceID:  def.WorkspaceID,
		Status:       domain.WorkflowRunning,
		StartedAt:    e.now(),
		Logs:         []string{fmt.Sprintf("Run triggered by %s (%s)", rc.ActorID, reason)},
	}
	if err := e.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("workflow.Engine.RunWorkflow: create run: %w", err)
	}

	output, stepErr := e.execute(ctx, def, rc.ActorID, run)

	completed := e.now()
	run.CompletedAt = &completed
	run.Output = output
	event := map[string]string{"runId": run.ID, "definitionId": def.ID}
	if stepErr != nil {
		run.Status = domain.WorkflowFailed
		run.Logs = append(run.Logs, "Error: "+stepErr.Error())
		event["error"] = stepErr.Error()
	} else {
		run.Status = domain.WorkflowSucceeded
	}

	if err := e.repo.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("workflow.Engine.RunWorkflow: update run: %w", err)
	}

	metrics.WorkflowRuns.WithLabelValues(string(run.Status)).Inc()
	bus.Emit(ctx, e.pubsub, domain.EventWorkflowCompleted, def.WorkspaceID, event)

	return run, nil
}

func (e *Engine) execute(ctx context.Context, def *domain.WorkflowDefinition, actorID string, run *domain.WorkflowRun) (map[string]any, error) {
	results := make(map[string]any, len(def.Steps))
	cc := domain.CapabilityContext{WorkspaceID: def.WorkspaceID, ActorID: actorID}

	for _, step := range def.Steps {
		run.Logs = append(run.Logs, "Executing "+step.Name)

		switch step.Type {
		case domain.StepTool, domain.StepNotify:
			res, err := e.tools.Execute(ctx, cc, step.ToolID, step.Input)
			if err != nil {
				return results, fmt.Errorf("step %s: %w", step.ID, err)
			}
			results[step.ID] = res
			run.Logs = append(run.Logs, "→ "+step.ToolID+" responded.")

		case domain.StepCompute:
			results[step.ID] = map[string]any{"value": step.Expression}
			run.Logs = append(run.Logs, "→ Computed expression "+step.Expression)

		case domain.StepWait:
			timer := time.NewTimer(waitDuration(step.Input))
			select {
			case <-ctx.Done():
				timer.Stop()
				return results, fmt.Errorf("step %s: %w", step.ID, ctx.Err())
			case <-timer.C:
			}
			run.Logs = append(run.Logs, "→ Wait complete.")

		case domain.StepBranch:
			run.Logs = append(run.Logs, "→ Branch evaluated: "+step.Condition)
		}
	}

	return results, nil
}

// waitDuration reads input.duration as milliseconds.
func waitDuration(input map[string]any) time.Duration {
	switch v := input["duration"].(type) {
	case int:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v) * time.Millisecond
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return defaultWait
}

// Scheduler runs schedule-triggered workflows on their cron expressions.
type Scheduler struct {
	engine *Engine
	cron   *cron.Cron
}

func NewScheduler(engine *Engine) *Scheduler {
	return &Scheduler{engine: engine, cron: cron.New()}
}

// Start registers every schedule-triggered definition of the given
// workspaces and starts the cron loop. It stops when ctx is cancelled and
// waits for running jobs.
func (s *Scheduler) Start(ctx context.Context, workspaces []string) error {
	for _, ws := range workspaces {
		defs, err := s.engine.ListDefinitions(ctx, ws)
		if err != nil {
			return fmt.Errorf("workflow.Scheduler.Start: %w", err)
		}

		for _, def := range defs {
			if def.Trigger.Type != domain.TriggerSchedule {
				continue
			}
			spec := def.Trigger.Cron()
			if spec == "" {
				spec = defaultSchedule
			}

			id, workspaceID := def.ID, def.WorkspaceID
			_, err := s.cron.AddFunc(spec, func() {
				run, err := s.engine.RunWorkflow(ctx, id, RunContext{WorkspaceID: workspaceID, ActorID: schedulerActorID, Reason: "schedule"})
				if err != nil {
					log.Error().Err(err).Str("workflow_id", id).Msg("workflow.Scheduler: run failed")
					return
				}
				log.Info().Str("workflow_id", id).Str("run_id", run.ID).Str("status", string(run.Status)).Msg("workflow.Scheduler: scheduled run finished")
			})
			if err != nil {
				return fmt.Errorf("workflow.Scheduler.Start: schedule %s (%q): %w", def.ID, spec, err)
			}
		}
	}

	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()

	return nil
}

// Entries reports how many definitions are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
