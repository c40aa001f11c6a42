package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/opspilot/internal/domain"
)

type WorkflowRepo struct {
	pool *pgxpool.Pool
}

func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

const definitionColumns = `id, workspace_id, name, description, trigger, steps, created_at, updated_at`

func (r *WorkflowRepo) SaveDefinition(ctx context.Context, d *domain.WorkflowDefinition) error {
	trigger, err := json.Marshal(d.Trigger)
	if err != nil {
		return fmt.Errorf("workflowRepo.SaveDefinition: marshal trigger: %w", err)
	}
	steps, err := json.Marshal(d.Steps)
	if err != nil {
		return fmt.Errorf("workflowRepo.SaveDefinition: marshal steps: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO workflow_definitions (id, workspace_id, name, description, trigger, steps, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, description = EXCLUDED.description, trigger = EXCLUDED.trigger,
		   steps = EXCLUDED.steps, updated_at = EXCLUDED.updated_at`,
		d.ID, d.WorkspaceID, d.Name, d.Description, trigger, steps, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("workflowRepo.SaveDefinition: %w", err)
	}

	return nil
}

func (r *WorkflowRepo) GetDefinition(ctx context.Context, id string) (*domain.WorkflowDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+definitionColumns+` FROM workflow_definitions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("workflowRepo.GetDefinition: %w", err)
	}
	defer rows.Close()

	list, err := scanDefinitions(rows, "workflowRepo.GetDefinition")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("workflowRepo.GetDefinition: %w", domain.ErrNotFound)
	}

	return list[0], nil
}

func (r *WorkflowRepo) ListDefinitions(ctx context.Context, workspaceID string) ([]*domain.WorkflowDefinition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+definitionColumns+` FROM workflow_definitions WHERE workspace_id = $1 ORDER BY seq`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("workflowRepo.ListDefinitions: %w", err)
	}
	defer rows.Close()

	return scanDefinitions(rows, "workflowRepo.ListDefinitions")
}

func scanDefinitions(rows pgx.Rows, caller string) ([]*domain.WorkflowDefinition, error) {
	var list []*domain.WorkflowDefinition
	for rows.Next() {
		var (
			d       domain.WorkflowDefinition
			trigger []byte
			steps   []byte
		)
		err := rows.Scan(&d.ID, &d.WorkspaceID, &d.Name, &d.Description, &trigger, &steps, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		err = json.Unmarshal(trigger, &d.Trigger)
		if err != nil {
			return nil, fmt.Errorf("%s: unmarshal trigger: %w", caller, err)
		}
		err = json.Unmarshal(steps, &d.Steps)
		if err != nil {
			return nil, fmt.Errorf("%s: unmarshal steps: %w", caller, err)
		}
		list = append(list, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return list, nil
}

func (r *WorkflowRepo) CreateRun(ctx context.Context, run *domain.WorkflowRun) error {
	logs, output, err := marshalRun(run)
	if err != nil {
		return fmt.Errorf("workflowRepo.CreateRun: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO workflow_runs (id, definition_id, workspace_id, status, started_at, completed_at, logs, output)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.DefinitionID, run.WorkspaceID, run.Status, run.StartedAt, run.CompletedAt, logs, output,
	)
	if err != nil {
		return fmt.Errorf("workflowRepo.CreateRun: %w", err)
	}

	return nil
}

func (r *WorkflowRepo) UpdateRun(ctx context.Context, run *domain.WorkflowRun) error {
	logs, output, err := marshalRun(run)
	if err != nil {
		return fmt.Errorf("workflowRepo.UpdateRun: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE workflow_runs SET status = $1, completed_at = $2, logs = $3, output = $4 WHERE id = $5`,
		run.Status, run.CompletedAt, logs, output, run.ID,
	)
	if err != nil {
		return fmt.Errorf("workflowRepo.UpdateRun: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflowRepo.UpdateRun: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *WorkflowRepo) ListRuns(ctx context.Context, workspaceID string) ([]*domain.WorkflowRun, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, definition_id, workspace_id, status, started_at, completed_at, logs, output
		 FROM workflow_runs WHERE workspace_id = $1 ORDER BY seq`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("workflowRepo.ListRuns: %w", err)
	}
	defer rows.Close()

	var list []*domain.WorkflowRun
	for rows.Next() {
		var (
			run    domain.WorkflowRun
			logs   []byte
			output []byte
		)
		err = rows.Scan(&run.ID, &run.DefinitionID, &run.WorkspaceID, &run.Status, &run.StartedAt, &run.CompletedAt, &logs, &output)
		if err != nil {
			return nil, fmt.Errorf("workflowRepo.ListRuns: scan: %w", err)
		}
		err = json.Unmarshal(logs, &run.Logs)
		if err != nil {
			return nil, fmt.Errorf("workflowRepo.ListRuns: unmarshal logs: %w", err)
		}
		if len(output) > 0 {
			err = json.Unmarshal(output, &run.Output)
			if err != nil {
				return nil, fmt.Errorf("workflowRepo.ListRuns: unmarshal output: %w", err)
			}
		}
		list = append(list, &run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("workflowRepo.ListRuns: rows: %w", err)
	}

	return list, nil
}

func marshalRun(run *domain.WorkflowRun) (logs, output []byte, err error) {
	logs, err = json.Marshal(run.Logs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal logs: %w", err)
	}
	if run.Output == nil {
		return logs, nil, nil
	}
	output, err = json.Marshal(run.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal output: %w", err)
	}
	return logs, output, nil
}
