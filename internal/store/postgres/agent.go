package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/opspilot/internal/domain"
)

type AgentRepo struct {
	pool *pgxpool.Pool
}

func NewAgentRepo(pool *pgxpool.Pool) *AgentRepo {
	return &AgentRepo{pool: pool}
}

const agentColumns = `id, workspace_id, name, description, system_prompt, tools_whitelist,
		        default_input_role, triggers, created_at, updated_at`

func (r *AgentRepo) Save(ctx context.Context, a *domain.Agent) error {
	triggers, err := json.Marshal(a.Triggers)
	if err != nil {
		return fmt.Errorf("agentRepo.Save: marshal triggers: %w", err)
	}

	whitelist := a.ToolsWhitelist
	if whitelist == nil {
		whitelist = []string{}
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO agents (id, workspace_id, name, description, system_prompt, tools_whitelist, default_input_role, triggers, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, description = EXCLUDED.description, system_prompt = EXCLUDED.system_prompt,
		   tools_whitelist = EXCLUDED.tools_whitelist, default_input_role = EXCLUDED.default_input_role,
		   triggers = EXCLUDED.triggers, updated_at = EXCLUDED.updated_at`,
		a.ID, a.WorkspaceID, a.Name, a.Description, a.SystemPrompt, whitelist,
		a.DefaultInputRole, triggers, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("agentRepo.Save: %w", err)
	}

	return nil
}

func (r *AgentRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("agentRepo.GetByID: %w", err)
	}
	defer rows.Close()

	list, err := scanAgents(rows, "agentRepo.GetByID")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("agentRepo.GetByID: %w", domain.ErrNotFound)
	}

	return list[0], nil
}

func (r *AgentRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Agent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE workspace_id = $1 ORDER BY created_at, id`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("agentRepo.ListByWorkspace: %w", err)
	}
	defer rows.Close()

	return scanAgents(rows, "agentRepo.ListByWorkspace")
}

func scanAgents(rows pgx.Rows, caller string) ([]*domain.Agent, error) {
	var list []*domain.Agent
	for rows.Next() {
		var (
			a        domain.Agent
			triggers []byte
		)
		err := rows.Scan(&a.ID, &a.WorkspaceID, &a.Name, &a.Description, &a.SystemPrompt, &a.ToolsWhitelist,
			&a.DefaultInputRole, &triggers, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		err = json.Unmarshal(triggers, &a.Triggers)
		if err != nil {
			return nil, fmt.Errorf("%s: unmarshal triggers: %w", caller, err)
		}
		list = append(list, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return list, nil
}
