package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/opspilot/internal/domain"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

type WorkspaceRepo struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepo(pool *pgxpool.Pool) *WorkspaceRepo {
	return &WorkspaceRepo{pool: pool}
}

func (r *WorkspaceRepo) Create(ctx context.Context, w *domain.Workspace) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspaces (id, name, timezone, default_agent_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.Name, w.Timezone, w.DefaultAgentID, w.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("workspaceRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("workspaceRepo.Create: %w", err)
	}

	return nil
}

func (r *WorkspaceRepo) GetByID(ctx context.Context, id string) (*domain.Workspace, error) {
	var w domain.Workspace

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, timezone, default_agent_id, created_at FROM workspaces WHERE id = $1`,
		id,
	).Scan(&w.ID, &w.Name, &w.Timezone, &w.DefaultAgentID, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workspaceRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("workspaceRepo.GetByID: %w", err)
	}

	return &w, nil
}

func (r *WorkspaceRepo) List(ctx context.Context) ([]*domain.Workspace, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, timezone, default_agent_id, created_at FROM workspaces ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("workspaceRepo.List: %w", err)
	}
	defer rows.Close()

	var list []*domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		err = rows.Scan(&w.ID, &w.Name, &w.Timezone, &w.DefaultAgentID, &w.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("workspaceRepo.List: scan: %w", err)
		}
		list = append(list, &w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("workspaceRepo.List: rows: %w", err)
	}

	return list, nil
}
