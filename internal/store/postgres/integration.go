package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/opspilot/internal/domain"
)

type IntegrationRepo struct {
	pool *pgxpool.Pool
}

func NewIntegrationRepo(pool *pgxpool.Pool) *IntegrationRepo {
	return &IntegrationRepo{pool: pool}
}

// Upsert keeps one connection per (workspace, provider); the original ID survives reconnects.
func (r *IntegrationRepo) Upsert(ctx context.Context, c *domain.IntegrationConnection) error {
	scopes := c.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO integration_connections (id, workspace_id, provider, status, credentials, scopes, connected_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (workspace_id, provider) DO UPDATE SET
		   status = EXCLUDED.status, credentials = EXCLUDED.credentials,
		   scopes = EXCLUDED.scopes, connected_at = EXCLUDED.connected_at`,
		c.ID, c.WorkspaceID, c.Provider, c.Status, c.Credentials, scopes, c.ConnectedAt,
	)
	if err != nil {
		return fmt.Errorf("integrationRepo.Upsert: %w", err)
	}

	return nil
}

func (r *IntegrationRepo) Get(ctx context.Context, workspaceID, provider string) (*domain.IntegrationConnection, error) {
	var c domain.IntegrationConnection

	err := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, provider, status, credentials, scopes, connected_at
		 FROM integration_connections WHERE workspace_id = $1 AND provider = $2`,
		workspaceID, provider,
	).Scan(&c.ID, &c.WorkspaceID, &c.Provider, &c.Status, &c.Credentials, &c.Scopes, &c.ConnectedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("integrationRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("integrationRepo.Get: %w", err)
	}

	return &c, nil
}

func (r *IntegrationRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.IntegrationConnection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, provider, status, credentials, scopes, connected_at
		 FROM integration_connections WHERE workspace_id = $1 ORDER BY provider`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("integrationRepo.ListByWorkspace: %w", err)
	}
	defer rows.Close()

	var list []*domain.IntegrationConnection
	for rows.Next() {
		var c domain.IntegrationConnection
		err = rows.Scan(&c.ID, &c.WorkspaceID, &c.Provider, &c.Status, &c.Credentials, &c.Scopes, &c.ConnectedAt)
		if err != nil {
			return nil, fmt.Errorf("integrationRepo.ListByWorkspace: scan: %w", err)
		}
		list = append(list, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("integrationRepo.ListByWorkspace: rows: %w", err)
	}

	return list, nil
}
