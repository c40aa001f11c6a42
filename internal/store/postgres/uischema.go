package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/opspilot/internal/domain"
)

type UISchemaRepo struct {
	pool *pgxpool.Pool
}

func NewUISchemaRepo(pool *pgxpool.Pool) *UISchemaRepo {
	return &UISchemaRepo{pool: pool}
}

func (r *UISchemaRepo) Save(ctx context.Context, s *domain.UISchema) error {
	layout, err := json.Marshal(s.Layout)
	if err != nil {
		return fmt.Errorf("uiSchemaRepo.Save: marshal layout: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO ui_schemas (id, workspace_id, context, version, layout, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET layout = EXCLUDED.layout`,
		s.ID, s.WorkspaceID, s.Context, s.Version, layout, s.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("uiSchemaRepo.Save: version %d: %w", s.Version, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("uiSchemaRepo.Save: %w", err)
	}

	return nil
}

func (r *UISchemaRepo) Latest(ctx context.Context, workspaceID, layoutContext string) (*domain.UISchema, error) {
	var (
		s      domain.UISchema
		layout []byte
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, context, version, layout, created_at
		 FROM ui_schemas WHERE workspace_id = $1 AND context = $2
		 ORDER BY version DESC LIMIT 1`,
		workspaceID, layoutContext,
	).Scan(&s.ID, &s.WorkspaceID, &s.Context, &s.Version, &layout, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("uiSchemaRepo.Latest: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("uiSchemaRepo.Latest: %w", err)
	}

	err = json.Unmarshal(layout, &s.Layout)
	if err != nil {
		return nil, fmt.Errorf("uiSchemaRepo.Latest: unmarshal layout: %w", err)
	}

	return &s, nil
}
