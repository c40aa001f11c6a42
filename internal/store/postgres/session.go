package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/opspilot/internal/domain"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, workspace_id, title, active_agent_id, model, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.WorkspaceID, s.Title, s.ActiveAgentID, s.Model, s.CreatedAt, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("sessionRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: %w", err)
	}

	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session

	err := r.pool.QueryRow(ctx,
		`SELECT id, workspace_id, title, active_agent_id, model, created_at, updated_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.WorkspaceID, &s.Title, &s.ActiveAgentID, &s.Model, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", err)
	}

	return &s, nil
}

func (r *SessionRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, title, active_agent_id, model, created_at, updated_at
		 FROM sessions WHERE workspace_id = $1
		 ORDER BY updated_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ListByWorkspace: %w", err)
	}
	defer rows.Close()

	var list []*domain.Session
	for rows.Next() {
		var s domain.Session
		err = rows.Scan(&s.ID, &s.WorkspaceID, &s.Title, &s.ActiveAgentID, &s.Model, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("sessionRepo.ListByWorkspace: scan: %w", err)
		}
		list = append(list, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sessionRepo.ListByWorkspace: rows: %w", err)
	}

	return list, nil
}

// AppendMessage locks the session row so appends to one session serialize.
func (r *SessionRepo) AppendMessage(ctx context.Context, m *domain.Message) error {
	blocks, err := json.Marshal(m.Blocks)
	if err != nil {
		return fmt.Errorf("sessionRepo.AppendMessage: marshal blocks: %w", err)
	}
	metadata, err := json.Marshal(m.Metadata)
	if err != nil {
		return fmt.Errorf("sessionRepo.AppendMessage: marshal metadata: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var id string
		lockErr := tx.QueryRow(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, m.SessionID).Scan(&id)
		if errors.Is(lockErr, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if lockErr != nil {
			return lockErr
		}

		_, execErr := tx.Exec(ctx,
			`INSERT INTO messages (id, session_id, role, content, blocks, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID, m.SessionID, m.Role, m.Content, blocks, metadata, m.CreatedAt,
		)
		if execErr != nil {
			return execErr
		}

		_, execErr = tx.Exec(ctx, `UPDATE sessions SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), m.SessionID)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("sessionRepo.AppendMessage: %w", err)
	}

	return nil
}

func (r *SessionRepo) ListMessages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, role, content, blocks, metadata, created_at
		 FROM messages WHERE session_id = $1
		 ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ListMessages: %w", err)
	}
	defer rows.Close()

	var list []*domain.Message
	for rows.Next() {
		var (
			m        domain.Message
			blocks   []byte
			metadata []byte
		)
		err = rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &blocks, &metadata, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("sessionRepo.ListMessages: scan: %w", err)
		}
		err = json.Unmarshal(blocks, &m.Blocks)
		if err != nil {
			return nil, fmt.Errorf("sessionRepo.ListMessages: unmarshal blocks: %w", err)
		}
		err = json.Unmarshal(metadata, &m.Metadata)
		if err != nil {
			return nil, fmt.Errorf("sessionRepo.ListMessages: unmarshal metadata: %w", err)
		}
		list = append(list, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sessionRepo.ListMessages: rows: %w", err)
	}

	return list, nil
}
