package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/opspilot/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	pool         *pgxpool.Pool
	workspaces   *WorkspaceRepo
	sessions     *SessionRepo
	agents       *AgentRepo
	metrics      *MetricRepo
	anomalies    *AnomalyRepo
	insights     *InsightRepo
	workflows    *WorkflowRepo
	uiSchemas    *UISchemaRepo
	integrations *IntegrationRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:         pool,
		workspaces:   NewWorkspaceRepo(pool),
		sessions:     NewSessionRepo(pool),
		agents:       NewAgentRepo(pool),
		metrics:      NewMetricRepo(pool),
		anomalies:    NewAnomalyRepo(pool),
		insights:     NewInsightRepo(pool),
		workflows:    NewWorkflowRepo(pool),
		uiSchemas:    NewUISchemaRepo(pool),
		integrations: NewIntegrationRepo(pool),
	}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("postgres.Store.Migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Workspaces() domain.WorkspaceRepository     { return s.workspaces }
func (s *Store) Sessions() domain.SessionRepository         { return s.sessions }
func (s *Store) Agents() domain.AgentRepository             { return s.agents }
func (s *Store) Metrics() domain.MetricRepository           { return s.metrics }
func (s *Store) Anomalies() domain.AnomalyRepository        { return s.anomalies }
func (s *Store) Insights() domain.InsightRepository         { return s.insights }
func (s *Store) Workflows() domain.WorkflowRepository       { return s.workflows }
func (s *Store) UISchemas() domain.UISchemaRepository       { return s.uiSchemas }
func (s *Store) Integrations() domain.IntegrationRepository { return s.integrations }
