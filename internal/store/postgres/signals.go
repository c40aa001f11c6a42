package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/opspilot/internal/domain"
)

type MetricRepo struct {
	pool *pgxpool.Pool
}

func NewMetricRepo(pool *pgxpool.Pool) *MetricRepo {
	return &MetricRepo{pool: pool}
}

func (r *MetricRepo) Save(ctx context.Context, m *domain.MetricSeries) error {
	points, err := json.Marshal(m.Points)
	if err != nil {
		return fmt.Errorf("metricRepo.Save: marshal points: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO metric_series (id, workspace_id, name, unit, points)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, unit = EXCLUDED.unit, points = EXCLUDED.points`,
		m.ID, m.WorkspaceID, m.Name, m.Unit, points,
	)
	if err != nil {
		return fmt.Errorf("metricRepo.Save: %w", err)
	}

	return nil
}

func (r *MetricRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.MetricSeries, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, name, unit, points FROM metric_series WHERE workspace_id = $1 ORDER BY seq`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("metricRepo.ListByWorkspace: %w", err)
	}
	defer rows.Close()

	var list []*domain.MetricSeries
	for rows.Next() {
		var (
			m      domain.MetricSeries
			points []byte
		)
		err = rows.Scan(&m.ID, &m.WorkspaceID, &m.Name, &m.Unit, &points)
		if err != nil {
			return nil, fmt.Errorf("metricRepo.ListByWorkspace: scan: %w", err)
		}
		err = json.Unmarshal(points, &m.Points)
		if err != nil {
			return nil, fmt.Errorf("metricRepo.ListByWorkspace: unmarshal points: %w", err)
		}
		list = append(list, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("metricRepo.ListByWorkspace: rows: %w", err)
	}

	return list, nil
}

type AnomalyRepo struct {
	pool *pgxpool.Pool
}

func NewAnomalyRepo(pool *pgxpool.Pool) *AnomalyRepo {
	return &AnomalyRepo{pool: pool}
}

func (r *AnomalyRepo) Create(ctx context.Context, a *domain.Anomaly) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO anomalies (id, workspace_id, metric_id, title, description, severity, detected_at, baseline, observed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.WorkspaceID, a.MetricID, a.Title, a.Description, a.Severity, a.DetectedAt, a.Baseline, a.Observed,
	)
	if err != nil {
		return fmt.Errorf("anomalyRepo.Create: %w", err)
	}

	return nil
}

func (r *AnomalyRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Anomaly, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, metric_id, title, description, severity, detected_at, baseline, observed
		 FROM anomalies WHERE workspace_id = $1 ORDER BY seq`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("anomalyRepo.ListByWorkspace: %w", err)
	}
	defer rows.Close()

	var list []*domain.Anomaly
	for rows.Next() {
		var a domain.Anomaly
		err = rows.Scan(&a.ID, &a.WorkspaceID, &a.MetricID, &a.Title, &a.Description, &a.Severity, &a.DetectedAt, &a.Baseline, &a.Observed)
		if err != nil {
			return nil, fmt.Errorf("anomalyRepo.ListByWorkspace: scan: %w", err)
		}
		list = append(list, &a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("anomalyRepo.ListByWorkspace: rows: %w", err)
	}

	return list, nil
}

type InsightRepo struct {
	pool *pgxpool.Pool
}

func NewInsightRepo(pool *pgxpool.Pool) *InsightRepo {
	return &InsightRepo{pool: pool}
}

func (r *InsightRepo) Create(ctx context.Context, i *domain.Insight) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO insights (id, workspace_id, text, category, created_at) VALUES ($1, $2, $3, $4, $5)`,
		i.ID, i.WorkspaceID, i.Text, i.Category, i.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insightRepo.Create: %w", err)
	}

	return nil
}

func (r *InsightRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.Insight, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, workspace_id, text, category, created_at FROM insights WHERE workspace_id = $1 ORDER BY seq`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("insightRepo.ListByWorkspace: %w", err)
	}
	defer rows.Close()

	var list []*domain.Insight
	for rows.Next() {
		var i domain.Insight
		err = rows.Scan(&i.ID, &i.WorkspaceID, &i.Text, &i.Category, &i.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insightRepo.ListByWorkspace: scan: %w", err)
		}
		list = append(list, &i)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("insightRepo.ListByWorkspace: rows: %w", err)
	}

	return list, nil
}
