package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/gosuda/opspilot/internal/domain"
)

// storedIntegration keeps the encrypted credentials in the snapshot file,
// which the API-facing JSON shape of the connection hides.
type storedIntegration struct {
	domain.IntegrationConnection
	Credentials string `json:"credentials"`
}

type snapshot struct {
	Workspaces   []*domain.Workspace          `json:"workspaces"`
	Sessions     []*domain.Session            `json:"sessions"`
	Messages     map[string][]*domain.Message `json:"messages"`
	Agents       []*domain.Agent              `json:"agents"`
	Metrics      []*domain.MetricSeries       `json:"metrics"`
	Anomalies    []*domain.Anomaly            `json:"anomalies"`
	Insights     []*domain.Insight            `json:"insights"`
	Workflows    []*domain.WorkflowDefinition `json:"workflows"`
	Runs         []*domain.WorkflowRun        `json:"workflowRuns"`
	UISchemas    []*domain.UISchema           `json:"uiSchemas"`
	Integrations []*storedIntegration         `json:"integrations"`
}

// Store is a goroutine-safe in-memory datastore. When path is set, every
// mutation rewrites a JSON snapshot of the whole dataset.
type Store struct {
	mu   sync.RWMutex
	path string
	data snapshot

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

// New returns a Store. An empty path keeps everything in memory; otherwise an
// existing snapshot at path is loaded.
func New(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: snapshot{Messages: make(map[string][]*domain.Message)},
	}
	s.workspaces = &WorkspaceRepo{s: s}
	s.sessions = &SessionRepo{s: s}
	s.agents = &AgentRepo{s: s}
	s.metrics = &MetricRepo{s: s}
	s.anomalies = &AnomalyRepo{s: s}
	s.insights = &InsightRepo{s: s}
	s.workflows = &WorkflowRepo{s: s}
	s.uiSchemas = &UISchemaRepo{s: s}
	s.integrations = &IntegrationRepo{s: s}

	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory.New: read snapshot: %w", err)
	}

	err = json.Unmarshal(raw, &s.data)
	if err != nil {
		return nil, fmt.Errorf("memory.New: decode snapshot: %w", err)
	}
	if s.data.Messages == nil {
		s.data.Messages = make(map[string][]*domain.Message)
	}
	for _, in := range s.data.Integrations {
		in.IntegrationConnection.Credentials = in.Credentials
	}

	return s, nil
}

// commitLocked writes next to the snapshot file and only then makes it the
// live dataset, so a failed write leaves the store unchanged. next must not
// share mutated backing arrays with s.data. Callers hold s.mu for writing.
func (s *Store) commitLocked(next snapshot) error {
	if err := s.writeSnapshot(&next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *Store) writeSnapshot(data *snapshot) error {
	if s.path == "" {
		return nil
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("memory.Store.persist: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0o750)
	if err != nil {
		return fmt.Errorf("memory.Store.persist: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("memory.Store.persist: temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup after rename

	_, err = tmp.Write(raw)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("memory.Store.persist: write: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		return fmt.Errorf("memory.Store.persist: rename: %w", err)
	}

	return nil
}

func (s *Store) Close() {}

// upsert returns a copy of items with v in place of the first element
// matching same, or appended when none does.
func upsert[T any](items []T, v T, same func(T) bool) []T {
	out := slices.Clone(items)
	if idx := slices.IndexFunc(out, same); idx >= 0 {
		out[idx] = v
		return out
	}
	return append(out, v)
}

// appended returns items plus v without writing into items' backing array.
func appended[T any](items []T, v T) []T {
	return append(slices.Clip(items), v)
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
