package memory_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/store/memory"
)

func newSession(t *testing.T, s *memory.Store) *domain.Session {
	t.Helper()

	sess, err := domain.NewSession("ws-demo", "Growth Sync", "agent-ops", "")
	require.NoError(t, err)
	sess.UpdatedAt = sess.UpdatedAt.Add(-time.Hour)
	require.NoError(t, s.Sessions().Create(context.Background(), sess))
	return sess
}

func TestSessionRepo_AppendMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := memory.New("")
	require.NoError(t, err)

	sess := newSession(t, s)

	first := domain.NewMessage(sess.ID, domain.RoleUser, "hi there")
	second := domain.NewMessage(sess.ID, domain.RoleAssistant, "hello")
	require.NoError(t, s.Sessions().AppendMessage(ctx, first))
	require.NoError(t, s.Sessions().AppendMessage(ctx, second))

	msgs, err := s.Sessions().ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)

	got, err := s.Sessions().GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(sess.UpdatedAt), "append must refresh updatedAt")
}

func TestSessionRepo_AppendUnknownSession(t *testing.T) {
	t.Parallel()

	s, err := memory.New("")
	require.NoError(t, err)

	err = s.Sessions().AppendMessage(context.Background(), domain.NewMessage("sess-missing", domain.RoleUser, "x"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepo_ConcurrentAppends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := memory.New("")
	require.NoError(t, err)
	sess := newSession(t, s)

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			assert.NoError(t, s.Sessions().AppendMessage(ctx, domain.NewMessage(sess.ID, domain.RoleUser, "x")))
		})
	}
	wg.Wait()

	msgs, err := s.Sessions().ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 50)
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := memory.New("")
	require.NoError(t, err)

	a := &domain.Agent{ID: "agent-1", WorkspaceID: "ws-demo", Name: "A", ToolsWhitelist: []string{"stripe.metrics"}}
	require.NoError(t, s.Agents().Save(ctx, a))

	got, err := s.Agents().GetByID(ctx, "agent-1")
	require.NoError(t, err)
	got.ToolsWhitelist[0] = "mutated"

	again, err := s.Agents().GetByID(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"stripe.metrics"}, again.ToolsWhitelist)
}

func TestUISchemaRepo_Latest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := memory.New("")
	require.NoError(t, err)

	_, err = s.UISchemas().Latest(ctx, "ws-demo", domain.DashboardContext)
	require.ErrorIs(t, err, domain.ErrNotFound)

	for v := 1; v <= 3; v++ {
		require.NoError(t, s.UISchemas().Save(ctx, &domain.UISchema{
			ID: domain.NewID("ui"), WorkspaceID: "ws-demo", Context: domain.DashboardContext, Version: v,
		}))
	}
	require.NoError(t, s.UISchemas().Save(ctx, &domain.UISchema{
		ID: domain.NewID("ui"), WorkspaceID: "ws-demo", Context: "other", Version: 9,
	}))

	latest, err := s.UISchemas().Latest(ctx, "ws-demo", domain.DashboardContext)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "store.json")

	s, err := memory.New(path)
	require.NoError(t, err)

	sess := newSession(t, s)
	require.NoError(t, s.Sessions().AppendMessage(ctx, domain.NewMessage(sess.ID, domain.RoleUser, "persist me")))
	require.NoError(t, s.Integrations().Upsert(ctx, &domain.IntegrationConnection{
		ID: "int-1", WorkspaceID: "ws-demo", Provider: "slack", Status: domain.ConnectionConnected, Credentials: "ciphertext",
	}))

	reopened, err := memory.New(path)
	require.NoError(t, err)

	got, err := reopened.Sessions().GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Growth Sync", got.Title)

	msgs, err := reopened.Sessions().ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "persist me", msgs[0].Content)

	conn, err := reopened.Integrations().Get(ctx, "ws-demo", "slack")
	require.NoError(t, err)
	assert.Equal(t, "ciphertext", conn.Credentials)
}

func TestIntegrationRepo_UpsertReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := memory.New("")
	require.NoError(t, err)

	require.NoError(t, s.Integrations().Upsert(ctx, &domain.IntegrationConnection{ID: "int-1", WorkspaceID: "ws-demo", Provider: "notion", Credentials: "a"}))
	require.NoError(t, s.Integrations().Upsert(ctx, &domain.IntegrationConnection{ID: "int-2", WorkspaceID: "ws-demo", Provider: "notion", Credentials: "b"}))

	list, err := s.Integrations().ListByWorkspace(ctx, "ws-demo")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "int-1", list[0].ID)
	assert.Equal(t, "b", list[0].Credentials)
}

func TestWorkflowRepo_Runs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := memory.New("")
	require.NoError(t, err)

	run := &domain.WorkflowRun{ID: "run-1", DefinitionID: "wf-1", WorkspaceID: "ws-demo", Status: domain.WorkflowRunning}
	require.NoError(t, s.Workflows().CreateRun(ctx, run))

	run.Status = domain.WorkflowSucceeded
	require.NoError(t, s.Workflows().UpdateRun(ctx, run))

	runs, err := s.Workflows().ListRuns(ctx, "ws-demo")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.WorkflowSucceeded, runs[0].Status)

	err = s.Workflows().UpdateRun(ctx, &domain.WorkflowRun{ID: "run-missing"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// breakSnapshotDir replaces the snapshot directory with a plain file so every
// later write fails.
func breakSnapshotDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o600))
}

func TestStore_FailedWriteLeavesDataUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := memory.New(filepath.Join(dir, "snapshot.json"))
	require.NoError(t, err)

	sess := newSession(t, s)
	require.NoError(t, s.Sessions().AppendMessage(ctx, domain.NewMessage(sess.ID, domain.RoleUser, "hi there")))
	require.NoError(t, s.Agents().Save(ctx, &domain.Agent{ID: "agent-ops", WorkspaceID: "ws-demo", Name: "Ops"}))
	before, err := s.Sessions().GetByID(ctx, sess.ID)
	require.NoError(t, err)

	breakSnapshotDir(t, dir)

	t.Run("append message", func(t *testing.T) {
		err := s.Sessions().AppendMessage(ctx, domain.NewMessage(sess.ID, domain.RoleAssistant, "lost"))
		require.Error(t, err)

		msgs, err := s.Sessions().ListMessages(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "hi there", msgs[0].Content)

		got, err := s.Sessions().GetByID(ctx, sess.ID)
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.Equal(before.UpdatedAt), "failed append must not refresh updatedAt")
	})

	t.Run("create session", func(t *testing.T) {
		other, err := domain.NewSession("ws-demo", "Incidents", "agent-ops", "")
		require.NoError(t, err)
		require.Error(t, s.Sessions().Create(ctx, other))

		sessions, err := s.Sessions().ListByWorkspace(ctx, "ws-demo")
		require.NoError(t, err)
		assert.Len(t, sessions, 1)
	})

	t.Run("replace agent", func(t *testing.T) {
		require.Error(t, s.Agents().Save(ctx, &domain.Agent{ID: "agent-ops", WorkspaceID: "ws-demo", Name: "Renamed"}))

		got, err := s.Agents().GetByID(ctx, "agent-ops")
		require.NoError(t, err)
		assert.Equal(t, "Ops", got.Name)
	})

	t.Run("create anomaly", func(t *testing.T) {
		require.Error(t, s.Anomalies().Create(ctx, &domain.Anomaly{ID: "anom-x", WorkspaceID: "ws-demo"}))

		anomalies, err := s.Anomalies().ListByWorkspace(ctx, "ws-demo")
		require.NoError(t, err)
		assert.Empty(t, anomalies)
	})
}
