package v1_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/opspilot/internal/agent"
	v1 "github.com/gosuda/opspilot/internal/api/v1"
	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/experience"
	"github.com/gosuda/opspilot/internal/gateway"
	"github.com/gosuda/opspilot/internal/gateway/connectors"
	"github.com/gosuda/opspilot/internal/integration"
	"github.com/gosuda/opspilot/internal/server/middleware"
	"github.com/gosuda/opspilot/internal/signals"
	"github.com/gosuda/opspilot/internal/store/memory"
	"github.com/gosuda/opspilot/internal/store/seed"
	"github.com/gosuda/opspilot/internal/workflow"
)

// ---------------------------------------------------------------------------
// Context helpers: inject an actor into context for DoCtx
// ---------------------------------------------------------------------------

func actorCtx(workspaceID, role string) context.Context {
	return middleware.WithActor(context.Background(), middleware.Actor{ID: "u-test", WorkspaceID: workspaceID, Role: role})
}

// ---------------------------------------------------------------------------
// Test application wired on the seeded in-memory store
// ---------------------------------------------------------------------------

type testApp struct {
	api          humatest.TestAPI
	store        *memory.Store
	pubsub       *memory.PubSub
	integrations *mockIntegrations
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	_, api := humatest.New(t)

	st, err := memory.New("")
	require.NoError(t, err)
	_, err = seed.Apply(context.Background(), st)
	require.NoError(t, err)

	ps := memory.NewPubSub()
	t.Cleanup(func() { _ = ps.Close() })

	gw := gateway.New(connectors.NewStripe(), connectors.NewSupabase())
	sig := signals.New(st.Metrics(), st.Anomalies(), ps, signals.Config{Interval: time.Hour})
	ui := experience.New(st.UISchemas(), experience.Sources{
		Metrics:   st.Metrics(),
		Anomalies: st.Anomalies(),
		Workflows: st.Workflows(),
		Insights:  st.Insights(),
	}, ps)
	engine := workflow.NewEngine(st.Workflows(), gw, ps)
	orch := agent.NewOrchestrator(
		st.Sessions(),
		st.Agents(),
		agent.NewPlanComposer(nil),
		agent.NewInsightGenerator(sig),
		sig,
		gw,
		ui,
		agent.NewAdvisor(engine),
		ps,
		agent.Options{PersistOnAbandon: true},
	)
	integrations := &mockIntegrations{}

	v1.RegisterSessionRoutes(api, st)
	v1.RegisterAgentRoutes(api, st)
	v1.RegisterChatRoutes(api, st, orch, ps, 20*time.Millisecond)
	v1.RegisterSignalRoutes(api, gw, sig)
	v1.RegisterOverviewRoutes(api, st, sig, ui)
	v1.RegisterUIRoutes(api, ui)
	v1.RegisterWorkflowRoutes(api, engine)
	v1.RegisterIntegrationRoutes(api, integrations)
	v1.RegisterOAuthCallbackRoute(api, integrations, "http://console.test")

	return &testApp{api: api, store: st, pubsub: ps, integrations: integrations}
}

// decodeData unmarshals the {"data": ...} envelope.
func decodeData[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	return env.Data
}

// parseErrorBody decodes the RFC 9457 problem detail from the response body.
func parseErrorBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

// ---------------------------------------------------------------------------
// Mock Integrations
// ---------------------------------------------------------------------------

type mockIntegrations struct {
	catalogFunc       func(ctx context.Context, workspaceID string) ([]integration.CatalogEntry, error)
	connectFunc       func(ctx context.Context, workspaceID, provider string, creds map[string]string) (*domain.IntegrationConnection, error)
	disconnectFunc    func(ctx context.Context, workspaceID, provider string) error
	statusFunc        func(ctx context.Context, workspaceID, provider string) (integration.Status, error)
	startOAuthFunc    func(ctx context.Context, workspaceID, provider string) (integration.OAuthStart, error)
	completeOAuthFunc func(ctx context.Context, provider, state, code string) (*domain.IntegrationConnection, error)
}

func (m *mockIntegrations) Catalog(ctx context.Context, workspaceID string) ([]integration.CatalogEntry, error) {
	return m.catalogFunc(ctx, workspaceID)
}

func (m *mockIntegrations) Connect(ctx context.Context, workspaceID, provider string, creds map[string]string) (*domain.IntegrationConnection, error) {
	return m.connectFunc(ctx, workspaceID, provider, creds)
}

func (m *mockIntegrations) Disconnect(ctx context.Context, workspaceID, provider string) error {
	return m.disconnectFunc(ctx, workspaceID, provider)
}

func (m *mockIntegrations) Status(ctx context.Context, workspaceID, provider string) (integration.Status, error) {
	return m.statusFunc(ctx, workspaceID, provider)
}

func (m *mockIntegrations) StartOAuth(ctx context.Context, workspaceID, provider string) (integration.OAuthStart, error) {
	return m.startOAuthFunc(ctx, workspaceID, provider)
}

func (m *mockIntegrations) CompleteOAuth(ctx context.Context, provider, state, code string) (*domain.IntegrationConnection, error) {
	return m.completeOAuthFunc(ctx, provider, state, code)
}
