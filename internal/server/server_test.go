package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/opspilot/internal/agent"
	"github.com/gosuda/opspilot/internal/auth"
	"github.com/gosuda/opspilot/internal/config"
	"github.com/gosuda/opspilot/internal/experience"
	"github.com/gosuda/opspilot/internal/gateway"
	"github.com/gosuda/opspilot/internal/gateway/connectors"
	"github.com/gosuda/opspilot/internal/integration"
	"github.com/gosuda/opspilot/internal/secrets"
	"github.com/gosuda/opspilot/internal/server"
	"github.com/gosuda/opspilot/internal/signals"
	"github.com/gosuda/opspilot/internal/store/memory"
	"github.com/gosuda/opspilot/internal/store/seed"
	"github.com/gosuda/opspilot/internal/workflow"
)

const testJWTSecret = "server-test-secret-at-least-32-chars"

func testConfig(jwtSecret string) *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: jwtSecret, TokenTTL: time.Hour},
		Server: config.ServerConfig{
			Addr:         ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			CORSOrigins:  []string{"http://localhost:5173"},
			FrontendURL:  "http://localhost:5173",
		},
		Chat:      config.ChatConfig{KeepAlive: time.Second},
		RateLimit: config.RateLimitConfig{RPS: 100, Burst: 100},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st, err := memory.New("")
	require.NoError(t, err)
	_, err = seed.Apply(ctx, st)
	require.NoError(t, err)

	ps := memory.NewPubSub()
	vault, err := secrets.NewVaultFromPassphrase("server test passphrase")
	require.NoError(t, err)

	gw := gateway.New(connectors.NewStripe(), connectors.NewSupabase())
	sig := signals.New(st.Metrics(), st.Anomalies(), ps, signals.Config{Interval: time.Hour})
	ui := experience.New(st.UISchemas(), experience.Sources{
		Metrics:   st.Metrics(),
		Anomalies: st.Anomalies(),
		Workflows: st.Workflows(),
		Insights:  st.Insights(),
	}, ps)
	engine := workflow.NewEngine(st.Workflows(), gw, ps)
	orch := agent.NewOrchestrator(st.Sessions(), st.Agents(), agent.NewPlanComposer(nil),
		agent.NewInsightGenerator(sig), sig, gw, ui, agent.NewAdvisor(engine), ps, agent.Options{})

	srv := server.New(ctx, cfg, server.Deps{
		Store:        st,
		PubSub:       ps,
		Chat:         orch,
		Tools:        gw,
		Signals:      sig,
		Experience:   ui,
		Workflows:    engine,
		Integrations: integration.NewService(st.Integrations(), gw, vault, memory.NewStateStore(), ps),
	})
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequestWithContext(context.Background(), method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, testConfig(""))

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, testConfig(""))

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "opspilot_chat_turn_duration_seconds")
}

func TestOpenAPIDocument(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, testConfig(""))

	rec := do(t, h, http.MethodGet, "/api/v1/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat-stream")
}

func TestAuthDisabled_AllowsAnonymous(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, testConfig(""))

	rec := do(t, h, http.MethodGet, "/api/v1/workspaces/ws-demo/sessions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthEnabled(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, testConfig(testJWTSecret))

	member, err := auth.IssueActorToken(testJWTSecret, "u-1", "ws-demo", "member", time.Hour)
	require.NoError(t, err)
	foreign, err := auth.IssueActorToken(testJWTSecret, "u-2", "ws-other", "admin", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		wantCode int
	}{
		{name: "missing_token", method: http.MethodGet, path: "/api/v1/workspaces/ws-demo/sessions", wantCode: http.StatusUnauthorized},
		{name: "garbage_token", method: http.MethodGet, path: "/api/v1/workspaces/ws-demo/sessions", token: "not-a-jwt", wantCode: http.StatusUnauthorized},
		{name: "member_token", method: http.MethodGet, path: "/api/v1/workspaces/ws-demo/sessions", token: member, wantCode: http.StatusOK},
		{name: "foreign_workspace", method: http.MethodGet, path: "/api/v1/workspaces/ws-demo/sessions", token: foreign, wantCode: http.StatusForbidden},
		{name: "websocket_requires_token", method: http.MethodGet, path: "/ws/workspaces/ws-demo", wantCode: http.StatusUnauthorized},
		// The provider redirect carries no token; it fails on state, not auth.
		{name: "oauth_callback_is_public", method: http.MethodGet, path: "/api/v1/integrations/oauth/github/callback?state=s&code=c", wantCode: http.StatusBadRequest},
		{name: "healthz_is_public", method: http.MethodGet, path: "/healthz", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(t, h, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
