package server

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/opspilot/internal/api/v1"
	"github.com/gosuda/opspilot/internal/api/ws"
)

func registerCallbackRoutes(api huma.API, deps Deps, frontendURL string) {
	v1.RegisterOAuthCallbackRoute(api, deps.Integrations, frontendURL)
}

func registerAPIRoutes(api huma.API, deps Deps, keepAlive time.Duration) {
	v1.RegisterSessionRoutes(api, deps.Store)
	v1.RegisterAgentRoutes(api, deps.Store)
	v1.RegisterChatRoutes(api, deps.Store, deps.Chat, deps.PubSub, keepAlive)
	v1.RegisterSignalRoutes(api, deps.Tools, deps.Signals)
	v1.RegisterOverviewRoutes(api, deps.Store, deps.Signals, deps.Experience)
	v1.RegisterUIRoutes(api, deps.Experience)
	v1.RegisterWorkflowRoutes(api, deps.Workflows)
	v1.RegisterIntegrationRoutes(api, deps.Integrations)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/workspaces/{workspaceID}", hub.ServeWorkspace)
}
