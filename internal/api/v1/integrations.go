package v1

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/integration"
)

type IntegrationCatalogInput struct {
	WorkspaceID string `query:"workspaceId" default:"ws-demo" doc:"Workspace ID"`
}

type IntegrationStatusInput struct {
	IntegrationID string `path:"integrationId" minLength:"1" doc:"Provider namespace, e.g. slack"`
	WorkspaceID   string `query:"workspaceId" default:"ws-demo" doc:"Workspace ID"`
}

type ConnectIntegrationInput struct {
	IntegrationID string `path:"integrationId" minLength:"1" doc:"Provider namespace, e.g. slack"`
	Body          struct {
		WorkspaceID string            `json:"workspaceId,omitempty" default:"ws-demo"`
		Credentials map[string]string `json:"credentials" doc:"Provider credentials such as api_key or bot_token"`
	}
}

type ConnectResult struct {
	Success    bool                          `json:"success"`
	Message    string                        `json:"message"`
	Connection *domain.IntegrationConnection `json:"connection,omitempty"`
}

type DisconnectIntegrationInput struct {
	IntegrationID string `path:"integrationId" minLength:"1"`
	Body          *WorkspaceBody
}

type StartOAuthInput struct {
	IntegrationID string `path:"integrationId" minLength:"1"`
	Body          *WorkspaceBody
}

type OAuthCallbackInput struct {
	IntegrationID string `path:"integrationId" minLength:"1"`
	State         string `query:"state"`
	Code          string `query:"code"`
	Error         string `query:"error"`
}

type OAuthCallbackOutput struct {
	Status   int
	Location string `header:"Location"`
}

func RegisterIntegrationRoutes(api huma.API, svc Integrations) {
	huma.Register(api, huma.Operation{
		OperationID: "integration-catalog",
		Method:      http.MethodGet,
		Path:        "/integrations/catalog",
		Summary:     "List providers with their tools and connection state",
		Tags:        []string{"Integrations"},
	}, func(ctx context.Context, input *IntegrationCatalogInput) (*DataOutput[[]integration.CatalogEntry], error) {
		ws := orDefault(input.WorkspaceID)
		if err := checkWorkspace(ctx, ws); err != nil {
			return nil, err
		}

		entries, err := svc.Catalog(ctx, ws)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to build catalog", err)
		}
		return respond(entries), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "connect-integration",
		Method:      http.MethodPost,
		Path:        "/integrations/{integrationId}/connect",
		Summary:     "Connect a provider with manual credentials",
		Tags:        []string{"Integrations"},
	}, func(ctx context.Context, input *ConnectIntegrationInput) (*DataOutput[ConnectResult], error) {
		ws := orDefault(input.Body.WorkspaceID)
		if err := checkWrite(ctx, ws); err != nil {
			return nil, err
		}

		conn, err := svc.Connect(ctx, ws, input.IntegrationID, input.Body.Credentials)
		if err != nil {
			if errors.Is(err, integration.ErrCredentialsRequired) {
				return nil, huma.Error400BadRequest("credentials are required to connect an integration")
			}
			return nil, huma.Error500InternalServerError("failed to connect integration", err)
		}

		return respond(ConnectResult{
			Success:    true,
			Message:    integration.DisplayName(input.IntegrationID) + " connected successfully",
			Connection: conn,
		}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "disconnect-integration",
		Method:      http.MethodPost,
		Path:        "/integrations/{integrationId}/disconnect",
		Summary:     "Disconnect a provider",
		Tags:        []string{"Integrations"},
	}, func(ctx context.Context, input *DisconnectIntegrationInput) (*DataOutput[ConnectResult], error) {
		ws := orDefault(bodyOf(input.Body).WorkspaceID)
		if err := checkWrite(ctx, ws); err != nil {
			return nil, err
		}

		if err := svc.Disconnect(ctx, ws, input.IntegrationID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("integration is not connected")
			}
			return nil, huma.Error500InternalServerError("failed to disconnect integration", err)
		}

		return respond(ConnectResult{
			Success: true,
			Message: integration.DisplayName(input.IntegrationID) + " disconnected successfully",
		}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "integration-status",
		Method:      http.MethodGet,
		Path:        "/integrations/{integrationId}/status",
		Summary:     "Get a provider's connection state",
		Tags:        []string{"Integrations"},
	}, func(ctx context.Context, input *IntegrationStatusInput) (*DataOutput[integration.Status], error) {
		ws := orDefault(input.WorkspaceID)
		if err := checkWorkspace(ctx, ws); err != nil {
			return nil, err
		}

		st, err := svc.Status(ctx, ws, input.IntegrationID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to get status", err)
		}
		return respond(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-integration-oauth",
		Method:      http.MethodPost,
		Path:        "/integrations/{integrationId}/oauth/start",
		Summary:     "Begin an OAuth authorization-code flow",
		Tags:        []string{"Integrations"},
	}, func(ctx context.Context, input *StartOAuthInput) (*DataOutput[integration.OAuthStart], error) {
		ws := orDefault(bodyOf(input.Body).WorkspaceID)
		if err := checkWrite(ctx, ws); err != nil {
			return nil, err
		}

		start, err := svc.StartOAuth(ctx, ws, input.IntegrationID)
		if err != nil {
			if errors.Is(err, integration.ErrOAuthNotConfigured) {
				return nil, huma.Error404NotFound("oauth not configured for this integration")
			}
			return nil, huma.Error500InternalServerError("failed to start oauth", err)
		}
		return respond(start), nil
	})
}

// RegisterOAuthCallbackRoute registers the provider redirect target. It is
// mounted outside the authenticated group: the browser arrives from the
// provider without an actor token and the single-use state stands in for it.
func RegisterOAuthCallbackRoute(api huma.API, svc Integrations, frontendURL string) {
	huma.Register(api, huma.Operation{
		OperationID:   "integration-oauth-callback",
		Method:        http.MethodGet,
		Path:          "/integrations/oauth/{integrationId}/callback",
		Summary:       "OAuth redirect target; bounces back to the console",
		Tags:          []string{"Integrations"},
		DefaultStatus: http.StatusFound,
	}, func(ctx context.Context, input *OAuthCallbackInput) (*OAuthCallbackOutput, error) {
		redirect := func(reason string) *OAuthCallbackOutput {
			return &OAuthCallbackOutput{
				Status:   http.StatusFound,
				Location: connectionsURL(frontendURL, input.IntegrationID, reason),
			}
		}

		if input.Error != "" {
			return redirect(input.Error), nil
		}

		_, err := svc.CompleteOAuth(ctx, input.IntegrationID, input.State, input.Code)
		switch {
		case err == nil:
			return redirect(""), nil
		case errors.Is(err, integration.ErrOAuthNotConfigured):
			return nil, huma.Error400BadRequest("unsupported integration")
		case errors.Is(err, integration.ErrInvalidState):
			return nil, huma.Error400BadRequest("invalid or expired state")
		default:
			log.Error().Err(err).Str("integration", input.IntegrationID).Msg("v1.oauthCallback: token exchange failed")
			return redirect("token_exchange_failed"), nil
		}
	})
}

// connectionsURL points the browser back at the console's connections page.
// An empty reason reports success.
func connectionsURL(base, integrationID, reason string) string {
	q := url.Values{}
	q.Set("integration", integrationID)
	if reason == "" {
		q.Set("status", "connected")
	} else {
		q.Set("status", "error")
		q.Set("reason", reason)
	}
	return base + "/connections?" + q.Encode()
}
