package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/opspilot/internal/domain"
)

type ListAgentsInput struct {
	WorkspaceInput
}

type SaveAgentInput struct {
	WorkspaceInput
	Body struct {
		ID               string           `json:"id,omitempty" doc:"Agent ID; generated when empty"`
		Name             string           `json:"name" minLength:"1" maxLength:"120" doc:"Display name"`
		Description      string           `json:"description,omitempty"`
		SystemPrompt     string           `json:"systemPrompt,omitempty"`
		ToolsWhitelist   []string         `json:"toolsWhitelist,omitempty" doc:"Tool IDs the agent may call, in call order"`
		DefaultInputRole domain.Role      `json:"defaultInputRole,omitempty" enum:"user,assistant,tool,system"`
		Triggers         []domain.Trigger `json:"triggers,omitempty"`
	}
}

type SaveAgentOutput struct {
	Status int
	Body   Envelope[*domain.Agent]
}

func RegisterAgentRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-agents",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/agents",
		Summary:     "List agents in a workspace",
		Tags:        []string{"Agents"},
	}, func(ctx context.Context, input *ListAgentsInput) (*DataOutput[[]*domain.Agent], error) {
		if err := checkWorkspace(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		agents, err := store.Agents().ListByWorkspace(ctx, input.WorkspaceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list agents", err)
		}

		return respond(nonNil(agents)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "save-agent",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspaceId}/agents",
		Summary:       "Create or replace an agent",
		Tags:          []string{"Agents"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *SaveAgentInput) (*SaveAgentOutput, error) {
		if err := checkWrite(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		a := &domain.Agent{
			ID:               input.Body.ID,
			WorkspaceID:      input.WorkspaceID,
			Name:             input.Body.Name,
			Description:      input.Body.Description,
			SystemPrompt:     input.Body.SystemPrompt,
			ToolsWhitelist:   nonNil(input.Body.ToolsWhitelist),
			DefaultInputRole: input.Body.DefaultInputRole,
			Triggers:         nonNil(input.Body.Triggers),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if a.ID == "" {
			a.ID = domain.NewID("agent")
		}
		if a.DefaultInputRole == "" {
			a.DefaultInputRole = domain.RoleUser
		}

		existing, err := store.Agents().GetByID(ctx, a.ID)
		switch {
		case err == nil:
			if existing.WorkspaceID != input.WorkspaceID {
				return nil, huma.Error409Conflict("agent id belongs to another workspace")
			}
			a.CreatedAt = existing.CreatedAt
		case !errors.Is(err, domain.ErrNotFound):
			return nil, huma.Error500InternalServerError("failed to get agent", err)
		}

		if err := a.Validate(); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		if err := store.Agents().Save(ctx, a); err != nil {
			return nil, huma.Error500InternalServerError("failed to save agent", err)
		}

		return &SaveAgentOutput{Status: http.StatusCreated, Body: Envelope[*domain.Agent]{Data: a}}, nil
	})
}
