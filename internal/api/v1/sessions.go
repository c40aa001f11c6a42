package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/opspilot/internal/domain"
)

type ListSessionsInput struct {
	WorkspaceInput
}

type CreateSessionBody struct {
	Title   string `json:"title,omitempty" maxLength:"200" doc:"Session title"`
	AgentID string `json:"agentId,omitempty" doc:"Active agent; defaults to the workspace default agent"`
	Model   string `json:"model,omitempty" doc:"Model label"`
	Message string `json:"message,omitempty" doc:"Optional opening user message"`
}

type CreateSessionInput struct {
	WorkspaceInput
	Body *CreateSessionBody
}

type CreateSessionOutput struct {
	Status int
	Body   Envelope[*domain.Session]
}

type SessionInput struct {
	SessionID string `path:"sessionId" minLength:"1" doc:"Session ID"`
}

func RegisterSessionRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/sessions",
		Summary:     "List chat sessions in a workspace",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *ListSessionsInput) (*DataOutput[[]*domain.Session], error) {
		if err := checkWorkspace(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		sessions, err := store.Sessions().ListByWorkspace(ctx, input.WorkspaceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list sessions", err)
		}

		return respond(nonNil(sessions)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspaceId}/sessions",
		Summary:       "Create a chat session",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
		if err := checkWrite(ctx, input.WorkspaceID); err != nil {
			return nil, err
		}

		ws, err := store.Workspaces().GetByID(ctx, input.WorkspaceID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("workspace not found")
			}
			return nil, huma.Error500InternalServerError("failed to get workspace", err)
		}

		body := bodyOf(input.Body)
		agentID := body.AgentID
		if agentID == "" {
			agentID = ws.DefaultAgentID
		}
		if _, err := store.Agents().GetByID(ctx, agentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error400BadRequest("unknown agent: " + agentID)
			}
			return nil, huma.Error500InternalServerError("failed to get agent", err)
		}

		session, err := domain.NewSession(ws.ID, body.Title, agentID, body.Model)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}

		if err := store.Sessions().Create(ctx, session); err != nil {
			return nil, huma.Error500InternalServerError("failed to create session", err)
		}

		if msg := strings.TrimSpace(body.Message); msg != "" {
			err = store.Sessions().AppendMessage(ctx, domain.NewMessage(session.ID, domain.RoleUser, msg))
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to append opening message", err)
			}
		}

		return &CreateSessionOutput{Status: http.StatusCreated, Body: Envelope[*domain.Session]{Data: session}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionId}",
		Summary:     "Get a chat session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *SessionInput) (*DataOutput[*domain.Session], error) {
		session, err := getSession(ctx, store, input.SessionID)
		if err != nil {
			return nil, err
		}
		return respond(session), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-session-messages",
		Method:      http.MethodGet,
		Path:        "/sessions/{sessionId}/messages",
		Summary:     "List a session's messages in append order",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *SessionInput) (*DataOutput[[]*domain.Message], error) {
		if _, err := getSession(ctx, store, input.SessionID); err != nil {
			return nil, err
		}

		msgs, err := store.Sessions().ListMessages(ctx, input.SessionID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list messages", err)
		}

		return respond(nonNil(msgs)), nil
	})
}

// getSession loads a session and enforces workspace scoping.
func getSession(ctx context.Context, store DataStore, id string) (*domain.Session, error) {
	session, err := store.Sessions().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("session not found")
		}
		return nil, huma.Error500InternalServerError("failed to get session", err)
	}
	if err := checkWorkspace(ctx, session.WorkspaceID); err != nil {
		return nil, err
	}
	return session, nil
}
