package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/opspilot/internal/agent"
	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/server/middleware"
)

// DefaultKeepAlive is the comment interval on live event streams.
const DefaultKeepAlive = 30 * time.Second

// liveEventNames maps bus events to the SSE event names the console listens
// for. Other bus events are not forwarded.
//
//nolint:gochecknoglobals // static lookup
var liveEventNames = map[string]string{
	domain.EventAnomalyDetected:   "anomaly",
	domain.EventWorkflowCompleted: "workflow",
	domain.EventUISchemaGenerated: "ui_update",
}

type ChatStreamBody struct {
	WorkspaceID string `json:"workspaceId,omitempty" doc:"Defaults to the session's workspace"`
	Message     string `json:"message,omitempty" doc:"User message; blank subscribes to live workspace events"`
	ActorID     string `json:"actorId,omitempty" doc:"Actor for anonymous requests"`
}

type ChatStreamInput struct {
	SessionID string `path:"sessionId" minLength:"1" doc:"Session ID"`
	Body      *ChatStreamBody
}

func RegisterChatRoutes(api huma.API, store DataStore, chat ChatRunner, sub bus.Subscriber, keepAlive time.Duration) {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}

	huma.Register(api, huma.Operation{
		OperationID: "chat-stream",
		Method:      http.MethodPost,
		Path:        "/chat/{sessionId}/stream",
		Summary:     "Run one chat turn as a server-sent event stream",
		Description: "Emits plan, insight, tool_call, ui_schema and final events in that order. " +
			"A blank message instead streams live workspace events until the client disconnects.",
		Tags: []string{"Chat"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Event stream",
				Content:     map[string]*huma.MediaType{"text/event-stream": {}},
			},
		},
	}, func(ctx context.Context, input *ChatStreamInput) (*huma.StreamResponse, error) {
		session, err := getSession(ctx, store, input.SessionID)
		if err != nil {
			return nil, err
		}

		body := bodyOf(input.Body)
		workspaceID := body.WorkspaceID
		if workspaceID == "" {
			workspaceID = session.WorkspaceID
		}
		if err := checkWorkspace(ctx, workspaceID); err != nil {
			return nil, err
		}

		message := strings.TrimSpace(body.Message)
		if message == "" {
			return &huma.StreamResponse{Body: func(hctx huma.Context) {
				streamLive(hctx, sub, workspaceID, keepAlive)
			}}, nil
		}

		if err := checkWrite(ctx, workspaceID); err != nil {
			return nil, err
		}

		turn, err := chat.RunChat(ctx, agent.ChatRequest{
			WorkspaceID: workspaceID,
			SessionID:   session.ID,
			Message:     message,
			ActorID:     middleware.ActorID(ctx, body.ActorID),
		})
		if err != nil {
			switch {
			case errors.Is(err, agent.ErrSessionNotFound):
				return nil, huma.Error404NotFound("session not found")
			case errors.Is(err, agent.ErrAgentNotFound):
				return nil, huma.Error404NotFound("active agent not found")
			default:
				return nil, huma.Error500InternalServerError("failed to start chat turn", err)
			}
		}

		return &huma.StreamResponse{Body: func(hctx huma.Context) {
			streamTurn(hctx, turn)
		}}, nil
	})
}

// streamTurn writes the turn's events until it ends or the client goes away.
// Leaving the range early abandons the turn.
func streamTurn(hctx huma.Context, turn *agent.Turn) {
	sse := newSSEWriter(hctx)

	for ev := range turn.Events(hctx.Context()) {
		err := sse.event(string(ev.Type), ev.Data)
		if err == nil {
			continue
		}

		var encErr *encodeError
		if errors.As(err, &encErr) {
			log.Error().Err(err).Str("event", string(ev.Type)).Msg("v1.streamTurn: aborting turn")
			_ = sse.event(string(agent.EventError), agent.ErrorPayload{Message: err.Error()})
		} else {
			log.Warn().Err(err).Msg("v1.streamTurn: client went away")
		}
		return
	}
}

func streamLive(hctx huma.Context, sub bus.Subscriber, workspaceID string, keepAlive time.Duration) {
	ctx := hctx.Context()
	sse := newSSEWriter(hctx)

	ch, unsubscribe, err := sub.Subscribe(ctx, bus.WorkspaceChannel(workspaceID))
	if err != nil {
		log.Error().Err(err).Str("workspace_id", workspaceID).Msg("v1.streamLive: subscribe")
		_ = sse.event(string(agent.EventError), agent.ErrorPayload{Message: "live events unavailable"})
		return
	}
	defer unsubscribe()

	if err := sse.comment(); err != nil {
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sse.comment(); err != nil {
				return
			}
		case raw, ok := <-ch:
			if !ok {
				return
			}

			var evt struct {
				Type string          `json:"type"`
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(raw, &evt); err != nil {
				log.Warn().Err(err).Msg("v1.streamLive: malformed bus event")
				continue
			}
			name, ok := liveEventNames[evt.Type]
			if !ok {
				continue
			}
			if err := sse.event(name, evt.Data); err != nil {
				return
			}
		}
	}
}
