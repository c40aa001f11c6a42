// Package ws streams workspace live events to browser clients over
// WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/server/middleware"
)

const defaultPingInterval = 30 * time.Second

// Hub manages WebSocket connections backed by the workspace event bus.
type Hub struct {
	sub            bus.Subscriber
	originPatterns []string
	pingInterval   time.Duration
}

// Option configures a Hub.
type Option func(*Hub)

// WithOriginPatterns allows cross-origin upgrades from the given host
// patterns, e.g. "console.example.com" or "localhost:*".
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.originPatterns = patterns }
}

// WithPingInterval overrides how often idle connections are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// NewHub creates a new WebSocket hub.
func NewHub(sub bus.Subscriber, opts ...Option) *Hub {
	h := &Hub{sub: sub, pingInterval: defaultPingInterval}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeWorkspace relays the events published on "workspace:<workspaceID>"
// as JSON text frames. An optional "types" query parameter holds a comma
// separated allow-list of event types.
func (h *Hub) ServeWorkspace(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")
	if workspaceID == "" {
		http.Error(w, "missing workspace id", http.StatusBadRequest)
		return
	}
	if !middleware.WorkspaceAllowed(r.Context(), workspaceID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	filter := parseTypes(r.URL.Query().Get("types"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		log.Error().Err(err).Msg("ws.Hub.ServeWorkspace: accept")
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their close frames and cancels
	// ctx when they go away.
	ctx := conn.CloseRead(r.Context())
	channel := bus.WorkspaceChannel(workspaceID)

	messages, cleanup, err := h.sub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("ws.Hub.ServeWorkspace: subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case <-ticker.C:
			if err := ping(ctx, conn, h.pingInterval); err != nil {
				log.Debug().Err(err).Msg("ws.Hub.ServeWorkspace: ping")
				return
			}
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if !filter.allows(msg) {
				continue
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("ws.Hub.ServeWorkspace: write")
				return
			}
		}
	}
}

func ping(ctx context.Context, conn *websocket.Conn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.Ping(ctx)
}

// typeFilter is an event type allow-list. A nil filter allows everything.
type typeFilter map[string]struct{}

func parseTypes(raw string) typeFilter {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	f := typeFilter{}
	for t := range strings.SplitSeq(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			f[t] = struct{}{}
		}
	}
	return f
}

func (f typeFilter) allows(msg []byte) bool {
	if f == nil {
		return true
	}
	var evt struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &evt); err != nil {
		return false
	}
	_, ok := f[evt.Type]
	return ok
}
