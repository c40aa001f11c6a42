package domain

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known message roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

type Session struct {
	ID            string    `json:"id"`
	WorkspaceID   string    `json:"workspaceId"`
	Title         string    `json:"title"`
	ActiveAgentID string    `json:"activeAgentId"`
	Model         string    `json:"model"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Block is a typed renderable attachment on a message (plan snapshot, layout, table).
type Block struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	Data  any    `json:"data"`
}

type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Blocks    []Block        `json:"blocks,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewSession creates a Session with validated required fields and defaults.
func NewSession(workspaceID, title, agentID, model string) (*Session, error) {
	if workspaceID == "" {
		return nil, errors.New("session: workspace ID is required")
	}
	if agentID == "" {
		return nil, errors.New("session: agent ID is required")
	}
	if title == "" {
		title = "New session"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	now := time.Now().UTC()
	return &Session{
		ID:            NewID("sess"),
		WorkspaceID:   workspaceID,
		Title:         title,
		ActiveAgentID: agentID,
		Model:         model,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewMessage builds an unsaved message. The repository assigns nothing; the
// ID and timestamp are fixed here and never change after append.
func NewMessage(sessionID string, role Role, content string) *Message {
	return &Message{
		ID:        NewID("msg"),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// SessionRepository is an append-only message log plus session metadata.
// AppendMessage also refreshes the session's UpdatedAt and must serialize
// concurrent appends to the same session.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*Session, error)
	AppendMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, sessionID string) ([]*Message, error)
}
