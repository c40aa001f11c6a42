package domain

import (
	"context"
	"time"
)

type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// IntegrationConnection holds vault-encrypted credentials for one provider in
// one workspace.
type IntegrationConnection struct {
	ID          string           `json:"id"`
	WorkspaceID string           `json:"workspaceId"`
	Provider    string           `json:"provider"`
	Status      ConnectionStatus `json:"status"`
	Credentials string           `json:"-"`
	Scopes      []string         `json:"scopes,omitempty"`
	ConnectedAt time.Time        `json:"connectedAt"`
}

type IntegrationRepository interface {
	Upsert(ctx context.Context, c *IntegrationConnection) error
	Get(ctx context.Context, workspaceID, provider string) (*IntegrationConnection, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*IntegrationConnection, error)
}
