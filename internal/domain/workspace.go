package domain

import (
	"context"
	"time"
)

type Workspace struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Timezone       string    `json:"timezone"`
	DefaultAgentID string    `json:"defaultAgentId"`
	CreatedAt      time.Time `json:"createdAt"`
}

type WorkspaceRepository interface {
	Create(ctx context.Context, w *Workspace) error
	GetByID(ctx context.Context, id string) (*Workspace, error)
	List(ctx context.Context) ([]*Workspace, error)
}
