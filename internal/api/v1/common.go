// Package v1 registers the /api/v1 REST operations on a huma API.
package v1

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/opspilot/internal/server/middleware"
)

// defaultWorkspaceID is assumed by the workspace-less routes when the caller
// names none.
const defaultWorkspaceID = "ws-demo"

func orDefault(ws string) string {
	if ws == "" {
		return defaultWorkspaceID
	}
	return ws
}

// Envelope wraps every JSON payload as {"data": ...}.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// DataOutput is the common single-body response.
type DataOutput[T any] struct {
	Body Envelope[T]
}

func respond[T any](v T) *DataOutput[T] {
	return &DataOutput[T]{Body: Envelope[T]{Data: v}}
}

// WorkspaceInput is embedded by operations under /workspaces/{workspaceId}.
type WorkspaceInput struct {
	WorkspaceID string `path:"workspaceId" minLength:"1" doc:"Workspace ID"`
}

func checkWorkspace(ctx context.Context, workspaceID string) error {
	if !middleware.WorkspaceAllowed(ctx, workspaceID) {
		return huma.Error403Forbidden("token is not scoped to workspace " + workspaceID)
	}
	return nil
}

func checkWrite(ctx context.Context, workspaceID string) error {
	if err := checkWorkspace(ctx, workspaceID); err != nil {
		return err
	}
	if !middleware.CanWrite(ctx) {
		return huma.Error403Forbidden("insufficient permissions")
	}
	return nil
}

// WorkspaceBody is the optional body of POST operations that only name a
// workspace.
type WorkspaceBody struct {
	WorkspaceID string `json:"workspaceId,omitempty" default:"ws-demo" doc:"Workspace ID"`
}

// bodyOf returns the decoded body, or its zero value when the request sent
// none. Optional bodies are declared as pointers: huma requires every
// non-pointer body.
func bodyOf[T any](b *T) T {
	if b == nil {
		var zero T
		return zero
	}
	return *b
}

// nonNil keeps empty lists serialized as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
