package middleware

import "context"

type contextKey string

const contextKeyActor contextKey = "actor"

// Actor is the authenticated caller. WorkspaceID is empty for tokens that
// are not scoped to a workspace.
type Actor struct {
	ID          string
	WorkspaceID string
	Role        string
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	v, ok := ctx.Value(contextKeyActor).(Actor)
	return v, ok
}

// ActorID returns the authenticated actor id, or fallback when the request
// is anonymous.
func ActorID(ctx context.Context, fallback string) string {
	if a, ok := ActorFromContext(ctx); ok && a.ID != "" {
		return a.ID
	}
	return fallback
}

// WorkspaceAllowed reports whether the caller may touch workspaceID.
// Anonymous callers and unscoped tokens may reach every workspace.
func WorkspaceAllowed(ctx context.Context, workspaceID string) bool {
	a, ok := ActorFromContext(ctx)
	if !ok || a.WorkspaceID == "" {
		return true
	}
	return a.WorkspaceID == workspaceID
}
