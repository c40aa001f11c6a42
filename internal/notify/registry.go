package notify

import "sync"

// Registry maps workspaces to the channel their alerts are posted to. A
// non-empty fallback channel serves every workspace without its own entry.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]string
	fallback string
}

// NewRegistry creates a Registry with the given fallback channel.
func NewRegistry(fallback string) *Registry {
	return &Registry{
		channels: make(map[string]string),
		fallback: fallback,
	}
}

// Register routes a workspace's alerts to channel, replacing any earlier
// route.
func (r *Registry) Register(workspaceID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[workspaceID] = channel
}

// Get returns the channel for the workspace, or false if alerts for it are
// not routed anywhere.
func (r *Registry) Get(workspaceID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ch, ok := r.channels[workspaceID]; ok && ch != "" {
		return ch, true
	}
	if r.fallback != "" {
		return r.fallback, true
	}
	return "", false
}
