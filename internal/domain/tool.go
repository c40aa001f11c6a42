package domain

type ToolDescription struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Namespace    string   `json:"namespace"`
	Summary      string   `json:"summary"`
	Example      string   `json:"example"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

// CapabilityContext scopes and attributes a tool invocation.
type CapabilityContext struct {
	WorkspaceID string `json:"workspaceId"`
	ActorID     string `json:"actorId"`
}

// ToolResult is an opaque connector payload plus optional rendering hints.
type ToolResult struct {
	Result   any            `json:"result"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
