package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/gosuda/opspilot/internal/domain"
	"github.com/gosuda/opspilot/internal/gateway"
)

// GitHub exposes repository and issue tools. It requires a connected workspace.
type GitHub struct {
	creds gateway.CredentialSource
}

func NewGitHub(creds gateway.CredentialSource) *GitHub { return &GitHub{creds: creds} }

func (*GitHub) ID() string        { return "github" }
func (*GitHub) Name() string      { return "GitHub" }
func (*GitHub) Namespace() string { return "github" }

func (*GitHub) Tools() []gateway.Tool {
	return []gateway.Tool{
		{
			ID:      "github.list_repos",
			Name:    "List repositories",
			Summary: "Lists all repositories for the authenticated user",
			Args:    map[string]string{"visibility": "all|public|private"},
		},
		{
			ID:      "github.create_issue",
			Name:    "Create issue",
			Summary: "Creates a new issue in a repository",
			Args:    map[string]string{"owner": "Repository owner", "repo": "Repository name", "title": "Issue title", "body": "Issue body"},
		},
		{
			ID:      "github.list_issues",
			Name:    "List issues",
			Summary: "Lists issues in a repository",
			Args:    map[string]string{"owner": "Repository owner", "repo": "Repository name", "state": "open|closed|all"},
		},
	}
}

func (g *GitHub) Execute(ctx context.Context, cc domain.CapabilityContext, toolID string, args map[string]any) (*domain.ToolResult, error) {
	switch toolID {
	case "github.list_repos", "github.create_issue", "github.list_issues":
	default:
		return nil, unknownTool("github", toolID)
	}

	if _, err := requireConnection(ctx, g.creds, cc.WorkspaceID, "github"); err != nil {
		return nil, err
	}

	owner := argString(args, "owner", "user")
	repo := argString(args, "repo", "example-repo")
	issueURL := fmt.Sprintf("https://github.com/%s/%s/issues/1", owner, repo)
	now := time.Now().UTC().Format(time.RFC3339)

	switch toolID {
	case "github.list_repos":
		repos := []map[string]any{
			{"id": 1, "name": "example-repo", "full_name": "user/example-repo", "private": false, "url": "https://github.com/user/example-repo"},
			{"id": 2, "name": "private-project", "full_name": "user/private-project", "private": true, "url": "https://github.com/user/private-project"},
		}
		if vis := argString(args, "visibility", "all"); vis != "all" {
			filtered := repos[:0]
			for _, r := range repos {
				if r["private"] == (vis == "private") {
					filtered = append(filtered, r)
				}
			}
			repos = filtered
		}
		return &domain.ToolResult{Result: repos, Metadata: templateHint("table")}, nil

	case "github.create_issue":
		return &domain.ToolResult{Result: map[string]any{
			"id":         123,
			"number":     1,
			"title":      argString(args, "title", "Untitled"),
			"body":       argString(args, "body", ""),
			"state":      "open",
			"created_at": now,
			"url":        issueURL,
		}}, nil

	default:
		return &domain.ToolResult{Result: []map[string]any{{
			"id":         123,
			"number":     1,
			"title":      "Example issue",
			"state":      argString(args, "state", "open"),
			"created_at": now,
			"url":        issueURL,
		}}, Metadata: templateHint("table")}, nil
	}
}
