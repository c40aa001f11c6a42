package agent

import (
	"context"
	"fmt"

	"github.com/gosuda/opspilot/internal/domain"
)

const maxSuggestions = 2

// WorkflowCatalog lists a workspace's workflow definitions.
type WorkflowCatalog interface {
	ListDefinitions(ctx context.Context, workspaceID string) ([]*domain.WorkflowDefinition, error)
}

// Advisor maps anomalies to remediation workflows.
type Advisor struct {
	workflows WorkflowCatalog
}

func NewAdvisor(workflows WorkflowCatalog) *Advisor {
	return &Advisor{workflows: workflows}
}

// Suggest returns one suggestion for each of the first two anomalies, cycling
// through the workspace's workflow definitions in order. Without definitions
// every suggestion is an escalation placeholder.
func (a *Advisor) Suggest(ctx context.Context, workspaceID string, anomalies []*domain.Anomaly) ([]domain.RemediationSuggestion, error) {
	if len(anomalies) == 0 {
		return []domain.RemediationSuggestion{}, nil
	}

	defs, err := a.workflows.ListDefinitions(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("agent.Advisor.Suggest: %w", err)
	}

	n := min(len(anomalies), maxSuggestions)
	out := make([]domain.RemediationSuggestion, 0, n)
	for i, anomaly := range anomalies[:n] {
		if len(defs) == 0 {
			out = append(out, domain.RemediationSuggestion{
				WorkflowID: domain.PlaceholderWorkflowID,
				Title:      "Escalate to operations",
				Reason:     anomaly.Title,
			})
			continue
		}

		def := defs[i%len(defs)]
		out = append(out, domain.RemediationSuggestion{
			WorkflowID: def.ID,
			Title:      "Run " + def.Name,
			Reason:     anomaly.Title,
		})
	}

	return out, nil
}
