package domain

// Plan is produced fresh for every chat turn and only persisted embedded in a
// message block.
type Plan struct {
	Goal  string     `json:"goal"`
	Steps []PlanStep `json:"steps"`
}

// PlanStep.DependsOn is advisory rendering data; nothing schedules by it.
type PlanStep struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DependsOn   []string `json:"dependsOn,omitempty"`
}

// PlaceholderWorkflowID marks a suggestion that has no automated workflow behind it.
const PlaceholderWorkflowID = "wf-placeholder"

type RemediationSuggestion struct {
	WorkflowID string `json:"workflowId"`
	Title      string `json:"title"`
	Reason     string `json:"reason"`
}
