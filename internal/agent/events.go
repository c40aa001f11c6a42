package agent

// EventType discriminates ChatStreamEvent payloads.
type EventType string

const (
	EventPlan     EventType = "plan"
	EventInsight  EventType = "insight"
	EventToolCall EventType = "tool_call"
	EventUISchema EventType = "ui_schema"
	EventFinal    EventType = "final"
	EventError    EventType = "error"
)

// ChatStreamEvent is one element of a chat turn's ordered output.
//
//	plan      -> *domain.Plan
//	insight   -> *domain.Insight
//	tool_call -> ToolCallUpdate
//	ui_schema -> *domain.UISchema
//	final     -> FinalPayload
//	error     -> ErrorPayload
type ChatStreamEvent struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// ToolCallStatus is the lifecycle of a single tool invocation within a turn.
type ToolCallStatus string

const (
	ToolCallStarted  ToolCallStatus = "started"
	ToolCallFinished ToolCallStatus = "finished"
	ToolCallError    ToolCallStatus = "error"
)

type ToolCallUpdate struct {
	ToolID   string         `json:"toolId"`
	Status   ToolCallStatus `json:"status"`
	Result   any            `json:"result,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type FinalPayload struct {
	Message string `json:"message"`
}

// ErrorPayload aborts the turn. Per-tool failures use ToolCallUpdate instead.
type ErrorPayload struct {
	Message string `json:"message"`
}
