package domain

import "time"

// Bus event types published by the background services.
const (
	EventMetricUpdated      = "signals.metric.updated"
	EventAnomalyDetected    = "signals.anomaly.detected"
	EventWorkflowCompleted  = "workflow.run.completed"
	EventUISchemaGenerated  = "ui.schema.generated"
	EventChatTurnCompleted  = "chat.turn.completed"
	EventIntegrationChanged = "integration.changed"
)

// Event is the envelope published on a workspace channel.
type Event struct {
	Type        string    `json:"type"`
	WorkspaceID string    `json:"workspaceId"`
	Data        any       `json:"data"`
	CreatedAt   time.Time `json:"createdAt"`
}
