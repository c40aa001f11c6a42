// Package bus publishes workspace events on the pub/sub backend (Redis or
// in-process).
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/opspilot/internal/domain"
)

// Publisher abstracts the pub/sub publish operation.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscriber abstracts the pub/sub subscribe operation.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// PubSub is implemented by both pub/sub backends.
type PubSub interface {
	Publisher
	Subscriber
}

// WorkspaceChannel returns the channel carrying a workspace's live events.
func WorkspaceChannel(workspaceID string) string {
	return "workspace:" + workspaceID
}

// Emit publishes an event envelope on the workspace channel. Failures are
// logged, never returned: live events are best effort. A nil publisher is a
// no-op.
func Emit(ctx context.Context, pub Publisher, eventType, workspaceID string, data any) {
	if pub == nil {
		return
	}

	payload, err := json.Marshal(domain.Event{
		Type:        eventType,
		WorkspaceID: workspaceID,
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("bus.Emit: marshal event")
		return
	}

	channel := WorkspaceChannel(workspaceID)
	if err := pub.Publish(ctx, channel, payload); err != nil {
		log.Error().Err(err).Str("channel", channel).Str("type", eventType).Msg("bus.Emit: publish")
	}
}
