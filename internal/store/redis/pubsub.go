// Package redis backs the workspace event bus and the OAuth state store with
// Redis, so several API replicas share live events and in-flight OAuth flows.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/opspilot/internal/domain"
)

// DefaultPrefix namespaces every channel and key this package touches.
const DefaultPrefix = "opspilot:"

const subscriberBuffer = 64

// PubSub carries workspace event envelopes over Redis channels. Channel names
// given by callers (see bus.WorkspaceChannel) are namespaced with the prefix.
type PubSub struct {
	client *redis.Client
	prefix string
}

// Option configures a PubSub.
type Option func(*PubSub)

// WithPrefix replaces DefaultPrefix, e.g. to share one Redis between
// deployments.
func WithPrefix(prefix string) Option {
	return func(ps *PubSub) { ps.prefix = prefix }
}

func New(ctx context.Context, addr, password string, db int, opts ...Option) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	ps := &PubSub{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(ps)
	}
	return ps, nil
}

// StateStore returns a state store on the same connection and prefix.
func (ps *PubSub) StateStore() *StateStore {
	return NewStateStore(ps.client, ps.prefix)
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, ps.prefix+channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// Subscribe forwards event envelopes published on channel. Payloads that are
// not envelopes are dropped, as are messages a slow reader has no room for,
// matching the in-process bus.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	name := ps.prefix + channel
	sub := ps.client.Subscribe(ctx, name)

	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, subscriberBuffer)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				payload := []byte(msg.Payload)
				if !isEnvelope(payload) {
					log.Warn().Str("channel", name).Msg("redis.PubSub.Subscribe: dropping non-event payload")
					continue
				}
				select {
				case out <- payload:
				default:
					log.Warn().Str("channel", name).Msg("redis.PubSub.Subscribe: subscriber full, dropping event")
				}
			}
		}
	}()

	var once sync.Once
	cleanup := func() {
		once.Do(func() { _ = sub.Close() })
	}

	return out, cleanup, nil
}

func isEnvelope(payload []byte) bool {
	var env domain.Event
	if err := json.Unmarshal(payload, &env); err != nil {
		return false
	}
	return env.Type != "" && env.WorkspaceID != ""
}
