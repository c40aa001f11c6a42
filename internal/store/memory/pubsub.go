package memory

import (
	"context"
	"sync"
)

// PubSub is the in-process counterpart of the Redis pub/sub used when no
// Redis address is configured. Slow subscribers drop messages rather than
// block publishers.
type PubSub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan []byte
}

func NewPubSub() *PubSub {
	return &PubSub{subs: make(map[string]map[int]chan []byte)}
}

func (ps *PubSub) Publish(_ context.Context, channel string, payload []byte) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, ch := range ps.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ps.mu.Lock()
	id := ps.nextID
	ps.nextID++
	ch := make(chan []byte, 64)
	if ps.subs[channel] == nil {
		ps.subs[channel] = make(map[int]chan []byte)
	}
	ps.subs[channel][id] = ch
	ps.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			ps.mu.Lock()
			delete(ps.subs[channel], id)
			if len(ps.subs[channel]) == 0 {
				delete(ps.subs, channel)
			}
			ps.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		cleanup()
	}()

	return ch, cleanup, nil
}

func (ps *PubSub) Close() error { return nil }
