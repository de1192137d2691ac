// Package stream fans turno events out to connected HTTP listeners.
// The hub subscribes to the Redis channel fed by the notification
// emitter and forwards every event to the currently connected clients.
// Delivery is at-most-once: there is no queueing, no replay, and no
// ordering guarantee relative to the HTTP responses that triggered the
// events.
package stream

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// clientBuffer is the per-client backlog.  A client that cannot drain
// this many events is considered stuck and skipped rather than allowed
// to block the broadcast loop.
const clientBuffer = 16

// Hub tracks connected listeners and broadcasts raw event payloads to
// them.  It is transport-agnostic: the SSE handler subscribes a channel
// and writes whatever arrives.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// Subscribe registers a new listener and returns its event channel.
// The caller must Unsubscribe when done.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Broadcast delivers one event to every connected listener.  Sends are
// non-blocking: a listener with a full buffer misses the event, which
// is acceptable under the at-most-once contract.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Listeners reports the number of connected clients.
func (h *Hub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run subscribes to the Redis channel and pumps messages into the hub
// until ctx is cancelled.  Subscription failures are retried with a
// flat backoff so a Redis restart does not kill the stream forever.
func (h *Hub) Run(ctx context.Context, rdb *redis.Client, channel string) {
	for {
		if err := h.pump(ctx, rdb, channel); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("stream: subscription to %s ended: %v; reconnecting", channel, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (h *Hub) pump(ctx context.Context, rdb *redis.Client, channel string) error {
	sub := rdb.Subscribe(ctx, channel)
	defer func() { _ = sub.Close() }()

	// Fail fast if the subscription could not be established.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.Channel():
			if !ok {
				return errors.New("pubsub channel closed")
			}
			h.Broadcast([]byte(msg.Payload))
		}
	}
}
