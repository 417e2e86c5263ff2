package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/polaris-starter/backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

// ChangeChannel is the redis pub/sub channel carrying entity change events.
const ChangeChannel = "polaris:changes"

// ChangeEvent describes one committed write. Subscribers use it to decide
// which query snapshots to recompute; it carries no row data of its own.
type ChangeEvent struct {
	Entity string `json:"entity"`  // "users" | "user_profiles" | "files"
	ID     string `json:"id"`      // affected row id
	UserID string `json:"user_id"` // owning user, when the entity has one
}

// ChangeHub multiplexes redis pub/sub change events to many SSE subscribers
// without spawning a redis subscription per HTTP request.
type ChangeHub struct {
	redis       *redis.Client
	channelName string

	mu          sync.RWMutex
	subscribers map[chan ChangeEvent]struct{}
}

func NewChangeHub(rdb *redis.Client) *ChangeHub {
	hub := &ChangeHub{
		redis:       rdb,
		channelName: ChangeChannel,
		subscribers: make(map[chan ChangeEvent]struct{}),
	}

	go hub.run()

	return hub
}

func (h *ChangeHub) run() {
	ctx := context.Background()

	for {
		pubsub := h.redis.Subscribe(ctx, h.channelName)
		ch := pubsub.Channel(redis.WithChannelSize(16384))

		for msg := range ch {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Error("ChangeHub: dropping malformed event: %v", err)
				continue
			}
			h.broadcast(event)
		}

		_ = pubsub.Close()

		// Avoid tight loop if Redis connection drops
		time.Sleep(time.Second)
	}
}

// Publish pushes a change event through redis so every API instance's hub
// (including this one) observes it. Cached query results touched by the
// event are dropped first, so subscribers recompute against fresh rows.
func (h *ChangeHub) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if event.Entity == "users" {
		if err := h.redis.Del(ctx, CacheKeyUsers).Err(); err != nil {
			logger.Error("ChangeHub: failed to drop users cache: %v", err)
		}
	}

	return h.redis.Publish(ctx, h.channelName, payload).Err()
}

func (h *ChangeHub) broadcast(event ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber is too slow; drop the oldest event to keep the hub responsive
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- event:
			default:
			}
		}
	}
}

// Subscribe registers a new listener and returns a channel plus cleanup function.
func (h *ChangeHub) Subscribe() (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, 512)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}
