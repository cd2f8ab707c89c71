package chathub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"relaychat/backend/internal/models"
)

const broadcastChannel = "chat:broadcast"

// Room operations carried by an Envelope instead of an event.
const (
	OpLeave = "leave"
	OpClose = "close"
)

// Envelope addresses an event to a room or to a single user. When Op is set
// it carries a subscription change instead: OpLeave removes User from Room,
// OpClose drops Room entirely.
type Envelope struct {
	Op    string       `json:"op,omitempty"`
	Room  string       `json:"room,omitempty"`
	User  string       `json:"user,omitempty"`
	Event models.Event `json:"event"`
}

// Relay fans envelopes out to every process that listens on it.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	Listen(ctx context.Context, deliver func(Envelope)) error
}

// RedisRelay is a Relay over a single Redis pub/sub channel.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisRelay(rdb *redis.Client, log *slog.Logger) *RedisRelay {
	if log == nil {
		log = slog.Default()
	}
	return &RedisRelay{rdb: rdb, channel: broadcastChannel, log: log.With("component", "relay")}
}

func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return r.rdb.Publish(ctx, r.channel, payload).Err()
}

// Listen subscribes and calls deliver for every envelope until ctx is done.
func (r *RedisRelay) Listen(ctx context.Context, deliver func(Envelope)) error {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.log.Info("relay subscribed", "channel", r.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn("dropping malformed envelope", "error", err)
				continue
			}
			deliver(env)
		}
	}
}
