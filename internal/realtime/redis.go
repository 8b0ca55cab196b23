package realtime

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChannelPrefix prefixes the per-user notification channel.
const ChannelPrefix = "notifications:"

func UserChannel(userID uuid.UUID) string { return ChannelPrefix + userID.String() }

// NewRedis creates a new Redis client
func NewRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Relay forwards every message published on a user channel to that user's
// connections on this instance, so a notification published by any API
// instance reaches sockets held by all of them. It returns when ctx ends.
func Relay(ctx context.Context, rdb *redis.Client, hub *Hub, log *zap.Logger) {
	sub := rdb.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, ChannelPrefix))
			if err != nil {
				log.Warn("relay: bad channel", zap.String("channel", msg.Channel))
				continue
			}
			hub.SendRaw(userID, []byte(msg.Payload))
		}
	}
}
