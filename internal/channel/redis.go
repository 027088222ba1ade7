package channel

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisChannel carries duel events over Redis pub/sub so both clients see the
// same stream regardless of which server instance their socket landed on.
type RedisChannel struct {
	rdb *redis.Client
}

func NewRedisChannel(rdb *redis.Client) *RedisChannel {
	return &RedisChannel{rdb: rdb}
}

func (r *RedisChannel) Publish(ctx context.Context, channelID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, channelID, data).Err()
}

func (r *RedisChannel) Subscribe(ctx context.Context, channelID string) (<-chan Event, func()) {
	pubsub := r.rdb.Subscribe(ctx, channelID)
	in := pubsub.Channel()
	out := make(chan Event, 64)

	go func() {
		defer close(out)
		for msg := range in {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[CHANNEL] invalid event payload on %s: %v", channelID, err)
				continue
			}
			select {
			case out <- ev:
			default:
				log.Printf("[CHANNEL] subscriber buffer full on %s, dropping %s", channelID, ev.Type)
			}
		}
	}()

	stop := func() {
		pubsub.Close()
	}
	return out, stop
}
