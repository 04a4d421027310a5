package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verimeet/verimeet/pkg/logging"
)

// Channel is the Redis pub/sub channel events are published on.
const Channel = "verimeet.events"

const publishTimeout = 5 * time.Second

// RedisPublisher publishes events to a Redis channel. Publish failures are
// logged and dropped; event delivery is best effort and must never stall
// transcript processing.
type RedisPublisher struct {
	client *redis.Client
	log    logging.Logger
}

// NewRedisPublisher creates a publisher for the given Redis address.
func NewRedisPublisher(addr, password string, db int, log logging.Logger) *RedisPublisher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPublisher{client: client, log: log}
}

// Ping verifies connectivity to Redis.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Publish serializes the event and publishes it on the events channel.
func (p *RedisPublisher) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal event", logging.Err(err), logging.F("type", event.Type))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		p.log.Warn("publish event", logging.Err(err), logging.F("type", event.Type))
	}
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

var _ Publisher = (*RedisPublisher)(nil)
