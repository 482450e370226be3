package ingest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigraph-ai/sigraph/session"
)

// Item is the wire envelope for a queued provenance event.
type Item struct {
	// ID uniquely identifies this submission; acks reference it.
	ID string `json:"id"`

	// SubmittedAt is when the producer enqueued the item (Unix millis).
	SubmittedAt int64 `json:"submitted_at"`

	// Event is the provenance event to upsert.
	Event session.Event `json:"event"`
}

// AckStatus reports the outcome of processing a queued item.
type AckStatus string

const (
	AckOK    AckStatus = "ok"
	AckError AckStatus = "error"
)

// Ack is published after an item has been processed. A failed item is safe
// to re-enqueue: upserts are idempotent.
type Ack struct {
	ItemID      string    `json:"item_id"`
	Status      AckStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	WorkerID    string    `json:"worker_id"`
	CompletedAt int64     `json:"completed_at"`
}

// Queue defines the interface for the Redis-backed event intake.
type Queue interface {
	// Push adds an item to the end of a queue (LPUSH).
	Push(ctx context.Context, queue string, item Item) error

	// Pop removes and returns an item from the front of a queue (BRPOP).
	// Blocks until an item is available or the context is cancelled.
	Pop(ctx context.Context, queue string) (*Item, error)

	// Publish sends an ack to a pub/sub channel.
	Publish(ctx context.Context, channel string, ack Ack) error

	// Subscribe creates a subscription to a pub/sub channel.
	// Returns a channel that receives acks until the context is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan Ack, error)

	// Heartbeat refreshes the health key for a worker with a TTL.
	Heartbeat(ctx context.Context, workerID string) error

	// Close closes the Redis connection.
	Close() error
}

// EventQueueName returns the intake queue name for a unit.
func EventQueueName(unitID string) string {
	return fmt.Sprintf("sigraph:events:%s", unitID)
}

// AckChannelName returns the pub/sub channel carrying acks for a unit.
func AckChannelName(unitID string) string {
	return fmt.Sprintf("sigraph:acks:%s", unitID)
}

// heartbeatTTL is how long a worker health key survives without refresh.
const heartbeatTTL = 30 * time.Second

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// RedisQueue implements Queue using go-redis/v9.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a new Redis intake queue with the given options.
func NewRedisQueue(opts RedisOptions) (*RedisQueue, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}

	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisQueue{client: client}, nil
}

// Push adds an item to the end of a queue.
func (q *RedisQueue) Push(ctx context.Context, queue string, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	if err := q.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}

	return nil
}

// Pop removes and returns an item from the front of a queue.
// Blocks until an item is available or the context is cancelled.
func (q *RedisQueue) Pop(ctx context.Context, queue string) (*Item, error) {
	// BRPOP returns [queue_name, value] or empty on timeout
	result, err := q.client.BRPop(ctx, 0, queue).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue %s: %w", queue, err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var item Item
	if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}

	return &item, nil
}

// Publish sends an ack to a pub/sub channel.
func (q *RedisQueue) Publish(ctx context.Context, channel string, ack Ack) error {
	data, err := json.Marshal(ack)
	if err != nil {
		return fmt.Errorf("failed to marshal ack: %w", err)
	}

	if err := q.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}

	return nil
}

// Subscribe creates a subscription to a pub/sub channel.
func (q *RedisQueue) Subscribe(ctx context.Context, channel string) (<-chan Ack, error) {
	pubsub := q.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	ackChan := make(chan Ack)

	go func() {
		defer close(ackChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ack Ack
				if err := json.Unmarshal([]byte(msg.Payload), &ack); err != nil {
					// Skip malformed payloads and keep draining
					continue
				}

				select {
				case ackChan <- ack:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ackChan, nil
}

// Heartbeat refreshes the health key for a worker.
func (q *RedisQueue) Heartbeat(ctx context.Context, workerID string) error {
	healthKey := fmt.Sprintf("sigraph:worker:%s:health", workerID)
	if err := q.client.Set(ctx, healthKey, "ok", heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for worker %s: %w", workerID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
