// Package queue implements the durable invoice work queue on Redis lists.
//
// Messages are LPUSHed onto the main list. A consumer atomically moves them
// onto a processing list, hands them to the worker and removes them once the
// batch was handled. A failed batch is pushed back with an incremented
// receive count, or parked on the dead-letter list once the count exceeds
// the configured maximum. Delivery is at least once and unordered.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ invoicingapp.MessagePublisher = (*RedisQueue)(nil)

// ListClient is the subset of the Redis client the queue needs.
// *redis.Client satisfies it.
type ListClient interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	BLMove(ctx context.Context, source, destination, srcpos, destpos string, timeout time.Duration) *redis.StringCmd
	LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd
	LRem(ctx context.Context, key string, count int64, value any) *redis.IntCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Envelope wraps a message body with delivery metadata
type Envelope struct {
	MessageID    string    `json:"messageId"`
	Body         string    `json:"body"`
	ReceiveCount int       `json:"receiveCount"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
}

// Delivery is one received message. Raw is the exact list element, needed to
// remove it from the processing list.
type Delivery struct {
	Envelope
	raw string
}

// Record renders the delivery in the batch record shape the worker accepts
func (d Delivery) Record() json.RawMessage {
	b, _ := json.Marshal(struct {
		MessageID    string `json:"messageId"`
		Body         string `json:"body"`
		ReceiveCount int    `json:"receiveCount"`
	}{d.MessageID, d.Body, d.ReceiveCount})
	return b
}

// Stats reports list lengths
type Stats struct {
	Ready      int64 `json:"ready"`
	InFlight   int64 `json:"in_flight"`
	DeadLetter int64 `json:"dead_letter"`
}

// RedisQueue is both publisher and consumer of invoice messages
type RedisQueue struct {
	client          ListClient
	key             string
	processingKey   string
	deadLetterKey   string
	pollTimeout     time.Duration
	maxReceiveCount int
	logger          *zap.Logger
	now             func() time.Time
}

// NewRedisQueue creates a queue over client using the queue configuration
func NewRedisQueue(client ListClient, cfg config.QueueConfig, logger *zap.Logger) *RedisQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{
		client:          client,
		key:             cfg.Key,
		processingKey:   cfg.ProcessingKey,
		deadLetterKey:   cfg.DeadLetterKey,
		pollTimeout:     cfg.PollTimeout,
		maxReceiveCount: cfg.MaxReceiveCount,
		logger:          logger.Named("queue"),
		now:             time.Now,
	}
}

// NewRedisClient opens and pings a Redis connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Publish enqueues one invoice message
func (q *RedisQueue) Publish(ctx context.Context, msg invoicing.QueueMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode queue message: %w", err)
	}
	env := Envelope{
		MessageID:  uuid.NewString(),
		Body:       string(body),
		EnqueuedAt: q.now().UTC(),
	}
	return q.push(ctx, q.key, env)
}

func (q *RedisQueue) push(ctx context.Context, key string, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := q.client.LPush(ctx, key, string(raw)).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", key, err)
	}
	return nil
}

// Receive waits up to the poll timeout for a first message, then takes up
// to max-1 more without blocking. An empty slice means the queue was idle.
func (q *RedisQueue) Receive(ctx context.Context, max int) ([]Delivery, error) {
	if max <= 0 {
		max = 1
	}

	first, err := q.client.BLMove(ctx, q.key, q.processingKey, "RIGHT", "LEFT", q.pollTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to receive: %w", err)
	}

	raws := []string{first}
	for len(raws) < max {
		next, err := q.client.LMove(ctx, q.key, q.processingKey, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			// Already moved messages stay in the processing list for Recover
			return q.decode(raws), fmt.Errorf("failed to receive: %w", err)
		}
		raws = append(raws, next)
	}
	return q.decode(raws), nil
}

func (q *RedisQueue) decode(raws []string) []Delivery {
	out := make([]Delivery, 0, len(raws))
	for _, raw := range raws {
		var env Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			// Foreign payloads are passed through as the body itself
			env = Envelope{Body: raw}
		}
		env.ReceiveCount++
		out = append(out, Delivery{Envelope: env, raw: raw})
	}
	return out
}

// Ack removes a handled delivery from the processing list
func (q *RedisQueue) Ack(ctx context.Context, d Delivery) error {
	if err := q.client.LRem(ctx, q.processingKey, 1, d.raw).Err(); err != nil {
		return fmt.Errorf("failed to ack %s: %w", d.MessageID, err)
	}
	return nil
}

// Nack returns a delivery for redelivery, or dead-letters it once its
// receive count reaches the maximum. The copy is pushed before the in-flight
// element is removed so a crash in between duplicates rather than loses it.
func (q *RedisQueue) Nack(ctx context.Context, d Delivery) error {
	target := q.key
	if q.maxReceiveCount > 0 && d.ReceiveCount >= q.maxReceiveCount {
		target = q.deadLetterKey
		q.logger.Warn("Moving message to dead-letter list",
			zap.String("message_id", d.MessageID),
			zap.Int("receive_count", d.ReceiveCount),
		)
	}
	if err := q.push(ctx, target, d.Envelope); err != nil {
		return err
	}
	return q.Ack(ctx, d)
}

// Recover moves messages left in the processing list by a crashed consumer
// back onto the main list. It must run before the consumer starts.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processingKey, q.key, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("failed to recover in-flight messages: %w", err)
		}
		n++
	}
}

// Stats returns the current list lengths
func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error
	if s.Ready, err = q.client.LLen(ctx, q.key).Result(); err != nil {
		return s, err
	}
	if s.InFlight, err = q.client.LLen(ctx, q.processingKey).Result(); err != nil {
		return s, err
	}
	if s.DeadLetter, err = q.client.LLen(ctx, q.deadLetterKey).Result(); err != nil {
		return s, err
	}
	return s, nil
}
