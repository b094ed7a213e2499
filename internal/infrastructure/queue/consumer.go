package queue

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// BatchHandler processes one batch of records. A non-nil error asks for the
// whole batch to be redelivered.
type BatchHandler func(ctx context.Context, records []json.RawMessage) error

// Consumer feeds batches from a RedisQueue into a BatchHandler
type Consumer struct {
	queue     *RedisQueue
	handler   BatchHandler
	batchSize int
	backoff   time.Duration
	logger    *zap.Logger
}

// NewConsumer creates a consumer reading up to batchSize messages at a time
func NewConsumer(q *RedisQueue, handler BatchHandler, batchSize int, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Consumer{
		queue:     q,
		handler:   handler,
		batchSize: batchSize,
		backoff:   time.Second,
		logger:    logger.Named("consumer"),
	}
}

// Run consumes until ctx is cancelled
func (c *Consumer) Run(ctx context.Context) {
	if n, err := c.queue.Recover(ctx); err != nil {
		c.logger.Error("Failed to recover in-flight messages", zap.Error(err))
	} else if n > 0 {
		c.logger.Info("Recovered in-flight messages", zap.Int("count", n))
	}

	c.logger.Info("Queue consumer started", zap.Int("batch_size", c.batchSize))
	for ctx.Err() == nil {
		if _, err := c.Poll(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("Queue receive failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
		}
	}
	c.logger.Info("Queue consumer stopped")
}

// Poll receives and handles at most one batch. It returns the batch size.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	deliveries, err := c.queue.Receive(ctx, c.batchSize)
	if len(deliveries) == 0 {
		return 0, err
	}

	records := make([]json.RawMessage, len(deliveries))
	for i, d := range deliveries {
		records[i] = d.Record()
	}

	// A cancelled parent must not abandon a batch halfway through its acks
	handleCtx := context.WithoutCancel(ctx)
	if herr := c.handler(handleCtx, records); herr != nil {
		c.logger.Warn("Batch failed, returning messages to the queue",
			zap.Int("batch_size", len(deliveries)),
			zap.Error(herr),
		)
		for _, d := range deliveries {
			if nerr := c.queue.Nack(handleCtx, d); nerr != nil {
				c.logger.Error("Failed to return message", zap.String("message_id", d.MessageID), zap.Error(nerr))
			}
		}
		return len(deliveries), err
	}

	for _, d := range deliveries {
		if aerr := c.queue.Ack(handleCtx, d); aerr != nil {
			c.logger.Error("Failed to ack message", zap.String("message_id", d.MessageID), zap.Error(aerr))
		}
	}
	return len(deliveries), err
}
