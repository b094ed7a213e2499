package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLists is an in-memory ListClient. Index 0 is the LEFT end.
type fakeLists struct {
	mu       sync.Mutex
	lists    map[string][]string
	failPush bool
}

func newFakeLists() *fakeLists {
	return &fakeLists{lists: make(map[string][]string)}
}

func (f *fakeLists) LPush(ctx context.Context, key string, values ...any) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if f.failPush {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	for _, v := range values {
		f.lists[key] = append([]string{v.(string)}, f.lists[key]...)
	}
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeLists) move(ctx context.Context, src, dst, srcpos, destpos string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringCmd(ctx)
	l := f.lists[src]
	if len(l) == 0 {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	var v string
	if srcpos == "LEFT" {
		v, f.lists[src] = l[0], l[1:]
	} else {
		v, f.lists[src] = l[len(l)-1], l[:len(l)-1]
	}
	if destpos == "LEFT" {
		f.lists[dst] = append([]string{v}, f.lists[dst]...)
	} else {
		f.lists[dst] = append(f.lists[dst], v)
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeLists) BLMove(ctx context.Context, src, dst, srcpos, destpos string, _ time.Duration) *redis.StringCmd {
	return f.move(ctx, src, dst, srcpos, destpos)
}

func (f *fakeLists) LMove(ctx context.Context, src, dst, srcpos, destpos string) *redis.StringCmd {
	return f.move(ctx, src, dst, srcpos, destpos)
}

func (f *fakeLists) LRem(ctx context.Context, key string, count int64, value any) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	l := f.lists[key]
	removed := int64(0)
	out := l[:0:0]
	for _, v := range l {
		if removed < count && v == value.(string) {
			removed++
			continue
		}
		out = append(out, v)
	}
	f.lists[key] = out
	cmd.SetVal(removed)
	return cmd
}

func (f *fakeLists) LLen(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeLists) len(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists[key])
}

func testQueueConfig() config.QueueConfig {
	return config.QueueConfig{
		Key:             "q",
		ProcessingKey:   "q:processing",
		DeadLetterKey:   "q:dlq",
		BatchSize:       10,
		PollTimeout:     time.Millisecond,
		MaxReceiveCount: 3,
	}
}

func message() invoicing.QueueMessage {
	return invoicing.QueueMessage{InvoiceID: uuid.NewString(), UserID: uuid.NewString(), ReceptionID: uuid.NewString()}
}

func TestRedisQueue_PublishReceiveAck(t *testing.T) {
	lists := newFakeLists()
	q := NewRedisQueue(lists, testQueueConfig(), nil)
	ctx := context.Background()

	first, second := message(), message()
	require.NoError(t, q.Publish(ctx, first))
	require.NoError(t, q.Publish(ctx, second))

	deliveries, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.Equal(t, 0, lists.len("q"))
	assert.Equal(t, 2, lists.len("q:processing"))

	var got invoicing.QueueMessage
	require.NoError(t, json.Unmarshal([]byte(deliveries[0].Body), &got))
	assert.Equal(t, first, got)
	assert.Equal(t, 1, deliveries[0].ReceiveCount)
	assert.NotEmpty(t, deliveries[0].MessageID)

	for _, d := range deliveries {
		require.NoError(t, q.Ack(ctx, d))
	}
	assert.Equal(t, 0, lists.len("q:processing"))

	t.Run("idle queue yields nothing", func(t *testing.T) {
		deliveries, err := q.Receive(ctx, 10)
		assert.NoError(t, err)
		assert.Empty(t, deliveries)
	})
}

func TestRedisQueue_ReceiveRespectsBatchSize(t *testing.T) {
	lists := newFakeLists()
	q := NewRedisQueue(lists, testQueueConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Publish(ctx, message()))
	}
	deliveries, err := q.Receive(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, deliveries, 2)
	assert.Equal(t, 3, lists.len("q"))
}

func TestRedisQueue_NackRedeliversThenDeadLetters(t *testing.T) {
	lists := newFakeLists()
	q := NewRedisQueue(lists, testQueueConfig(), nil)
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, message()))

	for attempt := 1; attempt <= 3; attempt++ {
		deliveries, err := q.Receive(ctx, 1)
		require.NoError(t, err)
		require.Len(t, deliveries, 1, "attempt %d", attempt)
		assert.Equal(t, attempt, deliveries[0].ReceiveCount)
		require.NoError(t, q.Nack(ctx, deliveries[0]))
		assert.Equal(t, 0, lists.len("q:processing"))
	}

	assert.Equal(t, 0, lists.len("q"))
	assert.Equal(t, 1, lists.len("q:dlq"))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Ready: 0, InFlight: 0, DeadLetter: 1}, stats)
}

func TestRedisQueue_Recover(t *testing.T) {
	lists := newFakeLists()
	q := NewRedisQueue(lists, testQueueConfig(), nil)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, message()))
	require.NoError(t, q.Publish(ctx, message()))
	_, err := q.Receive(ctx, 2)
	require.NoError(t, err)

	n, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, lists.len("q"))
	assert.Equal(t, 0, lists.len("q:processing"))
}

func TestRedisQueue_PublishError(t *testing.T) {
	lists := newFakeLists()
	lists.failPush = true
	q := NewRedisQueue(lists, testQueueConfig(), nil)

	err := q.Publish(context.Background(), message())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestConsumer_Poll(t *testing.T) {
	ctx := context.Background()

	t.Run("successful batch is acknowledged", func(t *testing.T) {
		lists := newFakeLists()
		q := NewRedisQueue(lists, testQueueConfig(), nil)
		msg := message()
		require.NoError(t, q.Publish(ctx, msg))

		var got []json.RawMessage
		c := NewConsumer(q, func(_ context.Context, records []json.RawMessage) error {
			got = records
			return nil
		}, 10, nil)

		n, err := c.Poll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.Len(t, got, 1)

		var record struct {
			Body string `json:"body"`
		}
		require.NoError(t, json.Unmarshal(got[0], &record))
		var body invoicing.QueueMessage
		require.NoError(t, json.Unmarshal([]byte(record.Body), &body))
		assert.Equal(t, msg, body)

		assert.Equal(t, 0, lists.len("q"))
		assert.Equal(t, 0, lists.len("q:processing"))
	})

	t.Run("failed batch is returned to the queue", func(t *testing.T) {
		lists := newFakeLists()
		q := NewRedisQueue(lists, testQueueConfig(), nil)
		require.NoError(t, q.Publish(ctx, message()))
		require.NoError(t, q.Publish(ctx, message()))

		c := NewConsumer(q, func(context.Context, []json.RawMessage) error {
			return errors.New("erp unreachable")
		}, 10, nil)

		n, err := c.Poll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, lists.len("q"))
		assert.Equal(t, 0, lists.len("q:processing"))
	})

	t.Run("idle poll does not call the handler", func(t *testing.T) {
		q := NewRedisQueue(newFakeLists(), testQueueConfig(), nil)
		called := false
		c := NewConsumer(q, func(context.Context, []json.RawMessage) error {
			called = true
			return nil
		}, 10, nil)

		n, err := c.Poll(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.False(t, called)
	})
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	q := NewRedisQueue(newFakeLists(), testQueueConfig(), nil)
	c := NewConsumer(q, func(context.Context, []json.RawMessage) error { return nil }, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
