package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamKey is the Redis stream for entity change events.
	StreamKey = "stream:entity_changes"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond

	// QueueSize is how many events PublishAsync buffers before dropping.
	QueueSize = 4096
)

// Publisher emits change events.
type Publisher interface {
	// PublishAsync sends the event without blocking the caller.
	PublishAsync(event Event)
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// NewNoop returns a Publisher that discards all events.
func NewNoop() Publisher {
	return NoopPublisher{}
}

// PublishAsync is a no-op.
func (NoopPublisher) PublishAsync(Event) {}

// RedisPublisher appends change events to a Redis stream. Events queued
// with PublishAsync are written by a single goroutine, so the stream keeps
// the order in which they were queued.
type RedisPublisher struct {
	redis  *redis.Client
	stream string
	logger *slog.Logger

	queue  chan Event
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewRedisPublisher creates a publisher writing to StreamKey and starts
// its delivery goroutine. Call Close to drain it.
func NewRedisPublisher(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	p := &RedisPublisher{
		redis:  client,
		stream: StreamKey,
		logger: logger.With("component", "changefeed.publisher"),
		queue:  make(chan Event, QueueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish adds an event to the stream synchronously and returns its stream ID.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"op":      string(event.Op),
			"user":    event.User,
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync queues the event without blocking the caller.
// Events are dropped with a warning when the queue is full or the
// publisher is closed.
func (p *RedisPublisher) PublishAsync(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("change event dropped, publisher closed", "event_id", event.ID, "op", event.Op)
		return
	}

	select {
	case p.queue <- event:
	default:
		p.logger.Warn("change event dropped, queue full", "event_id", event.ID, "op", event.Op)
	}
}

// Close stops accepting events and waits until the queued ones are written
// or ctx is done. It implements server.ShutdownFunc.
func (p *RedisPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain change events: %w", ctx.Err())
	}
}

func (p *RedisPublisher) run() {
	defer close(p.done)

	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		streamID, err := p.Publish(ctx, event)
		cancel()
		if err != nil {
			p.logger.Warn("failed to publish change event",
				"event_id", event.ID,
				"op", event.Op,
				"error", err,
			)
			continue
		}

		p.logger.Debug("change event published",
			"event_id", event.ID,
			"op", event.Op,
			"stream_id", streamID,
		)
	}
}
