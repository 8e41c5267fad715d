package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultBatchSize is the max events read per XREAD call.
	DefaultBatchSize = 100

	// DefaultBlockTimeout is how long to block waiting for new events.
	DefaultBlockTimeout = 5 * time.Second

	// StartNewest starts following after the last event in the stream.
	StartNewest = "$"

	// StartOldest replays the retained stream from the beginning.
	StartOldest = "0-0"
)

// ErrMalformedMessage is returned by DecodeMessage for stream entries that
// do not carry a valid event payload.
var ErrMalformedMessage = errors.New("malformed change event")

// HandlerFunc is called once per decoded event, in stream order.
type HandlerFunc func(ctx context.Context, streamID string, event Event) error

// Subscriber follows the change stream with XREAD.
type Subscriber struct {
	redis        *redis.Client
	stream       string
	logger       *slog.Logger
	lastID       string
	batchSize    int
	blockTimeout time.Duration

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewSubscriber creates a subscriber that starts reading after startID.
// An empty startID means StartNewest.
func NewSubscriber(client *redis.Client, logger *slog.Logger, startID string) *Subscriber {
	if startID == "" {
		startID = StartNewest
	}
	return &Subscriber{
		redis:        client,
		stream:       StreamKey,
		logger:       logger.With("component", "changefeed.subscriber"),
		lastID:       startID,
		batchSize:    DefaultBatchSize,
		blockTimeout: DefaultBlockTimeout,
	}
}

// SetBatchSize overrides the default batch size.
func (s *Subscriber) SetBatchSize(size int) {
	if size > 0 {
		s.batchSize = size
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (s *Subscriber) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.blockTimeout = timeout
	}
}

// LastID returns the stream ID of the last delivered or skipped entry, or
// the start position if nothing has been read yet.
func (s *Subscriber) LastID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

func (s *Subscriber) setLastID(id string) {
	s.mu.Lock()
	s.lastID = id
	s.mu.Unlock()
}

// resolveStart pins StartNewest to the ID of the newest entry so that
// events added between two reads are not skipped.
func (s *Subscriber) resolveStart(ctx context.Context) error {
	if s.LastID() != StartNewest {
		return nil
	}

	msgs, err := s.redis.XRevRangeN(ctx, s.stream, "+", "-", 1).Result()
	if err != nil {
		return fmt.Errorf("xrevrange: %w", err)
	}

	id := StartOldest
	if len(msgs) > 0 {
		id = msgs[0].ID
	}
	s.setLastID(id)
	return nil
}

// Run reads events and passes them to handle until ctx is cancelled or
// handle returns an error. Malformed entries are logged and skipped.
func (s *Subscriber) Run(ctx context.Context, handle HandlerFunc) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("subscriber already started")
	}
	s.started = true
	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer close(s.done)

	s.logger.Info("change feed subscriber started", "from", s.LastID())

	for {
		if ctx.Err() != nil {
			s.logger.Info("change feed subscriber stopping")
			return nil
		}

		messages, err := s.readBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			s.logger.Error("read error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range messages {
			event, err := DecodeMessage(msg)
			if err != nil {
				s.logger.Warn("skipping malformed message", "message_id", msg.ID, "error", err)
				s.setLastID(msg.ID)
				continue
			}
			if err := handle(ctx, msg.ID, event); err != nil {
				return fmt.Errorf("handle %s: %w", msg.ID, err)
			}
			s.setLastID(msg.ID)
		}
	}
}

// Shutdown stops Run and waits for it to return.
func (s *Subscriber) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("change feed subscriber shutdown timed out")
		return ctx.Err()
	}
}

func (s *Subscriber) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	if err := s.resolveStart(ctx); err != nil {
		return nil, err
	}

	streams, err := s.redis.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.stream, s.LastID()},
		Count:   int64(s.batchSize),
		Block:   s.blockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xread: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}

	return streams[0].Messages, nil
}

// DecodeMessage extracts the Event carried by a stream entry.
func DecodeMessage(msg redis.XMessage) (Event, error) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return Event{}, fmt.Errorf("%w: payload field missing or not a string", ErrMalformedMessage)
	}

	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if event.Op == "" || event.User == "" {
		return Event{}, fmt.Errorf("%w: op and user are required", ErrMalformedMessage)
	}

	return event, nil
}
