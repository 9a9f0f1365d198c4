package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// LogPublisher writes committed events to the structured log.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	evt := p.logger.Info().
		Str("type", "registry_audit").
		Str("event_id", ev.ID).
		Int64("seq", ev.Seq).
		Str("operation", string(ev.Operation)).
		Str("caller", string(ev.Caller)).
		Str("patient", string(ev.Patient)).
		Time("occurred_at", ev.OccurredAt)
	if ev.RecordID != "" {
		evt = evt.Str("record_id", ev.RecordID)
	}
	if ev.Detail != "" {
		evt = evt.Str("detail", ev.Detail)
	}
	evt.Msg("audit")
	return nil
}

// StreamAdder is the part of *redis.Client the stream publisher needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamPublisher appends committed events to a Redis stream so downstream
// consumers (notification, analytics) can follow registry activity.
type StreamPublisher struct {
	client StreamAdder
	stream string
	maxLen int64
}

// NewStreamPublisher publishes to stream. A positive maxLen lets Redis trim the
// stream to roughly that many entries; zero keeps every entry.
func NewStreamPublisher(client StreamAdder, stream string, maxLen int64) *StreamPublisher {
	if maxLen < 0 {
		maxLen = 0
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]interface{}{
			"operation": string(ev.Operation),
			"patient":   string(ev.Patient),
			"data":      string(data),
			"timestamp": ev.OccurredAt.Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
