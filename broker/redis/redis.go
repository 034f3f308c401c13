package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ggoodman/mcp-stdio-go/broker"
)

// DefaultKeyPrefix is prepended to stream keys when Config.KeyPrefix is empty.
const DefaultKeyPrefix = "mcp:broker:"

// Broker is a Redis Streams-based implementation of the broker.Broker
// interface. Processes sharing a Redis server observe each other's events.
type Broker struct {
	client    redis.UniversalClient
	keyPrefix string
	retention int64
	block     time.Duration
}

// Config contains configuration options for the Redis broker.
type Config struct {
	// Client is the Redis client to use. It is required and is not closed by
	// the broker.
	Client redis.UniversalClient
	// KeyPrefix is prepended to all Redis keys used by the broker.
	KeyPrefix string
	// Retention bounds the length of each stream. Defaults to
	// broker.DefaultRetention.
	Retention int64
	// Block is how long a single XREAD waits before the context is
	// re-checked. Defaults to one second.
	Block time.Duration
}

// New creates a new Redis-based broker instance.
func New(config Config) (*Broker, error) {
	if config.Client == nil {
		return nil, errors.New("redis broker: client is required")
	}
	b := &Broker{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
		retention: config.Retention,
		block:     config.Block,
	}
	if b.keyPrefix == "" {
		b.keyPrefix = DefaultKeyPrefix
	}
	if b.retention <= 0 {
		b.retention = broker.DefaultRetention
	}
	if b.block <= 0 {
		b.block = time.Second
	}
	return b, nil
}

// Publish creates an envelope with a generated event ID and publishes it to
// the topic's stream.
func (b *Broker) Publish(ctx context.Context, topic string, data []byte) (string, error) {
	streamKey := b.streamKey(topic)

	eventID, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		MaxLen: b.retention,
		Values: map[string]any{"data": data},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish message to stream %s: %w", streamKey, err)
	}
	return eventID, nil
}

// Latest returns the newest entry ID of the topic's stream.
func (b *Broker) Latest(ctx context.Context, topic string) (string, error) {
	streamKey := b.streamKey(topic)

	msgs, err := b.client.XRevRangeN(ctx, streamKey, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read stream %s: %w", streamKey, err)
	}
	if len(msgs) == 0 {
		return "", nil
	}
	return msgs[0].ID, nil
}

// Subscribe reads the topic's stream after afterID, calling handler for
// each message.
func (b *Broker) Subscribe(ctx context.Context, topic string, afterID string, handler broker.MessageHandler) error {
	streamKey := b.streamKey(topic)

	startID := afterID
	if startID == "" {
		startID = "0-0"
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// No consumer group: every subscriber sees every message.
		streams, err := b.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{streamKey, startID},
			Count:   16,
			Block:   b.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("failed to read from stream %s: %w", streamKey, err)
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				startID = message.ID
				data, ok := message.Values["data"].(string)
				if !ok {
					// Skip malformed entries.
					continue
				}
				err := handler(ctx, broker.MessageEnvelope{ID: message.ID, Data: []byte(data)})
				if errors.Is(err, broker.ErrStop) {
					return nil
				}
				if err != nil {
					return err
				}
			}
		}
	}
}

// Cleanup removes the topic's stream.
func (b *Broker) Cleanup(ctx context.Context, topic string) error {
	streamKey := b.streamKey(topic)

	if err := b.client.Del(ctx, streamKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to cleanup topic %s: %w", topic, err)
	}
	return nil
}

func (b *Broker) streamKey(topic string) string {
	return b.keyPrefix + "stream:" + topic
}

var _ broker.Broker = (*Broker)(nil)
