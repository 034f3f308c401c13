// Package broker carries ordered change events between tool invocations.
// Each topic is an append-only, bounded log; subscribers resume from an
// event ID so nothing published after a call to Latest is missed.
package broker

import (
	"context"
	"errors"
)

// DefaultRetention is the number of events kept per topic.
const DefaultRetention = 1024

// ErrStop may be returned by a MessageHandler to end its subscription
// without error.
var ErrStop = errors.New("broker: stop subscription")

// Broker publishes and delivers events per topic.
type Broker interface {
	// Publish appends data to topic and returns the generated event ID.
	Publish(ctx context.Context, topic string, data []byte) (eventID string, err error)

	// Latest returns the ID of the newest retained event in topic, or "" when
	// the topic is empty.
	Latest(ctx context.Context, topic string) (string, error)

	// Subscribe calls handler, in order, for each event published to topic
	// after afterID. An empty afterID delivers every retained event. It
	// blocks until ctx is done, returning ctx's error, or until handler
	// returns an error. ErrStop ends the subscription with a nil error.
	Subscribe(ctx context.Context, topic string, afterID string, handler MessageHandler) error

	// Cleanup removes all retained events of topic.
	Cleanup(ctx context.Context, topic string) error
}

// MessageHandler consumes one event.
type MessageHandler func(ctx context.Context, envelope MessageEnvelope) error

// MessageEnvelope wraps a message with metadata for ordered delivery.
type MessageEnvelope struct {
	// ID is unique and increases monotonically within the topic.
	ID string `json:"id"`
	// Data is the published payload.
	Data []byte `json:"data"`
}
