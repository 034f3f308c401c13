// Package memory provides an in-process implementation of broker.Broker.
// State is local, so it only fans out within a single server process.
package memory

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"

	"github.com/ggoodman/mcp-stdio-go/broker"
)

// Broker implements broker.Broker with per-topic slices and a wake-up
// channel that is closed on every publish.
type Broker struct {
	mu        sync.Mutex
	topics    map[string]*topic
	retention int
	seq       uint64
}

type topic struct {
	events  []event
	changed chan struct{}
}

type event struct {
	seq  uint64
	data []byte
}

// Option configures a Broker.
type Option func(*Broker)

// WithRetention bounds the number of events kept per topic.
func WithRetention(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.retention = n
		}
	}
}

// New creates a new memory-based broker instance.
func New(opts ...Option) *Broker {
	b := &Broker{
		topics:    make(map[string]*topic),
		retention: broker.DefaultRetention,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Broker) topicLocked(name string) *topic {
	t, ok := b.topics[name]
	if !ok {
		t = &topic{changed: make(chan struct{})}
		b.topics[name] = t
	}
	return t
}

// Publish implements broker.Broker.Publish.
func (b *Broker) Publish(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	t := b.topicLocked(name)
	t.events = append(t.events, event{seq: b.seq, data: slices.Clone(data)})
	if over := len(t.events) - b.retention; over > 0 {
		t.events = slices.Delete(t.events, 0, over)
	}
	close(t.changed)
	t.changed = make(chan struct{})

	return strconv.FormatUint(b.seq, 10), nil
}

// Latest implements broker.Broker.Latest.
func (b *Broker) Latest(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[name]
	if !ok || len(t.events) == 0 {
		return "", nil
	}
	return strconv.FormatUint(t.events[len(t.events)-1].seq, 10), nil
}

// Subscribe implements broker.Broker.Subscribe.
func (b *Broker) Subscribe(ctx context.Context, name string, afterID string, handler broker.MessageHandler) error {
	var after uint64
	if afterID != "" {
		n, err := strconv.ParseUint(afterID, 10, 64)
		if err != nil {
			return errors.New("memory broker: malformed event id " + strconv.Quote(afterID))
		}
		after = n
	}

	for {
		b.mu.Lock()
		t := b.topicLocked(name)
		var pending []event
		for _, ev := range t.events {
			if ev.seq > after {
				pending = append(pending, ev)
			}
		}
		changed := t.changed
		b.mu.Unlock()

		for _, ev := range pending {
			env := broker.MessageEnvelope{ID: strconv.FormatUint(ev.seq, 10), Data: ev.data}
			if err := handler(ctx, env); err != nil {
				if errors.Is(err, broker.ErrStop) {
					return nil
				}
				return err
			}
			after = ev.seq
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Cleanup implements broker.Broker.Cleanup. Waiting subscribers stay
// subscribed and receive later events.
func (b *Broker) Cleanup(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.topics[name]; ok {
		t.events = nil
	}
	return nil
}

var _ broker.Broker = (*Broker)(nil)
