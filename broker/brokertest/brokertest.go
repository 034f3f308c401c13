// Package brokertest is a conformance suite for broker.Broker
// implementations.
package brokertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ggoodman/mcp-stdio-go/broker"
)

// BrokerFactory is a function that creates a new broker instance for testing.
type BrokerFactory func(t *testing.T) broker.Broker

// RunBrokerTests runs the complete broker test suite against the provided factory.
func RunBrokerTests(t *testing.T, factory BrokerFactory) {
	t.Run("LatestOnEmptyTopic", func(t *testing.T) {
		testLatestOnEmptyTopic(t, factory)
	})
	t.Run("SubscribeFromBeginning", func(t *testing.T) {
		testSubscribeFromBeginning(t, factory)
	})
	t.Run("SubscribeAfterLatestSeesOnlyNewEvents", func(t *testing.T) {
		testSubscribeAfterLatest(t, factory)
	})
	t.Run("MultipleSubscribersToSameTopic", func(t *testing.T) {
		testMultipleSubscribers(t, factory)
	})
	t.Run("TopicIsolation", func(t *testing.T) {
		testTopicIsolation(t, factory)
	})
	t.Run("SubscriptionContextCancellation", func(t *testing.T) {
		testSubscriptionContextCancellation(t, factory)
	})
	t.Run("HandlerErrorStopsSubscription", func(t *testing.T) {
		testHandlerErrorStopsSubscription(t, factory)
	})
	t.Run("Cleanup", func(t *testing.T) {
		testCleanup(t, factory)
	})
}

func publish(t *testing.T, b broker.Broker, topic, data string) string {
	t.Helper()
	id, err := b.Publish(context.Background(), topic, []byte(data))
	if err != nil {
		t.Fatalf("publish %q: %v", data, err)
	}
	if id == "" {
		t.Fatal("expected non-empty event ID")
	}
	return id
}

// collect subscribes after afterID and returns the first n envelopes.
func collect(t *testing.T, b broker.Broker, topic, afterID string, n int) []broker.MessageEnvelope {
	t.Helper()
	got, err := receive(b, topic, afterID, n)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

// receive is collect without *testing.T, for use off the test goroutine.
func receive(b broker.Broker, topic, afterID string, n int) ([]broker.MessageEnvelope, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []broker.MessageEnvelope
	err := b.Subscribe(ctx, topic, afterID, func(ctx context.Context, env broker.MessageEnvelope) error {
		got = append(got, env)
		if len(got) == n {
			return broker.ErrStop
		}
		return nil
	})
	if err != nil {
		return got, fmt.Errorf("subscribe %s: %w (received %d of %d)", topic, err, len(got), n)
	}
	return got, nil
}

func testLatestOnEmptyTopic(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	id, err := b.Latest(context.Background(), "empty")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty latest ID, got %q", id)
	}
}

func testSubscribeFromBeginning(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	id1 := publish(t, b, "ordered", "one")
	id2 := publish(t, b, "ordered", "two")

	latest, err := b.Latest(context.Background(), "ordered")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != id2 {
		t.Fatalf("expected latest %q, got %q", id2, latest)
	}

	got := collect(t, b, "ordered", "", 2)
	if got[0].ID != id1 || string(got[0].Data) != "one" {
		t.Fatalf("unexpected first envelope: %+v", got[0])
	}
	if got[1].ID != id2 || string(got[1].Data) != "two" {
		t.Fatalf("unexpected second envelope: %+v", got[1])
	}

	got = collect(t, b, "ordered", id1, 1)
	if string(got[0].Data) != "two" {
		t.Fatalf("expected resume after %s to yield two, got %q", id1, got[0].Data)
	}
}

func testSubscribeAfterLatest(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	publish(t, b, "live", "old")
	latest, err := b.Latest(context.Background(), "live")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	type result struct {
		got []broker.MessageEnvelope
		err error
	}
	done := make(chan result, 1)
	go func() {
		got, err := receive(b, "live", latest, 1)
		done <- result{got, err}
	}()

	// Published before or after the subscriber starts waiting: either way it
	// follows latest and must be delivered.
	publish(t, b, "live", "new")

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatal(r.err)
		}
		if string(r.got[0].Data) != "new" {
			t.Fatalf("expected new event, got %q", r.got[0].Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not receive the new event")
	}
}

func testMultipleSubscribers(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	latest, err := b.Latest(context.Background(), "fanout")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	var wg sync.WaitGroup
	results := make([][]broker.MessageEnvelope, 3)
	errs := make([]error, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = receive(b, "fanout", latest, 2)
		}(i)
	}

	publish(t, b, "fanout", "a")
	publish(t, b, "fanout", "b")
	wg.Wait()

	for i, got := range results {
		if errs[i] != nil {
			t.Fatalf("subscriber %d: %v", i, errs[i])
		}
		if len(got) != 2 || string(got[0].Data) != "a" || string(got[1].Data) != "b" {
			t.Fatalf("subscriber %d got %v", i, got)
		}
	}
}

func testTopicIsolation(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	publish(t, b, "left", "l1")
	publish(t, b, "right", "r1")
	publish(t, b, "left", "l2")

	got := collect(t, b, "left", "", 2)
	if string(got[0].Data) != "l1" || string(got[1].Data) != "l2" {
		t.Fatalf("expected only left events, got %q, %q", got[0].Data, got[1].Data)
	}
}

func testSubscriptionContextCancellation(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Subscribe(ctx, "quiet", "", func(context.Context, broker.MessageEnvelope) error {
		return fmt.Errorf("no events expected")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func testHandlerErrorStopsSubscription(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	publish(t, b, "failing", "x")
	publish(t, b, "failing", "y")

	boom := errors.New("boom")
	calls := 0
	err := b.Subscribe(context.Background(), "failing", "", func(context.Context, broker.MessageEnvelope) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected delivery to stop after the error, got %d calls", calls)
	}
}

func testCleanup(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	publish(t, b, "scratch", "gone")
	if err := b.Cleanup(context.Background(), "scratch"); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	latest, err := b.Latest(context.Background(), "scratch")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != "" {
		t.Fatalf("expected empty topic after cleanup, got latest %q", latest)
	}
	if err := b.Cleanup(context.Background(), "never-used"); err != nil {
		t.Fatalf("cleanup of unknown topic: %v", err)
	}
}
