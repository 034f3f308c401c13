package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ggoodman/mcp-stdio-go/broker"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
)

const (
	kvOpSet    = "set"
	kvOpDelete = "delete"

	defaultKVWait = 30 * time.Second
	maxKVWait     = 5 * time.Minute
)

// kvChange is the event published for every successful kv write.
type kvChange struct {
	Op        string          `json:"op"`
	Namespace string          `json:"namespace"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value,omitempty"`
}

type kvWaitArgs struct {
	Key            string  `json:"key" jsonschema:"description=Key within the current namespace"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" jsonschema:"description=Give up after this many seconds (default 30)"`
}

type kvWaitResult struct {
	Namespace string          `json:"namespace"`
	Key       string          `json:"key"`
	Changed   bool            `json:"changed"`
	Op        string          `json:"op,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// kvTopic names the feed topic of one namespace.
func kvTopic(ns string) string { return "kv:" + ns }

func publishChange(ctx context.Context, feed broker.Broker, ch kvChange) error {
	if feed == nil {
		return nil
	}
	data, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	if _, err := feed.Publish(ctx, kvTopic(ch.Namespace), data); err != nil {
		return fmt.Errorf("%s %q applied but change event not published: %w", ch.Op, ch.Key, err)
	}
	return nil
}

// KVWait blocks until the key is written or deleted in the session's
// namespace, by this or any other session sharing feed. Only changes made
// after the call starts are reported. Timing out is not an error: the result
// carries changed=false.
func KVWait(feed broker.Broker) mcpservice.StaticTool {
	return mcpservice.NewTool[kvWaitArgs]("kv_wait", func(ctx context.Context, s sessions.Session, a kvWaitArgs) (any, error) {
		if a.Key == "" {
			return nil, &mcpservice.ArgumentError{Tool: "kv_wait", Err: errors.New("key must not be empty")}
		}
		if a.TimeoutSeconds < 0 {
			return nil, &mcpservice.ArgumentError{Tool: "kv_wait", Err: errors.New("timeout_seconds must not be negative")}
		}
		wait := defaultKVWait
		if a.TimeoutSeconds > 0 {
			wait = min(time.Duration(a.TimeoutSeconds*float64(time.Second)), maxKVWait)
		}

		ns := s.Values().Namespace()
		topic := kvTopic(ns)
		res := kvWaitResult{Namespace: ns, Key: a.Key}

		after, err := feed.Latest(ctx, topic)
		if err != nil {
			return nil, err
		}

		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()

		err = feed.Subscribe(waitCtx, topic, after, func(_ context.Context, env broker.MessageEnvelope) error {
			var ch kvChange
			if err := json.Unmarshal(env.Data, &ch); err != nil || ch.Key != a.Key {
				return nil
			}
			res.Changed = true
			res.Op = ch.Op
			res.Value = ch.Value
			return broker.ErrStop
		})
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return res, nil
		default:
			return nil, err
		}
	}, mcpservice.WithToolDescription("Wait for a key in the session's namespace to be set or deleted"))
}
