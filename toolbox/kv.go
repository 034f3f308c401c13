package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ggoodman/mcp-stdio-go/broker"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
	"github.com/ggoodman/mcp-stdio-go/storage"
)

type kvKeyArgs struct {
	Key string `json:"key" jsonschema:"description=Key within the current namespace"`
}

type kvSetArgs struct {
	Key        string          `json:"key" jsonschema:"description=Key within the current namespace"`
	Value      json.RawMessage `json:"value" jsonschema:"description=Any JSON value"`
	TTLSeconds float64         `json:"ttl_seconds,omitempty" jsonschema:"description=Expire the key after this many seconds"`
}

type kvGetResult struct {
	Namespace string          `json:"namespace"`
	Key       string          `json:"key"`
	Found     bool            `json:"found"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

type kvWriteResult struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Deleted   *bool  `json:"deleted,omitempty"`
}

type kvListResult struct {
	Namespace string   `json:"namespace"`
	Keys      []string `json:"keys"`
}

// KV returns the key/value tools backed by store. Every operation is scoped
// to the calling session's namespace. When feed is non-nil, writes publish a
// change event to it and kv_wait is included.
func KV(store storage.Storage, feed broker.Broker) []mcpservice.StaticTool {
	tools := []mcpservice.StaticTool{
		mcpservice.NewTool[kvKeyArgs]("kv_get", func(ctx context.Context, s sessions.Session, a kvKeyArgs) (any, error) {
			ns := s.Values().Namespace()
			item, err := store.Get(ctx, a.Key, storage.WithNamespace(ns))
			if err != nil {
				return nil, kvError("kv_get", err)
			}
			res := kvGetResult{Namespace: ns, Key: a.Key, Value: json.RawMessage("null")}
			if item != nil {
				res.Found = true
				res.Value = item.Data
				res.ExpiresAt = item.ExpiresAt
			}
			return res, nil
		}, mcpservice.WithToolDescription("Read a value from the session's namespace")),

		mcpservice.NewTool[kvSetArgs]("kv_set", func(ctx context.Context, s sessions.Session, a kvSetArgs) (any, error) {
			ns := s.Values().Namespace()
			opts := []storage.Option{storage.WithNamespace(ns)}
			if a.TTLSeconds != 0 {
				opts = append(opts, storage.WithTTL(time.Duration(a.TTLSeconds*float64(time.Second))))
			}
			value := a.Value
			if len(value) == 0 {
				value = json.RawMessage("null")
			}
			if err := store.Set(ctx, a.Key, value, opts...); err != nil {
				return nil, kvError("kv_set", err)
			}
			if err := publishChange(ctx, feed, kvChange{Op: kvOpSet, Namespace: ns, Key: a.Key, Value: value}); err != nil {
				return nil, err
			}
			return kvWriteResult{Namespace: ns, Key: a.Key}, nil
		}, mcpservice.WithToolDescription("Store a JSON value in the session's namespace")),

		mcpservice.NewTool[kvKeyArgs]("kv_delete", func(ctx context.Context, s sessions.Session, a kvKeyArgs) (any, error) {
			ns := s.Values().Namespace()
			deleted, err := store.Delete(ctx, a.Key, storage.WithNamespace(ns))
			if err != nil {
				return nil, kvError("kv_delete", err)
			}
			if deleted {
				if err := publishChange(ctx, feed, kvChange{Op: kvOpDelete, Namespace: ns, Key: a.Key}); err != nil {
					return nil, err
				}
			}
			return kvWriteResult{Namespace: ns, Key: a.Key, Deleted: &deleted}, nil
		}, mcpservice.WithToolDescription("Remove a key from the session's namespace")),

		mcpservice.NewTool[struct{}]("kv_list", func(ctx context.Context, s sessions.Session, _ struct{}) (any, error) {
			ns := s.Values().Namespace()
			keys, err := store.Keys(ctx, storage.WithNamespace(ns))
			if err != nil {
				return nil, kvError("kv_list", err)
			}
			return kvListResult{Namespace: ns, Keys: keys}, nil
		}, mcpservice.WithToolDescription("List the keys in the session's namespace")),
	}
	if feed != nil {
		tools = append(tools, KVWait(feed))
	}
	return tools
}

// kvError reports caller mistakes as invalid arguments and everything else
// as a tool failure.
func kvError(tool string, err error) error {
	if errors.Is(err, storage.ErrInvalidKey) || errors.Is(err, storage.ErrInvalidTTL) {
		return &mcpservice.ArgumentError{Tool: tool, Err: err}
	}
	return err
}
