package mcpservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/sessions"
)

// ToolHandler is the function signature used to handle a tool invocation. It
// receives the normalized argument object and returns any JSON-serializable
// value, which becomes the response result verbatim.
//
// The engine waits for the handler to return before reading the next message,
// so handlers that perform I/O should bound it themselves (for example with
// context.WithTimeout).
type ToolHandler func(ctx context.Context, session sessions.Session, args json.RawMessage) (any, error)

// ToolOutcome is the completion value delivered by an AsyncToolHandler.
type ToolOutcome struct {
	Value any
	Err   error
}

// AsyncToolHandler starts a tool invocation and returns a channel that
// delivers exactly one outcome. Use Await to adapt it to a ToolHandler.
type AsyncToolHandler func(ctx context.Context, session sessions.Session, args json.RawMessage) <-chan ToolOutcome

// ErrNoOutcome is returned when an asynchronous handler closes its channel
// without delivering an outcome.
var ErrNoOutcome = errors.New("tool completed without an outcome")

// Await adapts an asynchronous handler to the blocking ToolHandler shape the
// engine dispatches to. It waits for the outcome or for ctx to end.
func Await(h AsyncToolHandler) ToolHandler {
	return func(ctx context.Context, session sessions.Session, args json.RawMessage) (any, error) {
		ch := h(ctx, session, args)
		if ch == nil {
			return nil, ErrNoOutcome
		}
		select {
		case out, ok := <-ch:
			if !ok {
				return nil, ErrNoOutcome
			}
			return out.Value, out.Err
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
	}
}

// Completed returns a channel already holding the given outcome. It lets an
// asynchronous handler finish synchronously on fast paths.
func Completed(v any, err error) <-chan ToolOutcome {
	ch := make(chan ToolOutcome, 1)
	ch <- ToolOutcome{Value: v, Err: err}
	close(ch)
	return ch
}

// StaticTool pairs an MCP tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

// ToolsContainer owns a threadsafe, ordered set of tool descriptors and
// handlers. It is populated during startup; each session then works from an
// immutable ToolSet obtained with Freeze.
type ToolsContainer struct {
	mu    sync.RWMutex
	order []string              // registration order of names
	tools map[string]StaticTool // name -> tool
}

// NewToolsContainer constructs a new ToolsContainer with the given tool definitions.
func NewToolsContainer(defs ...StaticTool) *ToolsContainer {
	st := &ToolsContainer{tools: make(map[string]StaticTool, len(defs))}
	for _, d := range defs {
		st.Register(d)
	}
	return st
}

// Register inserts a tool. Registering a name that already exists replaces
// the previous descriptor and handler (last write wins) while keeping the
// original listing position. It returns an error for a nameless tool or a
// missing handler.
func (st *ToolsContainer) Register(def StaticTool) error {
	name := def.Descriptor.Name
	if name == "" {
		return fmt.Errorf("register tool: missing name")
	}
	if def.Handler == nil {
		return fmt.Errorf("register tool %q: missing handler", name)
	}
	if def.Descriptor.InputSchema.Type == "" {
		def.Descriptor.InputSchema.Type = "object"
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.tools == nil {
		st.tools = make(map[string]StaticTool)
	}
	if _, exists := st.tools[name]; !exists {
		st.order = append(st.order, name)
	}
	st.tools[name] = def
	return nil
}

// MustRegister is like Register but panics on error. It is intended for
// static tool tables assembled at program start.
func (st *ToolsContainer) MustRegister(defs ...StaticTool) {
	for _, d := range defs {
		if err := st.Register(d); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the tool registered under name.
func (st *ToolsContainer) Lookup(name string) (StaticTool, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	t, ok := st.tools[name]
	return t, ok
}

// Snapshot returns a copy of the current tool descriptors in registration order.
func (st *ToolsContainer) Snapshot() []mcp.Tool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(st.order))
	for _, name := range st.order {
		out = append(out, st.tools[name].Descriptor)
	}
	return out
}

// Len reports the number of registered tools.
func (st *ToolsContainer) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.order)
}

// Freeze returns an immutable copy of the current tool set.
func (st *ToolsContainer) Freeze() *ToolSet {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ts := &ToolSet{
		list:  make([]mcp.Tool, 0, len(st.order)),
		tools: make(map[string]StaticTool, len(st.order)),
	}
	for _, name := range st.order {
		t := st.tools[name]
		ts.list = append(ts.list, t.Descriptor)
		ts.tools[name] = t
	}
	return ts
}

// ToolSet is an immutable registry snapshot. It is safe for concurrent use.
type ToolSet struct {
	list  []mcp.Tool
	tools map[string]StaticTool
}

// List returns the descriptors in registration order. The returned slice is
// a copy.
func (ts *ToolSet) List() []mcp.Tool {
	if ts == nil {
		return []mcp.Tool{}
	}
	out := make([]mcp.Tool, len(ts.list))
	copy(out, ts.list)
	return out
}

// Lookup returns the tool registered under name.
func (ts *ToolSet) Lookup(name string) (StaticTool, bool) {
	if ts == nil {
		return StaticTool{}, false
	}
	t, ok := ts.tools[name]
	return t, ok
}
