// Package toolbox contains the collaborator tools shipped with the server
// binary. Each tool is an ordinary mcpservice.StaticTool; Register installs
// the ones enabled by Deps.
package toolbox

import (
	"time"

	"github.com/ggoodman/mcp-stdio-go/broker"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/storage"
)

// Deps carries the collaborators and limits the tools need. A nil section
// leaves the corresponding tools unregistered.
type Deps struct {
	// Store backs kv_get, kv_set, kv_delete and kv_list.
	Store storage.Storage
	// Feed carries kv change events and enables kv_wait. Ignored without Store.
	Feed  broker.Broker
	Exec  *ExecConfig
	HTTP  *HTTPConfig
	Watch *WatchConfig
}

// ExecConfig bounds the exec tool.
type ExecConfig struct {
	// Allow lists the command names that may be run. Nothing else is.
	Allow   []string
	Timeout time.Duration
}

// HTTPConfig bounds the http_get tool.
type HTTPConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

// WatchConfig bounds the wait_for_file tool.
type WatchConfig struct {
	// Timeout applies when the caller does not pass timeout_seconds, and
	// caps the value it does pass.
	Timeout time.Duration
}

// All returns the tools enabled by deps in listing order.
func All(deps Deps) []mcpservice.StaticTool {
	tools := []mcpservice.StaticTool{
		Add(),
		Echo(),
		SetNamespace(),
		GetNamespace(),
	}
	if deps.Store != nil {
		tools = append(tools, KV(deps.Store, deps.Feed)...)
	}
	if deps.Exec != nil {
		tools = append(tools, Exec(*deps.Exec))
	}
	if deps.HTTP != nil {
		tools = append(tools, HTTPGet(*deps.HTTP))
	}
	if deps.Watch != nil {
		tools = append(tools, WaitForFile(*deps.Watch))
	}
	return tools
}

// Register installs All(deps) into c.
func Register(c *mcpservice.ToolsContainer, deps Deps) error {
	for _, t := range All(deps) {
		if err := c.Register(t); err != nil {
			return err
		}
	}
	return nil
}
