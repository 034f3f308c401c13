// Package mcpservice provides the building blocks a server author uses to
// describe what a session exposes: server identity and a registry of tools.
//
// Tools are registered once at startup in a ToolsContainer. Each session
// works from an immutable ToolSet snapshot, so the registry is read-only while
// requests are being served. Re-registering a name replaces the previous
// entry.
//
// Quick start:
//
//	type AddArgs struct {
//	    A float64 `json:"a" jsonschema:"description=First addend"`
//	    B float64 `json:"b" jsonschema:"description=Second addend"`
//	}
//
//	srv := mcpservice.NewServer(
//	    mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "calc", Version: "1.0.0"}),
//	    mcpservice.WithTools(
//	        mcpservice.NewTool[AddArgs]("add", func(ctx context.Context, s sessions.Session, a AddArgs) (any, error) {
//	            return a.A + a.B, nil
//	        }, mcpservice.WithToolDescription("Add two numbers")),
//	    ),
//	)
//
// # Handlers
//
// A ToolHandler returns any JSON-serializable value, which becomes the
// response result as-is, or an error, which the engine reports as a
// protocol-level error object. Handlers that complete on another goroutine are
// written as an AsyncToolHandler (or with NewAsyncTool) and adapted with Await;
// the engine only ever sees the blocking form.
//
// # Schemas
//
// NewTool reflects the input schema from the argument struct with
// invopop/jsonschema. Fields without omitempty are required; the engine
// rejects calls missing a required field before the handler runs.
package mcpservice
