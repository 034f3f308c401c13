// Package stdio serves one MCP session over a pair of byte streams, by
// default stdin and stdout. It is intended for embedding servers as
// subprocesses: the parent writes one JSON-RPC message per line and reads one
// reply per line.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Auth             : none; the OS user labels the session
//	Sessions         : one per Serve call, memory only
//	Framing          : newline-delimited JSON, one message per line
//	Dispatch         : sequential; each reply is flushed before the next read
//
// Diagnostics go to the configured slog logger and never to the output
// stream.
//
// Example:
//
//	srv := mcpservice.NewServer(
//	    mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "my-stdio-server", Version: "0.1.0"}),
//	    mcpservice.WithTools(toolbox.Add()),
//	)
//	h := stdio.NewHandler(srv)
//	if err := h.Serve(context.Background()); err != nil { log.Fatal(err) }
package stdio
