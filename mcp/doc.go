// Package mcp contains protocol data types and constants shared across the
// transport, the engine and tool implementations. It mirrors the wire
// representation of the line-delimited tool protocol while keeping the
// surface Go-friendly (exported structs with json tags, string constants for
// method names).
//
// The package is intentionally free of transport logic: the stdio transport
// implements framing and the engine implements the session lifecycle; both
// marshal these types.
//
// # Method Names
//
// JSON-RPC method and notification names are enumerated as Method constants
// (e.g. ToolsListMethod). Using the constants avoids typographical mistakes
// and ensures a single point of truth.
//
// # Handshake
//
// The initialize result carries the server name and version at the top
// level and advertises the complete tool list under capabilities.tools:
//
//	{"name":"srv","version":"1.0.0","capabilities":{"tools":[{"name":"add",...}]}}
//
// # Tool Calls
//
// Peers in the field name the argument container "arguments", "parameters"
// or "input". ArgumentContainerKeys records the accepted names; the engine
// rewrites all of them to "arguments" before decoding a
// CallToolRequestReceived.
package mcp
