package mcp

import "encoding/json"

// Method is an MCP method identifier used in JSON-RPC messages.
type Method string

const (
	// Lifecycle
	InitializeMethod              Method = "initialize"
	InitializedNotificationMethod Method = "notifications/initialized"
	ShutdownMethod                Method = "shutdown"

	// Tools
	ToolsListMethod Method = "tools/list"
	ToolsCallMethod Method = "tools/call"

	// Utilities
	PingMethod                  Method = "ping"
	CancelledNotificationMethod Method = "notifications/cancelled"
)

// LatestProtocolVersion is the protocol revision reported when the client does
// not request one.
const LatestProtocolVersion = "2024-11-05"

// InitializeRequest is sent by the client to begin a session.
type InitializeRequest struct {
	ProtocolVersion string             `json:"protocolVersion,omitempty"`
	ClientInfo      ImplementationInfo `json:"clientInfo"`
	Capabilities    ClientCapabilities `json:"capabilities,omitempty"`
}

// InitializeResult is the server's handshake payload. Name and Version are
// flattened at the top level of the result.
type InitializeResult struct {
	Name            string             `json:"name"`
	Version         string             `json:"version"`
	ProtocolVersion string             `json:"protocolVersion,omitempty"`
	Instructions    string             `json:"instructions,omitempty"`
	Capabilities    ServerCapabilities `json:"capabilities"`
}

// ListToolsRequest carries no parameters today.
type ListToolsRequest struct{}

// ListToolsResult lists every registered tool.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolRequestReceived is the server-received representation for a tool
// call, after the argument container has been normalized to "arguments".
type CallToolRequestReceived struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CancelledNotification is sent by clients that gave up waiting on a request.
type CancelledNotification struct {
	RequestID any    `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
}

// EmptyResult is returned by methods with nothing to report.
type EmptyResult struct{}

// ArgumentContainerKeys lists the parameter-container names accepted for
// tools/call, in precedence order. The first is canonical.
var ArgumentContainerKeys = []string{"arguments", "parameters", "input"}
