package sessions

import "github.com/ggoodman/mcp-stdio-go/mcp"

// SessionState is the lifecycle state of a session.
type SessionState string

const (
	// StateUninitialized accepts only the initialize request.
	StateUninitialized SessionState = "UNINITIALIZED"
	// StateReady accepts tool listing, tool calls and shutdown.
	StateReady SessionState = "READY"
	// StateShuttingDown is entered after the shutdown reply has been written.
	StateShuttingDown SessionState = "SHUTTING_DOWN"
	// StateClosed is terminal.
	StateClosed SessionState = "CLOSED"
)

// Session is the view of a connected peer exposed to tool handlers.
type Session interface {
	SessionID() string
	UserID() string
	// ClientInfo is the client identity reported during initialize. It is
	// the zero value before the handshake completes.
	ClientInfo() mcp.ImplementationInfo
	State() SessionState
	// Values is the session-scoped mutable context.
	Values() *Values
}
