// Package sessions defines the per-connection session abstraction shared by
// the stdio transport, the engine and tool handlers. A session represents one
// connected peer for the lifetime of one transport connection: its identity,
// the client it negotiated with, its lifecycle state and a small bag of
// mutable context that tools read and write between calls (for example the
// "current namespace").
//
// Layers & Roles
//
//	Transport      -> owns the stream, creates and closes the session
//	Engine         -> drives the lifecycle state machine
//	Session object -> per-session view exposed to tool handlers
//
// Sessions are never shared between connections and there is no global
// registry of them.
package sessions
