package mcpservice

import (
	"github.com/ggoodman/mcp-stdio-go/mcp"
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// Server describes what a session advertises during initialize: identity,
// optional instructions and the tool registry. It holds no per-connection
// state; transports create one engine session per peer from it.
type Server struct {
	info            mcp.ImplementationInfo
	protocolVersion string
	instructions    string
	tools           *ToolsContainer
}

// NewServer builds a Server using functional options.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		info:  mcp.ImplementationInfo{Name: "mcp-stdio-go", Version: "0.0.0"},
		tools: NewToolsContainer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithServerInfo sets the name and version reported by initialize.
func WithServerInfo(info mcp.ImplementationInfo) ServerOption {
	return func(s *Server) { s.info = info }
}

// WithProtocolVersion pins the protocol version reported by initialize.
// When unset, the version requested by the client is echoed, falling back to
// mcp.LatestProtocolVersion.
func WithProtocolVersion(version string) ServerOption {
	return func(s *Server) { s.protocolVersion = version }
}

// WithInstructions sets static human-readable instructions returned during initialize.
func WithInstructions(instr string) ServerOption {
	return func(s *Server) { s.instructions = instr }
}

// WithToolsContainer uses an existing container as the tool registry.
func WithToolsContainer(c *ToolsContainer) ServerOption {
	return func(s *Server) {
		if c != nil {
			s.tools = c
		}
	}
}

// WithTools registers tools on the server's registry.
func WithTools(defs ...StaticTool) ServerOption {
	return func(s *Server) { s.tools.MustRegister(defs...) }
}

// Info returns the server identity.
func (s *Server) Info() mcp.ImplementationInfo { return s.info }

// Instructions returns the configured instructions, possibly empty.
func (s *Server) Instructions() string { return s.instructions }

// Tools returns the tool registry.
func (s *Server) Tools() *ToolsContainer { return s.tools }

// NegotiateProtocolVersion picks the protocol version reported to a client
// that requested the given version.
func (s *Server) NegotiateProtocolVersion(requested string) string {
	if s.protocolVersion != "" {
		return s.protocolVersion
	}
	if requested != "" {
		return requested
	}
	return mcp.LatestProtocolVersion
}
