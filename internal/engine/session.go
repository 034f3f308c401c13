package engine

import (
	"fmt"
	"sync"

	"github.com/ggoodman/mcp-stdio-go/internal/logctx"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
)

var _ sessions.Session = (*Session)(nil)

// transitions lists the legal targets for each state. CLOSED has none.
var transitions = map[sessions.SessionState][]sessions.SessionState{
	sessions.StateUninitialized: {sessions.StateReady, sessions.StateClosed},
	sessions.StateReady:         {sessions.StateShuttingDown, sessions.StateClosed},
	sessions.StateShuttingDown:  {sessions.StateClosed},
}

// Session is the per-connection protocol state. A transport creates one with
// Engine.NewSession when a peer connects and drives it with
// Engine.HandleMessage until it reaches StateClosed.
type Session struct {
	sessionID string
	userID    string

	// tools is the registry snapshot taken when the session was created.
	tools  *mcpservice.ToolSet
	values *sessions.Values

	mu              sync.RWMutex
	state           sessions.SessionState
	clientInfo      mcp.ImplementationInfo
	protocolVersion string
}

func newSession(id, userID string, tools *mcpservice.ToolSet) *Session {
	return &Session{
		sessionID: id,
		userID:    userID,
		tools:     tools,
		values:    sessions.NewValues(),
		state:     sessions.StateUninitialized,
	}
}

func (s *Session) SessionID() string { return s.sessionID }

func (s *Session) UserID() string { return s.userID }

func (s *Session) Values() *sessions.Values { return s.values }

func (s *Session) State() sessions.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) ClientInfo() mcp.ImplementationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientInfo
}

// ProtocolVersion is the version agreed during initialize.
func (s *Session) ProtocolVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocolVersion
}

// Tools returns the descriptors visible to this session.
func (s *Session) Tools() []mcp.Tool { return s.tools.List() }

// Closed reports whether the session reached its terminal state.
func (s *Session) Closed() bool { return s.State() == sessions.StateClosed }

// LogData returns the identity attached to log records for this session.
func (s *Session) LogData() *logctx.SessionData {
	return &logctx.SessionData{
		SessionID: s.sessionID,
		UserID:    s.userID,
		State:     s.State,
	}
}

// BeginShutdown moves a READY session to SHUTTING_DOWN.
func (s *Session) BeginShutdown() error {
	return s.transition(sessions.StateShuttingDown)
}

// Close moves the session to CLOSED. Closing a closed session is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = sessions.StateClosed
}

func (s *Session) markReady(info mcp.ImplementationInfo, protocolVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTransitionLocked(sessions.StateReady); err != nil {
		return err
	}
	s.clientInfo = info
	s.protocolVersion = protocolVersion
	s.state = sessions.StateReady
	return nil
}

func (s *Session) transition(to sessions.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTransitionLocked(to); err != nil {
		return err
	}
	s.state = to
	return nil
}

func (s *Session) checkTransitionLocked(to sessions.SessionState) error {
	for _, next := range transitions[s.state] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}
