// Package engine implements the protocol core shared by transports: the
// per-connection session state machine, the method dispatch table and the
// mapping from failures to JSON-RPC error objects.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-stdio-go/internal/logctx"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
	"github.com/google/uuid"
)

// Engine dispatches decoded messages for sessions created from a single
// server description. It holds no per-connection state and may serve any
// number of sessions.
type Engine struct {
	srv     *mcpservice.Server
	log     *slog.Logger
	newID   func() string
	methods map[mcp.Method]method
}

// Outcome is the result of handling one inbound message.
type Outcome struct {
	// Response is the reply to write, or nil when nothing must be written.
	Response *jsonrpc.Response
	// Shutdown is set once the peer asked to end the session. The transport
	// writes Response and then calls Engine.CompleteShutdown.
	Shutdown bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the Engine.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = logctx.Wrap(l)
		}
	}
}

// WithSessionIDGenerator overrides how session ids are minted.
func WithSessionIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

func NewEngine(srv *mcpservice.Server, opts ...EngineOption) *Engine {
	if srv == nil {
		srv = mcpservice.NewServer()
	}
	e := &Engine{
		srv:   srv,
		log:   logctx.Wrap(slog.Default()),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.methods = e.methodTable()
	return e
}

// NewSession creates a session in StateUninitialized. The tool registry is
// snapshotted here; later registrations are not visible to the session.
func (e *Engine) NewSession(userID string) *Session {
	return newSession(e.newID(), userID, e.srv.Tools().Freeze())
}

// HandleMessage processes one decoded message for sess. It never fails:
// every problem is either reported in the returned response or, for messages
// that must not be answered, logged.
func (e *Engine) HandleMessage(ctx context.Context, sess *Session, msg *jsonrpc.AnyMessage) Outcome {
	if msg == nil {
		return Outcome{}
	}

	rpcMsg := &logctx.RPCMessage{Method: msg.Method, Type: msg.Type()}
	if msg.ID != nil {
		rpcMsg.ID = msg.ID.String()
	}
	ctx = logctx.WithRPCMessage(ctx, rpcMsg)

	if sess.Closed() {
		e.log.WarnContext(ctx, "engine.handle_message.closed")
		return Outcome{}
	}

	req := msg.AsRequest()
	if req == nil {
		e.log.InfoContext(ctx, "engine.handle_message.unexpected_response")
		return Outcome{}
	}
	if req.IsNotification() {
		e.handleNotification(ctx, sess, req)
		return Outcome{}
	}
	return e.handleRequest(ctx, sess, req)
}

func (e *Engine) handleRequest(ctx context.Context, sess *Session, req *jsonrpc.Request) Outcome {
	start := time.Now()
	log := e.log.With(slog.String("method", req.Method))

	m, known := e.methods[mcp.Method(req.Method)]
	state := sess.State()
	switch {
	case state != sessions.StateReady && !(known && m.allowedIn(state)),
		known && !m.notification && !m.allowedIn(state):
		err := &LifecycleViolation{Method: req.Method, State: state}
		log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return Outcome{Response: NewErrorResponse(req.ID, err)}
	case !known || m.notification:
		log.InfoContext(ctx, "engine.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return Outcome{Response: NewErrorResponse(req.ID, methodNotFound(req.Method))}
	}

	result, err := e.invoke(ctx, m.handle, sess, req)
	if err != nil {
		e.logFailure(ctx, log, start, err)
		return Outcome{Response: NewErrorResponse(req.ID, err)}
	}

	res, err := jsonrpc.NewResultResponse(req.ID, result)
	if err != nil {
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()))
		return Outcome{Response: NewErrorResponse(req.ID, err)}
	}

	log.InfoContext(ctx, "engine.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	return Outcome{Response: res, Shutdown: m.terminal}
}

func (e *Engine) handleNotification(ctx context.Context, sess *Session, req *jsonrpc.Request) {
	log := e.log.With(slog.String("method", req.Method))

	m, known := e.methods[mcp.Method(req.Method)]
	state := sess.State()
	switch {
	case !known || !m.notification:
		log.DebugContext(ctx, "engine.handle_notification.ignored")
		return
	case !m.allowedIn(state):
		log.InfoContext(ctx, "engine.handle_notification.dropped", slog.String("state", string(state)))
		return
	}

	if _, err := e.invoke(ctx, m.handle, sess, req); err != nil {
		log.WarnContext(ctx, "engine.handle_notification.fail", slog.String("err", err.Error()))
	}
}

// invoke runs a method handler, recovering panics as internal errors.
func (e *Engine) invoke(ctx context.Context, h handlerFunc, sess *Session, req *jsonrpc.Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "engine.handle_request.panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			result, err = nil, fmt.Errorf("%w: panic in %s handler: %v", ErrInternal, req.Method, r)
		}
	}()
	return h(ctx, sess, req)
}

func (e *Engine) logFailure(ctx context.Context, log *slog.Logger, start time.Time, err error) {
	dur := slog.Int64("dur_ms", time.Since(start).Milliseconds())
	switch ToRPCError(err).Code {
	case jsonrpc.ErrorCodeInternalError:
		log.ErrorContext(ctx, "engine.handle_request.fail", slog.String("err", err.Error()), dur)
	default:
		log.InfoContext(ctx, "engine.handle_request.invalid", slog.String("err", err.Error()), dur)
	}
}

// CompleteShutdown finishes a session whose shutdown reply has been written:
// the session moves to SHUTTING_DOWN, the transport is closed, and the
// session ends in CLOSED.
func (e *Engine) CompleteShutdown(ctx context.Context, sess *Session, transport io.Closer) error {
	if err := sess.BeginShutdown(); err != nil {
		sess.Close()
		return err
	}
	var closeErr error
	if transport != nil {
		closeErr = transport.Close()
	}
	sess.Close()
	e.log.InfoContext(ctx, "engine.session.closed", slog.String("reason", "shutdown"))
	if closeErr != nil {
		return fmt.Errorf("close transport: %w", closeErr)
	}
	return nil
}
