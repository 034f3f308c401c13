package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"

	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-stdio-go/internal/logctx"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
)

type handlerFunc func(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error)

// method is one entry of the dispatch table.
type method struct {
	states []sessions.SessionState
	// notification marks methods that are only meaningful without an id.
	notification bool
	// terminal methods end the session once their reply is written.
	terminal bool
	handle   handlerFunc
}

func (m method) allowedIn(state sessions.SessionState) bool {
	return slices.Contains(m.states, state)
}

func (e *Engine) methodTable() map[mcp.Method]method {
	ready := []sessions.SessionState{sessions.StateReady}
	return map[mcp.Method]method{
		mcp.InitializeMethod: {states: []sessions.SessionState{sessions.StateUninitialized}, handle: e.handleInitialize},
		mcp.ToolsListMethod:  {states: ready, handle: e.handleToolsList},
		mcp.ToolsCallMethod:  {states: ready, handle: e.handleToolsCall},
		mcp.PingMethod:       {states: ready, handle: e.handlePing},
		mcp.ShutdownMethod:   {states: ready, terminal: true, handle: e.handleShutdown},

		mcp.InitializedNotificationMethod: {states: ready, notification: true, handle: e.handleInitialized},
		mcp.CancelledNotificationMethod:   {states: ready, notification: true, handle: e.handleCancelled},
	}
}

func (e *Engine) handleInitialize(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	var params mcp.InitializeRequest
	if hasParams(req.Params) {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, invalidParams("invalid initialize params: %v", err)
		}
	}

	version := e.srv.NegotiateProtocolVersion(params.ProtocolVersion)
	if err := sess.markReady(params.ClientInfo, version); err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "engine.session.ready",
		slog.String("client_name", params.ClientInfo.Name),
		slog.String("client_version", params.ClientInfo.Version),
		slog.String("protocol_version", version),
	)

	info := e.srv.Info()
	return &mcp.InitializeResult{
		Name:            info.Name,
		Version:         info.Version,
		ProtocolVersion: version,
		Instructions:    e.srv.Instructions(),
		Capabilities:    mcp.ServerCapabilities{Tools: sess.Tools()},
	}, nil
}

func (e *Engine) handleToolsList(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	return &mcp.ListToolsResult{Tools: sess.Tools()}, nil
}

func (e *Engine) handlePing(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	return mcp.EmptyResult{}, nil
}

func (e *Engine) handleShutdown(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	e.log.InfoContext(ctx, "engine.session.shutdown_requested")
	return nil, nil
}

func (e *Engine) handleInitialized(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	return nil, nil
}

// handleCancelled only records the notification. Requests are handled one at
// a time, so by the time a cancellation is read its target has already been
// answered.
func (e *Engine) handleCancelled(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	var params mcp.CancelledNotification
	if hasParams(req.Params) {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, invalidParams("invalid cancellation params: %v", err)
		}
	}
	e.log.InfoContext(ctx, "engine.cancel.ignored",
		slog.Any("request_id", params.RequestID),
		slog.String("reason", params.Reason),
	)
	return nil, nil
}

func (e *Engine) handleToolsCall(ctx context.Context, sess *Session, req *jsonrpc.Request) (any, error) {
	params, err := normalizeCallParams(req.Params)
	if err != nil {
		return nil, err
	}

	var call mcp.CallToolRequestReceived
	if hasParams(params) {
		if err := json.Unmarshal(params, &call); err != nil {
			return nil, invalidParams("invalid tools/call params: %v", err)
		}
	}
	if call.Name == "" {
		return nil, &ProtocolError{Code: jsonrpc.ErrorCodeMethodNotFound, Message: "tool name required"}
	}

	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: call.Name})

	tool, ok := sess.tools.Lookup(call.Name)
	if !ok {
		return nil, &ProtocolError{
			Code:    jsonrpc.ErrorCodeMethodNotFound,
			Message: fmt.Sprintf("tool %q not found", call.Name),
			Data:    map[string]any{"tool": call.Name},
		}
	}

	args, fields, err := argumentsObject(call.Arguments)
	if err != nil {
		return nil, err
	}
	for _, name := range tool.Descriptor.InputSchema.Required {
		if _, ok := fields[name]; !ok {
			return nil, &ProtocolError{
				Code:    jsonrpc.ErrorCodeInvalidParams,
				Message: fmt.Sprintf("missing required argument %q", name),
				Data:    map[string]any{"tool": call.Name, "missing": name},
			}
		}
	}

	value, err := e.callTool(ctx, sess, tool, args)
	if err != nil {
		return nil, err
	}

	// Encode here so an unserializable result is attributed to the tool.
	b, err := json.Marshal(value)
	if err != nil {
		return nil, &ToolExecutionError{Tool: call.Name, Err: fmt.Errorf("encode result: %w", err)}
	}
	return json.RawMessage(b), nil
}

// callTool runs the handler, converting panics and plain errors into
// ToolExecutionError. Errors that already carry a protocol meaning pass
// through unchanged.
func (e *Engine) callTool(ctx context.Context, sess *Session, tool mcpservice.StaticTool, args json.RawMessage) (value any, err error) {
	name := tool.Descriptor.Name
	defer func() {
		if r := recover(); r != nil {
			e.log.ErrorContext(ctx, "engine.tool.panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			value, err = nil, &ToolExecutionError{Tool: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	value, err = tool.Handler(ctx, sess, args)
	if err == nil {
		return value, nil
	}

	var (
		argErr   *mcpservice.ArgumentError
		protoErr *ProtocolError
		rpcErr   *jsonrpc.Error
	)
	if errors.As(err, &argErr) || errors.As(err, &protoErr) || errors.As(err, &rpcErr) {
		return nil, err
	}
	return nil, &ToolExecutionError{Tool: name, Err: err}
}

func hasParams(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
