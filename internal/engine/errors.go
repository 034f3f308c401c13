package engine

import (
	"errors"
	"fmt"

	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
)

var (
	// ErrInvalidTransition is returned when a session is asked to move to a
	// state that is not reachable from its current state.
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrInternal is the catch-all reported for failures outside the taxonomy.
	ErrInternal = errors.New("internal error")
)

// ProtocolError is a recoverable problem with the request itself: unknown
// method, unknown tool, missing or malformed parameters.
type ProtocolError struct {
	Code    jsonrpc.ErrorCode
	Message string
	Data    any
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LifecycleViolation reports a method sent while the session state forbids it.
type LifecycleViolation struct {
	Method string
	State  sessions.SessionState
}

func (e *LifecycleViolation) Error() string {
	return fmt.Sprintf("method %q not allowed in state %s", e.Method, e.State)
}

// ToolExecutionError wraps a failure raised by a tool handler.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

func methodNotFound(method string) *ProtocolError {
	return &ProtocolError{
		Code:    jsonrpc.ErrorCodeMethodNotFound,
		Message: fmt.Sprintf("method %q not found", method),
	}
}

func invalidParams(format string, args ...any) *ProtocolError {
	return &ProtocolError{
		Code:    jsonrpc.ErrorCodeInvalidParams,
		Message: fmt.Sprintf(format, args...),
	}
}

// ToRPCError maps an error from any layer to the JSON-RPC error object sent
// to the peer. Detail that is only useful for diagnostics stays out of the
// returned object; callers log the original error.
func ToRPCError(err error) *jsonrpc.Error {
	var (
		rpcErr    *jsonrpc.Error
		protoErr  *ProtocolError
		lifecycle *LifecycleViolation
		argErr    *mcpservice.ArgumentError
		toolErr   *ToolExecutionError
		parseErr  *jsonrpc.ParseFailure
		invalid   *jsonrpc.InvalidMessage
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &parseErr):
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeParseError, Message: jsonrpc.ErrorCodeParseError.String()}
	case errors.As(err, &invalid):
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeInvalidRequest, Message: invalid.Reason}
	case errors.Is(err, jsonrpc.ErrBatchUnsupported):
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeInvalidRequest, Message: "batch messages are not supported"}
	case errors.As(err, &lifecycle):
		return &jsonrpc.Error{
			Code:    jsonrpc.ErrorCodeInvalidRequest,
			Message: lifecycle.Error(),
			Data:    map[string]any{"method": lifecycle.Method, "state": string(lifecycle.State)},
		}
	case errors.As(err, &protoErr):
		return &jsonrpc.Error{Code: protoErr.Code, Message: protoErr.Message, Data: protoErr.Data}
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.As(err, &argErr):
		return &jsonrpc.Error{
			Code:    jsonrpc.ErrorCodeInvalidParams,
			Message: fmt.Sprintf("invalid arguments for tool %q", argErr.Tool),
			Data:    map[string]any{"tool": argErr.Tool, "message": argErr.Err.Error()},
		}
	case errors.As(err, &toolErr):
		return &jsonrpc.Error{
			Code:    jsonrpc.ErrorCodeInternalError,
			Message: fmt.Sprintf("tool %q failed", toolErr.Tool),
			Data:    map[string]any{"tool": toolErr.Tool, "message": toolErr.Err.Error()},
		}
	default:
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeInternalError, Message: ErrInternal.Error()}
	}
}

// NewErrorResponse builds the error reply for err. A nil id is encoded as
// null, which is what the peer receives when its id could not be read.
func NewErrorResponse(id *jsonrpc.RequestID, err error) *jsonrpc.Response {
	rpcErr := ToRPCError(err)
	return jsonrpc.NewErrorResponse(id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
}

// DecodeErrorResponse builds the reply for a line that could not be decoded.
// The id is echoed when the codec managed to read one and is null otherwise.
func DecodeErrorResponse(err error) *jsonrpc.Response {
	var id *jsonrpc.RequestID
	var invalid *jsonrpc.InvalidMessage
	if errors.As(err, &invalid) {
		id = invalid.ID
	}
	return NewErrorResponse(id, err)
}
