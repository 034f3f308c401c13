package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// AnyMessage is a generic JSON-RPC message (request, notification, or response).
type AnyMessage struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method,omitempty"`
	Params         json.RawMessage `json:"params,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// Request represents a JSON-RPC request (with an ID) or notification (without ID).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC response. The id is always serialized; a
// nil ID encodes as null, which is used when the request id is unknowable.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id"`
}

// NewResultResponse builds a successful JSON-RPC response object. A nil
// result is encoded as an explicit null.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         resultBytes,
		ID:             id,
	}, nil
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// envelope is the permissive wire shape used before structural validation.
// The id stays raw so that an explicit null can be told apart from absence.
type envelope struct {
	JSONRPCVersion *string         `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params"`
	Result         json.RawMessage `json:"result"`
	Error          *Error          `json:"error"`
	ID             json.RawMessage `json:"id"`
}

// message validates the envelope and converts it to an AnyMessage.
func (env *envelope) message() (*AnyMessage, error) {
	m := &AnyMessage{
		JSONRPCVersion: ProtocolVersion,
		Method:         env.Method,
		Params:         env.Params,
		Result:         env.Result,
		Error:          env.Error,
	}

	idNull := len(env.ID) > 0 && bytes.Equal(bytes.TrimSpace(env.ID), []byte("null"))
	if len(env.ID) > 0 && !idNull {
		var id RequestID
		if err := json.Unmarshal(env.ID, &id); err != nil {
			return nil, &InvalidMessage{Reason: err.Error()}
		}
		m.ID = &id
	}

	if env.JSONRPCVersion != nil && *env.JSONRPCVersion != ProtocolVersion {
		return nil, &InvalidMessage{ID: m.ID, Reason: fmt.Sprintf("invalid JSON-RPC version: expected %q, got %q", ProtocolVersion, *env.JSONRPCVersion)}
	}

	hasMethod := env.Method != ""
	hasResult := len(env.Result) > 0
	hasError := env.Error != nil

	if hasMethod {
		if hasResult || hasError {
			return nil, &InvalidMessage{ID: m.ID, Reason: "request message cannot have result or error fields"}
		}
		if idNull {
			return nil, &InvalidMessage{Reason: "request id must not be null"}
		}
		if len(env.Params) > 0 {
			if p := bytes.TrimSpace(env.Params); len(p) > 0 && p[0] != '{' && p[0] != '[' && !bytes.Equal(p, []byte("null")) {
				return nil, &InvalidMessage{ID: m.ID, Reason: "params must be an object or array"}
			}
		}
		return m, nil
	}

	if hasResult && hasError {
		return nil, &InvalidMessage{ID: m.ID, Reason: "response message cannot have both result and error fields"}
	}
	if !hasResult && !hasError {
		return nil, &InvalidMessage{ID: m.ID, Reason: "message must have a method, a result or an error"}
	}
	return m, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for AnyMessage.
// It enforces JSON-RPC 2.0 semantics and validates message structure.
func (m *AnyMessage) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	msg, err := env.message()
	if err != nil {
		return err
	}
	*m = *msg
	return nil
}

// Type returns "request" if the message is a request, "response" if it's a response, or "notification" if it's a notification
func (m *AnyMessage) Type() string {
	if m.Method != "" {
		if m.ID == nil {
			return "notification"
		}
		return "request"
	}
	return "response"
}

// AsRequest returns the message as a Request if it is a request message, otherwise nil
func (m *AnyMessage) AsRequest() *Request {
	if m.Method == "" {
		return nil
	}

	return &Request{
		JSONRPCVersion: m.JSONRPCVersion,
		Method:         m.Method,
		Params:         m.Params,
		ID:             m.ID,
	}
}

// AsResponse returns the message as a Response if it is a response message, otherwise nil
func (m *AnyMessage) AsResponse() *Response {
	if m.Method != "" {
		return nil
	}

	return &Response{
		JSONRPCVersion: m.JSONRPCVersion,
		Result:         m.Result,
		Error:          m.Error,
		ID:             m.ID,
	}
}
