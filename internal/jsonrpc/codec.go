package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBatchUnsupported is returned by Decode for JSON-RPC batch arrays. The
// line transport carries exactly one message per line.
var ErrBatchUnsupported = errors.New("jsonrpc: batch messages are not supported")

// ParseFailure reports a line that could not be read as JSON even after
// recovery. Raw holds the original input for diagnostics.
type ParseFailure struct {
	Raw []byte
	Err error
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("jsonrpc: parse error: %v", e.Err)
}

func (e *ParseFailure) Unwrap() error { return e.Err }

// InvalidMessage reports well-formed JSON that is not a valid JSON-RPC
// message. ID is set when the id member could still be read.
type InvalidMessage struct {
	ID     *RequestID
	Reason string
}

func (e *InvalidMessage) Error() string {
	return "jsonrpc: invalid message: " + e.Reason
}

// Decode parses a single line into a message.
//
// A strict parse is attempted first. If the line is not valid JSON, the text
// between the first '{' and the last '}' is tried once more; stray prefixes
// such as log noise are common on shared stdio pipes. Failing that, Decode
// returns a *ParseFailure. Structurally invalid messages yield an
// *InvalidMessage and batch arrays yield ErrBatchUnsupported.
func Decode(line []byte) (*AnyMessage, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed) {
		return nil, ErrBatchUnsupported
	}

	if !json.Valid(trimmed) {
		recovered, ok := extractObject(trimmed)
		if !ok {
			return nil, &ParseFailure{Raw: line, Err: syntaxError(trimmed)}
		}
		trimmed = recovered
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &InvalidMessage{ID: peekID(trimmed), Reason: err.Error()}
	}
	return env.message()
}

// Encode serializes v as a single compact JSON line without the trailing
// newline. encoding/json escapes control characters inside strings, so the
// output never contains a raw newline.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: encode: %w", err)
	}
	return b, nil
}

// extractObject applies the single recovery heuristic: locate the first '{'
// and the last '}' and keep the text between them if it is valid JSON.
func extractObject(b []byte) ([]byte, bool) {
	start := bytes.IndexByte(b, '{')
	end := bytes.LastIndexByte(b, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	candidate := b[start : end+1]
	if !json.Valid(candidate) {
		return nil, false
	}
	return candidate, true
}

// syntaxError returns the decoder error for b, or a generic error for empty input.
func syntaxError(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return errors.New("invalid JSON")
}

// peekID makes a best-effort attempt to read the id member from valid JSON
// whose overall shape is wrong.
func peekID(b []byte) *RequestID {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(b, &probe); err != nil || len(probe.ID) == 0 {
		return nil
	}
	var id RequestID
	if err := json.Unmarshal(probe.ID, &id); err != nil || id.IsNil() {
		return nil
	}
	return &id
}
