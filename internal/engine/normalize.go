package engine

import (
	"bytes"
	"encoding/json"

	"github.com/ggoodman/mcp-stdio-go/mcp"
)

// normalizeCallParams rewrites the tools/call params so the argument object
// always lives under the canonical key. Peers send it as "arguments",
// "parameters" or "input"; the first present key in that order wins and the
// others are discarded. Params that are not an object are invalid params.
func normalizeCallParams(raw json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return raw, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, invalidParams("params must be an object")
	}

	canonical := mcp.ArgumentContainerKeys[0]
	var args json.RawMessage
	found := false
	for _, key := range mcp.ArgumentContainerKeys {
		if v, ok := fields[key]; ok && !found {
			args = v
			found = true
		}
		delete(fields, key)
	}
	if !found {
		return raw, nil
	}
	fields[canonical] = args
	return json.Marshal(fields)
}

// argumentsObject validates that the tool arguments form a JSON object. An
// absent or null value is treated as the empty object.
func argumentsObject(raw json.RawMessage) (json.RawMessage, map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}"), map[string]json.RawMessage{}, nil
	}
	if trimmed[0] != '{' {
		return nil, nil, invalidParams("arguments must be an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, nil, invalidParams("arguments must be an object")
	}
	return json.RawMessage(trimmed), fields, nil
}
