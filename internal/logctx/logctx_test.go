package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ggoodman/mcp-stdio-go/sessions"
)

func TestHandler_AddsGroups(t *testing.T) {
	var buf bytes.Buffer
	log := Wrap(slog.New(slog.NewJSONHandler(&buf, nil)))

	state := sessions.StateReady
	ctx := WithSessionData(context.Background(), &SessionData{SessionID: "s1", UserID: "u1", State: func() sessions.SessionState { return state }})
	ctx = WithRPCMessage(ctx, &RPCMessage{Method: "tools/call", ID: "7", Type: "request"})
	ctx = WithToolCallData(ctx, &ToolCallData{ToolName: "add"})

	log.With(slog.String("component", "test")).InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v (%s)", err, buf.String())
	}
	sess, _ := rec["sess"].(map[string]any)
	if sess["id"] != "s1" || sess["state"] != "READY" {
		t.Fatalf("unexpected sess group: %v", rec["sess"])
	}
	rpc, _ := rec["rpc"].(map[string]any)
	if rpc["method"] != "tools/call" || rpc["id"] != "7" {
		t.Fatalf("unexpected rpc group: %v", rec["rpc"])
	}
	tool, _ := rec["tool"].(map[string]any)
	if tool["name"] != "add" {
		t.Fatalf("unexpected tool group: %v", rec["tool"])
	}
	if rec["component"] != "test" {
		t.Fatalf("WithAttrs lost through wrapper: %v", rec)
	}
}

func TestWrap_Idempotent(t *testing.T) {
	l := Wrap(slog.Default())
	if Wrap(l) != l {
		t.Fatalf("expected wrapping a wrapped logger to return it unchanged")
	}
}
