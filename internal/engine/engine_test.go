package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
)

type addArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// testHarness wires an engine with a small tool table and records handler
// invocations.
type testHarness struct {
	eng   *Engine
	sess  *Session
	calls map[string]int
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{calls: make(map[string]int)}

	tools := mcpservice.NewToolsContainer(
		mcpservice.NewTool[addArgs]("add", func(ctx context.Context, s sessions.Session, a addArgs) (any, error) {
			h.calls["add"]++
			return a.A + a.B, nil
		}),
		mcpservice.StaticTool{
			Descriptor: mcp.Tool{Name: "fail"},
			Handler: func(context.Context, sessions.Session, json.RawMessage) (any, error) {
				h.calls["fail"]++
				return nil, errors.New("disk on fire")
			},
		},
		mcpservice.StaticTool{
			Descriptor: mcp.Tool{Name: "boom"},
			Handler: func(context.Context, sessions.Session, json.RawMessage) (any, error) {
				panic("kaboom")
			},
		},
		mcpservice.StaticTool{
			Descriptor: mcp.Tool{Name: "nothing"},
			Handler: func(context.Context, sessions.Session, json.RawMessage) (any, error) {
				return nil, nil
			},
		},
		mcpservice.StaticTool{
			Descriptor: mcp.Tool{Name: "args"},
			Handler: func(_ context.Context, _ sessions.Session, args json.RawMessage) (any, error) {
				return args, nil
			},
		},
		mcpservice.StaticTool{
			Descriptor: mcp.Tool{Name: "whoami"},
			Handler: func(_ context.Context, s sessions.Session, _ json.RawMessage) (any, error) {
				return map[string]any{"client": s.ClientInfo().Name, "state": s.State()}, nil
			},
		},
		mcpservice.StaticTool{
			Descriptor: mcp.Tool{Name: "unencodable"},
			Handler: func(context.Context, sessions.Session, json.RawMessage) (any, error) {
				return make(chan int), nil
			},
		},
	)

	srv := mcpservice.NewServer(
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "test-server", Version: "1.2.3"}),
		mcpservice.WithToolsContainer(tools),
	)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.eng = NewEngine(srv, WithLogger(log), WithSessionIDGenerator(func() string { return "sess-1" }))
	h.sess = h.eng.NewSession("user-1")
	return h
}

func (h *testHarness) send(t *testing.T, line string) Outcome {
	t.Helper()
	msg, err := jsonrpc.Decode([]byte(line))
	if err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return h.eng.HandleMessage(context.Background(), h.sess, msg)
}

func (h *testHarness) initialize(t *testing.T) {
	t.Helper()
	out := h.send(t, `{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"clientInfo":{"name":"tester","version":"0.1"},"capabilities":{}}}`)
	if out.Response == nil || out.Response.Error != nil {
		t.Fatalf("initialize failed: %+v", out.Response)
	}
}

func expectError(t *testing.T, out Outcome, code jsonrpc.ErrorCode) *jsonrpc.Error {
	t.Helper()
	if out.Response == nil {
		t.Fatalf("expected error response, got no reply")
	}
	if out.Response.Error == nil {
		t.Fatalf("expected error %d, got result %s", code, out.Response.Result)
	}
	if out.Response.Error.Code != code {
		t.Fatalf("expected error code %d, got %d (%s)", code, out.Response.Error.Code, out.Response.Error.Message)
	}
	return out.Response.Error
}

func expectResult(t *testing.T, out Outcome) json.RawMessage {
	t.Helper()
	if out.Response == nil {
		t.Fatalf("expected result response, got no reply")
	}
	if out.Response.Error != nil {
		t.Fatalf("expected result, got error %+v", out.Response.Error)
	}
	return out.Response.Result
}

func dataMap(t *testing.T, e *jsonrpc.Error) map[string]any {
	t.Helper()
	m, ok := e.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected map data, got %T (%v)", e.Data, e.Data)
	}
	return m
}

func TestInitialize_ReportsServerAndTools(t *testing.T) {
	h := newHarness(t)
	out := h.send(t, `{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2025-06-18","clientInfo":{"name":"tester","version":"0.1"},"capabilities":{}}}`)
	raw := expectResult(t, out)

	var res struct {
		Name            string `json:"name"`
		Version         string `json:"version"`
		ProtocolVersion string `json:"protocolVersion"`
		Capabilities    struct {
			Tools []mcp.Tool `json:"tools"`
		} `json:"capabilities"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Name != "test-server" || res.Version != "1.2.3" {
		t.Fatalf("unexpected server identity: %+v", res)
	}
	if res.ProtocolVersion != "2025-06-18" {
		t.Fatalf("expected requested protocol version echoed, got %q", res.ProtocolVersion)
	}
	if len(res.Capabilities.Tools) == 0 || res.Capabilities.Tools[0].Name != "add" {
		t.Fatalf("expected tools in registration order, got %+v", res.Capabilities.Tools)
	}
	if got := h.sess.State(); got != sessions.StateReady {
		t.Fatalf("expected READY, got %s", got)
	}
	if h.sess.ClientInfo().Name != "tester" {
		t.Fatalf("expected client info recorded, got %+v", h.sess.ClientInfo())
	}
	if h.sess.SessionID() != "sess-1" || h.sess.UserID() != "user-1" {
		t.Fatalf("unexpected session identity %q/%q", h.sess.SessionID(), h.sess.UserID())
	}
}

func TestInitialize_WithoutParams(t *testing.T) {
	h := newHarness(t)
	expectResult(t, h.send(t, `{"id":1,"method":"initialize"}`))
	if h.sess.ProtocolVersion() != mcp.LatestProtocolVersion {
		t.Fatalf("expected default protocol version, got %q", h.sess.ProtocolVersion())
	}
}

func TestInitialize_InvalidParams(t *testing.T) {
	h := newHarness(t)
	expectError(t, h.send(t, `{"id":1,"method":"initialize","params":{"clientInfo":"nope"}}`), jsonrpc.ErrorCodeInvalidParams)
	if h.sess.State() != sessions.StateUninitialized {
		t.Fatalf("failed initialize must not change state, got %s", h.sess.State())
	}
}

func TestLifecycle_RequestBeforeInitialize(t *testing.T) {
	h := newHarness(t)
	for _, method := range []string{"tools/list", "tools/call", "shutdown", "ping", "no/such/method"} {
		out := h.send(t, `{"jsonrpc":"2.0","id":7,"method":"`+method+`"}`)
		rpcErr := expectError(t, out, jsonrpc.ErrorCodeInvalidRequest)
		data := dataMap(t, rpcErr)
		if data["method"] != method || data["state"] != "UNINITIALIZED" {
			t.Fatalf("%s: unexpected data %v", method, data)
		}
		if !strings.Contains(rpcErr.Message, method) || !strings.Contains(rpcErr.Message, "UNINITIALIZED") {
			t.Fatalf("%s: message should name method and state, got %q", method, rpcErr.Message)
		}
		if out.Response.ID.String() != "7" {
			t.Fatalf("%s: expected id 7 echoed, got %v", method, out.Response.ID)
		}
	}
	if h.sess.State() != sessions.StateUninitialized {
		t.Fatalf("expected state unchanged, got %s", h.sess.State())
	}
}

func TestLifecycle_SecondInitialize(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	rpcErr := expectError(t, h.send(t, `{"id":2,"method":"initialize","params":{}}`), jsonrpc.ErrorCodeInvalidRequest)
	if dataMap(t, rpcErr)["state"] != "READY" {
		t.Fatalf("expected READY in violation data, got %v", rpcErr.Data)
	}
	if h.sess.State() != sessions.StateReady {
		t.Fatalf("expected READY, got %s", h.sess.State())
	}
}

func TestNotifications_NeverAnswered(t *testing.T) {
	h := newHarness(t)

	// Before initialize: dropped.
	if out := h.send(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`); out.Response != nil {
		t.Fatalf("expected no reply, got %+v", out.Response)
	}
	h.initialize(t)

	lines := []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":3,"reason":"bored"}}`,
		`{"jsonrpc":"2.0","method":"notifications/unknown"}`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"add","arguments":{"a":1,"b":2}}}`,
	}
	for _, line := range lines {
		if out := h.send(t, line); out.Response != nil || out.Shutdown {
			t.Fatalf("%s: expected no reply, got %+v", line, out)
		}
	}
	if h.calls["add"] != 0 {
		t.Fatalf("tool invoked from a notification")
	}
}

func TestToolsList(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	raw := expectResult(t, h.send(t, `{"id":"list-1","method":"tools/list","params":{}}`))

	var res mcp.ListToolsResult
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Tools) != 7 {
		t.Fatalf("expected 7 tools, got %d", len(res.Tools))
	}
	add := res.Tools[0]
	if add.InputSchema.Type != "object" || len(add.InputSchema.Required) != 2 {
		t.Fatalf("unexpected add schema: %+v", add.InputSchema)
	}
}

func TestToolsCall_Add(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	out := h.send(t, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"add","arguments":{"a":2,"b":3}}}`)
	raw := expectResult(t, out)
	if string(raw) != "5" {
		t.Fatalf("expected 5, got %s", raw)
	}
	if out.Response.ID.String() != "1" {
		t.Fatalf("expected id 1, got %v", out.Response.ID)
	}
}

func TestToolsCall_StringIDEchoed(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	out := h.send(t, `{"id":"abc","method":"tools/call","params":{"name":"add","arguments":{"a":1,"b":1}}}`)
	expectResult(t, out)
	b, err := json.Marshal(out.Response)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"id":"abc"`) {
		t.Fatalf("expected string id echoed, got %s", b)
	}
}

func TestToolsCall_ArgumentContainers(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	cases := map[string]string{
		"arguments":  `{"id":1,"method":"tools/call","params":{"name":"args","arguments":{"x":1}}}`,
		"parameters": `{"id":1,"method":"tools/call","params":{"name":"args","parameters":{"x":1}}}`,
		"input":      `{"id":1,"method":"tools/call","params":{"name":"args","input":{"x":1}}}`,
		"precedence": `{"id":1,"method":"tools/call","params":{"name":"args","input":{"x":3},"arguments":{"x":1},"parameters":{"x":2}}}`,
	}
	for name, line := range cases {
		raw := expectResult(t, h.send(t, line))
		if string(raw) != `{"x":1}` {
			t.Fatalf("%s: expected {\"x\":1}, got %s", name, raw)
		}
	}
	raw := expectResult(t, h.send(t, `{"id":2,"method":"tools/call","params":{"name":"args"}}`))
	if string(raw) != `{}` {
		t.Fatalf("expected absent arguments to become {}, got %s", raw)
	}
}

func TestToolsCall_UnknownTool(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	rpcErr := expectError(t, h.send(t, `{"id":1,"method":"tools/call","params":{"name":"nope","arguments":{}}}`), jsonrpc.ErrorCodeMethodNotFound)
	if dataMap(t, rpcErr)["tool"] != "nope" {
		t.Fatalf("expected tool name in data, got %v", rpcErr.Data)
	}
}

func TestToolsCall_MissingName(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	for _, line := range []string{
		`{"id":1,"method":"tools/call","params":{"arguments":{}}}`,
		`{"id":1,"method":"tools/call","params":{"name":""}}`,
		`{"id":1,"method":"tools/call"}`,
	} {
		rpcErr := expectError(t, h.send(t, line), jsonrpc.ErrorCodeMethodNotFound)
		if rpcErr.Message != "tool name required" {
			t.Fatalf("unexpected message %q", rpcErr.Message)
		}
	}
}

func TestToolsCall_MissingRequiredArgument(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	rpcErr := expectError(t, h.send(t, `{"id":1,"method":"tools/call","params":{"name":"add","arguments":{"a":2}}}`), jsonrpc.ErrorCodeInvalidParams)
	data := dataMap(t, rpcErr)
	if data["tool"] != "add" || data["missing"] != "b" {
		t.Fatalf("unexpected data %v", data)
	}
	if h.calls["add"] != 0 {
		t.Fatalf("handler must not run when a required argument is missing")
	}

	rpcErr = expectError(t, h.send(t, `{"id":2,"method":"tools/call","params":{"name":"add","arguments":{}}}`), jsonrpc.ErrorCodeInvalidParams)
	if dataMap(t, rpcErr)["missing"] != "a" {
		t.Fatalf("expected first missing argument in schema order, got %v", rpcErr.Data)
	}
}

func TestToolsCall_ArgumentsMustBeObject(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	for _, args := range []string{`[1,2]`, `"a"`, `3`, `true`} {
		expectError(t, h.send(t, `{"id":1,"method":"tools/call","params":{"name":"add","arguments":`+args+`}}`), jsonrpc.ErrorCodeInvalidParams)
	}
	expectError(t, h.send(t, `{"id":1,"method":"tools/call","params":["add"]}`), jsonrpc.ErrorCodeInvalidParams)
}

func TestToolsCall_ArgumentTypeMismatch(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	rpcErr := expectError(t, h.send(t, `{"id":1,"method":"tools/call","params":{"name":"add","arguments":{"a":"two","b":3}}}`), jsonrpc.ErrorCodeInvalidParams)
	if dataMap(t, rpcErr)["tool"] != "add" {
		t.Fatalf("expected tool in data, got %v", rpcErr.Data)
	}
}

func TestToolsCall_HandlerError(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	rpcErr := expectError(t, h.send(t, `{"id":9,"method":"tools/call","params":{"name":"fail"}}`), jsonrpc.ErrorCodeInternalError)
	if rpcErr.Message != `tool "fail" failed` {
		t.Fatalf("unexpected message %q", rpcErr.Message)
	}
	data := dataMap(t, rpcErr)
	if data["tool"] != "fail" || data["message"] != "disk on fire" {
		t.Fatalf("unexpected data %v", data)
	}
	// The session survives tool failures.
	expectResult(t, h.send(t, `{"id":10,"method":"ping"}`))
}

func TestToolsCall_PanicRecovered(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	rpcErr := expectError(t, h.send(t, `{"id":1,"method":"tools/call","params":{"name":"boom"}}`), jsonrpc.ErrorCodeInternalError)
	if !strings.Contains(dataMap(t, rpcErr)["message"].(string), "kaboom") {
		t.Fatalf("expected panic value in data, got %v", rpcErr.Data)
	}
	if h.sess.State() != sessions.StateReady {
		t.Fatalf("panic must not affect session state, got %s", h.sess.State())
	}
}

func TestToolsCall_NilResultIsNull(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	out := h.send(t, `{"id":1,"method":"tools/call","params":{"name":"nothing"}}`)
	if raw := expectResult(t, out); string(raw) != "null" {
		t.Fatalf("expected null, got %s", raw)
	}
	b, _ := json.Marshal(out.Response)
	if !strings.Contains(string(b), `"result":null`) {
		t.Fatalf("expected explicit null result on the wire, got %s", b)
	}
}

func TestToolsCall_UnencodableResult(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	rpcErr := expectError(t, h.send(t, `{"id":1,"method":"tools/call","params":{"name":"unencodable"}}`), jsonrpc.ErrorCodeInternalError)
	if dataMap(t, rpcErr)["tool"] != "unencodable" {
		t.Fatalf("expected failure attributed to the tool, got %v", rpcErr.Data)
	}
}

func TestToolsCall_SeesSession(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	raw := expectResult(t, h.send(t, `{"id":1,"method":"tools/call","params":{"name":"whoami"}}`))
	if string(raw) != `{"client":"tester","state":"READY"}` {
		t.Fatalf("unexpected session view %s", raw)
	}
}

func TestUnknownMethodWhenReady(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	expectError(t, h.send(t, `{"id":1,"method":"resources/list"}`), jsonrpc.ErrorCodeMethodNotFound)
	expectError(t, h.send(t, `{"id":2,"method":"notifications/initialized"}`), jsonrpc.ErrorCodeMethodNotFound)
}

func TestPing(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	if raw := expectResult(t, h.send(t, `{"id":1,"method":"ping"}`)); string(raw) != "{}" {
		t.Fatalf("expected {}, got %s", raw)
	}
}

type closeRecorder struct{ closed int }

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestShutdown(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	out := h.send(t, `{"jsonrpc":"2.0","id":99,"method":"shutdown","params":{}}`)
	if raw := expectResult(t, out); string(raw) != "null" {
		t.Fatalf("expected null result, got %s", raw)
	}
	if !out.Shutdown {
		t.Fatalf("expected shutdown outcome")
	}
	// The reply is produced before any state change.
	if h.sess.State() != sessions.StateReady {
		t.Fatalf("expected READY until the reply is written, got %s", h.sess.State())
	}

	var c closeRecorder
	if err := h.eng.CompleteShutdown(context.Background(), h.sess, &c); err != nil {
		t.Fatalf("complete shutdown: %v", err)
	}
	if c.closed != 1 {
		t.Fatalf("expected transport closed once, got %d", c.closed)
	}
	if !h.sess.Closed() {
		t.Fatalf("expected CLOSED, got %s", h.sess.State())
	}
	if out := h.send(t, `{"id":100,"method":"ping"}`); out.Response != nil {
		t.Fatalf("closed session must not answer, got %+v", out.Response)
	}
}

func TestResponsesFromPeerIgnored(t *testing.T) {
	h := newHarness(t)
	h.initialize(t)
	if out := h.send(t, `{"jsonrpc":"2.0","id":5,"result":{}}`); out.Response != nil {
		t.Fatalf("expected no reply to a response, got %+v", out.Response)
	}
}

func TestSession_Transitions(t *testing.T) {
	s := newSession("s", "u", nil)
	if err := s.BeginShutdown(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from UNINITIALIZED, got %v", err)
	}
	if err := s.markReady(mcp.ImplementationInfo{Name: "c"}, "v"); err != nil {
		t.Fatalf("markReady: %v", err)
	}
	if err := s.markReady(mcp.ImplementationInfo{Name: "c"}, "v"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition READY -> READY, got %v", err)
	}
	if err := s.BeginShutdown(); err != nil {
		t.Fatalf("BeginShutdown: %v", err)
	}
	if err := s.transition(sessions.StateReady); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition SHUTTING_DOWN -> READY, got %v", err)
	}
	s.Close()
	s.Close()
	if !s.Closed() {
		t.Fatalf("expected CLOSED")
	}
	if err := s.transition(sessions.StateReady); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("CLOSED must be terminal, got %v", err)
	}
	if len(s.Tools()) != 0 {
		t.Fatalf("expected empty tool list for nil tool set")
	}
}

func TestToRPCError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    jsonrpc.ErrorCode
		message string
	}{
		{"parse", &jsonrpc.ParseFailure{Raw: []byte("x"), Err: errors.New("bad")}, jsonrpc.ErrorCodeParseError, "Parse error"},
		{"invalid", &jsonrpc.InvalidMessage{Reason: "missing method"}, jsonrpc.ErrorCodeInvalidRequest, "missing method"},
		{"batch", jsonrpc.ErrBatchUnsupported, jsonrpc.ErrorCodeInvalidRequest, "batch messages are not supported"},
		{"lifecycle", &LifecycleViolation{Method: "tools/list", State: sessions.StateUninitialized}, jsonrpc.ErrorCodeInvalidRequest, `method "tools/list" not allowed in state UNINITIALIZED`},
		{"protocol", methodNotFound("x"), jsonrpc.ErrorCodeMethodNotFound, `method "x" not found`},
		{"argument", &mcpservice.ArgumentError{Tool: "add", Err: errors.New("bad")}, jsonrpc.ErrorCodeInvalidParams, `invalid arguments for tool "add"`},
		{"tool", &ToolExecutionError{Tool: "t", Err: context.DeadlineExceeded}, jsonrpc.ErrorCodeInternalError, `tool "t" failed`},
		{"unknown", errors.New("secret detail"), jsonrpc.ErrorCodeInternalError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToRPCError(tc.err)
			if got.Code != tc.code || got.Message != tc.message {
				t.Fatalf("expected %d %q, got %d %q", tc.code, tc.message, got.Code, got.Message)
			}
		})
	}
	if ToRPCError(errors.New("secret detail")).Data != nil {
		t.Fatalf("unrecognized errors must not leak data")
	}
	if ToRPCError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestDecodeErrorResponse(t *testing.T) {
	_, err := jsonrpc.Decode([]byte(`{"jsonrpc":"1.0","id":4,"method":"ping"}`))
	res := DecodeErrorResponse(err)
	if res.Error.Code != jsonrpc.ErrorCodeInvalidRequest || res.ID.String() != "4" {
		t.Fatalf("expected invalid request echoing id 4, got %+v (id %v)", res.Error, res.ID)
	}

	_, err = jsonrpc.Decode([]byte(`not json`))
	res = DecodeErrorResponse(err)
	b, _ := json.Marshal(res)
	if res.Error.Code != jsonrpc.ErrorCodeParseError || !strings.Contains(string(b), `"id":null`) {
		t.Fatalf("expected parse error with null id, got %s", b)
	}
}

func TestNormalizeCallParams(t *testing.T) {
	got, err := normalizeCallParams(json.RawMessage(`{"name":"x","parameters":{"a":1},"input":{"a":2}}`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(got, &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(fields["arguments"]) != `{"a":1}` {
		t.Fatalf("expected parameters promoted to arguments, got %s", got)
	}
	if _, ok := fields["input"]; ok {
		t.Fatalf("expected other containers removed, got %s", got)
	}
	if _, err := normalizeCallParams(json.RawMessage(`[1]`)); err == nil {
		t.Fatalf("expected error for non-object params")
	}
}
