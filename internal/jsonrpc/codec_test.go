package jsonrpc

import (
	"errors"
	"strings"
	"testing"
)

func TestDecode_Request(t *testing.T) {
	msg, err := Decode([]byte(`{"id":1,"method":"initialize","params":{}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type() != "request" {
		t.Fatalf("expected request, got %s", msg.Type())
	}
	if msg.ID.Value() != int64(1) {
		t.Fatalf("expected id 1, got %#v", msg.ID.Value())
	}
	if msg.JSONRPCVersion != ProtocolVersion {
		t.Fatalf("expected version to default to %q, got %q", ProtocolVersion, msg.JSONRPCVersion)
	}
}

func TestDecode_Notification(t *testing.T) {
	msg, err := Decode([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type() != "notification" {
		t.Fatalf("expected notification, got %s", msg.Type())
	}
}

func TestDecode_StringIDStaysString(t *testing.T) {
	msg, err := Decode([]byte(`{"id":"42","method":"tools/list"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.ID.Value() != "42" {
		t.Fatalf("expected string id, got %#v", msg.ID.Value())
	}
	b, err := Encode(NewErrorResponse(msg.ID, ErrorCodeInternalError, "x", nil))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(b), `"id":"42"`) {
		t.Fatalf("id not echoed verbatim: %s", b)
	}
}

func TestDecode_RecoversEmbeddedObject(t *testing.T) {
	msg, err := Decode([]byte(`[stderr noise] {"id":7,"method":"ping"} trailing`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Method != "ping" || msg.ID.String() != "7" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestDecode_ParseFailure(t *testing.T) {
	raw := []byte(`{"id":1,"method":`)
	_, err := Decode(raw)
	var pf *ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected ParseFailure, got %v", err)
	}
	if string(pf.Raw) != string(raw) {
		t.Fatalf("expected raw input to be preserved, got %q", pf.Raw)
	}
}

func TestDecode_NoBraces(t *testing.T) {
	_, err := Decode([]byte("hello world"))
	var pf *ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected ParseFailure, got %v", err)
	}
}

func TestDecode_BatchRejected(t *testing.T) {
	_, err := Decode([]byte(`[{"id":1,"method":"ping"}]`))
	if !errors.Is(err, ErrBatchUnsupported) {
		t.Fatalf("expected ErrBatchUnsupported, got %v", err)
	}
}

func TestDecode_InvalidMessages(t *testing.T) {
	cases := map[string]struct {
		line   string
		wantID string
	}{
		"wrong version":         {`{"jsonrpc":"1.0","id":3,"method":"ping"}`, "3"},
		"method type":           {`{"id":4,"method":5}`, "4"},
		"request with result":   {`{"id":5,"method":"ping","result":{}}`, "5"},
		"null id":               {`{"id":null,"method":"ping"}`, ""},
		"empty object":          {`{}`, ""},
		"scalar":                {`42`, ""},
		"both result and error": {`{"id":6,"result":1,"error":{"code":1,"message":"x"}}`, "6"},
		"params scalar":         {`{"id":8,"method":"ping","params":3}`, "8"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(tc.line))
			var im *InvalidMessage
			if !errors.As(err, &im) {
				t.Fatalf("expected InvalidMessage, got %v", err)
			}
			if im.ID.String() != tc.wantID {
				t.Fatalf("expected id %q, got %q", tc.wantID, im.ID.String())
			}
		})
	}
}

func TestEncode_NullResultAndNullID(t *testing.T) {
	res, err := NewResultResponse(NewRequestID(int64(4)), nil)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	b, err := Encode(res)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := string(b); got != `{"jsonrpc":"2.0","result":null,"id":4}` {
		t.Fatalf("unexpected encoding: %s", got)
	}

	b, err = Encode(NewErrorResponse(nil, ErrorCodeParseError, "Parse error", nil))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := string(b); got != `{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error"},"id":null}` {
		t.Fatalf("unexpected encoding: %s", got)
	}
}

func TestEncode_NoRawNewlines(t *testing.T) {
	res, err := NewResultResponse(NewRequestID("a"), map[string]string{"text": "line1\nline2"})
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	b, err := Encode(res)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.ContainsRune(string(b), '\n') {
		t.Fatalf("encoded message contains a raw newline: %q", b)
	}
}

func TestAnyMessage_RoundTripResponse(t *testing.T) {
	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":4,"result":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type() != "response" {
		t.Fatalf("expected response, got %s", msg.Type())
	}
	if string(msg.AsResponse().Result) != "null" {
		t.Fatalf("expected null result, got %s", msg.AsResponse().Result)
	}
}
