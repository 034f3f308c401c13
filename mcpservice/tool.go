package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/sessions"
	"github.com/invopop/jsonschema"
)

// ArgumentError reports tool arguments that could not be decoded into the
// tool's argument type. The engine maps it to an invalid-params error rather
// than a tool failure.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ToolOption configures NewTool behavior.
type ToolOption func(*toolConfig)

type toolConfig struct {
	description               string
	allowAdditionalProperties bool // default false (strict)
}

// WithToolDescription sets the tool description used in listings.
func WithToolDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// WithToolAllowAdditionalProperties controls whether unknown fields are allowed.
// When false (default), the generated schema sets additionalProperties=false and
// runtime decoding rejects unknown fields.
func WithToolAllowAdditionalProperties(allow bool) ToolOption {
	return func(c *toolConfig) { c.allowAdditionalProperties = allow }
}

// NewTool constructs a StaticTool from a typed args struct A. It:
//   - Reflects a JSON Schema from A using invopop/jsonschema; fields without
//     omitempty become required parameters
//   - Down-converts it to the simplified mcp.ToolInputSchema
//   - Wraps fn with runtime JSON decoding (rejecting unknown fields by default)
func NewTool[A any](name string, fn func(ctx context.Context, session sessions.Session, args A) (any, error), opts ...ToolOption) StaticTool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	desc := mcp.Tool{
		Name:        name,
		Description: cfg.description,
		InputSchema: reflectToMCPInputSchema[A](cfg.allowAdditionalProperties),
	}

	handler := func(ctx context.Context, session sessions.Session, raw json.RawMessage) (any, error) {
		a, err := decodeArgs[A](name, raw, cfg.allowAdditionalProperties)
		if err != nil {
			return nil, err
		}
		return fn(ctx, session, a)
	}
	return StaticTool{Descriptor: desc, Handler: handler}
}

// NewAsyncTool is the asynchronous counterpart of NewTool. Argument decoding
// happens before fn is started; fn delivers its outcome on the returned
// channel and the engine waits on it through Await.
func NewAsyncTool[A any](name string, fn func(ctx context.Context, session sessions.Session, args A) <-chan ToolOutcome, opts ...ToolOption) StaticTool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	desc := mcp.Tool{
		Name:        name,
		Description: cfg.description,
		InputSchema: reflectToMCPInputSchema[A](cfg.allowAdditionalProperties),
	}

	async := func(ctx context.Context, session sessions.Session, raw json.RawMessage) <-chan ToolOutcome {
		a, err := decodeArgs[A](name, raw, cfg.allowAdditionalProperties)
		if err != nil {
			return Completed(nil, err)
		}
		return fn(ctx, session, a)
	}
	return StaticTool{Descriptor: desc, Handler: Await(async)}
}

// TypedTool wraps a strongly typed args function into a StaticTool using a
// hand-written descriptor.
func TypedTool[A any](desc mcp.Tool, fn func(ctx context.Context, session sessions.Session, args A) (any, error)) StaticTool {
	return StaticTool{
		Descriptor: desc,
		Handler: func(ctx context.Context, session sessions.Session, raw json.RawMessage) (any, error) {
			a, err := decodeArgs[A](desc.Name, raw, true)
			if err != nil {
				return nil, err
			}
			return fn(ctx, session, a)
		},
	}
}

func decodeArgs[A any](tool string, raw json.RawMessage, allowAdditional bool) (A, error) {
	var a A
	if len(raw) == 0 {
		return a, nil
	}
	if allowAdditional {
		if err := json.Unmarshal(raw, &a); err != nil {
			return a, &ArgumentError{Tool: tool, Err: err}
		}
		return a, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return a, &ArgumentError{Tool: tool, Err: err}
	}
	return a, nil
}

// reflectToMCPInputSchema reflects a Go type A into a jsonschema.Schema, and
// converts it to the simplified mcp.ToolInputSchema. Unknown field policy is
// surfaced via the AdditionalProperties flag on the returned schema.
func reflectToMCPInputSchema[A any](allowAdditional bool) mcp.ToolInputSchema {
	empty := mcp.ToolInputSchema{
		Type:                 "object",
		Properties:           map[string]mcp.SchemaProperty{},
		AdditionalProperties: allowAdditional,
	}

	t := reflect.TypeFor[A]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct && t.NumField() == 0 {
		return empty
	}

	// Expanding looks the root up by type name, which anonymous types lack.
	expand := t.Name() != ""
	r := &jsonschema.Reflector{
		DoNotReference:            true,   // inline defs
		ExpandedStruct:            expand, // put struct at root
		AllowAdditionalProperties: allowAdditional,
	}
	s := r.Reflect(new(A))

	// Only object schemas map cleanly to ToolInputSchema. If not an object,
	// expose an empty object with the configured additionalProperties policy.
	if s == nil || s.Type != "object" {
		return empty
	}

	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toMCPProperty(el.Value)
		}
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}

	return mcp.ToolInputSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: allowAdditional,
	}
}

// toMCPProperty recursively maps a jsonschema.Schema to the simplified MCP SchemaProperty.
func toMCPProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toMCPProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toMCPProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}
