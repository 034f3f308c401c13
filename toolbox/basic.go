package toolbox

import (
	"context"

	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
	"github.com/ggoodman/mcp-stdio-go/storage"
)

type addArgs struct {
	A float64 `json:"a" jsonschema:"description=First addend"`
	B float64 `json:"b" jsonschema:"description=Second addend"`
}

// Add returns the sum of two numbers.
func Add() mcpservice.StaticTool {
	return mcpservice.NewTool[addArgs]("add", func(ctx context.Context, s sessions.Session, a addArgs) (any, error) {
		return a.A + a.B, nil
	}, mcpservice.WithToolDescription("Add two numbers and return the sum"))
}

type echoArgs struct {
	Message string `json:"message" jsonschema:"description=Text to return"`
}

// Echo returns its input.
func Echo() mcpservice.StaticTool {
	return mcpservice.NewTool[echoArgs]("echo", func(ctx context.Context, s sessions.Session, a echoArgs) (any, error) {
		return a.Message, nil
	}, mcpservice.WithToolDescription("Return the given message unchanged"))
}

type setNamespaceArgs struct {
	Namespace string `json:"namespace" jsonschema:"description=Namespace for subsequent kv operations"`
}

type namespaceResult struct {
	Namespace string `json:"namespace"`
	Previous  string `json:"previous,omitempty"`
}

// SetNamespace selects the namespace used by the kv tools for the rest of
// the session.
func SetNamespace() mcpservice.StaticTool {
	return mcpservice.NewTool[setNamespaceArgs]("set_namespace", func(ctx context.Context, s sessions.Session, a setNamespaceArgs) (any, error) {
		if err := storage.ValidateNamespace(a.Namespace); err != nil {
			return nil, &mcpservice.ArgumentError{Tool: "set_namespace", Err: err}
		}
		prev := s.Values().Namespace()
		s.Values().SetNamespace(a.Namespace)
		return namespaceResult{Namespace: a.Namespace, Previous: prev}, nil
	}, mcpservice.WithToolDescription("Select the key/value namespace for this session"))
}

// GetNamespace reports the session's current namespace.
func GetNamespace() mcpservice.StaticTool {
	return mcpservice.NewTool[struct{}]("get_namespace", func(ctx context.Context, s sessions.Session, _ struct{}) (any, error) {
		return namespaceResult{Namespace: s.Values().Namespace()}, nil
	}, mcpservice.WithToolDescription("Report the key/value namespace selected for this session"))
}
