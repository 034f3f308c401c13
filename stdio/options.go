package stdio

import (
	"io"
	"log/slog"

	"github.com/ggoodman/mcp-stdio-go/internal/engine"
)

// Option customizes a Handler.
type Option func(*Handler)

// WithIO sets the reader and writer for the handler.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
		if w != nil {
			h.w = w
		}
	}
}

// WithReader overrides the input stream.
func WithReader(r io.Reader) Option {
	return func(h *Handler) {
		if r != nil {
			h.r = r
		}
	}
}

// WithWriter overrides the output stream.
func WithWriter(w io.Writer) Option {
	return func(h *Handler) {
		if w != nil {
			h.w = w
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.l = l
		}
	}
}

// WithUserProvider overrides how the peer's user id is resolved.
func WithUserProvider(up UserProvider) Option {
	return func(h *Handler) {
		if up != nil {
			h.userProvider = up
		}
	}
}

// WithMaxMessageSize bounds the size of a single inbound line. Longer lines
// are answered with an Invalid Request error and skipped.
func WithMaxMessageSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxMessageSize = n
		}
	}
}

// WithSessionIDGenerator overrides how the session id is minted. The default
// is a random UUID.
func WithSessionIDGenerator(fn func() string) Option {
	return func(h *Handler) {
		if fn != nil {
			h.engineOpts = append(h.engineOpts, engine.WithSessionIDGenerator(fn))
		}
	}
}
