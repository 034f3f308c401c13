package stdio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/ggoodman/mcp-stdio-go/internal/engine"
	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-stdio-go/internal/logctx"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
)

// maxLoggedInput caps how much of an undecodable line is logged.
const maxLoggedInput = 512

// ErrAlreadyServing is returned by a second call to Serve.
var ErrAlreadyServing = errors.New("stdio: handler already serving")

// TransportError reports a failure of the underlying byte stream. It ends
// the session and is returned by Serve; it is never sent to the peer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stdio: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Handler is a single-connection stdio transport that reads JSON-RPC messages
// from an io.Reader and writes responses to an io.Writer. By default, it uses
// os.Stdin and os.Stdout. The peer is identified using a UserProvider, which
// defaults to the current OS user ID.
//
// The handler is transport-only; it delegates all MCP semantics to the
// protocol engine built from the provided mcpservice.Server.
type Handler struct {
	srv            *mcpservice.Server
	r              io.Reader
	w              io.Writer
	l              *slog.Logger
	userProvider   UserProvider
	maxMessageSize int
	engineOpts     []engine.EngineOption

	serving atomic.Bool
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv *mcpservice.Server, opts ...Option) *Handler {
	h := &Handler{
		srv:            srv,
		r:              os.Stdin,
		w:              os.Stdout,
		l:              slog.Default(),
		userProvider:   OSUserProvider{},
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Serve runs the session until the peer completes shutdown, the input ends,
// or ctx is cancelled. Messages are handled strictly one at a time: each reply
// is written and flushed before the next line is read.
//
// Serve returns nil after shutdown or end of input, ctx.Err() after
// cancellation and a *TransportError when the stream fails. It may be called
// at most once per Handler.
func (h *Handler) Serve(ctx context.Context) error {
	if !h.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}

	log := logctx.Wrap(h.l)

	userID, err := h.userProvider.CurrentUserID()
	if err != nil || userID == "" {
		log.WarnContext(ctx, "stdio.user.unresolved", slog.Any("err", err))
		userID = anonymousUserID
	}

	eng := engine.NewEngine(h.srv, append([]engine.EngineOption{engine.WithLogger(log)}, h.engineOpts...)...)
	sess := eng.NewSession(userID)
	ctx = logctx.WithSessionData(ctx, sess.LogData())

	tr := NewTransport(h.r, h.w, h.maxMessageSize)
	stop := context.AfterFunc(ctx, tr.closeReader)
	defer stop()

	log.InfoContext(ctx, "stdio.session.start")

	lines, next := readLines(tr)
	defer close(next)

	for {
		var line []byte
		var err error
		next <- struct{}{}
		select {
		case <-ctx.Done():
			// The reader may be parked in a read that Close cannot
			// interrupt, such as a terminal stdin; leave it behind.
			sess.Close()
			log.InfoContext(ctx, "stdio.session.closed", slog.String("reason", "cancelled"))
			return ctx.Err()
		case r := <-lines:
			line, err = r.line, r.err
		}
		if err != nil {
			if errors.Is(err, ErrMessageTooLarge) {
				log.WarnContext(ctx, "stdio.read.too_large", slog.Int("max_bytes", h.maxMessageSize))
				tooLarge := &engine.ProtocolError{
					Code:    jsonrpc.ErrorCodeInvalidRequest,
					Message: fmt.Sprintf("message exceeds %d bytes", h.maxMessageSize),
				}
				if err := h.write(tr, engine.NewErrorResponse(nil, tooLarge)); err != nil {
					sess.Close()
					return err
				}
				continue
			}

			sess.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				log.InfoContext(ctx, "stdio.session.closed", slog.String("reason", "cancelled"))
				return ctxErr
			}
			if errors.Is(err, ErrClosed) {
				log.InfoContext(ctx, "stdio.session.closed", slog.String("reason", "eof"))
				return nil
			}
			log.ErrorContext(ctx, "stdio.read.fail", slog.String("err", err.Error()))
			return &TransportError{Op: "read", Err: err}
		}

		msg, err := jsonrpc.Decode(line)
		if err != nil {
			log.InfoContext(ctx, "stdio.decode.fail",
				slog.String("err", err.Error()),
				slog.String("raw", truncate(line, maxLoggedInput)),
			)
			if err := h.write(tr, engine.DecodeErrorResponse(err)); err != nil {
				sess.Close()
				return err
			}
			continue
		}

		out := eng.HandleMessage(ctx, sess, msg)
		if out.Response != nil {
			if err := h.write(tr, out.Response); err != nil {
				sess.Close()
				return err
			}
		}
		if out.Shutdown {
			stop()
			if err := eng.CompleteShutdown(ctx, sess, tr); err != nil {
				log.WarnContext(ctx, "stdio.close.fail", slog.String("err", err.Error()))
			}
			return nil
		}
	}
}

type readResult struct {
	line []byte
	err  error
}

// readLines reads one line from tr for every value sent on next, so nothing
// is read ahead of the session. The goroutine exits when next is closed.
func readLines(tr *Transport) (<-chan readResult, chan<- struct{}) {
	lines := make(chan readResult, 1)
	next := make(chan struct{})
	go func() {
		for range next {
			line, err := tr.ReadLine()
			lines <- readResult{line: line, err: err}
		}
	}()
	return lines, next
}

func (h *Handler) write(tr *Transport, res *jsonrpc.Response) error {
	if err := tr.WriteMessage(res); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
