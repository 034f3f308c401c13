package stdio

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/ggoodman/mcp-stdio-go/internal/jsonrpc"
)

// DefaultMaxMessageSize bounds a single inbound line.
const DefaultMaxMessageSize = 4 << 20

var (
	// ErrClosed is returned once the input stream has ended or the transport
	// has been closed.
	ErrClosed = errors.New("stdio: transport closed")
	// ErrMessageTooLarge is returned for a line longer than the configured
	// maximum. The line is consumed so reading can continue.
	ErrMessageTooLarge = errors.New("stdio: message too large")
)

// Transport frames messages as newline-terminated lines over a reader and a
// writer. Reads are expected from a single goroutine; writes are serialized.
type Transport struct {
	r       *bufio.Reader
	w       *bufio.Writer
	rc      io.Closer
	wc      io.Closer
	maxLine int

	wmu       sync.Mutex
	closed    atomic.Bool
	rclosed   atomic.Bool
	rcOnce    sync.Once
	rcErr     error
	closeOnce sync.Once
	closeErr  error
}

// NewTransport wraps r and w. A maxLine of zero or less selects
// DefaultMaxMessageSize. The reader and writer are closed by Close when they
// implement io.Closer.
func NewTransport(r io.Reader, w io.Writer, maxLine int) *Transport {
	if maxLine <= 0 {
		maxLine = DefaultMaxMessageSize
	}
	t := &Transport{
		r:       bufio.NewReader(r),
		w:       bufio.NewWriter(w),
		maxLine: maxLine,
	}
	if c, ok := r.(io.Closer); ok {
		t.rc = c
	}
	if c, ok := w.(io.Closer); ok && !sameStream(r, w) {
		t.wc = c
	}
	return t
}

// ReadLine returns the next non-blank line without its terminator. A final
// line without a terminator is still returned; after that ReadLine reports
// ErrClosed.
func (t *Transport) ReadLine() ([]byte, error) {
	for {
		line, err := t.readRaw()
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return line, nil
	}
}

func (t *Transport) readRaw() ([]byte, error) {
	var buf []byte
	tooLarge := false
	for {
		chunk, err := t.r.ReadSlice('\n')
		if !tooLarge {
			buf = append(buf, chunk...)
			if len(trimTerminator(buf)) > t.maxLine {
				tooLarge = true
				buf = nil
			}
		}

		switch {
		case err == nil:
			if tooLarge {
				return nil, ErrMessageTooLarge
			}
			return trimTerminator(buf), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLarge {
				return nil, ErrMessageTooLarge
			}
			if len(buf) > 0 {
				return trimTerminator(buf), nil
			}
			return nil, ErrClosed
		case t.rclosed.Load():
			return nil, ErrClosed
		default:
			return nil, err
		}
	}
}

func trimTerminator(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}

// WriteMessage encodes v as a single line and flushes it.
func (t *Transport) WriteMessage(v any) error {
	b, err := jsonrpc.Encode(v)
	if err != nil {
		return err
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()
	if t.closed.Load() {
		return ErrClosed
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return err
	}
	return t.w.Flush()
}

// Close closes the underlying streams. It is safe to call more than once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.wmu.Lock()
		defer t.wmu.Unlock()
		t.closed.Store(true)
		errs := []error{t.closeReaderOnce()}
		if t.wc != nil {
			errs = append(errs, t.wc.Close())
		}
		t.closeErr = errors.Join(errs...)
	})
	return t.closeErr
}

// closeReader unblocks a pending ReadLine without closing the writer.
func (t *Transport) closeReader() {
	_ = t.closeReaderOnce()
}

func (t *Transport) closeReaderOnce() error {
	t.rcOnce.Do(func() {
		t.rclosed.Store(true)
		if t.rc != nil {
			t.rcErr = t.rc.Close()
		}
	})
	return t.rcErr
}

// sameStream reports whether r and w are the same value, as with a net.Conn
// passed for both directions.
func sameStream(r io.Reader, w io.Writer) bool {
	rv, wv := reflect.ValueOf(r), reflect.ValueOf(w)
	if !rv.IsValid() || !wv.IsValid() || rv.Type() != wv.Type() || !rv.Comparable() {
		return false
	}
	return rv.Equal(wv)
}
