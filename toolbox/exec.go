package toolbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"time"

	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
)

const defaultExecTimeout = 10 * time.Second

// maxExecOutput caps each captured stream.
const maxExecOutput = 1 << 20

type execArgs struct {
	Command string   `json:"command" jsonschema:"description=Name of an allowed command"`
	Args    []string `json:"args,omitempty" jsonschema:"description=Command arguments"`
}

type execResult struct {
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ExitCode  int    `json:"exit_code"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ErrCommandNotAllowed is returned for commands missing from the allow-list.
var ErrCommandNotAllowed = errors.New("command not allowed")

// Exec runs an allow-listed command without a shell. A non-zero exit status
// is reported in the result, not as a failure.
func Exec(cfg ExecConfig) mcpservice.StaticTool {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	allow := slices.Clone(cfg.Allow)

	return mcpservice.NewTool[execArgs]("exec", func(ctx context.Context, s sessions.Session, a execArgs) (any, error) {
		if !slices.Contains(allow, a.Command) {
			return nil, &mcpservice.ArgumentError{Tool: "exec", Err: fmt.Errorf("%w: %q", ErrCommandNotAllowed, a.Command)}
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		stdout := &cappedBuffer{max: maxExecOutput}
		stderr := &cappedBuffer{max: maxExecOutput}
		cmd := exec.CommandContext(ctx, a.Command, a.Args...)
		cmd.Stdout = stdout
		cmd.Stderr = stderr

		err := cmd.Run()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", a.Command, ctxErr)
		}
		res := execResult{
			Stdout:    stdout.String(),
			Stderr:    stderr.String(),
			Truncated: stdout.truncated || stderr.truncated,
		}
		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("run %s: %w", a.Command, err)
		}
		return res, nil
	}, mcpservice.WithToolDescription(fmt.Sprintf("Run one of the allowed commands %v and capture its output", allow)))
}

// cappedBuffer keeps the first max bytes written to it and discards the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.max - c.buf.Len()
	if room <= 0 {
		c.truncated = len(p) > 0 || c.truncated
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.truncated = true
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string { return c.buf.String() }
