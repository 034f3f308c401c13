package toolbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/sessions"
)

const defaultWatchTimeout = 30 * time.Second

type waitForFileArgs struct {
	Path           string  `json:"path" jsonschema:"description=File to wait for"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" jsonschema:"description=Give up after this many seconds"`
}

type waitForFileResult struct {
	Path  string `json:"path"`
	Event string `json:"event"`
}

// WaitForFile blocks until path exists or is written. It is an asynchronous
// tool: the watcher runs on its own goroutine and delivers the outcome on a
// channel.
func WaitForFile(cfg WatchConfig) mcpservice.StaticTool {
	limit := cfg.Timeout
	if limit <= 0 {
		limit = defaultWatchTimeout
	}

	return mcpservice.NewAsyncTool[waitForFileArgs]("wait_for_file", func(ctx context.Context, s sessions.Session, a waitForFileArgs) <-chan mcpservice.ToolOutcome {
		if a.Path == "" {
			return mcpservice.Completed(nil, &mcpservice.ArgumentError{Tool: "wait_for_file", Err: errors.New("path is required")})
		}
		timeout := limit
		if a.TimeoutSeconds > 0 {
			timeout = min(time.Duration(a.TimeoutSeconds*float64(time.Second)), limit)
		}
		return watchFile(ctx, a.Path, timeout)
	}, mcpservice.WithToolDescription("Wait until a file is created or written"))
}

func watchFile(ctx context.Context, path string, timeout time.Duration) <-chan mcpservice.ToolOutcome {
	target, err := filepath.Abs(path)
	if err != nil {
		return mcpservice.Completed(nil, err)
	}
	if _, err := os.Stat(target); err == nil {
		return mcpservice.Completed(waitForFileResult{Path: target, Event: "exists"}, nil)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return mcpservice.Completed(nil, fmt.Errorf("create watcher: %w", err))
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return mcpservice.Completed(nil, fmt.Errorf("watch %s: %w", filepath.Dir(target), err))
	}

	ch := make(chan mcpservice.ToolOutcome, 1)
	go func() {
		defer close(ch)
		defer func() {
			_ = w.Close()
		}()

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		// The file may have appeared before the watch was established.
		if _, err := os.Stat(target); err == nil {
			ch <- mcpservice.ToolOutcome{Value: waitForFileResult{Path: target, Event: "exists"}}
			return
		}

		for {
			select {
			case <-ctx.Done():
				ch <- mcpservice.ToolOutcome{Err: fmt.Errorf("waiting for %s: %w", target, context.Cause(ctx))}
				return
			case ev, ok := <-w.Events:
				if !ok {
					ch <- mcpservice.ToolOutcome{Err: errors.New("watcher closed")}
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				event := "write"
				if ev.Op&fsnotify.Create != 0 {
					event = "create"
				}
				ch <- mcpservice.ToolOutcome{Value: waitForFileResult{Path: target, Event: event}}
				return
			case err, ok := <-w.Errors:
				if !ok {
					ch <- mcpservice.ToolOutcome{Err: errors.New("watcher closed")}
					return
				}
				ch <- mcpservice.ToolOutcome{Err: fmt.Errorf("watch %s: %w", target, err)}
				return
			}
		}
	}()
	return ch
}
