package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ggoodman/mcp-stdio-go/broker"
	brokermem "github.com/ggoodman/mcp-stdio-go/broker/memory"
	brokerredis "github.com/ggoodman/mcp-stdio-go/broker/redis"
	"github.com/ggoodman/mcp-stdio-go/internal/config"
	"github.com/ggoodman/mcp-stdio-go/mcp"
	"github.com/ggoodman/mcp-stdio-go/mcpservice"
	"github.com/ggoodman/mcp-stdio-go/stdio"
	"github.com/ggoodman/mcp-stdio-go/storage"
	"github.com/ggoodman/mcp-stdio-go/storage/memory"
	"github.com/ggoodman/mcp-stdio-go/storage/redis"
	"github.com/ggoodman/mcp-stdio-go/toolbox"
)

type rootFlags struct {
	configFile string
	envFile    string
}

// rootCmd wires the sub-commands. Running the binary without a sub-command
// serves.
func rootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:          "mcp-stdio-server",
		Short:        "MCP tool server speaking line-delimited JSON-RPC on stdin/stdout.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &flags)
		},
	}
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file loaded into the environment before configuration")

	cmd.AddCommand(
		serveCmd(&flags),
		toolsCmd(&flags),
		versionCmd(&flags),
	)
	return cmd
}

func serveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tools until the client sends shutdown or closes stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
}

// Print the descriptors of the enabled tools as JSON.
func toolsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the enabled tool descriptors.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// Descriptors do not depend on the backend, so throwaway
			// in-memory collaborators stand in for redis.
			deps := toolboxDeps(cfg, nil)
			if cfg.KV.Backend != config.BackendNone {
				mem, err := memory.New(1)
				if err != nil {
					return err
				}
				defer mem.Close()
				deps.Store = mem
				deps.Feed = brokermem.New()
			}
			return printTools(cmd.OutOrStdout(), toolbox.All(deps))
		},
	}
}

func versionCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server name, version and protocol version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			srv := newServer(cfg, nil)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (protocol %s)\n",
				srv.Info().Name, srv.Info().Version, srv.NegotiateProtocolVersion(""))
			return err
		},
	}
}

func loadConfig(flags *rootFlags) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		ConfigFile: flags.configFile,
		EnvFile:    flags.envFile,
	})
}

func runServe(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := cfg.NewLogger(cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, feed, err := openKV(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("kv.close.fail", slog.String("err", err.Error()))
			}
		}()
	}

	tools := mcpservice.NewToolsContainer()
	deps := toolboxDeps(cfg, store)
	deps.Feed = feed
	if err := toolbox.Register(tools, deps); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}
	srv := newServer(cfg, tools)

	opts := []stdio.Option{
		stdio.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
		stdio.WithLogger(log),
		stdio.WithMaxMessageSize(cfg.Server.MaxMessageBytes),
	}
	if cfg.Server.UserID != "" {
		opts = append(opts, stdio.WithUserProvider(stdio.StaticUser(cfg.Server.UserID)))
	}

	log.Info("server.start",
		slog.String("name", cfg.Server.Name),
		slog.String("kv_backend", cfg.KV.Backend),
		slog.Int("tools", tools.Len()),
	)
	err = stdio.NewHandler(srv, opts...).Serve(ctx)
	if errors.Is(err, context.Canceled) {
		// Interrupted by a signal: a normal way to stop.
		log.Info("server.stop", slog.String("reason", "signal"))
		return nil
	}
	return err
}

func newServer(cfg *config.Config, tools *mcpservice.ToolsContainer) *mcpservice.Server {
	opts := []mcpservice.ServerOption{
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: cfg.Server.Name, Version: cfg.Server.Version}),
	}
	if cfg.Server.Instructions != "" {
		opts = append(opts, mcpservice.WithInstructions(cfg.Server.Instructions))
	}
	if cfg.Server.ProtocolVersion != "" {
		opts = append(opts, mcpservice.WithProtocolVersion(cfg.Server.ProtocolVersion))
	}
	if tools != nil {
		opts = append(opts, mcpservice.WithToolsContainer(tools))
	}
	return mcpservice.NewServer(opts...)
}

// openKV opens the configured kv backend and its change feed. Both are nil
// for the none backend.
func openKV(ctx context.Context, cfg *config.Config) (storage.Storage, broker.Broker, error) {
	switch cfg.KV.Backend {
	case config.BackendMemory:
		st, err := memory.New(cfg.KV.MaxItems)
		if err != nil {
			return nil, nil, fmt.Errorf("create kv backend: %w", err)
		}
		return st, brokermem.New(), nil
	case config.BackendRedis:
		st, err := redis.Dial(ctx, cfg.KV.RedisAddr, cfg.KV.RedisDB, cfg.KV.Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("connect kv backend: %w", err)
		}
		feed, err := brokerredis.New(brokerredis.Config{Client: st.Client()})
		if err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		return st, feed, nil
	default:
		return nil, nil, nil
	}
}

func toolboxDeps(cfg *config.Config, store storage.Storage) toolbox.Deps {
	deps := toolbox.Deps{Store: store}
	if len(cfg.Exec.Allow) > 0 {
		deps.Exec = &toolbox.ExecConfig{Allow: cfg.Exec.Allow, Timeout: cfg.Exec.Timeout}
	}
	if cfg.HTTP.Enabled {
		deps.HTTP = &toolbox.HTTPConfig{Timeout: cfg.HTTP.Timeout, MaxBodyBytes: cfg.HTTP.MaxBodyBytes}
	}
	if cfg.Watch.Enabled {
		deps.Watch = &toolbox.WatchConfig{Timeout: cfg.Watch.Timeout}
	}
	return deps
}

func printTools(w io.Writer, tools []mcpservice.StaticTool) error {
	descs := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		descs = append(descs, t.Descriptor)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(descs)
}
