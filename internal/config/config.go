// Package config loads the server binary's settings. Values are layered:
// built-in defaults, then an optional YAML file, then the environment
// (optionally seeded from a dotenv file).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	KV     KVConfig     `yaml:"kv"`
	Exec   ExecConfig   `yaml:"exec"`
	HTTP   HTTPConfig   `yaml:"http"`
	Watch  WatchConfig  `yaml:"watch"`
}

type ServerConfig struct {
	// Name and Version are reported by initialize. ENV: MCP_SERVER_NAME, MCP_SERVER_VERSION
	Name    string `yaml:"name" env:"MCP_SERVER_NAME"`
	Version string `yaml:"version" env:"MCP_SERVER_VERSION"`
	// Instructions is optional free text returned by initialize.
	Instructions string `yaml:"instructions" env:"MCP_INSTRUCTIONS"`
	// ProtocolVersion pins the reported protocol version when set.
	ProtocolVersion string `yaml:"protocol_version" env:"MCP_PROTOCOL_VERSION"`
	// MaxMessageBytes bounds one inbound line.
	MaxMessageBytes int `yaml:"max_message_bytes" env:"MCP_MAX_MESSAGE_BYTES"`
	// UserID overrides the OS user that labels the session.
	UserID string `yaml:"user_id" env:"MCP_USER_ID"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error. ENV: MCP_LOG_LEVEL
	Level string `yaml:"level" env:"MCP_LOG_LEVEL"`
	// Format is text or json. ENV: MCP_LOG_FORMAT
	Format string `yaml:"format" env:"MCP_LOG_FORMAT"`
}

type KVConfig struct {
	// Backend is memory, redis or none. ENV: MCP_KV_BACKEND
	Backend   string `yaml:"backend" env:"MCP_KV_BACKEND"`
	Prefix    string `yaml:"prefix" env:"MCP_KV_PREFIX"`
	MaxItems  int    `yaml:"max_items" env:"MCP_KV_MAX_ITEMS"`
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB   int    `yaml:"redis_db" env:"REDIS_DB"`
}

type ExecConfig struct {
	// Allow lists runnable commands; empty disables the exec tool.
	// ENV: MCP_EXEC_ALLOW, separated by ';'
	Allow   []string      `yaml:"allow" env:"MCP_EXEC_ALLOW"`
	Timeout time.Duration `yaml:"timeout" env:"MCP_EXEC_TIMEOUT"`
}

type HTTPConfig struct {
	Enabled      bool          `yaml:"enabled" env:"MCP_HTTP_ENABLED"`
	Timeout      time.Duration `yaml:"timeout" env:"MCP_HTTP_TIMEOUT"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env:"MCP_HTTP_MAX_BODY_BYTES"`
}

type WatchConfig struct {
	Enabled bool          `yaml:"enabled" env:"MCP_WATCH_ENABLED"`
	Timeout time.Duration `yaml:"timeout" env:"MCP_WATCH_TIMEOUT"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            "mcp-stdio-go",
			Version:         "0.1.0",
			MaxMessageBytes: 4 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		KV: KVConfig{
			Backend:   BackendMemory,
			Prefix:    "mcp:kv:",
			MaxItems:  10000,
			RedisAddr: "localhost:6379",
		},
		Exec: ExecConfig{
			Timeout: 10 * time.Second,
		},
		HTTP: HTTPConfig{
			Enabled:      true,
			Timeout:      15 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Watch: WatchConfig{
			Enabled: true,
			Timeout: 30 * time.Second,
		},
	}
}

// LoadOptions selects the optional sources consulted by Load.
type LoadOptions struct {
	// ConfigFile is a YAML file layered over the defaults.
	ConfigFile string
	// EnvFile is a dotenv file whose variables are added to the process
	// environment. Variables already set are not overridden.
	EnvFile string
}

// Load builds the configuration from defaults, the YAML file and the
// environment, then validates it.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}

	if opts.ConfigFile != "" {
		data, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %s: %w", opts.ConfigFile, err)
		}
		if err := cfg.overlayYAML(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %s: %w", opts.ConfigFile, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name must not be empty")
	}
	if c.Server.MaxMessageBytes <= 0 {
		return fmt.Errorf("server.max_message_bytes must be positive, got %d", c.Server.MaxMessageBytes)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.KV.Backend {
	case BackendMemory:
		if c.KV.MaxItems <= 0 {
			return fmt.Errorf("kv.max_items must be positive, got %d", c.KV.MaxItems)
		}
	case BackendRedis:
		if c.KV.RedisAddr == "" {
			return fmt.Errorf("kv.redis_addr is required for the redis backend")
		}
	case BackendNone:
	default:
		return fmt.Errorf("kv.backend must be memory, redis or none, got %q", c.KV.Backend)
	}
	if c.Exec.Timeout <= 0 {
		return fmt.Errorf("exec.timeout must be positive, got %s", c.Exec.Timeout)
	}
	if c.HTTP.Timeout <= 0 || c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.timeout and http.max_body_bytes must be positive")
	}
	if c.Watch.Timeout <= 0 {
		return fmt.Errorf("watch.timeout must be positive, got %s", c.Watch.Timeout)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return lvl, nil
}

// NewLogger builds the process logger writing to w, which should be stderr:
// stdout carries protocol traffic.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := parseLevel(c.Log.Level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
