package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/tabq-dev/tabq/session"
	"github.com/tabq-dev/tabq/store"
)

// Config holds the resolved runtime settings.
type Config struct {
	PageSize int           `koanf:"page-size"`
	Debounce time.Duration `koanf:"debounce"`
	StateDir string        `koanf:"state-dir"`
	LogFile  string        `koanf:"log-file"`
	LogLevel string        `koanf:"log-level"`
}

// StatePath returns the session database location for this config.
func (c *Config) StatePath() (string, error) {
	if c.StateDir != "" {
		return filepath.Join(c.StateDir, "state.db"), nil
	}
	return store.DefaultPath()
}

func defaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tabq", "config.yaml")
}

// LoadConfig layers configuration sources, lowest to highest precedence:
// built-in defaults, the optional YAML config file, TABQ_ environment
// variables, then explicitly set command-line flags.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"page-size": session.DefaultPageSize,
		"debounce":  store.DefaultDebounce,
		"state-dir": "",
		"log-file":  "",
		"log-level": "info",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("cli: load defaults: %w", err)
	}

	if cfgFile == "" {
		cfgFile = defaultConfigFile()
	}
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("cli: read config file %q: %w", cfgFile, err)
			}
		}
	}

	// TABQ_PAGE_SIZE -> page-size
	if err := k.Load(env.Provider("TABQ_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "TABQ_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("cli: load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("cli: load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("cli: decode config: %w", err)
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("cli: page-size must be positive, got %d", cfg.PageSize)
	}
	return &cfg, nil
}

// NewLogger builds the process logger. The terminal is reserved for query
// output, so logs go to the configured file or nowhere at all.
func NewLogger(cfg *Config) (*slog.Logger, func(), error) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("cli: unknown log level %q", cfg.LogLevel)
	}

	var w io.Writer = io.Discard
	cleanup := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cli: open log file: %w", err)
		}
		w = f
		cleanup = func() { _ = f.Close() }
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), cleanup, nil
}
