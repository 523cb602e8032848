// Package cli formats ercat terminal output: rustc-style diagnostics,
// tables and status lines. Colors are only emitted on interactive
// terminals.
package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// OutputMode determines how output is formatted.
type OutputMode int

const (
	// ModeTTY enables colored output for interactive terminals.
	ModeTTY OutputMode = iota
	// ModePlain outputs plain text without colors (for pipes/CI).
	ModePlain
	// ModeJSON outputs structured JSON for programmatic consumption.
	ModeJSON
)

// Config holds CLI output configuration.
type Config struct {
	Mode   OutputMode
	Writer io.Writer
}

// DefaultConfig detects the mode of stdout:
//   - a TTY without NO_COLOR and TERM=dumb -> ModeTTY
//   - anything else -> ModePlain
func DefaultConfig() *Config {
	return &Config{Mode: detectMode(os.Stdout), Writer: os.Stdout}
}

func detectMode(f *os.File) OutputMode {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return ModePlain
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return ModeTTY
	}
	return ModePlain
}

// NewConfigWithMode creates a config with a specific output mode.
// Used for --json flag or testing.
func NewConfigWithMode(mode OutputMode) *Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	return cfg
}

// IsTTY returns true if running in interactive terminal mode.
func (c *Config) IsTTY() bool { return c.Mode == ModeTTY }

// IsJSON returns true if running in JSON output mode.
func (c *Config) IsJSON() bool { return c.Mode == ModeJSON }

// Global default config, initialized lazily.
var defaultCfg *Config

// Default returns the global default configuration.
func Default() *Config {
	if defaultCfg == nil {
		defaultCfg = DefaultConfig()
	}
	return defaultCfg
}

// SetDefault sets the global default configuration.
func SetDefault(cfg *Config) {
	defaultCfg = cfg
}

// EnableColors returns true if colors should be used.
func EnableColors() bool {
	return Default().IsTTY()
}
