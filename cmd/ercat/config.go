package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/builder"
	"github.com/hlop3z/ercat/internal/cli"
	"github.com/hlop3z/ercat/internal/loader"
	"github.com/hlop3z/ercat/internal/schema"
)

const defaultSchemasDir = "./schemas"

// Config represents the ercat.yaml configuration file.
type Config struct {
	Name       string `yaml:"name"`
	SchemasDir string `yaml:"schemas_dir"`
	LogLevel   string `yaml:"log_level"`
	Output     string `yaml:"output"`
}

// loadConfig loads configuration from file, env vars, and CLI flags.
// Precedence: CLI flags > env vars > config file > defaults
func loadConfig() (*Config, error) {
	cfg := &Config{
		Name:       "catalog",
		SchemasDir: defaultSchemasDir,
		LogLevel:   "info",
		Output:     "text",
	}

	// A missing config file is fine; a broken one is not
	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, alerr.Wrap(alerr.ErrParse, err, "failed to parse config file").
				WithLocation(configFile, 0, 0)
		}
		cfg.Name = expandEnvVars(cfg.Name)
		cfg.SchemasDir = expandEnvVars(cfg.SchemasDir)
	}

	if env := os.Getenv("ERCAT_SCHEMAS_DIR"); env != "" {
		cfg.SchemasDir = env
	}
	if env := os.Getenv("ERCAT_LOG_LEVEL"); env != "" {
		cfg.LogLevel = env
	}

	if schemasDir != "" {
		cfg.SchemasDir = schemasDir
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if jsonOutput {
		cfg.Output = "json"
	}

	switch cfg.Output {
	case "text", "json":
	default:
		return nil, alerr.New(alerr.ErrMalformedProperty, "invalid output format").
			WithProperty("output").
			With("value", cfg.Output).
			WithHelp("use 'text' or 'json'")
	}
	return cfg, nil
}

// expandEnvVars expands ${VAR} patterns in a string.
func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

// JSON reports whether commands should print JSON.
func (c *Config) JSON() bool { return c.Output == "json" }

// newLogger returns a text logger on w at the configured level.
func (c *Config) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return nil, alerr.New(alerr.ErrMalformedProperty, "invalid log level").
			WithProperty("log_level").
			With("value", c.LogLevel).
			WithHelp("use one of debug, info, warn, error")
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// session is what every catalog command starts from.
type session struct {
	cfg    *Config
	logger *slog.Logger
}

// newSession loads the configuration and switches the output mode.
func newSession(stderr io.Writer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cfg.newLogger(stderr)
	if err != nil {
		return nil, err
	}
	if cfg.JSON() {
		cli.SetDefault(cli.NewConfigWithMode(cli.ModeJSON))
	}
	return &session{cfg: cfg, logger: logger}, nil
}

// build loads the declaration directory and builds the catalog. It also
// returns the files that were read.
func (s *session) build() (*schema.Schema, []string, error) {
	l := loader.New(loader.WithLogger(s.logger))
	if err := l.LoadDir(s.cfg.SchemasDir); err != nil {
		return nil, nil, err
	}
	defs, err := l.Definitions()
	if err != nil {
		return nil, l.Files(), err
	}
	catalog, err := builder.Build(s.cfg.Name, defs, builder.WithLogger(s.logger))
	if err != nil {
		return nil, l.Files(), err
	}
	return catalog, l.Files(), nil
}

func (s *session) String() string {
	return fmt.Sprintf("%s (%s)", s.cfg.Name, s.cfg.SchemasDir)
}
