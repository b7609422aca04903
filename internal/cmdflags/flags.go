package cmdflags

import (
	"context"
	"os"

	"github.com/andrebq/weatherbox/internal/config"
	"github.com/andrebq/weatherbox/internal/logutil"
	"github.com/urfave/cli/v2"
)

type (
	// Global holds the flags shared by every command
	Global struct {
		ConfigFile string
		Database   string
		LogLevel   string
		LogFormat  string
	}
)

func ConfigFile(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to a TOML config file",
		EnvVars:     []string{"WEATHERBOX_CONFIG"},
		Destination: out,
		Value:       *out,
	}
}

func Database(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "database",
		Aliases:     []string{"db"},
		Usage:       "Path to the sqlite database (created if missing)",
		EnvVars:     []string{"WEATHERBOX_DATABASE"},
		Destination: out,
		Value:       *out,
	}
}

func LogLevel(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "log-level",
		Usage:       "One of trace, debug, info, warn, error",
		Destination: out,
		Value:       *out,
	}
}

func LogFormat(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "log-format",
		Usage:       "Either console or json",
		Destination: out,
		Value:       *out,
	}
}

func (g *Global) Flags() []cli.Flag {
	return []cli.Flag{
		ConfigFile(&g.ConfigFile),
		Database(&g.Database),
		LogLevel(&g.LogLevel),
		LogFormat(&g.LogFormat),
	}
}

// Load reads the config file, applies the flags that were explicitly set
// and returns a context carrying the configured logger
func (g *Global) Load(c *cli.Context) (*config.Config, context.Context, error) {
	cfg, err := config.Load(g.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	if c.IsSet("database") {
		cfg.Database = g.Database
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = g.LogLevel
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = g.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := logutil.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logutil.WithLogger(c.Context, logger), nil
}
