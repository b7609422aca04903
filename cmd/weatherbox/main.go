package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrebq/weatherbox/cmd/weatherbox/serve"
	"github.com/andrebq/weatherbox/cmd/weatherbox/store"
	"github.com/andrebq/weatherbox/cmd/weatherbox/users"
	"github.com/andrebq/weatherbox/internal/cmdflags"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	global := &cmdflags.Global{}
	app := &cli.App{
		Name:  "weatherbox",
		Usage: "Weather station network backend",
		Flags: global.Flags(),
		Commands: []*cli.Command{
			serve.Cmd(global),
			store.Cmd(global),
			users.Cmd(global),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
