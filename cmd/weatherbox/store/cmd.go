package store

import (
	"fmt"

	"github.com/andrebq/weatherbox/interest"
	"github.com/andrebq/weatherbox/internal/cmdflags"
	"github.com/andrebq/weatherbox/store"
	"github.com/urfave/cli/v2"
)

func Cmd(global *cmdflags.Global) *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Maintenance commands for the weatherbox database",
		Subcommands: []*cli.Command{
			migrateCmd(global),
			reconcileCmd(global),
		},
	}
}

func migrateCmd(global *cmdflags.Global) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the database or bring its schema up to date",
		Action: func(c *cli.Context) error {
			cfg, ctx, err := global.Load(c)
			if err != nil {
				return err
			}
			tape, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer tape.Close()
			version, err := tape.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%v at schema version %v\n", tape.Path(), version)
			return nil
		},
	}
}

func reconcileCmd(global *cmdflags.Global) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Insert any missing user/station interest row and print a report",
		Action: func(c *cli.Context) error {
			cfg, ctx, err := global.Load(c)
			if err != nil {
				return err
			}
			tape, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer tape.Close()
			report, err := interest.New(tape).Reconcile(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "users=%v stations=%v interests=%v repaired=%v\n",
				report.After.Users, report.After.Stations, report.After.Interests, report.Repaired)
			return nil
		},
	}
}
