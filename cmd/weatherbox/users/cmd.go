package users

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/andrebq/weatherbox/auth"
	"github.com/andrebq/weatherbox/interest"
	"github.com/andrebq/weatherbox/internal/cmdflags"
	"github.com/andrebq/weatherbox/store"
	"github.com/urfave/cli/v2"
)

func Cmd(global *cmdflags.Global) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage weatherbox accounts",
		Subcommands: []*cli.Command{
			addCmd(global),
			flagCmd(global, "promote", "Give admin rights to a user", true),
			flagCmd(global, "demote", "Remove admin rights from a user", false),
		},
	}
}

func addCmd(global *cmdflags.Global) *cli.Command {
	var username string
	var email string
	var admin bool
	return &cli.Command{
		Name:  "add",
		Usage: "Register a new user (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Name of the user to register",
				Destination: &username,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "email",
				Usage:       "Email of the user",
				Destination: &email,
				Required:    true,
			},
			&cli.BoolFlag{
				Name:        "admin",
				Usage:       "Register the user as an administrator",
				Destination: &admin,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, ctx, err := global.Load(c)
			if err != nil {
				return err
			}
			sc := bufio.NewScanner(c.App.Reader)
			if !sc.Scan() {
				if sc.Err() != nil {
					return sc.Err()
				}
				return errors.New("missing password from stdin")
			}
			reg := auth.Registration{
				Username: username,
				Email:    email,
				Password: strings.TrimSpace(sc.Text()),
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(reg.Password)
			if err != nil {
				return err
			}
			tape, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer tape.Close()
			id, err := interest.New(tape).OnUserRegistered(ctx, store.User{
				Username:         reg.Username,
				Email:            reg.Email,
				PasswordHash:     hash,
				IsAdmin:          admin,
				WantsTemperature: true,
				WantsHumidity:    true,
				WantsPressure:    true,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "user %v registered with id %v\n", reg.Username, id)
			return nil
		},
	}
}

func flagCmd(global *cmdflags.Global, name, usage string, admin bool) *cli.Command {
	var username string
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Destination: &username,
				Required:    true,
			},
		},
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
			u, err := tape.UserByName(ctx, username)
			if err != nil {
				return err
			}
			return tape.SetAdmin(ctx, u.ID, admin)
		},
	}
}
