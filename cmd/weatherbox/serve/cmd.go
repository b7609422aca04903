package serve

import (
	"fmt"

	"github.com/andrebq/weatherbox/api"
	"github.com/andrebq/weatherbox/auth"
	authapi "github.com/andrebq/weatherbox/auth/api"
	"github.com/andrebq/weatherbox/interest"
	"github.com/andrebq/weatherbox/internal/cmdflags"
	"github.com/andrebq/weatherbox/internal/httpserver"
	"github.com/andrebq/weatherbox/internal/logutil"
	"github.com/andrebq/weatherbox/store"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

func Cmd(global *cmdflags.Global) *cli.Command {
	var bindAddr string
	var secureCookie bool
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the weatherbox HTTP api",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind the api",
				Destination: &bindAddr,
			},
			&cli.BoolFlag{
				Name:        "secure-cookie",
				Usage:       "Only send the session cookie over https",
				Destination: &secureCookie,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, ctx, err := global.Load(c)
			if err != nil {
				return err
			}
			if c.IsSet("bind") {
				cfg.Bind = bindAddr
			}
			if c.IsSet("secure-cookie") {
				cfg.Auth.SecureCookie = secureCookie
			}
			log := logutil.GetOrDefault(ctx)

			tape, err := store.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer tape.Close()
			hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
			if err != nil {
				return err
			}
			sessions, err := auth.InMemorySessionStore(cfg.Auth.SessionTTL.Duration)
			if err != nil {
				return err
			}
			realm := authapi.NewRealm(auth.NewManager(tape, sessions, hasher),
				cfg.Auth.CookieName, cfg.Auth.SecureCookie, cfg.Auth.SessionTTL.Duration)

			engine := interest.New(tape)
			report, err := engine.Reconcile(ctx)
			if err != nil {
				sessions.Close()
				return fmt.Errorf("unable to check interest relation on startup, cause %w", err)
			}
			log.Info().Int64("users", report.After.Users).Int64("stations", report.After.Stations).Msg("Interest relation checked")
			if cfg.Reconcile.Interval.Duration > 0 {
				go engine.Sweep(ctx, cfg.Reconcile.Interval.Duration)
			}

			handler, err := api.AsHandler(ctx, api.Deps{
				Store:      tape,
				Engine:     engine,
				Realm:      realm,
				Hasher:     hasher,
				LoginRate:  rate.Limit(cfg.Auth.LoginRate),
				LoginBurst: cfg.Auth.LoginBurst,
			})
			if err != nil {
				sessions.Close()
				return err
			}
			return httpserver.Serve(ctx, cfg.Bind, logutil.Middleware(log, handler), sessions.Close)
		},
	}
}
