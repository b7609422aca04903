// Package api exposes weatherbox over HTTP.
//
// Every route goes through the security realm, which resolves the session
// and checks the action against the authorization gate before the handler
// runs. Handlers only deal with decoding input and calling the store or
// the interest engine.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/andrebq/weatherbox/auth"
	authapi "github.com/andrebq/weatherbox/auth/api"
	"github.com/andrebq/weatherbox/interest"
	"github.com/andrebq/weatherbox/store"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"
)

type (
	Deps struct {
		Store  *store.Control
		Engine *interest.Engine
		Realm  *authapi.SecurityRealm
		Hasher *auth.Hasher

		// LoginRate and LoginBurst limit login attempts per client address
		LoginRate  rate.Limit
		LoginBurst int
	}

	handlers struct {
		Deps
		logins *throttle
	}
)

func AsHandler(ctx context.Context, d Deps) (http.Handler, error) {
	if d.Store == nil || d.Engine == nil || d.Realm == nil || d.Hasher == nil {
		return nil, errors.New("api: store, engine, realm and hasher are required")
	}
	if d.LoginBurst <= 0 {
		return nil, errors.New("api: login burst must be positive")
	}
	h := &handlers{
		Deps:   d,
		logins: newThrottle(d.LoginRate, d.LoginBurst),
	}
	guard := d.Realm.Guard

	router := httprouter.New()
	router.POST("/register", guard(auth.Register, h.register))
	router.POST("/login", guard(auth.Login, h.login))
	router.POST("/logout", guard(auth.Logout, h.logout))
	router.GET("/user", guard(auth.GetSelf, h.self))
	router.GET("/get_users", guard(auth.ListUsers, h.listUsers))
	router.POST("/block_user", guard(auth.BlockUser, h.setBlocked(true)))
	router.POST("/unlock_user", guard(auth.UnlockUser, h.setBlocked(false)))
	router.POST("/rank_user/:id", guard(auth.RankUser, h.setAdmin(true)))
	router.POST("/degrade_user/:id", guard(auth.DegradeUser, h.setAdmin(false)))

	router.GET("/stations", guard(auth.ListStations, h.listStations))
	router.POST("/add_station", guard(auth.AddStation, h.addStation))
	router.POST("/remove_station", guard(auth.RemoveStation, h.removeStation))
	router.POST("/get_measurement", guard(auth.GetMeasurements, h.measurements))

	router.POST("/get_prefered_stations", guard(auth.GetPreferredStations, h.preferredStations))
	router.POST("/upload", guard(auth.UploadPreferences, h.upload))
	return router, nil
}

// subject returns the user the request acts upon. Clients may send their
// own id in the body, any other id is rejected.
func subject(ctx context.Context, bodyID int64, action auth.Action) (int64, error) {
	p := authapi.Principal(ctx)
	if p == nil {
		return 0, auth.Unauthenticated{}
	}
	if bodyID != 0 && bodyID != p.ID {
		return 0, auth.Forbidden{Action: action}
	}
	return p.ID, nil
}
