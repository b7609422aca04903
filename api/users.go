package api

import (
	"net/http"
	"strconv"

	"github.com/andrebq/weatherbox/auth"
	authapi "github.com/andrebq/weatherbox/auth/api"
	"github.com/andrebq/weatherbox/internal/logutil"
	"github.com/andrebq/weatherbox/store"
	"github.com/julienschmidt/httprouter"
)

type (
	registerRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	userRequest struct {
		UserID int64 `json:"userId"`
	}
)

func (req *registerRequest) validate() error {
	reg := auth.Registration{Username: req.Username, Email: req.Email, Password: req.Password}
	if err := reg.Validate(); err != nil {
		return err
	}
	req.Username, req.Email = reg.Username, reg.Email
	return nil
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		fail(w, r, err)
		return
	}
	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	id, err := h.Engine.OnUserRegistered(r.Context(), store.User{
		Username:         req.Username,
		Email:            req.Email,
		PasswordHash:     hash,
		WantsTemperature: true,
		WantsHumidity:    true,
		WantsPressure:    true,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID int64 `json:"id"`
	}{ID: id})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.logins.allow(r) {
		log := logutil.GetOrDefault(r.Context())
		log.Warn().Str("client", clientAddr(r)).Msg("Login throttled")
		authapi.WriteError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	ctx := r.Context()
	manager := h.Realm.Manager()
	id, err := manager.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	tk, err := manager.EstablishSession(ctx, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.Realm.SetSession(w, tk)
	writeJSON(w, http.StatusOK, struct {
		Token auth.Token `json:"token"`
	}{Token: tk})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	if err := h.Realm.Manager().EndSession(ctx, authapi.SessionToken(ctx)); err != nil {
		fail(w, r, err)
		return
	}
	h.Realm.ClearSession(w)
	writeMessage(w, "logged out")
}

func (h *handlers) self(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, authapi.Principal(r.Context()))
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]auth.Projection, 0, len(users))
	for _, u := range users {
		out = append(out, auth.Project(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) setBlocked(blocked bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req userRequest
		if err := readJSON(w, r, &req); err != nil {
			fail(w, r, err)
			return
		}
		if req.UserID <= 0 {
			fail(w, r, InvalidInput{Field: "userId", Reason: "required"})
			return
		}
		if err := h.Store.SetBlocked(r.Context(), req.UserID, blocked); err != nil {
			fail(w, r, err)
			return
		}
		log := logutil.GetOrDefault(r.Context())
		log.Info().Int64("target.id", req.UserID).Bool("blocked", blocked).Msg("User block flag changed")
		if blocked {
			writeMessage(w, "user blocked")
		} else {
			writeMessage(w, "user unlocked")
		}
	}
}

func (h *handlers) setAdmin(admin bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
		if err != nil || id <= 0 {
			fail(w, r, InvalidInput{Field: "id", Reason: "must be a positive integer"})
			return
		}
		if err := h.Store.SetAdmin(r.Context(), id, admin); err != nil {
			fail(w, r, err)
			return
		}
		log := logutil.GetOrDefault(r.Context())
		log.Info().Int64("target.id", id).Bool("admin", admin).Msg("User admin flag changed")
		if admin {
			writeMessage(w, "user ranked")
		} else {
			writeMessage(w, "user degraded")
		}
	}
}
