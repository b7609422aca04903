package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/andrebq/weatherbox/auth"
	"github.com/andrebq/weatherbox/internal/logutil"
	"github.com/julienschmidt/httprouter"
)

type (
	SecurityRealm struct {
		manager      *auth.Manager
		cookieName   string
		secureCookie bool
		ttl          time.Duration
	}

	key byte

	session struct {
		token      auth.Token
		projection *auth.Projection
		stepUp     bool
	}
)

const (
	sessionKey = key(1)
)

var (
	bearerTokenRE = regexp.MustCompile(`^Bearer ([^\s]+)$`)
)

func NewRealm(manager *auth.Manager, cookieName string, secureCookie bool, ttl time.Duration) *SecurityRealm {
	return &SecurityRealm{
		manager:      manager,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		ttl:          ttl,
	}
}

func (s *SecurityRealm) Manager() *auth.Manager {
	return s.manager
}

// Guard resolves the identity behind the request and only calls next
// if it is allowed to perform action
func (s *SecurityRealm) Guard(action auth.Action, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		ctx := r.Context()
		tk := s.token(r)
		var p *auth.Projection
		var resolveErr error
		if tk != "" {
			proj, err := s.manager.ResolveIdentity(ctx, tk)
			switch {
			case err == nil:
				p = &proj
			case isAuthError(err):
				resolveErr = err
			default:
				log := logutil.GetOrDefault(ctx)
				log.Error().Err(err).Msg("Unable to resolve identity")
				WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}
		decision := auth.Authorize(p, action)
		if !decision.Allowed {
			reason := decision.Reason
			if p == nil && resolveErr != nil {
				reason = resolveErr
			}
			log := logutil.GetOrDefault(ctx)
			log.Debug().Str("action", string(action)).Str("reason", reason.Error()).Msg("Request denied")
			status, _ := Status(reason)
			WriteError(w, status, reason.Error())
			return
		}
		if p != nil {
			log := logutil.GetOrDefault(ctx).With().Int64("user.id", p.ID).Logger()
			ctx = logutil.WithLogger(ctx, log)
		}
		ctx = context.WithValue(ctx, sessionKey, session{token: tk, projection: p, stepUp: decision.StepUp})
		next(w, r.WithContext(ctx), params)
	}
}

// SetSession hands the token to the client as a cookie
func (s *SecurityRealm) SetSession(w http.ResponseWriter, tk auth.Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    string(tk),
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *SecurityRealm) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *SecurityRealm) token(r *http.Request) auth.Token {
	if groups := bearerTokenRE.FindStringSubmatch(r.Header.Get("Authorization")); len(groups) > 0 {
		return auth.Token(groups[1])
	}
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
		return auth.Token(c.Value)
	}
	return ""
}

// Principal returns the projection attached by Guard, nil for anonymous requests
func Principal(ctx context.Context) *auth.Projection {
	s, _ := ctx.Value(sessionKey).(session)
	return s.projection
}

// SessionToken returns the token used to authenticate the request
func SessionToken(ctx context.Context) auth.Token {
	s, _ := ctx.Value(sessionKey).(session)
	return s.token
}

// StepUpRequired is true when the handler must verify the password again
func StepUpRequired(ctx context.Context) bool {
	s, _ := ctx.Value(sessionKey).(session)
	return s.stepUp
}

// Status maps auth errors to http status codes
func Status(err error) (int, bool) {
	var (
		ic  auth.InvalidCredentials
		un  auth.Unauthenticated
		inf auth.IdentityNotFound
		ab  auth.AccountBlocked
		fb  auth.Forbidden
	)
	switch {
	case errors.As(err, &ic), errors.As(err, &un), errors.As(err, &inf):
		return http.StatusUnauthorized, true
	case errors.As(err, &ab), errors.As(err, &fb):
		return http.StatusForbidden, true
	}
	return http.StatusInternalServerError, false
}

func isAuthError(err error) bool {
	_, ok := Status(err)
	return ok
}

// WriteError sends {"error": msg} with the given status
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
}
