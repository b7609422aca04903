package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/andrebq/weatherbox/internal/logutil"
	"github.com/andrebq/weatherbox/store"
)

type (
	// Token is the opaque session handle given to clients
	Token string

	// Users is the read side of the credential store needed to
	// authenticate requests
	Users interface {
		UserByName(ctx context.Context, username string) (store.User, error)
		UserByID(ctx context.Context, id int64) (store.User, error)
	}

	Identity struct {
		UserID   int64
		Username string
	}

	// Projection is what handlers see of the authenticated user,
	// it never carries the password hash
	Projection struct {
		ID          int64  `json:"id"`
		Username    string `json:"username"`
		Email       string `json:"email"`
		Admin       bool   `json:"admin"`
		Blocked     bool   `json:"blocked"`
		Temperature bool   `json:"temperature"`
		Humidity    bool   `json:"humidity"`
		Pressure    bool   `json:"pressure"`
	}

	Manager struct {
		users    Users
		sessions SessionStore
		hasher   *Hasher
	}
)

const tokenBytes = 32

func NewManager(users Users, sessions SessionStore, hasher *Hasher) *Manager {
	return &Manager{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
	}
}

func Project(u store.User) Projection {
	return Projection{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Admin:       u.IsAdmin,
		Blocked:     u.IsBlocked,
		Temperature: u.WantsTemperature,
		Humidity:    u.WantsHumidity,
		Pressure:    u.WantsPressure,
	}
}

// Authenticate checks username and password. Unknown users and wrong
// passwords produce the same error.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	u, err := m.users.UserByName(ctx, username)
	var nf store.NotFound
	if errors.As(err, &nf) {
		m.hasher.burn(password)
		return Identity{}, InvalidCredentials{}
	} else if err != nil {
		return Identity{}, err
	}
	if !m.hasher.Verify(password, u.PasswordHash) {
		return Identity{}, InvalidCredentials{}
	}
	if u.IsBlocked {
		return Identity{}, AccountBlocked{Username: u.Username}
	}
	return Identity{UserID: u.ID, Username: u.Username}, nil
}

func (m *Manager) EstablishSession(ctx context.Context, id Identity) (Token, error) {
	var buf [tokenBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("unable to generate session token, cause %w", err)
	}
	tk := Token(base64.RawURLEncoding.EncodeToString(buf[:]))
	if err := m.sessions.Save(ctx, tk, id.UserID); err != nil {
		return "", fmt.Errorf("unable to save session, cause %w", err)
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Int64("user.id", id.UserID).Msg("Session established")
	return tk, nil
}

// ResolveIdentity returns the current state of the user behind token
func (m *Manager) ResolveIdentity(ctx context.Context, tk Token) (Projection, error) {
	if tk == "" {
		return Projection{}, Unauthenticated{}
	}
	uid, found, err := m.sessions.Lookup(ctx, tk)
	if err != nil {
		return Projection{}, fmt.Errorf("unable to lookup session, cause %w", err)
	} else if !found {
		return Projection{}, Unauthenticated{}
	}
	u, err := m.users.UserByID(ctx, uid)
	var nf store.NotFound
	if errors.As(err, &nf) {
		_ = m.sessions.Delete(ctx, tk)
		return Projection{}, IdentityNotFound{UserID: uid}
	} else if err != nil {
		return Projection{}, err
	}
	return Project(u), nil
}

// EndSession drops the token, ending a session twice is not an error
func (m *Manager) EndSession(ctx context.Context, tk Token) error {
	if tk == "" {
		return nil
	}
	return m.sessions.Delete(ctx, tk)
}

// VerifyPassword re-checks the password of an already authenticated
// user, used before destructive operations
func (m *Manager) VerifyPassword(ctx context.Context, userID int64, password string) error {
	u, err := m.users.UserByID(ctx, userID)
	var nf store.NotFound
	if errors.As(err, &nf) {
		return IdentityNotFound{UserID: userID}
	} else if err != nil {
		return err
	}
	if !m.hasher.Verify(password, u.PasswordHash) {
		return InvalidCredentials{}
	}
	return nil
}
