package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "weatherbox_session", cfg.Auth.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL.Duration)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
bind = "0.0.0.0:8080"
log_format = "json"

[auth]
bcrypt_cost = 12
session_ttl = "30m"
secure_cookie = true

[reconcile]
interval = "0s"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8080", cfg.Bind)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "weatherbox.db", cfg.Database)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 30*time.Minute, cfg.Auth.SessionTTL.Duration)
	assert.True(t, cfg.Auth.SecureCookie)
	assert.Equal(t, "weatherbox_session", cfg.Auth.CookieName)
	assert.Equal(t, time.Duration(0), cfg.Reconcile.Interval.Duration)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[auth]
bcrypt_rounds = 12
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.bcrypt_rounds")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
[auth]
session_ttl = "forever"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Auth.BcryptCost = 4
	cfg.Auth.SessionTTL = Duration{}
	cfg.Database = ""
	err := cfg.Validate()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]bool{}
	for _, v := range verrs {
		fields[v.Field] = true
	}
	assert.Equal(t, map[string]bool{"auth.bcrypt_cost": true, "auth.session_ttl": true, "database": true}, fields)
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "weatherbox.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
