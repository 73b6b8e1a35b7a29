package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestReadDefaults(t *testing.T) {
	p := writeYAML(t, "auth:\n  secret: s3cret\n")

	c, err := Read(p)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, c.Auth.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, c.Auth.RefreshTTL())
	assert.Equal(t, RegistrationOpen, c.Auth.Registration)
	assert.Equal(t, 10, c.Auth.BcryptCost)
	assert.Equal(t, "mysql", c.DB.Driver)
	assert.Equal(t, []string{"http://localhost:3000"}, c.App.CORS.AllowOrigins)
	assert.Equal(t, "super_admin", c.Bootstrap.Role)
}

func TestReadFileValues(t *testing.T) {
	p := writeYAML(t, `
auth:
  secret: s3cret
  accessTokenTTLMin: 5
  refreshTokenTTLDays: 1
  registration: privileged
db:
  driver: postgres
  dsn: postgres://localhost/auth
`)
	c, err := Read(p)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, c.Auth.AccessTTL())
	assert.Equal(t, 24*time.Hour, c.Auth.RefreshTTL())
	assert.Equal(t, RegistrationPrivileged, c.Auth.Registration)
	assert.Equal(t, "postgres", c.DB.Driver)
}

func TestReadEnvOverride(t *testing.T) {
	t.Setenv("APP_AUTH_SECRET", "from-env")
	t.Setenv("APP_AUTH_ACCESSTOKENTTLMIN", "12")

	c, err := Read("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.Auth.Secret)
	assert.Equal(t, 12, c.Auth.AccessTokenTTLMin)
}

func TestReadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("APP_AUTH_SECRET", "x")
	c, err := Read(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30, c.Auth.AccessTokenTTLMin)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Auth: Auth{Secret: "s", AccessTokenTTLMin: 30, RefreshTokenTTLDays: 7, Registration: RegistrationOpen},
			DB:   DB{Driver: "mysql"},
		}
	}
	ok := base()
	assert.NoError(t, ok.Validate())
	ok.Redis.Addr = "127.0.0.1:6379"
	ok.Auth.UserCacheTTLSec = 60
	assert.NoError(t, ok.Validate())

	cases := map[string]func(*Config){
		"no secret":        func(c *Config) { c.Auth.Secret = "" },
		"zero access ttl":  func(c *Config) { c.Auth.AccessTokenTTLMin = 0 },
		"zero refresh ttl": func(c *Config) { c.Auth.RefreshTokenTTLDays = 0 },
		"bad mode":         func(c *Config) { c.Auth.Registration = "invite" },
		"bad driver":       func(c *Config) { c.DB.Driver = "sqlite" },
		"bootstrap no pw":  func(c *Config) { c.Bootstrap.Email = "root@example.com" },
		"redis no user ttl": func(c *Config) {
			c.Redis.Addr = "127.0.0.1:6379"
			c.Auth.UserCacheTTLSec = 0
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
