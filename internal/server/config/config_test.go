package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":8000", c.HTTPAddr)
	assert.Equal(t, "", c.DatabaseDSN)
	assert.Equal(t, DefaultSecretKey, c.SecretKey)
	assert.Equal(t, 30*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, bcrypt.DefaultCost, c.BcryptCost)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, `^moz-extension://.*`, c.CORSAllowOriginPattern)
	assert.True(t, c.MigrateOnStart)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults ok", mutate: func(c *Config) {}},
		{name: "empty secret", mutate: func(c *Config) { c.SecretKey = "" }, wantErr: true},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTokenValidityDuration = 0 }, wantErr: true},
		{name: "negative refresh ttl", mutate: func(c *Config) { c.RefreshTokenValidityDuration = -time.Hour }, wantErr: true},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.BcryptCost = 1 }, wantErr: true},
		{name: "bcrypt cost too high", mutate: func(c *Config) { c.BcryptCost = 99 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfig))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoad_NoSourcesGivesDefaults(t *testing.T) {
	c, err := load(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestLoad_Precedence(t *testing.T) {
	t.Setenv("BOOKMARKER_HTTP_ADDR", ":7000")
	t.Setenv("BOOKMARKER_SECRET_KEY", "from-env")
	t.Setenv("BOOKMARKER_ACCESS_TOKEN_TTL", "5m")

	path := writeTempJSON(t, "", "", map[string]any{
		"http_addr":    ":7100",
		"database_dsn": "postgres://json",
	})

	c, err := load([]string{"-c", path, "-d", "postgres://flag", "-r", "14"})
	require.NoError(t, err)

	want := defaults()
	want.HTTPAddr = ":7100"
	want.SecretKey = "from-env"
	want.AccessTokenValidityDuration = 5 * time.Minute
	want.DatabaseDSN = "postgres://flag"
	want.RefreshTokenValidityDuration = 14 * 24 * time.Hour

	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoad_InvalidResultIsRejected(t *testing.T) {
	_, err := load([]string{"-t", "0"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestParseEnv_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BOOKMARKER_BCRYPT_COST=5\nBOOKMARKER_MIGRATE_ON_START=false\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("BOOKMARKER_BCRYPT_COST")
		_ = os.Unsetenv("BOOKMARKER_MIGRATE_ON_START")
	})

	c := defaults()
	require.NoError(t, parseEnv(c, []string{"-env-file", path}))

	assert.Equal(t, 5, c.BcryptCost)
	assert.False(t, c.MigrateOnStart)
}

func TestParseEnv_MissingExplicitFile(t *testing.T) {
	c := defaults()
	err := parseEnv(c, []string{"-env-file", filepath.Join(t.TempDir(), "nope.env")})
	require.Error(t, err)
}

func TestParseEnv_BadDuration(t *testing.T) {
	t.Setenv("BOOKMARKER_REFRESH_TOKEN_TTL", "a week")

	c := defaults()
	require.Error(t, parseEnv(c, nil))
}
