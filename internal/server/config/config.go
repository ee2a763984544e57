// Package config handles configuration for the server component, including
// defaults, a dotenv file, environment variables, a JSON overlay and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSecretKey is the development signing key. The server warns when it
// is still in use.
const DefaultSecretKey = "change-me-in-production"

// ErrConfig marks a configuration that cannot be used to start the server.
var ErrConfig = errors.New("invalid configuration")

// Config holds runtime settings for the Bookmarker server.
//
// Fields:
//   - HTTPAddr: bind address for the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing access tokens (HS256).
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - BcryptCost: work factor for password hashing.
//   - CORSAllowOriginPattern: regular expression of allowed browser origins.
type Config struct {
	HTTPAddr                     string        `env:"HTTP_ADDR"`
	DatabaseDSN                  string        `env:"DATABASE_DSN"`
	SecretKey                    string        `env:"SECRET_KEY"`
	AccessTokenValidityDuration  time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"REFRESH_TOKEN_TTL"`
	BcryptCost                   int           `env:"BCRYPT_COST"`
	LogLevel                     string        `env:"LOG_LEVEL"`
	CORSAllowOriginPattern       string        `env:"CORS_ALLOW_ORIGIN_PATTERN"`
	MigrateOnStart               bool          `env:"MIGRATE_ON_START"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8000"
	c.DatabaseDSN = ""
	c.SecretKey = DefaultSecretKey
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.BcryptCost = bcrypt.DefaultCost
	c.LogLevel = "info"
	c.CORSAllowOriginPattern = `^moz-extension://.*`
	c.MigrateOnStart = true
}

// Validate reports settings the server cannot run with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("%w: secret key is empty", ErrConfig)
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("%w: access token validity must be positive", ErrConfig)
	}
	if c.RefreshTokenValidityDuration <= 0 {
		return fmt.Errorf("%w: refresh token validity must be positive", ErrConfig)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: bcrypt cost %d out of range", ErrConfig, c.BcryptCost)
	}
	return nil
}

// LoadConfig builds a Config from os.Args. JSON and flag errors panic, as
// they only happen at startup; environment and validation errors are
// returned.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg, args); err != nil {
		return nil, err
	}
	parseJson(cfg, args)
	parseFlags(cfg, args)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
