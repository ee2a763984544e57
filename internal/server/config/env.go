package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/bookmarker/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name declared in Config tags.
const EnvPrefix = "BOOKMARKER_"

// parseEnv loads a dotenv file (the -env-file flag, or ".env" when present)
// into the process environment and then overlays BOOKMARKER_* variables onto
// config. Variables that are unset or empty leave the field unchanged.
// Existing environment variables win over the dotenv file.
func parseEnv(config *Config, args []string) error {
	envFile := flagx.EnvFileFlags(args)
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
