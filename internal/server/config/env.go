package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/snugkisses/authtokens/internal/flagx"
)

// parseEnv overlays values from environment variables. When -env-file is
// given, that file is loaded first; variables already set in the process
// environment win over the file.
func parseEnv(config *Config) error {
	if path := flagx.EnvFileFlag(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if err := envconfig.Process("", config); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
