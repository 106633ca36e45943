/*
Package config loads server configuration from the environment.

PURPOSE:
  Single place where every tunable lives. Values come from environment
  variables (optionally seeded from a local .env file), parsed into a
  typed struct via envconfig.

CONVENTIONS:
  - All variables share the CONTENT_ prefix, e.g. CONTENT_PORT.
  - A missing .env file is not an error; real deployments set the
    environment directly.

SEE ALSO:
  - cmd/server/main.go: the only consumer
*/
package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all server settings.
type Config struct {
	// Port the HTTP server listens on.
	Port int `envconfig:"PORT" default:"8080"`

	// DBPath is the SQLite database file. ":memory:" runs ephemeral.
	DBPath string `envconfig:"DB_PATH" default:"./data/content.db"`

	// LinkBase is prepended to content ids to form shareable deep links,
	// e.g. "https://t.me/mybot?start=". May be empty.
	LinkBase string `envconfig:"LINK_BASE" default:""`

	// CodeDefaultMaxUses applies when a code is issued without an
	// explicit use limit.
	CodeDefaultMaxUses int `envconfig:"CODE_DEFAULT_MAX_USES" default:"10"`

	// CodeDeleteExhausted removes a code once its last use is consumed
	// instead of keeping it inert for audit.
	CodeDeleteExhausted bool `envconfig:"CODE_DELETE_EXHAUSTED" default:"false"`

	// CodeRefundDuplicate leaves a code's use count untouched when the
	// redeemer already has access to the bound item.
	CodeRefundDuplicate bool `envconfig:"CODE_REFUND_DUPLICATE" default:"false"`

	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("content", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
