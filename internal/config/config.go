// Package config manages environment variables.
//
// It reads variables from the `.env` file and the process
// environment, loads them into structured Go types, and
// validates that required values are present so they
// can be reused across the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (e.g. observability).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists, it gets loaded into the
	// process env before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the ORMDEMO_ prefix. The first underscore after
	the prefix separates the block from the key, so

		ORMDEMO_DATABASE_MAX_CONNS -> database.max_conns -> Config.Database.MaxConns

	The bare DATABASE_URL variable is honoured as well and maps to database.url.
*/

// EnvPrefix is the prefix of every variable read into Config.
const EnvPrefix = "ORMDEMO_"

// DatabaseURLVar is the conventional connection string variable.
const DatabaseURLVar = "DATABASE_URL"

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Client        ClientConfig         `koanf:"client" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// DatabaseConfig contains the PostgreSQL connection string and pool tuning.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxConns        int32         `koanf:"max_conns" validate:"min=1"`
	MinConns        int32         `koanf:"min_conns" validate:"min=0,ltefield=MaxConns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
	SkipMigrations  bool          `koanf:"skip_migrations"`
}

// ClientConfig configures the data-access client itself.
//
// Log selects which client events are logged: "query" logs every statement,
// "error" logs failed ones. AuthID/AuthRole form the dummy auth context
// attached to the client.
type ClientConfig struct {
	Log      []string `koanf:"log" validate:"dive,oneof=query error"`
	AuthID   string   `koanf:"auth_id"`
	AuthRole string   `koanf:"auth_role" validate:"omitempty,oneof=ADMIN USER"`
}

// Default returns the configuration used before any variable is applied.
func Default() *Config {
	return &Config{
		Primary: Primary{Env: "local"},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        0,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
		},
		Client: ClientConfig{
			AuthID:   "1",
			AuthRole: "ADMIN",
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// sections lists the nested blocks of Config, deepest first, so that
// ORMDEMO_OBSERVABILITY_NEW_RELIC_LICENSE_KEY resolves to
// observability.new_relic.license_key rather than observability.new.
var sections = []string{
	"observability.new_relic",
	"observability.logging",
	"observability",
	"database",
	"client",
	"primary",
}

// DefaultClientLog is the client log selection used when none is configured.
func DefaultClientLog() []string {
	return []string{"query", "error"}
}

// envKey maps ORMDEMO_DATABASE_MAX_CONNS to database.max_conns.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, sec := range sections {
		prefix := strings.ReplaceAll(sec, ".", "_") + "_"
		if strings.HasPrefix(key, prefix) {
			return sec + "." + strings.TrimPrefix(key, prefix)
		}
	}
	return strings.Replace(key, "_", ".", 1)
}

// LoadConfig loads configuration from environment variables, unmarshals it into
// Config structs, validates it, applies defaults, and returns the resulting config.
//
// Behavior summary:
//   - Starts from Default()
//   - Loads DATABASE_URL into database.url
//   - Loads env vars with prefix ORMDEMO_ (these win over DATABASE_URL)
//   - Validates required config blocks/fields
//   - Sets default observability if missing and validates it
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(DatabaseURLVar, ".", func(s string) string {
		if s != DatabaseURLVar {
			return ""
		}
		return "database.url"
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", DatabaseURLVar, err)
	}

	err = k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := Default()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := Finalize(mainConfig); err != nil {
		return nil, err
	}
	return mainConfig, nil
}

// Finalize validates cfg and fills the optional blocks.
//
// It is split from LoadConfig so configs built in code go through the same rules.
func Finalize(cfg *Config) error {
	// Slices are filled after unmarshalling; merging env values into a
	// pre-populated slice would keep stale trailing elements.
	if cfg.Client.Log == nil {
		cfg.Client.Log = DefaultClientLog()
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	}

	// Service name is fixed; environment always follows Primary.Env.
	cfg.Observability.ServiceName = ServiceName
	cfg.Observability.Environment = cfg.Primary.Env

	if err := cfg.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}
	return nil
}

// LogsQueries reports whether "query" is among the client log levels.
func (c ClientConfig) LogsQueries() bool {
	return c.has("query")
}

// LogsErrors reports whether "error" is among the client log levels.
func (c ClientConfig) LogsErrors() bool {
	return c.has("error")
}

func (c ClientConfig) has(level string) bool {
	for _, l := range c.Log {
		if strings.EqualFold(strings.TrimSpace(l), level) {
			return true
		}
	}
	return false
}
