package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	OAuthConfig
	SessionConfig
	StoreConfig
	SecurityConfig
}

type mainConfig struct {
	EnvVars
	OAuth
	Session
	Store
	Security
}

var _ Config = mainConfig{}

// New loads an optional .env file then parses the process environment
func New() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("[config New] loading .env: %w", err)
	}

	var cfg mainConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("[config New]: %w", err)
	}
	return cfg, cfg.validate()
}

// NewFromEnvironment parses vars instead of the process environment
func NewFromEnvironment(vars map[string]string) (Config, error) {
	var cfg mainConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("[config NewFromEnvironment]: %w", err)
	}
	return cfg, cfg.validate()
}

func (c mainConfig) validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreRedis, StoreSQLite, StoreMongo:
	default:
		return fmt.Errorf("[config] unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Session.ExpireMinutes <= 0 {
		return errors.New("[config] session_expire_minutes must be positive")
	}
	return nil
}
