package config

import (
	"strings"
	"time"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIURL() string
	GetProviderTimeout() time.Duration
}

type EnvVars struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	AppName         string        `env:"APP_NAME" envDefault:"OAuth Relay"`
	Env             string        `env:"ENV" envDefault:"DEV"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	APIURL          string        `env:"API_URL" envDefault:"https://api.freee.co.jp/api/1/companies"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, e.g. ":8080"
func (e EnvVars) GetPort() string {
	if strings.HasPrefix(e.Port, ":") {
		return e.Port
	}
	return ":" + e.Port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetAPIURL() string {
	return e.APIURL
}

func (e EnvVars) GetProviderTimeout() time.Duration {
	return e.ProviderTimeout
}
