package config

import "time"

type SessionConfig interface {
	GetSessionExpiry() time.Duration
	GetCookieName() string
	GetSessionCollectionName() string
	GetSessionRetention() time.Duration
}

type Session struct {
	ExpireMinutes  int           `env:"session_expire_minutes" envDefault:"10"`
	CookieName     string        `env:"cookie_name" envDefault:"session_id"`
	CollectionName string        `env:"session_collection_name" envDefault:"sessions"`
	Retention      time.Duration `env:"SESSION_RETENTION" envDefault:"0s"`
}

var _ SessionConfig = Session{}

// GetSessionExpiry is the cookie lifetime, independent of the access token lifetime
func (s Session) GetSessionExpiry() time.Duration {
	return time.Duration(s.ExpireMinutes) * time.Minute
}

func (s Session) GetCookieName() string {
	return s.CookieName
}

func (s Session) GetSessionCollectionName() string {
	return s.CollectionName
}

func (s Session) GetSessionRetention() time.Duration {
	return s.Retention
}
