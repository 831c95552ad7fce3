package config

import "time"

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetStoreTimeout() time.Duration
	GetRedisURL() string
	GetSQLitePath() string
	GetMongoURL() string
	GetMongoDatabase() string
}

type Store struct {
	Backend       string        `env:"STORE_BACKEND" envDefault:"memory"`
	Timeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	RedisURL      string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"./data/sessions.db"`
	MongoURL      string        `env:"MONGO_URL" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string        `env:"MONGO_DATABASE" envDefault:"oauth_relay"`
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() string {
	return s.Backend
}

func (s Store) GetStoreTimeout() time.Duration {
	return s.Timeout
}

func (s Store) GetRedisURL() string {
	return s.RedisURL
}

func (s Store) GetSQLitePath() string {
	return s.SQLitePath
}

func (s Store) GetMongoURL() string {
	return s.MongoURL
}

func (s Store) GetMongoDatabase() string {
	return s.MongoDatabase
}
