package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-oauth-relay/internal/config"
	"github.com/jrsteele09/go-oauth-relay/sessions"
	"github.com/jrsteele09/go-oauth-relay/sessions/repoinmemory"
	"github.com/jrsteele09/go-oauth-relay/sessions/repomongo"
	"github.com/jrsteele09/go-oauth-relay/sessions/reporedis"
	"github.com/jrsteele09/go-oauth-relay/sessions/reposqlite"
	"github.com/jrsteele09/go-oauth-relay/sessions/sealed"
)

type storeConfig interface {
	config.StoreConfig
	config.SessionConfig
	config.SecurityConfig
}

// openStore creates the configured backend, wrapped with token sealing when a key is set
func openStore(ctx context.Context, c storeConfig) (sessions.Repo, error) {
	collection := c.GetSessionCollectionName()

	var (
		repo sessions.Repo
		err  error
	)
	switch backend := c.GetStoreBackend(); backend {
	case config.StoreMemory:
		log.Warn().Msg("Using the in-memory session store, sessions are lost on restart")
		repo = repoinmemory.New()
	case config.StoreRedis:
		repo, err = reporedis.Open(ctx, c.GetRedisURL(), collection, reporedis.WithRetention(c.GetSessionRetention()))
	case config.StoreSQLite:
		if dir := filepath.Dir(c.GetSQLitePath()); dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("[openStore] creating %s: %w", dir, err)
			}
		}
		repo, err = reposqlite.Open(ctx, c.GetSQLitePath(), collection)
	case config.StoreMongo:
		repo, err = repomongo.Open(ctx, c.GetMongoURL(), c.GetMongoDatabase(), collection)
	default:
		return nil, fmt.Errorf("[openStore] unknown store backend %q", backend)
	}
	if err != nil {
		return nil, err
	}

	if !c.IsTokenSealingEnabled() {
		return repo, nil
	}

	key, err := sealed.ParseKey(c.GetTokenSealingKey())
	if err != nil {
		if closer, ok := repo.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, err
	}
	log.Info().Msg("Session tokens are sealed at rest")
	return sealed.New(repo, key)
}
