package reporedis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	relayerrors "github.com/jrsteele09/go-oauth-relay/internal/errors"
	"github.com/jrsteele09/go-oauth-relay/sessions"
)

const defaultCollection = "sessions"

var (
	_ sessions.Repo   = (*Repo)(nil)
	_ sessions.Pinger = (*Repo)(nil)
)

// Repo stores each session as a JSON value under "<collection>:<handle>"
type Repo struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// Option configures the redis repo
type Option func(*Repo)

// WithRetention expires idle sessions after d. Every Put resets the TTL. Zero keeps sessions forever.
func WithRetention(d time.Duration) Option {
	return func(r *Repo) {
		r.retention = d
	}
}

// New creates a Redis-backed session repo
func New(client redis.UniversalClient, collection string, opts ...Option) (*Repo, error) {
	if client == nil {
		return nil, errors.New("[reporedis New] redis client is required")
	}
	if collection == "" {
		collection = defaultCollection
	}

	r := &Repo{client: client, prefix: collection + ":"}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Open parses a redis:// URL, connects and verifies the connection
func Open(ctx context.Context, url, collection string, opts ...Option) (*Repo, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[reporedis Open] parsing url: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, relayerrors.Store(err, "[reporedis Open] ping")
	}
	return New(client, collection, opts...)
}

func (r *Repo) key(handle string) string {
	return r.prefix + handle
}

// Get retrieves a session by handle
func (r *Repo) Get(ctx context.Context, handle string) (sessions.Record, bool, error) {
	val, err := r.client.Get(ctx, r.key(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sessions.Record{}, false, nil
	}
	if err != nil {
		return sessions.Record{}, false, relayerrors.Store(err, "[reporedis Get] failed to get session")
	}

	var rec sessions.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return sessions.Record{}, false, relayerrors.Store(err, "[reporedis Get] failed to unmarshal session")
	}
	rec.Handle = handle
	return rec, true, nil
}

// Put creates or replaces a session
func (r *Repo) Put(ctx context.Context, handle string, rec sessions.Record) error {
	rec.Handle = handle
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("[reporedis Put]: %w", err)
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("[reporedis Put] failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, r.key(handle), b, r.retention).Err(); err != nil {
		return relayerrors.Store(err, "[reporedis Put] failed to store session")
	}
	return nil
}

// Ping checks the redis connection
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return relayerrors.Store(err, "[reporedis Ping]")
	}
	return nil
}

// Close releases the redis client
func (r *Repo) Close() error {
	return r.client.Close()
}
