package reposqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	relayerrors "github.com/jrsteele09/go-oauth-relay/internal/errors"
	"github.com/jrsteele09/go-oauth-relay/sessions"
)

var (
	_ sessions.Repo   = (*Repo)(nil)
	_ sessions.Pinger = (*Repo)(nil)
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS %s (
	handle                           TEXT PRIMARY KEY,
	access_token                     TEXT NOT NULL,
	access_token_expires_at_unixtime INTEGER NOT NULL,
	refresh_token                    TEXT NOT NULL,
	scope                            TEXT NOT NULL DEFAULT ''
);`

// Repo stores sessions in one SQLite table named after the collection
type Repo struct {
	sqlDB    *sql.DB
	getQuery string
	putQuery string
}

// Open opens (or creates) the SQLite file at path and ensures the sessions table exists.
func Open(ctx context.Context, path, collection string) (*Repo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("[reposqlite Open] storage path is required")
	}
	if !tableNamePattern.MatchString(collection) {
		return nil, fmt.Errorf("[reposqlite Open] invalid collection name %q", collection)
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, relayerrors.Store(err, "[reposqlite Open] open sqlite db")
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, relayerrors.Store(err, "[reposqlite Open] ping sqlite db")
	}

	if _, err := sqlDB.ExecContext(ctx, fmt.Sprintf(schemaTemplate, collection)); err != nil {
		_ = sqlDB.Close()
		return nil, relayerrors.Store(err, "[reposqlite Open] create table %s", collection)
	}

	return &Repo{
		sqlDB: sqlDB,
		getQuery: fmt.Sprintf(`SELECT access_token, access_token_expires_at_unixtime, refresh_token, scope
FROM %s WHERE handle = ?`, collection),
		putQuery: fmt.Sprintf(`INSERT INTO %s (handle, access_token, access_token_expires_at_unixtime, refresh_token, scope)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(handle) DO UPDATE SET
	access_token = excluded.access_token,
	access_token_expires_at_unixtime = excluded.access_token_expires_at_unixtime,
	refresh_token = excluded.refresh_token,
	scope = excluded.scope`, collection),
	}, nil
}

// Get retrieves a session by handle
func (r *Repo) Get(ctx context.Context, handle string) (sessions.Record, bool, error) {
	rec := sessions.Record{Handle: handle}
	err := r.sqlDB.QueryRowContext(ctx, r.getQuery, handle).
		Scan(&rec.AccessToken, &rec.AccessTokenExpiry, &rec.RefreshToken, &rec.Scope)
	if errors.Is(err, sql.ErrNoRows) {
		return sessions.Record{}, false, nil
	}
	if err != nil {
		return sessions.Record{}, false, relayerrors.Store(err, "[reposqlite Get] query session")
	}
	return rec, true, nil
}

// Put creates or replaces a session
func (r *Repo) Put(ctx context.Context, handle string, rec sessions.Record) error {
	rec.Handle = handle
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("[reposqlite Put]: %w", err)
	}

	if _, err := r.sqlDB.ExecContext(ctx, r.putQuery,
		handle, rec.AccessToken, rec.AccessTokenExpiry, rec.RefreshToken, rec.Scope,
	); err != nil {
		return relayerrors.Store(err, "[reposqlite Put] upsert session")
	}
	return nil
}

// Ping checks the database is reachable
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.sqlDB.PingContext(ctx); err != nil {
		return relayerrors.Store(err, "[reposqlite Ping]")
	}
	return nil
}

// Close releases the underlying SQLite database.
func (r *Repo) Close() error {
	if r == nil || r.sqlDB == nil {
		return nil
	}
	return r.sqlDB.Close()
}
