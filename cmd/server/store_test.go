package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-oauth-relay/internal/config"
	"github.com/jrsteele09/go-oauth-relay/sessions"
	"github.com/jrsteele09/go-oauth-relay/sessions/repoinmemory"
	"github.com/jrsteele09/go-oauth-relay/sessions/reporedis"
	"github.com/jrsteele09/go-oauth-relay/sessions/reposqlite"
	"github.com/jrsteele09/go-oauth-relay/sessions/sealed"
)

func testConfig(t *testing.T, extra map[string]string) config.Config {
	t.Helper()
	vars := map[string]string{
		"client_id":     "client-1",
		"client_secret": "secret-1",
		"mainpage_url":  "https://relay.example.com/",
	}
	for k, v := range extra {
		vars[k] = v
	}
	cfg, err := config.NewFromEnvironment(vars)
	require.NoError(t, err)
	return cfg
}

func closeRepo(t *testing.T, repo sessions.Repo) {
	t.Helper()
	if c, ok := repo.(io.Closer); ok {
		t.Cleanup(func() { _ = c.Close() })
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := openStore(ctx, testConfig(t, nil))
		require.NoError(t, err)
		require.IsType(t, &repoinmemory.Repo{}, repo)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		repo, err := openStore(ctx, testConfig(t, map[string]string{
			"STORE_BACKEND": "redis",
			"REDIS_URL":     "redis://" + mr.Addr(),
		}))
		require.NoError(t, err)
		closeRepo(t, repo)
		require.IsType(t, &reporedis.Repo{}, repo)
	})

	t.Run("sqlite creates its directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "sessions.db")
		repo, err := openStore(ctx, testConfig(t, map[string]string{
			"STORE_BACKEND": "sqlite",
			"SQLITE_PATH":   path,
		}))
		require.NoError(t, err)
		closeRepo(t, repo)
		require.IsType(t, &reposqlite.Repo{}, repo)
	})

	t.Run("sealing", func(t *testing.T) {
		key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
		repo, err := openStore(ctx, testConfig(t, map[string]string{"TOKEN_SEALING_KEY": key}))
		require.NoError(t, err)
		require.IsType(t, &sealed.Repo{}, repo)
	})

	t.Run("bad sealing key", func(t *testing.T) {
		_, err := openStore(ctx, testConfig(t, map[string]string{"TOKEN_SEALING_KEY": "short"}))
		require.Error(t, err)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := openStore(ctx, testConfig(t, map[string]string{
			"STORE_BACKEND": "redis",
			"REDIS_URL":     "redis://" + addr,
		}))
		require.Error(t, err)
	})
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, version, strings.TrimSpace(out.String()))
}
