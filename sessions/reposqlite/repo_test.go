package reposqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-oauth-relay/internal/errors"
	"github.com/jrsteele09/go-oauth-relay/sessions"
	"github.com/jrsteele09/go-oauth-relay/sessions/reposqlite"
	"github.com/jrsteele09/go-oauth-relay/sessions/repotest"
)

func openRepo(t *testing.T, path string) *reposqlite.Repo {
	t.Helper()
	repo, err := reposqlite.Open(context.Background(), path, "sessions")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, repo.Close()) })
	return repo
}

func TestRepo(t *testing.T) {
	repotest.Run(t, func(t *testing.T) sessions.Repo {
		return openRepo(t, filepath.Join(t.TempDir(), "sessions.db"))
	})
}

func TestRepoSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	want := repotest.Record("persisted")

	first, err := reposqlite.Open(context.Background(), path, "sessions")
	require.NoError(t, err)
	require.NoError(t, first.Put(context.Background(), want.Handle, want))
	require.NoError(t, first.Close())

	second := openRepo(t, path)
	require.NoError(t, second.Ping(context.Background()))

	got, found, err := second.Get(context.Background(), want.Handle)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, got)
}

func TestOpenValidation(t *testing.T) {
	_, err := reposqlite.Open(context.Background(), " ", "sessions")
	require.Error(t, err)

	_, err = reposqlite.Open(context.Background(), filepath.Join(t.TempDir(), "x.db"), "sessions; DROP TABLE x")
	require.Error(t, err)
}

func TestRepoClosed(t *testing.T) {
	repo, err := reposqlite.Open(context.Background(), filepath.Join(t.TempDir(), "sessions.db"), "sessions")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, _, err = repo.Get(context.Background(), "h")
	require.ErrorIs(t, err, errors.ErrStore)
}
