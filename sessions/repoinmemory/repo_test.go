package repoinmemory_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-oauth-relay/sessions"
	"github.com/jrsteele09/go-oauth-relay/sessions/repoinmemory"
	"github.com/jrsteele09/go-oauth-relay/sessions/repotest"
	"github.com/stretchr/testify/require"
)

func TestRepo(t *testing.T) {
	repotest.Run(t, func(t *testing.T) sessions.Repo {
		return repoinmemory.New()
	})
}

func TestRepoPutUsesKeyAsHandle(t *testing.T) {
	repo := repoinmemory.New()
	rec := repotest.Record("ignored")
	require.NoError(t, repo.Put(context.Background(), "actual", rec))

	got, found, err := repo.Get(context.Background(), "actual")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "actual", got.Handle)
	require.Equal(t, 1, repo.Len())
}
