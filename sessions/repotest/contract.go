// Package repotest holds the behaviour every sessions.Repo backend must share.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jrsteele09/go-oauth-relay/internal/errors"
	"github.com/jrsteele09/go-oauth-relay/sessions"
	"github.com/stretchr/testify/require"
)

// Record returns a complete record for handle
func Record(handle string) sessions.Record {
	return sessions.Record{
		Handle:            handle,
		AccessToken:       "at-" + handle,
		AccessTokenExpiry: 1_700_086_400,
		RefreshToken:      "rt-" + handle,
		Scope:             "read write",
	}
}

// Run exercises repo against the Repo contract. newRepo must return an empty repo.
func Run(t *testing.T, newRepo func(t *testing.T) sessions.Repo) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing handle is not an error", func(t *testing.T) {
		repo := newRepo(t)
		rec, found, err := repo.Get(ctx, "does-not-exist")
		require.NoError(t, err)
		require.False(t, found)
		require.Equal(t, sessions.Record{}, rec)
	})

	t.Run("put then get", func(t *testing.T) {
		repo := newRepo(t)
		want := Record("h1")
		require.NoError(t, repo.Put(ctx, want.Handle, want))

		got, found, err := repo.Get(ctx, want.Handle)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, want, got)
	})

	t.Run("put overwrites", func(t *testing.T) {
		repo := newRepo(t)
		first := Record("h2")
		require.NoError(t, repo.Put(ctx, first.Handle, first))

		second := first
		second.AccessToken = "at-rotated"
		second.RefreshToken = "rt-rotated"
		second.AccessTokenExpiry = first.AccessTokenExpiry + 86400
		second.Scope = ""
		require.NoError(t, repo.Put(ctx, second.Handle, second))

		got, found, err := repo.Get(ctx, first.Handle)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, second, got)
	})

	t.Run("rejects incomplete records", func(t *testing.T) {
		repo := newRepo(t)

		noAccess := Record("h3")
		noAccess.AccessToken = ""
		require.ErrorIs(t, repo.Put(ctx, noAccess.Handle, noAccess), errors.ErrInvalidRecord)

		noRefresh := Record("h3")
		noRefresh.RefreshToken = ""
		require.ErrorIs(t, repo.Put(ctx, noRefresh.Handle, noRefresh), errors.ErrInvalidRecord)

		require.ErrorIs(t, repo.Put(ctx, "", Record("")), errors.ErrInvalidRecord)

		_, found, err := repo.Get(ctx, "h3")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("handles are independent", func(t *testing.T) {
		repo := newRepo(t)
		const n = 16

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec := Record(fmt.Sprintf("concurrent-%d", i))
				errs <- repo.Put(ctx, rec.Handle, rec)
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		for i := 0; i < n; i++ {
			want := Record(fmt.Sprintf("concurrent-%d", i))
			got, found, err := repo.Get(ctx, want.Handle)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, want, got)
		}
	})
}
