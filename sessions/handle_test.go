package sessions_test

import (
	"encoding/base64"
	"testing"

	"github.com/jrsteele09/go-oauth-relay/sessions"
	"github.com/stretchr/testify/require"
)

func TestNewHandle(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)

	for i := 0; i < count; i++ {
		h, err := sessions.NewHandle()
		require.NoError(t, err)
		require.Len(t, h, 43)

		raw, err := base64.RawURLEncoding.DecodeString(h)
		require.NoError(t, err)
		require.Len(t, raw, 32)

		_, dup := seen[h]
		require.False(t, dup, "duplicate handle %s", h)
		seen[h] = struct{}{}
	}
}

func TestRecordValidate(t *testing.T) {
	good := sessions.Record{Handle: "h", AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, good.Validate())

	for name, mutate := range map[string]func(*sessions.Record){
		"handle":  func(r *sessions.Record) { r.Handle = "" },
		"access":  func(r *sessions.Record) { r.AccessToken = "" },
		"refresh": func(r *sessions.Record) { r.RefreshToken = "" },
	} {
		t.Run(name, func(t *testing.T) {
			rec := good
			mutate(&rec)
			require.Error(t, rec.Validate())
		})
	}
}
