package sessions_test

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-oauth-relay/internal/errors"
	"github.com/jrsteele09/go-oauth-relay/oauth2"
	"github.com/jrsteele09/go-oauth-relay/sessions"
	"github.com/jrsteele09/go-oauth-relay/sessions/repoinmemory"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

type fakeProvider struct {
	mu            sync.Mutex
	codeCalls     int
	refreshCalls  int
	lastCode      string
	lastRefresh   string
	codeResp      *oauth2.TokenResponse
	refreshResp   *oauth2.TokenResponse
	err           error
	refreshGate   chan struct{}
	refreshSignal chan struct{}
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (*oauth2.TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codeCalls++
	p.lastCode = code
	if p.err != nil {
		return nil, p.err
	}
	return p.codeResp, nil
}

func (p *fakeProvider) ExchangeRefresh(_ context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	p.mu.Lock()
	p.refreshCalls++
	p.lastRefresh = refreshToken
	gate, signal := p.refreshGate, p.refreshSignal
	resp, err := p.refreshResp, p.err
	p.mu.Unlock()

	if signal != nil {
		signal <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *fakeProvider) calls() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.codeCalls, p.refreshCalls
}

// spyRepo counts writes on top of the in-memory repo
type spyRepo struct {
	*repoinmemory.Repo
	puts   atomic.Int32
	getErr error
	putErr error
}

func (r *spyRepo) Get(ctx context.Context, handle string) (sessions.Record, bool, error) {
	if r.getErr != nil {
		return sessions.Record{}, false, r.getErr
	}
	return r.Repo.Get(ctx, handle)
}

func (r *spyRepo) Put(ctx context.Context, handle string, rec sessions.Record) error {
	r.puts.Add(1)
	if r.putErr != nil {
		return r.putErr
	}
	return r.Repo.Put(ctx, handle, rec)
}

func newSpyRepo(t *testing.T, records ...sessions.Record) *spyRepo {
	t.Helper()
	inner := repoinmemory.New()
	for _, rec := range records {
		require.NoError(t, inner.Put(context.Background(), rec.Handle, rec))
	}
	return &spyRepo{Repo: inner}
}

func newManager(t *testing.T, repo sessions.Repo, provider sessions.TokenProvider, opts ...sessions.ManagerOption) *sessions.Manager {
	t.Helper()
	opts = append([]sessions.ManagerOption{sessions.WithNowTime(func() time.Time { return testNow })}, opts...)
	m, err := sessions.NewManager(repo, provider, opts...)
	require.NoError(t, err)
	return m
}

func tokenResponse(access, refresh string, createdAt int64) *oauth2.TokenResponse {
	return &oauth2.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Scope:        "read write",
		ExpiresIn:    86400,
		CreatedAt:    createdAt,
	}
}

func TestNewManager(t *testing.T) {
	_, err := sessions.NewManager(nil, &fakeProvider{})
	require.Error(t, err)

	_, err = sessions.NewManager(repoinmemory.New(), nil)
	require.Error(t, err)
}

func TestResolveAccessToken(t *testing.T) {
	valid := sessions.Record{
		Handle:            "h-valid",
		AccessToken:       "at-valid",
		AccessTokenExpiry: testNow.Unix() + 3600,
		RefreshToken:      "rt-valid",
		Scope:             "read",
	}
	expired := sessions.Record{
		Handle:            "h-expired",
		AccessToken:       "at-old",
		AccessTokenExpiry: testNow.Unix() - 1,
		RefreshToken:      "rt-old",
		Scope:             "read",
	}

	t.Run("no handle", func(t *testing.T) {
		provider := &fakeProvider{}
		repo := newSpyRepo(t)
		m := newManager(t, repo, provider)

		_, err := m.ResolveAccessToken(context.Background(), "")
		require.ErrorIs(t, err, errors.ErrNoSession)

		_, err = m.ResolveAccessToken(context.Background(), "unknown")
		require.ErrorIs(t, err, errors.ErrNoSession)

		codeCalls, refreshCalls := provider.calls()
		require.Zero(t, codeCalls)
		require.Zero(t, refreshCalls)
		require.Zero(t, repo.puts.Load())
	})

	t.Run("valid session makes no calls and no writes", func(t *testing.T) {
		provider := &fakeProvider{}
		repo := newSpyRepo(t, valid)
		m := newManager(t, repo, provider)

		token, err := m.ResolveAccessToken(context.Background(), valid.Handle)
		require.NoError(t, err)
		require.Equal(t, "at-valid", token)

		_, refreshCalls := provider.calls()
		require.Zero(t, refreshCalls)
		require.Zero(t, repo.puts.Load())
	})

	t.Run("expiry equal to now counts as expired", func(t *testing.T) {
		boundary := valid
		boundary.Handle = "h-boundary"
		boundary.AccessTokenExpiry = testNow.Unix()

		provider := &fakeProvider{refreshResp: tokenResponse("at-new", "rt-new", testNow.Unix())}
		m := newManager(t, newSpyRepo(t, boundary), provider)

		token, err := m.ResolveAccessToken(context.Background(), boundary.Handle)
		require.NoError(t, err)
		require.Equal(t, "at-new", token)
	})

	t.Run("expired session refreshes once and writes once", func(t *testing.T) {
		provider := &fakeProvider{refreshResp: tokenResponse("at-new", "rt-new", testNow.Unix())}
		repo := newSpyRepo(t, expired)
		m := newManager(t, repo, provider)

		token, err := m.ResolveAccessToken(context.Background(), expired.Handle)
		require.NoError(t, err)
		require.Equal(t, "at-new", token)

		_, refreshCalls := provider.calls()
		require.Equal(t, 1, refreshCalls)
		require.Equal(t, "rt-old", provider.lastRefresh)
		require.Equal(t, int32(1), repo.puts.Load())

		stored, found, err := repo.Get(context.Background(), expired.Handle)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, sessions.Record{
			Handle:            expired.Handle,
			AccessToken:       "at-new",
			AccessTokenExpiry: testNow.Unix() + 86400,
			RefreshToken:      "rt-new",
			Scope:             "read write",
		}, stored)
	})

	t.Run("refresh without rotation keeps the refresh token", func(t *testing.T) {
		provider := &fakeProvider{refreshResp: tokenResponse("at-new", "", testNow.Unix())}
		repo := newSpyRepo(t, expired)
		m := newManager(t, repo, provider)

		_, err := m.ResolveAccessToken(context.Background(), expired.Handle)
		require.NoError(t, err)

		stored, _, err := repo.Get(context.Background(), expired.Handle)
		require.NoError(t, err)
		require.Equal(t, "rt-old", stored.RefreshToken)
		require.Equal(t, "at-new", stored.AccessToken)
	})

	t.Run("refresh failure leaves record untouched", func(t *testing.T) {
		providerErr := stderrors.Join(errors.ErrProvider, stderrors.New("invalid_grant"))
		provider := &fakeProvider{err: providerErr}
		repo := newSpyRepo(t, expired)
		m := newManager(t, repo, provider)

		_, err := m.ResolveAccessToken(context.Background(), expired.Handle)
		require.ErrorIs(t, err, errors.ErrProvider)
		require.Zero(t, repo.puts.Load())

		stored, _, err := repo.Get(context.Background(), expired.Handle)
		require.NoError(t, err)
		require.Equal(t, expired, stored)
	})

	t.Run("incomplete refresh response leaves record untouched", func(t *testing.T) {
		provider := &fakeProvider{refreshResp: tokenResponse("at-new", "rt-new", 0)}
		repo := newSpyRepo(t, expired)
		m := newManager(t, repo, provider)

		_, err := m.ResolveAccessToken(context.Background(), expired.Handle)
		require.ErrorIs(t, err, errors.ErrProvider)
		require.ErrorContains(t, err, "missing created_at")
		require.Zero(t, repo.puts.Load())

		stored, _, err := repo.Get(context.Background(), expired.Handle)
		require.NoError(t, err)
		require.Equal(t, expired, stored)
	})

	t.Run("store read failure", func(t *testing.T) {
		repo := newSpyRepo(t)
		repo.getErr = stderrors.New("connection reset")
		m := newManager(t, repo, &fakeProvider{})

		_, err := m.ResolveAccessToken(context.Background(), "h")
		require.ErrorIs(t, err, errors.ErrStore)
	})

	t.Run("store write failure after refresh", func(t *testing.T) {
		provider := &fakeProvider{refreshResp: tokenResponse("at-new", "rt-new", testNow.Unix())}
		repo := newSpyRepo(t, expired)
		repo.putErr = stderrors.New("read only replica")
		m := newManager(t, repo, provider)

		_, err := m.ResolveAccessToken(context.Background(), expired.Handle)
		require.ErrorIs(t, err, errors.ErrStore)
	})
}

func TestResolveAccessTokenConcurrentRefresh(t *testing.T) {
	expired := sessions.Record{
		Handle:            "h-shared",
		AccessToken:       "at-old",
		AccessTokenExpiry: testNow.Unix() - 60,
		RefreshToken:      "rt-old",
	}

	gate := make(chan struct{})
	signal := make(chan struct{}, 16)
	provider := &fakeProvider{
		refreshResp:   tokenResponse("at-new", "rt-new", testNow.Unix()),
		refreshGate:   gate,
		refreshSignal: signal,
	}
	repo := newSpyRepo(t, expired)
	m := newManager(t, repo, provider)

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.ResolveAccessToken(context.Background(), expired.Handle)
		}(i)
	}

	<-signal
	close(gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "at-new", tokens[i])
	}
	_, refreshCalls := provider.calls()
	require.Equal(t, 1, refreshCalls)
	require.Equal(t, int32(1), repo.puts.Load())
}

func TestBeginSession(t *testing.T) {
	t.Run("stores a new session", func(t *testing.T) {
		provider := &fakeProvider{codeResp: tokenResponse("at-1", "rt-1", testNow.Unix())}
		repo := newSpyRepo(t)
		m := newManager(t, repo, provider)

		handle, token, err := m.BeginSession(context.Background(), "code-1")
		require.NoError(t, err)
		require.Equal(t, "at-1", token)
		require.Equal(t, "code-1", provider.lastCode)

		decoded, err := base64.RawURLEncoding.DecodeString(handle)
		require.NoError(t, err)
		require.Len(t, decoded, 32)

		stored, found, err := repo.Get(context.Background(), handle)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, sessions.Record{
			Handle:            handle,
			AccessToken:       "at-1",
			AccessTokenExpiry: testNow.Unix() + 86400,
			RefreshToken:      "rt-1",
			Scope:             "read write",
		}, stored)

		// A fresh session resolves without a refresh
		resolved, err := m.ResolveAccessToken(context.Background(), handle)
		require.NoError(t, err)
		require.Equal(t, "at-1", resolved)
	})

	t.Run("missing code never calls the provider", func(t *testing.T) {
		provider := &fakeProvider{}
		repo := newSpyRepo(t)
		m := newManager(t, repo, provider)

		_, _, err := m.BeginSession(context.Background(), "")
		require.ErrorIs(t, err, errors.ErrMissingCode)

		codeCalls, _ := provider.calls()
		require.Zero(t, codeCalls)
		require.Zero(t, repo.puts.Load())
	})

	t.Run("provider failure writes nothing", func(t *testing.T) {
		provider := &fakeProvider{err: stderrors.Join(errors.ErrProvider, stderrors.New("invalid_grant"))}
		repo := newSpyRepo(t)
		m := newManager(t, repo, provider)

		_, _, err := m.BeginSession(context.Background(), "used-code")
		require.ErrorIs(t, err, errors.ErrProvider)
		require.Zero(t, repo.puts.Load())
	})

	t.Run("partial token response is never stored", func(t *testing.T) {
		provider := &fakeProvider{codeResp: tokenResponse("at-1", "", testNow.Unix())}
		repo := newSpyRepo(t)
		m := newManager(t, repo, provider)

		_, _, err := m.BeginSession(context.Background(), "code")
		require.ErrorIs(t, err, errors.ErrProvider)
		require.NotErrorIs(t, err, errors.ErrInvalidRecord)
		require.ErrorContains(t, err, "missing refresh_token")
		require.Zero(t, repo.puts.Load())
	})

	t.Run("custom handle generator", func(t *testing.T) {
		provider := &fakeProvider{codeResp: tokenResponse("at-1", "rt-1", testNow.Unix())}
		repo := newSpyRepo(t)
		m := newManager(t, repo, provider, sessions.WithHandleGenerator(func() (string, error) {
			return "fixed-handle", nil
		}))

		handle, _, err := m.BeginSession(context.Background(), "code")
		require.NoError(t, err)
		require.Equal(t, "fixed-handle", handle)

		_, found, err := repo.Get(context.Background(), "fixed-handle")
		require.NoError(t, err)
		require.True(t, found)
	})

	t.Run("handle generator failure", func(t *testing.T) {
		provider := &fakeProvider{codeResp: tokenResponse("at-1", "rt-1", testNow.Unix())}
		repo := newSpyRepo(t)
		m := newManager(t, repo, provider, sessions.WithHandleGenerator(func() (string, error) {
			return "", stderrors.New("entropy exhausted")
		}))

		_, _, err := m.BeginSession(context.Background(), "code")
		require.Error(t, err)
		require.Zero(t, repo.puts.Load())
	})
}
