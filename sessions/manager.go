package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	relayerrors "github.com/jrsteele09/go-oauth-relay/internal/errors"
	"github.com/jrsteele09/go-oauth-relay/internal/metrics"
	"github.com/jrsteele09/go-oauth-relay/oauth2"
)

const defaultStoreTimeout = 5 * time.Second

// TokenProvider performs the two token grants against the OAuth provider
type TokenProvider interface {
	ExchangeCode(ctx context.Context, code string) (*oauth2.TokenResponse, error)
	ExchangeRefresh(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error)
}

// Manager turns authorization codes into sessions and session handles into live access tokens.
type Manager struct {
	repo         Repo
	provider     TokenProvider
	nowTime      func() time.Time
	newHandle    func() (string, error)
	storeTimeout time.Duration
	metrics      *metrics.Metrics
	refreshes    singleflight.Group
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithStoreTimeout bounds every repo call
func WithStoreTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.storeTimeout = d
		}
	}
}

// WithHandleGenerator replaces NewHandle
func WithHandleGenerator(gen func() (string, error)) ManagerOption {
	return func(m *Manager) {
		m.newHandle = gen
	}
}

// WithMetrics records operation outcomes
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager creates a session manager over repo and provider.
func NewManager(repo Repo, provider TokenProvider, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] Session repo is required")
	}
	if provider == nil {
		return nil, errors.New("[NewManager] Token provider is required")
	}

	m := &Manager{
		repo:         repo,
		provider:     provider,
		nowTime:      time.Now,
		newHandle:    NewHandle,
		storeTimeout: defaultStoreTimeout,
	}

	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// ResolveAccessToken returns a usable access token for handle, refreshing it when expired.
// An empty or unknown handle returns ErrNoSession.
func (m *Manager) ResolveAccessToken(ctx context.Context, handle string) (string, error) {
	if handle == "" {
		m.metrics.SessionOp(metrics.OpResolve, metrics.OutcomeNoSession)
		return "", relayerrors.ErrNoSession
	}

	rec, found, err := m.get(ctx, handle)
	if err != nil {
		m.metrics.SessionOp(metrics.OpResolve, metrics.OutcomeStoreError)
		return "", err
	}
	if !found {
		m.metrics.SessionOp(metrics.OpResolve, metrics.OutcomeNoSession)
		return "", relayerrors.ErrNoSession
	}

	if !rec.Expired(m.nowTime().Unix()) {
		m.metrics.SessionOp(metrics.OpResolve, metrics.OutcomeOK)
		return rec.AccessToken, nil
	}

	token, err := m.refresh(ctx, handle)
	if err != nil {
		m.metrics.SessionOp(metrics.OpResolve, outcomeFor(err))
		return "", err
	}
	m.metrics.SessionOp(metrics.OpResolve, metrics.OutcomeOK)
	return token, nil
}

// refresh collapses concurrent refreshes of one handle into a single provider call and write
func (m *Manager) refresh(ctx context.Context, handle string) (string, error) {
	ch := m.refreshes.DoChan(handle, func() (interface{}, error) {
		// Detached from the first caller so its cancellation does not fail the other waiters
		flightCtx := context.WithoutCancel(ctx)

		// Re-read inside the flight, a waiter that arrives after the write sees the new token
		rec, found, err := m.get(flightCtx, handle)
		if err != nil {
			return "", err
		}
		if !found {
			return "", relayerrors.ErrNoSession
		}
		if !rec.Expired(m.nowTime().Unix()) {
			return rec.AccessToken, nil
		}

		tr, err := m.provider.ExchangeRefresh(flightCtx, rec.RefreshToken)
		if err != nil {
			m.metrics.SessionOp(metrics.OpRefresh, metrics.OutcomeProviderError)
			log.Warn().Err(err).Msg("[Manager refresh] refresh grant failed, keeping stored record")
			return "", err
		}

		if field := tr.MissingField(false); field != "" {
			m.metrics.SessionOp(metrics.OpRefresh, metrics.OutcomeProviderError)
			return "", incompleteResponse("[Manager refresh]", field)
		}

		refreshToken := tr.RefreshToken
		if refreshToken == "" {
			refreshToken = rec.RefreshToken
		}
		next := Record{
			Handle:            handle,
			AccessToken:       tr.AccessToken,
			AccessTokenExpiry: tr.Expiry(),
			RefreshToken:      refreshToken,
			Scope:             tr.Scope,
		}
		if err := m.put(flightCtx, next); err != nil {
			m.metrics.SessionOp(metrics.OpRefresh, metrics.OutcomeStoreError)
			return "", err
		}

		m.metrics.SessionOp(metrics.OpRefresh, metrics.OutcomeOK)
		log.Debug().Int64("expires_at", next.AccessTokenExpiry).Msg("[Manager refresh] access token refreshed")
		return next.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("[Manager refresh] waiting for refresh: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// BeginSession exchanges an authorization code and stores the tokens under a new handle.
// Nothing is written when the exchange fails.
func (m *Manager) BeginSession(ctx context.Context, authCode string) (handle, accessToken string, err error) {
	if authCode == "" {
		m.metrics.SessionOp(metrics.OpBegin, metrics.OutcomeError)
		return "", "", relayerrors.ErrMissingCode
	}

	tr, err := m.provider.ExchangeCode(ctx, authCode)
	if err != nil {
		m.metrics.SessionOp(metrics.OpBegin, metrics.OutcomeProviderError)
		return "", "", err
	}
	if field := tr.MissingField(true); field != "" {
		m.metrics.SessionOp(metrics.OpBegin, metrics.OutcomeProviderError)
		return "", "", incompleteResponse("[Manager BeginSession]", field)
	}

	handle, err = m.newHandle()
	if err != nil {
		m.metrics.SessionOp(metrics.OpBegin, metrics.OutcomeError)
		return "", "", fmt.Errorf("[Manager BeginSession] generating handle: %w", err)
	}

	rec := Record{
		Handle:            handle,
		AccessToken:       tr.AccessToken,
		AccessTokenExpiry: tr.Expiry(),
		RefreshToken:      tr.RefreshToken,
		Scope:             tr.Scope,
	}
	if err := m.put(ctx, rec); err != nil {
		m.metrics.SessionOp(metrics.OpBegin, outcomeFor(err))
		return "", "", err
	}

	m.metrics.SessionOp(metrics.OpBegin, metrics.OutcomeOK)
	return handle, tr.AccessToken, nil
}

func (m *Manager) get(ctx context.Context, handle string) (Record, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	rec, found, err := m.repo.Get(ctx, handle)
	if err != nil {
		return Record{}, false, storeErr(err, "[Manager get] reading session")
	}
	return rec, found, nil
}

func (m *Manager) put(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	if err := m.repo.Put(ctx, rec.Handle, rec); err != nil {
		return storeErr(err, "[Manager put] writing session")
	}
	return nil
}

// incompleteResponse reports a token response the provider should not have sent
func incompleteResponse(prefix, field string) error {
	return relayerrors.Wrapf(relayerrors.ErrProvider, "%s token response missing %s", prefix, field)
}

// storeErr tags repo failures with ErrStore unless the repo already did
func storeErr(err error, msg string) error {
	if relayerrors.Is(err, relayerrors.ErrStore) || relayerrors.Is(err, relayerrors.ErrInvalidRecord) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return relayerrors.Store(err, "%s", msg)
}

func outcomeFor(err error) string {
	switch {
	case relayerrors.Is(err, relayerrors.ErrNoSession):
		return metrics.OutcomeNoSession
	case relayerrors.Is(err, relayerrors.ErrProvider):
		return metrics.OutcomeProviderError
	case relayerrors.Is(err, relayerrors.ErrStore):
		return metrics.OutcomeStoreError
	}
	return metrics.OutcomeError
}
