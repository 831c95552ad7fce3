package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	xoauth2 "golang.org/x/oauth2"

	"github.com/jrsteele09/go-oauth-relay/oauth2"
)

// freee endpoints used when nothing else is configured
const (
	DefaultAuthURL  = "https://accounts.secure.freee.co.jp/public_api/authorize"
	DefaultTokenURL = "https://accounts.secure.freee.co.jp/public_api/token"

	defaultTimeout = 10 * time.Second
)

// Config holds everything needed to talk to the provider's token endpoint
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// WebAppAuthURL is a fully built authorization page URL returned verbatim by AuthCodeURL.
	WebAppAuthURL string
	AuthURL       string
	TokenURL      string
	Scopes        []string

	// IssuerURL enables OpenID Connect discovery of the endpoints and ID token checks.
	// Token responses must still carry created_at and expires_in as freee does;
	// a standard OIDC provider that omits created_at fails every grant.
	IssuerURL string

	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client performs the authorization code and refresh token grants
type Client struct {
	oauthCfg      *xoauth2.Config
	httpClient    *http.Client
	verifier      *oidc.IDTokenVerifier
	webAppAuthURL string
}

// New creates a provider client. With an issuer configured the endpoints are discovered once here.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[provider New] client id is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("[provider New] client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("[provider New] redirect url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &tokenTransport{base: base, redirectURI: cfg.RedirectURL},
	}

	endpoint := xoauth2.Endpoint{
		AuthURL:  valueOr(cfg.AuthURL, DefaultAuthURL),
		TokenURL: valueOr(cfg.TokenURL, DefaultTokenURL),
	}

	c := &Client{httpClient: httpClient, webAppAuthURL: cfg.WebAppAuthURL}

	if cfg.IssuerURL != "" {
		discoverCtx, cancel := context.WithTimeout(oidc.ClientContext(ctx, httpClient), timeout)
		defer cancel()

		p, err := oidc.NewProvider(discoverCtx, cfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("[provider New] discovering %s: %w", cfg.IssuerURL, err)
		}
		endpoint = p.Endpoint()
		c.verifier = p.Verifier(&oidc.Config{ClientID: cfg.ClientID})
		log.Info().Str("issuer", cfg.IssuerURL).Str("token_url", endpoint.TokenURL).Msg("[provider New] discovered endpoints")
	}

	// Credentials travel in the form body together with the grant
	endpoint.AuthStyle = xoauth2.AuthStyleInParams

	c.oauthCfg = &xoauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
	}
	return c, nil
}

// AuthCodeURL returns the page the browser is sent to when it has no session
func (c *Client) AuthCodeURL() string {
	if c.webAppAuthURL != "" {
		return c.webAppAuthURL
	}
	return c.oauthCfg.AuthCodeURL("")
}

// ExchangeCode trades an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.TokenResponse, error) {
	ctx, obs := withObserver(context.WithValue(ctx, xoauth2.HTTPClient, c.httpClient))

	tok, err := c.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, classify(err, obs, oauth2.AuthorizationCodeGrant)
	}
	return c.tokenResponse(ctx, tok, obs, true)
}

// ExchangeRefresh trades a refresh token for a new access token.
// A response without refresh_token keeps the one supplied.
func (c *Client) ExchangeRefresh(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	if refreshToken == "" {
		return nil, &Error{Reason: "refresh token is required"}
	}
	ctx, obs := withObserver(context.WithValue(ctx, xoauth2.HTTPClient, c.httpClient))

	// An expired token forces the source to hit the token endpoint
	tok, err := c.oauthCfg.TokenSource(ctx, &xoauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	}).Token()
	if err != nil {
		return nil, classify(err, obs, oauth2.RefreshTokenGrant)
	}
	return c.tokenResponse(ctx, tok, obs, false)
}

func (c *Client) tokenResponse(ctx context.Context, tok *xoauth2.Token, obs *observed, requireRefresh bool) (*oauth2.TokenResponse, error) {
	tr := &oauth2.TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		CreatedAt:    extraInt64(tok, "created_at"),
	}
	if tr.ExpiresIn == 0 {
		tr.ExpiresIn = extraInt64(tok, "expires_in")
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		tr.Scope = scope
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		tr.IDToken = idToken
	}

	if field := tr.MissingField(requireRefresh); field != "" {
		log.Warn().Int("status", obs.status).Str("missing", field).Msg("[provider] incomplete token response")
		return nil, &Error{StatusCode: obs.status, Body: obs.body, Reason: "missing " + field}
	}

	if c.verifier != nil && tr.IDToken != "" {
		if _, err := c.verifier.Verify(ctx, tr.IDToken); err != nil {
			return nil, &Error{StatusCode: obs.status, Body: obs.body, Reason: "invalid id_token", Err: err}
		}
	}
	return tr, nil
}

// classify maps oauth2 package failures onto Error
func classify(err error, obs *observed, grant oauth2.GrantType) error {
	var retrieveErr *xoauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		pe := &Error{Body: string(retrieveErr.Body), Reason: retrieveErr.ErrorCode}
		if retrieveErr.Response != nil {
			pe.StatusCode = retrieveErr.Response.StatusCode
		}
		log.Warn().Str("grant", string(grant)).Int("status", pe.StatusCode).Str("body", pe.Body).Msg("[provider] token endpoint rejected grant")
		return pe
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || obs.status == 0 || strings.Contains(err.Error(), "cannot fetch token") {
		log.Warn().Err(err).Str("grant", string(grant)).Msg("[provider] token endpoint unreachable")
		return &Error{Err: err}
	}

	// The endpoint answered 2xx but the body was unusable
	reason := "malformed token response"
	if strings.Contains(err.Error(), "missing access_token") {
		reason = "missing access_token"
	}
	log.Warn().Err(err).Str("grant", string(grant)).Int("status", obs.status).Msg("[provider] unusable token response")
	return &Error{StatusCode: obs.status, Body: obs.body, Reason: reason, Err: err}
}

// extraInt64 reads a numeric field the oauth2 package does not model.
// JSON bodies yield float64, form bodies yield int64 or string.
func extraInt64(tok *xoauth2.Token, key string) int64 {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

func valueOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
