package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-oauth-relay/freeeapi"
	"github.com/jrsteele09/go-oauth-relay/internal/config"
	"github.com/jrsteele09/go-oauth-relay/internal/logging"
	"github.com/jrsteele09/go-oauth-relay/internal/metrics"
	"github.com/jrsteele09/go-oauth-relay/provider"
	"github.com/jrsteele09/go-oauth-relay/server"
	"github.com/jrsteele09/go-oauth-relay/sessions"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

func serve(ctx context.Context) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := config.New()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	handler, closeStore, err := buildHandler(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("closing session store")
		}
	}()

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listenAndServe(srv)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := shutdown(srv); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

// buildHandler wires config into the store, provider, session manager and router
func buildHandler(ctx context.Context, c config.Config) (http.Handler, func() error, error) {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	repo, err := openStore(startCtx, c)
	if err != nil {
		return nil, nil, fmt.Errorf("[buildHandler] opening %s store: %w", c.GetStoreBackend(), err)
	}
	closeStore := func() error {
		if closer, ok := repo.(io.Closer); ok {
			return closer.Close()
		}
		return nil
	}

	fail := func(err error) (http.Handler, func() error, error) {
		_ = closeStore()
		return nil, nil, err
	}

	tokenClient, err := provider.New(startCtx, provider.Config{
		ClientID:      c.GetClientID(),
		ClientSecret:  c.GetClientSecret(),
		RedirectURL:   c.GetRedirectURL(),
		WebAppAuthURL: c.GetWebAppAuthURL(),
		TokenURL:      c.GetTokenURL(),
		Scopes:        c.GetScopes(),
		IssuerURL:     c.GetIssuerURL(),
		Timeout:       c.GetProviderTimeout(),
	})
	if err != nil {
		return fail(err)
	}

	m := metrics.New(c.GetAppName())

	manager, err := sessions.NewManager(repo, tokenClient,
		sessions.WithStoreTimeout(c.GetStoreTimeout()),
		sessions.WithMetrics(m),
	)
	if err != nil {
		return fail(err)
	}

	api, err := freeeapi.New(c.GetAPIURL(), c.GetProviderTimeout())
	if err != nil {
		return fail(err)
	}

	deps := server.Dependencies{
		Sessions: manager,
		API:      api,
		AuthURL:  tokenClient.AuthCodeURL(),
		Metrics:  m,
	}
	if pinger, ok := repo.(sessions.Pinger); ok {
		deps.Store = pinger
	}

	s, err := server.New(c, deps)
	if err != nil {
		return fail(fmt.Errorf("[buildHandler] creating server: %w", err))
	}
	return s, closeStore, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
