package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-oauth-relay/freeeapi"
	"github.com/jrsteele09/go-oauth-relay/internal/config"
	"github.com/jrsteele09/go-oauth-relay/internal/metrics"
	"github.com/jrsteele09/go-oauth-relay/sessions"
)

// SessionManager resolves and creates sessions
type SessionManager interface {
	ResolveAccessToken(ctx context.Context, handle string) (string, error)
	BeginSession(ctx context.Context, authCode string) (handle, accessToken string, err error)
}

// APIClient performs the downstream call made with a resolved access token
type APIClient interface {
	Fetch(ctx context.Context, accessToken string) (*freeeapi.Response, error)
}

// Dependencies holds the collaborators the server routes requests to
type Dependencies struct {
	Sessions SessionManager
	API      APIClient
	AuthURL  string           // where browsers without a session are sent
	Store    sessions.Pinger  // optional, used by /healthz
	Metrics  *metrics.Metrics // optional
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	deps    Dependencies
	nowTime func() time.Time
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func New(config config.Config, deps Dependencies, options ...ServerOption) (*Server, error) {
	if config == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("[Server New] session manager is required")
	}
	if deps.API == nil {
		return nil, errors.New("[Server New] api client is required")
	}
	if deps.AuthURL == "" {
		return nil, errors.New("[Server New] authorization url is required")
	}

	s := &Server{
		env:     config.GetEnv(),
		mux:     http.NewServeMux(),
		config:  config,
		deps:    deps,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Info().Msg(fmt.Sprintf("[%-19s] %s", colouredMethod(method), path))
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
