package server

import (
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/jrsteele09/go-oauth-relay/internal/errors"
)

// User facing messages. Internal detail never reaches the browser.
const (
	msgTryAgainLater  = "Sorry, we are experiencing a technical problem. Please wait a while and access this page again."
	msgSessionInvalid = "Your session could not be found or has expired. Please access this page again to sign in."
	msgDirectAccess   = "Please do not access this URL directly."
	msgNotAuthorized  = "Authorization was not granted. Please access this page again to sign in."
	msgUnknownPage    = "error"
)

// PageHandler dispatches on ?page=, defaulting to the main page
func (s *Server) PageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get(ParamPage) {
		case "", PageMain:
			s.mainPage(w, r)
		case PageRedirect:
			s.redirectPage(w, r)
		default:
			hlog.FromRequest(r).Debug().Str("page", r.URL.Query().Get(ParamPage)).Msg("[PageHandler] unknown page")
			writeText(w, http.StatusNotFound, msgUnknownPage)
		}
	}
}

// mainPage sends browsers without a session to the provider, otherwise relays one downstream API call
func (s *Server) mainPage(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	handle, ok := s.sessionHandle(r)
	if !ok {
		logger.Debug().Msg("[mainPage] no session cookie, redirecting to authorization page")
		http.Redirect(w, r, s.deps.AuthURL, http.StatusFound)
		return
	}

	accessToken, err := s.deps.Sessions.ResolveAccessToken(r.Context(), handle)
	switch {
	case errors.Is(err, errors.ErrNoSession):
		logger.Debug().Msg("[mainPage] cookie does not match a stored session")
		writeText(w, http.StatusUnauthorized, msgSessionInvalid)
		return
	case errors.Is(err, errors.ErrProvider):
		logger.Warn().Err(err).Msg("[mainPage] refreshing access token failed")
		writeText(w, http.StatusBadGateway, msgTryAgainLater)
		return
	case err != nil:
		logger.Error().Err(err).Msg("[mainPage] resolving access token failed")
		writeText(w, http.StatusServiceUnavailable, msgTryAgainLater)
		return
	}

	resp, err := s.deps.API.Fetch(r.Context(), accessToken)
	if err != nil {
		logger.Error().Err(err).Msg("[mainPage] downstream api call failed")
		writeText(w, http.StatusBadGateway, msgTryAgainLater)
		return
	}

	writeText(w, resp.StatusCode, string(resp.Body))
}

// redirectPage is the provider callback: exchange the code, set the session cookie, go back to the main page
func (s *Server) redirectPage(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	query := r.URL.Query()

	if providerErr := query.Get(ParamError); providerErr != "" {
		logger.Info().Str("error", providerErr).Msg("[redirectPage] provider returned an error")
		writeText(w, http.StatusBadRequest, msgNotAuthorized)
		return
	}

	code := query.Get(ParamCode)
	if code == "" {
		logger.Info().Msg("[redirectPage] callback without code parameter")
		writeText(w, http.StatusBadRequest, msgDirectAccess)
		return
	}

	handle, _, err := s.deps.Sessions.BeginSession(r.Context(), code)
	switch {
	case errors.Is(err, errors.ErrMissingCode):
		writeText(w, http.StatusBadRequest, msgDirectAccess)
		return
	case errors.Is(err, errors.ErrProvider):
		logger.Warn().Err(err).Msg("[redirectPage] code exchange failed")
		writeText(w, http.StatusBadGateway, msgTryAgainLater)
		return
	case err != nil:
		logger.Error().Err(err).Msg("[redirectPage] creating session failed")
		writeText(w, http.StatusServiceUnavailable, msgTryAgainLater)
		return
	}

	s.SetSessionCookie(w, r, handle)
	http.Redirect(w, r, s.config.GetMainPageURL(), http.StatusFound)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
