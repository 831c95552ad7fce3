package server

import (
	"net/http"
)

// SetSessionCookie hands the session handle to the browser.
// The cookie lifetime is independent of the access token lifetime.
func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, handle string) {
	isSecure := getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetCookieName(),
		Value:    handle,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.nowTime().Add(s.config.GetSessionExpiry()),
	})
}

func (s *Server) sessionHandle(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.config.GetCookieName())
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
