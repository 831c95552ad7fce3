package oauth2

import "fmt"

// TokenResponse is the provider's answer to a code or refresh grant.
// Providers such as freee return created_at alongside expires_in, so the
// absolute expiry is computed from the provider clock rather than ours.
type TokenResponse struct {
	// AccessToken is the bearer credential for the downstream API.
	AccessToken string `json:"access_token"`

	// RefreshToken mints a new access token without user interaction.
	// May be empty on a refresh response from a non-rotating provider.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope is the granted scope, kept for display only.
	Scope string `json:"scope,omitempty"`

	// TokenType is normally "bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	// CreatedAt is the unix time the provider issued the token.
	CreatedAt int64 `json:"created_at"`

	// IDToken is present only when the provider speaks OpenID Connect.
	IDToken string `json:"id_token,omitempty"`
}

// Expiry returns the absolute unix expiry of the access token
func (t TokenResponse) Expiry() int64 {
	return t.CreatedAt + t.ExpiresIn
}

// MissingField reports the first required field absent from the response, or "" when complete.
// requireRefresh is false for refresh grants, where the provider may keep the old refresh token.
func (t TokenResponse) MissingField(requireRefresh bool) string {
	switch {
	case t.AccessToken == "":
		return "access_token"
	case requireRefresh && t.RefreshToken == "":
		return "refresh_token"
	case t.ExpiresIn == 0:
		return "expires_in"
	case t.CreatedAt == 0:
		return "created_at"
	}
	return ""
}

// String hides the credentials so a response can be logged safely
func (t TokenResponse) String() string {
	return fmt.Sprintf("TokenResponse{scope=%q expires_in=%d created_at=%d}", t.Scope, t.ExpiresIn, t.CreatedAt)
}
