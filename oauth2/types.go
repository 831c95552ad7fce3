package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: grant_type, client_id, client_secret, code, redirect_uri
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for a new access token.
	// Token request includes: grant_type, client_id, client_secret, refresh_token, redirect_uri
	RefreshTokenGrant GrantType = "refresh_token"
)

// Token request and callback parameter names
const (
	ParamGrantType   = "grant_type"
	ParamCode        = "code"
	ParamRedirectURI = "redirect_uri"
	ParamError       = "error"
)
