package config

import "strings"

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetWebAppAuthURL() string
	GetMainPageURL() string
	GetRedirectURL() string
	GetTokenURL() string
	GetScopes() []string
	GetIssuerURL() string
}

// OAuth keeps the lower case variable names used by existing deployments
type OAuth struct {
	ClientID      string   `env:"client_id,required,notEmpty"`
	ClientSecret  string   `env:"client_secret,required,notEmpty"`
	WebAppAuthURL string   `env:"freee_webapp_auth_url"`
	MainPageURL   string   `env:"mainpage_url,required,notEmpty"`
	TokenURL      string   `env:"TOKEN_URL" envDefault:"https://accounts.secure.freee.co.jp/public_api/token"`
	Scopes        []string `env:"OAUTH_SCOPES" envSeparator:","`
	IssuerURL     string   `env:"OIDC_ISSUER_URL"`
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetClientID() string {
	return o.ClientID
}

func (o OAuth) GetClientSecret() string {
	return o.ClientSecret
}

func (o OAuth) GetWebAppAuthURL() string {
	return o.WebAppAuthURL
}

func (o OAuth) GetMainPageURL() string {
	return o.MainPageURL
}

// GetRedirectURL is the callback registered with the provider
func (o OAuth) GetRedirectURL() string {
	return o.MainPageURL + "?page=redirect"
}

func (o OAuth) GetTokenURL() string {
	return o.TokenURL
}

func (o OAuth) GetScopes() []string {
	scopes := make([]string, 0, len(o.Scopes))
	for _, s := range o.Scopes {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func (o OAuth) GetIssuerURL() string {
	return o.IssuerURL
}
