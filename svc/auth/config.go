package auth

import "time"

// Config holds the OpenID Connect client settings. Endpoints are derived
// from the issuer URL following the Keycloak realm layout.
type Config struct {
	IssuerURL    string        `env:"OIDC_ISSUER_URL,required"`
	ClientID     string        `env:"OIDC_CLIENT_ID,required"`
	ClientSecret string        `env:"OIDC_CLIENT_SECRET,required"`
	RedirectURL  string        `env:"OIDC_REDIRECT_URL,required"`
	Scopes       []string      `env:"OIDC_SCOPES" envSeparator:"," envDefault:"openid,profile,email"`
	GroupsClaim  string        `env:"OIDC_GROUPS_CLAIM" envDefault:"groups"`
	StateTTL     time.Duration `env:"OIDC_STATE_TTL" envDefault:"10m"`

	// PostLogoutRedirectURL is where the provider sends the browser after
	// ending its own session.
	PostLogoutRedirectURL string `env:"OIDC_POST_LOGOUT_REDIRECT_URL" envDefault:"/"`
}
