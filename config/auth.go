package config

import (
	"fmt"
	"strings"
)

// AuthStrategy names the strategy the agent prefers when the server offers
// several. Valid values are defined as constants below.
type AuthStrategy string

const (
	// AuthStrategyLocal uses the server's local-account sign-in.
	AuthStrategyLocal AuthStrategy = "local"
	// AuthStrategyLDAP uses the server's directory-backed sign-in.
	AuthStrategyLDAP AuthStrategy = "ldap"
	// AuthStrategyIdP uses an identity-provider redirect flow.
	AuthStrategyIdP AuthStrategy = "idp"
	// AuthStrategyOffline resumes the cached authorization without network.
	AuthStrategyOffline AuthStrategy = "offline"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthStrategy.
func (a *AuthStrategy) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "local", "ldap", "idp", "offline":
		*a = AuthStrategy(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthStrategy: %q (valid options: local, ldap, idp, offline)", v)
	}
}

// IdPConfig contains identity-provider configuration, used when the
// preferred strategy is idp or when the server offers a redirect flow.
type IdPConfig struct {
	Provider     string `env:"PROVIDER"      envDefault:"oidc"`
	ProviderName string `env:"PROVIDER_NAME"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8642/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Strategy is the agent's preferred sign-in strategy.
	Strategy AuthStrategy `env:"AUTH_STRATEGY" envDefault:"local"`

	// Username and Password are the agent's sign-in credentials for the
	// credential-based strategies. Credentials are held only for the login
	// attempt and are never persisted in clear.
	Username string `env:"AUTH_USERNAME"`
	Password string `env:"AUTH_PASSWORD"`

	// IdP configuration (used when Strategy=idp).
	IdP IdPConfig `envPrefix:"IDP_"`

	// OfflineEnabled permits the offline fallback when no connectivity is
	// available and a credential was captured on a prior online login.
	OfflineEnabled bool `env:"AUTH_OFFLINE_ENABLED" envDefault:"true"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Strategy == "" {
		a.Strategy = AuthStrategyLocal
	}
}
