package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthStrategy_UnmarshalText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected AuthStrategy
		wantErr  bool
	}{
		{name: "local", input: "local", expected: AuthStrategyLocal},
		{name: "ldap", input: "ldap", expected: AuthStrategyLDAP},
		{name: "idp", input: "idp", expected: AuthStrategyIdP},
		{name: "offline", input: "offline", expected: AuthStrategyOffline},
		{name: "case insensitive", input: "LDAP", expected: AuthStrategyLDAP},
		{name: "invalid", input: "kerberos", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var s AuthStrategy
			err := s.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s)
		})
	}
}

func TestAppConfig_ParseFromEnv(t *testing.T) {
	t.Setenv("SERVER_URL", "https://field.example.com/")
	t.Setenv("SERVER_TIMEOUT", "10s")
	t.Setenv("AUTH_STRATEGY", "ldap")
	t.Setenv("AUTH_USERNAME", "pfield")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis.local:6379")
	t.Setenv("IDP_CLIENT_ID", "fieldsync-client")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "https://field.example.com", cfg.Server.URL)
	assert.Equal(t, 10*time.Second, cfg.Server.Timeout)
	assert.Equal(t, AuthStrategyLDAP, cfg.Auth.Strategy)
	assert.Equal(t, "pfield", cfg.Auth.Username)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.local:6379", cfg.Redis.Addr)
	assert.Equal(t, "fieldsync:auth:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "fieldsync-client", cfg.Auth.IdP.ClientID)
	assert.Equal(t, "oidc", cfg.Auth.IdP.Provider)
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("SERVER_URL", "https://field.example.com")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.False(t, cfg.IsDev)
	assert.Equal(t, AuthStrategyLocal, cfg.Auth.Strategy)
	assert.True(t, cfg.Auth.OfflineEnabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "openid profile email", cfg.Auth.IdP.Scope)
}

func TestAppConfig_RequiresServerURL(t *testing.T) {
	var cfg AppConfig
	err := env.Parse(&cfg)
	assert.Error(t, err)
}

func TestServerConfig_Sanitize(t *testing.T) {
	t.Parallel()

	s := ServerConfig{URL: "  https://field.example.com/ ", Timeout: -5 * time.Second}
	s.Sanitize()
	assert.Equal(t, "https://field.example.com", s.URL)
	assert.Equal(t, 30*time.Second, s.Timeout)
}

func TestAuthConfig_Sanitize(t *testing.T) {
	t.Parallel()

	a := AuthConfig{}
	a.Sanitize()
	assert.Equal(t, AuthStrategyLocal, a.Strategy)
}
