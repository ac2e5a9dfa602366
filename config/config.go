package config

// AppConfig is the main agent configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config files for
// details on available environment variables:
//   - auth.go: Authentication strategy configuration
//   - server.go: Field server connection configuration
//   - redis.go: Local persistence configuration
type AppConfig struct {
	// IsDev controls development mode behavior (verbose logging, relaxed
	// policy fallbacks). Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Server is the field server connection configuration.
	Server ServerConfig `envPrefix:"SERVER_"`

	// Auth is the authentication configuration.
	Auth AuthConfig

	// Redis is the local persistence configuration.
	Redis RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment
// variables.
func (c *AppConfig) Sanitize() {
	c.Server.Sanitize()
	c.Auth.Sanitize()
}
