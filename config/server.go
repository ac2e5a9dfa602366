package config

import (
	"strings"
	"time"
)

// ServerConfig contains field server connection configuration.
type ServerConfig struct {
	// URL is the base URL of the field server (e.g., "https://field.example.com").
	URL string `env:"URL,required"`

	// DeviceUID identifies this device in the token exchange. Generated and
	// persisted on first run when empty.
	DeviceUID string `env:"DEVICE_UID"`

	// Timeout bounds every API round trip.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to server configuration values.
func (s *ServerConfig) Sanitize() {
	s.URL = strings.TrimSuffix(strings.TrimSpace(s.URL), "/")
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
}
