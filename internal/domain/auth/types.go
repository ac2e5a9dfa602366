package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of transport/adapter concerns.

import (
	"log/slog"
	"time"
)

// Credentials carries a username/password pair for a single login attempt.
// Instances are created per attempt and discarded after use; they are never
// persisted by this package.
type Credentials struct {
	Username string
	Password string
}

// LogValue redacts the password so credentials can be passed to slog safely.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("password", "[redacted]"),
	)
}

// Session is the authenticated principal's token + identity pair.
// Immutable once created; a new session always fully replaces the old one.
// Origin records which strategy family established the session, which the
// expiry monitor needs to distinguish server-confirmed expiry from an
// offline session being questioned.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Origin    Family    `json:"origin"`
	IssuedAt  time.Time `json:"issued_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session carries an expiry that has passed.
// A zero ExpiresAt means the server did not communicate one; such sessions
// are only invalidated by a server 401.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Status is the terminal outcome of an authentication attempt. It never
// represents an in-progress state.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusRegistrationSuccess
	StatusUnableToAuthenticate
)

// String returns the stable name of the status for logs.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusRegistrationSuccess:
		return "registration_success"
	case StatusUnableToAuthenticate:
		return "unable_to_authenticate"
	default:
		return "unknown"
	}
}

// Captcha is a bot-resistance challenge issued by the server before signup.
type Captcha struct {
	Token string
	Image []byte
}

// CaptchaVerification is the server's verdict on a solved captcha.
type CaptchaVerification struct {
	Valid bool
}

// SignupRequest carries the fields of an account registration attempt.
type SignupRequest struct {
	DisplayName     string
	Username        string
	Password        string
	ConfirmPassword string
	Email           string
	CaptchaToken    string
	CaptchaText     string
}

// SignupResult is returned by the server on successful registration.
type SignupResult struct {
	UserID string
}

// ChangePasswordRequest carries the fields of a password change attempt.
type ChangePasswordRequest struct {
	CurrentPassword    string
	NewPassword        string
	ConfirmNewPassword string
}
