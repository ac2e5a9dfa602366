package ports

// Package ports defines interfaces (hexagonal ports) for auth-related
// behavior. Implementations live in internal/adapters and internal/http;
// orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
)

// LoginResult is the terminal outcome of one strategy attempt. Session is
// populated only when Status is StatusSuccess. Message carries optional
// user-facing detail for non-success outcomes (e.g. why offline sign-in is
// unavailable).
type LoginResult struct {
	Status  domainauth.Status
	Session domainauth.Session
	Message string
}

// Strategy encapsulates exactly one authentication mechanism. Strategies
// never retry internally; a single failure is reported once and retry policy
// belongs to the caller. Failures are reported as *errors.AuthError values,
// never by panicking, and a missing credential is an invalid-credentials
// result rather than a distinct failure path.
type Strategy interface {
	Kind() domainauth.Kind

	// CanHandleLogin reports whether the strategy can currently attempt a
	// login against the given server target.
	CanHandleLogin(ctx context.Context, target string) bool

	// Login performs a single authentication attempt and returns a terminal
	// result. The returned error, when non-nil, maps the failure onto the
	// AuthError taxonomy and implies Status == StatusError.
	Login(ctx context.Context, creds domainauth.Credentials) (LoginResult, error)
}

// ExternalLogin carries the hand-off data for a two-phase redirect flow.
type ExternalLogin struct {
	AuthURL string
	State   string
	Nonce   string
}

// ExternalCallback carries the completion data returned by the external
// flow. Cancelled marks an abandoned flow; it must surface as a cancelled
// outcome, never as invalid credentials.
type ExternalCallback struct {
	Code      string
	State     string
	Nonce     string
	Cancelled bool
}

// ExternalFlowStrategy is implemented by strategies whose login is split
// across an out-of-process web flow. BeginExternal and CompleteExternal are
// the only two operations this core defines; the browser mechanics are an
// external collaborator.
type ExternalFlowStrategy interface {
	Strategy
	BeginExternal(ctx context.Context) (ExternalLogin, error)
	CompleteExternal(ctx context.Context, cb ExternalCallback) (LoginResult, error)
}

// SessionStore is the single source of truth for the current session.
// Mutations are linearizable with respect to Current; a reader always
// observes a fully-formed session or none.
//
// Clear and Forget differ in what happens to the persisted session record.
// Clear drops only the in-memory authority: an expired online session is no
// longer usable for requests, but its record stays available for offline
// resumption. Forget is an explicit sign-out and removes the record too.
type SessionStore interface {
	Current(ctx context.Context) (domainauth.Session, bool)
	Set(ctx context.Context, sess domainauth.Session) error
	Clear(ctx context.Context) error
	Forget(ctx context.Context) error
}

// SessionRecordStore persists the single current-session record across
// process restarts. Implementations own the storage key layout.
type SessionRecordStore interface {
	SaveSession(ctx context.Context, sess domainauth.Session) error
	LoadSession(ctx context.Context) (domainauth.Session, bool, error)
	DeleteSession(ctx context.Context) error
}

// CredentialVault is the secure-storage collaborator backing the offline
// strategy. The device holds at most one stored credential, captured on the
// last successful online login. This core treats it as an
// existence/equality check; the storage scheme is owned by the
// implementation.
type CredentialVault interface {
	HasStoredPassword(ctx context.Context) (bool, error)
	CheckPassword(ctx context.Context, username, password string) (bool, error)
	StorePassword(ctx context.Context, username, password string) error
	ClearPassword(ctx context.Context) error
}

// SettingsSource exposes server-delivered authentication configuration,
// read at strategy-resolution and policy-evaluation time.
type SettingsSource interface {
	// PasswordPolicy returns the policy for a strategy kind; ok is false when
	// the server configuration carries none.
	PasswordPolicy(ctx context.Context, kind domainauth.Kind) (domainauth.PasswordPolicy, bool, error)

	// AuthenticationStrategies returns the strategy kinds the server offers.
	AuthenticationStrategies(ctx context.Context) ([]domainauth.Kind, error)
}

// Delegate receives the terminal outcome of a coordinator attempt. UserID is
// populated on success and registration success.
type Delegate interface {
	AuthenticationComplete(status domainauth.Status, userID string)
}

// SessionEventKind distinguishes the expiry monitor's notifications.
type SessionEventKind int

const (
	// SessionExpired is a server-confirmed expiry of an online session. The
	// store has already been cleared when this event is observed.
	SessionExpired SessionEventKind = iota
	// OfflineSessionQuestioned is raised when an offline-origin session drew
	// a 401. Offline sessions are not server-validated, so the store is left
	// intact and the caller may prompt for re-authentication.
	OfflineSessionQuestioned
)

// SessionEvent is emitted by the expiry monitor, exactly once per expiry
// event regardless of how many concurrent requests observed the failure.
type SessionEvent struct {
	Kind  SessionEventKind
	Token string
	At    time.Time
}
