package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	apperrors "github.com/terrafield/fieldsync/internal/errors"
	httpx "github.com/terrafield/fieldsync/internal/http"
	obserrors "github.com/terrafield/fieldsync/internal/observability/errors"
	"github.com/terrafield/fieldsync/internal/ports"
)

// ErrAttemptInFlight is returned when a second authentication attempt is
// started while one is pending. Attempts are rejected synchronously rather
// than interleaved; they must never race the session store.
var ErrAttemptInFlight = errors.New("authentication attempt already in flight")

// AuthenticatorOptions groups dependencies for Authenticator. Registry,
// Sessions, and Client are required; construction panics on their absence
// since running without them is a programming error, not a runtime
// condition.
type AuthenticatorOptions struct {
	Registry *Registry
	Sessions ports.SessionStore
	Client   *httpx.Client
	Settings ports.SettingsSource // optional; sanity policy applies without it
	Vault    ports.CredentialVault
	Delegate ports.Delegate // optional
	Logger   *slog.Logger   // optional
}

// Authenticator orchestrates one authentication attempt end to end: it
// resolves a strategy, drives it, interprets the result, updates the
// session store on success, and reports a terminal status. It also owns the
// signup and change-password flows since both share the policy and error
// machinery.
type Authenticator struct {
	registry *Registry
	sessions ports.SessionStore
	client   *httpx.Client
	settings ports.SettingsSource
	vault    ports.CredentialVault
	delegate ports.Delegate
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight bool
	pending  ports.ExternalFlowStrategy
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(opts AuthenticatorOptions) *Authenticator {
	if opts.Registry == nil || opts.Sessions == nil || opts.Client == nil {
		panic("authenticator requires registry, session store, and client")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		registry: opts.Registry,
		sessions: opts.Sessions,
		client:   opts.Client,
		settings: opts.Settings,
		vault:    opts.Vault,
		delegate: opts.Delegate,
		logger:   logger,
	}
}

// Authenticate performs a single-phase login attempt with the given
// strategy kind. The strategy's error passes through unchanged so the
// taxonomy stays stable across strategies. A failed attempt never touches
// the session store: authenticating incorrectly while already logged in
// must not log the user out.
func (a *Authenticator) Authenticate(ctx context.Context, kind domainauth.Kind, creds domainauth.Credentials) (domainauth.Status, error) {
	if err := a.begin(nil); err != nil {
		return domainauth.StatusError, err
	}
	defer a.end()

	strategy, ok := a.registry.Resolve(kind)
	if !ok {
		err := apperrors.Unimplemented("unsupported strategy " + kind.String())
		a.report(domainauth.StatusError, "")
		return domainauth.StatusError, err
	}

	result, err := strategy.Login(ctx, creds)
	return a.finish(ctx, kind, creds, result, err)
}

// BeginExternalLogin starts a two-phase identity-provider flow. The attempt
// stays in flight until CompleteExternalLogin or CancelExternalLogin.
func (a *Authenticator) BeginExternalLogin(ctx context.Context, kind domainauth.Kind) (ports.ExternalLogin, error) {
	strategy, ok := a.registry.Resolve(kind)
	if !ok {
		return ports.ExternalLogin{}, apperrors.Unimplemented("unsupported strategy " + kind.String())
	}
	external, ok := strategy.(ports.ExternalFlowStrategy)
	if !ok {
		return ports.ExternalLogin{}, apperrors.Unimplemented("strategy " + kind.String() + " has no external flow")
	}

	if err := a.begin(external); err != nil {
		return ports.ExternalLogin{}, err
	}

	login, err := external.BeginExternal(ctx)
	if err != nil {
		a.end()
		return ports.ExternalLogin{}, err
	}
	return login, nil
}

// CompleteExternalLogin finishes the pending two-phase flow with the
// external callback.
func (a *Authenticator) CompleteExternalLogin(ctx context.Context, cb ports.ExternalCallback) (domainauth.Status, error) {
	a.mu.Lock()
	external := a.pending
	a.mu.Unlock()
	if external == nil {
		return domainauth.StatusError, apperrors.Unimplemented("no external login in progress")
	}
	defer a.end()

	result, err := external.CompleteExternal(ctx, cb)
	return a.finish(ctx, external.Kind(), domainauth.Credentials{}, result, err)
}

// CancelExternalLogin abandons the pending two-phase flow. The session
// store is untouched.
func (a *Authenticator) CancelExternalLogin(ctx context.Context) (domainauth.Status, error) {
	return a.CompleteExternalLogin(ctx, ports.ExternalCallback{Cancelled: true})
}

// SignUp validates a registration request client-side and submits it. The
// server remains the final authority on acceptance.
func (a *Authenticator) SignUp(ctx context.Context, req domainauth.SignupRequest) (domainauth.SignupResult, error) {
	policy := a.policyFor(ctx, domainauth.KindLocal)
	if violations := req.Validate(policy); len(violations) > 0 {
		return domainauth.SignupResult{}, apperrors.PolicyViolation(strings.Join(violations, "; "))
	}

	result, err := a.client.Signup(ctx, req)
	if err != nil {
		a.logFailure(ctx, "signup failed", err)
		a.report(domainauth.StatusError, "")
		return domainauth.SignupResult{}, err
	}

	a.logger.InfoContext(ctx, "account registered", "user_id", result.UserID)
	a.report(domainauth.StatusRegistrationSuccess, result.UserID)
	return result, nil
}

// ChangePassword validates a password change client-side and submits it for
// the signed-in user. Local validation failures never reach the network.
func (a *Authenticator) ChangePassword(ctx context.Context, req domainauth.ChangePasswordRequest) error {
	kind := a.activeKind(ctx)
	policy := a.policyFor(ctx, kind)
	if violations := req.Validate(policy); len(violations) > 0 {
		return apperrors.PolicyViolation(strings.Join(violations, "; "))
	}

	if err := a.client.ChangePassword(ctx, req); err != nil {
		a.logFailure(ctx, "change password failed", err)
		return err
	}

	a.logger.InfoContext(ctx, "password changed")
	return nil
}

// SignOut discards the authoritative session along with its persisted
// record. Idempotent.
func (a *Authenticator) SignOut(ctx context.Context) error {
	return a.sessions.Forget(ctx)
}

// FetchCaptcha retrieves a signup captcha challenge from the server.
func (a *Authenticator) FetchCaptcha(ctx context.Context) (domainauth.Captcha, error) {
	return a.client.FetchCaptcha(ctx)
}

// VerifyCaptcha checks a solved captcha with the server.
func (a *Authenticator) VerifyCaptcha(ctx context.Context, captcha domainauth.Captcha, text string) (domainauth.CaptchaVerification, error) {
	return a.client.VerifyCaptcha(ctx, captcha.Token, text)
}

// finish interprets a strategy result, updates the session store on
// success, captures the offline credential for online password logins, and
// reports the terminal status.
func (a *Authenticator) finish(
	ctx context.Context,
	kind domainauth.Kind,
	creds domainauth.Credentials,
	result ports.LoginResult,
	err error,
) (domainauth.Status, error) {
	if err != nil {
		a.logFailure(ctx, "authentication failed", err, "strategy", kind.String())
		a.report(domainauth.StatusError, "")
		return domainauth.StatusError, err
	}

	switch result.Status {
	case domainauth.StatusSuccess:
		if setErr := a.sessions.Set(ctx, result.Session); setErr != nil {
			a.logFailure(ctx, "store session failed", setErr, "strategy", kind.String())
			a.report(domainauth.StatusError, "")
			return domainauth.StatusError, apperrors.Network(setErr)
		}
		a.captureOfflineCredential(ctx, kind, creds)
		a.logger.InfoContext(ctx, "authenticated",
			"strategy", kind.String(),
			"user_id", result.Session.UserID,
		)
		a.report(domainauth.StatusSuccess, result.Session.UserID)
		return domainauth.StatusSuccess, nil

	default:
		a.logger.InfoContext(ctx, "authentication did not succeed",
			"strategy", kind.String(),
			"status", result.Status.String(),
			"message", result.Message,
		)
		a.report(result.Status, "")
		return result.Status, nil
	}
}

// captureOfflineCredential stores the password after a successful online
// credential login so the offline strategy becomes available.
func (a *Authenticator) captureOfflineCredential(ctx context.Context, kind domainauth.Kind, creds domainauth.Credentials) {
	if a.vault == nil || creds.Password == "" {
		return
	}
	if kind.Family != domainauth.FamilyLocal && kind.Family != domainauth.FamilyLDAP {
		return
	}
	if err := a.vault.StorePassword(ctx, creds.Username, creds.Password); err != nil {
		a.logger.WarnContext(ctx, "store offline credential failed", "error", err)
	}
}

// activeKind maps the current session's origin onto the strategy kind used
// for policy lookup. Offline sessions fall back to the local policy since
// their credential originated from an online password login.
func (a *Authenticator) activeKind(ctx context.Context) domainauth.Kind {
	sess, ok := a.sessions.Current(ctx)
	if !ok || sess.Origin == domainauth.FamilyOffline || sess.Origin == "" {
		return domainauth.KindLocal
	}
	return domainauth.Kind{Family: sess.Origin}
}

// policyFor returns the server policy for a kind, or the sanity policy when
// none is configured or the settings source is unavailable.
func (a *Authenticator) policyFor(ctx context.Context, kind domainauth.Kind) domainauth.PasswordPolicy {
	if a.settings == nil {
		return domainauth.SanityPolicy()
	}
	policy, ok, err := a.settings.PasswordPolicy(ctx, kind)
	if err != nil {
		a.logger.WarnContext(ctx, "password policy unavailable, applying sanity policy", "error", err)
		return domainauth.SanityPolicy()
	}
	if !ok {
		return domainauth.SanityPolicy()
	}
	return policy
}

// begin marks an attempt in flight, rejecting a second concurrent attempt.
func (a *Authenticator) begin(external ports.ExternalFlowStrategy) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight {
		return ErrAttemptInFlight
	}
	a.inFlight = true
	a.pending = external
	return nil
}

func (a *Authenticator) end() {
	a.mu.Lock()
	a.inFlight = false
	a.pending = nil
	a.mu.Unlock()
}

func (a *Authenticator) report(status domainauth.Status, userID string) {
	if a.delegate != nil {
		a.delegate.AuthenticationComplete(status, userID)
	}
}

func (a *Authenticator) logFailure(ctx context.Context, msg string, err error, args ...any) {
	fields := append([]any{
		"error", err,
		"error_class", obserrors.Classify(err),
		"code", string(apperrors.GetCode(err)),
	}, args...)
	a.logger.WarnContext(ctx, msg, fields...)
}
