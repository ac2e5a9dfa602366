package httpx

import (
	"net/http"
	"time"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	apperrors "github.com/terrafield/fieldsync/internal/errors"
	"github.com/terrafield/fieldsync/internal/ports"
)

// AuthTransport is an http.RoundTripper that attaches the current session
// token to every outbound request and inspects every response for
// authorization failure, independent of which strategy established the
// session. It only ever reads the session store; expiry-triggered mutation
// is routed through the Monitor.
type AuthTransport struct {
	base    http.RoundTripper
	store   ports.SessionStore
	monitor *Monitor
	now     func() time.Time
}

// NewAuthTransport wraps base with session handling. A nil base uses
// http.DefaultTransport.
func NewAuthTransport(base http.RoundTripper, store ports.SessionStore, monitor *Monitor) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthTransport{
		base:    base,
		store:   store,
		monitor: monitor,
		now:     time.Now,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Handshake endpoints carry their own authorization semantics; a 401
	// there is a failed login, not an expiry. They still receive the session
	// token, since password changes and re-authentication happen against an
	// established session.
	handshake := IsHandshakePath(req.URL.Path)

	sess, ok := t.store.Current(req.Context())
	if !ok {
		// Unauthenticated request; let the server decide.
		return t.base.RoundTrip(req)
	}

	// A token already known to be expired fails fast without a round trip.
	// Offline sessions are exempt: their cached expiry is not authoritative.
	if !handshake && sess.Origin != domainauth.FamilyOffline && sess.Expired(t.now()) {
		t.monitor.NoteExpired(req.Context(), sess)
		return nil, apperrors.Networkf("expired token")
	}

	authed := req
	if req.Header.Get("Authorization") == "" {
		// Clone before mutating; RoundTrippers must not modify the caller's
		// request. An Authorization header set by the caller (the device
		// token exchange carries the sign-in token itself) is left alone.
		authed = req.Clone(req.Context())
		authed.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := t.base.RoundTrip(authed)
	if err != nil {
		return nil, err
	}

	if !handshake && resp.StatusCode == http.StatusUnauthorized {
		t.monitor.HandleUnauthorized(req.Context(), sess)
	}
	return resp, nil
}
