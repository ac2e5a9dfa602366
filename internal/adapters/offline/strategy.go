package offline

// Package offline implements the network-free fallback strategy. It never
// creates a new session token; a successful offline login resumes the most
// recently cached authorization, and the rest of the system treats such a
// session as reduced-trust (see the expiry monitor's handling of
// offline-origin sessions).

import (
	"context"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	apperrors "github.com/terrafield/fieldsync/internal/errors"
	"github.com/terrafield/fieldsync/internal/ports"
)

// noStoredPasswordMessage explains why offline sign-in is unavailable.
const noStoredPasswordMessage = "No stored password. Sign in while connected to the server to enable offline access."

// Strategy validates credentials against the device's secure storage and
// resumes the persisted session record.
type Strategy struct {
	vault   ports.CredentialVault
	records ports.SessionRecordStore
}

var _ ports.Strategy = (*Strategy)(nil)

// New constructs the offline strategy. The vault and record store may be
// absent (nil); the strategy then reports itself unavailable at call time
// rather than failing at construction.
func New(vault ports.CredentialVault, records ports.SessionRecordStore) *Strategy {
	return &Strategy{vault: vault, records: records}
}

func (s *Strategy) Kind() domainauth.Kind { return domainauth.KindOffline }

// CanHandleLogin is true only when a password was durably stored from a
// prior successful online login.
func (s *Strategy) CanHandleLogin(ctx context.Context, _ string) bool {
	if s.vault == nil {
		return false
	}
	has, err := s.vault.HasStoredPassword(ctx)
	return err == nil && has
}

// Login succeeds iff the stored credential exists and matches, resuming the
// cached authorization. It performs no network I/O.
func (s *Strategy) Login(ctx context.Context, creds domainauth.Credentials) (ports.LoginResult, error) {
	if s.vault == nil || s.records == nil {
		return unable(noStoredPasswordMessage), nil
	}

	has, err := s.vault.HasStoredPassword(ctx)
	if err != nil {
		return ports.LoginResult{Status: domainauth.StatusError}, apperrors.Network(err)
	}
	if !has {
		return unable(noStoredPasswordMessage), nil
	}

	ok, err := s.vault.CheckPassword(ctx, creds.Username, creds.Password)
	if err != nil {
		return ports.LoginResult{Status: domainauth.StatusError}, apperrors.Network(err)
	}
	if !ok {
		return ports.LoginResult{Status: domainauth.StatusError}, apperrors.InvalidCredentials()
	}

	sess, found, err := s.records.LoadSession(ctx)
	if err != nil {
		return ports.LoginResult{Status: domainauth.StatusError}, apperrors.Network(err)
	}
	if !found {
		return unable("No cached authorization to resume. Sign in while connected to the server."), nil
	}

	sess.Origin = domainauth.FamilyOffline
	return ports.LoginResult{Status: domainauth.StatusSuccess, Session: sess}, nil
}

func unable(message string) ports.LoginResult {
	return ports.LoginResult{Status: domainauth.StatusUnableToAuthenticate, Message: message}
}
