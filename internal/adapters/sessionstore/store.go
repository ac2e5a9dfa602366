package sessionstore

// Package sessionstore holds the single authoritative "current session".
// Exactly one session (or none) is authoritative at any instant; every other
// component reads it through here.

import (
	"context"
	"log/slog"
	"sync"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	"github.com/terrafield/fieldsync/internal/ports"
)

// Store is the in-process session holder. Set, Clear, and Current are
// serialized by a single mutex, so readers always observe a fully-formed
// session or none. An optional SessionRecordStore receives write-through
// updates so the session survives process restarts.
type Store struct {
	mu      sync.RWMutex
	sess    domainauth.Session
	has     bool
	records ports.SessionRecordStore
	logger  *slog.Logger
}

var _ ports.SessionStore = (*Store)(nil)

// New constructs a Store. records may be nil for a purely in-memory store.
func New(records ports.SessionRecordStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{records: records, logger: logger}
}

// Restore loads a previously persisted session record into memory. Called
// once at startup, before any request traffic.
func (s *Store) Restore(ctx context.Context) error {
	if s.records == nil {
		return nil
	}
	sess, ok, err := s.records.LoadSession(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	s.has = true
	return nil
}

// Current returns the authoritative session, if any.
func (s *Store) Current(_ context.Context) (domainauth.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess, s.has
}

// Set replaces the current session in full. There is no field merge and no
// refresh in place.
func (s *Store) Set(ctx context.Context, sess domainauth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	s.has = true
	if s.records != nil {
		if err := s.records.SaveSession(ctx, sess); err != nil {
			// The in-memory session stays authoritative even when the
			// persistence collaborator fails.
			s.logger.WarnContext(ctx, "persist session record failed", "error", err)
		}
	}
	return nil
}

// Clear removes the current session from memory. The persisted record is
// kept: an expired online session is still the most recently cached
// authorization, which is what the offline strategy resumes. Clearing an
// empty store is a no-op and safe to call repeatedly.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = domainauth.Session{}
	s.has = false
	return nil
}

// Forget removes the current session and deletes the persisted record. This
// is the explicit sign-out path; after Forget there is nothing left to
// resume offline.
func (s *Store) Forget(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = domainauth.Session{}
	s.has = false
	if s.records != nil {
		if err := s.records.DeleteSession(ctx); err != nil {
			s.logger.WarnContext(ctx, "delete session record failed", "error", err)
		}
	}
	return nil
}
