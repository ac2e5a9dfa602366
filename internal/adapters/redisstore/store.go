package redisstore

// Package redisstore is the Redis-backed persistence collaborator for the
// auth subsystem. It owns three records: the current-session record, the
// device's stored offline credential, and the last-known-good server auth
// settings blob.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	"github.com/terrafield/fieldsync/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

// Store implements ports.SessionRecordStore and ports.CredentialVault over
// a Redis client, plus the settings blob cache consumed by the settings
// service.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var (
	_ ports.SessionRecordStore = (*Store)(nil)
	_ ports.CredentialVault    = (*Store)(nil)
)

// New creates a Store with the default key prefix.
func New(client redis.UniversalClient) *Store {
	return NewWithPrefix(client, "fieldsync:auth:")
}

// NewWithPrefix creates a Store with a custom key prefix.
func NewWithPrefix(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) sessionKey() string    { return s.prefix + "session" }
func (s *Store) credentialKey() string { return s.prefix + "credential" }
func (s *Store) settingsKey() string   { return s.prefix + "settings" }

// SaveSession persists the single current-session record. The record is
// kept even past its expiry: the offline strategy resumes the most recently
// cached authorization whether or not it is still confirmable.
func (s *Store) SaveSession(ctx context.Context, sess domainauth.Session) error {
	if sess.Token == "" {
		return errors.New("session token cannot be empty")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.sessionKey(), data, 0).Err()
}

// LoadSession returns the persisted session record, if any.
func (s *Store) LoadSession(ctx context.Context) (domainauth.Session, bool, error) {
	data, err := s.client.Get(ctx, s.sessionKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, false, nil
		}
		return domainauth.Session{}, false, fmt.Errorf("redis get: %w", err)
	}
	var sess domainauth.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return domainauth.Session{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, true, nil
}

// DeleteSession removes the persisted session record. Deleting an absent
// record is a no-op.
func (s *Store) DeleteSession(ctx context.Context) error {
	return s.client.Del(ctx, s.sessionKey()).Err()
}

// credentialRecord is the stored offline credential. Only a bcrypt hash of
// the password is kept.
type credentialRecord struct {
	Username string `json:"username"`
	Hash     []byte `json:"hash"`
}

// HasStoredPassword reports whether a credential was captured on a prior
// successful online login.
func (s *Store) HasStoredPassword(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, s.credentialKey()).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// CheckPassword verifies a candidate credential against the stored record.
func (s *Store) CheckPassword(ctx context.Context, username, password string) (bool, error) {
	data, err := s.client.Get(ctx, s.credentialKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	var rec credentialRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return false, fmt.Errorf("unmarshal credential: %w", err)
	}
	if rec.Username != username {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword(rec.Hash, []byte(password)) == nil, nil
}

// StorePassword captures the credential after a successful online login.
func (s *Store) StorePassword(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	data, err := json.Marshal(credentialRecord{Username: username, Hash: hash})
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	return s.client.Set(ctx, s.credentialKey(), data, 0).Err()
}

// ClearPassword removes the stored credential.
func (s *Store) ClearPassword(ctx context.Context) error {
	return s.client.Del(ctx, s.credentialKey()).Err()
}

// SaveSettings stores the last-known-good server auth settings blob.
func (s *Store) SaveSettings(ctx context.Context, raw []byte) error {
	if len(raw) == 0 {
		return errors.New("settings blob cannot be empty")
	}
	return s.client.Set(ctx, s.settingsKey(), raw, 0).Err()
}

// LoadSettings returns the cached settings blob, if any.
func (s *Store) LoadSettings(ctx context.Context) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.settingsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}
