package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	"github.com/terrafield/fieldsync/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Strategy             = (*MockStrategy)(nil)
	_ ports.ExternalFlowStrategy = (*MockExternalStrategy)(nil)
	_ ports.SessionStore         = (*MemorySessionStore)(nil)
	_ ports.SessionRecordStore   = (*MemoryRecordStore)(nil)
	_ ports.CredentialVault      = (*MemoryVault)(nil)
	_ ports.SettingsSource       = (*StaticSettings)(nil)
	_ ports.Delegate             = (*RecordingDelegate)(nil)
)

// MockStrategy simulates a strategy with configurable behavior.
type MockStrategy struct {
	KindValue      domainauth.Kind
	CanHandleValue bool
	LoginFunc      func(ctx context.Context, creds domainauth.Credentials) (ports.LoginResult, error)

	LoginCalls int
}

func (m *MockStrategy) Kind() domainauth.Kind { return m.KindValue }

func (m *MockStrategy) CanHandleLogin(_ context.Context, _ string) bool { return m.CanHandleValue }

func (m *MockStrategy) Login(ctx context.Context, creds domainauth.Credentials) (ports.LoginResult, error) {
	m.LoginCalls++
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	return ports.LoginResult{
		Status: domainauth.StatusSuccess,
		Session: domainauth.Session{
			Token:  "mock-token",
			UserID: "mock-user-1",
			Origin: m.KindValue.Family,
		},
	}, nil
}

// MockExternalStrategy simulates a two-phase strategy.
type MockExternalStrategy struct {
	MockStrategy
	BeginFunc    func(ctx context.Context) (ports.ExternalLogin, error)
	CompleteFunc func(ctx context.Context, cb ports.ExternalCallback) (ports.LoginResult, error)
}

func (m *MockExternalStrategy) BeginExternal(ctx context.Context) (ports.ExternalLogin, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return ports.ExternalLogin{AuthURL: "https://mock-idp/auth", State: "state-1", Nonce: "nonce-1"}, nil
}

func (m *MockExternalStrategy) CompleteExternal(ctx context.Context, cb ports.ExternalCallback) (ports.LoginResult, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, cb)
	}
	return m.Login(ctx, domainauth.Credentials{})
}

// MemorySessionStore is an in-memory single-session store for unit tests.
type MemorySessionStore struct {
	mu   sync.Mutex
	sess domainauth.Session
	has  bool

	SetCalls    int
	ClearCalls  int
	ForgetCalls int
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (m *MemorySessionStore) Current(_ context.Context) (domainauth.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess, m.has
}

func (m *MemorySessionStore) Set(_ context.Context, sess domainauth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = sess
	m.has = true
	m.SetCalls++
	return nil
}

func (m *MemorySessionStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = domainauth.Session{}
	m.has = false
	m.ClearCalls++
	return nil
}

func (m *MemorySessionStore) Forget(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = domainauth.Session{}
	m.has = false
	m.ForgetCalls++
	return nil
}

// MemoryRecordStore is an in-memory session record persistence double.
type MemoryRecordStore struct {
	mu   sync.Mutex
	sess domainauth.Session
	has  bool
}

func (m *MemoryRecordStore) SaveSession(_ context.Context, sess domainauth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = sess
	m.has = true
	return nil
}

func (m *MemoryRecordStore) LoadSession(_ context.Context) (domainauth.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess, m.has, nil
}

func (m *MemoryRecordStore) DeleteSession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = domainauth.Session{}
	m.has = false
	return nil
}

// MemoryVault is an in-memory credential vault double storing the password
// in clear; for tests only.
type MemoryVault struct {
	mu       sync.Mutex
	username string
	password string
	stored   bool
}

func (m *MemoryVault) HasStoredPassword(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored, nil
}

func (m *MemoryVault) CheckPassword(_ context.Context, username, password string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored && m.username == username && m.password == password, nil
}

func (m *MemoryVault) StorePassword(_ context.Context, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username = username
	m.password = password
	m.stored = true
	return nil
}

func (m *MemoryVault) ClearPassword(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username = ""
	m.password = ""
	m.stored = false
	return nil
}

// StaticSettings serves a fixed strategy list and policy map.
type StaticSettings struct {
	Kinds    []domainauth.Kind
	Policies map[domainauth.Family]domainauth.PasswordPolicy
	Err      error
}

func (s *StaticSettings) AuthenticationStrategies(_ context.Context) ([]domainauth.Kind, error) {
	return s.Kinds, s.Err
}

func (s *StaticSettings) PasswordPolicy(_ context.Context, kind domainauth.Kind) (domainauth.PasswordPolicy, bool, error) {
	if s.Err != nil {
		return domainauth.PasswordPolicy{}, false, s.Err
	}
	p, ok := s.Policies[kind.Family]
	return p, ok, nil
}

// RecordingDelegate captures terminal statuses reported by the coordinator.
type RecordingDelegate struct {
	mu       sync.Mutex
	Statuses []domainauth.Status
	UserIDs  []string
}

func (d *RecordingDelegate) AuthenticationComplete(status domainauth.Status, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Statuses = append(d.Statuses, status)
	d.UserIDs = append(d.UserIDs, userID)
}
