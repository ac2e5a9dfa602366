// Package mocks provides generated mock implementations for testing the
// auth subsystem.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for port interfaces. Regenerate after interface changes with:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockSessionStore(ctrl)
//	store.EXPECT().Current(gomock.Any()).Return(sess, true)
package mocks

// Generate mocks for the session store and credential vault ports.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=auth_ports_mock.go github.com/terrafield/fieldsync/internal/ports SessionStore,CredentialVault
