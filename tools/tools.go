//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed globally via `go install` and are not tracked in go.mod
// since they are development tools, not runtime dependencies.
package tools

// Development tools (install via `go install`):
//
// mockgen - Mock generation for port interfaces
//   Install: go install go.uber.org/mock/mockgen@v0.5.2
//   Used by: go generate ./internal/mocks
//   Note: the gomock runtime (go.uber.org/mock) is a tracked test dependency;
//   only the mockgen binary is installed out of band.
//
// Air - Live reload for Go apps
//   Install: go install github.com/air-verse/air@v1.63.0
