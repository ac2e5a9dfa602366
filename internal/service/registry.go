package service

import (
	"github.com/terrafield/fieldsync/internal/adapters/idp"
	"github.com/terrafield/fieldsync/internal/adapters/offline"
	"github.com/terrafield/fieldsync/internal/adapters/serverauth"
	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	httpx "github.com/terrafield/fieldsync/internal/http"
	"github.com/terrafield/fieldsync/internal/ports"
)

// IdPSettings carries the identity-provider configuration the registry uses
// to build IdP strategies.
type IdPSettings struct {
	Provider     domainauth.ProviderType
	ProviderName string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
}

// RegistryDeps are the explicit dependencies handed to strategies at
// resolution time. No globals; construct once at startup and share.
type RegistryDeps struct {
	Client    *httpx.Client
	DeviceUID string
	Vault     ports.CredentialVault
	Records   ports.SessionRecordStore
	IdP       IdPSettings
}

// Registry maps a strategy kind onto a strategy module. Resolve is a pure
// function of (kind, deps): identical input yields modules with identical
// behavior, and unknown kinds yield no module rather than a default.
//
// Resolution succeeds even when a strategy's collaborators are absent; the
// failure then surfaces at call time through the module's own error
// taxonomy.
type Registry struct {
	deps RegistryDeps
}

// NewRegistry constructs a Registry over the given dependencies.
func NewRegistry(deps RegistryDeps) *Registry {
	return &Registry{deps: deps}
}

// Resolve returns the strategy module for a kind, or ok=false for a kind
// the client does not support. Callers driving a two-phase flow must keep
// the resolved instance across BeginExternal and CompleteExternal.
func (r *Registry) Resolve(kind domainauth.Kind) (ports.Strategy, bool) {
	switch kind.Family {
	case domainauth.FamilyLocal:
		return serverauth.NewLocal(serverauth.Config{
			Client:    r.deps.Client,
			DeviceUID: r.deps.DeviceUID,
		}), true

	case domainauth.FamilyLDAP:
		return serverauth.NewLDAP(serverauth.Config{
			Client:    r.deps.Client,
			DeviceUID: r.deps.DeviceUID,
		}), true

	case domainauth.FamilyOffline:
		return offline.New(r.deps.Vault, r.deps.Records), true

	case domainauth.FamilyIdP:
		return idp.New(idp.Config{
			Provider:     kind.Provider,
			ProviderName: kind.ProviderName,
			ClientID:     r.deps.IdP.ClientID,
			ClientSecret: r.deps.IdP.ClientSecret,
			RedirectURL:  r.deps.IdP.RedirectURL,
			Scope:        r.deps.IdP.Scope,
			DiscoveryURL: r.deps.IdP.DiscoveryURL,
			Client:       r.deps.Client,
			DeviceUID:    r.deps.DeviceUID,
		}), true

	default:
		return nil, false
	}
}

// ResolveName parses a free-text strategy identifier and resolves it.
func (r *Registry) ResolveName(name string) (ports.Strategy, bool) {
	kind, ok := domainauth.ParseKind(name)
	if !ok {
		return nil, false
	}
	return r.Resolve(kind)
}
