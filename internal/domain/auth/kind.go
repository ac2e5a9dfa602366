package auth

import "strings"

// Family is the closed set of authentication strategy families.
type Family string

const (
	FamilyLocal   Family = "local"
	FamilyLDAP    Family = "ldap"
	FamilyIdP     Family = "idp"
	FamilyOffline Family = "offline"
)

// ProviderType distinguishes the protocol variants of identity-provider
// strategies. Custom providers carry their name alongside.
type ProviderType string

const (
	ProviderOIDC   ProviderType = "oidc"
	ProviderSAML   ProviderType = "saml"
	ProviderCustom ProviderType = "custom"
)

// Kind identifies one authentication strategy. Provider fields are only
// meaningful when Family is FamilyIdP.
type Kind struct {
	Family       Family
	Provider     ProviderType
	ProviderName string
}

// Common kinds used throughout the subsystem.
var (
	KindLocal   = Kind{Family: FamilyLocal}
	KindLDAP    = Kind{Family: FamilyLDAP}
	KindOffline = Kind{Family: FamilyOffline}
)

// IdP returns the Kind for an identity-provider strategy variant.
func IdP(p ProviderType, name string) Kind {
	return Kind{Family: FamilyIdP, Provider: p, ProviderName: name}
}

// String returns a stable identifier for the kind, suitable for logs and
// persistence keys.
func (k Kind) String() string {
	if k.Family != FamilyIdP {
		return string(k.Family)
	}
	if k.Provider == ProviderCustom && k.ProviderName != "" {
		return "idp:" + k.ProviderName
	}
	return "idp:" + string(k.Provider)
}

// ParseKind normalizes a free-text strategy identifier onto the closed Kind
// enumeration. Server configurations and operators use a variety of aliases
// for the same mechanisms; unrecognized input yields ok=false, never a
// silent default.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return KindLocal, true
	case "ldap", "directory", "activedirectory":
		return KindLDAP, true
	case "oidc", "openidconnect", "openid-connect", "oauth", "oauth2", "google", "login-gov":
		return IdP(ProviderOIDC, ""), true
	case "saml", "saml2":
		return IdP(ProviderSAML, ""), true
	case "geoaxis":
		return IdP(ProviderCustom, "geoaxis"), true
	case "offline":
		return KindOffline, true
	default:
		return Kind{}, false
	}
}
