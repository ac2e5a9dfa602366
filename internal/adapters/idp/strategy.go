package idp

// Package idp implements the identity-provider redirect strategy using
// OIDC/OAuth2. The flow is two-phase: BeginExternal hands an authorization
// URL to an external browser flow, CompleteExternal exchanges the callback
// for a session. The browser mechanics live outside this module.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	apperrors "github.com/terrafield/fieldsync/internal/errors"
	httpx "github.com/terrafield/fieldsync/internal/http"
	"github.com/terrafield/fieldsync/internal/ports"
	"golang.org/x/oauth2"
)

// Config holds configuration for the IdP strategy.
type Config struct {
	Provider     domainauth.ProviderType
	ProviderName string

	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string

	Client     *httpx.Client // fieldsync server client for the device token exchange
	DeviceUID  string
	HTTPClient *http.Client // optional, used for IdP traffic
}

// Strategy implements ports.ExternalFlowStrategy for OIDC-capable providers.
// Discovery is deferred to first use so the registry can hand out a strategy
// without touching the network; configuration problems surface at call time
// through the error taxonomy.
type Strategy struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.Mutex
	oauthCfg *oauth2.Config
	verifier *gooidc.IDTokenVerifier
	pending  *pendingFlow
}

// pendingFlow is the Pending state of the two-phase sub-machine. It is
// replaced on every BeginExternal and consumed by CompleteExternal.
type pendingFlow struct {
	state string
	nonce string
}

var _ ports.ExternalFlowStrategy = (*Strategy)(nil)

// New constructs the IdP strategy. Construction never performs I/O.
func New(cfg Config) *Strategy {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Strategy{cfg: cfg, httpClient: hc}
}

// Kind returns the idp kind with the configured provider variant.
func (s *Strategy) Kind() domainauth.Kind {
	p := s.cfg.Provider
	if p == "" {
		p = domainauth.ProviderOIDC
	}
	return domainauth.IdP(p, s.cfg.ProviderName)
}

// CanHandleLogin reports whether the strategy is configured for the target.
func (s *Strategy) CanHandleLogin(_ context.Context, target string) bool {
	if s.cfg.DiscoveryURL == "" || s.cfg.ClientID == "" || s.cfg.Client == nil {
		return false
	}
	return target == "" || target == s.cfg.Client.BaseURL()
}

// Login is not a credential flow for this strategy; callers must drive the
// external flow instead.
func (s *Strategy) Login(_ context.Context, _ domainauth.Credentials) (ports.LoginResult, error) {
	return ports.LoginResult{Status: domainauth.StatusError},
		apperrors.Unimplemented("identity-provider sign-in requires the external browser flow")
}

// BeginExternal starts the redirect flow and returns the authorization URL
// with fresh state and nonce. The previous pending flow, if any, is
// abandoned.
func (s *Strategy) BeginExternal(ctx context.Context) (ports.ExternalLogin, error) {
	oauthCfg, _, err := s.ensureDiscovered(ctx)
	if err != nil {
		return ports.ExternalLogin{}, err
	}

	state, err := randomString(32)
	if err != nil {
		return ports.ExternalLogin{}, apperrors.Network(fmt.Errorf("generate state: %w", err))
	}
	nonce, err := randomString(32)
	if err != nil {
		return ports.ExternalLogin{}, apperrors.Network(fmt.Errorf("generate nonce: %w", err))
	}

	authURL := oauthCfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)

	s.mu.Lock()
	s.pending = &pendingFlow{state: state, nonce: nonce}
	s.mu.Unlock()

	return ports.ExternalLogin{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteExternal exchanges the external flow's callback for a session.
// An abandoned flow resolves to the cancelled outcome, never to invalid
// credentials.
func (s *Strategy) CompleteExternal(ctx context.Context, cb ports.ExternalCallback) (ports.LoginResult, error) {
	if cb.Cancelled {
		s.clearPending()
		return errorResult(apperrors.Cancelled())
	}

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending == nil || cb.State != pending.state {
		return errorResult(apperrors.Unauthorized())
	}
	if cb.Code == "" {
		return errorResult(apperrors.InvalidCredentials())
	}

	oauthCfg, verifier, err := s.ensureDiscovered(ctx)
	if err != nil {
		return errorResult(err)
	}

	idpCtx := context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := oauthCfg.Exchange(idpCtx, cb.Code)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return errorResult(apperrors.Cancelled())
		}
		return errorResult(apperrors.Network(fmt.Errorf("exchange code for token: %w", err)))
	}

	signinToken, err := s.signinToken(ctx, verifier, token, pending.nonce)
	if err != nil {
		return errorResult(err)
	}

	authz, err := s.cfg.Client.AuthorizeDevice(ctx, signinToken, s.cfg.DeviceUID)
	if err != nil {
		return errorResult(err)
	}

	issued := authz.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	return ports.LoginResult{
		Status: domainauth.StatusSuccess,
		Session: domainauth.Session{
			Token:     authz.Token,
			UserID:    authz.UserID,
			Origin:    domainauth.FamilyIdP,
			IssuedAt:  issued,
			ExpiresAt: authz.ExpiresAt,
		},
	}, nil
}

// signinToken verifies the id_token when the openid scope is in play and
// returns the token the fieldsync server accepts for the device exchange.
func (s *Strategy) signinToken(ctx context.Context, verifier *gooidc.IDTokenVerifier, token *oauth2.Token, expectedNonce string) (string, error) {
	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		// Pure OAuth2 providers hand back only an access token.
		if token.AccessToken == "" {
			return "", apperrors.Decoding(errors.New("token response carries neither id_token nor access token"))
		}
		return token.AccessToken, nil
	}

	idTok, err := verifier.Verify(ctx, rawID)
	if err != nil {
		return "", apperrors.Decoding(fmt.Errorf("verify id_token: %w", err))
	}
	var claims struct {
		Nonce string `json:"nonce"`
	}
	if err := idTok.Claims(&claims); err != nil {
		return "", apperrors.Decoding(fmt.Errorf("parse id_token claims: %w", err))
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return "", apperrors.Unauthorized()
	}
	return rawID, nil
}

// ensureDiscovered performs OIDC discovery once and caches the resulting
// oauth2 config and verifier.
func (s *Strategy) ensureDiscovered(ctx context.Context) (*oauth2.Config, *gooidc.IDTokenVerifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.oauthCfg != nil {
		return s.oauthCfg, s.verifier, nil
	}

	if s.cfg.DiscoveryURL == "" || s.cfg.ClientID == "" {
		return nil, nil, apperrors.Unimplemented("identity provider is not configured for this server")
	}

	idpCtx := context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	issuer := strings.TrimSuffix(s.cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(idpCtx, issuer)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, nil, apperrors.Cancelled()
		}
		return nil, nil, apperrors.Network(fmt.Errorf("oidc discovery: %w", err))
	}

	s.verifier = op.Verifier(&gooidc.Config{ClientID: s.cfg.ClientID})
	s.oauthCfg = &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		RedirectURL:  s.cfg.RedirectURL,
		Scopes:       strings.Fields(s.cfg.Scope),
		Endpoint:     op.Endpoint(),
	}
	return s.oauthCfg, s.verifier, nil
}

func (s *Strategy) clearPending() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func errorResult(err error) (ports.LoginResult, error) {
	return ports.LoginResult{Status: domainauth.StatusError}, err
}

// randomString generates a cryptographically secure URL-safe random string
// of exact length.
func randomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
