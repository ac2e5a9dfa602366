package serverauth

// Package serverauth implements the credential-submitting strategies: local
// accounts and directory-backed (LDAP) accounts. Both share the same
// two-step shape: a sign-in against the strategy's endpoint yields a
// short-lived signin token, and the device token exchange turns it into the
// API session.

import (
	"context"
	"time"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	apperrors "github.com/terrafield/fieldsync/internal/errors"
	httpx "github.com/terrafield/fieldsync/internal/http"
	"github.com/terrafield/fieldsync/internal/ports"
)

// Config groups dependencies shared by the server-auth strategies.
type Config struct {
	Client    *httpx.Client
	DeviceUID string
}

// Local authenticates against the server's local-account endpoint.
type Local struct {
	client    *httpx.Client
	deviceUID string
}

// LDAP authenticates against the server's directory-backed endpoint. Same
// shape and error mapping contract as Local.
type LDAP struct {
	client    *httpx.Client
	deviceUID string
}

var (
	_ ports.Strategy = (*Local)(nil)
	_ ports.Strategy = (*LDAP)(nil)
)

// NewLocal constructs the local strategy.
func NewLocal(cfg Config) *Local {
	return &Local{client: cfg.Client, deviceUID: cfg.DeviceUID}
}

// NewLDAP constructs the LDAP strategy.
func NewLDAP(cfg Config) *LDAP {
	return &LDAP{client: cfg.Client, deviceUID: cfg.DeviceUID}
}

func (s *Local) Kind() domainauth.Kind { return domainauth.KindLocal }
func (s *LDAP) Kind() domainauth.Kind  { return domainauth.KindLDAP }

func (s *Local) CanHandleLogin(_ context.Context, target string) bool {
	return canHandle(s.client, target)
}

func (s *LDAP) CanHandleLogin(_ context.Context, target string) bool {
	return canHandle(s.client, target)
}

// Login submits credentials to the local endpoint and completes the device
// token exchange.
func (s *Local) Login(ctx context.Context, creds domainauth.Credentials) (ports.LoginResult, error) {
	return login(ctx, s.client, s.deviceUID, domainauth.FamilyLocal, s.client.SignInLocal, creds)
}

// Login submits credentials to the directory endpoint and completes the
// device token exchange.
func (s *LDAP) Login(ctx context.Context, creds domainauth.Credentials) (ports.LoginResult, error) {
	return login(ctx, s.client, s.deviceUID, domainauth.FamilyLDAP, s.client.SignInLDAP, creds)
}

func canHandle(client *httpx.Client, target string) bool {
	if client == nil {
		return false
	}
	return target == "" || target == client.BaseURL()
}

type signInFunc func(ctx context.Context, creds domainauth.Credentials) (string, error)

func login(
	ctx context.Context,
	client *httpx.Client,
	deviceUID string,
	family domainauth.Family,
	signIn signInFunc,
	creds domainauth.Credentials,
) (ports.LoginResult, error) {
	// Missing credentials are an ordinary invalid-credentials outcome so the
	// caller's error handling stays uniform across strategies.
	if creds.Username == "" || creds.Password == "" {
		return errorResult(apperrors.InvalidCredentials())
	}

	signinToken, err := signIn(ctx, creds)
	if err != nil {
		return errorResult(err)
	}

	authz, err := client.AuthorizeDevice(ctx, signinToken, deviceUID)
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
			Origin:    family,
			IssuedAt:  issued,
			ExpiresAt: authz.ExpiresAt,
		},
	}, nil
}

func errorResult(err error) (ports.LoginResult, error) {
	return ports.LoginResult{Status: domainauth.StatusError}, err
}
