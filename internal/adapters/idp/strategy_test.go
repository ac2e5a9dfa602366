package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	apperrors "github.com/terrafield/fieldsync/internal/errors"
	httpx "github.com/terrafield/fieldsync/internal/http"
	"github.com/terrafield/fieldsync/internal/ports"
)

// fakeIdP serves OIDC discovery and a token endpoint that answers with a
// bare access token, the pure-OAuth2 shape.
func fakeIdP(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/keys",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer"}`))
	})
	return srv
}

func fieldsyncServer(t *testing.T) *httpx.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/token", r.URL.Path)
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"token":"session-1","user_id":"7"}`))
	}))
	t.Cleanup(srv.Close)
	client, err := httpx.NewClient(httpx.ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func newStrategy(t *testing.T) *Strategy {
	t.Helper()
	idpSrv := fakeIdP(t)
	return New(Config{
		Provider:     domainauth.ProviderOIDC,
		ClientID:     "fieldsync-client",
		ClientSecret: "shh",
		RedirectURL:  "http://127.0.0.1/callback",
		Scope:        "openid profile",
		DiscoveryURL: idpSrv.URL,
		Client:       fieldsyncServer(t),
		DeviceUID:    "device-1",
	})
}

func TestStrategy_Kind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domainauth.IdP(domainauth.ProviderOIDC, ""), New(Config{}).Kind())
	assert.Equal(t, "idp:geoaxis", New(Config{
		Provider:     domainauth.ProviderCustom,
		ProviderName: "geoaxis",
	}).Kind().String())
}

func TestStrategy_Login(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}).Login(context.Background(), domainauth.Credentials{})
	assert.True(t, apperrors.IsUnimplemented(err))
}

func TestStrategy_BeginExternal(t *testing.T) {
	t.Parallel()

	s := newStrategy(t)
	login, err := s.BeginExternal(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(login.AuthURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "fieldsync-client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, login.State, q.Get("state"))
	assert.Equal(t, login.Nonce, q.Get("nonce"))
	assert.Len(t, login.State, 32)
	assert.Len(t, login.Nonce, 32)

	// A new begin replaces the pending flow and gets fresh values.
	second, err := s.BeginExternal(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, login.State, second.State)
}

func TestStrategy_CompleteExternal(t *testing.T) {
	t.Parallel()

	t.Run("full round trip", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t)
		login, err := s.BeginExternal(context.Background())
		require.NoError(t, err)

		res, err := s.CompleteExternal(context.Background(), ports.ExternalCallback{
			Code:  "good-code",
			State: login.State,
		})
		require.NoError(t, err)
		assert.Equal(t, domainauth.StatusSuccess, res.Status)
		assert.Equal(t, "session-1", res.Session.Token)
		assert.Equal(t, "7", res.Session.UserID)
		assert.Equal(t, domainauth.FamilyIdP, res.Session.Origin)
	})

	t.Run("cancelled callback", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t)
		_, err := s.BeginExternal(context.Background())
		require.NoError(t, err)

		res, err := s.CompleteExternal(context.Background(), ports.ExternalCallback{Cancelled: true})
		assert.True(t, apperrors.IsCancelled(err))
		assert.False(t, apperrors.IsInvalidCredentials(err))
		assert.Equal(t, domainauth.StatusError, res.Status)
	})

	t.Run("state mismatch is unauthorized", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t)
		_, err := s.BeginExternal(context.Background())
		require.NoError(t, err)

		_, err = s.CompleteExternal(context.Background(), ports.ExternalCallback{
			Code:  "good-code",
			State: "forged-state",
		})
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("complete without begin is unauthorized", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t)
		_, err := s.CompleteExternal(context.Background(), ports.ExternalCallback{Code: "good-code", State: "x"})
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("missing code is invalid credentials", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t)
		login, err := s.BeginExternal(context.Background())
		require.NoError(t, err)

		_, err = s.CompleteExternal(context.Background(), ports.ExternalCallback{State: login.State})
		assert.True(t, apperrors.IsInvalidCredentials(err))
	})

	t.Run("rejected code maps to network", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t)
		login, err := s.BeginExternal(context.Background())
		require.NoError(t, err)

		_, err = s.CompleteExternal(context.Background(), ports.ExternalCallback{
			Code:  "bad-code",
			State: login.State,
		})
		assert.True(t, apperrors.IsNetwork(err))
	})

	t.Run("pending flow is consumed", func(t *testing.T) {
		t.Parallel()
		s := newStrategy(t)
		login, err := s.BeginExternal(context.Background())
		require.NoError(t, err)

		_, err = s.CompleteExternal(context.Background(), ports.ExternalCallback{Code: "good-code", State: login.State})
		require.NoError(t, err)

		// Replaying the same callback must fail.
		_, err = s.CompleteExternal(context.Background(), ports.ExternalCallback{Code: "good-code", State: login.State})
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}

func TestStrategy_CanHandleLogin(t *testing.T) {
	t.Parallel()

	s := newStrategy(t)
	assert.True(t, s.CanHandleLogin(context.Background(), ""))
	assert.False(t, s.CanHandleLogin(context.Background(), "https://other.example.com"))

	unconfigured := New(Config{})
	assert.False(t, unconfigured.CanHandleLogin(context.Background(), ""))
}

func TestStrategy_BeginExternalUnconfigured(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}).BeginExternal(context.Background())
	assert.True(t, apperrors.IsUnimplemented(err))
}
