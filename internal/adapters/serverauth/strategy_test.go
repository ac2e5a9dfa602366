package serverauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	apperrors "github.com/terrafield/fieldsync/internal/errors"
	httpx "github.com/terrafield/fieldsync/internal/http"
)

func newStrategyServer(t *testing.T, handler http.Handler) *httpx.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := httpx.NewClient(httpx.ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

// authServer simulates the signin endpoint plus the device token exchange.
func authServer(t *testing.T, signinPath, signinToken string) *httpx.Client {
	t.Helper()
	return newStrategyServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case signinPath:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["username"] != "pfield" || body["password"] != "hunter22" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"token":"` + signinToken + `"}`))
		case "/auth/token":
			if r.Header.Get("Authorization") != "Bearer "+signinToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"token":"session-1","user_id":"7"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestLocal_Login(t *testing.T) {
	t.Parallel()

	t.Run("success yields a local-origin session", func(t *testing.T) {
		t.Parallel()
		client := authServer(t, "/auth/local/signin", "signin-1")
		s := NewLocal(Config{Client: client, DeviceUID: "device-1"})

		res, err := s.Login(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		require.NoError(t, err)
		assert.Equal(t, domainauth.StatusSuccess, res.Status)
		assert.Equal(t, "session-1", res.Session.Token)
		assert.Equal(t, "7", res.Session.UserID)
		assert.Equal(t, domainauth.FamilyLocal, res.Session.Origin)
		assert.False(t, res.Session.IssuedAt.IsZero())
	})

	t.Run("wrong password maps to invalid credentials", func(t *testing.T) {
		t.Parallel()
		client := authServer(t, "/auth/local/signin", "signin-1")
		s := NewLocal(Config{Client: client, DeviceUID: "device-1"})

		res, err := s.Login(context.Background(), domainauth.Credentials{Username: "pfield", Password: "wrong"})
		assert.True(t, apperrors.IsInvalidCredentials(err))
		assert.Equal(t, domainauth.StatusError, res.Status)
	})

	t.Run("empty credentials fail without a round trip", func(t *testing.T) {
		t.Parallel()
		reached := false
		client := newStrategyServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		}))
		s := NewLocal(Config{Client: client, DeviceUID: "device-1"})

		_, err := s.Login(context.Background(), domainauth.Credentials{})
		assert.True(t, apperrors.IsInvalidCredentials(err))
		assert.False(t, reached)
	})

	t.Run("unreachable server maps to network", func(t *testing.T) {
		t.Parallel()
		client, err := httpx.NewClient(httpx.ClientConfig{BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)
		s := NewLocal(Config{Client: client, DeviceUID: "device-1"})

		_, err = s.Login(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		assert.True(t, apperrors.IsNetwork(err))
	})
}

func TestLDAP_Login(t *testing.T) {
	t.Parallel()

	client := authServer(t, "/auth/ldap/signin", "signin-ldap")
	s := NewLDAP(Config{Client: client, DeviceUID: "device-1"})

	res, err := s.Login(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.StatusSuccess, res.Status)
	assert.Equal(t, domainauth.FamilyLDAP, res.Session.Origin)
}

func TestCanHandleLogin(t *testing.T) {
	t.Parallel()

	client, err := httpx.NewClient(httpx.ClientConfig{BaseURL: "https://server.example.com"})
	require.NoError(t, err)

	s := NewLocal(Config{Client: client})
	assert.True(t, s.CanHandleLogin(context.Background(), ""))
	assert.True(t, s.CanHandleLogin(context.Background(), "https://server.example.com"))
	assert.False(t, s.CanHandleLogin(context.Background(), "https://other.example.com"))

	ldap := NewLDAP(Config{Client: client})
	assert.True(t, ldap.CanHandleLogin(context.Background(), "https://server.example.com"))
}

func TestKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domainauth.KindLocal, NewLocal(Config{}).Kind())
	assert.Equal(t, domainauth.KindLDAP, NewLDAP(Config{}).Kind())
}
