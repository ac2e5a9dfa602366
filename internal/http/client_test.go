package httpx

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
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	return client, srv
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("requires base URL", func(t *testing.T) {
		t.Parallel()
		_, err := NewClient(ClientConfig{})
		assert.Error(t, err)
	})

	t.Run("rejects URL without scheme", func(t *testing.T) {
		t.Parallel()
		_, err := NewClient(ClientConfig{BaseURL: "server.example.com"})
		assert.Error(t, err)
	})

	t.Run("trims trailing slash", func(t *testing.T) {
		t.Parallel()
		c, err := NewClient(ClientConfig{BaseURL: "https://server.example.com/"})
		require.NoError(t, err)
		assert.Equal(t, "https://server.example.com", c.BaseURL())
	})
}

func TestIsHandshakePath(t *testing.T) {
	t.Parallel()

	assert.True(t, IsHandshakePath("/auth/local/signin"))
	assert.True(t, IsHandshakePath("/auth/ldap/signin"))
	assert.True(t, IsHandshakePath("/auth/token"))
	assert.True(t, IsHandshakePath("/api/users/signups"))
	assert.True(t, IsHandshakePath("/api/users/myself/password"))
	assert.True(t, IsHandshakePath("/api/captcha"))
	assert.True(t, IsHandshakePath("/api/captcha/verifications"))
	assert.False(t, IsHandshakePath("/api/observations"))
	assert.False(t, IsHandshakePath("/api/settings"))
}

func TestClient_SignInLocal(t *testing.T) {
	t.Parallel()

	t.Run("success returns signin token", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/local/signin", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "pfield", body["username"])
			assert.Equal(t, "hunter22", body["password"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"abc"}`))
		}))

		token, err := client.SignInLocal(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		require.NoError(t, err)
		assert.Equal(t, "abc", token)
	})

	t.Run("401 maps to invalid credentials", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"bad login"}`, http.StatusUnauthorized)
		}))

		_, err := client.SignInLocal(context.Background(), domainauth.Credentials{Username: "pfield", Password: "wrong"})
		assert.True(t, apperrors.IsInvalidCredentials(err))
	})

	t.Run("403 maps to account disabled", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))

		_, err := client.SignInLocal(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		assert.True(t, apperrors.IsAccountDisabled(err))
	})

	t.Run("429 maps to rate limited", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		_, err := client.SignInLocal(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		assert.True(t, apperrors.IsRateLimited(err))
	})

	t.Run("500 maps to server error with status", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"database down"}`, http.StatusInternalServerError)
		}))

		_, err := client.SignInLocal(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		require.True(t, apperrors.IsServer(err))
		var ae *apperrors.AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, http.StatusInternalServerError, ae.HTTPStatus)
		assert.Equal(t, "database down", ae.Message)
	})

	t.Run("missing token is a decoding error", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))

		_, err := client.SignInLocal(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		assert.True(t, apperrors.IsDecoding(err))
	})

	t.Run("malformed body is a decoding error", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>proxy error</html>`))
		}))

		_, err := client.SignInLocal(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		assert.True(t, apperrors.IsDecoding(err))
	})

	t.Run("unreachable server is a network error", func(t *testing.T) {
		t.Parallel()
		client, err := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)

		_, err = client.SignInLocal(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		assert.True(t, apperrors.IsNetwork(err))
	})

	t.Run("cancelled context maps to cancelled", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.SignInLocal(ctx, domainauth.Credentials{Username: "pfield", Password: "hunter22"})
		assert.True(t, apperrors.IsCancelled(err))
	})
}

func TestClient_SignInLDAP(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/ldap/signin", r.URL.Path)
		_, _ = w.Write([]byte(`{"token":"ldap-token"}`))
	}))

	token, err := client.SignInLDAP(context.Background(), domainauth.Credentials{Username: "pfield", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "ldap-token", token)
}

func TestClient_AuthorizeDevice(t *testing.T) {
	t.Parallel()

	t.Run("exchanges signin token for session", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/token", r.URL.Path)
			assert.Equal(t, "Bearer signin-abc", r.Header.Get("Authorization"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "device-7", body["uid"])

			_, _ = w.Write([]byte(`{"token":"session-xyz","user_id":"1"}`))
		}))

		out, err := client.AuthorizeDevice(context.Background(), "signin-abc", "device-7")
		require.NoError(t, err)
		assert.Equal(t, "session-xyz", out.Token)
		assert.Equal(t, "1", out.UserID)
	})

	t.Run("missing user id is a decoding error", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"token":"session-xyz"}`))
		}))

		_, err := client.AuthorizeDevice(context.Background(), "signin-abc", "device-7")
		assert.True(t, apperrors.IsDecoding(err))
	})
}

func TestClient_Signup(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/users/signups", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Pat Field", body["display_name"])
			assert.Equal(t, "captcha-tok", body["captcha_token"])

			_, _ = w.Write([]byte(`{"user_id":"42"}`))
		}))

		res, err := client.Signup(context.Background(), domainauth.SignupRequest{
			DisplayName:     "Pat Field",
			Username:        "pfield",
			Password:        "correct-horse",
			ConfirmPassword: "correct-horse",
			CaptchaToken:    "captcha-tok",
			CaptchaText:     "xkcd",
		})
		require.NoError(t, err)
		assert.Equal(t, "42", res.UserID)
	})

	t.Run("422 surfaces server message", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"username already taken"}`, http.StatusUnprocessableEntity)
		}))

		_, err := client.Signup(context.Background(), domainauth.SignupRequest{Username: "pfield"})
		require.True(t, apperrors.IsServer(err))
		var ae *apperrors.AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "username already taken", ae.Message)
	})
}

func TestClient_ChangePassword(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/users/myself/password", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "old-secret", body["password"])
			assert.Equal(t, "new-secret", body["new_password"])

			w.WriteHeader(http.StatusNoContent)
		}))

		err := client.ChangePassword(context.Background(), domainauth.ChangePasswordRequest{
			CurrentPassword:    "old-secret",
			NewPassword:        "new-secret",
			ConfirmNewPassword: "new-secret",
		})
		assert.NoError(t, err)
	})

	t.Run("401 maps to unauthorized, not invalid credentials", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		err := client.ChangePassword(context.Background(), domainauth.ChangePasswordRequest{CurrentPassword: "wrong"})
		assert.True(t, apperrors.IsUnauthorized(err))
		assert.False(t, apperrors.IsInvalidCredentials(err))
	})
}

func TestClient_Captcha(t *testing.T) {
	t.Parallel()

	t.Run("fetch", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/captcha", r.URL.Path)
			_, _ = w.Write([]byte(`{"token":"challenge-1","image":"aW1n"}`))
		}))

		c, err := client.FetchCaptcha(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "challenge-1", c.Token)
		assert.Equal(t, []byte("img"), c.Image)
	})

	t.Run("verify", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/captcha/verifications", r.URL.Path)
			_, _ = w.Write([]byte(`{"valid":true}`))
		}))

		v, err := client.VerifyCaptcha(context.Background(), "challenge-1", "xkcd")
		require.NoError(t, err)
		assert.True(t, v.Valid)
	})
}

func TestClient_FetchSettings(t *testing.T) {
	t.Parallel()

	t.Run("returns raw document", func(t *testing.T) {
		t.Parallel()
		doc := `{"authentication":{"strategies":{"local":{"enabled":true}}}}`
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/settings", r.URL.Path)
			_, _ = w.Write([]byte(doc))
		}))

		raw, err := client.FetchSettings(context.Background())
		require.NoError(t, err)
		assert.JSONEq(t, doc, string(raw))
	})

	t.Run("non-200 maps through the taxonomy", func(t *testing.T) {
		t.Parallel()
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		_, err := client.FetchSettings(context.Background())
		assert.True(t, apperrors.IsServer(err))
	})
}
