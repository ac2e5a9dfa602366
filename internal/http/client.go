package httpx

// Package httpx contains the HTTP plumbing for talking to the fieldsync
// server: the API client used by strategies and flows, the authenticating
// round-tripper, and the session expiry monitor.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	apperrors "github.com/terrafield/fieldsync/internal/errors"
)

// API paths. These are part of the authentication handshake and are exempt
// from expiry validation in the round-tripper.
const (
	pathSignInLocal    = "/auth/local/signin"
	pathSignInLDAP     = "/auth/ldap/signin"
	pathAuthorize      = "/auth/token"
	pathSignup         = "/api/users/signups"
	pathChangePassword = "/api/users/myself/password"
	pathCaptcha        = "/api/captcha"
	pathCaptchaVerify  = "/api/captcha/verifications"
	pathSettings       = "/api/settings"
)

// IsHandshakePath reports whether a request path belongs to the
// authentication handshake. A 401 on these paths is an ordinary failed-login
// outcome, not a session-expiry event.
func IsHandshakePath(path string) bool {
	if strings.HasPrefix(path, "/auth/") {
		return true
	}
	switch {
	case strings.HasPrefix(path, pathSignup),
		strings.HasPrefix(path, pathChangePassword),
		strings.HasPrefix(path, pathCaptcha):
		return true
	}
	return false
}

// Client is the fieldsync server API client consumed by strategy modules
// and the signup/change-password flows. It maps transport and response
// failures onto the AuthError taxonomy; callers never see raw HTTP detail.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// ClientConfig groups dependencies for Client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client // optional, defaults to a 30s-timeout client
	Logger     *slog.Logger // optional, defaults to slog.Default
}

// NewClient constructs a Client. BaseURL is required.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    hc,
		logger:  logger,
	}, nil
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token string `json:"token"`
}

// SignInLocal submits credentials to the local-auth endpoint and returns a
// short-lived signin token.
func (c *Client) SignInLocal(ctx context.Context, creds domainauth.Credentials) (string, error) {
	return c.signIn(ctx, pathSignInLocal, creds)
}

// SignInLDAP submits credentials to the directory-backed endpoint and
// returns a short-lived signin token.
func (c *Client) SignInLDAP(ctx context.Context, creds domainauth.Credentials) (string, error) {
	return c.signIn(ctx, pathSignInLDAP, creds)
}

func (c *Client) signIn(ctx context.Context, path string, creds domainauth.Credentials) (string, error) {
	var out signInResponse
	err := c.doJSON(ctx, http.MethodPost, path, "", signInRequest(creds), &out, mapSignInError)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", apperrors.Decoding(fmt.Errorf("signin response missing token"))
	}
	return out.Token, nil
}

type authorizeRequest struct {
	UID string `json:"uid"`
}

// DeviceAuthorization is the result of the device token exchange.
type DeviceAuthorization struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthorizeDevice exchanges a signin token plus the device UID for the API
// session token. Every online strategy funnels through this exchange.
func (c *Client) AuthorizeDevice(ctx context.Context, signinToken, deviceUID string) (DeviceAuthorization, error) {
	var out DeviceAuthorization
	err := c.doJSON(ctx, http.MethodPost, pathAuthorize, signinToken, authorizeRequest{UID: deviceUID}, &out, mapSignInError)
	if err != nil {
		return DeviceAuthorization{}, err
	}
	if out.Token == "" || out.UserID == "" {
		return DeviceAuthorization{}, apperrors.Decoding(fmt.Errorf("authorize response missing token or user id"))
	}
	return out, nil
}

type signupRequest struct {
	DisplayName     string `json:"display_name"`
	Username        string `json:"username"`
	Email           string `json:"email,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	CaptchaToken    string `json:"captcha_token,omitempty"`
	CaptchaText     string `json:"captcha_text,omitempty"`
}

type signupResponse struct {
	UserID string `json:"user_id"`
}

// Signup submits an account registration request. Client-side validation is
// the caller's responsibility; the server remains the final authority.
func (c *Client) Signup(ctx context.Context, req domainauth.SignupRequest) (domainauth.SignupResult, error) {
	body := signupRequest{
		DisplayName:     req.DisplayName,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		CaptchaToken:    req.CaptchaToken,
		CaptchaText:     req.CaptchaText,
	}
	var out signupResponse
	if err := c.doJSON(ctx, http.MethodPost, pathSignup, "", body, &out, mapGenericError); err != nil {
		return domainauth.SignupResult{}, err
	}
	if out.UserID == "" {
		return domainauth.SignupResult{}, apperrors.Decoding(fmt.Errorf("signup response missing user id"))
	}
	return domainauth.SignupResult{UserID: out.UserID}, nil
}

type changePasswordRequest struct {
	Password           string `json:"password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// ChangePassword submits a password change for the signed-in user. The
// session token travels via the authenticating round-tripper; a 401 here
// means the current password was rejected.
func (c *Client) ChangePassword(ctx context.Context, req domainauth.ChangePasswordRequest) error {
	body := changePasswordRequest{
		Password:           req.CurrentPassword,
		NewPassword:        req.NewPassword,
		NewPasswordConfirm: req.ConfirmNewPassword,
	}
	return c.doJSON(ctx, http.MethodPut, pathChangePassword, "", body, nil, mapChangePasswordError)
}

type captchaResponse struct {
	Token string `json:"token"`
	Image []byte `json:"image,omitempty"`
}

// FetchCaptcha requests a new captcha challenge for signup.
func (c *Client) FetchCaptcha(ctx context.Context) (domainauth.Captcha, error) {
	var out captchaResponse
	if err := c.doJSON(ctx, http.MethodGet, pathCaptcha, "", nil, &out, mapGenericError); err != nil {
		return domainauth.Captcha{}, err
	}
	if out.Token == "" {
		return domainauth.Captcha{}, apperrors.Decoding(fmt.Errorf("captcha response missing token"))
	}
	return domainauth.Captcha{Token: out.Token, Image: out.Image}, nil
}

type captchaVerifyRequest struct {
	Token string `json:"token"`
	Text  string `json:"text"`
}

type captchaVerifyResponse struct {
	Valid bool `json:"valid"`
}

// VerifyCaptcha checks a solved captcha with the server.
func (c *Client) VerifyCaptcha(ctx context.Context, token, text string) (domainauth.CaptchaVerification, error) {
	var out captchaVerifyResponse
	err := c.doJSON(ctx, http.MethodPost, pathCaptchaVerify, "", captchaVerifyRequest{Token: token, Text: text}, &out, mapGenericError)
	if err != nil {
		return domainauth.CaptchaVerification{}, err
	}
	return domainauth.CaptchaVerification{Valid: out.Valid}, nil
}

// FetchSettings retrieves the server's raw settings document. The settings
// service extracts the authentication strategy list and password policies
// from it.
func (c *Client) FetchSettings(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathSettings, nil)
	if err != nil {
		return nil, apperrors.Network(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapTransportError(ctx, err)
	}
	defer closeBody(resp.Body, c.logger)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Network(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mapGenericError(resp.StatusCode, raw)
	}
	return raw, nil
}

// doJSON performs a JSON request/response round trip. bearer, when non-empty,
// overrides the Authorization header (used for the signin-token exchange).
// mapErr translates a non-2xx status plus body into an AuthError.
func (c *Client) doJSON(
	ctx context.Context,
	method, path, bearer string,
	in, out any,
	mapErr func(status int, body []byte) error,
) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apperrors.Decoding(fmt.Errorf("encode request: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return apperrors.Network(err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapTransportError(ctx, err)
	}
	defer closeBody(resp.Body, c.logger)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Network(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapErr(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Decoding(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

// errorBody is the server's structured error payload.
type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func decodeErrorBody(body []byte) errorBody {
	var eb errorBody
	// Unparseable error bodies fall back to status-only mapping.
	_ = json.Unmarshal(body, &eb)
	return eb
}

// mapSignInError maps failures of the signin and token-exchange endpoints.
// A 401 here is a failed login, not a session expiry.
func mapSignInError(status int, body []byte) error {
	eb := decodeErrorBody(body)
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.InvalidCredentials()
	case status == http.StatusForbidden:
		return apperrors.AccountDisabled()
	case status == http.StatusTooManyRequests:
		return apperrors.RateLimited()
	default:
		return apperrors.Server(status, eb.Message)
	}
}

// mapChangePasswordError maps failures of the password endpoint. A 401 means
// the supplied current password was not accepted.
func mapChangePasswordError(status int, body []byte) error {
	eb := decodeErrorBody(body)
	switch status {
	case http.StatusUnauthorized:
		return apperrors.Unauthorized()
	case http.StatusTooManyRequests:
		return apperrors.RateLimited()
	default:
		return apperrors.Server(status, eb.Message)
	}
}

// mapGenericError maps failures of the remaining API endpoints.
func mapGenericError(status int, body []byte) error {
	eb := decodeErrorBody(body)
	switch status {
	case http.StatusUnauthorized:
		return apperrors.Unauthorized()
	case http.StatusTooManyRequests:
		return apperrors.RateLimited()
	default:
		return apperrors.Server(status, eb.Message)
	}
}

// wrapTransportError distinguishes caller cancellation from genuine network
// failure so an abandoned attempt resolves to the cancelled outcome.
func wrapTransportError(ctx context.Context, err error) error {
	if ctx.Err() == context.Canceled {
		return apperrors.Cancelled()
	}
	return apperrors.Network(err)
}

func closeBody(body io.ReadCloser, logger *slog.Logger) {
	if cerr := body.Close(); cerr != nil {
		logger.Warn("close response body failed", "error", cerr)
	}
}
