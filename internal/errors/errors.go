package errors

import (
	"errors"
	"fmt"
)

// Code categorizes an authentication error. The set is closed; every failure
// a strategy, the coordinator, or the interceptor can produce maps onto
// exactly one code.
type Code string

const (
	// CodeInvalidCredentials indicates the server rejected the supplied credentials.
	CodeInvalidCredentials Code = "invalid_credentials"
	// CodeAccountDisabled indicates the account exists but is not permitted to sign in.
	CodeAccountDisabled Code = "account_disabled"
	// CodeNetwork indicates the request never produced a usable server response.
	CodeNetwork Code = "network"
	// CodeServer indicates a structured non-2xx response from the server.
	CodeServer Code = "server"
	// CodeDecoding indicates a response that could not be parsed. Not retryable;
	// it signals a contract violation by the server.
	CodeDecoding Code = "decoding"
	// CodePolicyViolation indicates a password failed composition rules.
	CodePolicyViolation Code = "policy_violation"
	// CodeCancelled indicates the caller abandoned an in-flight attempt.
	CodeCancelled Code = "cancelled"
	// CodeUnauthorized indicates the current session or password was not accepted.
	CodeUnauthorized Code = "unauthorized"
	// CodeRateLimited indicates the server is throttling the client.
	CodeRateLimited Code = "rate_limited"
	// CodeUnimplemented indicates a flow the client does not support. Not
	// retryable; it signals a contract violation by the caller.
	CodeUnimplemented Code = "unimplemented"
)

// AuthError is a structured authentication error with a code, message, and
// optional cause. It supports wrapping and unwrapping for use with errors.Is
// and errors.As. Two AuthErrors are equal under errors.Is when their code
// and scalar payload (HTTP status) match; wrapped causes exist for
// diagnostics only and are excluded from equality.
type AuthError struct {
	// Code categorizes the error.
	Code Code
	// Message is a human-readable error message.
	Message string
	// HTTPStatus carries the server status for CodeServer errors.
	HTTPStatus int
	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Is compares by discriminant and scalar payload only.
func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.HTTPStatus == other.HTTPStatus
}

// InvalidCredentials creates an invalid-credentials error.
func InvalidCredentials() *AuthError {
	return &AuthError{Code: CodeInvalidCredentials, Message: "invalid credentials"}
}

// AccountDisabled creates an account-disabled error.
func AccountDisabled() *AuthError {
	return &AuthError{Code: CodeAccountDisabled, Message: "account is disabled"}
}

// Network creates a network error wrapping the transport failure.
func Network(cause error) *AuthError {
	return &AuthError{Code: CodeNetwork, Message: "network error", Cause: cause}
}

// Networkf creates a network error with a formatted message and no cause.
func Networkf(format string, args ...any) *AuthError {
	return &AuthError{Code: CodeNetwork, Message: fmt.Sprintf(format, args...)}
}

// Server creates a server error from a structured non-2xx response.
func Server(status int, message string) *AuthError {
	if message == "" {
		message = fmt.Sprintf("server returned status %d", status)
	}
	return &AuthError{Code: CodeServer, Message: message, HTTPStatus: status}
}

// Decoding creates a decoding error wrapping the parse failure.
func Decoding(cause error) *AuthError {
	return &AuthError{Code: CodeDecoding, Message: "unable to decode server response", Cause: cause}
}

// PolicyViolation creates a policy-violation error with the rule text.
func PolicyViolation(message string) *AuthError {
	return &AuthError{Code: CodePolicyViolation, Message: message}
}

// Cancelled creates a cancelled error.
func Cancelled() *AuthError {
	return &AuthError{Code: CodeCancelled, Message: "authentication cancelled"}
}

// Unauthorized creates an unauthorized error.
func Unauthorized() *AuthError {
	return &AuthError{Code: CodeUnauthorized, Message: "unauthorized"}
}

// RateLimited creates a rate-limited error.
func RateLimited() *AuthError {
	return &AuthError{Code: CodeRateLimited, Message: "too many attempts, try again later"}
}

// Unimplemented creates an unimplemented error with a hint for the caller.
func Unimplemented(hint string) *AuthError {
	return &AuthError{Code: CodeUnimplemented, Message: "not implemented: " + hint}
}

// isCode checks whether an error carries a specific code.
func isCode(err error, code Code) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == code
}

// IsInvalidCredentials checks if an error is an invalid-credentials error.
func IsInvalidCredentials(err error) bool { return isCode(err, CodeInvalidCredentials) }

// IsAccountDisabled checks if an error is an account-disabled error.
func IsAccountDisabled(err error) bool { return isCode(err, CodeAccountDisabled) }

// IsNetwork checks if an error is a network error.
func IsNetwork(err error) bool { return isCode(err, CodeNetwork) }

// IsServer checks if an error is a server error.
func IsServer(err error) bool { return isCode(err, CodeServer) }

// IsDecoding checks if an error is a decoding error.
func IsDecoding(err error) bool { return isCode(err, CodeDecoding) }

// IsPolicyViolation checks if an error is a policy-violation error.
func IsPolicyViolation(err error) bool { return isCode(err, CodePolicyViolation) }

// IsCancelled checks if an error is a cancelled error.
func IsCancelled(err error) bool { return isCode(err, CodeCancelled) }

// IsUnauthorized checks if an error is an unauthorized error.
func IsUnauthorized(err error) bool { return isCode(err, CodeUnauthorized) }

// IsRateLimited checks if an error is a rate-limited error.
func IsRateLimited(err error) bool { return isCode(err, CodeRateLimited) }

// IsUnimplemented checks if an error is an unimplemented error.
func IsUnimplemented(err error) bool { return isCode(err, CodeUnimplemented) }

// GetCode returns the Code from an error, or empty string if the error is
// not an AuthError.
func GetCode(err error) Code {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Retryable reports whether a failure is locally recoverable. Decoding and
// unimplemented errors indicate a contract violation and should be surfaced
// verbatim rather than retried.
func Retryable(err error) bool {
	switch GetCode(err) {
	case CodeDecoding, CodeUnimplemented:
		return false
	default:
		return true
	}
}
