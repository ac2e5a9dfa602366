package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanityMinLength is the hard floor applied when the server delivered no
// password policy for the active strategy. Absence of a policy must never
// mean "no constraint at all".
const SanityMinLength = 8

// PasswordPolicy describes server-delivered password composition rules for
// one strategy. The zero value means "no server policy"; use SanityPolicy
// for the fallback constraints.
type PasswordPolicy struct {
	MinLength        int  `json:"min_length"`
	RequireUppercase bool `json:"require_uppercase"`
	RequireLowercase bool `json:"require_lowercase"`
	RequireDigit     bool `json:"require_digit"`
	RequireSpecial   bool `json:"require_special"`
}

// SanityPolicy is the client-side fallback when the server configuration is
// unavailable or carries no policy for the strategy.
func SanityPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: SanityMinLength}
}

// Violations evaluates a candidate password against the policy and returns
// the human-readable rule violations, or nil when the candidate complies.
// Pure function, no I/O.
func (p PasswordPolicy) Violations(candidate string) []string {
	var out []string
	if candidate == "" {
		return []string{"password must not be empty"}
	}

	minLen := p.MinLength
	if minLen <= 0 {
		minLen = SanityMinLength
	}
	// Length is counted in characters, not bytes; multibyte passwords must
	// not slip under the minimum.
	if utf8.RuneCountInString(candidate) < minLen {
		out = append(out, fmt.Sprintf("password must be at least %d characters", minLen))
	}

	var upper, lower, digit, special bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if p.RequireUppercase && !upper {
		out = append(out, "password must contain an uppercase letter")
	}
	if p.RequireLowercase && !lower {
		out = append(out, "password must contain a lowercase letter")
	}
	if p.RequireDigit && !digit {
		out = append(out, "password must contain a digit")
	}
	if p.RequireSpecial && !special {
		out = append(out, "password must contain a special character")
	}
	return out
}

// Validate for SignupRequest performs client-side checks before submission.
// The server remains the final authority; these checks only prevent
// round-trips that are certain to fail.
func (r SignupRequest) Validate(policy PasswordPolicy) []string {
	var out []string
	if strings.TrimSpace(r.DisplayName) == "" {
		out = append(out, "display name must not be empty")
	}
	if strings.TrimSpace(r.Username) == "" {
		out = append(out, "username must not be empty")
	}
	if r.Password != r.ConfirmPassword {
		out = append(out, "passwords do not match")
	}
	out = append(out, policy.Violations(r.Password)...)
	return out
}

// Validate for ChangePasswordRequest enforces the change-password invariants
// before any network call.
func (r ChangePasswordRequest) Validate(policy PasswordPolicy) []string {
	var out []string
	if r.CurrentPassword == "" {
		out = append(out, "current password must not be empty")
	}
	if r.NewPassword != r.ConfirmNewPassword {
		out = append(out, "new passwords do not match")
	}
	if r.NewPassword == r.CurrentPassword {
		out = append(out, "new password must differ from current password")
	}
	out = append(out, policy.Violations(r.NewPassword)...)
	return out
}
