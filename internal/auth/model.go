// Package auth is the authentication and credential-lifecycle core of
// Parley. It issues and verifies signed session tokens, authenticates
// requests from a bearer header or cookie, and runs the password reset
// flow against a Redis-backed single-use token store.
//
// Session tokens are self-contained HS256 JWTs; nothing is stored
// server-side for a session, so the service scales horizontally but
// logout cannot revoke a token before its natural expiry.
package auth

import (
	"time"
)

// User is a registered chat user as stored in the user directory. The
// auth core reads Email (the token subject) and PasswordHash; everything
// else belongs to the wider application.
type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"` // Never expose in JSON responses.
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// Role is a closed set of authorities a principal can hold.
type Role string

const (
	// RoleUser is the default authority every authenticated user holds.
	RoleUser Role = "user"

	// RoleAdmin marks operators; nothing grants it yet, but downstream
	// authorization checks against the set rather than the identity record.
	RoleAdmin Role = "admin"
)

// Principal is the authenticated identity attached to a request for the
// duration of its processing. It lives in request-scoped context only and
// is discarded when the request completes.
type Principal struct {
	UserID   int64
	Email    string
	Username string
	Roles    []Role
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the credentials submitted to POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RegisterRequest holds the fields submitted to POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ForgotPasswordRequest holds the email submitted to POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

// ResetPasswordRequest holds the new secret submitted to POST /auth/reset-password.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" form:"newPassword"`
}

// --- Service Input DTOs (passed from handler to service) ---

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// RegisterInput is the validated input for creating a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}
