package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parleychat/parley/internal/apperror"
)

// principalContextKey is the Echo context key for the authenticated
// principal. Other packages access it via GetPrincipal, never directly.
const principalContextKey = "auth_principal"

// publicPathPrefix marks the routes that must stay reachable without a
// token: login, registration, and the reset flow live under it.
const publicPathPrefix = "/auth"

// bearerPrefix is the Authorization header scheme for session tokens.
const bearerPrefix = "Bearer "

// Authenticate returns the per-request authentication middleware. For
// each request it extracts a candidate token (Authorization header takes
// precedence over the jwt cookie), verifies it, resolves the subject
// against the user directory, and attaches a Principal to the request
// context. Its side effects are strictly confined to the request-scoped
// principal and, on expiry, a cookie-deletion instruction; nothing is
// written to the database on this path.
//
// A request with no candidate token proceeds unauthenticated -- handlers
// that need an identity reject it downstream (see RequirePrincipal).
func Authenticate(tokens *TokenService, directory UserRepository, lookupTimeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Public endpoints create credentials; they never consume them.
			if strings.HasPrefix(c.Request().URL.Path, publicPathPrefix) {
				return next(c)
			}

			token := extractToken(c)
			if token == "" {
				return next(c)
			}

			subject, err := tokens.Verify(token)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					// A legitimate session ran out: instruct the client to
					// drop the stale cookie, then reject.
					clearSessionCookie(c)
					return apperror.NewUnauthorized("session expired")
				}
				// Bad signature or malformed input. The cookie may not even
				// be ours, so leave it alone.
				return apperror.NewUnauthorized("invalid token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
			user, err := directory.FindByEmail(ctx, subject)
			cancel()
			if err != nil {
				if isNotFound(err) {
					// Validly signed token for an account that no longer
					// exists. Treat as "no valid session", not a hard failure.
					slog.Warn("token subject not in directory",
						slog.String("path", c.Request().URL.Path),
					)
					return next(c)
				}
				return apperror.NewUnavailable("user directory unavailable", err)
			}

			SetPrincipal(c, &Principal{
				UserID:   user.ID,
				Email:    user.Email,
				Username: user.Username,
				Roles:    []Role{RoleUser},
			})

			return next(c)
		}
	}
}

// RequirePrincipal returns middleware that rejects requests which reached
// it without an authenticated principal. Applied to route groups that
// need an identity (the chat API), after Authenticate has run.
func RequirePrincipal() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetPrincipal(c) == nil {
				return apperror.NewUnauthorized("authentication required")
			}
			return next(c)
		}
	}
}

// SetPrincipal attaches a principal to the Echo context. The middleware
// calls it after a successful lookup; tests use it to simulate one.
func SetPrincipal(c echo.Context, p *Principal) {
	c.Set(principalContextKey, p)
}

// GetPrincipal retrieves the authenticated principal from the Echo
// context. Returns nil if the request is not authenticated.
func GetPrincipal(c echo.Context) *Principal {
	p, ok := c.Get(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// extractToken returns the candidate session token for a request. The
// Authorization header is checked before the cookie; first match wins.
func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		if token := strings.TrimSpace(authHeader[len(bearerPrefix):]); token != "" {
			return token
		}
	}

	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}
