package auth

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parleychat/parley/internal/apperror"
)

// sessionCookieName is the HTTP cookie used to carry the session token.
// The name is part of the external contract with existing clients.
const sessionCookieName = "jwt"

// Handler handles HTTP requests for authentication. Handlers are thin:
// they bind the request, call the service, and write the response. No
// business logic lives here.
type Handler struct {
	service AuthService

	// cookieMaxAge is the session cookie lifetime in seconds, matching
	// the token lifetime so the cookie and the token expire together.
	cookieMaxAge int

	// sameSite is the configured SameSite policy for the session cookie.
	sameSite http.SameSite
}

// NewHandler creates a new auth handler with the given service and
// session cookie settings.
func NewHandler(service AuthService, tokenTTL time.Duration, sameSite http.SameSite) *Handler {
	return &Handler{
		service:      service,
		cookieMaxAge: int(tokenTTL.Seconds()),
		sameSite:     sameSite,
	}
}

// Login processes POST /auth/login. On success it sets the jwt cookie and
// returns the token in the body so non-browser clients can use the
// Authorization header instead.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Email == "" || req.Password == "" {
		return apperror.NewBadRequest("email and password are required")
	}

	token, _, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.setSessionCookie(c, token)

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// Logout processes POST /auth/logout. It clears the jwt cookie. Session
// tokens are not tracked server-side, so the token itself stays valid
// until its natural expiry; logout only removes the client-held copy.
func (h *Handler) Logout(c echo.Context) error {
	clearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// Status processes GET /auth/status. Per the legacy contract this
// endpoint accepts the Authorization header only -- the cookie is ignored.
func (h *Handler) Status(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return apperror.NewUnauthorized("missing token")
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])

	user, err := h.service.Whoami(c.Request().Context(), token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"userId":   user.ID,
		"email":    user.Email,
		"username": user.Username,
	})
}

// Register processes POST /auth/register.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if msg := validateRegisterRequest(&req); msg != "" {
		return apperror.NewBadRequest(msg)
	}

	_, err := h.service.Register(c.Request().Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "user registered"})
}

// ForgotPassword processes POST /auth/forgot-password. The response is
// identical whether or not the email is registered, so the endpoint
// cannot be used to enumerate accounts.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Email == "" {
		return apperror.NewBadRequest("email is required")
	}

	if err := h.service.InitiatePasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "if that account exists, a reset link has been sent",
	})
}

// ResetPasswordForm processes GET /auth/reset-password?token=... and
// renders a minimal submission form bound to the token. The reset email
// links here, so this is the one HTML response the service serves.
func (h *Handler) ResetPasswordForm(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return apperror.NewBadRequest("token is required")
	}

	if _, err := h.service.ValidateResetToken(c.Request().Context(), token); err != nil {
		if apperror.SafeCode(err) == http.StatusBadRequest {
			return c.HTML(http.StatusBadRequest, "<h3>Invalid or expired reset token</h3>")
		}
		return err
	}

	form := fmt.Sprintf(resetFormHTML, template.HTMLEscapeString(token))
	return c.HTML(http.StatusOK, form)
}

// ResetPassword processes POST /auth/reset-password?token=... with the
// new password in the body.
func (h *Handler) ResetPassword(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return apperror.NewBadRequest("token is required")
	}

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.NewPassword == "" {
		return apperror.NewBadRequest("newPassword is required")
	}
	if len(req.NewPassword) < 8 {
		return apperror.NewBadRequest("password must be at least 8 characters")
	}
	if len(req.NewPassword) > 128 {
		return apperror.NewBadRequest("password must be at most 128 characters")
	}

	if err := h.service.ResetPassword(c.Request().Context(), token, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "password reset successful"})
}

// resetFormHTML is the minimal self-submitting reset form. The token is
// HTML-escaped before substitution.
const resetFormHTML = `<html>
  <body>
    <h3>Reset your password</h3>
    <form method="POST" action="/auth/reset-password?token=%s">
      <input type="password" name="newPassword" placeholder="Enter new password" required/>
      <button type="submit">Reset Password</button>
    </form>
  </body>
</html>`

// --- Cookie helpers ---

// setSessionCookie sets the jwt cookie on the response. The cookie is
// HttpOnly (JS can't read it), Secure if behind TLS, and carries the
// configured SameSite policy.
func (h *Handler) setSessionCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: h.sameSite,
		MaxAge:   h.cookieMaxAge,
	})
}

// clearSessionCookie removes the jwt cookie by setting MaxAge to -1.
// Shared with the middleware, which clears it on token expiry.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// --- Validation helpers ---

// validateRegisterRequest performs basic server-side validation on the
// registration payload. Returns an error message or empty string.
func validateRegisterRequest(req *RegisterRequest) string {
	if req.Username == "" {
		return "username is required"
	}
	if req.Email == "" {
		return "email is required"
	}
	if req.Password == "" {
		return "password is required"
	}
	if len(req.Password) < 8 {
		return "password must be at least 8 characters"
	}
	if len(req.Password) > 128 {
		return "password must be at most 128 characters"
	}
	return ""
}
