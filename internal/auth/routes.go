package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parleychat/parley/internal/middleware"
)

// RegisterRoutes sets up all auth routes on the given Echo instance. The
// whole /auth prefix is public -- the authentication middleware skips it,
// because these endpoints create credentials rather than consume them.
//
// POST endpoints are rate-limited per IP to slow brute-force and
// credential stuffing: 10 login attempts per minute, 5 registrations,
// 5 reset requests.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/auth")

	g.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	g.POST("/logout", h.Logout)
	g.GET("/status", h.Status)
	g.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))

	g.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(5, time.Minute))
	g.GET("/reset-password", h.ResetPasswordForm)
	g.POST("/reset-password", h.ResetPassword, middleware.RateLimit(5, time.Minute))
}
