package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parleychat/parley/internal/auth"
	"github.com/parleychat/parley/internal/chat"
	"github.com/parleychat/parley/internal/mailer"
)

// RegisterRoutes builds the services from the shared infrastructure and
// sets up all application routes. This is the single place where the
// whole object graph is wired together.
func (a *App) RegisterRoutes() {
	e := a.Echo
	cfg := a.Config

	// Health check endpoint for container orchestration.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Auth core ---
	users := auth.NewUserRepository(a.DB)
	tokens := auth.NewTokenService([]byte(cfg.Auth.SecretKey), cfg.Auth.TokenTTL)
	resets := auth.NewResetTokenStore(a.Redis, cfg.Auth.ResetTokenTTL, cfg.Auth.LookupTimeout)
	mail := mailer.New(cfg.SMTP)

	authService := auth.NewAuthService(users, tokens, resets, mail, cfg.BaseURL, cfg.Auth.LookupTimeout)
	authHandler := auth.NewHandler(authService, cfg.Auth.TokenTTL, cfg.Auth.SameSite())
	auth.RegisterRoutes(e, authHandler)

	// Every non-/auth request passes through the authentication filter.
	// Requests without a candidate token proceed unauthenticated; the
	// protected groups below reject those.
	e.Use(auth.Authenticate(tokens, users, cfg.Auth.LookupTimeout))

	// --- Chat read API (requires an authenticated principal) ---
	chatHandler := chat.NewHandler(chat.NewRepository(a.DB))
	api := e.Group("/api", auth.RequirePrincipal())
	chat.RegisterRoutes(api, chatHandler)
}
