package chat

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the chat read API on the given group. The group
// is expected to already carry auth.RequirePrincipal, so every route here
// sees an authenticated principal.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("/chats/list", h.ListChats)
	g.GET("/messages/:chatId", h.GetMessages)
}
