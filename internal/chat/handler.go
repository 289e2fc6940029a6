package chat

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/parleychat/parley/internal/apperror"
	"github.com/parleychat/parley/internal/auth"
)

// Pagination defaults and cap for message history.
const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// Handler handles HTTP requests for the chat read API. All routes run
// behind auth.RequirePrincipal, so a principal is always present.
type Handler struct {
	repo Repository
}

// NewHandler creates a new chat handler with the given repository.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ListChats processes GET /api/chats/list and returns the compact chat
// list for the authenticated user.
func (h *Handler) ListChats(c echo.Context) error {
	p := auth.GetPrincipal(c)
	if p == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	items, err := h.repo.ListChats(c.Request().Context(), p.UserID)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if items == nil {
		items = []ChatListItem{}
	}

	return c.JSON(http.StatusOK, items)
}

// GetMessages processes GET /api/messages/:chatId?limit=50&offset=0 and
// returns paginated message history.
func (h *Handler) GetMessages(c echo.Context) error {
	p := auth.GetPrincipal(c)
	if p == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
	if err != nil {
		return apperror.NewBadRequest("invalid chat id")
	}

	limit := queryInt(c, "limit", defaultMessageLimit)
	offset := queryInt(c, "offset", 0)
	if limit < 1 || limit > maxMessageLimit {
		limit = defaultMessageLimit
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := h.repo.FetchMessages(c.Request().Context(), chatID, p.UserID, limit, offset)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if messages == nil {
		messages = []Message{}
	}

	return c.JSON(http.StatusOK, messages)
}

// queryInt reads an integer query parameter or returns the default.
func queryInt(c echo.Context, name string, defaultVal int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return v
}
