package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/u4s-chat/server/internal/chat"
	errx "github.com/u4s-chat/server/internal/core/error"
)

// ChatHandler exposes the conversational endpoint.
type ChatHandler struct {
	composer *chat.Composer
}

func NewChatHandler(composer *chat.Composer) *ChatHandler {
	return &ChatHandler{composer: composer}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Handle processes POST /chat: one user message in, one answer out.
func (h *ChatHandler) Handle(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id and message are required")
	}

	resp, err := h.composer.HandleMessage(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Reset processes DELETE /chat/:session_id: drops the session's chat history
// and any booking dialogue in progress.
func (h *ChatHandler) Reset(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}
	if err := h.composer.Reset(c.Request().Context(), sessionID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func httpError(err error) *echo.HTTPError {
	var appErr *errx.Error
	if errors.As(err, &appErr) {
		return echo.NewHTTPError(appErr.Status, appErr.Message)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, errx.SystemErrorMessage)
}
