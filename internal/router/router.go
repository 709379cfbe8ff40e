package router

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/u4s-chat/server/internal/handler"
)

// New assembles the HTTP surface of the service.
func New(chatHandler *handler.ChatHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	v1 := e.Group("/v1")
	v1.POST("/chat", chatHandler.Handle)
	v1.DELETE("/chat/:session_id", chatHandler.Reset)
	v1.GET("/health", handler.Health)

	return e
}
