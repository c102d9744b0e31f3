// Package router wires handlers, middleware and static uploads onto the
// gin engine.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/unibot/internal/unibot/handler"
	"github.com/kart-io/unibot/pkg/auth"
	"github.com/kart-io/unibot/pkg/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Chat    *handler.ChatHandler
	History *handler.HistoryHandler
	Support *handler.SupportHandler

	// ServeWS is the realtime upgrade endpoint.
	ServeWS gin.HandlerFunc

	// UploadsDir is served read-only at /uploads.
	UploadsDir string
}

// Register mounts all routes on the engine.
func Register(engine *gin.Engine, authn auth.Authenticator, h *Handlers) {
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(),
	)

	if h.UploadsDir != "" {
		engine.Static("/uploads", h.UploadsDir)
	}

	api := engine.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public and anonymous-capable routes.
	api.POST("/register", h.Auth.Register)
	api.POST("/login", h.Auth.Login)
	api.POST("/chat", middleware.OptionalAuth(authn), h.Chat.Chat)

	// Account self-service.
	me := api.Group("", middleware.Auth(authn))
	{
		me.POST("/logout", h.Auth.Logout)
		me.GET("/me", h.Auth.Me)
		me.PUT("/me/profile", h.Auth.UpdateProfile)
		me.POST("/me/password", h.Auth.ChangePassword)
	}

	// Staff user management.
	admin := api.Group("/admin", middleware.Auth(authn), middleware.RequireStaff())
	{
		admin.GET("/users", h.User.List)
		admin.POST("/users", h.User.Create)
		admin.DELETE("/users/:id", h.User.Delete)
		admin.PUT("/users/:id/approve", h.User.Approve)
		admin.PUT("/users/:id/block", h.User.ToggleBlock)
	}

	// AI chat history.
	ai := api.Group("/ai", middleware.Auth(authn))
	{
		ai.GET("/conversations", h.History.ListConversations)
		ai.GET("/conversations/:id", h.History.GetConversation)
		ai.GET("/history/dates", h.History.HistoryDates)
		ai.GET("/history/dates/:date", h.History.PairsForDate)
		ai.DELETE("/history/dates/:date", h.History.DeleteDate)
		ai.DELETE("/pairs/:promptId", h.History.DeletePair)
	}

	// Support chat. The WebSocket endpoint authenticates per event instead
	// of per connection.
	support := api.Group("/support")
	{
		support.GET("/ws", h.ServeWS)

		authed := support.Group("", middleware.Auth(authn))
		authed.POST("/thread", h.Support.EnsureThread)
		authed.GET("/threads", h.Support.ListThreads)
		authed.GET("/threads/:id/messages", h.Support.ThreadMessages)
		authed.POST("/threads/:id/messages", h.Support.PostMessage)
	}

	logger.Infow("routes registered", "uploads_dir", h.UploadsDir)
}
