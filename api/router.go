package api

import (
	"github.com/gin-gonic/gin"

	"chat-server/auth"
)

// Router assembles the versioned API surface. Everything but auth and the
// WebSocket upgrade sits behind the bearer-token middleware; the upgrade
// authenticates from its query string since browsers cannot set headers on
// WebSocket handshakes.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
		}

		protected := v1.Group("", auth.Middleware())
		{
			protected.GET("/user/me", h.Me)
			protected.GET("/user", h.SearchUsers)

			protected.POST("/chat", h.AccessChat)
			protected.GET("/chat", h.FetchChats)
			protected.POST("/chat/group", h.CreateGroup)
			protected.PUT("/chat/rename", h.RenameGroup)
			protected.PUT("/chat/groupadd", h.AddToGroup)
			protected.PUT("/chat/groupremove", h.RemoveFromGroup)

			protected.POST("/message", h.SendMessage)
			protected.GET("/message/:chatId", h.ListMessages)

			protected.GET("/archive", h.RunArchive)
		}
	}

	router.GET("/ws", h.HandleWebSocket)
	return router
}
