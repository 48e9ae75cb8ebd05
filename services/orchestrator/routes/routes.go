// Copyright (c) 2026 zhyyuka
// This file is part of xingling-chat, released under the MIT License.
// See the LICENSE file for the full license text.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhyyuka/xingling-chat/services/extract"
	"github.com/zhyyuka/xingling-chat/services/orchestrator/handlers"
)

// SetupRoutes registers the chat API on the router. allowedOrigin is the
// single frontend origin permitted by CORS.
func SetupRoutes(router *gin.Engine, svc handlers.ChatService, extractor extract.Extractor, allowedOrigin string) {
	router.Use(corsMiddleware(allowedOrigin))

	router.GET("/status", handlers.HandleStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/chat", handlers.HandleChat(svc))
	router.POST("/chat_stream", handlers.HandleChatStream(svc))
	router.POST("/clear_session", handlers.HandleClearSession(svc))
	router.POST("/upload_chat", handlers.HandleUploadChat(svc, extractor))
}

// corsMiddleware allows the configured frontend origin and answers
// preflight requests.
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == allowedOrigin {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
