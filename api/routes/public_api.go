package routes

import (
	"messenger/api/handlers"
	"messenger/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicApi(router *gin.Engine, conversations *handlers.ConversationHandlers, messages *handlers.MessageHandlers) *gin.RouterGroup {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	publicEndpoints := router.Group("/api/v1/")
	{
		publicEndpoints.POST("auth/register", handlers.Register)
		publicEndpoints.POST("auth/login", handlers.Login)
		publicEndpoints.POST("auth/logout", handlers.Logout)

		// Мессенджер
		publicEndpoints.POST("messages/", messages.SendMessageHandler)
		publicEndpoints.GET("messages/conversation/:conversation_id", messages.ListConversationMessagesHandler)
		publicEndpoints.GET("messages/conversation/:conversation_id/before", messages.ListMessagesBeforeHandler)
		publicEndpoints.GET("conversations/user/:user_id", conversations.ListUserConversationsHandler)
		// Отдельный префикс: gin не разрешает параметр рядом со статическим
		// сегментом user на одном уровне дерева
		publicEndpoints.GET("conversation/:conversation_id", conversations.GetConversationHandler)
	}

	wsEndpoints := router.Group("/api/v1/")
	wsEndpoints.Use(middleware.AuthMiddleware())
	{
		wsEndpoints.GET("ws", handlers.WSHandler)
	}

	return publicEndpoints
}
