package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"sudooom.collab/internal/config"
	"sudooom.collab/internal/handler"
	"sudooom.collab/internal/middleware"
	"sudooom.collab/internal/repository"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	tokenRepo *repository.TokenRepository,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	channelHandler *handler.ChannelHandler,
	taskHandler *handler.TaskHandler,
	messageHandler *handler.MessageHandler,
	conversationHandler *handler.ConversationHandler,
	eventHandler *handler.EventHandler,
) *gin.Engine {
	// 设置 Gin 模式
	gin.SetMode(cfg.App.Mode)

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowCredentials,
	))

	// Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证接口（无需登录）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/password/forgot", authHandler.RequestPasswordReset)
			auth.POST("/password/reset", authHandler.ResetPassword)
		}

		// 需要认证的接口
		authenticated := v1.Group("")
		authenticated.Use(middleware.TokenAuth(tokenRepo, cfg.JWT.AccessExpire, cfg.JWT.AutoRenewThreshold))
		{
			// 登出
			authenticated.POST("/auth/logout", authHandler.Logout)

			// 用户接口
			users := authenticated.Group("/users")
			{
				users.GET("/me", userHandler.GetMe)
				users.PUT("/me", userHandler.UpdateProfile)
				users.GET("/search", userHandler.Search)
				users.GET("/:id", userHandler.GetUser)
			}

			// 频道接口
			channels := authenticated.Group("/channels")
			{
				channels.POST("", channelHandler.Create)
				channels.GET("", channelHandler.List)
				channels.GET("/public", channelHandler.ListPublic)
				channels.POST("/join", channelHandler.JoinByInvite)
				channels.GET("/:id", channelHandler.Get)
				channels.PUT("/:id", channelHandler.Update)
				channels.DELETE("/:id", channelHandler.Delete)
				channels.POST("/:id/join", channelHandler.Join)
				channels.POST("/:id/leave", channelHandler.Leave)
				channels.GET("/:id/members", channelHandler.GetMembers)
				channels.POST("/:id/members/:userId/promote", channelHandler.Promote)
				channels.POST("/:id/members/:userId/demote", channelHandler.Demote)
				channels.DELETE("/:id/members/:userId", channelHandler.RemoveMember)
				channels.POST("/:id/invite-code", channelHandler.GenerateInviteCode)

				// 频道任务与消息
				channels.GET("/:id/tasks", taskHandler.GetByChannel)
				channels.POST("/:id/messages", messageHandler.SendChannelMessage)
				channels.GET("/:id/messages", messageHandler.GetChannelMessages)
			}

			// 任务接口
			tasks := authenticated.Group("/tasks")
			{
				tasks.POST("", taskHandler.Create)
				tasks.GET("/feed", taskHandler.GetFeed)
				tasks.GET("/:id", taskHandler.Get)
				tasks.PUT("/:id", taskHandler.Update)
				tasks.DELETE("/:id", taskHandler.Delete)
				tasks.POST("/:id/completion", taskHandler.ToggleCompletion)
				tasks.POST("/:id/items/:itemId/completion", taskHandler.ToggleItem)
			}

			// 消息接口
			messages := authenticated.Group("/messages")
			{
				messages.POST("/direct/:userId", messageHandler.SendDirectMessage)
				messages.GET("/direct/:userId", messageHandler.GetDirectMessages)
				messages.GET("/direct/:userId/allowed", messageHandler.CanMessage)
				messages.DELETE("/direct/message/:id", messageHandler.DeleteDirectMessage)
				messages.DELETE("/channel/:id", messageHandler.DeleteChannelMessage)
			}

			// 会话接口
			conversations := authenticated.Group("/conversations")
			{
				conversations.GET("", conversationHandler.List)
				conversations.GET("/unread", conversationHandler.UnreadCount)
				conversations.POST("/read", conversationHandler.MarkRead)
			}

			// 实时事件流（SSE）
			authenticated.GET("/events", eventHandler.Stream)
		}
	}

	return r
}
