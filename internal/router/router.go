package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhusq20/CapybaraChat/internal/config"
	"github.com/zhusq20/CapybaraChat/internal/gateway"
	"github.com/zhusq20/CapybaraChat/internal/handler"
	"github.com/zhusq20/CapybaraChat/internal/middleware"
	"github.com/zhusq20/CapybaraChat/pkg/jwt"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	User         *handler.UserHandler
	Friend       *handler.FriendHandler
	Request      *handler.RequestHandler
	Group        *handler.GroupHandler
	Message      *handler.MessageHandler
	Conversation *handler.ConversationHandler
}

// SetupRouter sets up all routes
func SetupRouter(h *server.Hertz, handlers *Handlers, wsServer *gateway.WsServer, dir *jwt.Directory, cfg *config.Config) {
	h.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]any{
			"status":       "ok",
			"online_conns": wsServer.GetOnlineConnCount(),
		})
	})

	if cfg.Metrics.Enabled {
		h.GET(cfg.Metrics.Path, adaptor.HertzHandler(promhttp.Handler()))
	}

	auth := middleware.Auth(dir)

	userGroup := h.Group("/user", auth)
	{
		userGroup.POST("/register", handlers.User.Register)
		userGroup.GET("/info", handlers.User.GetUserInfo)
		userGroup.GET("/info/:user_id", handlers.User.GetUserInfoById)
		userGroup.GET("/batch", handlers.User.GetUserInfos)
		userGroup.GET("/search", handlers.User.SearchUsers)
		userGroup.GET("/online", handlers.User.GetOnlineStatus)
		userGroup.PUT("/update", handlers.User.UpdateUserInfo)
		userGroup.DELETE("", handlers.User.DeleteUser)
		userGroup.POST("/logout", handlers.User.Logout)
	}

	friendGroup := h.Group("/friend", auth)
	{
		friendGroup.GET("/list", handlers.Friend.ListFriends)
		friendGroup.POST("/remove", handlers.Friend.RemoveFriend)
		friendGroup.PUT("/tag", handlers.Friend.SetTag)
		friendGroup.POST("/request", handlers.Friend.SendRequest)
		friendGroup.GET("/requests", handlers.Friend.ListRequests)
		friendGroup.POST("/request/process", handlers.Friend.ProcessRequestFrom)
	}

	requestGroup := h.Group("/request", auth)
	{
		requestGroup.GET("/:request_id", handlers.Request.GetRequest)
		requestGroup.POST("/:request_id/process", handlers.Request.ProcessRequest)
	}

	groupGroup := h.Group("/group", auth)
	{
		groupGroup.POST("/create", handlers.Group.CreateGroup)
		groupGroup.GET("/list", handlers.Group.ListGroups)
		groupGroup.GET("/requests", handlers.Group.ListRequests)
		groupGroup.GET("/:group_id", handlers.Group.GetGroupInfo)
		groupGroup.POST("/:group_id/join", handlers.Group.JoinGroup)
		groupGroup.POST("/:group_id/invite", handlers.Group.Invite)
		groupGroup.POST("/:group_id/request/process", handlers.Group.ProcessRequestFrom)
		groupGroup.POST("/:group_id/quit", handlers.Group.QuitGroup)
		groupGroup.PUT("/:group_id/managers", handlers.Group.SetManagers)
		groupGroup.POST("/:group_id/transfer", handlers.Group.TransferMaster)
		groupGroup.POST("/:group_id/remove", handlers.Group.RemoveMembers)
		groupGroup.POST("/:group_id/notice", handlers.Group.PostNotice)
		groupGroup.GET("/:group_id/notices", handlers.Group.ListNotices)
	}

	msgGroup := h.Group("/msg", auth)
	{
		msgGroup.POST("/send", handlers.Message.SendMessage)
		msgGroup.GET("/fetch", handlers.Message.FetchMessages)
		msgGroup.DELETE("/:message_id", handlers.Message.DeleteMessage)
		msgGroup.GET("/:message_id/readers", handlers.Message.GetReaders)
	}

	convGroup := h.Group("/conversation", auth)
	{
		convGroup.POST("/create", handlers.Conversation.CreateConversation)
		convGroup.GET("/private", handlers.Conversation.GetPrivate)
		convGroup.GET("/list", handlers.Conversation.GetConversationList)
		convGroup.GET("/:conversation_id", handlers.Conversation.GetConversation)
		convGroup.POST("/:conversation_id/mark_read", handlers.Conversation.MarkRead)
		convGroup.GET("/:conversation_id/unread_count", handlers.Conversation.GetUnreadCount)
	}

	allowedOrigins := cfg.Server.AllowedOrigins
	upgrader := &websocket.HertzUpgrader{
		CheckOrigin: func(c *app.RequestContext) bool {
			return middleware.OriginAllowed(string(c.GetHeader("Origin")), allowedOrigins)
		},
	}

	h.GET("/ws", func(ctx context.Context, c *app.RequestContext) {
		wsServer.HandleHertzConnection(ctx, c, upgrader)
	})
}
