package routers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sharetrust/sharetrust/config"
	"github.com/sharetrust/sharetrust/internal/handlers"
	"github.com/sharetrust/sharetrust/internal/middlewares"
	"github.com/sharetrust/sharetrust/internal/services"
	"github.com/sharetrust/sharetrust/pkg/jwt"
	"github.com/sharetrust/sharetrust/pkg/mq"
	"github.com/sharetrust/sharetrust/pkg/ratelimit"
	"github.com/sharetrust/sharetrust/pkg/ws"
)

// Handlers 路由需要的全部处理器
type Handlers struct {
	Auth         *handlers.AuthHandler
	Profile      *handlers.ProfileHandler
	Group        *handlers.GroupHandler
	Payment      *handlers.PaymentHandler
	Verification *handlers.VerificationHandler
	Report       *handlers.ReportHandler
	Message      *handlers.MessageHandler
}

// SetupRoutes 设置所有路由
func SetupRoutes(r *gin.Engine, cfg *config.Config,
	h *Handlers,
	tokenManager *jwt.TokenManager,
	limiter ratelimit.Limiter,
	hub *ws.Hub,
	groupService *services.GroupService,
	messageService *services.MessageService,
	kafkaProducer *mq.KafkaProducer,
) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// 并发上限保护
	if cfg.RateLimit.MaxConcurrency > 0 {
		r.Use(middlewares.MaxConcurrencyMiddleware(cfg.RateLimit.MaxConcurrency))
	}

	auth := middlewares.AuthMiddleware(tokenManager)

	// WebSocket 路由 (必须在 AsyncMiddleware 之前注册，避免握手请求被放入 Worker Pool)
	r.GET("/ws", auth, func(c *gin.Context) {
		ws.ServeWs(hub, groupService, messageService, kafkaProducer, c)
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// 异步处理中间件：请求进 Worker Pool 排队执行
	r.Use(middlewares.AsyncMiddleware())

	// 认证接口单独限流，防止授权码接口被刷
	authGroup := r.Group("/auth")
	if limiter != nil && cfg.RateLimit.QPS > 0 {
		authGroup.Use(middlewares.RateLimitMiddleware(limiter, cfg.RateLimit.QPS, time.Minute))
	}
	{
		authGroup.POST("/line", h.Auth.SignIn)       // LINE 授权码登录
		authGroup.POST("/refresh", h.Auth.Refresh)   // 刷新令牌
		authGroup.POST("/signout", h.Auth.SignOut)   // 登出当前会话
		authGroup.POST("/signout-all", auth, h.Auth.SignOutAll)
		authGroup.GET("/validate/:user_id", h.Auth.Validate) // 用户存在性检查
		authGroup.GET("/profile", auth, h.Profile.GetMe)
		authGroup.PUT("/profile", auth, h.Profile.UpdateMe)
	}

	api := r.Group("/api/v1")
	api.Use(auth)
	if limiter != nil && cfg.RateLimit.QPS > 0 {
		api.Use(middlewares.RateLimitMiddleware(limiter, cfg.RateLimit.QPS, time.Minute))
	}

	// 档案与信任分
	{
		api.GET("/me", h.Profile.GetMe)
		api.PUT("/me", h.Profile.UpdateMe)
		api.GET("/me/trust", h.Profile.GetMyTrust)
		api.GET("/users/:user_id", h.Profile.GetPublicProfile)
		api.GET("/users/:user_id/trust", h.Profile.GetUserTrust)
	}

	// 类别
	api.GET("/categories", h.Group.ListCategories)

	// 拼团
	groupRoutes := api.Group("/groups")
	{
		groupRoutes.POST("", h.Group.CreateGroup)
		groupRoutes.GET("", h.Group.ListGroups)
		groupRoutes.GET("/mine", h.Group.ListMyGroups)
		groupRoutes.GET("/:group_id", h.Group.GetGroup)
		groupRoutes.POST("/:group_id/join", h.Group.JoinGroup)
		groupRoutes.POST("/:group_id/approve", h.Group.ApproveMember)
		groupRoutes.POST("/:group_id/reject", h.Group.RejectMember)
		groupRoutes.POST("/:group_id/leave", h.Group.LeaveGroup)
		groupRoutes.POST("/:group_id/cancel", h.Group.CancelGroup)
		groupRoutes.POST("/:group_id/complete", h.Group.CompleteGroup)
		groupRoutes.GET("/:group_id/members", h.Group.ListMembers)

		// 支付与托管
		groupRoutes.POST("/:group_id/pay", h.Payment.Pay)
		groupRoutes.POST("/:group_id/release", h.Payment.ReleaseEscrow)
		groupRoutes.POST("/:group_id/refund", h.Payment.RefundGroup)
		groupRoutes.GET("/:group_id/transactions", h.Payment.ListGroupTransactions)

		// 群聊
		groupRoutes.POST("/:group_id/messages", h.Message.SendMessage)
		groupRoutes.GET("/:group_id/messages", h.Message.GetMessages)
	}

	// 流水
	api.GET("/transactions", h.Payment.ListMyTransactions)

	// 验证
	verificationRoutes := api.Group("/verifications")
	{
		verificationRoutes.POST("", h.Verification.Submit)
		verificationRoutes.GET("", h.Verification.ListMine)
	}

	// 举报
	reportRoutes := api.Group("/reports")
	{
		reportRoutes.POST("", h.Report.Submit)
		reportRoutes.GET("", h.Report.ListMine)
	}

	// 管理端
	admin := api.Group("/admin")
	admin.Use(middlewares.AdminOnly())
	{
		admin.GET("/verifications", h.Verification.ListPending)
		admin.POST("/verifications/:verification_id/review", h.Verification.Review)
		admin.GET("/reports", h.Report.ListOpen)
		admin.POST("/reports/:report_id/resolve", h.Report.Resolve)
		admin.POST("/messages/:message_id/flag", h.Message.FlagMessage)
		admin.POST("/trust/:user_id/recompute", h.Profile.RecomputeTrust)
	}
}
