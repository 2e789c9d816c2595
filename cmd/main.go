package main

import (
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sharetrust/sharetrust/config"
	"github.com/sharetrust/sharetrust/internal/consumer"
	"github.com/sharetrust/sharetrust/internal/handlers"
	"github.com/sharetrust/sharetrust/internal/line"
	"github.com/sharetrust/sharetrust/internal/models"
	"github.com/sharetrust/sharetrust/internal/repositories"
	"github.com/sharetrust/sharetrust/internal/routers"
	"github.com/sharetrust/sharetrust/internal/services"
	"github.com/sharetrust/sharetrust/internal/storage"
	"github.com/sharetrust/sharetrust/pkg/jwt"
	"github.com/sharetrust/sharetrust/pkg/logger"
	"github.com/sharetrust/sharetrust/pkg/mq"
	"github.com/sharetrust/sharetrust/pkg/ratelimit"
	"github.com/sharetrust/sharetrust/pkg/snowflake"
	"github.com/sharetrust/sharetrust/pkg/utils"
	"github.com/sharetrust/sharetrust/pkg/ws"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		log.Fatalf("配置初始化失败: %v", err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer zapLogger.Close()

	// 初始化全局 Worker Pool (协程池)
	// 用于异步处理请求，防止高并发下 Goroutine 暴涨
	utils.InitGlobalWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)

	// 初始化 PostgreSQL
	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	postgres, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		log.Fatalf("postgres 初始化失败: %v", err)
	}

	// 初始化 Redis
	redisClient, err := storage.InitRedis(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, cfg.Redis.MinIdleConns)
	if err != nil {
		log.Fatalf("redis 初始化失败: %v", err)
	}

	// JWT 与消息 ID 生成器
	tokenManager := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	idGen, err := snowflake.NewGenerator(int64(cfg.Server.Port % 1024))
	if err != nil {
		log.Fatalf("snowflake 初始化失败: %v", err)
	}

	// LINE 客户端（启动即拉取 JWKS，拉不到直接失败）
	lineClient, err := line.NewClient(&cfg.Line, zapLogger.Logger)
	if err != nil {
		log.Fatalf("LINE 客户端初始化失败: %v", err)
	}

	// 初始化仓储层
	profileRepo := repositories.NewProfileRepository(postgres, redisClient)
	sessionRepo := repositories.NewSessionRepository(postgres)
	groupRepo := repositories.NewGroupRepository(postgres, redisClient)
	categoryRepo := repositories.NewCategoryRepository(postgres)
	txRepo := repositories.NewTransactionRepository(postgres)
	trustRepo := repositories.NewTrustRepository(postgres)
	verificationRepo := repositories.NewVerificationRepository(postgres)
	reportRepo := repositories.NewReportRepository(postgres)
	messageRepo := repositories.NewMessageRepository(postgres, redisClient)

	// 内置订阅类别
	if err := categoryRepo.Seed(defaultCategories()); err != nil {
		log.Printf("类别初始化失败: %v", err)
	}

	// 初始化服务层
	trustService := services.NewTrustService(trustRepo, profileRepo)
	authService := services.NewAuthService(lineClient, profileRepo, sessionRepo,
		trustService, tokenManager, redisClient, zapLogger.Logger)
	profileService := services.NewProfileService(profileRepo)
	groupService := services.NewGroupService(groupRepo, categoryRepo, trustService, zapLogger.Logger)
	paymentService := services.NewPaymentService(txRepo, groupRepo, trustService, zapLogger.Logger)
	verificationService := services.NewVerificationService(verificationRepo, profileRepo, trustService, zapLogger.Logger)
	reportService := services.NewReportService(reportRepo, trustService, zapLogger.Logger)
	messageService := services.NewMessageService(messageRepo, groupRepo, profileRepo, idGen, zapLogger.Logger)

	// 初始化 Kafka Producer
	kafkaProducer, err := mq.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Printf("Kafka 生产者初始化失败: %v。系统将以降级模式运行（直接写入数据库）。", err)
		kafkaProducer = nil
	} else {
		defer kafkaProducer.Close()
	}

	// 初始化 WebSocket Hub
	hub := ws.NewHub(groupRepo, redisClient)
	go hub.Run()

	// 初始化 Kafka Consumer (如果 Kafka 可用)
	if kafkaProducer != nil {
		msgConsumer := consumer.NewMessageConsumer(messageService, hub)
		consumer.StartConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, msgConsumer)
	}

	// 过期拼团定时清理
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			groupService.ExpireStaleGroups()
		}
	}()

	// Redis 限流器（fail-open 由配置决定）
	limiter := ratelimit.NewTokenBucketLimiter(redisClient, zapLogger.Logger, cfg.RateLimit.FailOpen)

	// 初始化处理器
	h := &routers.Handlers{
		Auth:         handlers.NewAuthHandler(authService, zapLogger.Logger),
		Profile:      handlers.NewProfileHandler(profileService, trustService),
		Group:        handlers.NewGroupHandler(groupService),
		Payment:      handlers.NewPaymentHandler(paymentService),
		Verification: handlers.NewVerificationHandler(verificationService),
		Report:       handlers.NewReportHandler(reportService),
		Message:      handlers.NewMessageHandler(messageService, kafkaProducer, hub, zapLogger.Logger),
	}

	// 配置并创建 Gin 引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	// 设置路由
	routers.SetupRoutes(r, cfg, h, tokenManager, limiter, hub,
		groupService, messageService, kafkaProducer)

	// 启动服务器
	log.Printf("正在启动服务器，监听端口 :%d\n", cfg.Server.Port)
	if err := r.Run(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
		log.Fatalf("启动服务器失败: %v", err)
	}
}

// defaultCategories 内置的订阅类别
func defaultCategories() []models.Category {
	names := []struct {
		name string
		icon string
	}{
		{"streaming", "🎬"},
		{"music", "🎵"},
		{"ai_tools", "🤖"},
		{"software", "💻"},
		{"gaming", "🎮"},
		{"education", "📚"},
		{"other", "📦"},
	}
	categories := make([]models.Category, 0, len(names))
	for _, n := range names {
		categories = append(categories, models.Category{
			ID:       uuid.NewString(),
			Name:     n.name,
			Icon:     n.icon,
			IsActive: true,
		})
	}
	return categories
}
