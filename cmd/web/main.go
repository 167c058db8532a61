package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"sudooom.collab/internal/config"
	"sudooom.collab/internal/handler"
	"sudooom.collab/internal/realtime"
	"sudooom.collab/internal/repository"
	"sudooom.collab/internal/router"
	"sudooom.collab/internal/service"
	"sudooom.collab/pkg/jwt"
	"sudooom.collab/pkg/snowflake"
)

func main() {
	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库
	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)

	// 连接 Redis
	redisClient := connectRedis(cfg.Redis)
	defer redisClient.Close()
	logger.Info("Connected to Redis", "host", cfg.Redis.Host)

	// 连接 NATS
	nc, err := connectNATS(cfg.NATS)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	logger.Info("Connected to NATS", "url", cfg.NATS.URL)

	// 初始化 JWT 服务
	jwtService := jwt.NewService(
		cfg.JWT.SecretKey,
		cfg.JWT.AccessExpire,
		cfg.JWT.RefreshExpire,
	)

	// 初始化雪花ID生成器
	sfNode, err := snowflake.NewNode(1)
	if err != nil {
		logger.Error("Failed to create snowflake node", "error", err)
		os.Exit(1)
	}

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	tokenRepo := repository.NewTokenRepository(redisClient)

	// 初始化事件发布器
	publisher := realtime.NewPublisher(nc)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, tokenRepo, jwtService, sfNode, cfg.JWT.AccessExpire)
	userService := service.NewUserService(userRepo)
	channelService := service.NewChannelService(channelRepo, sfNode, publisher)
	taskService := service.NewTaskService(taskRepo, channelRepo, sfNode, publisher)
	conversationService := service.NewConversationService(redisClient)
	messageService := service.NewMessageService(messageRepo, channelRepo, userRepo, conversationService, publisher, sfNode)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	channelHandler := handler.NewChannelHandler(channelService, conversationService)
	taskHandler := handler.NewTaskHandler(taskService)
	messageHandler := handler.NewMessageHandler(messageService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	eventHandler := handler.NewEventHandler(nc, channelService)

	// 设置路由
	r := router.SetupRouter(
		cfg,
		tokenRepo,
		authHandler,
		userHandler,
		channelHandler,
		taskHandler,
		messageHandler,
		conversationHandler,
		eventHandler,
	)

	// 启动服务器
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	go func() {
		logger.Info("Web server started", "addr", addr, "mode", cfg.App.Mode)
		if err := r.Run(addr); err != nil {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()
	logger.Info("Server stopped")
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN() + "?sslmode=disable")
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectNATS 连接 NATS
func connectNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	return nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			slog.Info("NATS reconnected", "url", conn.ConnectedUrl())
		}),
	)
}
