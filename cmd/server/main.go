package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eventgate/checkin/internal/di"
	"github.com/eventgate/checkin/internal/repository"
	"github.com/eventgate/checkin/internal/stream"
	"github.com/eventgate/checkin/pkg/config"
	"github.com/eventgate/checkin/pkg/database"
	"github.com/eventgate/checkin/pkg/logger"
	"github.com/eventgate/checkin/pkg/middleware"
	"github.com/eventgate/checkin/pkg/telemetry"
)

// main wires infrastructure, builds the container, and owns the server
// lifecycle. Business logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := "info"
	if cfg.App.Debug {
		logLevel = "debug"
	}
	if err := logger.Init(&logger.Config{
		Level:       logLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
		OutputPath:  "stdout",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		logger.Fatal("failed to init telemetry", zap.Error(err))
	}

	db, err := database.Init(ctx, &database.PostgresConfig{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Database:       cfg.Database.DBName,
		SSLMode:        cfg.Database.SSLMode,
		MaxConns:       int32(cfg.Database.MaxConns),
		MinConns:       int32(cfg.Database.MinConns),
		MaxRetries:     cfg.Database.MaxRetries,
		RetryInterval:  cfg.Database.RetryInterval,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, db.Pool()); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database schema up to date")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("redis unreachable at startup, continuing", zap.Error(err))
		}
	}

	producer, err := stream.NewProducer(&cfg.Kafka)
	if err != nil {
		logger.Fatal("failed to create admission producer", zap.Error(err))
	}

	var auditLogger *middleware.AuditLogger
	if cfg.Audit.Enabled {
		auditCfg := middleware.DefaultAuditConfig(db.Pool())
		auditCfg.BufferSize = cfg.Audit.BufferSize
		auditCfg.BatchSize = cfg.Audit.BatchSize
		auditCfg.FlushInterval = cfg.Audit.FlushInterval
		auditLogger = middleware.NewAuditLogger(auditCfg)
	}

	container := di.NewContainer(&di.ContainerConfig{
		DB:        db,
		Redis:     redisClient,
		Publisher: producer,
	})

	router := setupRouter(cfg, container, redisClient, auditLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first, then drain the producer and audit
	// buffers, then tear down the rest.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}

	if err := producer.Close(shutdownCtx); err != nil {
		logger.Error("producer shutdown failed", zap.Error(err))
	}

	if auditLogger != nil {
		if err := auditLogger.Close(); err != nil {
			logger.Error("audit shutdown failed", zap.Error(err))
		}
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close failed", zap.Error(err))
		}
	}

	db.Close()

	logger.Info("shutdown complete")
}

// setupRouter builds the HTTP routing table.
//
// The check-in surface speaks the flat response shape and is rate limited
// per caller. The admin surface requires the admin role, speaks the shared
// envelope, and has its mutations recorded by the audit middleware.
func setupRouter(cfg *config.Config, c *di.Container, redisClient *redis.Client, auditLogger *middleware.AuditLogger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/health", c.HealthHandler.Live)
	router.GET("/health/ready", c.HealthHandler.Ready)

	jwtMW := middleware.JWTMiddleware(&middleware.JWTConfig{Secret: cfg.JWT.Secret})

	v1 := router.Group("/api/v1")
	v1.Use(jwtMW)
	{
		checkin := v1.Group("")
		if cfg.RateLimit.Enabled {
			limiterCfg := middleware.DefaultRateLimiterConfig()
			limiterCfg.Rate = cfg.RateLimit.Rate
			limiterCfg.Burst = cfg.RateLimit.Burst
			limiterCfg.RedisClient = redisClient
			checkin.Use(middleware.RateLimiter(limiterCfg))
		}
		checkin.POST("/checkin", c.CheckinHandler.CheckIn)

		v1.GET("/me/registrations", c.CheckinHandler.MyRegistrations)

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireRole("admin"))
		if auditLogger != nil {
			admin.Use(middleware.AuditMiddleware(auditLogger))
		}
		{
			admin.POST("/events", c.EventHandler.Create)
			admin.GET("/events", c.EventHandler.List)
			admin.GET("/events/:id", c.EventHandler.GetByID)
			admin.PATCH("/events/:id", c.EventHandler.Update)
			admin.POST("/events/:id/activate", c.EventHandler.Activate)
			admin.POST("/events/:id/deactivate", c.EventHandler.Deactivate)
			admin.GET("/events/:id/registrations", c.EventHandler.Registrations)
		}
	}

	return router
}

// requestLogger logs each request with latency and status
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.InfoCtx(c.Request.Context(), "request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
