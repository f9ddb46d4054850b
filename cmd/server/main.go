// Package main runs the evergreen webinar engine HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evergreenlive/backend/config"
	"github.com/evergreenlive/backend/internal/access"
	"github.com/evergreenlive/backend/internal/chat"
	"github.com/evergreenlive/backend/internal/middleware"
	"github.com/evergreenlive/backend/internal/notifications"
	"github.com/evergreenlive/backend/internal/registrations"
	"github.com/evergreenlive/backend/internal/relay"
	"github.com/evergreenlive/backend/internal/scheduler"
	"github.com/evergreenlive/backend/internal/webinars"
	"github.com/evergreenlive/backend/pkg/clock"
	"github.com/evergreenlive/backend/pkg/database"
	"github.com/evergreenlive/backend/pkg/metrics"
	"github.com/evergreenlive/backend/pkg/queue"
	"github.com/evergreenlive/backend/pkg/redis"
	"github.com/evergreenlive/backend/pkg/response"
	"github.com/evergreenlive/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			VideoBucket:          cfg.AWS.VideoBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	clk := clock.Real{}
	m := metrics.New()
	relayPub := relay.NewPublisher(rdb.Client, logger)

	// Webinar content and schedule configs (admin-owned, read here)
	webinarRepo := webinars.NewRepository(pool)

	// Session generation
	sessionRepo := scheduler.NewRepository(pool)
	sched := scheduler.New(sessionRepo, webinarRepo, clk, relayPub, m, cfg.Scheduler.HorizonDaysCap, logger)
	schedHandler := scheduler.NewHandler(sched, logger)

	// Notification jobs (drain hands deliveries to the Redis queue)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	jobRepo := notifications.NewRepository(pool)
	notifSched := notifications.NewScheduler(jobRepo, notifications.NewQueueSender(jobQueue), clk, notifications.Config{
		ReminderLead: time.Duration(cfg.Notifications.ReminderLeadMinutes) * time.Minute,
		NoShowGrace:  time.Duration(cfg.Notifications.NoShowGraceMinutes) * time.Minute,
		MaxAttempts:  cfg.Notifications.MaxAttempts,
		SendTimeout:  time.Duration(cfg.Notifications.SendTimeoutSec) * time.Second,
	}, m, logger)
	notifHandler := notifications.NewHandler(notifSched, logger)

	// Registration assignment
	regRepo := registrations.NewRepository(pool)
	assigner := registrations.NewAssigner(webinarRepo, sessionRepo, regRepo, sched, notifSched, clk, logger)
	regHandler := registrations.NewHandler(assigner, logger)

	// Access state and progress
	var signer access.VideoURLSigner
	if s3Client != nil {
		signer = s3Client
	}
	policy := access.Policy{
		LiveReplayGrace: time.Duration(cfg.Access.LiveReplayGraceHours) * time.Hour,
	}
	accessSvc := access.NewService(regRepo, sessionRepo, webinarRepo, signer, clk, policy, m, logger)
	accessHandler := access.NewHandler(accessSvc, logger)

	// Simulated chat
	chatRepo := chat.NewRepository(pool)
	chatFeed := chat.NewFeed(chatRepo, clk, logger)
	chatHandler := chat.NewHandler(chatFeed, accessSvc, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(m))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Viewer surface (token-authenticated per request)
	router.POST("/webinars/:id/register", regHandler.Register)
	router.GET("/webinars/:id/access-state", accessHandler.State)
	router.POST("/webinars/:id/progress", accessHandler.Progress)
	router.GET("/webinars/:id/chat", chatHandler.Window)

	// Periodic triggers (external cron, shared-secret bearer)
	internal := router.Group("/internal")
	internal.Use(middleware.CronAuth(cfg.Scheduler.CronSecret))
	{
		internal.POST("/generate-sessions", schedHandler.GenerateSessions)
		internal.POST("/process-notifications", notifHandler.ProcessDue)
		internal.GET("/process-notifications", notifHandler.ProcessDue)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
