// Package main runs the background delivery worker for queued notifications.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evergreenlive/backend/config"
	"github.com/evergreenlive/backend/internal/relay"
	"github.com/evergreenlive/backend/internal/worker"
	"github.com/evergreenlive/backend/pkg/queue"
	"github.com/evergreenlive/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	relayPub := relay.NewPublisher(rdb.Client, logger)

	var sender worker.EmailSender
	if cfg.Email.SMTPHost != "" {
		sender = worker.NewSMTPSender(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.FromAddress, cfg.Email.FromName)
		logger.Info("using SMTP sender", zap.String("host", cfg.Email.SMTPHost))
	} else {
		sender = worker.NewConsoleSender(logger)
		logger.Info("SMTP not configured, using console sender")
	}

	processor := worker.NewDeliveryProcessor(jobQueue, sender, relayPub, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
