package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/courier/internal/api"
	"github.com/ignite/courier/internal/config"
	"github.com/ignite/courier/internal/delivery"
	"github.com/ignite/courier/internal/events"
	"github.com/ignite/courier/internal/mailer"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/render"
	"github.com/ignite/courier/internal/service/campaign"
	"github.com/ignite/courier/internal/storage"
	"github.com/ignite/courier/internal/store"
	"github.com/ignite/courier/internal/tracking"
)

// checkPortAvailable verifies that the target port is not already in use,
// so a stale process fails the boot instead of shadowing it.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %v", addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	if err := checkPortAvailable(cfg.Server.Addr()); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	var notifier events.Notifier
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		notifier = events.NewRedisNotifier(redisClient)
		logger.Info("redis connected", "addr", cfg.Redis.Addr)
	} else {
		notifier = events.NopNotifier{}
		logger.Info("redis disabled, events are no-ops")
	}

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	var mail mailer.Mailer
	switch cfg.Mailer.Provider {
	case "ses":
		mail, err = mailer.NewSESMailer(ctx, cfg.SES)
		if err != nil {
			log.Fatalf("Failed to initialize SES mailer: %v", err)
		}
		logger.Info("mailer ready", "provider", "ses", "region", cfg.SES.Region)
	default:
		mail = mailer.NewLogMailer()
		logger.Info("mailer ready", "provider", "log")
	}

	urls := tracking.NewURLBuilder(cfg.Tracking.PublicBaseURL)
	campaignSvc := campaign.NewService(st, notifier)
	deliverer := delivery.NewDeliverer(st, mail, urls, notifier, cfg.Mailer.SendRatePerSecond)

	handlers := api.NewHandlers(st, campaignSvc, deliverer, files, render.NewFeedFetcher(), mail)
	server := api.NewServer(cfg.Server, handlers)

	go func() {
		logger.Info("api server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
