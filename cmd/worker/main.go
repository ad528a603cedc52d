package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/courier/internal/config"
	"github.com/ignite/courier/internal/delivery"
	"github.com/ignite/courier/internal/events"
	"github.com/ignite/courier/internal/importer"
	"github.com/ignite/courier/internal/mailer"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/storage"
	"github.com/ignite/courier/internal/store"
	"github.com/ignite/courier/internal/tracking"
)

// The worker runs the background jobs: the campaign scheduler that fires
// due sends and the import runner that chews through queued CSV uploads.
// Multiple worker replicas are safe; distributed locks keep each job
// single-flight across the fleet.
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

	st, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	var redisClient *redis.Client
	var notifier events.Notifier = events.NopNotifier{}
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		notifier = events.NewRedisNotifier(redisClient)
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
	default:
		mail = mailer.NewLogMailer()
	}

	urls := tracking.NewURLBuilder(cfg.Tracking.PublicBaseURL)
	deliverer := delivery.NewDeliverer(st, mail, urls, notifier, cfg.Mailer.SendRatePerSecond)

	scheduler := delivery.NewScheduler(st, deliverer, redisClient, st.DB(),
		cfg.Scheduler.PollInterval(), cfg.Scheduler.LockTTL())
	scheduler.Start()

	job := importer.NewJob(st, files, notifier)
	runner := importer.NewRunner(st, job, redisClient, st.DB(),
		cfg.Importer.PollInterval(), cfg.Importer.LockTTL())
	runner.Start()

	logger.Info("worker started",
		"scheduler_poll", cfg.Scheduler.PollInterval().String(),
		"importer_poll", cfg.Importer.PollInterval().String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	scheduler.Stop()
	runner.Stop()
}
