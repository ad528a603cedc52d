package delivery

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/distlock"
	"github.com/ignite/courier/internal/pkg/logger"
)

// SchedulerStore adds the due-campaign poll and the guarded claim to the
// delivery store.
type SchedulerStore interface {
	Store
	GetDueScheduledCampaigns(ctx context.Context, now time.Time) ([]*domain.Campaign, error)
	TransitionCampaignStatus(ctx context.Context, campaignID uuid.UUID, next domain.CampaignStatus, from ...domain.CampaignStatus) (bool, error)
}

// Scheduler polls for scheduled campaigns whose time has come and hands
// them to the deliverer. A distributed lock keeps one instance active; the
// guarded status transition is the second line of defense against a
// double send.
type Scheduler struct {
	store        SchedulerStore
	deliverer    *Deliverer
	redisClient  *redis.Client
	db           *sql.DB
	pollInterval time.Duration
	lockTTL      time.Duration
	log          *logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(store SchedulerStore, deliverer *Deliverer, redisClient *redis.Client, db *sql.DB, pollInterval, lockTTL time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Scheduler{
		store:        store,
		deliverer:    deliverer,
		redisClient:  redisClient,
		db:           db,
		pollInterval: pollInterval,
		lockTTL:      lockTTL,
		log:          logger.New("scheduler", logger.INFO),
	}
}

// Start launches the poll loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)
	s.log.Info("scheduler started", "poll_interval", s.pollInterval)
}

// Stop halts the loop and waits for an in-flight delivery to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	lock := distlock.NewLock(s.redisClient, s.db, "campaign-scheduler", s.lockTTL)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		s.log.Error("acquire scheduler lock", "error", err)
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.log.Warn("release scheduler lock", "error", err)
		}
	}()

	due, err := s.store.GetDueScheduledCampaigns(ctx, time.Now())
	if err != nil {
		s.log.Error("poll due campaigns", "error", err)
		return
	}

	for _, campaign := range due {
		// Only the dispatcher that wins the scheduled→sending flip sends.
		claimed, err := s.store.TransitionCampaignStatus(ctx, campaign.ID,
			domain.CampaignSending, domain.CampaignScheduled)
		if err != nil {
			s.log.Error("claim campaign", "error", err, "campaign_id", campaign.ID)
			continue
		}
		if !claimed {
			continue
		}
		s.log.Info("scheduled campaign due", "campaign_id", campaign.ID)
		if err := s.deliverer.Deliver(ctx, campaign.ID); err != nil {
			s.log.Error("deliver scheduled campaign", "error", err, "campaign_id", campaign.ID)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
