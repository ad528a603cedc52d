package importer

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/distlock"
	"github.com/ignite/courier/internal/pkg/logger"
)

// ClaimStore extends Store with the queue poll.
type ClaimStore interface {
	Store
	ClaimPendingImport(ctx context.Context) (*domain.Import, error)
}

// Runner polls for pending imports and executes them one at a time under a
// distributed lock, so a fleet of workers never double-processes a file.
type Runner struct {
	store        ClaimStore
	job          *Job
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

func NewRunner(store ClaimStore, job *Job, redisClient *redis.Client, db *sql.DB, pollInterval, lockTTL time.Duration) *Runner {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Runner{
		store:        store,
		job:          job,
		redisClient:  redisClient,
		db:           db,
		pollInterval: pollInterval,
		lockTTL:      lockTTL,
		log:          logger.New("import-runner", logger.INFO),
	}
}

// Start launches the poll loop.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go r.loop(ctx)
	r.log.Info("import runner started", "poll_interval", r.pollInterval)
}

// Stop halts the loop and waits for an in-flight import to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info("import runner stopped")
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick drains the pending queue. The lock spans the whole drain; losing
// the race just means another worker has it.
func (r *Runner) tick(ctx context.Context) {
	lock := distlock.NewLock(r.redisClient, r.db, "import-runner", r.lockTTL)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		r.log.Error("acquire import lock", "error", err)
		return
	}
	if !ok {
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			r.log.Warn("release import lock", "error", err)
		}
	}()

	for {
		imp, err := r.store.ClaimPendingImport(ctx)
		if err != nil {
			r.log.Error("claim pending import", "error", err)
			return
		}
		if imp == nil {
			return
		}
		r.log.Info("import claimed", "import_id", imp.ID, "filename", imp.Filename)
		if err := r.job.Run(ctx, imp); err != nil {
			r.log.Error("import failed", "error", err, "import_id", imp.ID)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
