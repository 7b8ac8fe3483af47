package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"starbase-server/internal/shared/config"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/shared/errors"
)

// Handler resolves one claimed entry. All side effects must go through the
// given transaction; the scheduler commits it together with the archival, so
// an entry's mutations and its terminal status land atomically.
type Handler interface {
	Handle(ctx context.Context, tx *database.Tx, entry *Entry) error
}

// Registry maps action types to their handlers. Dispatch is checked at
// registration time, not at a string match during processing.
type Registry map[ActionType]Handler

// Transactor begins the transactions that scope each resolution.
type Transactor interface {
	BeginTxContext(ctx context.Context) (*database.Tx, error)
}

// SchedulerStore is the slice of the queue repository the scheduler drives:
// claiming due work, returning stuck claims and archiving results.
type SchedulerStore interface {
	ClaimDue(ctx context.Context, limit int) ([]Entry, error)
	ClaimDueForUser(ctx context.Context, userID int) ([]Entry, error)
	ResetStuck(ctx context.Context, timeout time.Duration) (int, error)
	ArchiveAndDelete(ctx context.Context, tx *database.Tx, entry *Entry, finalStatus Status) error
}

// maxTrackedLimiters bounds the per-user limiter map. When the bound is hit
// the map is dropped wholesale; losing refill state only grants each user
// one extra burst.
const maxTrackedLimiters = 10000

type Scheduler struct {
	db       Transactor
	repo     SchedulerStore
	locks    LockStore
	registry Registry
	cfg      config.QueueConfig
	logger   *slog.Logger

	cron *cron.Cron

	mu       sync.Mutex
	limiters map[int]*rate.Limiter
}

func NewScheduler(db Transactor, repo SchedulerStore, locks LockStore, registry Registry, cfg config.QueueConfig, logger *slog.Logger) *Scheduler {
	logger.Debug("Initializing queue scheduler", "poll_interval", cfg.PollInterval, "stuck_timeout", cfg.StuckTimeout)

	return &Scheduler{
		db:       db,
		repo:     repo,
		locks:    locks,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		cron:     cron.New(),
		limiters: make(map[int]*rate.Limiter),
	}
}

// Start registers the polling and sweep jobs and launches the cron loop.
func (s *Scheduler) Start() error {
	logger := s.logger.With("component", "queue_scheduler", "operation", "start")

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.PollInterval), func() {
		if _, err := s.ProcessDueNow(context.Background()); err != nil {
			logger.Error("Scheduled pass failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register poll job: %w", err)
	}

	_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.StuckTimeout), func() {
		if _, err := s.SweepStuck(context.Background()); err != nil {
			logger.Error("Stuck sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register sweep job: %w", err)
	}

	s.cron.Start()
	logger.Info("Queue scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Queue scheduler stopped", "component", "queue_scheduler")
}

// ProcessDueNow claims every due entry and resolves each independently. One
// failing entry never blocks the rest of the pass.
func (s *Scheduler) ProcessDueNow(ctx context.Context) (int, error) {
	logger := s.logger.With("component", "queue_scheduler", "operation", "process_due_now")

	entries, err := s.repo.ClaimDue(ctx, s.cfg.ClaimBatchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	logger.Info("Processing due entries", "count", len(entries))

	resolved := 0
	for i := range entries {
		s.resolveEntry(ctx, &entries[i])
		resolved++
	}
	return resolved, nil
}

// ProcessUserInstant resolves one user's due entries immediately, rate
// limited per user so privileged refresh endpoints cannot hammer the store.
func (s *Scheduler) ProcessUserInstant(ctx context.Context, userID int) (int, error) {
	logger := s.logger.With("component", "queue_scheduler", "operation", "process_user_instant", "user_id", userID)

	if !s.limiter(userID).Allow() {
		logger.Debug("Instant pass rate limited")
		return 0, errors.Conflictf("instant processing rate limit exceeded for user %d", userID)
	}

	entries, err := s.repo.ClaimDueForUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	for i := range entries {
		s.resolveEntry(ctx, &entries[i])
	}
	return len(entries), nil
}

// SweepStuck returns entries stuck in processing to a claimable state.
func (s *Scheduler) SweepStuck(ctx context.Context) (int, error) {
	return s.repo.ResetStuck(ctx, s.cfg.StuckTimeout)
}

func (s *Scheduler) limiter(userID int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[userID]
	if !ok {
		if len(s.limiters) >= maxTrackedLimiters {
			s.limiters = make(map[int]*rate.Limiter)
		}
		l = rate.NewLimiter(rate.Limit(s.cfg.InstantPerSecond), s.cfg.InstantBurst)
		s.limiters[userID] = l
	}
	return l
}

// resolveEntry runs the handler and the archival in one transaction. A
// handler error rolls everything back and the entry is archived as failed
// with its locks released, so no error can strand an entry in processing.
func (s *Scheduler) resolveEntry(ctx context.Context, entry *Entry) {
	logger := s.logger.With("component", "queue_scheduler", "operation", "resolve_entry",
		"entry_id", entry.ID, "type", entry.Type, "user_id", entry.UserID)

	handler, ok := s.registry[entry.Type]
	if !ok {
		logger.Error("No handler registered for action type")
		s.failEntry(ctx, entry, fmt.Errorf("no handler for action type %q", entry.Type))
		return
	}

	err := func() error {
		tx, err := s.db.BeginTxContext(ctx)
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if err := handler.Handle(ctx, tx, entry); err != nil {
			return err
		}

		if err := s.repo.ArchiveAndDelete(ctx, tx, entry, StatusCompleted); err != nil {
			return err
		}

		return tx.Commit()
	}()

	if err != nil {
		logger.Error("Handler failed, archiving entry as failed", "error", err)
		s.failEntry(ctx, entry, err)
		return
	}

	logger.Info("Entry resolved", "status", StatusCompleted)
}

// failEntry releases the entry's locks and archives it as failed. If even
// this transaction fails the entry stays in processing and the stuck sweep
// will eventually return it for another attempt.
func (s *Scheduler) failEntry(ctx context.Context, entry *Entry, cause error) {
	logger := s.logger.With("component", "queue_scheduler", "operation", "fail_entry", "entry_id", entry.ID, "cause", cause)

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		logger.Error("Failed to begin failure transaction", "error", err)
		return
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.locks.ReleaseLocks(ctx, tx, entry.ID, nil); err != nil {
		logger.Error("Failed to release locks", "error", err)
		return
	}

	if err := s.repo.ArchiveAndDelete(ctx, tx, entry, StatusFailed); err != nil {
		logger.Error("Failed to archive failed entry", "error", err)
		return
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit failure transaction", "error", err)
	}
}
