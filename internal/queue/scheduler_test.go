package queue_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starbase-server/internal/queue"
	"starbase-server/internal/shared/config"
	"starbase-server/internal/shared/database"
	apperrors "starbase-server/internal/shared/errors"
	"starbase-server/internal/spacecraft"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func queueConfig() config.QueueConfig {
	return config.QueueConfig{
		PollInterval:     time.Second,
		StuckTimeout:     5 * time.Minute,
		ClaimBatchSize:   10,
		InstantPerSecond: 1,
		InstantBurst:     1,
	}
}

type fakeTxSource struct{}

func (f *fakeTxSource) BeginTxContext(ctx context.Context) (*database.Tx, error) {
	return &database.Tx{}, nil
}

type archivedRow struct {
	entry  queue.Entry
	status queue.Status
}

// fakeQueueStore mirrors the repository's claim semantics: an entry is
// handed out once per claim, and archiving removes it from the live table.
type fakeQueueStore struct {
	mu      sync.Mutex
	live    map[int64]queue.Entry
	archive []archivedRow
}

func newFakeQueueStore(entries ...queue.Entry) *fakeQueueStore {
	s := &fakeQueueStore{live: make(map[int64]queue.Entry)}
	for _, e := range entries {
		s.live[e.ID] = e
	}
	return s
}

func (s *fakeQueueStore) ClaimDue(ctx context.Context, limit int) ([]queue.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []queue.Entry
	for id, e := range s.live {
		if len(claimed) >= limit {
			break
		}
		if e.Status != queue.StatusPending || e.EndTime.After(time.Now()) {
			continue
		}
		e.Status = queue.StatusProcessing
		e.UpdatedAt = time.Now()
		s.live[id] = e
		claimed = append(claimed, e)
	}
	return claimed, nil
}

func (s *fakeQueueStore) ClaimDueForUser(ctx context.Context, userID int) ([]queue.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []queue.Entry
	for id, e := range s.live {
		if e.UserID != userID || e.Status != queue.StatusPending || e.EndTime.After(time.Now()) {
			continue
		}
		e.Status = queue.StatusProcessing
		e.UpdatedAt = time.Now()
		s.live[id] = e
		claimed = append(claimed, e)
	}
	return claimed, nil
}

func (s *fakeQueueStore) ResetStuck(ctx context.Context, timeout time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reset := 0
	for id, e := range s.live {
		if e.Status != queue.StatusProcessing || time.Since(e.UpdatedAt) < timeout {
			continue
		}
		e.Status = queue.StatusPending
		s.live[id] = e
		reset++
	}
	return reset, nil
}

func (s *fakeQueueStore) ArchiveAndDelete(ctx context.Context, tx *database.Tx, entry *queue.Entry, finalStatus queue.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[entry.ID]; !ok {
		return fmt.Errorf("entry %d not in live queue", entry.ID)
	}
	delete(s.live, entry.ID)
	s.archive = append(s.archive, archivedRow{entry: *entry, status: finalStatus})
	return nil
}

type fakeLockStore struct {
	mu       sync.Mutex
	reserved map[int64]spacecraft.Manifest
	released map[int64]spacecraft.Manifest
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{
		reserved: make(map[int64]spacecraft.Manifest),
		released: make(map[int64]spacecraft.Manifest),
	}
}

func (f *fakeLockStore) ReserveForAction(ctx context.Context, tx *database.Tx, userID int, actionID int64, manifest spacecraft.Manifest) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserved[actionID] = manifest
	return uuid.New(), nil
}

func (f *fakeLockStore) ReleaseLocks(ctx context.Context, tx *database.Tx, actionID int64, survivors spacecraft.Manifest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[actionID] = survivors
	return nil
}

type stubHandler struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (h *stubHandler) Handle(ctx context.Context, tx *database.Tx, entry *queue.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return h.err
}

func dueEntry(id int64, userID int, actionType queue.ActionType) queue.Entry {
	now := time.Now()
	return queue.Entry{
		ID:        id,
		UserID:    userID,
		Type:      actionType,
		StartTime: now.Add(-2 * time.Minute),
		EndTime:   now.Add(-time.Minute),
		Status:    queue.StatusPending,
		UpdatedAt: now.Add(-time.Minute),
	}
}

func newTestScheduler(store *fakeQueueStore, locks *fakeLockStore, registry queue.Registry) *queue.Scheduler {
	return queue.NewScheduler(&fakeTxSource{}, store, locks, registry, queueConfig(), quietLogger())
}

func TestProcessDueNowResolvesEachEntryOnce(t *testing.T) {
	store := newFakeQueueStore(dueEntry(1, 7, queue.ActionMining))
	locks := newFakeLockStore()
	handler := &stubHandler{}
	scheduler := newTestScheduler(store, locks, queue.Registry{queue.ActionMining: handler})

	const passes = 8
	totals := make(chan int, passes)
	var wg sync.WaitGroup
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := scheduler.ProcessDueNow(context.Background())
			assert.NoError(t, err)
			totals <- n
		}()
	}
	wg.Wait()
	close(totals)

	resolved := 0
	for n := range totals {
		resolved += n
	}

	assert.Equal(t, 1, resolved, "concurrent passes must resolve the entry exactly once")
	assert.Equal(t, 1, handler.calls)
	require.Len(t, store.archive, 1)
	assert.Equal(t, queue.StatusCompleted, store.archive[0].status)
	assert.Empty(t, store.live, "a terminal entry must leave the live queue")
}

func TestProcessDueNowSkipsFutureEntries(t *testing.T) {
	entry := dueEntry(2, 7, queue.ActionMining)
	entry.EndTime = time.Now().Add(time.Hour)
	store := newFakeQueueStore(entry)
	handler := &stubHandler{}
	scheduler := newTestScheduler(store, newFakeLockStore(), queue.Registry{queue.ActionMining: handler})

	n, err := scheduler.ProcessDueNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, handler.calls)
	assert.Len(t, store.live, 1)
}

func TestHandlerErrorArchivesFailedAndReleasesLocks(t *testing.T) {
	store := newFakeQueueStore(dueEntry(4, 2, queue.ActionCombat))
	locks := newFakeLockStore()
	handler := &stubHandler{err: fmt.Errorf("defender station gone")}
	scheduler := newTestScheduler(store, locks, queue.Registry{queue.ActionCombat: handler})

	n, err := scheduler.ProcessDueNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.archive, 1)
	assert.Equal(t, queue.StatusFailed, store.archive[0].status)
	assert.Empty(t, store.live)

	survivors, ok := locks.released[4]
	require.True(t, ok, "a failed entry must get its locks back")
	assert.Nil(t, survivors, "a failure releases the full manifest")
}

func TestUnregisteredActionTypeFailsEntry(t *testing.T) {
	store := newFakeQueueStore(dueEntry(5, 2, queue.ActionProduce))
	locks := newFakeLockStore()
	scheduler := newTestScheduler(store, locks, queue.Registry{})

	_, err := scheduler.ProcessDueNow(context.Background())

	require.NoError(t, err)
	require.Len(t, store.archive, 1)
	assert.Equal(t, queue.StatusFailed, store.archive[0].status)
	_, released := locks.released[5]
	assert.True(t, released)
}

func TestStuckEntryRecoveredBySweep(t *testing.T) {
	entry := dueEntry(9, 3, queue.ActionMining)
	entry.Status = queue.StatusProcessing
	entry.UpdatedAt = time.Now().Add(-time.Hour)
	store := newFakeQueueStore(entry)
	handler := &stubHandler{}
	scheduler := newTestScheduler(store, newFakeLockStore(), queue.Registry{queue.ActionMining: handler})

	n, err := scheduler.ProcessDueNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a stale claim must not be claimable before the sweep")

	swept, err := scheduler.SweepStuck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	n, err = scheduler.ProcessDueNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, handler.calls)
	require.Len(t, store.archive, 1)
	assert.Equal(t, queue.StatusCompleted, store.archive[0].status)
}

func TestSweepLeavesFreshClaimsAlone(t *testing.T) {
	entry := dueEntry(10, 3, queue.ActionMining)
	entry.Status = queue.StatusProcessing
	entry.UpdatedAt = time.Now()
	store := newFakeQueueStore(entry)
	scheduler := newTestScheduler(store, newFakeLockStore(), queue.Registry{})

	swept, err := scheduler.SweepStuck(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestProcessUserInstantRateLimited(t *testing.T) {
	store := newFakeQueueStore()
	scheduler := newTestScheduler(store, newFakeLockStore(), queue.Registry{})

	_, err := scheduler.ProcessUserInstant(context.Background(), 42)
	require.NoError(t, err)

	_, err = scheduler.ProcessUserInstant(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	_, err = scheduler.ProcessUserInstant(context.Background(), 43)
	assert.NoError(t, err, "the limit is per user")
}

func TestProcessUserInstantResolvesOwnEntriesOnly(t *testing.T) {
	store := newFakeQueueStore(
		dueEntry(11, 5, queue.ActionMining),
		dueEntry(12, 6, queue.ActionMining),
	)
	handler := &stubHandler{}
	scheduler := newTestScheduler(store, newFakeLockStore(), queue.Registry{queue.ActionMining: handler})

	n, err := scheduler.ProcessUserInstant(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.archive, 1)
	assert.Equal(t, int64(11), store.archive[0].entry.ID)
	assert.Contains(t, store.live, int64(12))
}
