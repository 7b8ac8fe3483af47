package actions_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starbase-server/internal/actions"
	"starbase-server/internal/player"
	"starbase-server/internal/queue"
	"starbase-server/internal/resources"
	"starbase-server/internal/shared/database"
	apperrors "starbase-server/internal/shared/errors"
	"starbase-server/internal/spacecraft"
	"starbase-server/internal/universe"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAsteroids struct {
	asteroid *universe.Asteroid
	updates  map[int64]int64
	deleted  []int64
}

func (f *fakeAsteroids) GetAsteroidForUpdate(_ context.Context, _ *database.Tx, id int64) (*universe.Asteroid, error) {
	if f.asteroid == nil || f.asteroid.ID != id {
		return nil, nil
	}
	return f.asteroid, nil
}

func (f *fakeAsteroids) UpdateDepositAmount(_ context.Context, _ *database.Tx, depositID int64, amount int64) error {
	if f.updates == nil {
		f.updates = map[int64]int64{}
	}
	f.updates[depositID] = amount
	return nil
}

func (f *fakeAsteroids) DeleteAsteroid(_ context.Context, _ *database.Tx, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeLocks struct {
	released  []int64
	survivors []spacecraft.Manifest
}

func (f *fakeLocks) ReleaseLocks(_ context.Context, _ *database.Tx, actionID int64, survivors spacecraft.Manifest) error {
	f.released = append(f.released, actionID)
	f.survivors = append(f.survivors, survivors)
	return nil
}

type fakeAttrs struct {
	attrs map[int]player.Attributes
}

func (f *fakeAttrs) GetAttributes(_ context.Context, userID int) (player.Attributes, error) {
	if a, ok := f.attrs[userID]; ok {
		return a, nil
	}
	return player.BaseAttributes(), nil
}

// fakeLedgerStore mirrors the SQL store's semantics: credits clamp to
// capacity, debits are conditional on the current balance.
type fakeLedgerStore struct {
	balances  map[int]map[resources.Type]int64
	debitFail map[resources.Type]bool
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{balances: map[int]map[resources.Type]int64{}}
}

func (f *fakeLedgerStore) user(userID int) map[resources.Type]int64 {
	if f.balances[userID] == nil {
		f.balances[userID] = map[resources.Type]int64{}
	}
	return f.balances[userID]
}

func (f *fakeLedgerStore) GetBalance(_ context.Context, userID int, resource resources.Type) (int64, error) {
	return f.user(userID)[resource], nil
}

func (f *fakeLedgerStore) GetBalances(_ context.Context, userID int) ([]resources.Balance, error) {
	var out []resources.Balance
	for r, amount := range f.user(userID) {
		if amount > 0 {
			out = append(out, resources.Balance{UserID: userID, Resource: r, Amount: amount})
		}
	}
	return out, nil
}

func (f *fakeLedgerStore) Credit(_ context.Context, _ *database.Tx, userID int, resource resources.Type, amount, capacity int64) error {
	balances := f.user(userID)
	credited := amount
	if balances[resource]+credited > capacity {
		credited = capacity - balances[resource]
	}
	if credited > 0 {
		balances[resource] += credited
	}
	return nil
}

func (f *fakeLedgerStore) Debit(_ context.Context, _ *database.Tx, userID int, resource resources.Type, amount int64) (bool, error) {
	if f.debitFail[resource] {
		return false, nil
	}
	balances := f.user(userID)
	if balances[resource] < amount {
		return false, nil
	}
	balances[resource] -= amount
	return true, nil
}

func miningEntry(t *testing.T, id, asteroidID int64, userID int, manifest spacecraft.Manifest) *queue.Entry {
	t.Helper()

	detail, err := queue.EncodeDetail(queue.MiningDetail{Manifest: manifest})
	require.NoError(t, err)

	return &queue.Entry{ID: id, UserID: userID, Type: queue.ActionMining, TargetID: asteroidID, Detail: detail}
}

func TestMiningProportionalExtraction(t *testing.T) {
	// Arrange: 150 units on board, 60 cargo, no miners aboard so the
	// fleet only extracts half of what it can load.
	asteroids := &fakeAsteroids{asteroid: &universe.Asteroid{
		ID: 5,
		Deposits: []universe.Deposit{
			{ID: 1, Resource: resources.Carbon, Amount: 100},
			{ID: 2, Resource: resources.Titanium, Amount: 50},
		},
	}}
	locks := &fakeLocks{}
	store := newFakeLedgerStore()
	ledger := resources.NewLedger(store, quietLogger())
	handler := actions.NewMiningHandler(asteroids, locks, &fakeAttrs{}, ledger, quietLogger())

	entry := miningEntry(t, 11, 5, 1, spacecraft.Manifest{spacecraft.Merlin: 6})

	// Act
	err := handler.Handle(context.Background(), nil, entry)

	// Assert: budget floor(60 * 0.5) = 30, split 20/10 by deposit share.
	require.NoError(t, err)
	assert.Equal(t, int64(20), store.user(1)[resources.Carbon])
	assert.Equal(t, int64(10), store.user(1)[resources.Titanium])
	assert.Equal(t, int64(80), asteroids.updates[1])
	assert.Equal(t, int64(40), asteroids.updates[2])
	assert.Empty(t, asteroids.deleted)

	require.Len(t, locks.released, 1)
	assert.Equal(t, int64(11), locks.released[0])
	assert.Nil(t, locks.survivors[0], "full fleet returns from mining")
}

func TestMiningMinerBonusAndCapacityClamp(t *testing.T) {
	// Five miners push the multiplier to the 1.0 cap; the player's
	// near-full storage clamps what actually lands.
	asteroids := &fakeAsteroids{asteroid: &universe.Asteroid{
		ID:       7,
		Deposits: []universe.Deposit{{ID: 1, Resource: resources.Carbon, Amount: 1000}},
	}}
	store := newFakeLedgerStore()
	store.user(2)[resources.Carbon] = 9900
	ledger := resources.NewLedger(store, quietLogger())
	handler := actions.NewMiningHandler(asteroids, &fakeLocks{}, &fakeAttrs{}, ledger, quietLogger())

	entry := miningEntry(t, 12, 7, 2, spacecraft.Manifest{spacecraft.Nomad: 5})

	err := handler.Handle(context.Background(), nil, entry)

	// Budget is the full 750 cargo, but only 100 units of headroom remain.
	require.NoError(t, err)
	assert.Equal(t, int64(10000), store.user(2)[resources.Carbon])
	assert.Equal(t, int64(250), asteroids.updates[1], "the asteroid still loses the full extraction")
}

func TestMiningDepletesAndRemovesAsteroid(t *testing.T) {
	asteroids := &fakeAsteroids{asteroid: &universe.Asteroid{
		ID:       3,
		Deposits: []universe.Deposit{{ID: 1, Resource: resources.Carbon, Amount: 40}},
	}}
	store := newFakeLedgerStore()
	handler := actions.NewMiningHandler(asteroids, &fakeLocks{}, &fakeAttrs{}, resources.NewLedger(store, quietLogger()), quietLogger())

	// Two Hercules: 1200 cargo, multiplier capped well above the deposit.
	entry := miningEntry(t, 13, 3, 1, spacecraft.Manifest{spacecraft.Hercules: 2, spacecraft.Nomad: 3})

	err := handler.Handle(context.Background(), nil, entry)

	require.NoError(t, err)
	assert.Equal(t, int64(40), store.user(1)[resources.Carbon])
	assert.Equal(t, []int64{3}, asteroids.deleted)
}

func TestMiningAsteroidGone(t *testing.T) {
	handler := actions.NewMiningHandler(&fakeAsteroids{}, &fakeLocks{}, &fakeAttrs{},
		resources.NewLedger(newFakeLedgerStore(), quietLogger()), quietLogger())

	entry := miningEntry(t, 14, 99, 1, spacecraft.Manifest{spacecraft.Comet: 1})

	err := handler.Handle(context.Background(), nil, entry)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestMiningDepletedAsteroid(t *testing.T) {
	asteroids := &fakeAsteroids{asteroid: &universe.Asteroid{
		ID:       4,
		Deposits: []universe.Deposit{{ID: 1, Resource: resources.Carbon, Amount: 0}},
	}}
	handler := actions.NewMiningHandler(asteroids, &fakeLocks{}, &fakeAttrs{},
		resources.NewLedger(newFakeLedgerStore(), quietLogger()), quietLogger())

	entry := miningEntry(t, 15, 4, 1, spacecraft.Manifest{spacecraft.Comet: 1})

	err := handler.Handle(context.Background(), nil, entry)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
