package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starbase-server/internal/building"
	"starbase-server/internal/notify"
	"starbase-server/internal/player"
	"starbase-server/internal/queue"
	"starbase-server/internal/resources"
	"starbase-server/internal/shared/database"
	apperrors "starbase-server/internal/shared/errors"
	"starbase-server/internal/spacecraft"
	"starbase-server/internal/station"
	"starbase-server/internal/universe"
)

type fakeEntryStore struct {
	nextID  int64
	created []*queue.Entry
	cancel  map[int64]*queue.Entry
	archive []archivedRow
}

func (s *fakeEntryStore) CreateEntry(ctx context.Context, tx *database.Tx, userID int, actionType queue.ActionType, targetID int64, endTime time.Time, detail json.RawMessage) (*queue.Entry, error) {
	s.nextID++
	entry := &queue.Entry{
		ID:        s.nextID,
		UserID:    userID,
		Type:      actionType,
		TargetID:  targetID,
		StartTime: time.Now(),
		EndTime:   endTime,
		Status:    queue.StatusPending,
		Detail:    detail,
	}
	s.created = append(s.created, entry)
	return entry, nil
}

func (s *fakeEntryStore) CancelEntry(ctx context.Context, tx *database.Tx, id int64, userID int) (*queue.Entry, error) {
	if e, ok := s.cancel[id]; ok && e.UserID == userID {
		return e, nil
	}
	return nil, nil
}

func (s *fakeEntryStore) ArchiveAndDelete(ctx context.Context, tx *database.Tx, entry *queue.Entry, finalStatus queue.Status) error {
	s.archive = append(s.archive, archivedRow{entry: *entry, status: finalStatus})
	return nil
}

type fakeDebitStore struct {
	err     error
	debited []map[resources.Type]int64
}

func (f *fakeDebitStore) DebitAll(ctx context.Context, tx *database.Tx, userID int, costs map[resources.Type]int64) error {
	if f.err != nil {
		return f.err
	}
	f.debited = append(f.debited, costs)
	return nil
}

type fakeAsteroidSource struct {
	asteroid *universe.Asteroid
}

func (f *fakeAsteroidSource) GetAsteroid(ctx context.Context, id int64) (*universe.Asteroid, error) {
	if f.asteroid == nil || f.asteroid.ID != id {
		return nil, nil
	}
	return f.asteroid, nil
}

type fakeStationSource struct {
	stations map[int]*station.Station
}

func (f *fakeStationSource) GetStationByUserID(ctx context.Context, userID int) (*station.Station, error) {
	return f.stations[userID], nil
}

type fakeUserSource struct {
	players map[int]*player.Player
}

func (f *fakeUserSource) FindUser(ctx context.Context, userID int) (*player.Player, error) {
	return f.players[userID], nil
}

type fakeBuildingSource struct {
	levels map[building.Type]int
}

func (f *fakeBuildingSource) GetLevel(ctx context.Context, tx *database.Tx, userID int, buildingType building.Type) (int, error) {
	return f.levels[buildingType], nil
}

type fakeAttrSource struct{}

func (f *fakeAttrSource) GetAttributes(ctx context.Context, userID int) (player.Attributes, error) {
	return player.BaseAttributes(), nil
}

type fakeNotifier struct {
	attacks []notify.AttackSummary
}

func (f *fakeNotifier) OnAttackQueued(ctx context.Context, summary notify.AttackSummary) {
	f.attacks = append(f.attacks, summary)
}

type serviceFixture struct {
	entries   *fakeEntryStore
	asteroids *fakeAsteroidSource
	stations  *fakeStationSource
	users     *fakeUserSource
	buildings *fakeBuildingSource
	locks     *fakeLockStore
	debits    *fakeDebitStore
	notifier  *fakeNotifier
	svc       *queue.Service
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		entries:   &fakeEntryStore{cancel: make(map[int64]*queue.Entry)},
		asteroids: &fakeAsteroidSource{},
		stations:  &fakeStationSource{stations: make(map[int]*station.Station)},
		users:     &fakeUserSource{players: make(map[int]*player.Player)},
		buildings: &fakeBuildingSource{levels: make(map[building.Type]int)},
		locks:     newFakeLockStore(),
		debits:    &fakeDebitStore{},
		notifier:  &fakeNotifier{},
	}
	f.svc = queue.NewService(
		&fakeTxSource{},
		f.entries,
		f.asteroids,
		f.stations,
		f.users,
		f.buildings,
		&fakeAttrSource{},
		f.locks,
		f.debits,
		f.notifier,
		quietLogger(),
	)
	return f
}

func richAsteroid(id int64, x, y int) *universe.Asteroid {
	return &universe.Asteroid{
		ID:   id,
		Name: "VX-404",
		Size: universe.SizeMedium,
		X:    x,
		Y:    y,
		Deposits: []universe.Deposit{
			{AsteroidID: id, Resource: resources.Carbon, Amount: 400},
			{AsteroidID: id, Resource: resources.Cobalt, Amount: 100},
		},
	}
}

func TestQueueMiningReservesFleet(t *testing.T) {
	f := newServiceFixture()
	f.asteroids.asteroid = richAsteroid(40, 600, 0)
	f.stations.stations[7] = &station.Station{ID: 1, UserID: 7, X: 0, Y: 0}
	manifest := spacecraft.Manifest{spacecraft.Merlin: 2}

	entry, err := f.svc.QueueMining(context.Background(), 7, 40, manifest)

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, queue.ActionMining, entry.Type)
	assert.Equal(t, int64(40), entry.TargetID)
	assert.True(t, entry.EndTime.After(time.Now()), "arrival must be in the future")
	assert.Equal(t, manifest, f.locks.reserved[entry.ID], "the committed fleet must be locked")

	var detail queue.MiningDetail
	require.NoError(t, entry.DecodeDetail(&detail))
	assert.Equal(t, manifest, detail.Manifest)
}

func TestQueueMiningRejections(t *testing.T) {
	manifest := spacecraft.Manifest{spacecraft.Merlin: 2}

	tests := []struct {
		name     string
		setup    func(f *serviceFixture)
		manifest spacecraft.Manifest
		errType  apperrors.ErrorType
	}{
		{
			name:     "no cargo capacity",
			setup:    func(f *serviceFixture) {},
			manifest: spacecraft.Manifest{},
			errType:  apperrors.ErrorTypeValidation,
		},
		{
			name:     "unknown asteroid",
			setup:    func(f *serviceFixture) {},
			manifest: manifest,
			errType:  apperrors.ErrorTypeNotFound,
		},
		{
			name: "depleted asteroid",
			setup: func(f *serviceFixture) {
				a := richAsteroid(40, 600, 0)
				a.Deposits = nil
				f.asteroids.asteroid = a
			},
			manifest: manifest,
			errType:  apperrors.ErrorTypeValidation,
		},
		{
			name: "no home station",
			setup: func(f *serviceFixture) {
				f.asteroids.asteroid = richAsteroid(40, 600, 0)
			},
			manifest: manifest,
			errType:  apperrors.ErrorTypeNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newServiceFixture()
			tc.setup(f)

			entry, err := f.svc.QueueMining(context.Background(), 7, 40, tc.manifest)

			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tc.errType))
			assert.Nil(t, entry)
			assert.Empty(t, f.entries.created, "a rejected action must not create an entry")
			assert.Empty(t, f.locks.reserved)
		})
	}
}

func TestQueueBuildingUpgradeDebitsUpgradeCost(t *testing.T) {
	f := newServiceFixture()
	f.buildings.levels[building.StorageDepot] = 1

	entry, err := f.svc.QueueBuildingUpgrade(context.Background(), 7, building.StorageDepot)

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, queue.ActionBuilding, entry.Type)

	require.Len(t, f.debits.debited, 1)
	assert.Equal(t, building.Specs[building.StorageDepot].CostAt(2), f.debits.debited[0])

	var detail queue.BuildingDetail
	require.NoError(t, entry.DecodeDetail(&detail))
	assert.Equal(t, string(building.StorageDepot), detail.BuildingType)
	assert.Equal(t, 2, detail.TargetLevel)
}

func TestQueueBuildingUpgradeUnaffordable(t *testing.T) {
	f := newServiceFixture()
	f.debits.err = apperrors.Validationf("insufficient Carbon balance for user 7")

	entry, err := f.svc.QueueBuildingUpgrade(context.Background(), 7, building.Shipyard)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Nil(t, entry)
	assert.Empty(t, f.entries.created, "an unaffordable upgrade must not create an entry")
}

func TestQueueBuildingUpgradeUnknownType(t *testing.T) {
	f := newServiceFixture()

	entry, err := f.svc.QueueBuildingUpgrade(context.Background(), 7, building.Type("Casino"))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Nil(t, entry)
}

func TestQueueProductionScalesCostByQuantity(t *testing.T) {
	f := newServiceFixture()

	entry, err := f.svc.QueueProduction(context.Background(), 7, spacecraft.Javelin, 3)

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, queue.ActionProduce, entry.Type)

	expected := make(map[resources.Type]int64)
	for resource, amount := range spacecraft.Specs[spacecraft.Javelin].Cost {
		expected[resource] = amount * 3
	}
	require.Len(t, f.debits.debited, 1)
	assert.Equal(t, expected, f.debits.debited[0])

	var detail queue.ProductionDetail
	require.NoError(t, entry.DecodeDetail(&detail))
	assert.Equal(t, "Javelin", detail.ShipType)
	assert.Equal(t, 3, detail.Quantity)
}

func TestQueueProductionRejections(t *testing.T) {
	f := newServiceFixture()

	entry, err := f.svc.QueueProduction(context.Background(), 7, spacecraft.Type("DeathStar"), 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Nil(t, entry)

	entry, err = f.svc.QueueProduction(context.Background(), 7, spacecraft.Javelin, 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Nil(t, entry)

	assert.Empty(t, f.debits.debited)
	assert.Empty(t, f.entries.created)
}

func TestQueueCombatNotifiesDefender(t *testing.T) {
	f := newServiceFixture()
	f.users.players[9] = &player.Player{ID: 9, Username: "rival"}
	f.stations.stations[7] = &station.Station{ID: 1, UserID: 7, X: 0, Y: 0}
	f.stations.stations[9] = &station.Station{ID: 2, UserID: 9, X: 300, Y: 400}
	manifest := spacecraft.Manifest{spacecraft.Javelin: 2}

	entry, err := f.svc.QueueCombat(context.Background(), 7, 9, manifest)

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, queue.ActionCombat, entry.Type)
	assert.Equal(t, int64(9), entry.TargetID)
	assert.Equal(t, manifest, f.locks.reserved[entry.ID])

	require.Len(t, f.notifier.attacks, 1)
	summary := f.notifier.attacks[0]
	assert.Equal(t, entry.ID, summary.ActionID)
	assert.Equal(t, 7, summary.AttackerID)
	assert.Equal(t, 9, summary.DefenderID)
	assert.True(t, summary.ArrivesAt.Equal(entry.EndTime))
}

func TestQueueCombatRejections(t *testing.T) {
	manifest := spacecraft.Manifest{spacecraft.Javelin: 2}

	tests := []struct {
		name       string
		setup      func(f *serviceFixture)
		defenderID int
		manifest   spacecraft.Manifest
		errType    apperrors.ErrorType
	}{
		{
			name:       "self attack",
			setup:      func(f *serviceFixture) {},
			defenderID: 7,
			manifest:   manifest,
			errType:    apperrors.ErrorTypeValidation,
		},
		{
			name:       "no combat power",
			setup:      func(f *serviceFixture) {},
			defenderID: 9,
			manifest:   spacecraft.Manifest{},
			errType:    apperrors.ErrorTypeValidation,
		},
		{
			name:       "unknown defender",
			setup:      func(f *serviceFixture) {},
			defenderID: 9,
			manifest:   manifest,
			errType:    apperrors.ErrorTypeNotFound,
		},
		{
			name: "defender without station",
			setup: func(f *serviceFixture) {
				f.users.players[9] = &player.Player{ID: 9}
				f.stations.stations[7] = &station.Station{ID: 1, UserID: 7}
			},
			defenderID: 9,
			manifest:   manifest,
			errType:    apperrors.ErrorTypeValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newServiceFixture()
			tc.setup(f)

			entry, err := f.svc.QueueCombat(context.Background(), 7, tc.defenderID, tc.manifest)

			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tc.errType))
			assert.Nil(t, entry)
			assert.Empty(t, f.notifier.attacks, "a rejected attack must not notify the defender")
		})
	}
}

func TestCancelReleasesLocksAndArchives(t *testing.T) {
	f := newServiceFixture()
	f.entries.cancel[77] = &queue.Entry{ID: 77, UserID: 7, Type: queue.ActionMining, Status: queue.StatusPending}

	err := f.svc.Cancel(context.Background(), 7, 77)

	require.NoError(t, err)
	survivors, ok := f.locks.released[77]
	require.True(t, ok)
	assert.Nil(t, survivors, "cancelling returns the full locked fleet")
	require.Len(t, f.entries.archive, 1)
	assert.Equal(t, queue.StatusCancelled, f.entries.archive[0].status)
}

func TestCancelClaimedEntryConflicts(t *testing.T) {
	f := newServiceFixture()

	err := f.svc.Cancel(context.Background(), 7, 77)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.Empty(t, f.locks.released)
	assert.Empty(t, f.entries.archive)
}
