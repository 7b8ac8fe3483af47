package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"starbase-server/internal/building"
	"starbase-server/internal/notify"
	"starbase-server/internal/player"
	"starbase-server/internal/resources"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/shared/errors"
	"starbase-server/internal/spacecraft"
	"starbase-server/internal/spatial"
	"starbase-server/internal/station"
	"starbase-server/internal/universe"
)

type AsteroidSource interface {
	GetAsteroid(ctx context.Context, id int64) (*universe.Asteroid, error)
}

type StationSource interface {
	GetStationByUserID(ctx context.Context, userID int) (*station.Station, error)
}

type UserSource interface {
	FindUser(ctx context.Context, userID int) (*player.Player, error)
}

type BuildingSource interface {
	GetLevel(ctx context.Context, tx *database.Tx, userID int, buildingType building.Type) (int, error)
}

type AttributeSource interface {
	GetAttributes(ctx context.Context, userID int) (player.Attributes, error)
}

type LockStore interface {
	ReserveForAction(ctx context.Context, tx *database.Tx, userID int, actionID int64, manifest spacecraft.Manifest) (uuid.UUID, error)
	ReleaseLocks(ctx context.Context, tx *database.Tx, actionID int64, survivors spacecraft.Manifest) error
}

type Notifier interface {
	OnAttackQueued(ctx context.Context, summary notify.AttackSummary)
}

// EntryStore is the slice of the queue repository the service writes through.
type EntryStore interface {
	CreateEntry(ctx context.Context, tx *database.Tx, userID int, actionType ActionType, targetID int64, endTime time.Time, detail json.RawMessage) (*Entry, error)
	CancelEntry(ctx context.Context, tx *database.Tx, id int64, userID int) (*Entry, error)
	ArchiveAndDelete(ctx context.Context, tx *database.Tx, entry *Entry, finalStatus Status) error
}

// DebitStore charges an action's resource cost inside the enqueue transaction.
type DebitStore interface {
	DebitAll(ctx context.Context, tx *database.Tx, userID int, costs map[resources.Type]int64) error
}

// Service owns queue-time validation: resource and spacecraft sufficiency
// are checked synchronously here, before an entry exists, so the scheduler
// never sees an action the player could not afford.
type Service struct {
	db        Transactor
	repo      EntryStore
	asteroids AsteroidSource
	stations  StationSource
	users     UserSource
	buildings BuildingSource
	attrs     AttributeSource
	locks     LockStore
	ledger    DebitStore
	notifier  Notifier
	logger    *slog.Logger
}

func NewService(
	db Transactor,
	repo EntryStore,
	asteroids AsteroidSource,
	stations StationSource,
	users UserSource,
	buildings BuildingSource,
	attrs AttributeSource,
	locks LockStore,
	ledger DebitStore,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	logger.Debug("Initializing queue service")

	return &Service{
		db:        db,
		repo:      repo,
		asteroids: asteroids,
		stations:  stations,
		users:     users,
		buildings: buildings,
		attrs:     attrs,
		locks:     locks,
		ledger:    ledger,
		notifier:  notifier,
		logger:    logger,
	}
}

// travelTime derives the one-way flight duration from distance and the
// fleet's slowest ship, with a one minute floor.
func travelTime(from, to spatial.Point, manifest spacecraft.Manifest) time.Duration {
	speed := manifest.SlowestSpeed()
	if speed <= 0 {
		speed = 1
	}
	seconds := spatial.Distance(from, to) / float64(speed)
	d := time.Duration(math.Ceil(seconds)) * time.Second
	if d < time.Minute {
		d = time.Minute
	}
	return d
}

// QueueMining validates and enqueues a mining expedition. The committed
// ships move into lock rows in the same transaction that creates the entry.
func (s *Service) QueueMining(ctx context.Context, userID int, asteroidID int64, manifest spacecraft.Manifest) (*Entry, error) {
	logger := s.logger.With("component", "queue_service", "operation", "queue_mining", "user_id", userID, "asteroid_id", asteroidID)

	if manifest.Cargo() <= 0 {
		return nil, errors.Validationf("mining fleet has no cargo capacity")
	}

	asteroid, err := s.asteroids.GetAsteroid(ctx, asteroidID)
	if err != nil {
		return nil, err
	}
	if asteroid == nil {
		return nil, errors.NotFoundf("asteroid %d not found", asteroidID)
	}
	if asteroid.TotalDeposits() <= 0 {
		return nil, errors.Validationf("asteroid %d is depleted", asteroidID)
	}

	home, err := s.stations.GetStationByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if home == nil {
		return nil, errors.NotFoundf("user %d has no station", userID)
	}

	endTime := time.Now().Add(travelTime(spatial.Point{X: home.X, Y: home.Y}, spatial.Point{X: asteroid.X, Y: asteroid.Y}, manifest))

	detail, err := EncodeDetail(MiningDetail{Manifest: manifest})
	if err != nil {
		return nil, err
	}

	entry, err := s.enqueueWithLocks(ctx, userID, ActionMining, asteroidID, endTime, detail, manifest)
	if err != nil {
		return nil, err
	}

	logger.Info("Mining action queued", "entry_id", entry.ID, "end_time", entry.EndTime)
	return entry, nil
}

// QueueBuildingUpgrade debits the upgrade cost and enqueues the level-up.
func (s *Service) QueueBuildingUpgrade(ctx context.Context, userID int, buildingType building.Type) (*Entry, error) {
	logger := s.logger.With("component", "queue_service", "operation", "queue_building_upgrade", "user_id", userID, "building_type", buildingType)

	spec, ok := building.Specs[buildingType]
	if !ok {
		return nil, errors.Validationf("unknown building type %q", buildingType)
	}

	level, err := s.buildings.GetLevel(ctx, nil, userID, buildingType)
	if err != nil {
		return nil, err
	}
	targetLevel := level + 1

	attrs, err := s.attrs.GetAttributes(ctx, userID)
	if err != nil {
		return nil, err
	}

	duration := spec.BuildTimeAt(targetLevel)
	if attrs.ResearchSpeed > 0 {
		duration = time.Duration(float64(duration) / attrs.ResearchSpeed)
	}
	endTime := time.Now().Add(duration)

	detail, err := EncodeDetail(BuildingDetail{BuildingType: string(buildingType), TargetLevel: targetLevel})
	if err != nil {
		return nil, err
	}

	entry, err := s.enqueueWithDebit(ctx, userID, ActionBuilding, 0, endTime, detail, spec.CostAt(targetLevel))
	if err != nil {
		return nil, err
	}

	logger.Info("Building upgrade queued", "entry_id", entry.ID, "target_level", targetLevel)
	return entry, nil
}

// QueueProduction debits the build cost and enqueues spacecraft production.
func (s *Service) QueueProduction(ctx context.Context, userID int, shipType spacecraft.Type, quantity int) (*Entry, error) {
	logger := s.logger.With("component", "queue_service", "operation", "queue_production", "user_id", userID, "ship_type", shipType, "quantity", quantity)

	spec, ok := spacecraft.Specs[shipType]
	if !ok {
		return nil, errors.Validationf("unknown spacecraft type %q", shipType)
	}
	if quantity <= 0 {
		return nil, errors.Validationf("production quantity must be positive")
	}

	attrs, err := s.attrs.GetAttributes(ctx, userID)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(int64(spec.BuildTime) * int64(quantity))
	if attrs.ProductionSpeed > 0 {
		duration = time.Duration(float64(duration) / attrs.ProductionSpeed)
	}
	endTime := time.Now().Add(duration)

	cost := make(map[resources.Type]int64, len(spec.Cost))
	for resource, amount := range spec.Cost {
		cost[resource] = amount * int64(quantity)
	}

	detail, err := EncodeDetail(ProductionDetail{ShipType: string(shipType), Quantity: quantity})
	if err != nil {
		return nil, err
	}

	entry, err := s.enqueueWithDebit(ctx, userID, ActionProduce, 0, endTime, detail, cost)
	if err != nil {
		return nil, err
	}

	logger.Info("Production queued", "entry_id", entry.ID, "end_time", entry.EndTime)
	return entry, nil
}

// QueueCombat validates and enqueues an attack, then notifies the defender.
func (s *Service) QueueCombat(ctx context.Context, attackerID, defenderID int, manifest spacecraft.Manifest) (*Entry, error) {
	logger := s.logger.With("component", "queue_service", "operation", "queue_combat", "attacker_id", attackerID, "defender_id", defenderID)

	if attackerID == defenderID {
		return nil, errors.Validationf("cannot attack yourself")
	}
	if manifest.Combat() <= 0 {
		return nil, errors.Validationf("attack fleet has no combat power")
	}

	defender, err := s.users.FindUser(ctx, defenderID)
	if err != nil {
		return nil, err
	}
	if defender == nil {
		return nil, errors.NotFoundf("defender %d not found", defenderID)
	}

	attackerStation, err := s.stations.GetStationByUserID(ctx, attackerID)
	if err != nil {
		return nil, err
	}
	if attackerStation == nil {
		return nil, errors.NotFoundf("user %d has no station", attackerID)
	}

	defenderStation, err := s.stations.GetStationByUserID(ctx, defenderID)
	if err != nil {
		return nil, err
	}
	if defenderStation == nil {
		return nil, errors.Validationf("defender %d has no station to attack", defenderID)
	}

	endTime := time.Now().Add(travelTime(
		spatial.Point{X: attackerStation.X, Y: attackerStation.Y},
		spatial.Point{X: defenderStation.X, Y: defenderStation.Y},
		manifest,
	))

	detail, err := EncodeDetail(CombatDetail{Manifest: manifest})
	if err != nil {
		return nil, err
	}

	entry, err := s.enqueueWithLocks(ctx, attackerID, ActionCombat, int64(defenderID), endTime, detail, manifest)
	if err != nil {
		return nil, err
	}

	s.notifier.OnAttackQueued(ctx, notify.AttackSummary{
		ActionID:   entry.ID,
		AttackerID: attackerID,
		DefenderID: defenderID,
		ArrivesAt:  entry.EndTime,
	})

	logger.Info("Combat action queued", "entry_id", entry.ID, "arrives_at", entry.EndTime)
	return entry, nil
}

// Cancel transitions an unclaimed entry to cancelled, releases its locks and
// archives it, all in one transaction. An entry already claimed into
// processing cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, userID int, entryID int64) error {
	logger := s.logger.With("component", "queue_service", "operation", "cancel", "user_id", userID, "entry_id", entryID)

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	entry, err := s.repo.CancelEntry(ctx, tx, entryID, userID)
	if err != nil {
		return err
	}
	if entry == nil {
		return errors.Conflictf("entry %d cannot be cancelled", entryID)
	}

	if err := s.locks.ReleaseLocks(ctx, tx, entryID, nil); err != nil {
		return err
	}

	if err := s.repo.ArchiveAndDelete(ctx, tx, entry, StatusCancelled); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logger.Info("Entry cancelled and archived")
	return nil
}

// enqueueWithLocks creates the entry and reserves the manifest atomically.
func (s *Service) enqueueWithLocks(ctx context.Context, userID int, actionType ActionType, targetID int64, endTime time.Time, detail []byte, manifest spacecraft.Manifest) (*Entry, error) {
	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	entry, err := s.repo.CreateEntry(ctx, tx, userID, actionType, targetID, endTime, detail)
	if err != nil {
		return nil, err
	}

	if _, err := s.locks.ReserveForAction(ctx, tx, userID, entry.ID, manifest); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// enqueueWithDebit debits the cost and creates the entry atomically. The
// debit runs first so an unaffordable action never stages an entry row.
func (s *Service) enqueueWithDebit(ctx context.Context, userID int, actionType ActionType, targetID int64, endTime time.Time, detail []byte, cost map[resources.Type]int64) (*Entry, error) {
	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.ledger.DebitAll(ctx, tx, userID, cost); err != nil {
		return nil, err
	}

	entry, err := s.repo.CreateEntry(ctx, tx, userID, actionType, targetID, endTime, detail)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}
