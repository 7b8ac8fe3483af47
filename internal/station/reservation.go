package station

import (
	"context"
	"log/slog"
	"math/rand"

	"starbase-server/internal/shared/config"
	apperrors "starbase-server/internal/shared/errors"
	"starbase-server/internal/spatial"
	"starbase-server/internal/universe"
)

// Store is the persistence surface region reservation needs.
type Store interface {
	GetStationPoints(ctx context.Context) ([]spatial.Point, error)
	GetRegionPoints(ctx context.Context) ([]spatial.Point, error)
	CountStations(ctx context.Context) (int, error)
	CountUnusedRegions(ctx context.Context) (int, error)
	CreateRegion(ctx context.Context, region Region) (int64, error)
	AssignRegionToUser(ctx context.Context, userID int, name string) (*Station, error)
}

// AsteroidSource provides asteroid locations for region collision checks.
type AsteroidSource interface {
	GetAsteroidPoints(ctx context.Context) ([]universe.AsteroidPoint, error)
	GetHighValueAsteroidPoints(ctx context.Context) ([]spatial.Point, error)
}

// Grower is the slice of the universe generator used for on-demand growth
// when the region pool runs dry.
type Grower interface {
	Generate(ctx context.Context, count int) (universe.Result, error)
	GenerateStrategicLowValue(ctx context.Context, station spatial.Point) (universe.Result, error)
	Invalidate()
}

// ReservationService maintains a standing pool of pre-validated station
// regions so assigning a new player a home location is O(1) amortized
// instead of running full rejection sampling during signup.
type ReservationService struct {
	cfg       config.UniverseConfig
	store     Store
	asteroids AsteroidSource
	generator Grower
	validator *spatial.Validator
	rng       *rand.Rand
	logger    *slog.Logger
}

func NewReservationService(cfg config.UniverseConfig, store Store, asteroids AsteroidSource, generator Grower, rng *rand.Rand, logger *slog.Logger) *ReservationService {
	logger.Debug("Initializing region reservation service")

	return &ReservationService{
		cfg:       cfg,
		store:     store,
		asteroids: asteroids,
		generator: generator,
		validator: spatial.NewValidator(),
		rng:       rng,
		logger:    logger,
	}
}

// ReserveRegions rejection-samples count new region centers against the
// existing region pool, stations, asteroids and high-value deposits. Each
// region is persisted as soon as it is found, so a partial run still leaves
// usable inventory behind.
func (s *ReservationService) ReserveRegions(ctx context.Context, count int) error {
	logger := s.logger.With("component", "region_reservation", "operation", "reserve_regions", "count", count)
	logger.Info("Reserving station regions")

	regionIndex, stationIndex, asteroidIndex, highValueIndex, err := s.buildIndexes(ctx)
	if err != nil {
		return err
	}

	// Two reserved-but-unused regions must also keep their distance from
	// each other, so the region pool index participates like stations do.
	constraints := []spatial.Constraint{
		{Name: "region_distance", Index: regionIndex, MinDistance: s.cfg.StationDistance},
		{Name: "station_distance", Index: stationIndex, MinDistance: s.cfg.StationDistance},
		{Name: "asteroid_distance", Index: asteroidIndex, MinDistance: s.cfg.StationInnerRadius},
		{Name: "high_value_distance", Index: highValueIndex, MinDistance: s.cfg.StationOuterRadius},
	}

	area := spatial.GlobalBounds(s.cfg.Size)

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return apperrors.WrapInternal("region reservation cancelled", err)
		}

		point, attempts, err := s.placeRegion(area, constraints)
		if err != nil {
			logger.Error("Region placement exhausted", "reserved", i, "requested", count, "attempts", attempts)
			return err
		}

		region := Region{
			X:              point.X,
			Y:              point.Y,
			StationRadius:  s.cfg.StationDistance,
			AsteroidRadius: s.cfg.StationInnerRadius,
		}
		if _, err := s.store.CreateRegion(ctx, region); err != nil {
			return err
		}
		regionIndex.Insert(point, 0)
	}

	s.generator.Invalidate()
	logger.Info("Station regions reserved", "count", count)
	return nil
}

func (s *ReservationService) placeRegion(area spatial.Bounds, constraints []spatial.Constraint) (spatial.Point, int, error) {
	sampler := spatial.NewRegionalSampler(area, s.cfg.StationDistance)

	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		var candidate spatial.Point
		if attempt < s.cfg.RegionalThreshold {
			candidate = area.Uniform(s.rng)
		} else {
			candidate = sampler.Sample(s.rng)
		}

		if !area.Contains(candidate) {
			sampler.Record(candidate)
			continue
		}

		if s.validator.IsValid(candidate, constraints) {
			return candidate, attempt + 1, nil
		}
		sampler.Record(candidate)
	}

	return spatial.Point{}, s.cfg.MaxAttempts, apperrors.Exhaustedf(
		"no legal region placement found in %d attempts, universe is near saturation", s.cfg.MaxAttempts)
}

func (s *ReservationService) buildIndexes(ctx context.Context) (regionIndex, stationIndex, asteroidIndex, highValueIndex *spatial.Index, err error) {
	cellSize := s.cfg.StationDistance
	if s.cfg.StationOuterRadius > cellSize {
		cellSize = s.cfg.StationOuterRadius
	}

	regionIndex = spatial.NewIndex(s.cfg.Size, cellSize)
	stationIndex = spatial.NewIndex(s.cfg.Size, cellSize)
	asteroidIndex = spatial.NewIndex(s.cfg.Size, cellSize)
	highValueIndex = spatial.NewIndex(s.cfg.Size, cellSize)

	regions, err := s.store.GetRegionPoints(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	for _, p := range regions {
		regionIndex.Insert(p, 0)
	}

	stations, err := s.store.GetStationPoints(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	for _, p := range stations {
		stationIndex.Insert(p, 0)
	}

	asteroids, err := s.asteroids.GetAsteroidPoints(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	for _, a := range asteroids {
		asteroidIndex.Insert(spatial.Point{X: a.X, Y: a.Y}, a.ID)
	}

	highValue, err := s.asteroids.GetHighValueAsteroidPoints(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	for _, p := range highValue {
		highValueIndex.Insert(p, 0)
	}

	return regionIndex, stationIndex, asteroidIndex, highValueIndex, nil
}

// AssignRegion consumes one unused region for a new player and creates their
// station at its coordinates. An empty pool triggers one round of automatic
// remediation: grow the universe proportionally to the player count, reserve
// a fresh batch of regions, then retry once. A second miss is a hard
// provisioning failure, not a retryable transient.
func (s *ReservationService) AssignRegion(ctx context.Context, userID int, stationName string) (*Station, error) {
	logger := s.logger.With("component", "region_reservation", "operation", "assign_region", "user_id", userID)
	logger.Debug("Assigning station region")

	assigned, err := s.store.AssignRegionToUser(ctx, userID, stationName)
	if err != nil {
		return nil, err
	}

	if assigned == nil {
		logger.Warn("Region pool exhausted, growing universe")

		players, err := s.store.CountStations(ctx)
		if err != nil {
			return nil, err
		}

		growCount := s.cfg.AsteroidsPerPlayer * (players + 1)
		if _, err := s.generator.Generate(ctx, growCount); err != nil {
			return nil, apperrors.WrapProvisioning("failed to grow universe for new player", err)
		}

		if err := s.ReserveRegions(ctx, s.cfg.RegionPoolSize); err != nil {
			return nil, apperrors.WrapProvisioning("failed to reserve regions for new player", err)
		}

		assigned, err = s.store.AssignRegionToUser(ctx, userID, stationName)
		if err != nil {
			return nil, err
		}
		if assigned == nil {
			return nil, apperrors.Provisioningf("region pool exhausted after regeneration, universe must grow")
		}
	}

	home := spatial.Point{X: assigned.X, Y: assigned.Y}
	if _, err := s.generator.GenerateStrategicLowValue(ctx, home); err != nil {
		// The station exists either way; a thin starting field is
		// recoverable by the next scan.
		logger.Error("Failed to seed strategic asteroids near new station", "error", err, "station_id", assigned.ID)
	}
	s.generator.Invalidate()

	logger.Info("Station region assigned", "station_id", assigned.ID, "x", assigned.X, "y", assigned.Y)
	return assigned, nil
}
