package universe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"starbase-server/internal/resources"
	"starbase-server/internal/shared/config"
	"starbase-server/internal/shared/database"
	apperrors "starbase-server/internal/shared/errors"
	"starbase-server/internal/spatial"
)

// AsteroidStore is the persistence surface the generator writes through.
type AsteroidStore interface {
	CreateAsteroidsBatch(ctx context.Context, asteroids []Asteroid) error
	GetAsteroidPoints(ctx context.Context) ([]AsteroidPoint, error)
}

// PlacementSource provides the already-placed entities asteroids must keep
// their distance from.
type PlacementSource interface {
	GetStationPoints(ctx context.Context) ([]spatial.Point, error)
	GetRegionPoints(ctx context.Context) ([]spatial.Point, error)
}

type Result struct {
	Requested int
	Generated int
	Failed    int
}

// Generator produces asteroids with procedurally rolled size, value and
// resource composition, placed by rejection sampling under the configured
// distance constraints. It owns its spatial indexes: whoever mutates the
// backing entity set must call Invalidate so the next run rebuilds them.
type Generator struct {
	cfg        config.UniverseConfig
	store      AsteroidStore
	placements PlacementSource
	validator  *spatial.Validator
	rng        *rand.Rand
	logger     *slog.Logger

	asteroidIndex *spatial.Index
	extremeIndex  *spatial.Index
	stationIndex  *spatial.Index
	regionIndex   *spatial.Index
	indexed       bool
}

func NewGenerator(cfg config.UniverseConfig, store AsteroidStore, placements PlacementSource, rng *rand.Rand, logger *slog.Logger) *Generator {
	logger.Debug("Initializing universe generator")

	return &Generator{
		cfg:        cfg,
		store:      store,
		placements: placements,
		validator:  spatial.NewValidator(),
		rng:        rng,
		logger:     logger,
	}
}

// Invalidate forces an index rebuild on the next generation run. Call it
// after asteroids, stations or regions changed outside this generator.
func (g *Generator) Invalidate() {
	g.indexed = false
}

func (g *Generator) rebuildIndexes(ctx context.Context) error {
	logger := g.logger.With("component", "universe_generator", "operation", "rebuild_indexes")
	logger.Debug("Rebuilding spatial indexes")

	cellSize := g.indexCellSize()

	g.asteroidIndex = spatial.NewIndex(g.cfg.Size, cellSize)
	g.extremeIndex = spatial.NewIndex(g.cfg.Size, cellSize)
	g.stationIndex = spatial.NewIndex(g.cfg.Size, cellSize)
	g.regionIndex = spatial.NewIndex(g.cfg.Size, cellSize)

	asteroids, err := g.store.GetAsteroidPoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to load asteroid points: %w", err)
	}
	for _, a := range asteroids {
		p := spatial.Point{X: a.X, Y: a.Y}
		g.asteroidIndex.Insert(p, a.ID)
		if a.Size == SizeExtreme {
			g.extremeIndex.Insert(p, a.ID)
		}
	}

	stations, err := g.placements.GetStationPoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to load station points: %w", err)
	}
	for _, p := range stations {
		g.stationIndex.Insert(p, 0)
	}

	regions, err := g.placements.GetRegionPoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to load region points: %w", err)
	}
	for _, p := range regions {
		g.regionIndex.Insert(p, 0)
	}

	g.indexed = true
	logger.Debug("Spatial indexes rebuilt",
		"asteroids", g.asteroidIndex.Len(),
		"stations", g.stationIndex.Len(),
		"regions", g.regionIndex.Len(),
	)
	return nil
}

// indexCellSize matches the largest min-distance constraint so radius
// queries only visit the immediate cell ring.
func (g *Generator) indexCellSize() int {
	largest := g.cfg.StationDistance
	if g.cfg.ExtremeDistance > largest {
		largest = g.cfg.ExtremeDistance
	}
	if g.cfg.StationOuterRadius > largest {
		largest = g.cfg.StationOuterRadius
	}
	return largest
}

// Generate places count new asteroids anywhere in the universe.
func (g *Generator) Generate(ctx context.Context, count int) (Result, error) {
	return g.generate(ctx, count, spatial.GlobalBounds(g.cfg.Size), nil, nil)
}

// GenerateInRegion places count new asteroids within radius of center, used
// for scan-triggered spawns near a specific station.
func (g *Generator) GenerateInRegion(ctx context.Context, center spatial.Point, radius, count int) (Result, error) {
	return g.generate(ctx, count, spatial.CircleBounds(g.cfg.Size, center, radius), nil, nil)
}

// GenerateStrategicLowValue seeds a small fixed number of low-pool asteroids
// inside a new station's outer radius, so a fresh player always has
// something mineable nearby.
func (g *Generator) GenerateStrategicLowValue(ctx context.Context, station spatial.Point) (Result, error) {
	lowPool := resources.PoolLow
	smallSize := SizeSmall
	region := spatial.CircleBounds(g.cfg.Size, station, g.cfg.StationOuterRadius)
	return g.generate(ctx, g.cfg.StrategicCount, region, &lowPool, &smallSize)
}

func (g *Generator) generate(ctx context.Context, count int, area spatial.Bounds, forcePool *resources.Pool, forceSize *SizeClass) (Result, error) {
	logger := g.logger.With("component", "universe_generator", "operation", "generate", "count", count)
	logger.Info("Starting asteroid generation")

	result := Result{Requested: count}
	if count <= 0 {
		return result, nil
	}

	if !g.indexed {
		if err := g.rebuildIndexes(ctx); err != nil {
			return result, err
		}
	}

	budget := int(math.Ceil(float64(count) * g.cfg.FailureBudget))

	writer := database.NewBatchWriter(g.cfg.BatchSize, func(items []Asteroid) error {
		return g.store.CreateAsteroidsBatch(ctx, items)
	})

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return result, apperrors.WrapInternal("asteroid generation cancelled", err)
		}

		asteroid := g.rollAsteroid(forcePool, forceSize)

		point, attempts, err := g.placeAsteroid(asteroid, area)
		if err != nil {
			result.Failed++
			logger.Warn("Placement attempts exhausted, dropping asteroid",
				"attempts", attempts,
				"size", asteroid.Size,
				"value", asteroid.Value,
				"failed", result.Failed,
				"budget", budget,
			)
			if result.Failed > budget {
				if flushErr := writer.Flush(); flushErr != nil {
					logger.Error("Failed to flush asteroid batch after abort", "error", flushErr)
				}
				return result, apperrors.Exhaustedf(
					"placement failure budget exceeded: %d of %d asteroids dropped, universe is near saturation",
					result.Failed, count)
			}
			continue
		}

		asteroid.X = point.X
		asteroid.Y = point.Y

		g.asteroidIndex.Insert(point, 0)
		if asteroid.Size == SizeExtreme {
			g.extremeIndex.Insert(point, 0)
		}

		if err := writer.Add(asteroid); err != nil {
			return result, fmt.Errorf("failed to persist asteroid batch: %w", err)
		}
		result.Generated++
	}

	if err := writer.Flush(); err != nil {
		return result, fmt.Errorf("failed to flush asteroid batch: %w", err)
	}

	logger.Info("Asteroid generation completed",
		"requested", result.Requested,
		"generated", result.Generated,
		"failed", result.Failed,
	)
	return result, nil
}

func (g *Generator) rollAsteroid(forcePool *resources.Pool, forceSize *SizeClass) Asteroid {
	size := RollSizeClass(g.rng.Intn(SizeWeightTotal))
	if forceSize != nil {
		size = *forceSize
	}

	spec := sizeSpecs[size]
	base := baseValueMin + g.rng.Intn(baseValueMax-baseValueMin+1)
	multiplier := spec.MultiplierMin + g.rng.Float64()*(spec.MultiplierMax-spec.MultiplierMin)
	value := int(math.Floor(float64(base) * multiplier))

	deposits := rollComposition(g.rng, value, forcePool)

	asteroid := Asteroid{
		Size:       size,
		Base:       base,
		Multiplier: multiplier,
		Value:      value,
		Deposits:   deposits,
	}
	asteroid.Name = generateName(g.rng, size, value, resources.RarestPool(asteroid.ResourceTypes()))
	return asteroid
}

// requiredStationDistance derives the minimum spawn distance from stations
// and reserved regions: the larger of the size-based and pool-based minimum.
// Low-pool asteroids may spawn between a station's inner and outer radius;
// anything rarer must stay outside the outer radius.
func (g *Generator) requiredStationDistance(a Asteroid) int {
	rarest := resources.RarestPool(a.ResourceTypes())

	sizeDistance := float64(g.cfg.AsteroidToStationBase) * a.Size.DistanceFactor()
	poolDistance := float64(g.cfg.AsteroidToStationBase) * resources.PoolDistanceFactor[rarest]
	required := int(math.Max(sizeDistance, poolDistance))

	floor := g.cfg.StationOuterRadius
	if rarest == resources.PoolLow {
		floor = g.cfg.StationInnerRadius
	}
	if required < floor {
		required = floor
	}
	return required
}

func (g *Generator) placeAsteroid(a Asteroid, area spatial.Bounds) (spatial.Point, int, error) {
	stationDistance := g.requiredStationDistance(a)

	// Densest index first so the usual rejection is also the cheapest.
	constraints := []spatial.Constraint{
		{Name: "asteroid_distance", Index: g.asteroidIndex, MinDistance: g.cfg.AsteroidDistance},
		{Name: "station_distance", Index: g.stationIndex, MinDistance: stationDistance},
		{Name: "region_distance", Index: g.regionIndex, MinDistance: stationDistance},
	}
	if a.Size == SizeExtreme {
		constraints = append(constraints, spatial.Constraint{
			Name: "extreme_exclusion", Index: g.extremeIndex, MinDistance: g.cfg.ExtremeDistance,
		})
	}

	sampler := spatial.NewRegionalSampler(area, g.cfg.AsteroidDistance)

	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		var candidate spatial.Point
		if attempt < g.cfg.RegionalThreshold {
			candidate = area.Uniform(g.rng)
		} else {
			candidate = sampler.Sample(g.rng)
		}

		if !area.Contains(candidate) {
			sampler.Record(candidate)
			continue
		}

		if g.validator.IsValid(candidate, constraints) {
			return candidate, attempt + 1, nil
		}
		sampler.Record(candidate)
	}

	return spatial.Point{}, g.cfg.MaxAttempts, apperrors.Exhaustedf(
		"no legal placement found in %d attempts (station_distance=%d)", g.cfg.MaxAttempts, stationDistance)
}
