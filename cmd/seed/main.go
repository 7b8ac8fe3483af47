package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"time"

	"starbase-server/internal/shared/config"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/shared/logger"
	"starbase-server/internal/station"
	"starbase-server/internal/universe"
)

func main() {
	asteroids := flag.Int("asteroids", 0, "number of asteroids to generate (0 uses UNIVERSE_ASTEROID_COUNT)")
	regions := flag.Int("regions", 0, "number of station regions to reserve (0 uses UNIVERSE_REGION_POOL_SIZE)")
	seed := flag.Int64("seed", 0, "rng seed (0 uses current time)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Init(cfg.Logging)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	universeRepo := universe.NewRepository(db, log)
	stationRepo := station.NewRepository(db, log)
	generator := universe.NewGenerator(cfg.Universe, universeRepo, stationRepo, rng, log)
	reservations := station.NewReservationService(cfg.Universe, stationRepo, universeRepo, generator, rng, log)

	ctx := context.Background()

	asteroidCount := *asteroids
	if asteroidCount == 0 {
		asteroidCount = cfg.Universe.AsteroidCount
	}

	log.Info("Seeding universe", "asteroids", asteroidCount, "seed", *seed)

	result, err := generator.Generate(ctx, asteroidCount)
	if err != nil {
		log.Error("Asteroid generation failed", "error", err,
			"generated", result.Generated, "failed", result.Failed)
		os.Exit(1)
	}
	log.Info("Asteroids generated", "requested", result.Requested,
		"generated", result.Generated, "failed", result.Failed)

	regionCount := *regions
	if regionCount == 0 {
		regionCount = cfg.Universe.RegionPoolSize
	}

	if err := reservations.ReserveRegions(ctx, regionCount); err != nil {
		log.Error("Region reservation failed", "error", err)
		os.Exit(1)
	}
	log.Info("Station regions reserved", "count", regionCount)
}
