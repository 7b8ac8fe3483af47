package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"starbase-server/internal/actions"
	"starbase-server/internal/building"
	"starbase-server/internal/combat"
	"starbase-server/internal/middleware"
	"starbase-server/internal/notify"
	"starbase-server/internal/player"
	"starbase-server/internal/queue"
	"starbase-server/internal/resources"
	"starbase-server/internal/server"
	"starbase-server/internal/shared/config"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/shared/logger"
	"starbase-server/internal/shared/redis"
	"starbase-server/internal/spacecraft"
	"starbase-server/internal/station"
	"starbase-server/internal/universe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Init(cfg.Logging)
	log.Info("Starting starbase server", "environment", cfg.Server.Environment)

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

	redisClient, err := redis.Connect(cfg.Redis)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", "error", err)
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Repositories
	universeRepo := universe.NewRepository(db, log)
	stationRepo := station.NewRepository(db, log)
	resourceRepo := resources.NewRepository(db, log)
	spacecraftRepo := spacecraft.NewRepository(db, log)
	buildingRepo := building.NewRepository(db, log)
	playerRepo := player.NewRepository(db, log)
	queueRepo := queue.NewRepository(db, log)

	// Services
	ledger := resources.NewLedger(resourceRepo, log)
	playerService := player.NewService(buildingRepo, log)
	notifier := notify.NewNotifier(redisClient, log)
	combatEngine := combat.NewEngine(rng, log)

	queueService := queue.NewService(
		db, queueRepo,
		universeRepo, stationRepo, playerRepo, buildingRepo, playerService,
		spacecraftRepo, ledger, notifier, log,
	)

	generator := universe.NewGenerator(cfg.Universe, universeRepo, stationRepo, rng, log)
	reservations := station.NewReservationService(cfg.Universe, stationRepo, universeRepo, generator, rng, log)
	scanService := universe.NewScanService(cfg.Universe, universeRepo, stationRepo, playerService, generator, log)

	registry := queue.Registry{
		queue.ActionMining:   actions.NewMiningHandler(universeRepo, spacecraftRepo, playerService, ledger, log),
		queue.ActionBuilding: actions.NewBuildingUpgradeHandler(buildingRepo, log),
		queue.ActionProduce:  actions.NewSpacecraftProductionHandler(spacecraftRepo, log),
		queue.ActionCombat:   actions.NewCombatHandler(combatEngine, spacecraftRepo, spacecraftRepo, playerService, ledger, cfg.Queue.CombatPlunderRate, log),
	}

	scheduler := queue.NewScheduler(db, queueRepo, spacecraftRepo, registry, cfg.Queue, log)
	if err := scheduler.Start(); err != nil {
		log.Error("Failed to start queue scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	// HTTP
	routes := server.NewRoutes(db, universeRepo, queueRepo, queueService, scheduler, reservations, scanService, playerRepo, spacecraftRepo, ledger, log)
	corsMiddleware := middleware.NewCORS(cfg.Server, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      corsMiddleware.Middleware(routes.Setup()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP shutdown failed", "error", err)
	}
}
