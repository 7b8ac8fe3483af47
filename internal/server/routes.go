package server

import (
	"log/slog"
	"net/http"

	"starbase-server/internal/player"
	"starbase-server/internal/queue"
	"starbase-server/internal/resources"
	serverHandlers "starbase-server/internal/server/handlers"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/spacecraft"
	"starbase-server/internal/station"
	"starbase-server/internal/universe"
)

type Routes struct {
	db             *database.DB
	universeRepo   *universe.Repository
	queueRepo      *queue.Repository
	queueService   *queue.Service
	scheduler      *queue.Scheduler
	reservations   *station.ReservationService
	scans          *universe.ScanService
	playerRepo     *player.Repository
	spacecraftRepo *spacecraft.Repository
	ledger         *resources.Ledger
	logger         *slog.Logger
}

func NewRoutes(
	db *database.DB,
	universeRepo *universe.Repository,
	queueRepo *queue.Repository,
	queueService *queue.Service,
	scheduler *queue.Scheduler,
	reservations *station.ReservationService,
	scans *universe.ScanService,
	playerRepo *player.Repository,
	spacecraftRepo *spacecraft.Repository,
	ledger *resources.Ledger,
	logger *slog.Logger,
) *Routes {
	return &Routes{
		db:             db,
		universeRepo:   universeRepo,
		queueRepo:      queueRepo,
		queueService:   queueService,
		scheduler:      scheduler,
		reservations:   reservations,
		scans:          scans,
		playerRepo:     playerRepo,
		spacecraftRepo: spacecraftRepo,
		ledger:         ledger,
		logger:         logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db)
	universeStatsHandler := serverHandlers.NewUniverseStatsHandler(r.universeRepo, r.logger)
	queueStatsHandler := serverHandlers.NewQueueStatsHandler(r.queueRepo, r.logger)
	processHandler := serverHandlers.NewProcessHandler(r.scheduler, r.logger)
	actionsHandler := serverHandlers.NewActionsHandler(r.queueService, r.logger)
	onboardHandler := serverHandlers.NewOnboardHandler(r.reservations, r.logger)
	scanHandler := serverHandlers.NewScanHandler(r.scans, r.logger)
	historyHandler := serverHandlers.NewHistoryHandler(r.queueRepo, r.logger)
	registerHandler := serverHandlers.NewPlayerRegisterHandler(r.playerRepo, r.logger)
	fleetHandler := serverHandlers.NewFleetHandler(r.spacecraftRepo, r.logger)
	balancesHandler := serverHandlers.NewBalancesHandler(r.ledger, r.logger)

	mux.Handle("/api/server/health", healthHandler)
	mux.Handle("/api/universe/stats", universeStatsHandler)
	mux.Handle("/api/universe/scan", scanHandler)
	mux.Handle("/api/queue/stats", queueStatsHandler)
	mux.Handle("/api/queue/process", processHandler)

	mux.HandleFunc("/api/queue/entries", historyHandler.Entries)
	mux.HandleFunc("/api/queue/entry", historyHandler.Entry)
	mux.HandleFunc("/api/queue/archive", historyHandler.Archive)

	mux.HandleFunc("/api/actions/mine", actionsHandler.Mine)
	mux.HandleFunc("/api/actions/build", actionsHandler.Build)
	mux.HandleFunc("/api/actions/produce", actionsHandler.Produce)
	mux.HandleFunc("/api/actions/attack", actionsHandler.Attack)
	mux.HandleFunc("/api/actions/cancel", actionsHandler.Cancel)

	mux.Handle("/api/players/register", registerHandler)
	mux.Handle("/api/stations/assign", onboardHandler)
	mux.Handle("/api/fleet", fleetHandler)
	mux.Handle("/api/resources/balances", balancesHandler)

	logger.Info("Routes configured successfully",
		"endpoints", []string{
			"/api/server/health", "/api/universe/stats", "/api/universe/scan",
			"/api/queue/stats", "/api/queue/process", "/api/queue/entries", "/api/queue/entry", "/api/queue/archive",
			"/api/actions/mine", "/api/actions/build", "/api/actions/produce", "/api/actions/attack", "/api/actions/cancel",
			"/api/players/register", "/api/stations/assign", "/api/fleet", "/api/resources/balances",
		},
	)

	return mux
}
