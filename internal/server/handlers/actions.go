package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"starbase-server/internal/building"
	"starbase-server/internal/queue"
	"starbase-server/internal/shared/errors"
	"starbase-server/internal/shared/response"
	"starbase-server/internal/spacecraft"
)

type ActionQueuer interface {
	QueueMining(ctx context.Context, userID int, asteroidID int64, manifest spacecraft.Manifest) (*queue.Entry, error)
	QueueBuildingUpgrade(ctx context.Context, userID int, buildingType building.Type) (*queue.Entry, error)
	QueueProduction(ctx context.Context, userID int, shipType spacecraft.Type, quantity int) (*queue.Entry, error)
	QueueCombat(ctx context.Context, attackerID, defenderID int, manifest spacecraft.Manifest) (*queue.Entry, error)
	Cancel(ctx context.Context, userID int, entryID int64) error
}

// ActionsHandler exposes the queue-time operations. Validation failures
// surface as 400s here; they never reach the scheduler.
type ActionsHandler struct {
	queuer ActionQueuer
	logger *slog.Logger
}

func NewActionsHandler(queuer ActionQueuer, logger *slog.Logger) *ActionsHandler {
	return &ActionsHandler{queuer: queuer, logger: logger}
}

type mineRequest struct {
	UserID     int                 `json:"user_id"`
	AsteroidID int64               `json:"asteroid_id"`
	Manifest   spacecraft.Manifest `json:"manifest"`
}

func (h *ActionsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "actions_mine")

	var req mineRequest
	if !decodeBody(w, r, logger, &req) {
		return
	}

	entry, err := h.queuer.QueueMining(r.Context(), req.UserID, req.AsteroidID, req.Manifest)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, entry)
}

type buildRequest struct {
	UserID       int    `json:"user_id"`
	BuildingType string `json:"building_type"`
}

func (h *ActionsHandler) Build(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "actions_build")

	var req buildRequest
	if !decodeBody(w, r, logger, &req) {
		return
	}

	entry, err := h.queuer.QueueBuildingUpgrade(r.Context(), req.UserID, building.Type(req.BuildingType))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, entry)
}

type produceRequest struct {
	UserID   int    `json:"user_id"`
	ShipType string `json:"ship_type"`
	Quantity int    `json:"quantity"`
}

func (h *ActionsHandler) Produce(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "actions_produce")

	var req produceRequest
	if !decodeBody(w, r, logger, &req) {
		return
	}

	entry, err := h.queuer.QueueProduction(r.Context(), req.UserID, spacecraft.Type(req.ShipType), req.Quantity)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, entry)
}

type attackRequest struct {
	AttackerID int                 `json:"attacker_id"`
	DefenderID int                 `json:"defender_id"`
	Manifest   spacecraft.Manifest `json:"manifest"`
}

func (h *ActionsHandler) Attack(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "actions_attack")

	var req attackRequest
	if !decodeBody(w, r, logger, &req) {
		return
	}

	entry, err := h.queuer.QueueCombat(r.Context(), req.AttackerID, req.DefenderID, req.Manifest)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, entry)
}

type cancelRequest struct {
	UserID  int   `json:"user_id"`
	EntryID int64 `json:"entry_id"`
}

func (h *ActionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "actions_cancel")

	var req cancelRequest
	if !decodeBody(w, r, logger, &req) {
		return
	}

	if err := h.queuer.Cancel(r.Context(), req.UserID, req.EntryID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any) bool {
	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.Validationf("method %s not allowed", r.Method))
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Error(w, r, logger, errors.Validationf("invalid request body: %v", err))
		return false
	}
	return true
}
