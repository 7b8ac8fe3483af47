package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"starbase-server/internal/player"
	"starbase-server/internal/resources"
	"starbase-server/internal/shared/errors"
	"starbase-server/internal/shared/response"
)

type PlayerRegistrar interface {
	CreatePlayer(ctx context.Context, username, email string) (*player.Player, error)
}

type PlayerRegisterHandler struct {
	players PlayerRegistrar
	logger  *slog.Logger
}

func NewPlayerRegisterHandler(players PlayerRegistrar, logger *slog.Logger) *PlayerRegisterHandler {
	return &PlayerRegisterHandler{players: players, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *PlayerRegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "player_register")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.Validationf("method %s not allowed", r.Method))
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.Validationf("invalid request body: %v", err))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		response.Error(w, r, logger, errors.Validationf("username and email are required"))
		return
	}

	created, err := h.players.CreatePlayer(r.Context(), req.Username, req.Email)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, created)
}

type BalanceSource interface {
	Balances(ctx context.Context, userID int) ([]resources.Balance, error)
}

// BalancesHandler serves a user's current mineral stores.
type BalancesHandler struct {
	ledger BalanceSource
	logger *slog.Logger
}

func NewBalancesHandler(ledger BalanceSource, logger *slog.Logger) *BalancesHandler {
	return &BalancesHandler{ledger: ledger, logger: logger}
}

func (h *BalancesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "balances")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.Validationf("method %s not allowed", r.Method))
		return
	}

	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil || userID <= 0 {
		response.Error(w, r, logger, errors.Validationf("invalid user_id"))
		return
	}

	balances, err := h.ledger.Balances(r.Context(), userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, balances)
}
