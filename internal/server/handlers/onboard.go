package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"starbase-server/internal/shared/errors"
	"starbase-server/internal/shared/response"
	"starbase-server/internal/station"
)

type RegionAssigner interface {
	AssignRegion(ctx context.Context, userID int, stationName string) (*station.Station, error)
}

// OnboardHandler places a new player's station by consuming a pre-validated
// region from the pool.
type OnboardHandler struct {
	reservations RegionAssigner
	logger       *slog.Logger
}

func NewOnboardHandler(reservations RegionAssigner, logger *slog.Logger) *OnboardHandler {
	return &OnboardHandler{reservations: reservations, logger: logger}
}

type onboardRequest struct {
	UserID      int    `json:"user_id"`
	StationName string `json:"station_name"`
}

func (h *OnboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "onboard")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.Validationf("method %s not allowed", r.Method))
		return
	}

	var req onboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.Validationf("invalid request body: %v", err))
		return
	}
	if req.UserID <= 0 || req.StationName == "" {
		response.Error(w, r, logger, errors.Validationf("user_id and station_name are required"))
		return
	}

	placed, err := h.reservations.AssignRegion(r.Context(), req.UserID, req.StationName)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, placed)
}
