package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"starbase-server/internal/shared/errors"
	"starbase-server/internal/shared/response"
	"starbase-server/internal/spacecraft"
)

type FleetSource interface {
	GetFleet(ctx context.Context, userID int) (spacecraft.Manifest, error)
	CountLocked(ctx context.Context, userID int, shipType spacecraft.Type) (int, error)
}

// FleetHandler reports a user's hangar plus the ships locked to in-flight
// actions, so the client can show true totals.
type FleetHandler struct {
	fleets FleetSource
	logger *slog.Logger
}

func NewFleetHandler(fleets FleetSource, logger *slog.Logger) *FleetHandler {
	return &FleetHandler{fleets: fleets, logger: logger}
}

type fleetResponse struct {
	Hangar spacecraft.Manifest     `json:"hangar"`
	Locked map[spacecraft.Type]int `json:"locked"`
}

func (h *FleetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "fleet")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.Validationf("method %s not allowed", r.Method))
		return
	}

	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil || userID <= 0 {
		response.Error(w, r, logger, errors.Validationf("invalid user_id"))
		return
	}

	hangar, err := h.fleets.GetFleet(r.Context(), userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	locked := make(map[spacecraft.Type]int, len(spacecraft.Specs))
	for shipType := range spacecraft.Specs {
		count, err := h.fleets.CountLocked(r.Context(), userID, shipType)
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		if count > 0 {
			locked[shipType] = count
		}
	}

	response.Success(w, http.StatusOK, fleetResponse{Hangar: hangar, Locked: locked})
}
