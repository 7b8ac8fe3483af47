package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"starbase-server/internal/shared/errors"
	"starbase-server/internal/shared/response"
	"starbase-server/internal/universe"
)

type Scanner interface {
	Scan(ctx context.Context, userID int) (universe.ScanResult, error)
}

// ScanHandler sweeps the field around the caller's station, spawning fresh
// asteroids when the local density has dropped below the floor.
type ScanHandler struct {
	scans  Scanner
	logger *slog.Logger
}

func NewScanHandler(scans Scanner, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{scans: scans, logger: logger}
}

type scanRequest struct {
	UserID int `json:"user_id"`
}

func (h *ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "scan")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.Validationf("method %s not allowed", r.Method))
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.Validationf("invalid request body: %v", err))
		return
	}
	if req.UserID <= 0 {
		response.Error(w, r, logger, errors.Validationf("user_id is required"))
		return
	}

	result, err := h.scans.Scan(r.Context(), req.UserID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}
