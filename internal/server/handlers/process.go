package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"starbase-server/internal/shared/errors"
	"starbase-server/internal/shared/response"
)

type InstantProcessor interface {
	ProcessUserInstant(ctx context.Context, userID int) (int, error)
}

// ProcessHandler triggers an immediate, rate limited resolution pass for one
// user's due entries instead of waiting for the next scheduled poll.
type ProcessHandler struct {
	scheduler InstantProcessor
	logger    *slog.Logger
}

func NewProcessHandler(scheduler InstantProcessor, logger *slog.Logger) *ProcessHandler {
	return &ProcessHandler{scheduler: scheduler, logger: logger}
}

func (h *ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "queue_process")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.Validationf("method %s not allowed", r.Method))
		return
	}

	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil || userID <= 0 {
		response.Error(w, r, logger, errors.Validationf("invalid user_id"))
		return
	}

	resolved, err := h.scheduler.ProcessUserInstant(r.Context(), userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]int{"resolved": resolved})
}
