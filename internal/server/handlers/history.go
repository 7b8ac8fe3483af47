package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"starbase-server/internal/queue"
	"starbase-server/internal/shared/errors"
	"starbase-server/internal/shared/response"
)

type QueueReader interface {
	GetEntry(ctx context.Context, id int64) (*queue.Entry, error)
	GetUserEntries(ctx context.Context, userID int) ([]queue.Entry, error)
	GetUserArchive(ctx context.Context, userID int, limit int) ([]queue.ArchiveEntry, error)
}

const defaultArchiveLimit = 50

// HistoryHandler serves the live queue and the archive of one user.
type HistoryHandler struct {
	reader QueueReader
	logger *slog.Logger
}

func NewHistoryHandler(reader QueueReader, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{reader: reader, logger: logger}
}

func (h *HistoryHandler) Entries(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "queue_entries")

	userID, ok := h.userID(w, r, logger)
	if !ok {
		return
	}

	entries, err := h.reader.GetUserEntries(r.Context(), userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, entries)
}

func (h *HistoryHandler) Entry(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "queue_entry")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.Validationf("method %s not allowed", r.Method))
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, r, logger, errors.Validationf("invalid entry id"))
		return
	}

	entry, err := h.reader.GetEntry(r.Context(), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if entry == nil {
		response.Error(w, r, logger, errors.NotFoundf("entry %d not found", id))
		return
	}

	response.Success(w, http.StatusOK, entry)
}

func (h *HistoryHandler) Archive(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "queue_archive")

	userID, ok := h.userID(w, r, logger)
	if !ok {
		return
	}

	limit := defaultArchiveLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(w, r, logger, errors.Validationf("invalid limit"))
			return
		}
		limit = parsed
	}

	archive, err := h.reader.GetUserArchive(r.Context(), userID, limit)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, archive)
}

func (h *HistoryHandler) userID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int, bool) {
	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.Validationf("method %s not allowed", r.Method))
		return 0, false
	}

	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil || userID <= 0 {
		response.Error(w, r, logger, errors.Validationf("invalid user_id"))
		return 0, false
	}
	return userID, true
}
