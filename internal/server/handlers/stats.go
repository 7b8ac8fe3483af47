package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"starbase-server/internal/queue"
	"starbase-server/internal/shared/response"
	"starbase-server/internal/universe"
)

type UniverseStatsSource interface {
	GetStats(ctx context.Context) (universe.Stats, error)
}

type UniverseStatsHandler struct {
	stats  UniverseStatsSource
	logger *slog.Logger
}

func NewUniverseStatsHandler(stats UniverseStatsSource, logger *slog.Logger) *UniverseStatsHandler {
	return &UniverseStatsHandler{stats: stats, logger: logger}
}

func (h *UniverseStatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "universe_stats")

	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, stats)
}

type QueueStatsSource interface {
	GetStats(ctx context.Context) (*queue.Stats, error)
}

type QueueStatsHandler struct {
	stats  QueueStatsSource
	logger *slog.Logger
}

func NewQueueStatsHandler(stats QueueStatsSource, logger *slog.Logger) *QueueStatsHandler {
	return &QueueStatsHandler{stats: stats, logger: logger}
}

func (h *QueueStatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "queue_stats")

	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, stats)
}
