package player

import (
	"context"
	"log/slog"

	"starbase-server/internal/building"
)

type BuildingSource interface {
	GetBuildings(ctx context.Context, userID int) ([]building.Building, error)
}

type Service struct {
	buildings BuildingSource
	logger    *slog.Logger
}

func NewService(buildings BuildingSource, logger *slog.Logger) *Service {
	logger.Debug("Initializing player service")

	return &Service{
		buildings: buildings,
		logger:    logger,
	}
}

// GetAttributes derives the player's current stats from their buildings.
func (s *Service) GetAttributes(ctx context.Context, userID int) (Attributes, error) {
	logger := s.logger.With("component", "player_service", "operation", "get_attributes", "user_id", userID)

	buildings, err := s.buildings.GetBuildings(ctx, userID)
	if err != nil {
		logger.Error("Failed to load buildings", "error", err)
		return Attributes{}, err
	}

	return ApplyBuildings(buildings), nil
}
