package actions

import (
	"context"
	"log/slog"

	"starbase-server/internal/queue"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/shared/errors"
	"starbase-server/internal/spacecraft"
)

type FleetStore interface {
	AddSpacecraft(ctx context.Context, tx *database.Tx, userID int, shipType spacecraft.Type, amount int) error
}

// SpacecraftProductionHandler delivers finished ships to the hangar.
type SpacecraftProductionHandler struct {
	fleets FleetStore
	logger *slog.Logger
}

func NewSpacecraftProductionHandler(fleets FleetStore, logger *slog.Logger) *SpacecraftProductionHandler {
	return &SpacecraftProductionHandler{
		fleets: fleets,
		logger: logger,
	}
}

func (h *SpacecraftProductionHandler) Handle(ctx context.Context, tx *database.Tx, entry *queue.Entry) error {
	logger := h.logger.With("component", "production_handler", "operation", "handle", "entry_id", entry.ID, "user_id", entry.UserID)

	var detail queue.ProductionDetail
	if err := entry.DecodeDetail(&detail); err != nil {
		return err
	}

	shipType := spacecraft.Type(detail.ShipType)
	if _, ok := spacecraft.Specs[shipType]; !ok {
		return errors.Validationf("unknown spacecraft type %q", detail.ShipType)
	}
	if detail.Quantity <= 0 {
		return errors.Validationf("invalid production quantity %d", detail.Quantity)
	}

	if err := h.fleets.AddSpacecraft(ctx, tx, entry.UserID, shipType, detail.Quantity); err != nil {
		return err
	}

	logger.Info("Spacecraft produced", "ship_type", shipType, "quantity", detail.Quantity)
	return nil
}
