package actions

import (
	"context"
	"log/slog"

	"starbase-server/internal/building"
	"starbase-server/internal/queue"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/shared/errors"
)

type BuildingStore interface {
	GetLevel(ctx context.Context, tx *database.Tx, userID int, buildingType building.Type) (int, error)
	SetLevel(ctx context.Context, tx *database.Tx, userID int, buildingType building.Type, level int) error
}

// BuildingUpgradeHandler completes a queued building upgrade. The target
// level comes from the entry payload rather than an increment, so a retried
// entry settles on the same level instead of climbing twice.
type BuildingUpgradeHandler struct {
	buildings BuildingStore
	logger    *slog.Logger
}

func NewBuildingUpgradeHandler(buildings BuildingStore, logger *slog.Logger) *BuildingUpgradeHandler {
	return &BuildingUpgradeHandler{
		buildings: buildings,
		logger:    logger,
	}
}

func (h *BuildingUpgradeHandler) Handle(ctx context.Context, tx *database.Tx, entry *queue.Entry) error {
	logger := h.logger.With("component", "building_handler", "operation", "handle", "entry_id", entry.ID, "user_id", entry.UserID)

	var detail queue.BuildingDetail
	if err := entry.DecodeDetail(&detail); err != nil {
		return err
	}

	buildingType := building.Type(detail.BuildingType)
	spec, ok := building.Specs[buildingType]
	if !ok {
		return errors.Validationf("unknown building type %q", detail.BuildingType)
	}
	if detail.TargetLevel <= 0 {
		return errors.Validationf("invalid target level %d", detail.TargetLevel)
	}

	current, err := h.buildings.GetLevel(ctx, tx, entry.UserID, buildingType)
	if err != nil {
		return err
	}
	if current >= detail.TargetLevel {
		logger.Info("Building already at or above target level", "current", current, "target", detail.TargetLevel)
		return nil
	}

	if err := h.buildings.SetLevel(ctx, tx, entry.UserID, buildingType, detail.TargetLevel); err != nil {
		return err
	}

	logger.Info("Building upgraded",
		"building_type", buildingType,
		"level", detail.TargetLevel,
		"effect", spec.EffectAt(detail.TargetLevel),
		"next_build_time", spec.BuildTimeAt(detail.TargetLevel+1))
	return nil
}
