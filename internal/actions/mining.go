// Package actions holds the per-type resolution handlers the queue
// scheduler dispatches to. Every handler mutates game state only through
// the transaction it is handed, so a handler error rolls back cleanly.
package actions

import (
	"context"
	"log/slog"
	"math"

	"starbase-server/internal/player"
	"starbase-server/internal/queue"
	"starbase-server/internal/resources"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/shared/errors"
	"starbase-server/internal/spacecraft"
	"starbase-server/internal/universe"
)

type AsteroidStore interface {
	GetAsteroidForUpdate(ctx context.Context, tx *database.Tx, id int64) (*universe.Asteroid, error)
	UpdateDepositAmount(ctx context.Context, tx *database.Tx, depositID int64, amount int64) error
	DeleteAsteroid(ctx context.Context, tx *database.Tx, id int64) error
}

type LockStore interface {
	ReleaseLocks(ctx context.Context, tx *database.Tx, actionID int64, survivors spacecraft.Manifest) error
}

type AttributeSource interface {
	GetAttributes(ctx context.Context, userID int) (player.Attributes, error)
}

// MiningHandler resolves a mining expedition against live asteroid state.
// The deposits are re-read under a row lock because another expedition may
// have partially mined the asteroid since this entry was queued.
type MiningHandler struct {
	asteroids AsteroidStore
	locks     LockStore
	attrs     AttributeSource
	ledger    *resources.Ledger
	logger    *slog.Logger
}

func NewMiningHandler(asteroids AsteroidStore, locks LockStore, attrs AttributeSource, ledger *resources.Ledger, logger *slog.Logger) *MiningHandler {
	return &MiningHandler{
		asteroids: asteroids,
		locks:     locks,
		attrs:     attrs,
		ledger:    ledger,
		logger:    logger,
	}
}

func (h *MiningHandler) Handle(ctx context.Context, tx *database.Tx, entry *queue.Entry) error {
	logger := h.logger.With("component", "mining_handler", "operation", "handle", "entry_id", entry.ID, "asteroid_id", entry.TargetID)

	var detail queue.MiningDetail
	if err := entry.DecodeDetail(&detail); err != nil {
		return err
	}

	asteroid, err := h.asteroids.GetAsteroidForUpdate(ctx, tx, entry.TargetID)
	if err != nil {
		return err
	}
	if asteroid == nil {
		return errors.NotFoundf("asteroid %d no longer exists", entry.TargetID)
	}

	total := asteroid.TotalDeposits()
	if total <= 0 {
		return errors.Validationf("asteroid %d is already depleted", entry.TargetID)
	}

	attrs, err := h.attrs.GetAttributes(ctx, entry.UserID)
	if err != nil {
		return err
	}

	cargo := detail.Manifest.Cargo()
	multiplier := detail.Manifest.ExtractionMultiplier() * attrs.ExtractionEfficacy
	if multiplier > 1.0 {
		multiplier = 1.0
	}

	loadable := cargo
	if total < loadable {
		loadable = total
	}
	budget := int64(math.Floor(float64(loadable) * multiplier))

	logger.Debug("Computed extraction budget",
		"cargo", cargo, "deposits", total, "multiplier", multiplier, "budget", budget)

	extracted := make(map[resources.Type]int64, len(asteroid.Deposits))
	remainingTotal := int64(0)
	for _, deposit := range asteroid.Deposits {
		// Proportional split floors each share, so the sum never
		// exceeds the budget.
		share := budget * deposit.Amount / total
		if share > deposit.Amount {
			share = deposit.Amount
		}
		if share > 0 {
			extracted[deposit.Resource] = share
		}

		remaining := deposit.Amount - share
		remainingTotal += remaining
		if err := h.asteroids.UpdateDepositAmount(ctx, tx, deposit.ID, remaining); err != nil {
			return err
		}
	}

	if err := h.ledger.CreditAll(ctx, tx, entry.UserID, extracted, attrs.StorageCapacity); err != nil {
		return err
	}

	if remainingTotal <= 0 {
		if err := h.asteroids.DeleteAsteroid(ctx, tx, asteroid.ID); err != nil {
			return err
		}
		logger.Info("Asteroid fully depleted and removed")
	}

	if err := h.locks.ReleaseLocks(ctx, tx, entry.ID, nil); err != nil {
		return err
	}

	logger.Info("Mining resolved", "extracted_total", sumAmounts(extracted), "remaining", remainingTotal)
	return nil
}

func sumAmounts(amounts map[resources.Type]int64) int64 {
	var total int64
	for _, amount := range amounts {
		total += amount
	}
	return total
}
