package actions

import (
	"context"
	"log/slog"
	"math"

	"starbase-server/internal/combat"
	"starbase-server/internal/queue"
	"starbase-server/internal/resources"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/shared/errors"
	"starbase-server/internal/spacecraft"
)

type CombatFleetStore interface {
	GetFleet(ctx context.Context, userID int) (spacecraft.Manifest, error)
	AddSpacecraft(ctx context.Context, tx *database.Tx, userID int, shipType spacecraft.Type, amount int) error
	RemoveSpacecraft(ctx context.Context, tx *database.Tx, userID int, shipType spacecraft.Type, amount int) error
}

type CombatLockStore interface {
	ReleaseLocks(ctx context.Context, tx *database.Tx, actionID int64, survivors spacecraft.Manifest) error
}

// CombatHandler resolves an attack when the fleet arrives: the engine
// decides the outcome, losses land on both fleets, and a winning attacker
// plunders the defender's stores up to the surviving cargo capacity.
type CombatHandler struct {
	engine      *combat.Engine
	fleets      CombatFleetStore
	locks       CombatLockStore
	attrs       AttributeSource
	ledger      *resources.Ledger
	plunderRate float64
	logger      *slog.Logger
}

func NewCombatHandler(engine *combat.Engine, fleets CombatFleetStore, locks CombatLockStore, attrs AttributeSource, ledger *resources.Ledger, plunderRate float64, logger *slog.Logger) *CombatHandler {
	return &CombatHandler{
		engine:      engine,
		fleets:      fleets,
		locks:       locks,
		attrs:       attrs,
		ledger:      ledger,
		plunderRate: plunderRate,
		logger:      logger,
	}
}

func (h *CombatHandler) Handle(ctx context.Context, tx *database.Tx, entry *queue.Entry) error {
	logger := h.logger.With("component", "combat_handler", "operation", "handle",
		"entry_id", entry.ID, "attacker_id", entry.UserID, "defender_id", entry.TargetID)

	var detail queue.CombatDetail
	if err := entry.DecodeDetail(&detail); err != nil {
		return err
	}

	defenderID := int(entry.TargetID)

	defenderFleet, err := h.fleets.GetFleet(ctx, defenderID)
	if err != nil {
		return err
	}
	defenderAttrs, err := h.attrs.GetAttributes(ctx, defenderID)
	if err != nil {
		return err
	}

	attackerPower := detail.Manifest.Combat()
	defenderPower := defenderFleet.Combat() + defenderAttrs.DefensePower

	outcome := h.engine.Resolve(attackerPower, defenderPower)

	survivors := combat.ApplyLosses(detail.Manifest, outcome.AttackerLossRatio)
	defenderSurvivors := combat.ApplyLosses(defenderFleet, outcome.DefenderLossRatio)

	for shipType, before := range defenderFleet {
		lost := before - defenderSurvivors[shipType]
		if lost <= 0 {
			continue
		}
		if err := h.fleets.RemoveSpacecraft(ctx, tx, defenderID, shipType, lost); err != nil {
			return err
		}
	}

	var plundered int64
	if outcome.AttackerWins {
		plundered, err = h.plunder(ctx, tx, entry.UserID, defenderID, survivors)
		if err != nil {
			return err
		}
	}

	if err := h.locks.ReleaseLocks(ctx, tx, entry.ID, survivors); err != nil {
		return err
	}

	logger.Info("Combat resolved",
		"attacker_wins", outcome.AttackerWins,
		"attacker_loss_ratio", outcome.AttackerLossRatio,
		"defender_loss_ratio", outcome.DefenderLossRatio,
		"plundered", plundered)
	return nil
}

// plunder transfers a fraction of each defender balance to the attacker,
// bounded by the surviving fleet's cargo capacity. A balance raced away by
// a concurrent debit is skipped rather than failing the battle.
func (h *CombatHandler) plunder(ctx context.Context, tx *database.Tx, attackerID, defenderID int, survivors spacecraft.Manifest) (int64, error) {
	logger := h.logger.With("component", "combat_handler", "operation", "plunder", "attacker_id", attackerID, "defender_id", defenderID)

	balances, err := h.ledger.Balances(ctx, defenderID)
	if err != nil {
		return 0, err
	}

	attackerAttrs, err := h.attrs.GetAttributes(ctx, attackerID)
	if err != nil {
		return 0, err
	}

	remainingCargo := survivors.Cargo()
	var total int64

	for _, balance := range balances {
		if remainingCargo <= 0 {
			break
		}

		amount := int64(math.Floor(float64(balance.Amount) * h.plunderRate))
		if amount > remainingCargo {
			amount = remainingCargo
		}
		if amount <= 0 {
			continue
		}

		if err := h.ledger.Debit(ctx, tx, defenderID, balance.Resource, amount); err != nil {
			if errors.IsType(err, errors.ErrorTypeValidation) {
				logger.Debug("Defender balance changed, skipping resource", "resource", balance.Resource)
				continue
			}
			return 0, err
		}

		if err := h.ledger.Credit(ctx, tx, attackerID, balance.Resource, amount, attackerAttrs.StorageCapacity); err != nil {
			return 0, err
		}

		remainingCargo -= amount
		total += amount
	}

	return total, nil
}
