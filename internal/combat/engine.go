package combat

import (
	"log/slog"
	"math"
	"math/rand"
)

// Outcome is the result of one resolved engagement. Loss ratios are the
// fraction of each side's committed ships destroyed, in [0,1].
type Outcome struct {
	AttackerWins      bool
	AttackerLossRatio float64
	DefenderLossRatio float64
	Roll              float64
}

type Engine struct {
	rng    *rand.Rand
	logger *slog.Logger
}

func NewEngine(rng *rand.Rand, logger *slog.Logger) *Engine {
	logger.Debug("Initializing combat engine")

	return &Engine{
		rng:    rng,
		logger: logger,
	}
}

// Resolve decides an engagement between the given total combat powers. The
// attacker's win chance is its share of combined power, jittered by a single
// uniform roll. The loser takes heavier losses than the winner, and both
// sides lose more the closer the powers are matched.
func (e *Engine) Resolve(attackerPower, defenderPower int64) Outcome {
	logger := e.logger.With("component", "combat_engine", "operation", "resolve",
		"attacker_power", attackerPower, "defender_power", defenderPower)

	if attackerPower <= 0 && defenderPower <= 0 {
		return Outcome{AttackerWins: false}
	}
	if defenderPower <= 0 {
		return Outcome{AttackerWins: true, AttackerLossRatio: 0, DefenderLossRatio: 1}
	}
	if attackerPower <= 0 {
		return Outcome{AttackerWins: false, AttackerLossRatio: 1, DefenderLossRatio: 0}
	}

	total := float64(attackerPower + defenderPower)
	winChance := float64(attackerPower) / total
	roll := e.rng.Float64()
	attackerWins := roll < winChance

	// Closeness approaches 1 for evenly matched fleets, 0 for a rout.
	closeness := 1 - math.Abs(float64(attackerPower)-float64(defenderPower))/total

	winnerLoss := clampRatio(0.1 + 0.4*closeness*e.rng.Float64())
	loserLoss := clampRatio(0.5 + 0.5*closeness*e.rng.Float64())

	outcome := Outcome{AttackerWins: attackerWins, Roll: roll}
	if attackerWins {
		outcome.AttackerLossRatio = winnerLoss
		outcome.DefenderLossRatio = loserLoss
	} else {
		outcome.AttackerLossRatio = loserLoss
		outcome.DefenderLossRatio = winnerLoss
	}

	logger.Debug("Engagement resolved",
		"attacker_wins", outcome.AttackerWins,
		"attacker_loss_ratio", outcome.AttackerLossRatio,
		"defender_loss_ratio", outcome.DefenderLossRatio)

	return outcome
}

// ApplyLosses scales each committed count down by the loss ratio, rounding
// losses up so a defeated fleet never survives intact.
func ApplyLosses[T comparable](committed map[T]int, lossRatio float64) map[T]int {
	survivors := make(map[T]int, len(committed))
	for shipType, count := range committed {
		lost := int(math.Ceil(float64(count) * lossRatio))
		if lost > count {
			lost = count
		}
		survivors[shipType] = count - lost
	}
	return survivors
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
