package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"starbase-server/internal/shared/redis"
)

// AttackSummary is the payload published when a combat action is queued
// against a defender.
type AttackSummary struct {
	ActionID   int64     `json:"action_id"`
	AttackerID int       `json:"attacker_id"`
	DefenderID int       `json:"defender_id"`
	ArrivesAt  time.Time `json:"arrives_at"`
}

// Notifier publishes fire-and-forget player events over redis pub/sub.
// With no redis client configured it degrades to a no-op.
type Notifier struct {
	client *redis.Client
	logger *slog.Logger
}

func NewNotifier(client *redis.Client, logger *slog.Logger) *Notifier {
	logger.Debug("Initializing notifier", "enabled", client != nil)

	return &Notifier{
		client: client,
		logger: logger,
	}
}

// OnAttackQueued tells the defender an attack is inbound. Delivery failures
// are logged and swallowed; notifications never block or fail the action.
func (n *Notifier) OnAttackQueued(ctx context.Context, summary AttackSummary) {
	logger := n.logger.With("component", "notifier", "operation", "on_attack_queued",
		"defender_id", summary.DefenderID, "action_id", summary.ActionID)

	if n.client == nil {
		logger.Debug("Notifications disabled, skipping")
		return
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		logger.Error("Failed to marshal attack summary", "error", err)
		return
	}

	channel := fmt.Sprintf("player:%d:events", summary.DefenderID)
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		logger.Error("Failed to publish attack notification", "error", err)
		return
	}

	logger.Debug("Attack notification published", "channel", channel)
}
