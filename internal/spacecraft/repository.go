package spacecraft

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"starbase-server/internal/shared/database"
	"starbase-server/internal/shared/errors"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing spacecraft repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) getExecutor(tx *database.Tx) database.Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *Repository) GetFleet(ctx context.Context, userID int) (Manifest, error) {
	logger := r.logger.With("component", "spacecraft_repository", "operation", "get_fleet", "user_id", userID)

	rows, err := r.db.QueryContext(ctx,
		`SELECT type, amount FROM user_spacecrafts WHERE user_id = $1 AND amount > 0`,
		userID,
	)
	if err != nil {
		logger.Error("Failed to query fleet", "error", err)
		return nil, fmt.Errorf("failed to query fleet: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	fleet := Manifest{}
	for rows.Next() {
		var t Type
		var amount int
		if err := rows.Scan(&t, &amount); err != nil {
			logger.Error("Failed to scan fleet entry", "error", err)
			return nil, fmt.Errorf("failed to scan fleet entry: %w", err)
		}
		fleet[t] = amount
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating fleet: %w", err)
	}

	return fleet, nil
}

// AddSpacecraft credits finished ships to the user's hangar.
func (r *Repository) AddSpacecraft(ctx context.Context, tx *database.Tx, userID int, shipType Type, amount int) error {
	logger := r.logger.With("component", "spacecraft_repository", "operation", "add_spacecraft", "user_id", userID, "type", shipType, "amount", amount)

	exec := r.getExecutor(tx)

	_, err := exec.ExecContext(ctx, `
		INSERT INTO user_spacecrafts (user_id, type, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, type)
		DO UPDATE SET amount = user_spacecrafts.amount + $3, updated_at = NOW()`,
		userID, shipType, amount,
	)
	if err != nil {
		logger.Error("Failed to add spacecraft", "error", err)
		return fmt.Errorf("failed to add spacecraft: %w", err)
	}

	logger.Debug("Spacecraft added")
	return nil
}

// RemoveSpacecraft destroys ships in the hangar, clamped at zero so combat
// losses never drive a count negative.
func (r *Repository) RemoveSpacecraft(ctx context.Context, tx *database.Tx, userID int, shipType Type, amount int) error {
	logger := r.logger.With("component", "spacecraft_repository", "operation", "remove_spacecraft", "user_id", userID, "type", shipType, "amount", amount)

	exec := r.getExecutor(tx)

	_, err := exec.ExecContext(ctx, `
		UPDATE user_spacecrafts
		SET amount = GREATEST(amount - $3, 0), updated_at = NOW()
		WHERE user_id = $1 AND type = $2`,
		userID, shipType, amount,
	)
	if err != nil {
		logger.Error("Failed to remove spacecraft", "error", err)
		return fmt.Errorf("failed to remove spacecraft: %w", err)
	}

	logger.Debug("Spacecraft removed")
	return nil
}

// ReserveForAction moves the manifest out of the user's hangar into lock rows
// bound to the action. Every row of one reservation shares a group id. Fails
// with a validation error when the hangar does not hold enough ships.
func (r *Repository) ReserveForAction(ctx context.Context, tx *database.Tx, userID int, actionID int64, manifest Manifest) (uuid.UUID, error) {
	logger := r.logger.With("component", "spacecraft_repository", "operation", "reserve_for_action", "user_id", userID, "action_id", actionID)

	exec := r.getExecutor(tx)
	groupID := uuid.New()

	for shipType, amount := range manifest {
		if amount <= 0 {
			continue
		}

		result, err := exec.ExecContext(ctx, `
			UPDATE user_spacecrafts
			SET amount = amount - $3, updated_at = NOW()
			WHERE user_id = $1 AND type = $2 AND amount >= $3`,
			userID, shipType, amount,
		)
		if err != nil {
			logger.Error("Failed to debit hangar", "error", err, "type", shipType)
			return uuid.Nil, fmt.Errorf("failed to debit hangar: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			logger.Debug("Insufficient spacecraft for reservation", "type", shipType, "requested", amount)
			return uuid.Nil, errors.Validationf("not enough %s spacecraft available", shipType)
		}

		_, err = exec.ExecContext(ctx, `
			INSERT INTO spacecraft_locks (action_id, group_id, user_id, type, amount, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
			actionID, groupID, userID, shipType, amount,
		)
		if err != nil {
			logger.Error("Failed to insert lock", "error", err, "type", shipType)
			return uuid.Nil, fmt.Errorf("failed to insert lock: %w", err)
		}
	}

	logger.Debug("Spacecraft reserved", "group_id", groupID)
	return groupID, nil
}

// GetLocks returns the lock rows of an action, empty when already released.
func (r *Repository) GetLocks(ctx context.Context, tx *database.Tx, actionID int64) ([]Lock, error) {
	logger := r.logger.With("component", "spacecraft_repository", "operation", "get_locks", "action_id", actionID)

	exec := r.getExecutor(tx)

	rows, err := exec.QueryContext(ctx,
		`SELECT id, action_id, group_id, user_id, type, amount, created_at
		 FROM spacecraft_locks WHERE action_id = $1 ORDER BY id`,
		actionID,
	)
	if err != nil {
		logger.Error("Failed to query locks", "error", err)
		return nil, fmt.Errorf("failed to query locks: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var locks []Lock
	for rows.Next() {
		var l Lock
		if err := rows.Scan(&l.ID, &l.ActionID, &l.GroupID, &l.UserID, &l.Type, &l.Amount, &l.CreatedAt); err != nil {
			logger.Error("Failed to scan lock", "error", err)
			return nil, fmt.Errorf("failed to scan lock: %w", err)
		}
		locks = append(locks, l)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating locks: %w", err)
	}

	return locks, nil
}

// ReleaseLocks deletes the action's lock rows and credits the surviving ships
// back to the hangar. Survivor counts are clamped to the locked amounts, so
// combat losses simply pass fewer survivors. Releasing an already released
// action is a no-op.
func (r *Repository) ReleaseLocks(ctx context.Context, tx *database.Tx, actionID int64, survivors Manifest) error {
	logger := r.logger.With("component", "spacecraft_repository", "operation", "release_locks", "action_id", actionID)

	locks, err := r.GetLocks(ctx, tx, actionID)
	if err != nil {
		return err
	}
	if len(locks) == 0 {
		logger.Debug("No locks to release")
		return nil
	}

	exec := r.getExecutor(tx)

	_, err = exec.ExecContext(ctx, `DELETE FROM spacecraft_locks WHERE action_id = $1`, actionID)
	if err != nil {
		logger.Error("Failed to delete locks", "error", err)
		return fmt.Errorf("failed to delete locks: %w", err)
	}

	for _, lock := range locks {
		returning := lock.Amount
		if survivors != nil {
			if surviving, ok := survivors[lock.Type]; ok && surviving < returning {
				returning = surviving
			}
		}
		if returning <= 0 {
			continue
		}

		if err := r.AddSpacecraft(ctx, tx, lock.UserID, lock.Type, returning); err != nil {
			return err
		}
	}

	logger.Debug("Locks released", "count", len(locks))
	return nil
}

// CountLocked sums locked ships of a type across all of a user's actions.
func (r *Repository) CountLocked(ctx context.Context, userID int, shipType Type) (int, error) {
	logger := r.logger.With("component", "spacecraft_repository", "operation", "count_locked", "user_id", userID, "type", shipType)

	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM spacecraft_locks WHERE user_id = $1 AND type = $2`,
		userID, shipType,
	).Scan(&total)
	if err != nil {
		logger.Error("Database error counting locks", "error", err)
		return 0, fmt.Errorf("database error: %w", err)
	}

	return int(total.Int64), nil
}
