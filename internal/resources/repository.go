package resources

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"starbase-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing resources repository")

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

func (r *Repository) GetBalance(ctx context.Context, userID int, resource Type) (int64, error) {
	logger := r.logger.With("component", "resources_repository", "operation", "get_balance", "user_id", userID, "resource", resource)

	var amount int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM resource_balances WHERE user_id = $1 AND resource = $2`,
		userID, resource,
	).Scan(&amount)

	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		logger.Error("Database error getting balance", "error", err)
		return 0, fmt.Errorf("database error: %w", err)
	}

	return amount, nil
}

func (r *Repository) GetBalances(ctx context.Context, userID int) ([]Balance, error) {
	logger := r.logger.With("component", "resources_repository", "operation", "get_balances", "user_id", userID)

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, resource, amount, updated_at FROM resource_balances WHERE user_id = $1 ORDER BY resource`,
		userID,
	)
	if err != nil {
		logger.Error("Failed to query balances", "error", err)
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var balances []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.UserID, &b.Resource, &b.Amount, &b.UpdatedAt); err != nil {
			logger.Error("Failed to scan balance", "error", err)
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}

	return balances, nil
}

// Credit adds amount to the balance, clamped to the user's storage capacity.
// Overflow beyond capacity is discarded.
func (r *Repository) Credit(ctx context.Context, tx *database.Tx, userID int, resource Type, amount int64, capacity int64) error {
	logger := r.logger.With("component", "resources_repository", "operation", "credit", "user_id", userID, "resource", resource, "amount", amount)

	exec := r.getExecutor(tx)

	_, err := exec.ExecContext(ctx, `
		INSERT INTO resource_balances (user_id, resource, amount, updated_at)
		VALUES ($1, $2, LEAST($3::bigint, $4::bigint), NOW())
		ON CONFLICT (user_id, resource)
		DO UPDATE SET amount = LEAST(resource_balances.amount + $3, $4), updated_at = NOW()`,
		userID, resource, amount, capacity,
	)
	if err != nil {
		logger.Error("Failed to credit balance", "error", err)
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	logger.Debug("Balance credited")
	return nil
}

// Debit subtracts amount and reports whether the balance was sufficient.
func (r *Repository) Debit(ctx context.Context, tx *database.Tx, userID int, resource Type, amount int64) (bool, error) {
	logger := r.logger.With("component", "resources_repository", "operation", "debit", "user_id", userID, "resource", resource, "amount", amount)

	exec := r.getExecutor(tx)

	result, err := exec.ExecContext(ctx, `
		UPDATE resource_balances
		SET amount = amount - $3, updated_at = NOW()
		WHERE user_id = $1 AND resource = $2 AND amount >= $3`,
		userID, resource, amount,
	)
	if err != nil {
		logger.Error("Failed to debit balance", "error", err)
		return false, fmt.Errorf("failed to debit balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		logger.Debug("Insufficient balance for debit")
		return false, nil
	}

	logger.Debug("Balance debited")
	return true, nil
}
