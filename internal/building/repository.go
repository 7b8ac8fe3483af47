package building

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
	logger.Debug("Initializing building repository")

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

// GetLevel returns the user's level for a building type, 0 when not built.
func (r *Repository) GetLevel(ctx context.Context, tx *database.Tx, userID int, buildingType Type) (int, error) {
	logger := r.logger.With("component", "building_repository", "operation", "get_level", "user_id", userID, "type", buildingType)

	exec := r.getExecutor(tx)

	var level int
	err := exec.QueryRowContext(ctx,
		`SELECT level FROM user_buildings WHERE user_id = $1 AND type = $2`,
		userID, buildingType,
	).Scan(&level)

	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		logger.Error("Database error getting level", "error", err)
		return 0, fmt.Errorf("database error: %w", err)
	}

	return level, nil
}

func (r *Repository) GetBuildings(ctx context.Context, userID int) ([]Building, error) {
	logger := r.logger.With("component", "building_repository", "operation", "get_buildings", "user_id", userID)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, level, created_at, updated_at
		 FROM user_buildings WHERE user_id = $1 ORDER BY type`,
		userID,
	)
	if err != nil {
		logger.Error("Failed to query buildings", "error", err)
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var buildings []Building
	for rows.Next() {
		var b Building
		if err := rows.Scan(&b.ID, &b.UserID, &b.Type, &b.Level, &b.CreatedAt, &b.UpdatedAt); err != nil {
			logger.Error("Failed to scan building", "error", err)
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		buildings = append(buildings, b)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating buildings: %w", err)
	}

	return buildings, nil
}

// SetLevel upserts the user's building to the given level.
func (r *Repository) SetLevel(ctx context.Context, tx *database.Tx, userID int, buildingType Type, level int) error {
	logger := r.logger.With("component", "building_repository", "operation", "set_level", "user_id", userID, "type", buildingType, "level", level)

	exec := r.getExecutor(tx)

	_, err := exec.ExecContext(ctx, `
		INSERT INTO user_buildings (user_id, type, level, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id, type)
		DO UPDATE SET level = $3, updated_at = NOW()`,
		userID, buildingType, level,
	)
	if err != nil {
		logger.Error("Failed to set building level", "error", err)
		return fmt.Errorf("failed to set building level: %w", err)
	}

	logger.Debug("Building level set")
	return nil
}
