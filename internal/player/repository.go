package player

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
	logger.Debug("Initializing player repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindUser returns the player with the given id, nil when absent.
func (r *Repository) FindUser(ctx context.Context, userID int) (*Player, error) {
	logger := r.logger.With("component", "player_repository", "operation", "find_user", "user_id", userID)

	var p Player
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, created_at, updated_at FROM players WHERE id = $1`,
		userID,
	).Scan(&p.ID, &p.Username, &p.Email, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Database error finding user", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &p, nil
}

func (r *Repository) CreatePlayer(ctx context.Context, username, email string) (*Player, error) {
	logger := r.logger.With("component", "player_repository", "operation", "create_player", "username", username)

	var p Player
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO players (username, email, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, username, email, created_at, updated_at`,
		username, email,
	).Scan(&p.ID, &p.Username, &p.Email, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		logger.Error("Failed to create player", "error", err)
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	logger.Info("Player created", "player_id", p.ID)
	return &p, nil
}
