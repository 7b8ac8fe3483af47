package universe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"starbase-server/internal/resources"
	"starbase-server/internal/shared/database"
	"starbase-server/internal/spatial"

	"github.com/lib/pq"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing universe repository")

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

type asteroidInsert struct {
	Name       string  `json:"Name"`
	Size       string  `json:"Size"`
	Base       int     `json:"Base"`
	Multiplier float64 `json:"Multiplier"`
	Value      int     `json:"Value"`
	X          int     `json:"X"`
	Y          int     `json:"Y"`
}

type depositInsert struct {
	AsteroidID int64  `json:"AsteroidID"`
	Resource   string `json:"Resource"`
	Amount     int64  `json:"Amount"`
}

// CreateAsteroidsBatch persists a batch of asteroids and their deposits in a
// single transaction, using one JSON bulk insert per table.
func (r *Repository) CreateAsteroidsBatch(ctx context.Context, asteroids []Asteroid) error {
	if len(asteroids) == 0 {
		return nil
	}

	logger := r.logger.With(
		"component", "universe_repository",
		"operation", "create_asteroids_batch",
		"count", len(asteroids),
	)
	logger.Debug("Creating asteroids in batch")

	inserts := make([]asteroidInsert, 0, len(asteroids))
	for _, a := range asteroids {
		inserts = append(inserts, asteroidInsert{
			Name:       a.Name,
			Size:       string(a.Size),
			Base:       a.Base,
			Multiplier: a.Multiplier,
			Value:      a.Value,
			X:          a.X,
			Y:          a.Y,
		})
	}

	asteroidsJSON, err := json.Marshal(inserts)
	if err != nil {
		logger.Error("Failed to marshal asteroids to JSON", "error", err)
		return fmt.Errorf("failed to marshal asteroids: %w", err)
	}

	tx, err := r.db.BeginTxContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	query := `
		INSERT INTO asteroids (name, size, base, multiplier, value, x, y)
		SELECT
			data->>'Name',
			(data->>'Size')::asteroid_size,
			(data->>'Base')::integer,
			(data->>'Multiplier')::double precision,
			(data->>'Value')::integer,
			(data->>'X')::integer,
			(data->>'Y')::integer
		FROM json_array_elements($1::json) AS data
		RETURNING id`

	rows, err := tx.QueryContext(ctx, query, string(asteroidsJSON))
	if err != nil {
		logger.Error("Failed to batch create asteroids", "error", err)
		return fmt.Errorf("failed to batch create asteroids: %w", err)
	}

	ids := make([]int64, 0, len(asteroids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			logger.Error("Failed to scan asteroid ID", "error", err)
			return fmt.Errorf("failed to scan asteroid ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		logger.Error("Error during rows iteration", "error", err)
		return fmt.Errorf("error iterating asteroid IDs: %w", err)
	}
	if err := rows.Close(); err != nil {
		logger.Error("Failed to close rows", "error", err)
	}

	if len(ids) != len(asteroids) {
		return fmt.Errorf("asteroid batch insert returned %d ids for %d rows", len(ids), len(asteroids))
	}

	var deposits []depositInsert
	for i, a := range asteroids {
		for _, d := range a.Deposits {
			deposits = append(deposits, depositInsert{
				AsteroidID: ids[i],
				Resource:   string(d.Resource),
				Amount:     d.Amount,
			})
		}
	}

	depositsJSON, err := json.Marshal(deposits)
	if err != nil {
		logger.Error("Failed to marshal deposits to JSON", "error", err)
		return fmt.Errorf("failed to marshal deposits: %w", err)
	}

	depositQuery := `
		INSERT INTO asteroid_deposits (asteroid_id, resource, amount)
		SELECT
			(data->>'AsteroidID')::bigint,
			data->>'Resource',
			(data->>'Amount')::bigint
		FROM json_array_elements($1::json) AS data`

	if _, err := tx.ExecContext(ctx, depositQuery, string(depositsJSON)); err != nil {
		logger.Error("Failed to batch create deposits", "error", err)
		return fmt.Errorf("failed to batch create deposits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit asteroid batch", "error", err)
		return fmt.Errorf("failed to commit asteroid batch: %w", err)
	}

	logger.Info("Asteroid batch created successfully", "asteroids", len(ids), "deposits", len(deposits))
	return nil
}

func (r *Repository) GetAsteroidPoints(ctx context.Context) ([]AsteroidPoint, error) {
	logger := r.logger.With("component", "universe_repository", "operation", "get_asteroid_points")
	logger.Debug("Loading asteroid points")

	rows, err := r.db.QueryContext(ctx, `SELECT id, x, y, size FROM asteroids`)
	if err != nil {
		logger.Error("Failed to query asteroid points", "error", err)
		return nil, fmt.Errorf("failed to query asteroid points: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var points []AsteroidPoint
	for rows.Next() {
		var p AsteroidPoint
		if err := rows.Scan(&p.ID, &p.X, &p.Y, &p.Size); err != nil {
			logger.Error("Failed to scan asteroid point", "error", err)
			return nil, fmt.Errorf("failed to scan asteroid point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating asteroid points: %w", err)
	}

	return points, nil
}

// GetAsteroid returns the asteroid with its deposits, nil when absent.
func (r *Repository) GetAsteroid(ctx context.Context, id int64) (*Asteroid, error) {
	logger := r.logger.With("component", "universe_repository", "operation", "get_asteroid", "asteroid_id", id)

	var a Asteroid
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, size, base, multiplier, value, x, y, created_at, updated_at
		FROM asteroids WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Name, &a.Size, &a.Base, &a.Multiplier, &a.Value, &a.X, &a.Y, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Database error getting asteroid", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, asteroid_id, resource, amount
		FROM asteroid_deposits WHERE asteroid_id = $1 ORDER BY resource`,
		id,
	)
	if err != nil {
		logger.Error("Failed to query deposits", "error", err)
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var d Deposit
		if err := rows.Scan(&d.ID, &d.AsteroidID, &d.Resource, &d.Amount); err != nil {
			logger.Error("Failed to scan deposit", "error", err)
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		a.Deposits = append(a.Deposits, d)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}

	return &a, nil
}

// GetAsteroidForUpdate locks the asteroid row and its deposits for the
// duration of the caller's transaction.
func (r *Repository) GetAsteroidForUpdate(ctx context.Context, tx *database.Tx, id int64) (*Asteroid, error) {
	logger := r.logger.With("component", "universe_repository", "operation", "get_asteroid_for_update", "asteroid_id", id)

	exec := r.getExecutor(tx)

	var a Asteroid
	err := exec.QueryRowContext(ctx, `
		SELECT id, name, size, base, multiplier, value, x, y, created_at, updated_at
		FROM asteroids WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&a.ID, &a.Name, &a.Size, &a.Base, &a.Multiplier, &a.Value, &a.X, &a.Y, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Asteroid not found")
			return nil, nil
		}
		logger.Error("Database error getting asteroid", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT id, asteroid_id, resource, amount
		FROM asteroid_deposits WHERE asteroid_id = $1 ORDER BY resource FOR UPDATE`,
		id,
	)
	if err != nil {
		logger.Error("Failed to query deposits", "error", err)
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var d Deposit
		if err := rows.Scan(&d.ID, &d.AsteroidID, &d.Resource, &d.Amount); err != nil {
			logger.Error("Failed to scan deposit", "error", err)
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		a.Deposits = append(a.Deposits, d)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}

	return &a, nil
}

func (r *Repository) UpdateDepositAmount(ctx context.Context, tx *database.Tx, depositID int64, amount int64) error {
	exec := r.getExecutor(tx)

	if amount <= 0 {
		_, err := exec.ExecContext(ctx, `DELETE FROM asteroid_deposits WHERE id = $1`, depositID)
		if err != nil {
			return fmt.Errorf("failed to delete deposit: %w", err)
		}
		return nil
	}

	_, err := exec.ExecContext(ctx, `UPDATE asteroid_deposits SET amount = $2 WHERE id = $1`, depositID, amount)
	if err != nil {
		return fmt.Errorf("failed to update deposit: %w", err)
	}
	return nil
}

// DeleteAsteroid removes a fully depleted asteroid; deposits cascade.
func (r *Repository) DeleteAsteroid(ctx context.Context, tx *database.Tx, id int64) error {
	logger := r.logger.With("component", "universe_repository", "operation", "delete_asteroid", "asteroid_id", id)

	exec := r.getExecutor(tx)

	if _, err := exec.ExecContext(ctx, `DELETE FROM asteroids WHERE id = $1`, id); err != nil {
		logger.Error("Failed to delete asteroid", "error", err)
		return fmt.Errorf("failed to delete asteroid: %w", err)
	}

	logger.Info("Asteroid deleted")
	return nil
}

func (r *Repository) GetStats(ctx context.Context) (Stats, error) {
	logger := r.logger.With("component", "universe_repository", "operation", "get_stats")

	var stats Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM asteroids),
			(SELECT COUNT(*) FROM asteroid_deposits)`,
	).Scan(&stats.AsteroidCount, &stats.DepositCount)

	if err != nil {
		logger.Error("Failed to query universe stats", "error", err)
		return Stats{}, fmt.Errorf("failed to query universe stats: %w", err)
	}

	return stats, nil
}

// CountAsteroidsNear returns how many asteroids lie within radius of center,
// used by scan features and tests against live data.
func (r *Repository) CountAsteroidsNear(ctx context.Context, center spatial.Point, radius int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM asteroids
		WHERE (x - $1) * (x - $1) + (y - $2) * (y - $2) <= $3 * $3`,
		center.X, center.Y, radius,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count nearby asteroids: %w", err)
	}
	return count, nil
}

// GetHighValueAsteroidPoints returns the locations of asteroids carrying at
// least one high or extreme pool deposit. Region reservation keeps new
// station placements farther from these.
func (r *Repository) GetHighValueAsteroidPoints(ctx context.Context) ([]spatial.Point, error) {
	logger := r.logger.With("component", "universe_repository", "operation", "get_high_value_points")
	logger.Debug("Loading high-value asteroid points")

	var highValue []string
	for _, pool := range []resources.Pool{resources.PoolHigh, resources.PoolExtreme} {
		for _, t := range resources.ByPool[pool] {
			highValue = append(highValue, string(t))
		}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT a.x, a.y FROM asteroids a
		WHERE EXISTS (
			SELECT 1 FROM asteroid_deposits d
			WHERE d.asteroid_id = a.id AND d.resource = ANY($1)
		)`,
		pq.Array(highValue),
	)
	if err != nil {
		logger.Error("Failed to query high-value asteroid points", "error", err)
		return nil, fmt.Errorf("failed to query high-value asteroid points: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var points []spatial.Point
	for rows.Next() {
		var p spatial.Point
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			logger.Error("Failed to scan point", "error", err)
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating points: %w", err)
	}

	return points, nil
}
