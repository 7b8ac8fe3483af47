package station

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"starbase-server/internal/shared/database"
	"starbase-server/internal/spatial"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing station repository")

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

func (r *Repository) CreateStation(ctx context.Context, tx *database.Tx, userID int, name string, p spatial.Point) (*Station, error) {
	logger := r.logger.With("component", "station_repository", "operation", "create_station", "user_id", userID, "name", name)
	logger.Info("Creating station")

	exec := r.getExecutor(tx)

	var s Station
	err := exec.QueryRowContext(ctx, `
		INSERT INTO stations (user_id, name, x, y)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, x, y, created_at, updated_at`,
		userID, name, p.X, p.Y,
	).Scan(&s.ID, &s.UserID, &s.Name, &s.X, &s.Y, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		logger.Error("Failed to create station", "error", err)
		return nil, fmt.Errorf("failed to create station: %w", err)
	}

	logger.Info("Station created successfully", "station_id", s.ID)
	return &s, nil
}

func (r *Repository) GetStationByUserID(ctx context.Context, userID int) (*Station, error) {
	logger := r.logger.With("component", "station_repository", "operation", "get_station", "user_id", userID)

	var s Station
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, x, y, created_at, updated_at
		FROM stations WHERE user_id = $1`,
		userID,
	).Scan(&s.ID, &s.UserID, &s.Name, &s.X, &s.Y, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Station not found")
			return nil, nil
		}
		logger.Error("Database error getting station", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &s, nil
}

// GetStationPoint resolves just the coordinates of a user's station, nil
// when the user has none.
func (r *Repository) GetStationPoint(ctx context.Context, userID int) (*spatial.Point, error) {
	s, err := r.GetStationByUserID(ctx, userID)
	if err != nil || s == nil {
		return nil, err
	}
	return &spatial.Point{X: s.X, Y: s.Y}, nil
}

func (r *Repository) GetStationPoints(ctx context.Context) ([]spatial.Point, error) {
	return r.queryPoints(ctx, `SELECT x, y FROM stations`)
}

func (r *Repository) GetRegionPoints(ctx context.Context) ([]spatial.Point, error) {
	return r.queryPoints(ctx, `SELECT x, y FROM station_regions`)
}

func (r *Repository) queryPoints(ctx context.Context, query string) ([]spatial.Point, error) {
	logger := r.logger.With("component", "station_repository", "operation", "query_points")

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query points", "error", err)
		return nil, fmt.Errorf("failed to query points: %w", err)
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

func (r *Repository) CountStations(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stations: %w", err)
	}
	return count, nil
}

func (r *Repository) CountUnusedRegions(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM station_regions WHERE used = false`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unused regions: %w", err)
	}
	return count, nil
}

func (r *Repository) CreateRegion(ctx context.Context, region Region) (int64, error) {
	logger := r.logger.With("component", "station_repository", "operation", "create_region", "x", region.X, "y", region.Y)

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO station_regions (x, y, station_radius, asteroid_radius, used)
		VALUES ($1, $2, $3, $4, false)
		RETURNING id`,
		region.X, region.Y, region.StationRadius, region.AsteroidRadius,
	).Scan(&id)

	if err != nil {
		logger.Error("Failed to create region", "error", err)
		return 0, fmt.Errorf("failed to create region: %w", err)
	}

	logger.Debug("Region reserved", "region_id", id)
	return id, nil
}

// ClaimUnusedRegion atomically marks one unused region as consumed by the
// given user and returns it, or nil when the pool is empty. SKIP LOCKED
// keeps two concurrent signups from fighting over the same row.
func (r *Repository) ClaimUnusedRegion(ctx context.Context, tx *database.Tx, userID int) (*Region, error) {
	logger := r.logger.With("component", "station_repository", "operation", "claim_region", "user_id", userID)

	exec := r.getExecutor(tx)

	var region Region
	err := exec.QueryRowContext(ctx, `
		UPDATE station_regions
		SET used = true, assigned_user_id = $1
		WHERE id = (
			SELECT id FROM station_regions
			WHERE used = false
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, x, y, station_radius, asteroid_radius, used, assigned_user_id, created_at`,
		userID,
	).Scan(&region.ID, &region.X, &region.Y, &region.StationRadius, &region.AsteroidRadius, &region.Used, &region.AssignedUserID, &region.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Region pool is empty")
			return nil, nil
		}
		logger.Error("Failed to claim region", "error", err)
		return nil, fmt.Errorf("failed to claim region: %w", err)
	}

	logger.Info("Region claimed", "region_id", region.ID)
	return &region, nil
}

// AssignRegionToUser claims one unused region and creates the user's station
// at its coordinates in a single transaction, so a failure leaves neither a
// consumed region nor a partial station. Returns nil when the pool is empty.
func (r *Repository) AssignRegionToUser(ctx context.Context, userID int, name string) (*Station, error) {
	logger := r.logger.With("component", "station_repository", "operation", "assign_region", "user_id", userID)

	tx, err := r.db.BeginTxContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	region, err := r.ClaimUnusedRegion(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, nil
	}

	station, err := r.CreateStation(ctx, tx, userID, name, spatial.Point{X: region.X, Y: region.Y})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit region assignment", "error", err)
		return nil, fmt.Errorf("failed to commit region assignment: %w", err)
	}

	logger.Info("Region assigned and station created", "region_id", region.ID, "station_id", station.ID)
	return station, nil
}
