package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"starbase-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing queue repository")

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

const entryColumns = `id, user_id, type, target_id, start_time, end_time, status, detail, created_at, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	var e Entry
	var detail []byte
	err := row.Scan(&e.ID, &e.UserID, &e.Type, &e.TargetID, &e.StartTime, &e.EndTime, &e.Status, &detail, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Detail = json.RawMessage(detail)
	return &e, nil
}

func (r *Repository) CreateEntry(ctx context.Context, tx *database.Tx, userID int, actionType ActionType, targetID int64, endTime time.Time, detail json.RawMessage) (*Entry, error) {
	logger := r.logger.With("component", "queue_repository", "operation", "create_entry", "user_id", userID, "type", actionType)

	exec := r.getExecutor(tx)

	row := exec.QueryRowContext(ctx, `
		INSERT INTO action_queue (user_id, type, target_id, start_time, end_time, status, detail, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), $4, 'pending', $5, NOW(), NOW())
		RETURNING `+entryColumns,
		userID, actionType, targetID, endTime, []byte(detail),
	)

	entry, err := scanEntry(row)
	if err != nil {
		logger.Error("Failed to create entry", "error", err)
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	logger.Debug("Entry created", "entry_id", entry.ID, "end_time", entry.EndTime)
	return entry, nil
}

func (r *Repository) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	logger := r.logger.With("component", "queue_repository", "operation", "get_entry", "entry_id", id)

	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM action_queue WHERE id = $1`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Database error getting entry", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return entry, nil
}

func (r *Repository) GetUserEntries(ctx context.Context, userID int) ([]Entry, error) {
	logger := r.logger.With("component", "queue_repository", "operation", "get_user_entries", "user_id", userID)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM action_queue WHERE user_id = $1 ORDER BY end_time`,
		userID,
	)
	if err != nil {
		logger.Error("Failed to query entries", "error", err)
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	return collectEntries(rows, logger)
}

func collectEntries(rows *sql.Rows, logger *slog.Logger) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			logger.Error("Failed to scan entry", "error", err)
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// ClaimDue atomically flips due, non-terminal entries to processing and
// returns the claimed rows. The conditional update inside the id-selecting
// subquery is what guarantees at-most-once claiming across concurrent
// workers; SKIP LOCKED keeps competing passes from blocking on each other.
func (r *Repository) ClaimDue(ctx context.Context, limit int) ([]Entry, error) {
	logger := r.logger.With("component", "queue_repository", "operation", "claim_due", "limit", limit)

	rows, err := r.db.QueryContext(ctx, `
		UPDATE action_queue
		SET status = 'processing', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM action_queue
			WHERE end_time <= NOW() AND status IN ('pending', 'in_progress')
			ORDER BY end_time
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+entryColumns,
		limit,
	)
	if err != nil {
		logger.Error("Failed to claim due entries", "error", err)
		return nil, fmt.Errorf("failed to claim due entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	entries, err := collectEntries(rows, logger)
	if err != nil {
		return nil, err
	}

	if len(entries) > 0 {
		logger.Debug("Claimed due entries", "count", len(entries))
	}
	return entries, nil
}

// ClaimDueForUser claims one user's due entries, used by the instant pass.
func (r *Repository) ClaimDueForUser(ctx context.Context, userID int) ([]Entry, error) {
	logger := r.logger.With("component", "queue_repository", "operation", "claim_due_for_user", "user_id", userID)

	rows, err := r.db.QueryContext(ctx, `
		UPDATE action_queue
		SET status = 'processing', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM action_queue
			WHERE user_id = $1 AND end_time <= NOW() AND status IN ('pending', 'in_progress')
			ORDER BY end_time
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+entryColumns,
		userID,
	)
	if err != nil {
		logger.Error("Failed to claim user entries", "error", err)
		return nil, fmt.Errorf("failed to claim user entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	return collectEntries(rows, logger)
}

// ResetStuck returns entries stuck in processing longer than the timeout to
// in_progress so a later pass can claim them again. A stuck transition is
// treated as a crashed worker, not a permanent failure.
func (r *Repository) ResetStuck(ctx context.Context, timeout time.Duration) (int, error) {
	logger := r.logger.With("component", "queue_repository", "operation", "reset_stuck", "timeout", timeout)

	result, err := r.db.ExecContext(ctx, `
		UPDATE action_queue
		SET status = 'in_progress', updated_at = NOW()
		WHERE status = 'processing' AND updated_at < NOW() - ($1 * INTERVAL '1 second')`,
		int(timeout.Seconds()),
	)
	if err != nil {
		logger.Error("Failed to reset stuck entries", "error", err)
		return 0, fmt.Errorf("failed to reset stuck entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected > 0 {
		logger.Warn("Reset stuck entries", "count", affected)
	}
	return int(affected), nil
}

// CancelEntry conditionally transitions an unclaimed entry to cancelled and
// returns it. Returns nil when the entry is already claimed or terminal; the
// same status-field condition that backs claiming closes the cancel race.
func (r *Repository) CancelEntry(ctx context.Context, tx *database.Tx, id int64, userID int) (*Entry, error) {
	logger := r.logger.With("component", "queue_repository", "operation", "cancel_entry", "entry_id", id, "user_id", userID)

	exec := r.getExecutor(tx)

	row := exec.QueryRowContext(ctx, `
		UPDATE action_queue
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status IN ('pending', 'in_progress')
		RETURNING `+entryColumns,
		id, userID,
	)

	entry, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Entry not cancellable")
			return nil, nil
		}
		logger.Error("Failed to cancel entry", "error", err)
		return nil, fmt.Errorf("failed to cancel entry: %w", err)
	}

	logger.Info("Entry cancelled")
	return entry, nil
}

// ArchiveAndDelete copies a terminal entry into the archive and removes it
// from the live queue. Both statements run on the caller's transaction so
// the entry cannot vanish without a history row or linger after archival.
func (r *Repository) ArchiveAndDelete(ctx context.Context, tx *database.Tx, entry *Entry, finalStatus Status) error {
	logger := r.logger.With("component", "queue_repository", "operation", "archive_and_delete", "entry_id", entry.ID, "final_status", finalStatus)

	exec := r.getExecutor(tx)

	_, err := exec.ExecContext(ctx, `
		INSERT INTO action_queue_archive (entry_id, user_id, type, target_id, start_time, end_time, status, detail, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		entry.ID, entry.UserID, entry.Type, entry.TargetID, entry.StartTime, entry.EndTime, finalStatus, []byte(entry.Detail),
	)
	if err != nil {
		logger.Error("Failed to insert archive row", "error", err)
		return fmt.Errorf("failed to insert archive row: %w", err)
	}

	result, err := exec.ExecContext(ctx, `DELETE FROM action_queue WHERE id = $1`, entry.ID)
	if err != nil {
		logger.Error("Failed to delete live entry", "error", err)
		return fmt.Errorf("failed to delete live entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		logger.Error("Live entry missing during archival")
		return fmt.Errorf("entry %d missing during archival", entry.ID)
	}

	logger.Debug("Entry archived")
	return nil
}

func (r *Repository) GetUserArchive(ctx context.Context, userID int, limit int) ([]ArchiveEntry, error) {
	logger := r.logger.With("component", "queue_repository", "operation", "get_user_archive", "user_id", userID)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_id, user_id, type, target_id, start_time, end_time, status, detail, archived_at
		FROM action_queue_archive
		WHERE user_id = $1
		ORDER BY archived_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		logger.Error("Failed to query archive", "error", err)
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var entries []ArchiveEntry
	for rows.Next() {
		var a ArchiveEntry
		var detail []byte
		if err := rows.Scan(&a.ID, &a.EntryID, &a.UserID, &a.Type, &a.TargetID, &a.StartTime, &a.EndTime, &a.Status, &detail, &a.ArchivedAt); err != nil {
			logger.Error("Failed to scan archive entry", "error", err)
			return nil, fmt.Errorf("failed to scan archive entry: %w", err)
		}
		a.Detail = json.RawMessage(detail)
		entries = append(entries, a)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating archive: %w", err)
	}

	return entries, nil
}

func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	logger := r.logger.With("component", "queue_repository", "operation", "get_stats")

	var stats Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			(SELECT COUNT(*) FROM action_queue_archive)
		FROM action_queue`,
	).Scan(&stats.Pending, &stats.InProgress, &stats.Processing, &stats.Archived)

	if err != nil {
		logger.Error("Failed to query queue stats", "error", err)
		return nil, fmt.Errorf("failed to query queue stats: %w", err)
	}

	return &stats, nil
}
