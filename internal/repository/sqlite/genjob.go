package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prepdeck/backend/internal/models"
)

// TryStartJob is the single atomic transition that guards job starts. The
// conditional UPDATE replaces any read-then-write sequence: two concurrent
// callers race on the same row and exactly one sees rows-affected == 1.
func (r *SQLiteRepo) TryStartJob(ctx context.Context, userID string, kind models.JobKind) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("invalid job kind %q", kind)
	}

	// make sure the row exists; a no-op when it already does
	if _, err := r.conn.Exec(ctx, `INSERT OR IGNORE INTO generation_jobs (user_id, kind, status, updated) VALUES (?, ?, ?, ?)`,
		userID, string(kind), string(models.JobIdle), now()); err != nil {
		return false, fmt.Errorf("ensure job row: %w", err)
	}

	res, err := r.conn.Exec(ctx, `UPDATE generation_jobs SET status = ?, updated = ? WHERE user_id = ? AND kind = ? AND status != ?`,
		string(models.JobRunning), now(), userID, string(kind), string(models.JobRunning))
	if err != nil {
		return false, fmt.Errorf("start job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// FinishJob moves a running job to a terminal status, refusing transitions
// the state table does not allow.
func (r *SQLiteRepo) FinishJob(ctx context.Context, userID string, kind models.JobKind, status models.JobStatus) error {
	if !models.CanTransition(models.JobRunning, status) {
		return fmt.Errorf("job transition running -> %s is not allowed", status)
	}

	res, err := r.conn.Exec(ctx, `UPDATE generation_jobs SET status = ?, updated = ? WHERE user_id = ? AND kind = ? AND status = ?`,
		string(status), now(), userID, string(kind), string(models.JobRunning))
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job (%s, %s) is not running", userID, kind)
	}

	return nil
}

func (r *SQLiteRepo) GetJob(ctx context.Context, userID string, kind models.JobKind) (*models.GenerationJob, error) {
	row := r.conn.QueryRow(ctx, `SELECT user_id, kind, status, updated FROM generation_jobs WHERE user_id = ? AND kind = ?`, userID, string(kind))
	var j models.GenerationJob
	if err := row.Scan(&j.UserID, &j.Kind, &j.Status, &j.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &j, nil
}
