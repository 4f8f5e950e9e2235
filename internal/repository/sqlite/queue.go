package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prepdeck/backend/internal/models"
)

// Enqueue inserts a queue job and returns the new ID
func (r *SQLiteRepo) Enqueue(ctx context.Context, j *models.QueueJob) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("queue job is nil")
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt == 0 {
		j.ScheduledAt = time.Now().UTC().Unix()
	}

	ts := time.Now().UTC().Unix()
	res, err := r.conn.Exec(ctx, `INSERT INTO queue_jobs (type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.Type, string(j.Payload), "queued", j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}

	return res.LastInsertId()
}

// FetchNext fetches and claims the next available queue job respecting
// priority and schedule. The conditional UPDATE is the claim: concurrent
// workers race on the same row and only the one that flips it to running
// gets the job, the others retry on the next candidate.
func (r *SQLiteRepo) FetchNext(ctx context.Context) (*models.QueueJob, error) {
	q := `SELECT id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated FROM queue_jobs WHERE (status = 'queued' OR status = 'retry') AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ? ORDER BY priority ASC, scheduled_at ASC LIMIT 1`
	for {
		nowUnix := time.Now().UTC().Unix()
		row := r.conn.QueryRow(ctx, q, nowUnix, nowUnix)

		var j models.QueueJob
		var payload sql.NullString
		var nextTry sql.NullInt64
		var lastError sql.NullString
		if err := row.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority, &j.ScheduledAt, &nextTry, &lastError, &j.Created, &j.Updated); err != nil {
			if err == sql.ErrNoRows {
				return nil, nil
			}
			return nil, fmt.Errorf("fetch next queue job: %w", err)
		}

		res, err := r.conn.Exec(ctx, `UPDATE queue_jobs SET status = 'running', updated = ? WHERE id = ? AND status IN ('queued', 'retry')`, nowUnix, j.ID)
		if err != nil {
			return nil, fmt.Errorf("claim queue job: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// lost the race for this row, look for another
			continue
		}
		j.Status = "running"

		if payload.Valid {
			j.Payload = json.RawMessage(payload.String)
		}
		if nextTry.Valid {
			v := nextTry.Int64
			j.NextTryAt = &v
		}
		if lastError.Valid {
			j.LastError = lastError.String
		}

		return &j, nil
	}
}

// UpdateQueueJob updates status, attempts, next_try_at, last_error
func (r *SQLiteRepo) UpdateQueueJob(ctx context.Context, j *models.QueueJob) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = *j.NextTryAt
	}

	_, err := r.conn.Exec(ctx, `UPDATE queue_jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`,
		j.Status, j.Attempts, nextTry, j.LastError, time.Now().UTC().Unix(), j.ID)
	return err
}

// MoveToDeadLetter moves a queue job to dead_letter_jobs and deletes the original
func (r *SQLiteRepo) MoveToDeadLetter(ctx context.Context, j *models.QueueJob) error {
	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	insert := `INSERT INTO dead_letter_jobs (job_id, type, payload, attempts, last_error, failed_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, time.Now().UTC().Unix()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_jobs WHERE id = ?`, j.ID); err != nil {
		return err
	}

	return tx.Commit()
}
