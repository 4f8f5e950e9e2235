package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prepdeck/backend/internal/models"
)

// SaveQuestionBatches writes all batches and flips questions_generated in one
// transaction. The all-or-nothing commit is the point: a partial question set
// must never become visible.
func (r *SQLiteRepo) SaveQuestionBatches(ctx context.Context, userID string, batches map[models.QuestionKind][]string) error {
	if len(batches) == 0 {
		return fmt.Errorf("no question batches to save")
	}
	for kind, qs := range batches {
		if !kind.Valid() {
			return fmt.Errorf("invalid question kind %q", kind)
		}
		if len(qs) == 0 {
			return fmt.Errorf("empty question batch for kind %q", kind)
		}
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	for kind, qs := range batches {
		for _, q := range qs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO questions (user_id, kind, question, created) VALUES (?, ?, ?, ?)`, userID, string(kind), q, ts); err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET questions_generated = 1, updated = ? WHERE id = ?`, ts, userID); err != nil {
		return fmt.Errorf("flip questions_generated: %w", err)
	}

	return tx.Commit()
}

func (r *SQLiteRepo) ListQuestions(ctx context.Context, userID string, kind models.QuestionKind) ([]models.Question, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, user_id, kind, question, answer, created FROM questions WHERE user_id = ? AND kind = ? ORDER BY id`, userID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var q models.Question
		var answer sql.NullString
		if err := rows.Scan(&q.ID, &q.UserID, &q.Kind, &q.Question, &answer, &q.Created); err != nil {
			return nil, err
		}

		if answer.Valid {
			v := answer.String
			q.Answer = &v
		}
		out = append(out, q)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, user_id, kind, question, answer, created FROM questions WHERE id = ?`, id)
	var q models.Question
	var answer sql.NullString
	if err := row.Scan(&q.ID, &q.UserID, &q.Kind, &q.Question, &answer, &q.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if answer.Valid {
		v := answer.String
		q.Answer = &v
	}

	return &q, nil
}

// AttachAnswer fills the answer exactly once; the IS NULL guard keeps a
// concurrent second generation from overwriting the cached answer.
func (r *SQLiteRepo) AttachAnswer(ctx context.Context, id int64, answer string) error {
	_, err := r.conn.Exec(ctx, `UPDATE questions SET answer = ? WHERE id = ? AND answer IS NULL`, answer, id)
	return err
}

func (r *SQLiteRepo) CountQuestionsByKind(ctx context.Context, userID string) (map[models.QuestionKind]int64, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT kind, COUNT(1) FROM questions WHERE user_id = ? GROUP BY kind`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[models.QuestionKind]int64{
		models.KindResume:  0,
		models.KindRole:    0,
		models.KindCompany: 0,
	}
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		out[models.QuestionKind(kind)] = count
	}

	return out, rows.Err()
}
