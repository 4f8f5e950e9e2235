package sqlite

import (
	"context"
	"fmt"

	"github.com/prepdeck/backend/internal/models"
)

// SaveQuizBatch persists the full batch and flips quiz_generated in one
// transaction. The parser is fail-closed, so by the time a batch reaches
// this point every item already carries four options and a valid label.
func (r *SQLiteRepo) SaveQuizBatch(ctx context.Context, userID string, items []models.QuizItem) error {
	if len(items) == 0 {
		return fmt.Errorf("empty quiz batch")
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `INSERT INTO quiz_items (user_id, question, option_a, option_b, option_c, option_d, correct, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, item.Question, item.Options["A"], item.Options["B"], item.Options["C"], item.Options["D"], item.Correct, ts); err != nil {
			return fmt.Errorf("insert quiz item: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET quiz_generated = 1, updated = ? WHERE id = ?`, ts, userID); err != nil {
		return fmt.Errorf("flip quiz_generated: %w", err)
	}

	return tx.Commit()
}

func (r *SQLiteRepo) ListQuizItems(ctx context.Context, userID string) ([]models.QuizItem, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, user_id, question, option_a, option_b, option_c, option_d, correct, created FROM quiz_items WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QuizItem
	for rows.Next() {
		var item models.QuizItem
		var a, b, c, d string
		if err := rows.Scan(&item.ID, &item.UserID, &item.Question, &a, &b, &c, &d, &item.Correct, &item.Created); err != nil {
			return nil, err
		}
		item.Options = map[string]string{"A": a, "B": b, "C": c, "D": d}
		out = append(out, item)
	}

	return out, rows.Err()
}
