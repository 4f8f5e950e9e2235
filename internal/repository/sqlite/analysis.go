package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/prepdeck/backend/internal/models"
)

func (r *SQLiteRepo) CreateAnalysis(ctx context.Context, userID string) (int64, error) {
	res, err := r.conn.Exec(ctx, `INSERT INTO resume_analyses (user_id, status, created) VALUES (?, ?, ?)`, userID, string(models.AnalysisPending), now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// CompleteAnalysis moves a pending row to completed. The status guard makes
// the pending -> terminal transition happen at most once.
func (r *SQLiteRepo) CompleteAnalysis(ctx context.Context, id int64, score float64, improvements, strengths []string) error {
	impJSON, err := json.Marshal(improvements)
	if err != nil {
		return fmt.Errorf("marshal improvements: %w", err)
	}
	strJSON, err := json.Marshal(strengths)
	if err != nil {
		return fmt.Errorf("marshal strengths: %w", err)
	}

	res, err := r.conn.Exec(ctx, `UPDATE resume_analyses SET score = ?, improvements = ?, strengths = ?, status = ? WHERE id = ? AND status = ?`,
		score, string(impJSON), string(strJSON), string(models.AnalysisCompleted), id, string(models.AnalysisPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("analysis %d is not pending", id)
	}

	return nil
}

func (r *SQLiteRepo) FailAnalysis(ctx context.Context, id int64) error {
	res, err := r.conn.Exec(ctx, `UPDATE resume_analyses SET status = ? WHERE id = ? AND status = ?`,
		string(models.AnalysisFailed), id, string(models.AnalysisPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("analysis %d is not pending", id)
	}

	return nil
}

// LatestAnalysis returns the newest row for the user; the newest row is
// authoritative regardless of older rows' statuses.
func (r *SQLiteRepo) LatestAnalysis(ctx context.Context, userID string) (*models.ResumeAnalysis, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, user_id, score, improvements, strengths, status, created FROM resume_analyses WHERE user_id = ? ORDER BY created DESC, id DESC LIMIT 1`, userID)
	var a models.ResumeAnalysis
	var score sql.NullFloat64
	var imp, str sql.NullString
	if err := row.Scan(&a.ID, &a.UserID, &score, &imp, &str, &a.Status, &a.Created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if score.Valid {
		v := score.Float64
		a.Score = &v
	}
	if imp.Valid && imp.String != "" {
		if err := json.Unmarshal([]byte(imp.String), &a.Improvements); err != nil {
			return nil, fmt.Errorf("unmarshal improvements: %w", err)
		}
	}
	if str.Valid && str.String != "" {
		if err := json.Unmarshal([]byte(str.String), &a.Strengths); err != nil {
			return nil, fmt.Errorf("unmarshal strengths: %w", err)
		}
	}

	return &a, nil
}
