package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prepdeck/backend/internal/models"
)

func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO users (id, email, name, company, role, resume_text, questions_generated, quiz_generated, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			company = excluded.company,
			role = excluded.role,
			resume_text = excluded.resume_text,
			questions_generated = excluded.questions_generated,
			quiz_generated = excluded.quiz_generated,
			updated = excluded.updated`,
		u.ID, u.Email, u.Name, u.Company, u.Role, u.ResumeText, boolToInt(u.QuestionsGenerated), boolToInt(u.QuizGenerated), now())
	return err
}

func (r *SQLiteRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	return r.scanUser(r.conn.QueryRow(ctx, `SELECT id, email, name, company, role, resume_text, questions_generated, quiz_generated, updated FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.conn.QueryRow(ctx, `SELECT id, email, name, company, role, resume_text, questions_generated, quiz_generated, updated FROM users WHERE email = ?`, email))
}

func (r *SQLiteRepo) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var company, role, resume sql.NullString
	var questionsGenerated, quizGenerated int
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &company, &role, &resume, &questionsGenerated, &quizGenerated, &u.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if company.Valid {
		u.Company = company.String
	}
	if role.Valid {
		u.Role = role.String
	}
	if resume.Valid {
		u.ResumeText = resume.String
	}
	u.QuestionsGenerated = questionsGenerated != 0
	u.QuizGenerated = quizGenerated != 0

	return &u, nil
}

func (r *SQLiteRepo) SetQuestionsGenerated(ctx context.Context, userID string, generated bool) error {
	_, err := r.conn.Exec(ctx, `UPDATE users SET questions_generated = ?, updated = ? WHERE id = ?`, boolToInt(generated), now(), userID)
	return err
}

func (r *SQLiteRepo) SetQuizGenerated(ctx context.Context, userID string, generated bool) error {
	_, err := r.conn.Exec(ctx, `UPDATE users SET quiz_generated = ?, updated = ? WHERE id = ?`, boolToInt(generated), now(), userID)
	return err
}

func (r *SQLiteRepo) DeleteUser(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
