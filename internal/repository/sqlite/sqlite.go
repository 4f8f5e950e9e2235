package sqlite

import (
	"time"

	"github.com/prepdeck/backend/internal/db"
	"github.com/prepdeck/backend/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn *db.DB
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.UserRepo = (*SQLiteRepo)(nil)
var _ repository.QuestionRepo = (*SQLiteRepo)(nil)
var _ repository.QuizRepo = (*SQLiteRepo)(nil)
var _ repository.AnalysisRepo = (*SQLiteRepo)(nil)
var _ repository.JobRepo = (*SQLiteRepo)(nil)
var _ repository.QueueRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB) *SQLiteRepo {
	return &SQLiteRepo{conn: conn}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
