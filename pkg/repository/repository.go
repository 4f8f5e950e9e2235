package repository

import (
	"context"

	"github.com/prepdeck/backend/internal/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Lookups return (nil, nil) when the record does not exist.

type UserRepo interface {
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetQuestionsGenerated(ctx context.Context, userID string, generated bool) error
	SetQuizGenerated(ctx context.Context, userID string, generated bool) error
	DeleteUser(ctx context.Context, id string) error
}

type QuestionRepo interface {
	// SaveQuestionBatches persists every batch and flips the user's
	// questions_generated flag in a single transaction. Nothing is written
	// when any batch is empty.
	SaveQuestionBatches(ctx context.Context, userID string, batches map[models.QuestionKind][]string) error
	ListQuestions(ctx context.Context, userID string, kind models.QuestionKind) ([]models.Question, error)
	GetQuestion(ctx context.Context, id int64) (*models.Question, error)
	// AttachAnswer writes the answer for a question once; an existing answer
	// is left untouched.
	AttachAnswer(ctx context.Context, id int64, answer string) error
	CountQuestionsByKind(ctx context.Context, userID string) (map[models.QuestionKind]int64, error)
}

type QuizRepo interface {
	// SaveQuizBatch persists the whole batch and flips quiz_generated in a
	// single transaction.
	SaveQuizBatch(ctx context.Context, userID string, items []models.QuizItem) error
	ListQuizItems(ctx context.Context, userID string) ([]models.QuizItem, error)
}

type AnalysisRepo interface {
	// CreateAnalysis inserts a pending row and returns its id.
	CreateAnalysis(ctx context.Context, userID string) (int64, error)
	// CompleteAnalysis transitions a pending row to completed with results.
	CompleteAnalysis(ctx context.Context, id int64, score float64, improvements, strengths []string) error
	// FailAnalysis transitions a pending row to failed.
	FailAnalysis(ctx context.Context, id int64) error
	// LatestAnalysis returns the newest row for a user, in any status.
	LatestAnalysis(ctx context.Context, userID string) (*models.ResumeAnalysis, error)
}

type JobRepo interface {
	// TryStartJob atomically moves the (user, kind) job to running and
	// reports whether this call won the transition. A false result means a
	// job is already running for that key.
	TryStartJob(ctx context.Context, userID string, kind models.JobKind) (bool, error)
	// FinishJob moves a running job to a terminal status. Transitions not in
	// the job state table are refused.
	FinishJob(ctx context.Context, userID string, kind models.JobKind, status models.JobStatus) error
	GetJob(ctx context.Context, userID string, kind models.JobKind) (*models.GenerationJob, error)
}

// QueueRepo is the persistence contract for the execution queue that feeds
// the worker pool.
type QueueRepo interface {
	Enqueue(ctx context.Context, j *models.QueueJob) (int64, error)
	FetchNext(ctx context.Context) (*models.QueueJob, error)
	UpdateQueueJob(ctx context.Context, j *models.QueueJob) error
	MoveToDeadLetter(ctx context.Context, j *models.QueueJob) error
}
