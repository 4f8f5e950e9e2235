// Package mock provides in-memory repository doubles for tests.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/prepdeck/backend/internal/models"
)

// Mocks bundles one instance of every repository double.
type Mocks struct {
	Users     *UserRepo
	Questions *QuestionRepo
	Quizzes   *QuizRepo
	Analyses  *AnalysisRepo
	Jobs      *JobRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Users:     &UserRepo{users: map[string]*models.User{}},
		Questions: &QuestionRepo{},
		Quizzes:   &QuizRepo{},
		Analyses:  &AnalysisRepo{},
		Jobs:      &JobRepo{jobs: map[string]models.JobStatus{}},
	}
}

type UserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User

	GetErr error
}

func (m *UserRepo) UpsertUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *UserRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *UserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *UserRepo) SetQuestionsGenerated(ctx context.Context, userID string, generated bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.QuestionsGenerated = generated
	}
	return nil
}

func (m *UserRepo) SetQuizGenerated(ctx context.Context, userID string, generated bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.QuizGenerated = generated
	}
	return nil
}

func (m *UserRepo) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

type QuestionRepo struct {
	mu        sync.Mutex
	stored    []models.Question
	nextID    int64
	generated map[string]bool

	SaveErr error
}

func (m *QuestionRepo) SaveQuestionBatches(ctx context.Context, userID string, batches map[models.QuestionKind][]string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for kind, qs := range batches {
		for _, q := range qs {
			m.nextID++
			m.stored = append(m.stored, models.Question{ID: m.nextID, UserID: userID, Kind: kind, Question: q})
		}
	}
	if m.generated == nil {
		m.generated = map[string]bool{}
	}
	m.generated[userID] = true
	return nil
}

func (m *QuestionRepo) ListQuestions(ctx context.Context, userID string, kind models.QuestionKind) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Question
	for _, q := range m.stored {
		if q.UserID == userID && q.Kind == kind {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *QuestionRepo) GetQuestion(ctx context.Context, id int64) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.stored {
		if m.stored[i].ID == id {
			cp := m.stored[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *QuestionRepo) AttachAnswer(ctx context.Context, id int64, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.stored {
		if m.stored[i].ID == id && m.stored[i].Answer == nil {
			a := answer
			m.stored[i].Answer = &a
		}
	}
	return nil
}

func (m *QuestionRepo) CountQuestionsByKind(ctx context.Context, userID string) (map[models.QuestionKind]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[models.QuestionKind]int64{
		models.KindResume:  0,
		models.KindRole:    0,
		models.KindCompany: 0,
	}
	for _, q := range m.stored {
		if q.UserID == userID {
			counts[q.Kind]++
		}
	}
	return counts, nil
}

// Seed inserts a question directly, bypassing the batch invariant.
func (m *QuestionRepo) Seed(q models.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == 0 {
		m.nextID++
		q.ID = m.nextID
	} else if q.ID > m.nextID {
		m.nextID = q.ID
	}
	m.stored = append(m.stored, q)
}

type QuizRepo struct {
	mu     sync.Mutex
	stored []models.QuizItem

	SaveErr error
}

func (m *QuizRepo) SaveQuizBatch(ctx context.Context, userID string, items []models.QuizItem) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range items {
		it.ID = int64(len(m.stored) + i + 1)
		it.UserID = userID
		m.stored = append(m.stored, it)
	}
	return nil
}

func (m *QuizRepo) ListQuizItems(ctx context.Context, userID string) ([]models.QuizItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QuizItem
	for _, it := range m.stored {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

type AnalysisRepo struct {
	mu     sync.Mutex
	stored []models.ResumeAnalysis
	nextID int64

	CreateErr error
}

func (m *AnalysisRepo) CreateAnalysis(ctx context.Context, userID string) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.stored = append(m.stored, models.ResumeAnalysis{
		ID:     m.nextID,
		UserID: userID,
		Status: models.AnalysisPending,
	})
	return m.nextID, nil
}

func (m *AnalysisRepo) CompleteAnalysis(ctx context.Context, id int64, score float64, improvements, strengths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.stored {
		if m.stored[i].ID == id && m.stored[i].Status == models.AnalysisPending {
			s := score
			m.stored[i].Score = &s
			m.stored[i].Improvements = improvements
			m.stored[i].Strengths = strengths
			m.stored[i].Status = models.AnalysisCompleted
			return nil
		}
	}
	return errors.New("analysis is not pending")
}

func (m *AnalysisRepo) FailAnalysis(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.stored {
		if m.stored[i].ID == id && m.stored[i].Status == models.AnalysisPending {
			m.stored[i].Status = models.AnalysisFailed
			return nil
		}
	}
	return nil
}

func (m *AnalysisRepo) LatestAnalysis(ctx context.Context, userID string) (*models.ResumeAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.stored) - 1; i >= 0; i-- {
		if m.stored[i].UserID == userID {
			cp := m.stored[i]
			return &cp, nil
		}
	}
	return nil, nil
}

type JobRepo struct {
	mu   sync.Mutex
	jobs map[string]models.JobStatus
}

func jobKey(userID string, kind models.JobKind) string {
	return userID + "/" + string(kind)
}

func (m *JobRepo) TryStartJob(ctx context.Context, userID string, kind models.JobKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs[jobKey(userID, kind)] == models.JobRunning {
		return false, nil
	}
	m.jobs[jobKey(userID, kind)] = models.JobRunning
	return true, nil
}

func (m *JobRepo) FinishJob(ctx context.Context, userID string, kind models.JobKind, status models.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs[jobKey(userID, kind)] != models.JobRunning {
		return errors.New("job is not running")
	}
	m.jobs[jobKey(userID, kind)] = status
	return nil
}

func (m *JobRepo) GetJob(ctx context.Context, userID string, kind models.JobKind) (*models.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.jobs[jobKey(userID, kind)]
	if !ok {
		return nil, nil
	}
	return &models.GenerationJob{UserID: userID, Kind: kind, Status: status}, nil
}
