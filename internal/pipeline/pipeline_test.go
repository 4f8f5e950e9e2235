package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prepdeck/backend/internal/jobs"
	"github.com/prepdeck/backend/internal/llm"
	"github.com/prepdeck/backend/internal/models"
	"github.com/prepdeck/backend/pkg/repository/mock"
)

type fakeGenerator struct {
	// responses are returned in call order; the last repeats.
	responses []string
	err       error
	calls     int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	i := f.calls - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

type fakeCollector struct {
	corpus  string
	err     error
	queries []string
}

func (f *fakeCollector) Collect(ctx context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	return f.corpus, f.err
}

type fakeQueue struct {
	enqueued []struct {
		Type    string
		Payload []byte
	}
	err error
}

func (f *fakeQueue) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	b, _ := json.Marshal(payload)
	f.enqueued = append(f.enqueued, struct {
		Type    string
		Payload []byte
	}{typ, b})
	return int64(len(f.enqueued)), nil
}

func seedUser(m *mock.Mocks) *models.User {
	u := &models.User{
		ID:         "u1",
		Email:      "jane@example.com",
		Name:       "Jane",
		Company:    "Acme",
		Role:       "Backend Engineer",
		ResumeText: "Built APIs in Go.",
	}
	_ = m.Users.UpsertUser(context.Background(), u)
	return u
}

func newPipeline(m *mock.Mocks, q *fakeQueue, light, heavy llm.Generator, c Collector) *Pipeline {
	return New(m.Users, m.Questions, m.Quizzes, m.Analyses, m.Jobs, q, light, heavy, c, Config{MaxAttempts: 3}, nil)
}

func queueJob(kind models.JobKind, payload jobPayload) *models.QueueJob {
	b, _ := json.Marshal(payload)
	return &models.QueueJob{Type: string(kind), Payload: b, Attempts: 0, MaxAttempts: 3}
}

func TestDispatch_ClaimsSlotOnce(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	q := &fakeQueue{}
	p := newPipeline(m, q, &fakeGenerator{responses: []string{""}}, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	if err := p.Dispatch(context.Background(), "u1", models.JobQuestionGeneration); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	err := p.Dispatch(context.Background(), "u1", models.JobQuestionGeneration)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second dispatch err = %v, want ErrAlreadyRunning", err)
	}
	if len(q.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(q.enqueued))
	}
}

func TestDispatch_AnalysisCreatesPendingRow(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	q := &fakeQueue{}
	p := newPipeline(m, q, &fakeGenerator{responses: []string{""}}, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	if err := p.Dispatch(context.Background(), "u1", models.JobResumeAnalysis); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	a, err := m.Analyses.LatestAnalysis(context.Background(), "u1")
	if err != nil || a == nil {
		t.Fatalf("latest analysis: %v %v", a, err)
	}
	if a.Status != models.AnalysisPending {
		t.Fatalf("status = %s, want pending", a.Status)
	}
}

func TestDispatch_EnqueueFailureReleasesSlot(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	q := &fakeQueue{err: errors.New("queue down")}
	p := newPipeline(m, q, &fakeGenerator{responses: []string{""}}, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	if err := p.Dispatch(context.Background(), "u1", models.JobQuizGeneration); err == nil {
		t.Fatal("expected enqueue error")
	}
	status, err := p.Status(context.Background(), "u1", models.JobQuizGeneration)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != models.JobFailed {
		t.Fatalf("status = %s, want failed", status)
	}
}

func TestQuestionGeneration_HappyPath(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	q := &fakeQueue{}
	light := &fakeGenerator{responses: []string{"distilled Q&A material"}}
	heavy := &fakeGenerator{responses: []string{
		`["R1", "R2"]`,
		`["RO1", "RO2"]`,
		`["C1", "C2"]`,
	}}
	collector := &fakeCollector{corpus: "web material"}
	p := newPipeline(m, q, light, heavy, collector)

	if _, err := m.Jobs.TryStartJob(context.Background(), "u1", models.JobQuestionGeneration); err != nil {
		t.Fatal(err)
	}
	j := queueJob(models.JobQuestionGeneration, jobPayload{UserID: "u1"})
	if err := p.handleQuestionGeneration(context.Background(), j); err != nil {
		t.Fatalf("handler: %v", err)
	}

	// One aggregation pass for reference questions, one for the company's
	// own web presence.
	if len(collector.queries) != 2 {
		t.Fatalf("collector queries = %v, want 2 passes", collector.queries)
	}
	if !strings.Contains(collector.queries[0], "Backend Engineer") {
		t.Fatalf("first query = %q, want the role search", collector.queries[0])
	}
	if collector.queries[1] != "Acme" {
		t.Fatalf("second query = %q, want the company presence pass", collector.queries[1])
	}

	for _, kind := range []models.QuestionKind{models.KindResume, models.KindRole, models.KindCompany} {
		qs, _ := m.Questions.ListQuestions(context.Background(), "u1", kind)
		if len(qs) != 2 {
			t.Fatalf("%s questions = %d, want 2", kind, len(qs))
		}
	}
	status, _ := p.Status(context.Background(), "u1", models.JobQuestionGeneration)
	if status != models.JobCompleted {
		t.Fatalf("status = %s, want completed", status)
	}

	// The analysis job follows automatically.
	if len(q.enqueued) != 1 || q.enqueued[0].Type != string(models.JobResumeAnalysis) {
		t.Fatalf("expected auto-enqueued analysis job, got %+v", q.enqueued)
	}
}

func TestQuestionGeneration_UnparsableIsPermanent(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	light := &fakeGenerator{responses: []string{"distilled"}}
	heavy := &fakeGenerator{responses: []string{"I cannot produce questions."}}
	p := newPipeline(m, &fakeQueue{}, light, heavy, &fakeCollector{corpus: "web"})

	m.Jobs.TryStartJob(context.Background(), "u1", models.JobQuestionGeneration)
	j := queueJob(models.JobQuestionGeneration, jobPayload{UserID: "u1"})
	err := p.handleQuestionGeneration(context.Background(), j)
	if !jobs.IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
	status, _ := p.Status(context.Background(), "u1", models.JobQuestionGeneration)
	if status != models.JobFailed {
		t.Fatalf("status = %s, want failed", status)
	}
	// Nothing persisted on failure.
	counts, _ := m.Questions.CountQuestionsByKind(context.Background(), "u1")
	for kind, n := range counts {
		if n != 0 {
			t.Fatalf("%s count = %d, want 0", kind, n)
		}
	}
}

func TestQuestionGeneration_MissingProfileIsPermanent(t *testing.T) {
	m := mock.NewMocks()
	m.Users.UpsertUser(context.Background(), &models.User{ID: "u1", Email: "e", Name: "n"})
	p := newPipeline(m, &fakeQueue{}, &fakeGenerator{responses: []string{""}}, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	m.Jobs.TryStartJob(context.Background(), "u1", models.JobQuestionGeneration)
	j := queueJob(models.JobQuestionGeneration, jobPayload{UserID: "u1"})
	err := p.handleQuestionGeneration(context.Background(), j)
	if !jobs.IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
}

func TestQuestionGeneration_CollectorErrorRetries(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	p := newPipeline(m, &fakeQueue{}, &fakeGenerator{responses: []string{""}}, &fakeGenerator{responses: []string{""}},
		&fakeCollector{err: errors.New("search quota")})

	m.Jobs.TryStartJob(context.Background(), "u1", models.JobQuestionGeneration)
	j := queueJob(models.JobQuestionGeneration, jobPayload{UserID: "u1"})
	err := p.handleQuestionGeneration(context.Background(), j)
	if err == nil || jobs.IsPermanent(err) {
		t.Fatalf("err = %v, want transient error", err)
	}
	// The slot stays running so the retry can finish it.
	status, _ := p.Status(context.Background(), "u1", models.JobQuestionGeneration)
	if status != models.JobRunning {
		t.Fatalf("status = %s, want running", status)
	}
}

func TestQuestionGeneration_LastAttemptSettlesFailed(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	p := newPipeline(m, &fakeQueue{}, &fakeGenerator{responses: []string{""}}, &fakeGenerator{responses: []string{""}},
		&fakeCollector{err: errors.New("search quota")})

	m.Jobs.TryStartJob(context.Background(), "u1", models.JobQuestionGeneration)
	j := queueJob(models.JobQuestionGeneration, jobPayload{UserID: "u1"})
	j.Attempts = 2 // third and final attempt
	if err := p.handleQuestionGeneration(context.Background(), j); err == nil {
		t.Fatal("expected error")
	}
	status, _ := p.Status(context.Background(), "u1", models.JobQuestionGeneration)
	if status != models.JobFailed {
		t.Fatalf("status = %s, want failed", status)
	}
}

func TestResumeAnalysis_HappyPath(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	light := &fakeGenerator{responses: []string{
		`{"resume_score": 78, "improvements": ["More metrics"], "strong_points": ["Go depth"]}`,
	}}
	p := newPipeline(m, &fakeQueue{}, light, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	m.Jobs.TryStartJob(context.Background(), "u1", models.JobResumeAnalysis)
	id, _ := m.Analyses.CreateAnalysis(context.Background(), "u1")
	j := queueJob(models.JobResumeAnalysis, jobPayload{UserID: "u1", AnalysisID: id})
	if err := p.handleResumeAnalysis(context.Background(), j); err != nil {
		t.Fatalf("handler: %v", err)
	}

	a, _ := m.Analyses.LatestAnalysis(context.Background(), "u1")
	if a.Status != models.AnalysisCompleted {
		t.Fatalf("status = %s, want completed", a.Status)
	}
	if a.Score == nil || *a.Score != 78 {
		t.Fatalf("score = %v, want 78", a.Score)
	}
}

func TestResumeAnalysis_MissingResumeFailsRow(t *testing.T) {
	m := mock.NewMocks()
	m.Users.UpsertUser(context.Background(), &models.User{ID: "u1", Email: "e", Name: "n", Role: "Dev"})
	p := newPipeline(m, &fakeQueue{}, &fakeGenerator{responses: []string{""}}, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	m.Jobs.TryStartJob(context.Background(), "u1", models.JobResumeAnalysis)
	id, _ := m.Analyses.CreateAnalysis(context.Background(), "u1")
	j := queueJob(models.JobResumeAnalysis, jobPayload{UserID: "u1", AnalysisID: id})
	err := p.handleResumeAnalysis(context.Background(), j)
	if !jobs.IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
	a, _ := m.Analyses.LatestAnalysis(context.Background(), "u1")
	if a.Status != models.AnalysisFailed {
		t.Fatalf("status = %s, want failed", a.Status)
	}
}

func TestResumeAnalysis_TransientKeepsRowPending(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	light := &fakeGenerator{err: errors.New("backend down")}
	p := newPipeline(m, &fakeQueue{}, light, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	m.Jobs.TryStartJob(context.Background(), "u1", models.JobResumeAnalysis)
	id, _ := m.Analyses.CreateAnalysis(context.Background(), "u1")
	j := queueJob(models.JobResumeAnalysis, jobPayload{UserID: "u1", AnalysisID: id})
	if err := p.handleResumeAnalysis(context.Background(), j); err == nil {
		t.Fatal("expected error")
	}
	a, _ := m.Analyses.LatestAnalysis(context.Background(), "u1")
	if a.Status != models.AnalysisPending {
		t.Fatalf("status = %s, want pending", a.Status)
	}
}

func TestQuizGeneration_HappyPath(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	light := &fakeGenerator{responses: []string{`[
		{"question": "Q1", "options": {"A": "a", "B": "b", "C": "c", "D": "d"}, "correctAnswer": "A"},
		{"question": "Q2", "options": {"A": "a", "B": "b", "C": "c", "D": "d"}, "correctAnswer": "D"}
	]`}}
	p := newPipeline(m, &fakeQueue{}, light, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	m.Jobs.TryStartJob(context.Background(), "u1", models.JobQuizGeneration)
	j := queueJob(models.JobQuizGeneration, jobPayload{UserID: "u1"})
	if err := p.handleQuizGeneration(context.Background(), j); err != nil {
		t.Fatalf("handler: %v", err)
	}
	items, _ := m.Quizzes.ListQuizItems(context.Background(), "u1")
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	status, _ := p.Status(context.Background(), "u1", models.JobQuizGeneration)
	if status != models.JobCompleted {
		t.Fatalf("status = %s, want completed", status)
	}
}

func TestQuizGeneration_BadBatchIsPermanent(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	light := &fakeGenerator{responses: []string{`[{"question": "Q1"}]`}}
	p := newPipeline(m, &fakeQueue{}, light, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	m.Jobs.TryStartJob(context.Background(), "u1", models.JobQuizGeneration)
	j := queueJob(models.JobQuizGeneration, jobPayload{UserID: "u1"})
	err := p.handleQuizGeneration(context.Background(), j)
	if !jobs.IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
	items, _ := m.Quizzes.ListQuizItems(context.Background(), "u1")
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0 after fail-closed batch", len(items))
	}
}

func TestGenerateAnswer_LazyOnce(t *testing.T) {
	m := mock.NewMocks()
	seedUser(m)
	m.Questions.Seed(models.Question{ID: 7, UserID: "u1", Kind: models.KindResume, Question: "Tell me about Go."})
	light := &fakeGenerator{responses: []string{"I have built several Go services."}}
	p := newPipeline(m, &fakeQueue{}, light, &fakeGenerator{responses: []string{""}}, &fakeCollector{})

	q, err := p.GenerateAnswer(context.Background(), 7)
	if err != nil {
		t.Fatalf("GenerateAnswer: %v", err)
	}
	if q.Answer == nil || !strings.Contains(*q.Answer, "Go services") {
		t.Fatalf("answer = %v", q.Answer)
	}

	// Second call returns the stored answer without another model call.
	if _, err := p.GenerateAnswer(context.Background(), 7); err != nil {
		t.Fatalf("second GenerateAnswer: %v", err)
	}
	if light.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", light.calls)
	}
}

func TestGenerateAnswer_UnknownQuestion(t *testing.T) {
	m := mock.NewMocks()
	p := newPipeline(m, &fakeQueue{}, &fakeGenerator{responses: []string{""}}, &fakeGenerator{responses: []string{""}}, &fakeCollector{})
	_, err := p.GenerateAnswer(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
