// Package pipeline orchestrates the generation work: question batches, the
// resume analysis, and the quiz. Each job family runs at most once per user
// at a time; the queue and worker pool handle retries and concurrency.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prepdeck/backend/internal/jobs"
	"github.com/prepdeck/backend/internal/llm"
	"github.com/prepdeck/backend/internal/models"
	"github.com/prepdeck/backend/internal/parse"
	"github.com/prepdeck/backend/internal/prompt"
	"github.com/prepdeck/backend/pkg/repository"
)

// ErrAlreadyRunning reports that a job of the requested kind is already in
// flight for the user.
var ErrAlreadyRunning = errors.New("job already running for user")

// ErrNotFound reports a missing entity.
var ErrNotFound = errors.New("not found")

// Collector assembles reference text from the web for a search query.
type Collector interface {
	Collect(ctx context.Context, query string) (string, error)
}

// Enqueuer persists a job on the execution queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// Config bounds pipeline execution.
type Config struct {
	// CallTimeout caps a single generative call.
	CallTimeout time.Duration
	// JobTimeout caps one attempt of a whole job.
	JobTimeout time.Duration
	// MaxAttempts is how many times a queue job is tried before it fails.
	MaxAttempts int
}

// DefaultConfig returns the standard execution bounds.
func DefaultConfig() Config {
	return Config{
		CallTimeout: 90 * time.Second,
		JobTimeout:  10 * time.Minute,
		MaxAttempts: 3,
	}
}

// Pipeline wires the repositories, generative backends, and web collector
// into the job handlers the worker pool runs.
type Pipeline struct {
	users     repository.UserRepo
	questions repository.QuestionRepo
	quizzes   repository.QuizRepo
	analyses  repository.AnalysisRepo
	genJobs   repository.JobRepo
	queue     Enqueuer

	// light handles summarization, answers, analysis, and the quiz.
	// heavy handles interview question generation.
	light llm.Generator
	heavy llm.Generator

	collector Collector
	cfg       Config
	logger    *slog.Logger
}

func New(
	users repository.UserRepo,
	questions repository.QuestionRepo,
	quizzes repository.QuizRepo,
	analyses repository.AnalysisRepo,
	genJobs repository.JobRepo,
	queue Enqueuer,
	light, heavy llm.Generator,
	collector Collector,
	cfg Config,
	logger *slog.Logger,
) *Pipeline {
	def := DefaultConfig()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		users:     users,
		questions: questions,
		quizzes:   quizzes,
		analyses:  analyses,
		genJobs:   genJobs,
		queue:     queue,
		light:     light,
		heavy:     heavy,
		collector: collector,
		cfg:       cfg,
		logger:    logger,
	}
}

// SetQueue installs the enqueuer after construction. The worker pool needs
// the pipeline's handlers to exist, and the pipeline needs the pool to
// enqueue, so one of the two is wired late.
func (p *Pipeline) SetQueue(q Enqueuer) {
	p.queue = q
}

type jobPayload struct {
	UserID     string `json:"user_id"`
	AnalysisID int64  `json:"analysis_id,omitempty"`
}

// Handlers returns the queue handlers keyed by job type.
func (p *Pipeline) Handlers() map[string]jobs.Handler {
	return map[string]jobs.Handler{
		string(models.JobQuestionGeneration): p.handleQuestionGeneration,
		string(models.JobResumeAnalysis):     p.handleResumeAnalysis,
		string(models.JobQuizGeneration):     p.handleQuizGeneration,
	}
}

// Dispatch claims the (user, kind) job slot and enqueues the work. It
// returns ErrAlreadyRunning when a job of that kind is still in flight.
func (p *Pipeline) Dispatch(ctx context.Context, userID string, kind models.JobKind) error {
	if !kind.Valid() {
		return fmt.Errorf("pipeline: unknown job kind %q", kind)
	}

	won, err := p.genJobs.TryStartJob(ctx, userID, kind)
	if err != nil {
		return fmt.Errorf("pipeline: claim job slot: %w", err)
	}
	if !won {
		return ErrAlreadyRunning
	}

	payload := jobPayload{UserID: userID}
	if kind == models.JobResumeAnalysis {
		id, err := p.analyses.CreateAnalysis(ctx, userID)
		if err != nil {
			p.finish(ctx, userID, kind, models.JobFailed)
			return fmt.Errorf("pipeline: create analysis row: %w", err)
		}
		payload.AnalysisID = id
	}

	if _, err := p.queue.Enqueue(ctx, string(kind), payload, 0, p.cfg.MaxAttempts); err != nil {
		p.finish(ctx, userID, kind, models.JobFailed)
		return fmt.Errorf("pipeline: enqueue: %w", err)
	}

	p.logger.Info("job dispatched", "user_id", userID, "kind", kind)
	return nil
}

// Status reports the logical job state for a (user, kind) pair. Users with
// no job history are idle.
func (p *Pipeline) Status(ctx context.Context, userID string, kind models.JobKind) (models.JobStatus, error) {
	j, err := p.genJobs.GetJob(ctx, userID, kind)
	if err != nil {
		return "", err
	}
	if j == nil {
		return models.JobIdle, nil
	}
	return j.Status, nil
}

func (p *Pipeline) finish(ctx context.Context, userID string, kind models.JobKind, status models.JobStatus) {
	if err := p.genJobs.FinishJob(ctx, userID, kind, status); err != nil {
		p.logger.Error("finish job", "user_id", userID, "kind", kind, "status", status, "error", err)
	}
}

// lastAttempt reports whether this attempt is the job's final one.
func lastAttempt(j *models.QueueJob) bool {
	return j.Attempts+1 >= j.MaxAttempts
}

// fail records a handler failure. Permanent errors and exhausted attempts
// settle the logical job as failed; transient errors leave it running for
// the retry.
func (p *Pipeline) fail(ctx context.Context, userID string, kind models.JobKind, j *models.QueueJob, err error) error {
	if jobs.IsPermanent(err) || lastAttempt(j) {
		p.finish(ctx, userID, kind, models.JobFailed)
	}
	return err
}

func (p *Pipeline) generate(ctx context.Context, g llm.Generator, promptText string, opts llm.Options) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return g.Generate(callCtx, promptText, opts)
}

func (p *Pipeline) loadUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, jobs.Permanent(fmt.Errorf("user %s: %w", userID, ErrNotFound))
	}
	return u, nil
}

var questionKinds = []models.QuestionKind{models.KindResume, models.KindRole, models.KindCompany}

func (p *Pipeline) handleQuestionGeneration(ctx context.Context, j *models.QueueJob) error {
	var pl jobPayload
	if err := json.Unmarshal(j.Payload, &pl); err != nil {
		return p.fail(ctx, "", models.JobQuestionGeneration, j, jobs.Permanent(err))
	}
	kind := models.JobQuestionGeneration

	ctx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	u, err := p.loadUser(ctx, pl.UserID)
	if err != nil {
		return p.fail(ctx, pl.UserID, kind, j, err)
	}

	query, err := prompt.SearchQuery(u)
	if err != nil {
		return p.fail(ctx, pl.UserID, kind, j, jobs.Permanent(err))
	}

	corpus, err := p.collector.Collect(ctx, query)
	if err != nil {
		return p.fail(ctx, pl.UserID, kind, j, fmt.Errorf("collect reference material: %w", err))
	}

	// The company prompt gets its own context from the company's web
	// presence rather than the resume.
	companyInfo, err := p.collector.Collect(ctx, u.Company)
	if err != nil {
		return p.fail(ctx, pl.UserID, kind, j, fmt.Errorf("collect company presence: %w", err))
	}

	// Distill the corpus once; all three question prompts share it. An
	// empty corpus is survivable, the prompts just run without it.
	var analyzed string
	if corpus != "" {
		extraction, err := prompt.Extraction(corpus)
		if err != nil {
			return p.fail(ctx, pl.UserID, kind, j, jobs.Permanent(err))
		}
		analyzed, err = p.generate(ctx, p.light, extraction, llm.Options{
			Temperature:     1,
			TopP:            0.95,
			TopK:            5,
			MaxOutputTokens: 8192,
			ResponseFormat:  llm.FormatPlainText,
		})
		if err != nil {
			return p.fail(ctx, pl.UserID, kind, j, fmt.Errorf("distill corpus: %w", err))
		}
	}

	batches := make(map[models.QuestionKind][]string, len(questionKinds))
	for _, qk := range questionKinds {
		pr, err := prompt.Questions(qk, u, companyInfo, analyzed)
		if err != nil {
			if errors.Is(err, prompt.ErrMissingPrerequisite) {
				err = jobs.Permanent(err)
			}
			return p.fail(ctx, pl.UserID, kind, j, err)
		}
		raw, err := p.generate(ctx, p.heavy, pr, llm.Options{
			Temperature:     0.5,
			TopP:            1,
			MaxOutputTokens: 500,
			ResponseFormat:  llm.FormatJSONLeaning,
		})
		if err != nil {
			return p.fail(ctx, pl.UserID, kind, j, fmt.Errorf("generate %s questions: %w", qk, err))
		}
		list := parse.StringList(raw)
		if len(list) == 0 {
			return p.fail(ctx, pl.UserID, kind, j,
				jobs.Permanent(fmt.Errorf("%s questions: %w", qk, parse.ErrUnparsable)))
		}
		batches[qk] = list
	}

	if err := p.questions.SaveQuestionBatches(ctx, pl.UserID, batches); err != nil {
		return p.fail(ctx, pl.UserID, kind, j, fmt.Errorf("save questions: %w", err))
	}
	p.finish(ctx, pl.UserID, kind, models.JobCompleted)
	p.logger.Info("question generation completed", "user_id", pl.UserID)

	// The analysis follows automatically. A slot already claimed by an
	// explicit request is fine.
	if err := p.Dispatch(ctx, pl.UserID, models.JobResumeAnalysis); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		p.logger.Error("auto-dispatch resume analysis", "user_id", pl.UserID, "error", err)
	}
	return nil
}

func (p *Pipeline) handleResumeAnalysis(ctx context.Context, j *models.QueueJob) error {
	var pl jobPayload
	if err := json.Unmarshal(j.Payload, &pl); err != nil {
		return p.fail(ctx, "", models.JobResumeAnalysis, j, jobs.Permanent(err))
	}
	kind := models.JobResumeAnalysis

	ctx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	// settle marks the pending row failed on terminal outcomes only; a
	// transient error keeps it pending for the retry.
	settle := func(err error) error {
		if jobs.IsPermanent(err) || lastAttempt(j) {
			if fErr := p.analyses.FailAnalysis(ctx, pl.AnalysisID); fErr != nil {
				p.logger.Error("fail analysis row", "analysis_id", pl.AnalysisID, "error", fErr)
			}
		}
		return p.fail(ctx, pl.UserID, kind, j, err)
	}

	u, err := p.loadUser(ctx, pl.UserID)
	if err != nil {
		return settle(err)
	}

	pr, err := prompt.Analysis(u)
	if err != nil {
		return settle(jobs.Permanent(err))
	}

	raw, err := p.generate(ctx, p.light, pr, llm.Options{
		Temperature:     0.7,
		TopP:            0.9,
		TopK:            5,
		MaxOutputTokens: 540,
		ResponseFormat:  llm.FormatPlainText,
	})
	if err != nil {
		return settle(fmt.Errorf("generate analysis: %w", err))
	}

	score, improvements, strengths, err := parse.Analysis(raw)
	if err != nil {
		return settle(jobs.Permanent(err))
	}

	if err := p.analyses.CompleteAnalysis(ctx, pl.AnalysisID, score, improvements, strengths); err != nil {
		return settle(fmt.Errorf("complete analysis: %w", err))
	}
	p.finish(ctx, pl.UserID, kind, models.JobCompleted)
	p.logger.Info("resume analysis completed", "user_id", pl.UserID, "analysis_id", pl.AnalysisID)
	return nil
}

func (p *Pipeline) handleQuizGeneration(ctx context.Context, j *models.QueueJob) error {
	var pl jobPayload
	if err := json.Unmarshal(j.Payload, &pl); err != nil {
		return p.fail(ctx, "", models.JobQuizGeneration, j, jobs.Permanent(err))
	}
	kind := models.JobQuizGeneration

	ctx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	u, err := p.loadUser(ctx, pl.UserID)
	if err != nil {
		return p.fail(ctx, pl.UserID, kind, j, err)
	}

	pr, err := prompt.Quiz(u)
	if err != nil {
		return p.fail(ctx, pl.UserID, kind, j, jobs.Permanent(err))
	}

	raw, err := p.generate(ctx, p.light, pr, llm.Options{
		Temperature:     0.7,
		TopP:            0.95,
		TopK:            5,
		MaxOutputTokens: 5000,
		ResponseFormat:  llm.FormatJSONLeaning,
	})
	if err != nil {
		return p.fail(ctx, pl.UserID, kind, j, fmt.Errorf("generate quiz: %w", err))
	}

	items, err := parse.QuizBatch(ctx, raw)
	if err != nil {
		return p.fail(ctx, pl.UserID, kind, j, jobs.Permanent(err))
	}

	if err := p.quizzes.SaveQuizBatch(ctx, pl.UserID, items); err != nil {
		return p.fail(ctx, pl.UserID, kind, j, fmt.Errorf("save quiz: %w", err))
	}
	p.finish(ctx, pl.UserID, kind, models.JobCompleted)
	p.logger.Info("quiz generation completed", "user_id", pl.UserID, "items", len(items))
	return nil
}

// GenerateAnswer returns the stored answer for a question, producing and
// persisting one on first request. The write happens at most once; a
// concurrent duplicate request keeps the first stored answer.
func (p *Pipeline) GenerateAnswer(ctx context.Context, questionID int64) (*models.Question, error) {
	q, err := p.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	if q.Answer != nil {
		return q, nil
	}

	u, err := p.users.GetUser(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", q.UserID, ErrNotFound)
	}

	pr, err := prompt.Answer(q.Question, q.Kind, u)
	if err != nil {
		return nil, err
	}

	answer, err := p.generate(ctx, p.light, pr, llm.Options{
		Temperature:     0.8,
		TopP:            0.95,
		TopK:            5,
		MaxOutputTokens: 250,
		ResponseFormat:  llm.FormatPlainText,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if err := p.questions.AttachAnswer(ctx, questionID, answer); err != nil {
		return nil, fmt.Errorf("attach answer: %w", err)
	}
	// Re-read so a lost race returns the winner's answer.
	return p.questions.GetQuestion(ctx, questionID)
}
