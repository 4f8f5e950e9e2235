package models

import "encoding/json"

// User is the root record. All generated content hangs off a user and is
// removed with it. The two generated flags are deliberately separate: the
// question-generation job family and the quiz job family own disjoint state.
type User struct {
	ID                 string `json:"id" db:"id"`
	Email              string `json:"email" db:"email"`
	Name               string `json:"name" db:"name"`
	Company            string `json:"company,omitempty" db:"company"`
	Role               string `json:"role,omitempty" db:"role"`
	ResumeText         string `json:"resume_text,omitempty" db:"resume_text"`
	QuestionsGenerated bool   `json:"questions_generated" db:"questions_generated"`
	QuizGenerated      bool   `json:"quiz_generated" db:"quiz_generated"`
	Updated            int64  `json:"updated" db:"updated"`
}

// QuestionKind categorizes interview questions.
type QuestionKind string

const (
	KindResume  QuestionKind = "resume"
	KindRole    QuestionKind = "role"
	KindCompany QuestionKind = "company"
)

// Valid reports whether the kind is one of the three question categories.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindResume, KindRole, KindCompany:
		return true
	}
	return false
}

type Question struct {
	ID       int64        `json:"id" db:"id"`
	UserID   string       `json:"user_id" db:"user_id"`
	Kind     QuestionKind `json:"kind" db:"kind"`
	Question string       `json:"question" db:"question"`
	Answer   *string      `json:"answer,omitempty" db:"answer"`
	Created  int64        `json:"created" db:"created"`
}

// QuizItem is one multiple-choice question. Options are labeled A through D
// and Correct holds the winning label.
type QuizItem struct {
	ID       int64             `json:"id" db:"id"`
	UserID   string            `json:"user_id" db:"user_id"`
	Question string            `json:"question" db:"question"`
	Options  map[string]string `json:"options"`
	Correct  string            `json:"correctAnswer" db:"correct"`
	Created  int64             `json:"created" db:"created"`
}

// AnalysisStatus is the lifecycle of a resume analysis row.
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

// ResumeAnalysis rows accumulate per user; the newest row wins. A row is
// created pending and transitions exactly once to completed or failed.
type ResumeAnalysis struct {
	ID           int64          `json:"id" db:"id"`
	UserID       string         `json:"user_id" db:"user_id"`
	Score        *float64       `json:"score,omitempty" db:"score"`
	Improvements []string       `json:"improvements"`
	Strengths    []string       `json:"strengths"`
	Status       AnalysisStatus `json:"status" db:"status"`
	Created      int64          `json:"created" db:"created"`
}

// JobKind names the three generation job families.
type JobKind string

const (
	JobQuestionGeneration JobKind = "question-generation"
	JobResumeAnalysis     JobKind = "resume-analysis"
	JobQuizGeneration     JobKind = "quiz-generation"
)

func (k JobKind) Valid() bool {
	switch k {
	case JobQuestionGeneration, JobResumeAnalysis, JobQuizGeneration:
		return true
	}
	return false
}

// JobStatus is the logical state of a (user, kind) generation job.
type JobStatus string

const (
	JobIdle      JobStatus = "idle"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// jobTransitions is the closed transition table. Terminal states are sticky:
// leaving completed/failed happens only through an explicit new start, which
// is the transition back to running.
var jobTransitions = map[JobStatus][]JobStatus{
	JobIdle:      {JobRunning},
	JobRunning:   {JobCompleted, JobFailed},
	JobCompleted: {JobRunning},
	JobFailed:    {JobRunning},
}

// CanTransition reports whether from -> to is an allowed job state change.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GenerationJob is the logical job row keyed by (user, kind). At most one
// may be running per key at any instant.
type GenerationJob struct {
	UserID  string    `json:"user_id" db:"user_id"`
	Kind    JobKind   `json:"kind" db:"kind"`
	Status  JobStatus `json:"status" db:"status"`
	Updated int64     `json:"updated" db:"updated"`
}

// QueueJob is one unit of work on the execution queue. The queue drives the
// worker pool; the logical GenerationJob row is what callers observe.
type QueueJob struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt int64           `json:"scheduled_at"`
	NextTryAt   *int64          `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     int64           `json:"created"`
	Updated     int64           `json:"updated"`
}
