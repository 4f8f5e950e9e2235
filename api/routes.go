package api

import (
	"github.com/gorilla/mux"

	"github.com/prepdeck/backend/internal/pipeline"
	"github.com/prepdeck/backend/pkg/repository"
)

// Deps carries everything the router needs.
type Deps struct {
	Users     repository.UserRepo
	Questions repository.QuestionRepo
	Quizzes   repository.QuizRepo
	Analyses  repository.AnalysisRepo
	Pipeline  *pipeline.Pipeline
}

func SetupRoutes(deps Deps, version, buildTime string) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{}
	h := NewHandler(deps.Users, deps.Questions, deps.Quizzes, deps.Analyses, deps.Pipeline)

	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	// Profile
	apiRouter.HandleFunc("/user-input", h.UserInput).Methods("POST")
	apiRouter.HandleFunc("/user-profile", h.GetUserProfile).Methods("GET")
	apiRouter.HandleFunc("/update-profile", h.UpdateProfile).Methods("POST")
	apiRouter.HandleFunc("/check-user", h.CheckUser).Methods("GET")

	// Questions
	apiRouter.HandleFunc("/question-status", h.QuestionStatus).Methods("GET")
	apiRouter.HandleFunc("/questions/{kind}", h.GetQuestions).Methods("GET")
	apiRouter.HandleFunc("/question-counts", h.QuestionCounts).Methods("GET")
	apiRouter.HandleFunc("/generate-answer", h.GenerateAnswer).Methods("POST")
	apiRouter.HandleFunc("/analytics", h.Analytics).Methods("GET")

	// Analysis and quiz
	apiRouter.HandleFunc("/resume-analysis", h.ResumeAnalysis).Methods("GET")
	apiRouter.HandleFunc("/generate-quiz-questions", h.GenerateQuiz).Methods("GET")

	return r
}
