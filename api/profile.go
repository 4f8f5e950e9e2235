package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/prepdeck/backend/internal/extract"
	"github.com/prepdeck/backend/internal/models"
	"github.com/prepdeck/backend/internal/pipeline"
	"github.com/prepdeck/backend/pkg/repository"
)

const defaultMaxUploadBytes = 10 << 20

// Handler serves the user-facing endpoints. All generation work is handed
// to the pipeline; handlers only read state and accept requests.
type Handler struct {
	users          repository.UserRepo
	questions      repository.QuestionRepo
	quizzes        repository.QuizRepo
	analyses       repository.AnalysisRepo
	pipe           *pipeline.Pipeline
	maxUploadBytes int64
}

func NewHandler(
	users repository.UserRepo,
	questions repository.QuestionRepo,
	quizzes repository.QuizRepo,
	analyses repository.AnalysisRepo,
	pipe *pipeline.Pipeline,
) *Handler {
	return &Handler{
		users:          users,
		questions:      questions,
		quizzes:        quizzes,
		analyses:       analyses,
		pipe:           pipe,
		maxUploadBytes: defaultMaxUploadBytes,
	}
}

// resumeFromRequest extracts resume text from an optional multipart upload.
// It returns ("", false, nil) when no file was sent.
func (h *Handler) resumeFromRequest(r *http.Request) (string, bool, error) {
	file, header, err := r.FormFile("resume")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", false, nil
		}
		return "", false, err
	}
	defer file.Close()

	if !extract.Allowed(header.Filename) {
		return "", false, extract.ErrUnsupported
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		return "", false, err
	}
	text, err := extract.Text(data, header.Filename)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// UserInput accepts the onboarding form, stores the profile, and starts
// question generation. The response is 202 whether this request started the
// job or one was already running.
func (h *Handler) UserInput(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	userID := r.FormValue("userId")
	name := r.FormValue("name")
	email := r.FormValue("email")
	company := r.FormValue("company")
	role := r.FormValue("role")
	if userID == "" || name == "" || email == "" || company == "" || role == "" {
		writeError(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	u, err := h.users.GetUser(ctx, userID)
	if err != nil {
		writeError(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	if u == nil {
		u = &models.User{ID: userID}
	}
	u.Name = name
	u.Email = email
	u.Company = company
	u.Role = role
	u.QuestionsGenerated = false

	text, uploaded, err := h.resumeFromRequest(r)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) {
			writeError(w, "Invalid file format", http.StatusBadRequest)
			return
		}
		writeError(w, "Failed to read resume", http.StatusBadRequest)
		return
	}
	if uploaded {
		u.ResumeText = text
	}

	if err := h.users.UpsertUser(ctx, u); err != nil {
		writeError(w, "Failed to save user", http.StatusInternalServerError)
		return
	}

	if err := h.pipe.Dispatch(ctx, userID, models.JobQuestionGeneration); err != nil && !errors.Is(err, pipeline.ErrAlreadyRunning) {
		writeError(w, "Failed to start question generation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"success": true,
		"message": "Input received and question generation started",
	}, http.StatusAccepted)
}

// GetUserProfile returns the stored profile.
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	email := r.URL.Query().Get("email")
	if userID == "" || email == "" {
		writeError(w, "User ID and email are required", http.StatusBadRequest)
		return
	}

	u, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	if u == nil {
		writeError(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]any{
		"success":     true,
		"is_new_user": !u.QuestionsGenerated,
		"user": map[string]any{
			"id":                  u.ID,
			"email":               u.Email,
			"name":                u.Name,
			"company":             u.Company,
			"role":                u.Role,
			"resume_text":         u.ResumeText,
			"questions_generated": u.QuestionsGenerated,
			"quiz_generated":      u.QuizGenerated,
		},
	}, http.StatusOK)
}

// UpdateProfile updates company, role, and optionally the resume, then
// restarts question generation.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	userID := r.FormValue("userId")
	if userID == "" {
		writeError(w, "User ID is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	u, err := h.users.GetUser(ctx, userID)
	if err != nil {
		writeError(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	if u == nil {
		u = &models.User{ID: userID}
	}
	if company := r.FormValue("company"); company != "" {
		u.Company = company
	}
	if role := r.FormValue("role"); role != "" {
		u.Role = role
	}
	u.QuestionsGenerated = false

	text, uploaded, err := h.resumeFromRequest(r)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) {
			writeError(w, "Invalid file format", http.StatusBadRequest)
			return
		}
		writeError(w, "Failed to read resume", http.StatusBadRequest)
		return
	}
	if uploaded {
		u.ResumeText = text
	}

	if err := h.users.UpsertUser(ctx, u); err != nil {
		writeError(w, "Failed to save user", http.StatusInternalServerError)
		return
	}

	if err := h.pipe.Dispatch(ctx, userID, models.JobQuestionGeneration); err != nil && !errors.Is(err, pipeline.ErrAlreadyRunning) {
		writeError(w, "Failed to start question generation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"message": "Profile updated successfully",
		"resume":  u.ResumeText,
	}, http.StatusOK)
}

// CheckUser reports whether an account exists for the email.
func (h *Handler) CheckUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, "Email is required", http.StatusBadRequest)
		return
	}
	u, err := h.users.GetUserByEmail(r.Context(), email)
	if err != nil {
		writeError(w, "Failed to look up user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"exists": u != nil}, http.StatusOK)
}
