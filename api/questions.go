package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/prepdeck/backend/internal/models"
	"github.com/prepdeck/backend/internal/pipeline"
)

// QuestionStatus reports whether the user's question batches are ready. A
// generated flag with no stored questions is stale and gets reset here.
func (h *Handler) QuestionStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
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
		writeError(w, "User not found", http.StatusNotFound)
		return
	}

	generated := u.QuestionsGenerated
	if generated {
		counts, err := h.questions.CountQuestionsByKind(ctx, userID)
		if err != nil {
			writeError(w, "Failed to count questions", http.StatusInternalServerError)
			return
		}
		// The flag only holds when every kind has questions.
		complete := true
		for _, kind := range []models.QuestionKind{models.KindResume, models.KindRole, models.KindCompany} {
			if counts[kind] == 0 {
				complete = false
				break
			}
		}
		if !complete {
			logger.Warn("questions flag set but batches incomplete, resetting", "user_id", userID)
			if err := h.users.SetQuestionsGenerated(ctx, userID, false); err != nil {
				writeError(w, "Failed to reset status", http.StatusInternalServerError)
				return
			}
			generated = false
		}
	}

	status := "pending"
	if generated {
		status = "complete"
	} else {
		jobStatus, err := h.pipe.Status(ctx, userID, models.JobQuestionGeneration)
		if err != nil {
			writeError(w, "Failed to load job status", http.StatusInternalServerError)
			return
		}
		if jobStatus == models.JobFailed {
			status = "failed"
		}
	}

	generatedFlag := 0
	if generated {
		generatedFlag = 1
	}
	writeJSON(w, map[string]any{
		"success":            true,
		"questionsGenerated": generatedFlag,
		"status":             status,
	}, http.StatusOK)
}

// GetQuestions returns the stored questions of one kind.
func (h *Handler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, "User ID is required", http.StatusBadRequest)
		return
	}
	kind := models.QuestionKind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		writeError(w, "Invalid question type", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	u, err := h.users.GetUser(ctx, userID)
	if err != nil {
		writeError(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	if u == nil {
		writeError(w, "User not found", http.StatusNotFound)
		return
	}

	qs, err := h.questions.ListQuestions(ctx, userID, kind)
	if err != nil {
		writeError(w, "Failed to load questions", http.StatusInternalServerError)
		return
	}

	list := make([]map[string]any, 0, len(qs))
	for _, q := range qs {
		list = append(list, map[string]any{
			"id":       q.ID,
			"question": q.Question,
			"answer":   q.Answer,
		})
	}
	writeJSON(w, map[string]any{"success": true, "questions": list}, http.StatusOK)
}

// QuestionCounts returns how many questions exist per kind.
func (h *Handler) QuestionCounts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, "User ID is required", http.StatusBadRequest)
		return
	}
	counts, err := h.questions.CountQuestionsByKind(r.Context(), userID)
	if err != nil {
		writeError(w, "Failed to count questions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"resume":  counts[models.KindResume],
		"role":    counts[models.KindRole],
		"company": counts[models.KindCompany],
	}, http.StatusOK)
}

// GenerateAnswer returns the model answer for a question, creating it on
// first request.
func (h *Handler) GenerateAnswer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QuestionID int64 `json:"questionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.QuestionID == 0 {
		writeError(w, "Question ID is required", http.StatusBadRequest)
		return
	}

	q, err := h.pipe.GenerateAnswer(r.Context(), body.QuestionID)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			writeError(w, "Question not found", http.StatusNotFound)
			return
		}
		logger.Error("generate answer", "question_id", body.QuestionID, "err", err)
		writeError(w, "Failed to generate answer", http.StatusInternalServerError)
		return
	}

	var answer string
	if q.Answer != nil {
		answer = *q.Answer
	}
	writeJSON(w, map[string]any{"answer": answer}, http.StatusOK)
}

// Analytics summarizes the user's progress from stored data.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, "User ID is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	counts, err := h.questions.CountQuestionsByKind(ctx, userID)
	if err != nil {
		writeError(w, "Failed to load analytics", http.StatusInternalServerError)
		return
	}
	var total, answered int64
	for kind, n := range counts {
		total += n
		qs, err := h.questions.ListQuestions(ctx, userID, kind)
		if err != nil {
			writeError(w, "Failed to load analytics", http.StatusInternalServerError)
			return
		}
		for _, q := range qs {
			if q.Answer != nil {
				answered++
			}
		}
	}

	successRate := int64(0)
	if total > 0 {
		successRate = answered * 100 / total
	}

	areas := ""
	if a, err := h.analyses.LatestAnalysis(ctx, userID); err == nil && a != nil && len(a.Improvements) > 0 {
		areas = a.Improvements[0]
	}

	writeJSON(w, map[string]any{
		"totalQuestions": total,
		"answered":       answered,
		"successRate":    successRate,
		"areasToImprove": areas,
	}, http.StatusOK)
}
