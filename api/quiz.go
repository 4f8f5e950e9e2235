package api

import (
	"errors"
	"net/http"

	"github.com/prepdeck/backend/internal/models"
	"github.com/prepdeck/backend/internal/pipeline"
)

// GenerateQuiz returns the stored quiz when one exists, otherwise starts
// generation. The running-job check is atomic, so concurrent requests start
// at most one generation.
func (h *Handler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
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

	if u.QuizGenerated {
		items, err := h.quizzes.ListQuizItems(ctx, userID)
		if err != nil {
			writeError(w, "Failed to load quiz", http.StatusInternalServerError)
			return
		}
		if len(items) > 0 {
			list := make([]map[string]any, 0, len(items))
			for _, it := range items {
				list = append(list, map[string]any{
					"id":            it.ID,
					"question":      it.Question,
					"options":       it.Options,
					"correctAnswer": it.Correct,
				})
			}
			writeJSON(w, map[string]any{
				"success":   true,
				"status":    "completed",
				"questions": list,
			}, http.StatusOK)
			return
		}
		logger.Warn("quiz flag set but no items stored, resetting", "user_id", userID)
		if err := h.users.SetQuizGenerated(ctx, userID, false); err != nil {
			writeError(w, "Failed to reset quiz status", http.StatusInternalServerError)
			return
		}
	}

	if err := h.pipe.Dispatch(ctx, userID, models.JobQuizGeneration); err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			writeJSON(w, map[string]any{
				"success": true,
				"status":  "in_progress",
				"message": "Quiz generation is in progress. Please check back in a few moments.",
			}, http.StatusOK)
			return
		}
		writeError(w, "Failed to start quiz generation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"success": true,
		"status":  "started",
		"message": "Quiz generation has been started. Please check back in a few moments.",
	}, http.StatusOK)
}
