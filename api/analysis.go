package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/prepdeck/backend/internal/models"
	"github.com/prepdeck/backend/internal/pipeline"
)

// ResumeAnalysis returns the newest resume evaluation. When no analysis
// exists yet one is started, and the caller polls until it settles.
func (h *Handler) ResumeAnalysis(w http.ResponseWriter, r *http.Request) {
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

	a, err := h.analyses.LatestAnalysis(ctx, userID)
	if err != nil {
		writeError(w, "Failed to load analysis", http.StatusInternalServerError)
		return
	}
	if a == nil {
		if err := h.pipe.Dispatch(ctx, userID, models.JobResumeAnalysis); err != nil && !errors.Is(err, pipeline.ErrAlreadyRunning) {
			writeError(w, "Failed to start analysis", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"success": true, "status": "pending"}, http.StatusAccepted)
		return
	}

	switch a.Status {
	case models.AnalysisPending:
		writeJSON(w, map[string]any{"success": true, "status": "pending"}, http.StatusAccepted)
	case models.AnalysisFailed:
		writeError(w, "Failed to generate resume analysis", http.StatusInternalServerError)
	default:
		var score float64
		if a.Score != nil {
			score = *a.Score
		}
		writeJSON(w, map[string]any{
			"success": true,
			"status":  "completed",
			"analysis": map[string]any{
				"score":        score,
				"improvements": a.Improvements,
				"strengths":    a.Strengths,
				"timestamp":    time.UnixMilli(a.Created).UTC().Format(time.RFC3339),
			},
		}, http.StatusOK)
	}
}
