package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepdeck/backend/internal/models"
)

func fullUser() *models.User {
	return &models.User{
		ID:         "u1",
		Role:       "Backend Engineer",
		Company:    "Acme",
		ResumeText: "Built APIs in Go.",
	}
}

func TestSearchQuery(t *testing.T) {
	q, err := SearchQuery(fullUser())
	require.NoError(t, err)
	assert.Contains(t, q, "Backend Engineer")
	assert.Contains(t, q, "Acme")

	_, err = SearchQuery(&models.User{Role: "x"})
	assert.ErrorIs(t, err, ErrMissingPrerequisite)
}

func TestQuestions_AllKinds(t *testing.T) {
	u := fullUser()
	for _, kind := range []models.QuestionKind{models.KindResume, models.KindRole, models.KindCompany} {
		p, err := Questions(kind, u, "Acme builds rockets.", "analyzed material")
		require.NoError(t, err, "kind %s", kind)
		assert.Contains(t, p, "Acme")
		assert.Contains(t, p, "JSON array of strings")
	}
}

func TestQuestions_ContextPerKind(t *testing.T) {
	u := fullUser()

	// The company prompt is grounded in the company's web presence.
	p, err := Questions(models.KindCompany, u, "Acme builds rockets.", "")
	require.NoError(t, err)
	assert.Contains(t, p, "Acme builds rockets.")
	assert.NotContains(t, p, "Built APIs in Go.")

	// The resume and role prompts are grounded in the resume.
	for _, kind := range []models.QuestionKind{models.KindResume, models.KindRole} {
		p, err := Questions(kind, u, "Acme builds rockets.", "")
		require.NoError(t, err, "kind %s", kind)
		assert.Contains(t, p, "Built APIs in Go.")
		assert.NotContains(t, p, "Acme builds rockets.")
	}
}

func TestQuestions_MissingResume(t *testing.T) {
	u := &models.User{Role: "Dev", Company: "Acme"}

	_, err := Questions(models.KindResume, u, "", "")
	assert.ErrorIs(t, err, ErrMissingPrerequisite)

	_, err = Questions(models.KindRole, u, "", "")
	assert.ErrorIs(t, err, ErrMissingPrerequisite)

	// Company questions do not need resume text.
	p, err := Questions(models.KindCompany, u, "", "")
	require.NoError(t, err)
	assert.Contains(t, p, "Acme")
}

func TestQuestions_UnknownKind(t *testing.T) {
	_, err := Questions(models.QuestionKind("bogus"), fullUser(), "", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingPrerequisite))
}

func TestQuiz(t *testing.T) {
	p, err := Quiz(fullUser())
	require.NoError(t, err)
	assert.Contains(t, p, "Generate 20 interview questions")
	assert.Contains(t, p, `"correctAnswer"`)

	_, err = Quiz(&models.User{Company: "Acme"})
	assert.ErrorIs(t, err, ErrMissingPrerequisite)
}

func TestAnswer(t *testing.T) {
	p, err := Answer("Tell me about a hard bug.", models.KindResume, fullUser())
	require.NoError(t, err)
	assert.Contains(t, p, "Tell me about a hard bug.")
	assert.Contains(t, p, "Built APIs in Go.")

	_, err = Answer("  ", models.KindResume, fullUser())
	require.Error(t, err)
}

func TestAnalysis(t *testing.T) {
	p, err := Analysis(fullUser())
	require.NoError(t, err)
	assert.Contains(t, p, "resume_score")
	assert.Contains(t, p, "Built APIs in Go.")

	_, err = Analysis(&models.User{Role: "Dev"})
	assert.ErrorIs(t, err, ErrMissingPrerequisite)
}

func TestUserTextStaysData(t *testing.T) {
	u := fullUser()
	u.Company = "{{.Role}}"
	p, err := Quiz(u)
	require.NoError(t, err)
	assert.True(t, strings.Contains(p, "{{.Role}}"), "template syntax in user data must not be expanded")
}
