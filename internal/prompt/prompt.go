// Package prompt builds the text prompts sent to the generative backends.
// User-provided values only ever enter a prompt through template data, never
// by string concatenation into the template source.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/prepdeck/backend/internal/models"
)

// ErrMissingPrerequisite reports that the user profile lacks a field the
// requested prompt needs. It is not retryable; the profile must change first.
var ErrMissingPrerequisite = errors.New("missing prerequisite profile field")

var (
	extractionTmpl = template.Must(template.New("extraction").Parse(
		`Extract all the interview Q&A present in the text if any: {{.Corpus}}`))

	companyQuestionsTmpl = template.Must(template.New("companyQuestions").Parse(
		`Generate 10 interview questions based on the following company context and analyzed text:
Company: {{.Company}}
Role: {{.Role}}
Context: {{.Context}}
Analyzed Text: {{.Analyzed}}

Format the output as a JSON array of strings, where each string is a question.
Focus on company-specific questions that assess the candidate's knowledge and interest in {{.Company}}.`))

	roleQuestionsTmpl = template.Must(template.New("roleQuestions").Parse(
		`Generate 10 interview questions based on the following role context, resume, and analyzed text:
Role: {{.Role}}
Company: {{.Company}}
Resume: {{.Context}}
Analyzed Text: {{.Analyzed}}

Format the output as a JSON array of strings, where each string is a question.
Focus on role-specific questions that assess the candidate's skills and experience for the {{.Role}} position.`))

	resumeQuestionsTmpl = template.Must(template.New("resumeQuestions").Parse(
		`Generate 10 interview questions based on the following resume, role, and company:
Resume: {{.Context}}
Role: {{.Role}}
Company: {{.Company}}

Format the output as a JSON array of strings, where each string is a question.
Focus on questions that are tailored to the candidate's specific experience and skills mentioned in their resume.`))

	quizTmpl = template.Must(template.New("quiz").Parse(
		`Generate {{.Count}} interview questions for a {{.Role}} at {{.Company}}. For each question, provide four options (A, B, C, D), and indicate the correct option.

Format the output as a JSON array of objects with the following structure:
[
    {
        "question": "Your question here",
        "options": {
            "A": "Option A",
            "B": "Option B",
            "C": "Option C",
            "D": "Option D"
        },
        "correctAnswer": "A"
    },
    ...
]`))

	answerTmpl = template.Must(template.New("answer").Parse(
		`You are an experienced professional in a job interview for the role of {{.Role}} at {{.Company}}. Respond to the following {{.Kind}} question as if you're speaking directly to the interviewer:

{{.Question}}

In your response:
- Speak in the first person
- Be concise and to the point (aim for 3-5 sentences)
- Highlight your relevant experience and achievements, especially from your resume: {{.Resume}}
- Use a conversational yet professional tone
- Include a brief example or result if applicable
Remember, you're in an interview, so make your answer impactful and relevant.`))

	analysisTmpl = template.Must(template.New("analysis").Parse(
		`Analyze the following resume for the role of {{.Role}}. Provide a detailed evaluation in JSON format with the following structure:

{
    "resume_score": <score>,
    "improvements": [
        "<improvement_1>",
        "<improvement_2>",
        ...
    ],
    "strong_points": [
        "<strength_1>",
        "<strength_2>",
        ...
    ]
}

Where:
- <score> is an integer from 0 to 100
- Each improvement and strong point is a brief, actionable statement

Resume Text:
{{.Resume}}

Ensure your response is valid JSON and includes only the requested fields.`))
)

// QuizItemCount is how many items a quiz batch asks for.
const QuizItemCount = 20

func render(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompt: render %s: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}

// SearchQuery builds the web search query used to gather reference material
// for a user's role and company.
func SearchQuery(u *models.User) (string, error) {
	if u.Role == "" || u.Company == "" {
		return "", fmt.Errorf("%w: role and company", ErrMissingPrerequisite)
	}
	return fmt.Sprintf("50 Interview Questions for %s role at %s from simplelearn", u.Role, u.Company), nil
}

// Extraction builds the prompt that distills interview Q&A out of a fetched
// web corpus.
func Extraction(corpus string) (string, error) {
	return render(extractionTmpl, struct{ Corpus string }{Corpus: corpus})
}

// Questions builds the question-generation prompt for the given kind. Each
// kind has its own prerequisites: all kinds need role and company, and the
// resume and role kinds additionally need resume text. The company kind's
// context is companyInfo, text gathered from the company's own web presence;
// the other kinds use the resume as context.
func Questions(kind models.QuestionKind, u *models.User, companyInfo, analyzed string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("prompt: unknown question kind %q", kind)
	}
	if u.Role == "" || u.Company == "" {
		return "", fmt.Errorf("%w: role and company", ErrMissingPrerequisite)
	}

	data := struct {
		Role, Company, Context, Analyzed string
	}{
		Role:     u.Role,
		Company:  u.Company,
		Context:  u.ResumeText,
		Analyzed: analyzed,
	}

	switch kind {
	case models.KindCompany:
		data.Context = companyInfo
		return render(companyQuestionsTmpl, data)
	case models.KindRole:
		if u.ResumeText == "" {
			return "", fmt.Errorf("%w: resume text", ErrMissingPrerequisite)
		}
		return render(roleQuestionsTmpl, data)
	case models.KindResume:
		if u.ResumeText == "" {
			return "", fmt.Errorf("%w: resume text", ErrMissingPrerequisite)
		}
		return render(resumeQuestionsTmpl, data)
	}
	return "", fmt.Errorf("prompt: unknown question kind %q", kind)
}

// Quiz builds the multiple-choice quiz batch prompt.
func Quiz(u *models.User) (string, error) {
	if u.Role == "" || u.Company == "" {
		return "", fmt.Errorf("%w: role and company", ErrMissingPrerequisite)
	}
	return render(quizTmpl, struct {
		Count         int
		Role, Company string
	}{Count: QuizItemCount, Role: u.Role, Company: u.Company})
}

// Answer builds the spoken-answer prompt for a stored question.
func Answer(question string, kind models.QuestionKind, u *models.User) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("prompt: question text is empty")
	}
	if u.Role == "" || u.Company == "" {
		return "", fmt.Errorf("%w: role and company", ErrMissingPrerequisite)
	}
	return render(answerTmpl, struct {
		Role, Company, Kind, Question, Resume string
	}{
		Role:     u.Role,
		Company:  u.Company,
		Kind:     string(kind),
		Question: question,
		Resume:   u.ResumeText,
	})
}

// Analysis builds the resume scoring prompt.
func Analysis(u *models.User) (string, error) {
	if u.ResumeText == "" || u.Role == "" {
		return "", fmt.Errorf("%w: resume text and role", ErrMissingPrerequisite)
	}
	return render(analysisTmpl, struct{ Role, Resume string }{Role: u.Role, Resume: u.ResumeText})
}
