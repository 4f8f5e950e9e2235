// Package parse turns free-form generative model output into typed values.
// Model output is treated as hostile: every parser strips code fences and
// tolerates prose around the payload, and the quiz parser rejects the whole
// batch when any item is malformed.
package parse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/prepdeck/backend/internal/models"
)

// ErrUnparsable reports model output that could not be turned into the
// expected value even after every fallback.
var ErrUnparsable = errors.New("unparsable model output")

var (
	leadingToBracket  = regexp.MustCompile(`(?s)^.*?\[`)
	bracketToTrailing = regexp.MustCompile(`(?s)\].*?$`)
	quotedString      = regexp.MustCompile(`"([^"]*)"`)
	fenceOpen         = regexp.MustCompile("(?m)^```(?:json)?\\s*")
	fenceClose        = regexp.MustCompile("(?m)\\s*```\\s*$")
)

// StripFences removes markdown code fence markers around a payload.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// trimToBrackets cuts prose before the first '[' and after the closing ']'.
func trimToBrackets(s string) string {
	s = leadingToBracket.ReplaceAllString(s, "[")
	return bracketToTrailing.ReplaceAllString(s, "]")
}

// StringList extracts a list of strings from model output. It trims prose
// before the first '[' and after the last ']', then tries JSON. When JSON
// fails it falls back to collecting double-quoted substrings. The result is
// empty, never nil-vs-error ambiguous, when nothing can be recovered.
func StringList(raw string) []string {
	s := trimToBrackets(StripFences(raw))

	var list []string
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		return compact(list)
	}

	var out []string
	for _, m := range quotedString.FindAllStringSubmatch(s, -1) {
		if strings.TrimSpace(m[1]) != "" {
			out = append(out, m[1])
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func compact(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

var quizSchema = func() *jsonschema.Schema {
	const def = `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["question", "options", "correctAnswer"],
			"properties": {
				"question": {"type": "string", "minLength": 1},
				"options": {
					"type": "object",
					"required": ["A", "B", "C", "D"],
					"properties": {
						"A": {"type": "string"},
						"B": {"type": "string"},
						"C": {"type": "string"},
						"D": {"type": "string"}
					}
				},
				"correctAnswer": {"type": "string", "enum": ["A", "B", "C", "D"]}
			}
		}
	}`
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(def), rs); err != nil {
		panic(err)
	}
	return rs
}()

type rawQuizItem struct {
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Correct  string            `json:"correctAnswer"`
}

// QuizBatch parses a quiz batch. Prose around the array is trimmed the same
// way StringList trims it. The batch is all or nothing: if the payload is not
// valid JSON, or any item fails schema validation, the whole batch is
// rejected with ErrUnparsable.
func QuizBatch(ctx context.Context, raw string) ([]models.QuizItem, error) {
	s := trimToBrackets(StripFences(raw))

	keyErrs, err := quizSchema.ValidateBytes(ctx, []byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: quiz batch is not valid JSON: %v", ErrUnparsable, err)
	}
	if len(keyErrs) > 0 {
		return nil, fmt.Errorf("%w: quiz batch failed validation: %v", ErrUnparsable, keyErrs[0])
	}

	var rawItems []rawQuizItem
	if err := json.Unmarshal([]byte(s), &rawItems); err != nil {
		return nil, fmt.Errorf("%w: quiz batch: %v", ErrUnparsable, err)
	}

	items := make([]models.QuizItem, 0, len(rawItems))
	for _, ri := range rawItems {
		items = append(items, models.QuizItem{
			Question: ri.Question,
			Options:  ri.Options,
			Correct:  ri.Correct,
		})
	}
	return items, nil
}

type rawAnalysis struct {
	Score        *float64 `json:"resume_score"`
	Improvements []string `json:"improvements"`
	Strengths    []string `json:"strong_points"`
}

// Analysis parses a resume evaluation. The numeric score is required; the
// improvement and strength lists may be empty.
func Analysis(raw string) (score float64, improvements, strengths []string, err error) {
	s := StripFences(raw)

	var ra rawAnalysis
	if err := json.Unmarshal([]byte(s), &ra); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: analysis: %v", ErrUnparsable, err)
	}
	if ra.Score == nil {
		return 0, nil, nil, fmt.Errorf("%w: analysis is missing resume_score", ErrUnparsable)
	}
	if ra.Improvements == nil {
		ra.Improvements = []string{}
	}
	if ra.Strengths == nil {
		ra.Strengths = []string{}
	}
	return *ra.Score, ra.Improvements, ra.Strengths, nil
}
