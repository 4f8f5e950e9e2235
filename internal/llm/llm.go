package llm

import "context"

// ResponseFormat hints the backend toward plain prose or JSON-shaped output.
type ResponseFormat string

const (
	FormatPlainText   ResponseFormat = "plain_text"
	FormatJSONLeaning ResponseFormat = "json_leaning"
)

// Options carries per-call sampling and budget settings. Zero values mean
// "use the backend default".
type Options struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
	ResponseFormat  ResponseFormat
}

// Generator is the single capability both generative backends expose. The
// returned text may contain embedded structured data but carries no
// well-formedness guarantee; parsing and retries are the caller's concern.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
