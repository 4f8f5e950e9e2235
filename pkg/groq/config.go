package groq

import "time"

// Config holds settings for the Groq chat-completions client.
type Config struct {
	// BaseURL is the OpenAI-compatible endpoint root, e.g. https://api.groq.com/openai/v1
	BaseURL string `yaml:"base_url" json:"base_url"`
	// APIKey is the bearer token sent with every request
	APIKey string `yaml:"api_key" json:"api_key"`
	// Model is the default model name used for completions
	Model string `yaml:"model" json:"model"`
	// Timeout is the per-request timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Retries is number of retry attempts for transient failures
	Retries int `yaml:"retries" json:"retries"`
	// Backoff is the base backoff between retries
	Backoff time.Duration `yaml:"backoff" json:"backoff"`
	// CircuitFailureThreshold opens circuit after this many consecutive failures
	CircuitFailureThreshold int `yaml:"circuit_failure_threshold" json:"circuit_failure_threshold"`
	// CircuitReset is the duration after which the circuit attempts to half-open
	CircuitReset time.Duration `yaml:"circuit_reset" json:"circuit_reset"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:                 "https://api.groq.com/openai/v1",
		Model:                   "llama3-70b-8192",
		Timeout:                 60 * time.Second,
		Retries:                 3,
		Backoff:                 500 * time.Millisecond,
		CircuitFailureThreshold: 5,
		CircuitReset:            30 * time.Second,
	}
}
