package gemini

import "time"

// Config holds the settings for the Gemini generative backend.
type Config struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Retries int           `yaml:"retries" json:"retries"`
	Backoff time.Duration `yaml:"backoff" json:"backoff"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:   "gemini-1.5-flash-8b",
		Timeout: 60 * time.Second,
		Retries: 3,
		Backoff: 500 * time.Millisecond,
	}
}
