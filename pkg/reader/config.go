package reader

import "time"

// Config holds the settings for the readable-content proxy client.
type Config struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Token   string        `yaml:"token" json:"token"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// MaxBodyBytes caps how much of a fetched page is read.
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://r.jina.ai",
		Timeout:      20 * time.Second,
		MaxBodyBytes: 2 << 20,
	}
}
