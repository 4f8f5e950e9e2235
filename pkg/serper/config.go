package serper

import "time"

// Config holds the settings for the Serper web search client.
type Config struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	APIKey  string        `yaml:"api_key" json:"api_key"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// BlockedPrefixes lists URL prefixes whose results are dropped.
	BlockedPrefixes []string `yaml:"blocked_prefixes" json:"blocked_prefixes"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://google.serper.dev",
		Timeout: 15 * time.Second,
		BlockedPrefixes: []string{
			"https://www.geeksforgeeks.org/",
		},
	}
}
