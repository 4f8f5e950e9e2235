package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prepdeck/backend/pkg/gemini"
	"github.com/prepdeck/backend/pkg/groq"
	"github.com/prepdeck/backend/pkg/reader"
	"github.com/prepdeck/backend/pkg/serper"
)

type Config struct {
	Addr         string        `yaml:"addr"`
	APITimeout   time.Duration `yaml:"timeout"`
	DatabasePath string        `yaml:"database_path"`

	Workers  WorkerConfig   `yaml:"workers"`
	Pipeline PipelineConfig `yaml:"pipeline"`

	Gemini gemini.Config `yaml:"gemini"`
	Groq   groq.Config   `yaml:"groq"`
	Serper serper.Config `yaml:"serper"`
	Reader reader.Config `yaml:"reader"`
}

type WorkerConfig struct {
	Count int `yaml:"count"`
}

type PipelineConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout"`
	JobTimeout  time.Duration `yaml:"job_timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// LoadConfig builds the config from environment variables, then overlays the
// optional YAML file at path. API keys normally arrive via environment.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:         getEnv("PREPDECK_ADDR", ":8080"),
		APITimeout:   15 * time.Second,
		DatabasePath: getEnv("PREPDECK_DATABASE_PATH", "prepdeck.db"),
		Workers: WorkerConfig{
			Count: getEnvInt("PREPDECK_WORKERS", 4),
		},
		Pipeline: PipelineConfig{
			CallTimeout: 90 * time.Second,
			JobTimeout:  10 * time.Minute,
			MaxAttempts: 3,
		},
		Gemini: gemini.DefaultConfig(),
		Groq:   groq.DefaultConfig(),
		Serper: serper.DefaultConfig(),
		Reader: reader.DefaultConfig(),
	}
	cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	cfg.Serper.APIKey = os.Getenv("SERPER_API_KEY")
	cfg.Reader.Token = os.Getenv("JINA_API_TOKEN")

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}
