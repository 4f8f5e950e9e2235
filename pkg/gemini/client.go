// Package gemini provides a client for Google's Gemini generative models.
// It adapts the official SDK to the llm.Generator interface so callers can
// swap backends without caring about provider specifics.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	gen "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/prepdeck/backend/internal/llm"
)

var logger *slog.Logger = slog.Default()

// SetLogger sets the logger used by this package.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Client wraps the Gemini SDK with retries and per-call timeouts.
type Client struct {
	sdk    *gen.Client
	config Config
	closed int32
}

var _ llm.Generator = (*Client)(nil)

// NewClient creates a Gemini client from the given config. The API key is
// required; the remaining fields fall back to defaults when zero.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = def.Retries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}

	sdk, err := gen.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{sdk: sdk, config: cfg}, nil
}

// Close releases the underlying SDK resources. Safe to call more than once.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	return c.sdk.Close()
}

// Generate produces a completion for the prompt, retrying transient failures.
func (c *Client) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	model := c.sdk.GenerativeModel(c.config.Model)
	if opts.Temperature > 0 {
		model.SetTemperature(opts.Temperature)
	}
	if opts.TopP > 0 {
		model.SetTopP(opts.TopP)
	}
	if opts.TopK > 0 {
		model.SetTopK(opts.TopK)
	}
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxOutputTokens)
	}
	if opts.ResponseFormat == llm.FormatJSONLeaning {
		model.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 0; attempt < c.config.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.config.Backoff * time.Duration(attempt)):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		resp, err := model.GenerateContent(callCtx, gen.Text(prompt))
		cancel()
		if err != nil {
			lastErr = err
			logger.Warn("gemini generate failed",
				"model", c.config.Model,
				"attempt", attempt+1,
				"error", err)
			continue
		}
		text, err := extractText(resp)
		if err != nil {
			lastErr = err
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("gemini: generate after %d attempts: %w", c.config.Retries, lastErr)
}

func extractText(resp *gen.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: no content in response")
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(gen.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: no text parts in response")
	}
	return sb.String(), nil
}
