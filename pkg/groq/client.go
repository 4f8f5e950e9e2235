package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prepdeck/backend/internal/llm"
)

var ErrCircuitOpen = errors.New("groq circuit open")

// package-level logger for pkg/groq; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/groq. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Client talks to an OpenAI-compatible chat-completions endpoint and adds
// retries, timeout, and a circuit breaker.
type Client struct {
	cfg    Config
	client *http.Client

	// simple circuit breaker state
	failures  int32
	openUntil int64 // unix nano
	closed    int32 // atomic flag for Close()
}

var _ llm.Generator = (*Client)(nil)

// NewClient creates a new Groq client wrapper.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{cfg: cfg, client: httpClient}
	logger.Info("groq: NewClient created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return c, nil
}

func NewDefaultClient(cfg Config) (*Client, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// attempt half-open: reset failures and allow a request
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

// Close releases any resources held by the client. Currently this will close
// idle connections on the underlying HTTP transport when supported. Close is
// idempotent and safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
		}
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float32       `json:"temperature,omitempty"`
	TopP           float32       `json:"top_p,omitempty"`
	MaxTokens      int32         `json:"max_tokens,omitempty"`
	Stream         bool          `json:"stream"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends a prompt as a single user message and returns the first
// choice's content. Transient failures are retried with backoff.
func (c *Client) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	if c.isCircuitOpen() {
		return "", ErrCircuitOpen
	}

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxOutputTokens,
	}
	if opts.ResponseFormat == llm.FormatJSONLeaning {
		body.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		start := time.Now()
		text, err := c.doChat(ctx, payload)
		if err == nil {
			atomic.StoreInt32(&c.failures, 0)
			logger.Debug("groq: generate ok", slog.String("model", c.cfg.Model), slog.Int64("latency_ms", time.Since(start).Milliseconds()))
			return text, nil
		}

		lastErr = err
		c.recordFailure()
		if ctx.Err() != nil || attempt == c.cfg.Retries {
			break
		}

		// backoff
		time.Sleep(c.cfg.Backoff * time.Duration(attempt+1))
		if c.isCircuitOpen() {
			return "", ErrCircuitOpen
		}
	}

	return "", fmt.Errorf("generate failed after retries: %w", lastErr)
}

func (c *Client) doChat(ctx context.Context, payload []byte) (string, error) {
	reqCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completions returned status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat completions error: %s", out.Error.Type)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return out.Choices[0].Message.Content, nil
}
