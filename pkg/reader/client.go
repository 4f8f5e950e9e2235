// Package reader fetches web pages through a readable-content proxy that
// strips navigation and boilerplate, returning the page's visible text.
package reader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var logger *slog.Logger = slog.Default()

// SetLogger sets the logger used by this package.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Client fetches pages through the configured proxy.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a reader client from the given config. Zero fields fall
// back to defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Fetch retrieves the readable text of the page at link. The proxy is given
// the full target URL as its path. HTML in the response is reduced to its
// visible text.
func (c *Client) Fetch(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/"+link, nil)
	if err != nil {
		return "", fmt.Errorf("reader: create request: %w", err)
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader: fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reader: fetch %s: unexpected status %d", link, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, c.config.MaxBodyBytes)
	if isHTML(resp.Header.Get("Content-Type")) {
		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return "", fmt.Errorf("reader: parse %s: %w", link, err)
		}
		doc.Find("script, style, noscript").Remove()
		return strings.TrimSpace(doc.Text()), nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reader: read %s: %w", link, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func isHTML(contentType string) bool {
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}
