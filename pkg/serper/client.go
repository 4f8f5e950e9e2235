// Package serper provides a client for the Serper.dev search API. A search
// returns a ranked list of result links drawn from the organic results and
// the knowledge graph, with blocklisted domains filtered out.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

var logger *slog.Logger = slog.Default()

// SetLogger sets the logger used by this package.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Client talks to the Serper search endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a search client from the given config. The API key is
// required; other fields fall back to defaults when zero.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serper: api key is required")
	}
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BlockedPrefixes == nil {
		cfg.BlockedPrefixes = def.BlockedPrefixes
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
	}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

type searchRequest struct {
	Query string `json:"q"`
}

type searchResponse struct {
	Organic []struct {
		Link string `json:"link"`
	} `json:"organic"`
	KnowledgeGraph *struct {
		Website string `json:"website"`
	} `json:"knowledgeGraph"`
}

// Search runs the query and returns result links in rank order. Organic
// results come first, then the knowledge graph website if present.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("serper: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serper: create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("serper: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("serper: decode response: %w", err)
	}

	var links []string
	for _, r := range sr.Organic {
		if r.Link != "" && !c.blocked(r.Link) {
			links = append(links, r.Link)
		}
	}
	if sr.KnowledgeGraph != nil {
		if site := sr.KnowledgeGraph.Website; site != "" && !c.blocked(site) {
			links = append(links, site)
		}
	}

	logger.Debug("search completed", "query", query, "links", len(links))
	return links, nil
}

func (c *Client) blocked(link string) bool {
	for _, prefix := range c.config.BlockedPrefixes {
		if strings.HasPrefix(link, prefix) {
			return true
		}
	}
	return false
}
