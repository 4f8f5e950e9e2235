// Package aggregate collects reference material from the web: it runs a
// search, fetches each result's readable text concurrently, and joins the
// successful fetches into one corpus in search-rank order.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

var logger *slog.Logger = slog.Default()

// SetLogger sets the logger used by this package.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Searcher returns result links for a query, best first.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Fetcher returns the readable text of the page at link.
type Fetcher interface {
	Fetch(ctx context.Context, link string) (string, error)
}

// Aggregator builds a text corpus from web search results.
type Aggregator struct {
	searcher    Searcher
	fetcher     Fetcher
	maxLinks    int
	concurrency int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMaxLinks caps how many search results are fetched.
func WithMaxLinks(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxLinks = n
		}
	}
}

// WithConcurrency caps how many fetches run at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New creates an Aggregator over the given search and fetch backends.
func New(searcher Searcher, fetcher Fetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		searcher:    searcher,
		fetcher:     fetcher,
		maxLinks:    10,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect searches for the query and returns the fetched texts joined by
// blank lines, preserving search-rank order. Links that fail to fetch are
// skipped. An empty corpus is not an error; the caller decides whether it
// can proceed without reference material.
func (a *Aggregator) Collect(ctx context.Context, query string) (string, error) {
	links, err := a.searcher.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("aggregate: search: %w", err)
	}
	if len(links) > a.maxLinks {
		links = links[:a.maxLinks]
	}
	if len(links) == 0 {
		logger.Warn("no search results", "query", query)
		return "", nil
	}

	texts := make([]string, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			text, err := a.fetcher.Fetch(gctx, link)
			if err != nil {
				logger.Warn("fetch failed, skipping link", "link", link, "error", err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("aggregate: fetch: %w", err)
	}

	var kept []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			kept = append(kept, t)
		}
	}
	logger.Debug("corpus assembled", "query", query, "links", len(links), "fetched", len(kept))
	return strings.Join(kept, "\n\n"), nil
}
