package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch_HTMLReducedToText(t *testing.T) {
	var gotPath, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><script>var x = 1;</script></head>` +
			`<body><h1>Interview Tips</h1><p>Practice daily.</p></body></html>`))
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Token: "tok"})
	defer c.Close()

	text, err := c.Fetch(context.Background(), "https://example.com/tips")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(text, "Interview Tips") || !strings.Contains(text, "Practice daily.") {
		t.Fatalf("text missing expected content: %q", text)
	}
	if strings.Contains(text, "var x") {
		t.Fatalf("script content leaked into text: %q", text)
	}
	if gotPath != "/https://example.com/tips" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth = %q", gotAuth)
	}
}

func TestFetch_PlainTextPassedThrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("  plain markdown content\n"))
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL})
	defer c.Close()

	text, err := c.Fetch(context.Background(), "https://example.com/article")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if text != "plain markdown content" {
		t.Fatalf("text = %q", text)
	}
}

func TestFetch_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL})
	defer c.Close()

	if _, err := c.Fetch(context.Background(), "https://example.com/x"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
