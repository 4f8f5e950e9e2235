package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestSearch_ExtractsAndFiltersLinks(t *testing.T) {
	var gotKey, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("X-API-KEY")
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotQuery = req.Query
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"organic": [
				{"link": "https://example.com/one"},
				{"link": "https://www.geeksforgeeks.org/blocked"},
				{"link": "https://example.com/two"},
				{"link": ""}
			],
			"knowledgeGraph": {"website": "https://company.example.com"}
		}`))
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	links, err := c.Search(context.Background(), "interview questions")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []string{
		"https://example.com/one",
		"https://example.com/two",
		"https://company.example.com",
	}
	if !reflect.DeepEqual(links, want) {
		t.Fatalf("links = %v, want %v", links, want)
	}
	if gotKey != "test-key" {
		t.Errorf("X-API-KEY = %q", gotKey)
	}
	if gotQuery != "interview questions" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestSearch_NonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	if _, err := c.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
