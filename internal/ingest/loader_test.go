package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pmorozov/sidenote/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "sidenote-test/0.1",
		MaxBodyBytes: 1 << 20,
	}
}

func TestLoad_PlainTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := "First paragraph.\n\nSecond paragraph with 2 + 2 = 4."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	loader := NewLoader(testHTTPConfig())
	doc, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Text != content {
		t.Errorf("file content must pass through untouched, got %q", doc.Text)
	}
	if doc.Source != path {
		t.Errorf("Expected source %q, got %q", path, doc.Source)
	}
}

func TestLoad_HTMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.html")
	content := "<!DOCTYPE html><html><body><p>Hello world.</p><script>alert(1)</script><p>Second.</p></body></html>"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	loader := NewLoader(testHTTPConfig())
	doc, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if strings.Contains(doc.Text, "alert") {
		t.Errorf("script content must be stripped, got %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "Hello world.") || !strings.Contains(doc.Text, "Second.") {
		t.Errorf("visible text missing from %q", doc.Text)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	loader := NewLoader(testHTTPConfig())
	if _, err := loader.Load(context.Background(), "/no/such/file.txt"); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoad_URLWithHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body><h1>Title</h1><p>Body text here.</p></body></html>")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = true
	loader := NewLoader(cfg)

	doc, err := loader.Load(context.Background(), server.URL+"/article")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(doc.Text, "Body text here.") {
		t.Errorf("Expected visible text, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "<p>") {
		t.Errorf("markup must be stripped, got %q", doc.Text)
	}
}

func TestLoad_URLBlockedByRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		_, _ = fmt.Fprint(w, "secret")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = true
	loader := NewLoader(cfg)

	if _, err := loader.Load(context.Background(), server.URL+"/private/page"); err == nil {
		t.Fatal("Expected robots.txt to block the fetch")
	}
}

func TestLoad_URLRobotsIgnoredWhenDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "plain body")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = false
	loader := NewLoader(cfg)

	doc, err := loader.Load(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Expected no error with robots disabled, got %v", err)
	}
	if doc.Text != "plain body" {
		t.Errorf("Unexpected body %q", doc.Text)
	}
}

func TestFetch_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "sidenote-test/0.1", 1<<20, "", "", "")
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for 404")
	}
}

func TestFetch_BodyCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("a", 1000))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "sidenote-test/0.1", 100, "", "", "")
	res, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(res.Body) != 100 {
		t.Errorf("Expected body capped at 100 bytes, got %d", len(res.Body))
	}
}

func TestHTMLToText_ParagraphStructure(t *testing.T) {
	html := "<html><body><p>One.</p><p>Two.</p><ul><li>alpha</li><li>beta</li></ul></body></html>"
	text, err := HTMLToText(html)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(text, "One.\n\nTwo.") {
		t.Errorf("block elements should become paragraph breaks, got %q", text)
	}
	if !strings.Contains(text, "alpha") || !strings.Contains(text, "beta") {
		t.Errorf("list items missing from %q", text)
	}
}

func TestSubjectFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://en.wikipedia.org/wiki/Cold_fusion", "Cold fusion"},
		{"https://example.com/posts/my-great-post.html", "my great post"},
		{"https://example.com/", "example.com"},
		{"https://example.com", "example.com"},
	}
	for _, tt := range tests {
		if got := subjectFromURL(tt.url); got != tt.want {
			t.Errorf("subjectFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
