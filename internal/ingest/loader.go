package ingest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pmorozov/sidenote/internal/model"
)

// Document is a loaded source ready for analysis.
type Document struct {
	Text   string
	Source string // File path or final URL
	Title  string // Best-effort, derived from the source
}

// Loader resolves a document source, which is either a local file path or
// an http(s) URL, into plain text.
type Loader struct {
	fetcher *Fetcher
	robots  *RobotsChecker
	cfg     model.HTTPConfig
}

// NewLoader creates a Loader from the HTTP section of the configuration.
func NewLoader(cfg model.HTTPConfig) *Loader {
	return &Loader{
		fetcher: NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		robots:  NewRobotsChecker(cfg.UserAgent, cfg.Timeout),
		cfg:     cfg,
	}
}

// Load reads the source into a Document. URL sources go through a
// robots.txt check and HTML responses are reduced to visible text.
func (l *Loader) Load(ctx context.Context, source string) (*Document, error) {
	if isURL(source) {
		return l.loadURL(ctx, source)
	}
	return l.loadFile(source)
}

func (l *Loader) loadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("read %s: not valid UTF-8", path)
	}

	text := string(data)
	if isHTMLContent(text) {
		text, err = HTMLToText(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	return &Document{Text: text, Source: path, Title: path}, nil
}

func (l *Loader) loadURL(ctx context.Context, rawURL string) (*Document, error) {
	if l.cfg.RespectRobots {
		allowed, crawlDelay, err := l.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("robots.txt disallows fetching %s", rawURL)
		}
		if crawlDelay > 0 {
			select {
			case <-time.After(crawlDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	res, err := l.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	text := res.Body
	if strings.Contains(res.ContentType, "html") || isHTMLContent(text) {
		text, err = HTMLToText(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", rawURL, err)
		}
	}

	return &Document{Text: text, Source: res.FinalURL, Title: subjectFromURL(res.FinalURL)}, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// isHTMLContent sniffs for markup when the content type is absent or lies.
func isHTMLContent(text string) bool {
	head := strings.ToLower(strings.TrimSpace(text))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// subjectFromURL derives a readable title from the last URL path segment.
func subjectFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")
	if dot := strings.LastIndex(last, "."); dot > 0 {
		last = last[:dot]
	}
	return last
}
