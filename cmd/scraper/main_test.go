package main

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/scrapekit/go-scrape-reviews/browser"
	"github.com/scrapekit/go-scrape-reviews/config"
	"github.com/scrapekit/go-scrape-reviews/models"
	"github.com/scrapekit/go-scrape-reviews/plugin"
	"github.com/scrapekit/go-scrape-reviews/scraper"
)

type memWriter struct {
	mu      sync.Mutex
	records []models.Record
	closed  bool
}

func (w *memWriter) Write(records []models.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, records...)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *memWriter) Validate() error { return nil }

type memSession struct {
	page   string
	closed bool
}

func (s *memSession) Navigate(ctx context.Context, url string) error { return nil }
func (s *memSession) HTML(ctx context.Context) (string, error)       { return s.page, nil }

func (s *memSession) Text(ctx context.Context, selector string) (string, error) {
	return "", nil
}

func (s *memSession) Texts(ctx context.Context, selector string) ([]string, error) {
	return nil, nil
}

func (s *memSession) Attribute(ctx context.Context, selector, name string) (string, error) {
	return "", nil
}

func (s *memSession) Click(ctx context.Context, selector string) error { return nil }

func (s *memSession) WaitVisible(ctx context.Context, selector string) error { return nil }

func (s *memSession) Close() error {
	s.closed = true
	return nil
}

var _ browser.Session = (*memSession)(nil)

// memPlugin serves a single one-page entry with one data block.
type memPlugin struct {
	urlPattern *regexp.Regexp
	total      int
}

func (p *memPlugin) Name() string                  { return "mem" }
func (p *memPlugin) Validators() plugin.Validators { return p }
func (p *memPlugin) Parsers() plugin.Parsers       { return p }
func (p *memPlugin) Navigators() plugin.Navigators { return p }

func (p *memPlugin) URLPattern() *regexp.Regexp   { return p.urlPattern }
func (p *memPlugin) NamePattern() *regexp.Regexp  { return nil }
func (p *memPlugin) ValidateBlock([]string) error { return nil }

func (p *memPlugin) BrowserLang() string         { return "en" }
func (p *memPlugin) TextPattern() *regexp.Regexp { return regexp.MustCompile(`^Rating:`) }
func (p *memPlugin) TextIdx() int                { return 1 }
func (p *memPlugin) DataLength() int             { return 4 }
func (p *memPlugin) Columns() []string           { return []string{"title", "rating", "pros", "cons"} }

func (p *memPlugin) ExtractTotalCount(ctx context.Context, sess browser.Session, entry models.EntryTarget) (int, error) {
	return p.total, nil
}

func (p *memPlugin) ExtractPageText(html string) ([]string, error) {
	return strings.Split(html, "\n"), nil
}

func (p *memPlugin) ParseBlock(block []string) (models.Record, error) {
	return models.Record{
		"title":  block[0],
		"rating": block[1],
		"pros":   block[2],
		"cons":   block[3],
	}, nil
}

func (p *memPlugin) CheckNextPage(ctx context.Context, sess browser.Session) (bool, error) {
	return false, nil
}

func (p *memPlugin) GrabNextPage(ctx context.Context, sess browser.Session) error { return nil }
func (p *memPlugin) WaitForEntry(ctx context.Context, sess browser.Session) error { return nil }
func (p *memPlugin) WaitForPage(ctx context.Context, sess browser.Session) error  { return nil }

func memConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RateLimitDelay = 0
	cfg.MetricsAddr = ""
	cfg.Verbose = false
	return cfg
}

func TestScrapeReleasesResourcesOnSuccess(t *testing.T) {
	plug := &memPlugin{
		urlPattern: regexp.MustCompile(`^https://example\.com/`),
		total:      1,
	}
	sess := &memSession{page: "Great role\nRating: 5\ngood pay\nnice team"}
	writer := &memWriter{}
	entries := []models.EntryTarget{{Name: "Acme", URL: "https://example.com/acme"}}

	code := scrape(context.Background(), memConfig(), plug, entries, sess, writer, "out.csv")

	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !sess.closed {
		t.Fatal("session was not closed")
	}
	if !writer.closed {
		t.Fatal("writer was not closed")
	}
	if len(writer.records) != 1 {
		t.Fatalf("written records = %d, want 1", len(writer.records))
	}
	if got := writer.records[0][scraper.EntryColumn]; got != "Acme" {
		t.Fatalf("record entry = %v, want Acme", got)
	}
}

func TestScrapeReleasesResourcesWhenAllEntriesFail(t *testing.T) {
	plug := &memPlugin{
		urlPattern: regexp.MustCompile(`^https://allowed\.example/`),
		total:      1,
	}
	sess := &memSession{page: ""}
	writer := &memWriter{}
	entries := []models.EntryTarget{{Name: "Acme", URL: "https://example.com/acme"}}

	code := scrape(context.Background(), memConfig(), plug, entries, sess, writer, "out.csv")

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !sess.closed {
		t.Fatal("session was not closed on the failure path")
	}
	if !writer.closed {
		t.Fatal("writer was not closed on the failure path")
	}
	if len(writer.records) != 0 {
		t.Fatalf("written records = %d, want 0", len(writer.records))
	}
}
