package scraper

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/scrapekit/go-scrape-reviews/config"
	"github.com/scrapekit/go-scrape-reviews/models"
	"github.com/scrapekit/go-scrape-reviews/pipeline"
)

// collectingWriter captures pipeline output for assertions.
type collectingWriter struct {
	mu      sync.Mutex
	records []models.Record
}

func (w *collectingWriter) Write(records []models.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, records...)
	return nil
}

func (w *collectingWriter) Close() error    { return nil }
func (w *collectingWriter) Validate() error { return nil }

func (w *collectingWriter) all() []models.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Record(nil), w.records...)
}

func newTestController(t *testing.T, plug *fakePlugin, sess *fakeSession) (*Controller, *config.Config) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RateLimitDelay = 0
	cfg.DataStrict = true
	ctrl, err := NewController(cfg, plug, sess)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl, cfg
}

func TestControllerIsolatesFailedEntries(t *testing.T) {
	plug, sess := newFakes(page(
		"Great role", "Rating: 5", "good pay", "nice team",
		"Bad role", "Rating: 1", "low pay", "long hours",
	))
	plug.total = 2
	plug.urlPattern = regexp.MustCompile(`^https://reviews\.example\.com/`)
	ctrl, cfg := newTestController(t, plug, sess)

	entries := []models.EntryTarget{
		{Name: "Broken", URL: "https://elsewhere.example.net/broken"},
		{Name: "Acme", URL: "https://reviews.example.com/acme"},
	}

	writer := &collectingWriter{}
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Start(1)

	run, err := ctrl.Run(context.Background(), entries, p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if got := run.Failed(); !reflect.DeepEqual(got, []string{"Broken"}) {
		t.Fatalf("failed entries = %v, want [Broken]", got)
	}
	if got := run.Succeeded(); !reflect.DeepEqual(got, []string{"Acme"}) {
		t.Fatalf("succeeded entries = %v, want [Acme]", got)
	}
	if run.RecordCount != 2 {
		t.Fatalf("record count = %d, want 2", run.RecordCount)
	}

	records := writer.all()
	if len(records) != 2 {
		t.Fatalf("pipeline wrote %d records, want 2", len(records))
	}
	for _, record := range records {
		if record[EntryColumn] != "Acme" {
			t.Fatalf("record %v not tagged with its entry", record)
		}
	}
}

func TestControllerStopsOnCancelledContext(t *testing.T) {
	plug, sess := newFakes(page("Great role", "Rating: 5", "good pay", "nice team"))
	plug.total = 1
	ctrl, _ := newTestController(t, plug, sess)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := []models.EntryTarget{{Name: "Acme", URL: "https://example.com/acme"}}
	run, err := ctrl.Run(ctx, entries, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("run error = %v, want context.Canceled", err)
	}
	if len(run.Results) != 0 {
		t.Fatalf("processed %d entries after cancellation", len(run.Results))
	}
}

func TestControllerCountsWarnedEntries(t *testing.T) {
	plug, sess := newFakes(page("Great role", "Rating: 5", "good pay", "nice team"))
	plug.total = 2
	ctrl, cfg := newTestController(t, plug, sess)
	cfg.DataStrict = false
	// Rebuild so the session picks up the lenient policy.
	var err error
	ctrl, err = NewController(cfg, plug, sess)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	entries := []models.EntryTarget{{Name: "Acme", URL: "https://example.com/acme"}}
	run, err := ctrl.Run(context.Background(), entries, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := run.Warned(); !reflect.DeepEqual(got, []string{"Acme"}) {
		t.Fatalf("warned entries = %v, want [Acme]", got)
	}
	if run.RecordCount != 1 {
		t.Fatalf("record count = %d, want 1", run.RecordCount)
	}
}

func TestControllerRateLimitDelaySeparatesEntries(t *testing.T) {
	plug, sess := newFakes(page("Great role", "Rating: 5", "good pay", "nice team"))
	plug.total = 1
	ctrl, cfg := newTestController(t, plug, sess)
	cfg.RateLimitDelay = 75 * time.Millisecond

	entries := []models.EntryTarget{
		{Name: "Acme", URL: "https://example.com/acme"},
		{Name: "Zeta", URL: "https://example.com/zeta"},
	}

	start := time.Now()
	run, err := ctrl.Run(context.Background(), entries, nil)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(run.Results) != 2 {
		t.Fatalf("processed %d entries, want 2", len(run.Results))
	}
	if elapsed < cfg.RateLimitDelay {
		t.Fatalf("run took %v, want at least the %v delay between entries", elapsed, cfg.RateLimitDelay)
	}
}

func TestControllerNoDelayBeforeFirstEntry(t *testing.T) {
	plug, sess := newFakes(page("Great role", "Rating: 5", "good pay", "nice team"))
	plug.total = 1
	ctrl, cfg := newTestController(t, plug, sess)
	cfg.RateLimitDelay = 10 * time.Second

	entries := []models.EntryTarget{{Name: "Acme", URL: "https://example.com/acme"}}

	start := time.Now()
	run, err := ctrl.Run(context.Background(), entries, nil)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(run.Results) != 1 {
		t.Fatalf("processed %d entries, want 1", len(run.Results))
	}
	if elapsed >= cfg.RateLimitDelay {
		t.Fatalf("run took %v: delay applied before the first entry", elapsed)
	}
}

func TestControllerCancelledDuringRateLimitSleep(t *testing.T) {
	plug, sess := newFakes(page("Great role", "Rating: 5", "good pay", "nice team"))
	plug.total = 1
	ctrl, cfg := newTestController(t, plug, sess)
	cfg.RateLimitDelay = 10 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	entries := []models.EntryTarget{
		{Name: "Acme", URL: "https://example.com/acme"},
		{Name: "Zeta", URL: "https://example.com/zeta"},
	}

	start := time.Now()
	run, err := ctrl.Run(ctx, entries, nil)
	elapsed := time.Since(start)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("run error = %v, want context.Canceled", err)
	}
	if elapsed >= cfg.RateLimitDelay {
		t.Fatalf("run took %v: cancellation did not interrupt the delay", elapsed)
	}
	if len(run.Results) != 1 {
		t.Fatalf("processed %d entries, want only the first", len(run.Results))
	}
}

func TestControllerWarningMetricsSkipFailedEntries(t *testing.T) {
	plug, sess := newFakes(
		page("Great role", "Rating: 5", "good pay", "nice team"),
		page("Bad role", "Rating: 1", "low pay", "long hours"),
	)
	plug.total = 2
	plug.validate = func(block []string) error {
		if block[0] == "Great role" {
			return fmt.Errorf("block missing challenges marker")
		}
		return nil
	}
	// Fails advancing to page two, after the lenient warning on page one.
	plug.pageWaitErr = context.DeadlineExceeded
	cfg := config.DefaultConfig()
	cfg.RateLimitDelay = 0
	cfg.DataStrict = false
	ctrl, err := NewController(cfg, plug, sess)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	entries := []models.EntryTarget{{Name: "Acme", URL: "https://example.com/acme"}}
	run, err := ctrl.Run(context.Background(), entries, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := run.Failed(); !reflect.DeepEqual(got, []string{"Acme"}) {
		t.Fatalf("failed entries = %v, want [Acme]", got)
	}
	if len(run.Results[0].Warnings) == 0 {
		t.Fatal("failed entry carries no warnings; nothing to assert")
	}
	if got := testutil.ToFloat64(ctrl.Metrics.WarningsTotal); got != 0 {
		t.Fatalf("warnings metric = %v for a failed entry, want 0", got)
	}
	if got := testutil.ToFloat64(ctrl.Metrics.FailuresTotal.WithLabelValues("navigation_timeout")); got != 1 {
		t.Fatalf("failure metric = %v, want 1", got)
	}
}

func TestControllerWarningMetricsCountCompletedEntries(t *testing.T) {
	plug, sess := newFakes(page("Great role", "Rating: 5", "good pay", "nice team"))
	plug.total = 2
	cfg := config.DefaultConfig()
	cfg.RateLimitDelay = 0
	cfg.DataStrict = false
	ctrl, err := NewController(cfg, plug, sess)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	entries := []models.EntryTarget{{Name: "Acme", URL: "https://example.com/acme"}}
	run, err := ctrl.Run(context.Background(), entries, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := run.Warned(); !reflect.DeepEqual(got, []string{"Acme"}) {
		t.Fatalf("warned entries = %v, want [Acme]", got)
	}
	if got := testutil.ToFloat64(ctrl.Metrics.WarningsTotal); got != 1 {
		t.Fatalf("warnings metric = %v, want 1", got)
	}
}

func TestOutputColumns(t *testing.T) {
	plug, _ := newFakes()
	got := OutputColumns(plug)
	want := []string{"entry", "title", "rating", "pros", "cons"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("OutputColumns = %v, want %v", got, want)
	}
}

func TestErrorKindLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: "unknown"},
		{name: "invalid url", err: ErrInvalidEntryURL{URL: "x", Pattern: "y"}, want: "invalid_entry_url"},
		{name: "unexpected data", err: ErrUnexpectedData{Err: fmt.Errorf("boom")}, want: "unexpected_data"},
		{name: "block parse", err: ErrBlockParse{Err: fmt.Errorf("boom")}, want: "block_parse"},
		{name: "count mismatch", err: ErrCountMismatch{Expected: 2, Actual: 1}, want: "count_mismatch"},
		{name: "navigation timeout", err: ErrNavigationTimeout{Stage: "page", Err: context.DeadlineExceeded}, want: "navigation_timeout"},
		{name: "wrapped", err: fmt.Errorf("entry: %w", ErrCountMismatch{Expected: 3, Actual: 0}), want: "count_mismatch"},
		{name: "plain", err: fmt.Errorf("boom"), want: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorKindLabel(tt.err); got != tt.want {
				t.Fatalf("errorKindLabel = %q, want %q", got, tt.want)
			}
		})
	}
}
