// Package scraper contains the extraction and navigation orchestration
// core: block discovery, per-block error policy, count reconciliation, and
// the rate-limited sequencing of entries over one shared browser session.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/scrapekit/go-scrape-reviews/browser"
	"github.com/scrapekit/go-scrape-reviews/config"
	"github.com/scrapekit/go-scrape-reviews/models"
	"github.com/scrapekit/go-scrape-reviews/pipeline"
	"github.com/scrapekit/go-scrape-reviews/plugin"
)

// EntryColumn is the column added to every output record naming the entry
// it was extracted from.
const EntryColumn = "entry"

// Controller sequences entries strictly one at a time over the single
// shared browser session, isolates per-entry failures, and aggregates
// results for the run summary.
type Controller struct {
	cfg     *config.Config
	plug    plugin.Plugin
	session *ExtractionSession
	Metrics *Metrics
}

// NewController builds a controller for one run.
func NewController(cfg *config.Config, plug plugin.Plugin, sess browser.Session) (*Controller, error) {
	metrics := NewMetrics()
	session, err := NewExtractionSession(plug, sess, cfg, metrics)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:     cfg,
		plug:    plug,
		session: session,
		Metrics: metrics,
	}, nil
}

// Run processes every entry and streams successful records through the
// pipeline. A fatal failure in one entry is recorded and the run moves on;
// partial success is the normal operating mode. Run only returns an error
// when the context is cancelled.
func (c *Controller) Run(ctx context.Context, entries []models.EntryTarget, out *pipeline.Pipeline) (*models.RunResult, error) {
	run := &models.RunResult{
		StartTime:  time.Now(),
		EntryCount: len(entries),
	}

	for i, entry := range entries {
		if i > 0 && c.cfg.RateLimitDelay > 0 {
			if err := sleepCtx(ctx, c.cfg.RateLimitDelay); err != nil {
				run.EndTime = time.Now()
				return run, err
			}
		}
		if err := ctx.Err(); err != nil {
			run.EndTime = time.Now()
			return run, err
		}

		slog.Info("scraping entry",
			slog.String("entry", entry.Name),
			slog.String("url", entry.URL),
		)

		start := time.Now()
		res := c.session.Run(ctx, entry)
		c.Metrics.ObserveEntryDuration(time.Since(start))
		run.Results = append(run.Results, res)

		if res.Failed {
			c.Metrics.IncEntry("failed")
			c.Metrics.IncFailure(errorKindLabel(res.Err))
			slog.Error("entry failed",
				slog.String("entry", entry.Name),
				slog.String("kind", errorKindLabel(res.Err)),
				slog.Any("error", res.Err),
			)
			continue
		}
		// Warnings on a failed entry describe discarded records; only
		// completed entries feed the warnings counter.
		c.Metrics.AddWarnings(len(res.Warnings))
		if len(res.Warnings) > 0 {
			c.Metrics.IncEntry("warned")
			for _, warning := range res.Warnings {
				slog.Warn("entry warning",
					slog.String("entry", entry.Name),
					slog.String("warning", warning),
				)
			}
		} else {
			c.Metrics.IncEntry("succeeded")
		}

		c.Metrics.AddRecords(len(res.Records))
		run.RecordCount += len(res.Records)
		slog.Info("entry extracted",
			slog.String("entry", entry.Name),
			slog.Int("records", len(res.Records)),
		)

		if out != nil && len(res.Records) > 0 {
			if err := out.Process(c.tagRecords(entry, res.Records)...); err != nil && !errors.Is(err, pipeline.ErrPipelineClosed) {
				slog.Error("pipeline process error", slog.Any("error", err))
			}
		}
	}

	run.EndTime = time.Now()
	return run, nil
}

// tagRecords copies each record with the entry name added, keeping the
// schema uniform across the run.
func (c *Controller) tagRecords(entry models.EntryTarget, records []models.Record) []models.Record {
	tagged := make([]models.Record, 0, len(records))
	for _, record := range records {
		out := make(models.Record, len(record)+1)
		for key, value := range record {
			out[key] = value
		}
		out[EntryColumn] = entry.Name
		tagged = append(tagged, out)
	}
	return tagged
}

// OutputColumns returns the run's tabular schema: the entry column followed
// by the plug-in's record columns.
func OutputColumns(plug plugin.Plugin) []string {
	return append([]string{EntryColumn}, plug.Parsers().Columns()...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
