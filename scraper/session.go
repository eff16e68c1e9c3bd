package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scrapekit/go-scrape-reviews/browser"
	"github.com/scrapekit/go-scrape-reviews/config"
	"github.com/scrapekit/go-scrape-reviews/models"
	"github.com/scrapekit/go-scrape-reviews/plugin"
)

// ExtractionSession processes one entry end-to-end: navigation across its
// subpages, block discovery, validation, parsing, and reconciliation of the
// extracted record count against the count the entry advertises.
type ExtractionSession struct {
	plug       plugin.Plugin
	sess       browser.Session
	matcher    *PatternMatcher
	strict     bool
	navTimeout time.Duration
	metrics    *Metrics
}

// NewExtractionSession wires a plug-in to a browser session under the run's
// strictness policy.
func NewExtractionSession(plug plugin.Plugin, sess browser.Session, cfg *config.Config, metrics *Metrics) (*ExtractionSession, error) {
	parsers := plug.Parsers()
	matcher, err := NewPatternMatcher(parsers.TextPattern(), parsers.TextIdx(), parsers.DataLength())
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", plug.Name(), err)
	}
	return &ExtractionSession{
		plug:       plug,
		sess:       sess,
		matcher:    matcher,
		strict:     cfg.DataStrict,
		navTimeout: cfg.NavTimeout,
		metrics:    metrics,
	}, nil
}

// Run extracts all records for one entry. The returned result is always
// non-nil; Failed results carry no records.
func (es *ExtractionSession) Run(ctx context.Context, entry models.EntryTarget) *models.ExtractionResult {
	res := &models.ExtractionResult{Entry: entry}

	// Fast fail before the browser session is touched.
	if pat := es.plug.Validators().URLPattern(); pat != nil && !pat.MatchString(entry.URL) {
		return es.fail(res, ErrInvalidEntryURL{URL: entry.URL, Pattern: pat.String()})
	}

	nav := es.plug.Navigators()
	if err := es.sess.Navigate(ctx, entry.URL); err != nil {
		return es.fail(res, fmt.Errorf("navigate entry: %w", err))
	}
	if err := es.withNavTimeout(ctx, nav.WaitForEntry); err != nil {
		return es.fail(res, ErrNavigationTimeout{Stage: "entry", Err: err})
	}

	parsers := es.plug.Parsers()
	expected, err := parsers.ExtractTotalCount(ctx, es.sess, entry)
	if err != nil {
		return es.fail(res, fmt.Errorf("extract total count: %w", err))
	}

	for {
		if err := ctx.Err(); err != nil {
			return es.fail(res, err)
		}

		html, err := es.sess.HTML(ctx)
		if err != nil {
			return es.fail(res, fmt.Errorf("read page: %w", err))
		}
		texts, err := parsers.ExtractPageText(html)
		if err != nil {
			return es.fail(res, fmt.Errorf("extract page text: %w", err))
		}
		if err := es.processPage(texts, res); err != nil {
			return es.fail(res, err)
		}
		es.metrics.IncPage()

		hasNext, err := nav.CheckNextPage(ctx, es.sess)
		if err != nil {
			return es.fail(res, fmt.Errorf("check next page: %w", err))
		}
		if !hasNext {
			break
		}
		if err := nav.GrabNextPage(ctx, es.sess); err != nil {
			return es.fail(res, fmt.Errorf("grab next page: %w", err))
		}
		if err := es.withNavTimeout(ctx, nav.WaitForPage); err != nil {
			return es.fail(res, ErrNavigationTimeout{Stage: "page", Err: err})
		}
	}

	if len(res.Records) != expected {
		mismatch := ErrCountMismatch{Expected: expected, Actual: len(res.Records)}
		if es.strict {
			return es.fail(res, mismatch)
		}
		slog.Warn("record count mismatch",
			slog.String("entry", entry.Name),
			slog.Int("expected", expected),
			slog.Int("actual", len(res.Records)),
		)
		res.Warn(mismatch.Error())
	}
	return res
}

// processPage runs every matched block on one page through validation and
// parsing. In strict mode the first block failure is returned and aborts
// the entry; in lenient mode failures degrade to warnings and the parse is
// still attempted after a validation failure.
func (es *ExtractionSession) processPage(texts []string, res *models.ExtractionResult) error {
	validators := es.plug.Validators()
	parsers := es.plug.Parsers()

	for _, idx := range es.matcher.Indices(texts) {
		block, err := es.matcher.BlockAt(texts, idx)
		if err != nil {
			es.metrics.IncBlock("bounds_error")
			if es.strict {
				return err
			}
			res.Warn(err.Error())
			continue
		}

		if err := validators.ValidateBlock(block); err != nil {
			verr := ErrUnexpectedData{Err: err}
			es.metrics.IncBlock("validation_failed")
			if es.strict {
				return verr
			}
			slog.Warn("potential bad data, proceeding",
				slog.String("entry", res.Entry.Name),
				slog.Any("error", err),
			)
			res.Warn(verr.Error())
		}

		record, err := parsers.ParseBlock(block)
		if err != nil {
			perr := ErrBlockParse{Err: err}
			es.metrics.IncBlock("parse_failed")
			if es.strict {
				return perr
			}
			res.Warn(perr.Error())
			continue
		}
		es.metrics.IncBlock("parsed")
		res.Records = append(res.Records, record)
	}
	return nil
}

func (es *ExtractionSession) withNavTimeout(ctx context.Context, wait func(context.Context, browser.Session) error) error {
	ctx, cancel := context.WithTimeout(ctx, es.navTimeout)
	defer cancel()
	return wait(ctx, es.sess)
}

// fail marks the result failed and discards any partial records.
func (es *ExtractionSession) fail(res *models.ExtractionResult, err error) *models.ExtractionResult {
	res.Failed = true
	res.Records = nil
	res.Err = err
	return res
}
