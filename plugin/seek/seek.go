// Package seek implements the site plug-in for seek.com.au company review
// pages. A review renders as nine consecutive texts; the literal
// "The good things" heading anchors each block at offset 5.
package seek

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/scrapekit/go-scrape-reviews/browser"
	"github.com/scrapekit/go-scrape-reviews/models"
	"github.com/scrapekit/go-scrape-reviews/plugin"
)

const (
	// Block layout: position, "month year", location, tenure, title,
	// "The good things", pros, "The challenges", cons.
	dataLength    = 9
	textIdx       = 5
	yearIdx       = 1
	challengeIdx  = 7
	challengeText = "The challenges"

	nextSelector    = `a[aria-label="Next"]`
	contentSelector = "h3"

	// How often WaitForPage re-reads the page while waiting for the next
	// subpage's reviews to replace the current ones.
	pollInterval = 500 * time.Millisecond
)

var (
	urlPattern  = regexp.MustCompile(`^https?://www\.seek\.com\.au/companies/.+/reviews`)
	namePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-.,()]+$`)
	textPattern = regexp.MustCompile(`^The good things$`)
	yearPattern = regexp.MustCompile(`^\d{4}$`)
)

func init() {
	plugin.Register("seek", New)
}

// Seek is the plug-in instance for one run.
type Seek struct {
	nav *navigators
}

// New constructs a Seek plug-in.
func New() plugin.Plugin {
	return &Seek{nav: &navigators{}}
}

func (s *Seek) Name() string                  { return "seek" }
func (s *Seek) Validators() plugin.Validators { return validators{} }
func (s *Seek) Parsers() plugin.Parsers       { return parsers{} }
func (s *Seek) Navigators() plugin.Navigators { return s.nav }

type validators struct{}

func (validators) URLPattern() *regexp.Regexp  { return urlPattern }
func (validators) NamePattern() *regexp.Regexp { return namePattern }

// ValidateBlock checks the two positions that reliably betray a misaligned
// window: the review date and the challenges heading.
func (validators) ValidateBlock(block []string) error {
	if len(block) != dataLength {
		return fmt.Errorf("block has %d texts, want %d", len(block), dataLength)
	}
	fields := strings.Fields(block[yearIdx])
	if len(fields) < 2 || !yearPattern.MatchString(fields[1]) {
		return fmt.Errorf("expected month and year at block index %d, got %q", yearIdx, block[yearIdx])
	}
	if block[challengeIdx] != challengeText {
		return fmt.Errorf("expected %q at block index %d, got %q", challengeText, challengeIdx, block[challengeIdx])
	}
	return nil
}

type parsers struct{}

func (parsers) BrowserLang() string         { return "en-AU" }
func (parsers) TextPattern() *regexp.Regexp { return textPattern }
func (parsers) TextIdx() int                { return textIdx }
func (parsers) DataLength() int             { return dataLength }

func (parsers) Columns() []string {
	return []string{"position", "year", "location", "tenure", "title", "pros", "cons"}
}

// ExtractTotalCount reads the review counter from the company link, e.g.
// "1,234 reviews". The company slug is the second-to-last URL path segment.
func (parsers) ExtractTotalCount(ctx context.Context, sess browser.Session, entry models.EntryTarget) (int, error) {
	u, err := url.Parse(entry.URL)
	if err != nil {
		return 0, fmt.Errorf("parse entry URL: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return 0, fmt.Errorf("unexpected reviews URL path %q", u.Path)
	}
	slug := segments[len(segments)-2]

	text, err := sess.Text(ctx, fmt.Sprintf(`a[href*="%s"]`, slug))
	if err != nil {
		return 0, fmt.Errorf("find review counter: %w", err)
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty review counter text")
	}
	count, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return 0, fmt.Errorf("parse review counter %q: %w", text, err)
	}
	return count, nil
}

// ExtractPageText flattens the review markup into the span and h3 texts the
// matcher scans.
func (parsers) ExtractPageText(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	var texts []string
	doc.Find("span, h3").Each(func(_ int, sel *goquery.Selection) {
		texts = append(texts, sel.Text())
	})
	return texts, nil
}

// ParseBlock maps one review block to its record.
func (parsers) ParseBlock(block []string) (models.Record, error) {
	if len(block) != dataLength {
		return nil, fmt.Errorf("block has %d texts, want %d", len(block), dataLength)
	}
	fields := strings.Fields(block[yearIdx])
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed review date %q", block[yearIdx])
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("parse review year %q: %w", block[yearIdx], err)
	}
	return models.Record{
		"position": strings.TrimSpace(block[0]),
		"year":     year,
		"location": strings.TrimSpace(block[2]),
		"tenure":   strings.TrimSpace(block[3]),
		"title":    strings.TrimSpace(block[4]),
		"pros":     strings.TrimSpace(block[6]),
		"cons":     strings.TrimSpace(block[8]),
	}, nil
}

// navigators remembers the review headings seen before a pagination click so
// WaitForPage can detect when new content has replaced them.
type navigators struct {
	prev []string
}

func (n *navigators) WaitForEntry(ctx context.Context, sess browser.Session) error {
	return sess.WaitVisible(ctx, nextSelector)
}

// CheckNextPage reports pagination state from the Next link; Seek disables
// it by setting tabindex="-1" on the last page.
func (n *navigators) CheckNextPage(ctx context.Context, sess browser.Session) (bool, error) {
	tabindex, err := sess.Attribute(ctx, nextSelector, "tabindex")
	if err != nil {
		return false, err
	}
	return tabindex != "-1", nil
}

func (n *navigators) GrabNextPage(ctx context.Context, sess browser.Session) error {
	prev, err := sess.Texts(ctx, contentSelector)
	if err != nil {
		return fmt.Errorf("snapshot page content: %w", err)
	}
	n.prev = prev
	return sess.Click(ctx, nextSelector)
}

// WaitForPage polls until the review headings differ from the snapshot taken
// before the click. The ctx deadline bounds the wait.
func (n *navigators) WaitForPage(ctx context.Context, sess browser.Session) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		current, err := sess.Texts(ctx, contentSelector)
		if err == nil && !slices.Equal(current, n.prev) {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("page changed but review content did not: %w", ctx.Err())
		}
	}
}
