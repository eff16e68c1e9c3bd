// Package plugin defines the site plug-in contract. A plug-in supplies
// everything specific to one website (URL validation, data-block layout
// and parsing, pagination control) through three capability facets. The
// scraper core hosts exactly one plug-in per run.
package plugin

import (
	"context"
	"regexp"

	"github.com/scrapekit/go-scrape-reviews/browser"
	"github.com/scrapekit/go-scrape-reviews/models"
)

// Validators checks entries and data blocks before they are parsed.
type Validators interface {
	// URLPattern returns the pattern entry URLs must match, or nil when
	// any URL is acceptable.
	URLPattern() *regexp.Regexp
	// NamePattern returns the pattern entry names must match, or nil.
	NamePattern() *regexp.Regexp
	// ValidateBlock reports whether a candidate data block has the
	// structure the site promises. Pure; nil means valid.
	ValidateBlock(block []string) error
}

// Parsers turns page content into data blocks and typed records.
type Parsers interface {
	// BrowserLang is the language the browser session should run with.
	BrowserLang() string
	// TextPattern anchors data blocks inside a page's extracted texts.
	TextPattern() *regexp.Regexp
	// TextIdx is the offset of the anchor inside a data block.
	TextIdx() int
	// DataLength is the number of texts one data block spans.
	DataLength() int
	// Columns lists the record schema in output order. Stable per plug-in.
	Columns() []string
	// ExtractTotalCount reads the number of records the entry advertises.
	// Evaluated once per entry, against its first loaded state.
	ExtractTotalCount(ctx context.Context, sess browser.Session, entry models.EntryTarget) (int, error)
	// ExtractPageText flattens one page's content into the ordered texts
	// the matcher scans.
	ExtractPageText(html string) ([]string, error)
	// ParseBlock converts a validated data block into a record.
	ParseBlock(block []string) (models.Record, error)
}

// Navigators drives the browser session between an entry's subpages.
type Navigators interface {
	// CheckNextPage reports whether another subpage can be reached.
	CheckNextPage(ctx context.Context, sess browser.Session) (bool, error)
	// GrabNextPage advances the session to the next subpage.
	GrabNextPage(ctx context.Context, sess browser.Session) error
	// WaitForEntry blocks until the entry URL's content has loaded.
	WaitForEntry(ctx context.Context, sess browser.Session) error
	// WaitForPage blocks until the next subpage's content has replaced
	// the previous one.
	WaitForPage(ctx context.Context, sess browser.Session) error
}

// Plugin bundles the three facets for one supported website.
type Plugin interface {
	Name() string
	Validators() Validators
	Parsers() Parsers
	Navigators() Navigators
}
