// Package browser provides the page session capability the scraper core
// drives. Implementations own exactly one page at a time; callers must not
// share a session across goroutines.
package browser

import "context"

// Session is the handle to one live page of a scripted browsing session.
// Selector arguments are CSS selectors. Blocking calls honor ctx deadlines.
type Session interface {
	// Navigate loads url in the session's page.
	Navigate(ctx context.Context, url string) error
	// HTML returns the current page content.
	HTML(ctx context.Context) (string, error)
	// Text returns the text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)
	// Texts returns the texts of all elements matching selector.
	Texts(ctx context.Context, selector string) ([]string, error)
	// Attribute returns the named attribute of the first element matching
	// selector, or "" when the attribute is absent.
	Attribute(ctx context.Context, selector, name string) (string, error)
	// Click activates the first element matching selector.
	Click(ctx context.Context, selector string) error
	// WaitVisible blocks until an element matching selector is visible.
	WaitVisible(ctx context.Context, selector string) error
	// Close releases the session and its external resources.
	Close() error
}
