package scraper

import (
	"errors"
	"fmt"
)

// ErrInvalidEntryURL indicates an entry URL that does not match the
// plug-in's URL pattern. Raised before the browser session is touched.
type ErrInvalidEntryURL struct {
	URL     string
	Pattern string
}

func (e ErrInvalidEntryURL) Error() string {
	return fmt.Sprintf("invalid_entry_url: %q does not match %q", e.URL, e.Pattern)
}

// ErrUnexpectedData indicates a data block that failed structural
// validation or left the page bounds.
type ErrUnexpectedData struct {
	Err error
}

func (e ErrUnexpectedData) Error() string {
	return fmt.Errorf("unexpected_data: %w", e.Err).Error()
}

func (e ErrUnexpectedData) Unwrap() error {
	return e.Err
}

// ErrBlockParse indicates a validated block the plug-in parser rejected.
type ErrBlockParse struct {
	Err error
}

func (e ErrBlockParse) Error() string {
	return fmt.Errorf("block_parse: %w", e.Err).Error()
}

func (e ErrBlockParse) Unwrap() error {
	return e.Err
}

// ErrCountMismatch indicates reconciliation failure between the advertised
// and the extracted record count for one entry.
type ErrCountMismatch struct {
	Expected int
	Actual   int
}

func (e ErrCountMismatch) Error() string {
	return fmt.Sprintf("count_mismatch: expected %d records, extracted %d", e.Expected, e.Actual)
}

// ErrNavigationTimeout indicates a navigator wait that did not resolve
// within the configured deadline. Fatal for the current entry.
type ErrNavigationTimeout struct {
	Stage string
	Err   error
}

func (e ErrNavigationTimeout) Error() string {
	return fmt.Errorf("navigation_timeout at %s: %w", e.Stage, e.Err).Error()
}

func (e ErrNavigationTimeout) Unwrap() error {
	return e.Err
}

func errorKindLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var invalidURL ErrInvalidEntryURL
	if errors.As(err, &invalidURL) {
		return "invalid_entry_url"
	}
	var unexpected ErrUnexpectedData
	if errors.As(err, &unexpected) {
		return "unexpected_data"
	}
	var blockParse ErrBlockParse
	if errors.As(err, &blockParse) {
		return "block_parse"
	}
	var mismatch ErrCountMismatch
	if errors.As(err, &mismatch) {
		return "count_mismatch"
	}
	var navTimeout ErrNavigationTimeout
	if errors.As(err, &navTimeout) {
		return "navigation_timeout"
	}
	return "other"
}
