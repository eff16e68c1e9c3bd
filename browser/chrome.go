package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ChromeOptions configures the launched Chrome instance.
type ChromeOptions struct {
	// Visible runs Chrome with a window instead of headless.
	Visible bool
	// Trace logs every driver action, for debugging scrapes.
	Trace bool
	// Lang sets the browser language (e.g. "en-AU").
	Lang string
}

// ChromeSession drives a single page of a launched Chrome instance through
// go-rod. The browser process is owned by the session and torn down on Close.
type ChromeSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewChromeSession launches Chrome and opens one blank page.
func NewChromeSession(opts ChromeOptions) (*ChromeSession, error) {
	l := launcher.New().Headless(!opts.Visible)
	if opts.Lang != "" {
		l = l.Set("lang", opts.Lang)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Trace(opts.Trace)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &ChromeSession{launcher: l, browser: b, page: page}, nil
}

// Navigate loads url and waits for the load event.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// HTML returns the serialized DOM of the current page.
func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Text returns the text of the first element matching selector, waiting for
// it to appear.
func (s *ChromeSession) Text(ctx context.Context, selector string) (string, error) {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("find %q: %w", selector, err)
	}
	return el.Text()
}

// Texts returns the texts of all elements currently matching selector.
func (s *ChromeSession) Texts(ctx context.Context, selector string) ([]string, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("find all %q: %w", selector, err)
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			return nil, fmt.Errorf("element text %q: %w", selector, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// Attribute returns the named attribute of the first matching element.
func (s *ChromeSession) Attribute(ctx context.Context, selector, name string) (string, error) {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("find %q: %w", selector, err)
	}
	value, err := el.Attribute(name)
	if err != nil {
		return "", fmt.Errorf("attribute %q of %q: %w", name, selector, err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

// Click activates the first element matching selector.
func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// WaitVisible blocks until an element matching selector becomes visible.
func (s *ChromeSession) WaitVisible(ctx context.Context, selector string) error {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %q: %w", selector, err)
	}
	return nil
}

// Close shuts the browser down and cleans up the launcher's temp state.
// Safe to call after a failed entry; every run exit path must reach it.
func (s *ChromeSession) Close() error {
	err := s.browser.Close()
	s.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}
