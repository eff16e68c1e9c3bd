package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// StaticOptions configures the HTTP-backed session.
type StaticOptions struct {
	UserAgent string
	Timeout   time.Duration
}

// StaticSession implements Session over plain HTTP fetches for sites whose
// pagination works without scripting. Navigation fetches the page once;
// Click follows the target element's href. Content never changes between
// navigations, so WaitVisible is a presence check.
type StaticSession struct {
	collector *colly.Collector
	html      string
	doc       *goquery.Document
	base      *url.URL
	fetchErr  error
}

// NewStaticSession builds a session backed by a synchronous colly collector.
func NewStaticSession(opts StaticOptions) *StaticSession {
	c := colly.NewCollector()
	c.AllowURLRevisit = true
	if opts.UserAgent != "" {
		c.UserAgent = opts.UserAgent
	}
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}

	s := &StaticSession{collector: c}
	c.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			s.fetchErr = fmt.Errorf("parse response from %s: %w", r.Request.URL, err)
			return
		}
		s.html = string(r.Body)
		s.doc = doc
		s.base = r.Request.URL
	})
	return s
}

// Navigate fetches url and replaces the current page.
func (s *StaticSession) Navigate(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.html, s.doc, s.base, s.fetchErr = "", nil, nil, nil
	if err := s.collector.Visit(target); err != nil {
		return fmt.Errorf("fetch %s: %w", target, err)
	}
	if s.fetchErr != nil {
		return s.fetchErr
	}
	if s.doc == nil {
		return fmt.Errorf("fetch %s: no response received", target)
	}
	return nil
}

// HTML returns the raw body of the current page.
func (s *StaticSession) HTML(ctx context.Context) (string, error) {
	if err := s.requirePage(ctx); err != nil {
		return "", err
	}
	return s.html, nil
}

// Text returns the text of the first element matching selector.
func (s *StaticSession) Text(ctx context.Context, selector string) (string, error) {
	if err := s.requirePage(ctx); err != nil {
		return "", err
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("no element matches %q", selector)
	}
	return strings.TrimSpace(sel.Text()), nil
}

// Texts returns the texts of all elements matching selector.
func (s *StaticSession) Texts(ctx context.Context, selector string) ([]string, error) {
	if err := s.requirePage(ctx); err != nil {
		return nil, err
	}
	var texts []string
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		texts = append(texts, sel.Text())
	})
	return texts, nil
}

// Attribute returns the named attribute of the first matching element,
// "" when the attribute is absent.
func (s *StaticSession) Attribute(ctx context.Context, selector, name string) (string, error) {
	if err := s.requirePage(ctx); err != nil {
		return "", err
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("no element matches %q", selector)
	}
	value, _ := sel.Attr(name)
	return value, nil
}

// Click follows the href of the first element matching selector.
func (s *StaticSession) Click(ctx context.Context, selector string) error {
	if err := s.requirePage(ctx); err != nil {
		return err
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return fmt.Errorf("no element matches %q", selector)
	}
	href, ok := sel.Attr("href")
	if !ok || href == "" {
		return fmt.Errorf("element %q has no href to follow", selector)
	}
	abs, err := s.base.Parse(href)
	if err != nil {
		return fmt.Errorf("resolve %q against %s: %w", href, s.base, err)
	}
	return s.Navigate(ctx, abs.String())
}

// WaitVisible checks that an element matching selector is present; static
// pages never load more content after the fetch.
func (s *StaticSession) WaitVisible(ctx context.Context, selector string) error {
	if err := s.requirePage(ctx); err != nil {
		return err
	}
	if s.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("no element matches %q", selector)
	}
	return nil
}

// Close releases nothing; the session holds no external process.
func (s *StaticSession) Close() error {
	return nil
}

func (s *StaticSession) requirePage(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.doc == nil {
		return fmt.Errorf("no page loaded")
	}
	return nil
}
