package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"gothamist-news-parser/internal/fetcher"
	"gothamist-news-parser/internal/observability"
	"gothamist-news-parser/internal/scraper"
)

var _ scraper.Session = (*SnapshotSession)(nil)

// PageFetcher loads the search page when no snapshot files are given.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.FetchResponse, error)
}

// SnapshotSession answers XPath queries against static HTML. Page N+1 is
// the DOM after N clicks on "Load More"; ClickByScript advances to it.
// Nothing waits: an element is either in the current page or not.
type SnapshotSession struct {
	pages   [][]byte
	next    int
	fetcher PageFetcher
	doc     *goquery.Document
	base    *url.URL
	logger  *observability.Logger
}

func NewSnapshotSession(pages [][]byte, f PageFetcher, logger *observability.Logger) *SnapshotSession {
	return &SnapshotSession{
		pages:   pages,
		fetcher: f,
		logger:  logger,
	}
}

// LoadSnapshotFiles reads saved pages in order.
func LoadSnapshotFiles(paths []string) ([][]byte, error) {
	pages := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}

func (s *SnapshotSession) Open(ctx context.Context, pageURL string) error {
	base, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}
	s.base = base

	if len(s.pages) > 0 {
		s.next = 1
		s.logger.Info("Snapshot opened", "url", pageURL, "pages", len(s.pages))
		return s.load(s.pages[0])
	}

	if s.fetcher == nil {
		return fmt.Errorf("no snapshot pages and no fetcher for %s", pageURL)
	}

	resp, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}
	if final, err := url.Parse(resp.URL); err == nil && resp.URL != "" {
		s.base = final
	}

	s.logger.Info("Page fetched", "url", pageURL, "bytes", len(resp.Body))
	return s.load(resp.Body)
}

func (s *SnapshotSession) Exists(ctx context.Context, selector string, within time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	node, err := s.query(selector)
	if err != nil {
		return false, err
	}
	return node != nil, nil
}

// Visible checks the match and its ancestors for the hidden attribute and
// inline display:none / visibility:hidden. Stylesheets are not applied.
func (s *SnapshotSession) Visible(ctx context.Context, selector string, within time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	node, err := s.query(selector)
	if err != nil {
		return false, err
	}
	if node == nil {
		return false, nil
	}
	return !hidden(node), nil
}

func (s *SnapshotSession) Text(ctx context.Context, selector string, within time.Duration) (string, error) {
	sel, err := s.find(ctx, selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sel.Text()), nil
}

func (s *SnapshotSession) Attribute(ctx context.Context, selector, name string, within time.Duration) (string, error) {
	sel, err := s.find(ctx, selector)
	if err != nil {
		return "", err
	}

	value, exists := sel.Attr(name)
	if !exists {
		return "", fmt.Errorf("%w: %s has no %s attribute", ErrAttributeNotFound, selector, name)
	}
	if urlAttributes[name] {
		return s.resolve(value), nil
	}
	return value, nil
}

// urlAttributes are returned absolute, the way the DOM property reads them.
var urlAttributes = map[string]bool{"src": true, "href": true}

func (s *SnapshotSession) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if s.base == nil || ref == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return s.base.ResolveReference(u).String()
}

func hidden(node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, attr := range n.Attr {
			if attr.Key == "hidden" {
				return true
			}
		}
		style := strings.ToLower(strings.ReplaceAll(htmlquery.SelectAttr(n, "style"), " ", ""))
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return true
		}
	}
	return false
}

// Click removes the matched element, which is what closing a popup does.
func (s *SnapshotSession) Click(ctx context.Context, selector string, within time.Duration) error {
	sel, err := s.find(ctx, selector)
	if err != nil {
		return err
	}
	sel.Remove()
	return nil
}

// ClickByScript switches to the next snapshot page. The control must be on
// the current page; clicking it on the last page changes nothing.
func (s *SnapshotSession) ClickByScript(ctx context.Context, selector string) error {
	if _, err := s.find(ctx, selector); err != nil {
		return err
	}

	if s.next >= len(s.pages) {
		s.logger.Debug("No more snapshot pages", "selector", selector)
		return nil
	}

	page := s.pages[s.next]
	s.next++
	return s.load(page)
}

func (s *SnapshotSession) Close() error {
	s.doc = nil
	return nil
}

func (s *SnapshotSession) load(page []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	s.doc = doc
	return nil
}

func (s *SnapshotSession) query(selector string) (*html.Node, error) {
	if s.doc == nil {
		return nil, errNotOpened
	}

	node, err := htmlquery.Query(s.doc.Nodes[0], selector)
	if err != nil {
		return nil, fmt.Errorf("invalid XPath %s: %w", selector, err)
	}
	return node, nil
}

func (s *SnapshotSession) find(ctx context.Context, selector string) (*goquery.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node, err := s.query(selector)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return s.doc.FindNodes(node), nil
}
