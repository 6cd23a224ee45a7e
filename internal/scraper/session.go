package scraper

import (
	"context"
	"time"
)

// Session is the browser capability the extraction pipeline runs against.
// Selectors are XPath expressions.
type Session interface {
	Open(ctx context.Context, url string) error

	// Exists reports whether selector matches within the wait. Running out
	// of time is not an error.
	Exists(ctx context.Context, selector string, within time.Duration) (bool, error)

	// Visible is Exists for a match that is also displayed. A match that
	// stays hidden for the whole wait is reported as false.
	Visible(ctx context.Context, selector string, within time.Duration) (bool, error)

	Text(ctx context.Context, selector string, within time.Duration) (string, error)

	// Attribute returns the named attribute of the first match. URL valued
	// attributes (src, href) come back resolved against the page URL. A
	// missing attribute is an error.
	Attribute(ctx context.Context, selector, name string, within time.Duration) (string, error)

	// Click waits for the match to be visible and clicks it; within bounds
	// the whole step.
	Click(ctx context.Context, selector string, within time.Duration) error

	// ClickByScript clicks the first match through document.evaluate in page
	// JavaScript instead of synthesized input events.
	ClickByScript(ctx context.Context, selector string) error

	Close() error
}
