package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"gothamist-news-parser/internal/config"
	"gothamist-news-parser/internal/observability"
	"gothamist-news-parser/internal/scraper"
)

var _ scraper.Session = (*RodSession)(nil)

// clickScript clicks the first node matching an XPath from inside the page.
const clickScript = `(xpath) => {
	const node = document.evaluate(xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!node) {
		throw new Error("no element for " + xpath);
	}
	node.click();
}`

// RodSession drives a real Chrome through go-rod.
type RodSession struct {
	cfg      *config.Config
	logger   *observability.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewRodSession launches Chrome (rod.chrome_path, or the binary rod
// downloads) and connects to it.
func NewRodSession(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*RodSession, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Rod.Headless).
		NoSandbox(cfg.Rod.NoSandbox)
	if cfg.Rod.ChromePath != "" {
		l = l.Bin(cfg.Rod.ChromePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	logger.Info("Browser started", "control_url", controlURL, "headless", cfg.Rod.Headless)

	return &RodSession{
		cfg:      cfg,
		logger:   logger,
		launcher: l,
		browser:  b,
	}, nil
}

func (s *RodSession) Open(ctx context.Context, url string) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.cfg.HTTP.UserAgent}); err != nil {
		return fmt.Errorf("failed to set user agent: %w", err)
	}

	nav := page.Context(ctx).Timeout(s.cfg.GetRodPageTimeout())
	defer nav.CancelTimeout()
	if err := nav.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	load := page.Context(ctx).Timeout(s.cfg.GetRodWaitLoadTimeout())
	defer load.CancelTimeout()
	if err := load.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}

	s.page = page
	s.logger.Info("Page opened", "url", url)
	return nil
}

func (s *RodSession) Exists(ctx context.Context, selector string, within time.Duration) (bool, error) {
	if s.page == nil {
		return false, errNotOpened
	}

	p := s.page.Context(ctx).Timeout(within)
	defer p.CancelTimeout()

	_, err := p.ElementX(selector)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return false, nil
	}
	return false, fmt.Errorf("failed to query %s: %w", selector, err)
}

// Visible polls until selector matches a displayed element or within runs out.
func (s *RodSession) Visible(ctx context.Context, selector string, within time.Duration) (bool, error) {
	if s.page == nil {
		return false, errNotOpened
	}

	p := s.page.Context(ctx).Timeout(within)
	defer p.CancelTimeout()

	el, err := p.ElementX(selector)
	if err == nil {
		err = el.WaitVisible()
	}
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return false, nil
	}
	return false, fmt.Errorf("failed to check visibility of %s: %w", selector, err)
}

func (s *RodSession) Text(ctx context.Context, selector string, within time.Duration) (string, error) {
	el, err := s.element(ctx, selector, within)
	if err != nil {
		return "", err
	}

	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", selector, err)
	}
	return text, nil
}

func (s *RodSession) Attribute(ctx context.Context, selector, name string, within time.Duration) (string, error) {
	el, err := s.element(ctx, selector, within)
	if err != nil {
		return "", err
	}

	value, err := el.Attribute(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s of %s: %w", name, selector, err)
	}
	if value == nil {
		return "", fmt.Errorf("%w: %s has no %s attribute", ErrAttributeNotFound, selector, name)
	}

	// the DOM property holds src/href resolved against the document URL
	if name == "src" || name == "href" {
		prop, err := el.Property(name)
		if err != nil {
			return "", fmt.Errorf("failed to read %s property of %s: %w", name, selector, err)
		}
		if resolved := prop.Str(); resolved != "" {
			return resolved, nil
		}
	}
	return *value, nil
}

func (s *RodSession) Click(ctx context.Context, selector string, within time.Duration) error {
	if s.page == nil {
		return errNotOpened
	}

	// lookup, visibility wait and click share one deadline
	p := s.page.Context(ctx).Timeout(within)
	defer p.CancelTimeout()

	el, err := p.ElementX(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s after %s", ErrElementNotFound, selector, within)
		}
		return fmt.Errorf("failed to query %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("element %s never became visible: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (s *RodSession) ClickByScript(ctx context.Context, selector string) error {
	if s.page == nil {
		return errNotOpened
	}

	if _, err := s.page.Context(ctx).Eval(clickScript, selector); err != nil {
		return fmt.Errorf("failed to click %s by script: %w", selector, err)
	}
	return nil
}

func (s *RodSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	return err
}

// element waits up to within for selector to match.
func (s *RodSession) element(ctx context.Context, selector string, within time.Duration) (*rod.Element, error) {
	if s.page == nil {
		return nil, errNotOpened
	}

	p := s.page.Context(ctx).Timeout(within)
	defer p.CancelTimeout()

	el, err := p.ElementX(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s after %s", ErrElementNotFound, selector, within)
		}
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	// reads on the element are not bound by the wait
	return el.Context(ctx), nil
}
