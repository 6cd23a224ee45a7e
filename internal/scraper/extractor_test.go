package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gothamist-news-parser/internal/observability"
)

// fakeSession serves results from memory. Only the first `rendered` results
// are visible until the load-more script is clicked.
type fakeSession struct {
	loc      *Locators
	titles   []string
	descs    []string
	pictures []string
	rendered int
	pageSize int
	popup    bool

	// popupHidden keeps the close control in the DOM but not displayed
	popupHidden bool

	calls []string
}

var errNotFound = errors.New("element not found")

func (f *fakeSession) Open(ctx context.Context, url string) error { return nil }
func (f *fakeSession) Close() error                               { return nil }

func (f *fakeSession) Exists(ctx context.Context, selector string, within time.Duration) (bool, error) {
	f.calls = append(f.calls, "exists "+selector)
	if selector == f.loc.Close() {
		return f.popup, nil
	}
	_, ok := f.lookup(selector)
	return ok, nil
}

func (f *fakeSession) Visible(ctx context.Context, selector string, within time.Duration) (bool, error) {
	f.calls = append(f.calls, "visible "+selector)
	if selector == f.loc.Close() {
		return f.popup && !f.popupHidden, nil
	}
	_, ok := f.lookup(selector)
	return ok, nil
}

func (f *fakeSession) Text(ctx context.Context, selector string, within time.Duration) (string, error) {
	f.calls = append(f.calls, "text "+selector)
	v, ok := f.lookup(selector)
	if !ok {
		return "", errNotFound
	}
	return v, nil
}

func (f *fakeSession) Attribute(ctx context.Context, selector, name string, within time.Duration) (string, error) {
	f.calls = append(f.calls, "attr "+selector)
	v, ok := f.lookup(selector)
	if !ok {
		return "", errNotFound
	}
	return v, nil
}

func (f *fakeSession) Click(ctx context.Context, selector string, within time.Duration) error {
	f.calls = append(f.calls, "click "+selector)
	if selector == f.loc.Close() {
		f.popup = false
	}
	return nil
}

func (f *fakeSession) ClickByScript(ctx context.Context, selector string) error {
	f.calls = append(f.calls, "script "+selector)
	f.rendered += f.pageSize
	return nil
}

func (f *fakeSession) lookup(selector string) (string, bool) {
	for i := 1; i <= f.rendered && i <= len(f.titles); i++ {
		switch selector {
		case f.loc.Title(i):
			return f.titles[i-1], true
		case f.loc.Description(i):
			return f.descs[i-1], true
		case f.loc.Picture(i):
			return f.pictures[i-1], true
		}
	}
	return "", false
}

func newFakeSession(n, pageSize int) *fakeSession {
	f := &fakeSession{loc: DefaultLocators(), rendered: pageSize, pageSize: pageSize}
	for i := 1; i <= n; i++ {
		f.titles = append(f.titles, fmt.Sprintf("Budget story %d", i))
		f.descs = append(f.descs, fmt.Sprintf("The budget grew by $%d million", i))
		f.pictures = append(f.pictures, fmt.Sprintf("https://img.example/%d.jpg", i))
	}
	return f
}

func newTestExtractor(phrase string) (*Extractor, *observability.Metrics) {
	metrics := observability.NewMetrics()
	e := NewExtractor(ExtractorConfig{
		Phrase: phrase,
		Timeouts: Timeouts{
			Overlay:      time.Millisecond,
			OverlayClick: time.Millisecond,
			RenderCheck:  time.Millisecond,
			TitleWait:    time.Millisecond,
			Element:      time.Millisecond,
		},
	}, observability.NewNopLogger(), metrics)
	return e, metrics
}

func TestExtractRenderedResult(t *testing.T) {
	sess := newFakeSession(3, 3)
	e, _ := newTestExtractor("budget")

	article, err := e.Extract(context.Background(), sess, 2)
	require.NoError(t, err)

	assert.Equal(t, &Article{
		Title:        "Budget story 2",
		Description:  "The budget grew by $2 million",
		PictureURL:   "https://img.example/2.jpg",
		PhraseCount:  2,
		MentionsCash: true,
	}, article)
	assert.NotContains(t, sess.calls, "script "+sess.loc.LoadMore())
}

func TestExtractClicksLoadMoreWhenNotRendered(t *testing.T) {
	sess := newFakeSession(4, 2)
	e, metrics := newTestExtractor("story")

	article, err := e.Extract(context.Background(), sess, 3)
	require.NoError(t, err)

	assert.Equal(t, "Budget story 3", article.Title)
	assert.Equal(t, 1, article.PhraseCount)
	assert.Contains(t, sess.calls, "script "+sess.loc.LoadMore())
	assert.Equal(t, 4, sess.rendered)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoadMoreClicks))
}

func TestExtractClosesPopupFirst(t *testing.T) {
	sess := newFakeSession(1, 1)
	sess.popup = true
	e, _ := newTestExtractor("budget")

	_, err := e.Extract(context.Background(), sess, 1)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(sess.calls), 2)
	assert.Equal(t, "visible "+sess.loc.Close(), sess.calls[0])
	assert.Equal(t, "click "+sess.loc.Close(), sess.calls[1])
	assert.False(t, sess.popup)
}

func TestExtractIgnoresHiddenPopup(t *testing.T) {
	sess := newFakeSession(1, 1)
	sess.popup = true
	sess.popupHidden = true
	e, metrics := newTestExtractor("budget")

	article, err := e.Extract(context.Background(), sess, 1)
	require.NoError(t, err)

	assert.Equal(t, "Budget story 1", article.Title)
	assert.NotContains(t, sess.calls, "click "+sess.loc.Close())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.OverlaysDismissed))
}

func TestExtractStepOrder(t *testing.T) {
	sess := newFakeSession(1, 1)
	e, _ := newTestExtractor("budget")
	loc := sess.loc

	_, err := e.Extract(context.Background(), sess, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"visible " + loc.Close(),
		"exists " + loc.Title(1),
		"text " + loc.Title(1),
		"text " + loc.Description(1),
		"attr " + loc.Picture(1),
	}, sess.calls)
}

func TestExtractMissingTitleIsFatal(t *testing.T) {
	// Load More adds nothing: result 2 never appears.
	sess := newFakeSession(1, 1)
	sess.pageSize = 0
	e, _ := newTestExtractor("budget")

	_, err := e.Extract(context.Background(), sess, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotFound)
	assert.Contains(t, err.Error(), "title of result 2")
}
