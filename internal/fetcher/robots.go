package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"gothamist-news-parser/internal/observability"
)

type RobotsCache struct {
	cache     map[string]*RobotsTxt
	ttl       time.Duration
	client    *http.Client
	userAgent string
	mu        sync.RWMutex
	logger    *observability.Logger
}

type RobotsTxt struct {
	data      *robotstxt.RobotsData
	expiresAt time.Time
}

func NewRobotsCache(ttl time.Duration, client *http.Client, userAgent string, logger *observability.Logger) *RobotsCache {
	return &RobotsCache{
		cache:     make(map[string]*RobotsTxt),
		ttl:       ttl,
		client:    client,
		userAgent: userAgent,
		logger:    logger,
	}
}

// IsAllowed checks urlStr against its host's robots.txt. An unreachable
// robots.txt allows everything.
func (rc *RobotsCache) IsAllowed(ctx context.Context, urlStr string) (bool, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}
	origin := u.Scheme + "://" + u.Host

	rc.mu.RLock()
	cached, exists := rc.cache[origin]
	rc.mu.RUnlock()

	if !exists || time.Now().After(cached.expiresAt) {
		data, err := rc.fetch(ctx, origin)
		if err != nil {
			rc.logger.Debug("robots.txt fetch failed, defaulting to allow", "origin", origin, "error", err.Error())
			return true, nil
		}
		cached = &RobotsTxt{data: data, expiresAt: time.Now().Add(rc.ttl)}

		rc.mu.Lock()
		rc.cache[origin] = cached
		rc.mu.Unlock()
	}

	return cached.data.TestAgent(u.RequestURI(), rc.userAgent), nil
}

func (rc *RobotsCache) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			rc.logger.Warn("Failed to close response body", "error", err.Error())
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// 4xx allows everything, 5xx disallows everything
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}
