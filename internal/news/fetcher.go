// Package news fetches park news feeds and stores their articles.
package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bryan-buckman/parkline/internal/config"
	"github.com/bryan-buckman/parkline/internal/model"
	"github.com/mmcdole/gofeed"
)

// Limits for LatestNews.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Host politeness settings.
const (
	MaxConcurrencyPerHost   = 2
	DelayBetweenHostRequest = 500 * time.Millisecond
)

// ItemStore persists news items.
type ItemStore interface {
	AddNewsItem(item *model.NewsItem) (int64, bool, error)
	GetNewsItems(limit int) ([]model.NewsItem, error)
}

// hostLimiter bounds parallel requests per host and spaces them out.
type hostLimiter struct {
	mu          sync.Mutex
	slots       map[string]chan struct{}
	lastRequest map[string]time.Time
	delay       time.Duration
}

func newHostLimiter(delay time.Duration) *hostLimiter {
	return &hostLimiter{
		slots:       make(map[string]chan struct{}),
		lastRequest: make(map[string]time.Time),
		delay:       delay,
	}
}

func (hl *hostLimiter) acquire(ctx context.Context, host string) error {
	hl.mu.Lock()
	sem, ok := hl.slots[host]
	if !ok {
		sem = make(chan struct{}, MaxConcurrencyPerHost)
		hl.slots[host] = sem
	}
	hl.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	hl.mu.Lock()
	last := hl.lastRequest[host]
	hl.mu.Unlock()

	if last.IsZero() {
		return nil
	}
	if wait := hl.delay - time.Since(last); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			<-sem
			return ctx.Err()
		}
	}
	return nil
}

func (hl *hostLimiter) release(host string) {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	hl.lastRequest[host] = time.Now()
	if sem, ok := hl.slots[host]; ok {
		<-sem
	}
}

func hostOf(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return feedURL
	}
	return u.Host
}

// Fetcher refreshes the configured news feeds.
type Fetcher struct {
	store   ItemStore
	feeds   []config.NewsFeed
	parser  *gofeed.Parser
	limiter *hostLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewFetcher creates a fetcher. A nil httpClient selects gofeed's default.
func NewFetcher(store ItemStore, feeds []config.NewsFeed, httpClient *http.Client, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	parser := gofeed.NewParser()
	parser.UserAgent = "parkline/1.0"
	if httpClient != nil {
		parser.Client = httpClient
	}
	return &Fetcher{
		store:   store,
		feeds:   feeds,
		parser:  parser,
		limiter: newHostLimiter(DelayBetweenHostRequest),
		logger:  logger.With(slog.String("component", "news")),
		now:     time.Now,
	}
}

// Feeds returns the configured feeds.
func (f *Fetcher) Feeds() []config.NewsFeed {
	out := make([]config.NewsFeed, len(f.feeds))
	copy(out, f.feeds)
	return out
}

// FetchFeed parses one feed and stores its new items. Items without a GUID
// are keyed by link; items with neither are skipped.
func (f *Fetcher) FetchFeed(ctx context.Context, feed config.NewsFeed) (int, error) {
	host := hostOf(feed.URL)
	if err := f.limiter.acquire(ctx, host); err != nil {
		return 0, fmt.Errorf("wait for %s: %w", host, err)
	}
	defer f.limiter.release(host)

	parsed, err := f.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", feed.URL, err)
	}

	now := f.now().UTC()
	added := 0
	for _, entry := range parsed.Items {
		guid := strings.TrimSpace(entry.GUID)
		if guid == "" {
			guid = strings.TrimSpace(entry.Link)
		}
		if guid == "" {
			continue
		}
		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}
		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}
		_, isNew, err := f.store.AddNewsItem(&model.NewsItem{
			Source:      feed.Name,
			GUID:        guid,
			Title:       entry.Title,
			Link:        entry.Link,
			Summary:     summary,
			PublishedAt: published,
			FetchedAt:   now,
		})
		if err != nil {
			f.logger.ErrorContext(ctx, "Failed to store news item",
				slog.String("source", feed.Name),
				slog.String("guid", guid),
				slog.String("error", err.Error()),
			)
			continue
		}
		if isNew {
			added++
		}
	}
	return added, nil
}

// FetchAll refreshes every feed in turn and returns new item counts by
// source. A failing feed is logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context) (map[string]int, error) {
	results := make(map[string]int, len(f.feeds))
	for i, feed := range f.feeds {
		if err := ctx.Err(); err != nil {
			f.logger.WarnContext(ctx, "News refresh cancelled",
				slog.Int("done", i),
				slog.Int("total", len(f.feeds)),
			)
			return results, err
		}
		count, err := f.FetchFeed(ctx, feed)
		if err != nil {
			f.logger.WarnContext(ctx, "News feed failed",
				slog.String("source", feed.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		results[feed.Name] = count
	}
	return results, nil
}

// Latest returns the newest stored items. A non-positive limit selects
// DefaultLimit; limits above MaxLimit are capped.
func (f *Fetcher) Latest(limit int) ([]model.NewsItem, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	items, err := f.store.GetNewsItems(limit)
	if err != nil {
		return nil, fmt.Errorf("latest news: %w", err)
	}
	return items, nil
}
