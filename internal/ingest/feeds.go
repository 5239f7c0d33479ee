// Package ingest fetches raw articles from configured feeds and extracts
// their text. It produces Article records without summaries or embeddings;
// enrichment happens downstream.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"newslens/internal/core"
	"newslens/internal/logger"
)

// Fetcher pulls articles per topic from RSS/Atom feeds.
type Fetcher struct {
	parser    *gofeed.Parser
	client    *http.Client
	userAgent string
	maxItems  int
}

// NewFetcher creates a fetcher. maxItems caps how many items are taken from
// each feed; zero means no cap.
func NewFetcher(timeout time.Duration, userAgent string, maxItems int) *Fetcher {
	client := &http.Client{Timeout: timeout}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent

	return &Fetcher{
		parser:    parser,
		client:    client,
		userAgent: userAgent,
		maxItems:  maxItems,
	}
}

// FetchTopic downloads every configured feed for a topic and returns the raw
// articles found. A failing feed is logged and skipped; the remaining feeds
// still contribute.
func (f *Fetcher) FetchTopic(ctx context.Context, topic string, feedURLs []string) ([]core.Article, error) {
	var articles []core.Article

	for _, feedURL := range feedURLs {
		feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			logger.Warn("Failed to parse feed, skipping", "topic", topic, "feed", feedURL, "error", err.Error())
			continue
		}

		items := feed.Items
		if f.maxItems > 0 && len(items) > f.maxItems {
			items = items[:f.maxItems]
		}

		for _, item := range items {
			article, err := f.articleFromItem(ctx, topic, item)
			if err != nil {
				logger.Debug("Skipping feed item", "topic", topic, "link", item.Link, "error", err.Error())
				continue
			}
			articles = append(articles, article)
		}
		logger.Info("Fetched feed", "topic", topic, "feed", feedURL, "items", len(items))
	}

	return articles, nil
}

// articleFromItem builds a raw Article from a feed item, fetching the linked
// page for full text when the item has a usable link.
func (f *Fetcher) articleFromItem(ctx context.Context, topic string, item *gofeed.Item) (core.Article, error) {
	if item.Link == "" {
		return core.Article{}, fmt.Errorf("feed item has no link")
	}

	published := time.Now().UTC()
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}

	// Prefer the full article page when we can get it; fall back to the
	// feed-provided body.
	if html, err := f.fetchPage(ctx, item.Link); err == nil {
		if text := ExtractText(html); text != "" {
			body = text
		}
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return core.Article{}, fmt.Errorf("no usable body text")
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return core.Article{}, fmt.Errorf("feed item has no title")
	}

	return core.Article{
		ID:           uuid.NewString(),
		Topic:        topic,
		SourceDomain: domainOf(item.Link),
		URL:          item.Link,
		Title:        title,
		BodyText:     body,
		PublishedAt:  published,
	}, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status code %d", pageURL, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body from %s: %w", pageURL, err)
	}
	return string(bodyBytes), nil
}

// ContentHash returns a stable hash of an article's title and body, used to
// skip exact refetches across runs.
func ContentHash(article core.Article) string {
	sum := sha256.Sum256([]byte(article.Title + "\n" + article.BodyText))
	return hex.EncodeToString(sum[:])
}

func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
