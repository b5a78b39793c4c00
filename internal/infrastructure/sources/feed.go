package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/ports"
)

// FeedFetcher reads RSS, Atom and JSON feeds.
type FeedFetcher struct {
	client *http.Client
}

var _ ports.SourceFetcher = (*FeedFetcher)(nil)

// NewFeedFetcher wires an HTTP client; nil uses a client with a 20s timeout.
func NewFeedFetcher(client *http.Client) *FeedFetcher {
	return &FeedFetcher{client: newHTTPClient(client)}
}

// Kind identifies the fetcher inside the registry.
func (f *FeedFetcher) Kind() domain.SourceKind {
	return domain.SourceFeed
}

// Fetch parses the feed at target and returns its first limit entries.
func (f *FeedFetcher) Fetch(ctx context.Context, target string, limit int) ([]domain.RawEntry, error) {
	parser := gofeed.NewParser()
	parser.Client = f.client

	feed, err := parser.ParseURLWithContext(target, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]domain.RawEntry, 0, min(limit, len(feed.Items)))
	for _, item := range feed.Items {
		if len(entries) == limit {
			break
		}
		entries = append(entries, feedEntry(feed, item))
	}
	return entries, nil
}

// Probe checks that the feed URL answers.
func (f *FeedFetcher) Probe(ctx context.Context, target string) error {
	return probeURL(ctx, f.client, target, "")
}

func feedEntry(feed *gofeed.Feed, item *gofeed.Item) domain.RawEntry {
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	}

	var author string
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = item.Authors[0].Name
	}

	return domain.RawEntry{
		URL:         item.Link,
		Title:       item.Title,
		Body:        body,
		PublishedAt: published,
		Author:      author,
		Tags:        append([]string(nil), item.Categories...),
		Metadata:    map[string]any{"feedTitle": feed.Title},
	}
}
