package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/ports"
)

const watchURL = "https://www.youtube.com/watch?v="

// VideoFetcher lists the latest uploads of a YouTube channel.
type VideoFetcher struct {
	svc *youtube.Service
}

var _ ports.SourceFetcher = (*VideoFetcher)(nil)

// NewVideoFetcher builds a Data API client authenticated with apiKey.
func NewVideoFetcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*VideoFetcher, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("youtube api key is required")
	}
	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &VideoFetcher{svc: svc}, nil
}

// Kind identifies the fetcher inside the registry.
func (v *VideoFetcher) Kind() domain.SourceKind {
	return domain.SourceVideo
}

// Fetch returns metadata of up to limit recent videos of channel target.
func (v *VideoFetcher) Fetch(ctx context.Context, target string, limit int) ([]domain.RawEntry, error) {
	resp, err := v.svc.Search.List([]string{"snippet"}).
		ChannelId(target).
		Type("video").
		Order("date").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search channel videos: %w", err)
	}

	entries := make([]domain.RawEntry, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		entries = append(entries, videoEntry(item))
	}
	return entries, nil
}

func videoEntry(item *youtube.SearchResult) domain.RawEntry {
	s := item.Snippet
	published, _ := time.Parse(time.RFC3339, s.PublishedAt)

	meta := map[string]any{
		"videoId":   item.Id.VideoId,
		"channelId": s.ChannelId,
	}
	if s.Thumbnails != nil && s.Thumbnails.High != nil {
		meta["thumbnail"] = s.Thumbnails.High.Url
	}

	return domain.RawEntry{
		URL:         watchURL + item.Id.VideoId,
		Title:       s.Title,
		Body:        s.Description,
		PublishedAt: published,
		Author:      s.ChannelTitle,
		Metadata:    meta,
	}
}

// Probe checks that the channel exists.
func (v *VideoFetcher) Probe(ctx context.Context, target string) error {
	resp, err := v.svc.Channels.List([]string{"id"}).Id(target).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("lookup channel: %w", err)
	}
	if len(resp.Items) == 0 {
		return fmt.Errorf("channel %s not found", target)
	}
	return nil
}
