package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/ports"
)

// errRetryable marks failures worth another attempt: transport errors, 429 and 5xx.
var errRetryable = errors.New("retryable forum response")

// ForumConfig tunes the Reddit fetcher.
type ForumConfig struct {
	BaseURL   string
	UserAgent string
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// ForumFetcher reads hot posts of a subreddit through the public JSON listing.
type ForumFetcher struct {
	client *http.Client
	cfg    ForumConfig
	retry  retrypolicy.RetryPolicy[[]domain.RawEntry]
}

var _ ports.SourceFetcher = (*ForumFetcher)(nil)

// NewForumFetcher wires an HTTP client and the retry policy.
func NewForumFetcher(client *http.Client, cfg ForumConfig) *ForumFetcher {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.reddit.com"
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= cfg.BaseDelay {
		cfg.MaxDelay = 10 * cfg.BaseDelay
	}

	retry := retrypolicy.NewBuilder[[]domain.RawEntry]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(max(cfg.Retries, 0)).
		HandleIf(func(_ []domain.RawEntry, err error) bool {
			return errors.Is(err, errRetryable)
		}).
		Build()

	return &ForumFetcher{client: newHTTPClient(client), cfg: cfg, retry: retry}
}

// Kind identifies the fetcher inside the registry.
func (f *ForumFetcher) Kind() domain.SourceKind {
	return domain.SourceForum
}

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	Flair       string  `json:"link_flair_text"`
	IsSelf      bool    `json:"is_self"`
	Stickied    bool    `json:"stickied"`
}

// Fetch returns up to limit hot posts of the subreddit named by target.
func (f *ForumFetcher) Fetch(ctx context.Context, target string, limit int) ([]domain.RawEntry, error) {
	name := strings.TrimPrefix(strings.TrimSpace(target), "r/")
	if name == "" {
		return nil, errors.New("empty forum name")
	}
	endpoint := fmt.Sprintf("%s/r/%s/hot.json?limit=%s", f.cfg.BaseURL, url.PathEscape(name), strconv.Itoa(limit))

	return failsafe.With[[]domain.RawEntry](f.retry).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[[]domain.RawEntry]) ([]domain.RawEntry, error) {
			return f.fetchListing(exec.Context(), endpoint, limit)
		})
}

func (f *ForumFetcher) fetchListing(ctx context.Context, endpoint string, limit int) ([]domain.RawEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %s", errRetryable, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var page listing
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	entries := make([]domain.RawEntry, 0, limit)
	for _, child := range page.Data.Children {
		if len(entries) == limit {
			break
		}
		p := child.Data
		if p.Stickied {
			continue
		}
		entries = append(entries, f.entry(p))
	}
	return entries, nil
}

func (f *ForumFetcher) entry(p post) domain.RawEntry {
	body := p.SelfText
	if !p.IsSelf && p.URL != "" {
		body = strings.TrimSpace(body + "\n\n" + p.URL)
	}

	var tags []string
	if p.Flair != "" {
		tags = append(tags, p.Flair)
	}

	return domain.RawEntry{
		URL:         f.cfg.BaseURL + p.Permalink,
		Title:       p.Title,
		Body:        body,
		PublishedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
		Author:      p.Author,
		Tags:        tags,
		Metadata: map[string]any{
			"subreddit":   p.Subreddit,
			"score":       p.Score,
			"numComments": p.NumComments,
			"linkUrl":     p.URL,
		},
	}
}

// Probe checks that the subreddit exists.
func (f *ForumFetcher) Probe(ctx context.Context, target string) error {
	name := strings.TrimPrefix(strings.TrimSpace(target), "r/")
	if name == "" {
		return errors.New("empty forum name")
	}
	return probeURL(ctx, f.client, fmt.Sprintf("%s/r/%s/about.json", f.cfg.BaseURL, url.PathEscape(name)), f.cfg.UserAgent)
}
