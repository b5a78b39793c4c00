package domain

import (
	"errors"
	"fmt"
	"strings"
)

// RunSettings is the pass-through configuration a run is started with.
type RunSettings struct {
	FeedURLs               []string `json:"feedUrls"`
	Forums                 []string `json:"forums"`
	Channels               []string `json:"channels"`
	FeedLimit              int      `json:"feedLimit"`
	ForumLimit             int      `json:"forumLimit"`
	VideoLimit             int      `json:"videoLimit"`
	Model                  string   `json:"model"`
	FallbackModel          string   `json:"fallbackModel"`
	ReportFormat           string   `json:"reportFormat"`
	MaxLength              int      `json:"maxLength"`
	IncludeSummary         bool     `json:"includeSummary"`
	IncludeRecommendations bool     `json:"includeRecommendations"`
	ReviewerEmail          string   `json:"reviewerEmail"`
	Quick                  bool     `json:"quick"`
}

// SourceSpec is one configured source with its item cap.
type SourceSpec struct {
	Kind   SourceKind
	Target string
	Limit  int
}

// Validate checks the settings for presence only; values are passed through.
func (s RunSettings) Validate() error {
	var errs []error
	if len(s.FeedURLs)+len(s.Forums)+len(s.Channels) == 0 {
		errs = append(errs, errors.New("at least one source is required"))
	}
	if strings.TrimSpace(s.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	for _, limit := range []struct {
		name  string
		value int
	}{{"feedLimit", s.FeedLimit}, {"forumLimit", s.ForumLimit}, {"videoLimit", s.VideoLimit}, {"maxLength", s.MaxLength}} {
		if limit.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", limit.name))
		}
	}
	return errors.Join(errs...)
}

// Sources expands the settings into ordered source specs: feeds, then forums,
// then channels. Forum names are accepted with or without the "r/" prefix.
func (s RunSettings) Sources() []SourceSpec {
	specs := make([]SourceSpec, 0, len(s.FeedURLs)+len(s.Forums)+len(s.Channels))
	for _, u := range s.FeedURLs {
		if u = strings.TrimSpace(u); u != "" {
			specs = append(specs, SourceSpec{Kind: SourceFeed, Target: u, Limit: s.FeedLimit})
		}
	}
	for _, f := range s.Forums {
		f = strings.TrimPrefix(strings.TrimSpace(f), "r/")
		if f != "" {
			specs = append(specs, SourceSpec{Kind: SourceForum, Target: f, Limit: s.ForumLimit})
		}
	}
	for _, c := range s.Channels {
		if c = strings.TrimSpace(c); c != "" {
			specs = append(specs, SourceSpec{Kind: SourceVideo, Target: c, Limit: s.VideoLimit})
		}
	}
	return specs
}

// QuickItemLimit caps every per-source limit in quick mode.
const QuickItemLimit = 2

// Effective applies quick mode: only the first feed is read and every
// per-source limit is capped at QuickItemLimit.
func (s RunSettings) Effective() RunSettings {
	if !s.Quick {
		return s
	}
	out := s
	if len(out.FeedURLs) > 1 {
		out.FeedURLs = out.FeedURLs[:1]
	}
	out.FeedLimit = min(out.FeedLimit, QuickItemLimit)
	out.ForumLimit = min(out.ForumLimit, QuickItemLimit)
	out.VideoLimit = min(out.VideoLimit, QuickItemLimit)
	return out
}
