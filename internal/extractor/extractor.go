package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/model"
)

const (
	truncationMarker     = "..."
	fallbackInsightTitle = "Extracted Insight"
	fallbackSnippetRunes = 200
	fallbackConfidence   = 0.5
	citationConfidence   = 0.9
	maxCitations         = 3
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'()\[\]{}]+`)

// Config tunes extraction.
type Config struct {
	// MaxContentLength is the body length in runes sent to the model.
	MaxContentLength int
	// MaxItems bounds the number of items processed; zero means all.
	MaxItems  int
	KeyPoints model.Options
	Sentiment model.Options
}

// Extractor turns collected items into insights through the model invoker.
type Extractor struct {
	gen    model.Generator
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// New wires the extractor.
func New(gen model.Generator, cfg Config, logger *slog.Logger) *Extractor {
	return &Extractor{gen: gen, cfg: cfg, now: time.Now, logger: logger}
}

type keyPoint struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Confidence  *float64 `json:"confidence"`
}

type sentiment struct {
	Sentiment   string   `json:"sentiment"`
	Description string   `json:"description"`
	Confidence  *float64 `json:"confidence"`
	Score       float64  `json:"score"`
}

// Extract processes every item and returns all insights in item order. A
// failing sub-extraction is logged and skipped; it never stops the batch.
func (e *Extractor) Extract(ctx context.Context, items []domain.CollectedItem) []domain.Insight {
	if e.cfg.MaxItems > 0 && len(items) > e.cfg.MaxItems {
		items = items[:e.cfg.MaxItems]
	}

	insights := []domain.Insight{}
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		insights = append(insights, e.ExtractItem(ctx, item)...)
	}

	e.info("extraction complete", "items", len(items), "insights", len(insights))
	return insights
}

// ExtractItem runs key-point, sentiment and citation extraction for one item.
func (e *Extractor) ExtractItem(ctx context.Context, item domain.CollectedItem) []domain.Insight {
	content := e.prepare(item)
	var out []domain.Insight

	if points, err := e.keyPoints(ctx, item, content); err != nil {
		e.warn("key point extraction failed", "url", item.SourceURL, "error", err)
	} else {
		out = append(out, points...)
	}

	if s, ok, err := e.sentiment(ctx, item, content); err != nil {
		e.warn("sentiment extraction failed", "url", item.SourceURL, "error", err)
	} else if ok {
		out = append(out, s)
	}

	out = append(out, e.citations(item, content)...)
	return out
}

func (e *Extractor) prepare(item domain.CollectedItem) string {
	body := item.Body
	if limit := e.cfg.MaxContentLength; limit > 0 && utf8.RuneCountInString(body) > limit {
		body = string([]rune(body)[:limit]) + truncationMarker
	}
	return fmt.Sprintf("Title: %s\n\nContent: %s", item.Title, body)
}

func (e *Extractor) keyPoints(ctx context.Context, item domain.CollectedItem, content string) ([]domain.Insight, error) {
	raw, err := e.gen.Generate(ctx, keyPointPrompt(content), e.cfg.KeyPoints)
	if err != nil {
		return nil, err
	}

	points, ok := model.DecodeArray[keyPoint](raw).Structured()
	if !ok || len(points) == 0 {
		e.debug("key points unstructured, using raw reply", "url", item.SourceURL)
		return []domain.Insight{e.insight(item, domain.InsightKeyPoint,
			fallbackInsightTitle, snippet(raw, fallbackSnippetRunes), fallbackConfidence, nil)}, nil
	}

	out := make([]domain.Insight, 0, len(points))
	for _, p := range points {
		out = append(out, e.insight(item, domain.InsightKeyPoint,
			strings.TrimSpace(p.Title), strings.TrimSpace(p.Description), confidence(p.Confidence), nil))
	}
	return out, nil
}

func (e *Extractor) sentiment(ctx context.Context, item domain.CollectedItem, content string) (domain.Insight, bool, error) {
	raw, err := e.gen.Generate(ctx, sentimentPrompt(content), e.cfg.Sentiment)
	if err != nil {
		return domain.Insight{}, false, err
	}

	s, ok := model.DecodeObject[sentiment](raw).Structured()
	if !ok {
		e.debug("sentiment unstructured, dropped", "url", item.SourceURL)
		return domain.Insight{}, false, nil
	}

	label := strings.ToLower(strings.TrimSpace(s.Sentiment))
	if label == "" {
		label = "neutral"
	}
	score := min(max(s.Score, -1), 1)
	return e.insight(item, domain.InsightSentiment, "Sentiment: "+label,
		strings.TrimSpace(s.Description), confidence(s.Confidence),
		map[string]any{"sentimentScore": score}), true, nil
}

func (e *Extractor) citations(item domain.CollectedItem, content string) []domain.Insight {
	var out []domain.Insight
	seen := map[string]bool{}
	for _, u := range urlPattern.FindAllString(content, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, e.insight(item, domain.InsightCitation, "Reference: "+u,
			"Referenced link found in the content", citationConfidence,
			map[string]any{"citationUrl": u}))
		if len(out) == maxCitations {
			break
		}
	}
	return out
}

func (e *Extractor) insight(item domain.CollectedItem, kind domain.InsightKind, title, desc string, conf float64, meta map[string]any) domain.Insight {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["sourceKind"] = string(item.SourceKind)
	return domain.Insight{
		ContentID:   item.Fingerprint,
		Kind:        kind,
		Title:       title,
		Description: desc,
		Confidence:  conf,
		SourceURL:   item.SourceURL,
		ExtractedAt: e.now().UTC(),
		Metadata:    meta,
	}
}

func confidence(v *float64) float64 {
	if v == nil {
		return fallbackConfidence
	}
	return domain.ClampConfidence(*v)
}

func snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + truncationMarker
}

func (e *Extractor) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Extractor) info(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Extractor) warn(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
