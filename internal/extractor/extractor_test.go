package extractor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/model"
)

type fakeGenerator struct {
	mu        sync.Mutex
	keyPoints func(prompt string) (string, error)
	sentiment func(prompt string) (string, error)
	prompts   []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, _ model.Options) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if strings.HasPrefix(prompt, "Assess the overall sentiment") {
		return f.sentiment(prompt)
	}
	return f.keyPoints(prompt)
}

func reply(s string) func(string) (string, error) {
	return func(string) (string, error) { return s, nil }
}

var testConfig = Config{
	MaxContentLength: 4000,
	KeyPoints:        model.Options{Temperature: 0.7, MaxTokens: 2000},
	Sentiment:        model.Options{Temperature: 0.7, MaxTokens: 2000},
}

func item(url, body string) domain.CollectedItem {
	return domain.CollectedItem{
		SourceURL:   url,
		Title:       "Headline",
		Body:        body,
		SourceKind:  domain.SourceFeed,
		Fingerprint: "fp-" + url,
	}
}

func byKind(insights []domain.Insight, kind domain.InsightKind) []domain.Insight {
	var out []domain.Insight
	for _, in := range insights {
		if in.Kind == kind {
			out = append(out, in)
		}
	}
	return out
}

func TestExtractStructuredReplies(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{
		keyPoints: reply(`[{"title":"Chips","description":"Demand grows","confidence":1.4},{"title":"Cloud","description":"Spend flat"}]`),
		sentiment: reply(`{"sentiment":"Positive","description":"Upbeat","confidence":0.8,"score":3}`),
	}
	insights := New(gen, testConfig, nil).Extract(context.Background(), []domain.CollectedItem{item("https://a.example/1", "plain body")})

	points := byKind(insights, domain.InsightKeyPoint)
	if len(points) != 2 {
		t.Fatalf("expected 2 key points, got %d", len(points))
	}
	if points[0].Confidence != 1 || points[1].Confidence != 0.5 {
		t.Fatalf("confidence not clamped/defaulted: %v, %v", points[0].Confidence, points[1].Confidence)
	}

	sent := byKind(insights, domain.InsightSentiment)
	if len(sent) != 1 || sent[0].Title != "Sentiment: positive" {
		t.Fatalf("unexpected sentiment insights: %+v", sent)
	}
	if score := sent[0].Metadata["sentimentScore"]; score != 1.0 {
		t.Fatalf("score not clamped: %v", score)
	}

	for _, in := range insights {
		if in.ContentID != "fp-https://a.example/1" || in.SourceURL != "https://a.example/1" {
			t.Fatalf("insight not linked to its item: %+v", in)
		}
	}
}

func TestKeyPointsFallBackOnUnstructuredReply(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 100)
	gen := &fakeGenerator{
		keyPoints: reply(long),
		sentiment: reply("I think it is fine."),
	}
	insights := New(gen, testConfig, nil).ExtractItem(context.Background(), item("https://a.example/2", "body"))

	points := byKind(insights, domain.InsightKeyPoint)
	if len(points) != 1 {
		t.Fatalf("expected a single fallback insight, got %d", len(points))
	}
	p := points[0]
	if p.Title != "Extracted Insight" || p.Confidence != 0.5 {
		t.Fatalf("unexpected fallback insight: %+v", p)
	}
	if !strings.HasSuffix(p.Description, "...") || len([]rune(p.Description)) != 203 {
		t.Fatalf("fallback description should be 200 runes plus marker, got %d", len([]rune(p.Description)))
	}
	if len(byKind(insights, domain.InsightSentiment)) != 0 {
		t.Fatal("unstructured sentiment must be dropped")
	}
}

func TestCitationsAreCappedAndNeedNoModel(t *testing.T) {
	t.Parallel()

	body := "See https://one.example/a, https://two.example/b and (https://three.example/c). " +
		"Also https://one.example/a again and https://four.example/d."
	gen := &fakeGenerator{
		keyPoints: func(string) (string, error) { return "", errors.New("down") },
		sentiment: func(string) (string, error) { return "", errors.New("down") },
	}
	insights := New(gen, testConfig, nil).ExtractItem(context.Background(), item("https://a.example/3", body))

	cites := byKind(insights, domain.InsightCitation)
	if len(cites) != 3 {
		t.Fatalf("expected 3 citations, got %d", len(cites))
	}
	want := []string{"https://one.example/a", "https://two.example/b", "https://three.example/c"}
	for i, c := range cites {
		if c.Metadata["citationUrl"] != want[i] || c.Confidence != 0.9 {
			t.Fatalf("citation %d: %+v", i, c)
		}
	}
	if len(insights) != 3 {
		t.Fatalf("model failures must leave only citations, got %d insights", len(insights))
	}
}

func TestFailureIsIsolatedPerItem(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{
		keyPoints: func(prompt string) (string, error) {
			if strings.Contains(prompt, "Content: bad body") {
				return "", &domain.ModelInvocationFailure{Model: "fallback", Err: errors.New("boom")}
			}
			return `[{"title":"ok","description":"fine","confidence":0.9}]`, nil
		},
		sentiment: reply("not json"),
	}
	items := []domain.CollectedItem{item("https://bad.example", "bad body"), item("https://good.example", "good body")}
	insights := New(gen, testConfig, nil).Extract(context.Background(), items)

	points := byKind(insights, domain.InsightKeyPoint)
	if len(points) != 1 || points[0].SourceURL != "https://good.example" {
		t.Fatalf("expected the good item's key point only, got %+v", points)
	}
}

func TestContentIsTruncatedWithMarker(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{keyPoints: reply("[]"), sentiment: reply("{}")}
	cfg := testConfig
	cfg.MaxContentLength = 10
	New(gen, cfg, nil).ExtractItem(context.Background(), item("https://a.example/4", "0123456789abcdef"))

	if len(gen.prompts) == 0 || !strings.Contains(gen.prompts[0], "Content: 0123456789...") {
		t.Fatalf("body not truncated with marker: %q", gen.prompts)
	}
}

func TestMaxItemsBoundsBatch(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{keyPoints: reply(`[{"title":"t","description":"d"}]`), sentiment: reply("no")}
	cfg := testConfig
	cfg.MaxItems = 1
	items := []domain.CollectedItem{item("https://a.example/5", ""), item("https://a.example/6", "")}
	insights := New(gen, cfg, nil).Extract(context.Background(), items)

	if len(insights) != 1 || insights[0].SourceURL != "https://a.example/5" {
		t.Fatalf("expected only the first item, got %+v", insights)
	}
}
