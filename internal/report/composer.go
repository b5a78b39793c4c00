package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/model"
	"IntelBrief/internal/topics"
)

const (
	minInsightsPerSection = 2
	maxCitations          = 10
	maxRecommendations    = 5
	maxKeyInsights        = 5
	maxKeyTrends          = 3
	keyFindingConfidence  = 0.7
	keyFindingRunes       = 100
	dateLayout            = "January 2, 2006"
	configVersion         = "1.0"
)

// DefaultTitleTemplate is used when no template is configured. {date} is
// replaced with the generation date.
const DefaultTitleTemplate = "Culture Current Weekly Brief - {date}"

var defaultRecommendations = []string{
	"Monitor key trends identified in this brief",
	"Review strategic implications of emerging technologies",
}

// Config tunes brief composition.
type Config struct {
	Topics                 topics.Table
	OtherBucket            bool
	MaxSections            int
	MaxBriefLength         int
	TitleTemplate          string
	ReportFormat           string
	IncludeSummary         bool
	IncludeRecommendations bool
	GenerationModel        string
	Section                model.Options
	Summary                model.Options
	Recommendations        model.Options
}

// MaxWordsPerSection splits the brief length evenly across sections.
func (c Config) MaxWordsPerSection() int {
	if c.MaxSections <= 0 {
		return c.MaxBriefLength
	}
	return c.MaxBriefLength / c.MaxSections
}

// Composer assembles a brief from insights and trends.
type Composer struct {
	gen    model.Generator
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// New wires the composer. An empty topic table falls back to the report table.
func New(gen model.Generator, cfg Config, logger *slog.Logger) *Composer {
	if len(cfg.Topics) == 0 {
		cfg.Topics = topics.ReportTopics()
	}
	if strings.TrimSpace(cfg.TitleTemplate) == "" {
		cfg.TitleTemplate = DefaultTitleTemplate
	}
	return &Composer{gen: gen, cfg: cfg, now: time.Now, logger: logger}
}

// Compose builds the brief. Model failures degrade to deterministic text;
// only context cancellation is returned as an error.
func (c *Composer) Compose(ctx context.Context, insights []domain.Insight, trends []domain.Trend) (domain.Brief, error) {
	generatedAt := c.now().UTC()

	sections := c.sections(ctx, insights, trends)
	if err := ctx.Err(); err != nil {
		return domain.Brief{}, err
	}

	brief := domain.Brief{
		Title:           strings.ReplaceAll(c.cfg.TitleTemplate, "{date}", generatedAt.Format(dateLayout)),
		Sections:        sections,
		Trends:          append([]domain.Trend{}, trends...),
		KeyFindings:     KeyFindings(insights, trends),
		Recommendations: []string{},
		GeneratedAt:     generatedAt,
		Metadata: map[string]any{
			"totalInsights":   len(insights),
			"totalTrends":     len(trends),
			"generationModel": c.cfg.GenerationModel,
			"configVersion":   configVersion,
		},
	}
	if c.cfg.ReportFormat != "" {
		brief.Metadata["reportFormat"] = c.cfg.ReportFormat
	}

	if c.cfg.IncludeSummary {
		brief.ExecutiveSummary = c.summary(ctx, sections, trends)
	}
	if c.cfg.IncludeRecommendations {
		brief.Recommendations = c.recommendations(ctx, sections, trends)
	}

	c.info("brief composed", "sections", len(sections), "findings", len(brief.KeyFindings),
		"recommendations", len(brief.Recommendations))
	return brief, ctx.Err()
}

func (c *Composer) sections(ctx context.Context, insights []domain.Insight, trends []domain.Trend) []domain.ReportSection {
	out := []domain.ReportSection{}
	for _, group := range c.cfg.Topics.Group(insights, c.cfg.OtherBucket) {
		if c.cfg.MaxSections > 0 && len(out) == c.cfg.MaxSections {
			break
		}
		if len(group.Insights) < minInsightsPerSection {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		out = append(out, c.section(ctx, group, relatedTrends(group.Topic, trends)))
	}
	return out
}

func (c *Composer) section(ctx context.Context, group topics.Group, related []domain.Trend) domain.ReportSection {
	body, err := c.gen.Generate(ctx, sectionPrompt(group.Topic, group.Insights, related, c.cfg.MaxWordsPerSection()), c.cfg.Section)
	if err != nil {
		c.warn("section generation failed, using fallback text", "topic", group.Topic, "error", err)
		body = fmt.Sprintf("Analysis of %s based on %d insights and %d trends.", group.Topic, len(group.Insights), len(related))
	}
	body = strings.TrimSpace(body)

	var total float64
	citations := []string{}
	seen := map[string]bool{}
	for _, in := range group.Insights {
		total += in.Confidence
		if in.SourceURL != "" && !seen[in.SourceURL] && len(citations) < maxCitations {
			seen[in.SourceURL] = true
			citations = append(citations, in.SourceURL)
		}
	}

	return domain.ReportSection{
		Title:      group.Topic,
		Body:       body,
		Insights:   group.Insights,
		Citations:  citations,
		Confidence: total / float64(len(group.Insights)),
		WordCount:  len(strings.Fields(body)),
	}
}

// relatedTrends keeps trends whose name contains the topic, ignoring case.
func relatedTrends(topic string, trends []domain.Trend) []domain.Trend {
	topic = strings.ToLower(topic)
	var out []domain.Trend
	for _, tr := range trends {
		if strings.Contains(strings.ToLower(tr.Name), topic) {
			out = append(out, tr)
		}
	}
	return out
}

func (c *Composer) summary(ctx context.Context, sections []domain.ReportSection, trends []domain.Trend) string {
	text, err := c.gen.Generate(ctx, summaryPrompt(sections, trends), c.cfg.Summary)
	if err != nil {
		c.warn("executive summary failed, using fallback text", "error", err)
		return fmt.Sprintf("Executive summary covering %d key areas and %d major trends.", len(sections), len(trends))
	}
	return strings.TrimSpace(text)
}

func (c *Composer) recommendations(ctx context.Context, sections []domain.ReportSection, trends []domain.Trend) []string {
	text, err := c.gen.Generate(ctx, recommendationsPrompt(sections, trends), c.cfg.Recommendations)
	if err != nil {
		c.warn("recommendations failed, using defaults", "error", err)
		return append([]string{}, defaultRecommendations...)
	}
	return ParseRecommendations(text)
}

// ParseRecommendations keeps trimmed lines that start with a digit or a dash,
// at most five. Other lines are dropped.
func ParseRecommendations(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(line)
		if !unicode.IsDigit(r) && r != '-' {
			continue
		}
		out = append(out, line)
		if len(out) == maxRecommendations {
			break
		}
	}
	return out
}

// KeyFindings lists the first five insights above 0.7 confidence followed by
// up to three trend one-liners. No model is involved.
func KeyFindings(insights []domain.Insight, trends []domain.Trend) []string {
	findings := []string{}
	for _, in := range insights {
		if len(findings) == maxKeyInsights {
			break
		}
		if in.Confidence > keyFindingConfidence {
			findings = append(findings, in.Title+": "+clip(in.Description, keyFindingRunes))
		}
	}
	for i, tr := range trends {
		if i == maxKeyTrends {
			break
		}
		findings = append(findings, fmt.Sprintf("Trend: %s is %s with %.1f%% confidence", tr.Name, tr.Momentum, tr.Confidence*100))
	}
	return findings
}

func (c *Composer) info(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Composer) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
