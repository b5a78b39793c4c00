package trends

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"IntelBrief/internal/domain"
	"IntelBrief/internal/model"
	"IntelBrief/internal/topics"
)

const (
	minInsightsPerTrend = 2
	maxPromptInsights   = 5
	defaultTimeframe    = "recent"
)

// Config tunes trend aggregation.
type Config struct {
	Topics      topics.Table
	OtherBucket bool
	Options     model.Options
}

// Aggregator characterises topics that enough insights point at.
type Aggregator struct {
	gen    model.Generator
	cfg    Config
	logger *slog.Logger
}

// New wires the aggregator. An empty topic table falls back to the trend table.
func New(gen model.Generator, cfg Config, logger *slog.Logger) *Aggregator {
	if len(cfg.Topics) == 0 {
		cfg.Topics = topics.TrendTopics()
	}
	return &Aggregator{gen: gen, cfg: cfg, logger: logger}
}

type analysis struct {
	Description string   `json:"description"`
	Momentum    string   `json:"momentum"`
	Confidence  *float64 `json:"confidence"`
	Timeframe   string   `json:"timeframe"`
	Impact      string   `json:"impact"`
}

// Aggregate returns trends in topic-table order. Topics backed by fewer than
// two insights, and topics whose model reply is unusable, yield no trend.
func (a *Aggregator) Aggregate(ctx context.Context, insights []domain.Insight) []domain.Trend {
	trends := []domain.Trend{}
	for _, group := range a.cfg.Topics.Group(insights, a.cfg.OtherBucket) {
		if len(group.Insights) < minInsightsPerTrend {
			a.debug("topic below evidence threshold", "topic", group.Topic, "insights", len(group.Insights))
			continue
		}
		trend, ok := a.characterise(ctx, group)
		if ok {
			trends = append(trends, trend)
		}
	}
	a.info("trend aggregation complete", "insights", len(insights), "trends", len(trends))
	return trends
}

func (a *Aggregator) characterise(ctx context.Context, group topics.Group) (domain.Trend, bool) {
	raw, err := a.gen.Generate(ctx, trendPrompt(group), a.cfg.Options)
	if err != nil {
		a.warn("trend analysis failed", "topic", group.Topic, "error", err)
		return domain.Trend{}, false
	}

	result, ok := model.DecodeObject[analysis](raw).Structured()
	if !ok {
		a.debug("trend reply unstructured, suppressed", "topic", group.Topic)
		return domain.Trend{}, false
	}

	evidence := make([]string, 0, len(group.Insights))
	for _, in := range group.Insights {
		evidence = append(evidence, in.Title)
	}

	conf := 0.5
	if result.Confidence != nil {
		conf = domain.ClampConfidence(*result.Confidence)
	}
	timeframe := strings.TrimSpace(result.Timeframe)
	if timeframe == "" {
		timeframe = defaultTimeframe
	}

	return domain.Trend{
		Name:        group.Topic,
		Description: strings.TrimSpace(result.Description),
		Momentum:    domain.ParseMomentum(result.Momentum),
		Confidence:  conf,
		Evidence:    evidence,
		Timeframe:   timeframe,
		Impact:      domain.ParseImpact(result.Impact),
	}, true
}

func trendPrompt(group topics.Group) string {
	var b strings.Builder
	for i, in := range group.Insights {
		if i == maxPromptInsights {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", in.Title, in.Description)
	}
	return fmt.Sprintf(`Analyze these insights about %s and identify the overall trend.

%s
Respond with a single JSON object with:
- "description": what the trend is
- "momentum": rising, stable or declining
- "confidence": a number between 0 and 1
- "timeframe": the period the trend covers
- "impact": low, moderate or high

Return only the JSON object.`, group.Topic, b.String())
}

func (a *Aggregator) debug(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Aggregator) info(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Info(msg, args...)
	}
}

func (a *Aggregator) warn(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
