package domain

import "time"

// InsightKind enumerates what an insight describes.
type InsightKind string

const (
	InsightKeyPoint  InsightKind = "keyPoint"
	InsightSentiment InsightKind = "sentiment"
	InsightCitation  InsightKind = "citation"
)

// Insight is one finding derived from exactly one collected item.
type Insight struct {
	ContentID   string         `json:"contentId"`
	Kind        InsightKind    `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Confidence  float64        `json:"confidence"`
	SourceURL   string         `json:"sourceUrl"`
	ExtractedAt time.Time      `json:"extractedAt"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Momentum is the direction a trend is moving in.
type Momentum string

const (
	MomentumRising    Momentum = "rising"
	MomentumStable    Momentum = "stable"
	MomentumDeclining Momentum = "declining"
)

// ParseMomentum maps free-form model output onto the enum, defaulting to stable.
func ParseMomentum(s string) Momentum {
	switch Momentum(normalizeEnum(s)) {
	case MomentumRising:
		return MomentumRising
	case MomentumDeclining:
		return MomentumDeclining
	default:
		return MomentumStable
	}
}

// Impact grades how much a trend matters.
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactModerate Impact = "moderate"
	ImpactHigh     Impact = "high"
)

// ParseImpact maps free-form model output onto the enum, defaulting to moderate.
func ParseImpact(s string) Impact {
	switch Impact(normalizeEnum(s)) {
	case ImpactLow:
		return ImpactLow
	case ImpactHigh:
		return ImpactHigh
	default:
		return ImpactModerate
	}
}

// Trend characterises a topic backed by at least two insights.
type Trend struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Momentum    Momentum `json:"momentum"`
	Confidence  float64  `json:"confidence"`
	Evidence    []string `json:"evidence"`
	Timeframe   string   `json:"timeframe"`
	Impact      Impact   `json:"impact"`
}

// ClampConfidence keeps a model-provided confidence inside [0,1].
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
