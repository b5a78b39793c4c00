package ports

import (
	"context"
	"time"

	"IntelBrief/internal/domain"
)

// SourceFetcher pulls raw entries from one family of upstreams (feeds, forums, channels).
type SourceFetcher interface {
	Kind() domain.SourceKind
	Fetch(ctx context.Context, target string, limit int) ([]domain.RawEntry, error)
	Probe(ctx context.Context, target string) error
}

// FingerprintStore remembers which items were already collected.
type FingerprintStore interface {
	Seen(fp string) bool
	Record(fp string)
	Load() error
	Persist() error
	Len() int
}

// GenerateRequest is a single text-completion call against one model.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// TextGenerator is the generative-model completion endpoint.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// ArtifactStore writes stage outputs at the process boundary.
type ArtifactStore interface {
	SaveHarvest(ctx context.Context, items []domain.CollectedItem) (string, error)
	SaveExtraction(ctx context.Context, insights []domain.Insight, trends []domain.Trend) (string, error)
	SaveBrief(ctx context.Context, brief domain.Brief) (string, error)
	ListBriefs(ctx context.Context) ([]string, error)
}

// ReviewNotifier tells the reviewer that a brief waits for a decision.
type ReviewNotifier interface {
	NotifyPending(ctx context.Context, brief domain.Brief, reviewer string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
