package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"IntelBrief/internal/collector"
	"IntelBrief/internal/domain"
	"IntelBrief/internal/metrics"
	"IntelBrief/internal/ports"
)

var (
	// ErrNoBrief is returned by Review before any run produced a brief.
	ErrNoBrief = errors.New("no brief to review")
	// ErrUnknownDecision is returned by Review for anything but approve or reject.
	ErrUnknownDecision = errors.New("decision must be approve or reject")
)

// SourceCollector harvests and probes configured sources.
type SourceCollector interface {
	Collect(ctx context.Context, specs []domain.SourceSpec) (collector.Harvest, error)
	Validate(ctx context.Context, specs []domain.SourceSpec) []collector.SourceCheck
}

// InsightExtractor derives insights from collected items.
type InsightExtractor interface {
	Extract(ctx context.Context, items []domain.CollectedItem) []domain.Insight
}

// TrendAggregator derives trends from insights.
type TrendAggregator interface {
	Aggregate(ctx context.Context, insights []domain.Insight) []domain.Trend
}

// BriefComposer assembles the brief.
type BriefComposer interface {
	Compose(ctx context.Context, insights []domain.Insight, trends []domain.Trend) (domain.Brief, error)
}

// Analysts are the model-backed stages configured for one run.
type Analysts struct {
	Extractor InsightExtractor
	Trends    TrendAggregator
	Composer  BriefComposer
}

// AnalystFactory builds the analysts for a run from its effective settings.
type AnalystFactory func(settings domain.RunSettings) Analysts

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Collector SourceCollector
	Cache     ports.FingerprintStore
	Analysts  AnalystFactory
	Artifacts ports.ArtifactStore
	Notifier  ports.ReviewNotifier
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
}

// Pipeline runs harvest, extract, report and review for one run at a time.
// The run state is a snapshot replaced on every transition, so Status never
// waits for pipeline work.
type Pipeline struct {
	collector SourceCollector
	cache     ports.FingerprintStore
	analysts  AnalystFactory
	artifacts ports.ArtifactStore
	notifier  ports.ReviewNotifier
	metrics   *metrics.Recorder
	logger    *slog.Logger

	now   func() time.Time
	newID func() string

	state atomic.Pointer[domain.PipelineRun]

	mu   sync.Mutex
	done chan struct{}

	briefMu sync.Mutex
	brief   *domain.Brief
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		collector: deps.Collector,
		cache:     deps.Cache,
		analysts:  deps.Analysts,
		artifacts: deps.Artifacts,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Status returns the current run snapshot, or an idle run before the first start.
func (p *Pipeline) Status() domain.PipelineRun {
	if run := p.state.Load(); run != nil {
		return run.Clone()
	}
	return domain.IdleRun()
}

// Start launches a run in the background and returns its first snapshot. A
// start while another run is active is rejected with *domain.ConcurrentRunRejected
// and leaves that run untouched. The run outlives ctx cancellation.
func (p *Pipeline) Start(ctx context.Context, settings domain.RunSettings) (domain.PipelineRun, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current := p.state.Load(); current != nil && current.Stage.Active() {
		return current.Clone(), &domain.ConcurrentRunRejected{ActiveRunID: current.RunID, ActiveStage: current.Stage}
	}
	if p.collector == nil || p.cache == nil || p.analysts == nil {
		return p.Status(), errors.New("pipeline is not configured")
	}
	if err := settings.Validate(); err != nil {
		return p.Status(), fmt.Errorf("invalid run settings: %w", err)
	}

	startedAt := p.now().UTC()
	run := domain.PipelineRun{
		RunID:        p.newID(),
		Stage:        domain.StageHarvest,
		StageResults: map[domain.Stage]domain.StageResult{},
		StartedAt:    &startedAt,
	}
	p.state.Store(&run)

	done := make(chan struct{})
	p.done = done
	go p.execute(context.WithoutCancel(ctx), run.RunID, settings.Effective(), done)

	p.info("run started", "run", run.RunID, "quick", settings.Quick)
	return run.Clone(), nil
}

// Wait blocks until the latest run leaves the active stages or ctx ends.
func (p *Pipeline) Wait(ctx context.Context) (domain.PipelineRun, error) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return p.Status(), nil
	}
	select {
	case <-done:
		return p.Status(), nil
	case <-ctx.Done():
		return p.Status(), ctx.Err()
	}
}

// ValidateSources probes the sources named by settings without starting a run.
func (p *Pipeline) ValidateSources(ctx context.Context, settings domain.RunSettings) []collector.SourceCheck {
	if p.collector == nil {
		return nil
	}
	return p.collector.Validate(ctx, settings.Sources())
}

// LatestBrief returns the brief of the most recent run that reached the report stage.
func (p *Pipeline) LatestBrief() (domain.Brief, bool) {
	p.briefMu.Lock()
	defer p.briefMu.Unlock()
	if p.brief == nil {
		return domain.Brief{}, false
	}
	return *p.brief, true
}

// Review applies a reviewer decision to the latest brief and rewrites its artifact.
func (p *Pipeline) Review(ctx context.Context, decision, reviewer string) (domain.Brief, error) {
	p.briefMu.Lock()
	defer p.briefMu.Unlock()

	if p.brief == nil {
		return domain.Brief{}, ErrNoBrief
	}
	brief := *p.brief

	var err error
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "approve", "approved":
		err = brief.Approve(reviewer, p.now())
	case "reject", "rejected":
		err = brief.Reject(reviewer, p.now())
	default:
		err = ErrUnknownDecision
	}
	if err != nil {
		return *p.brief, err
	}

	if p.artifacts != nil {
		if _, err := p.artifacts.SaveBrief(ctx, brief); err != nil {
			return *p.brief, fmt.Errorf("save reviewed brief: %w", err)
		}
	}
	p.brief = &brief
	p.info("brief reviewed", "status", brief.ApprovalStatus, "reviewer", brief.ApprovedBy)
	return brief, nil
}
