package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"IntelBrief/internal/collector"
	"IntelBrief/internal/domain"
)

type fakeCollector struct {
	harvest collector.Harvest
	err     error
}

func (f *fakeCollector) Collect(context.Context, []domain.SourceSpec) (collector.Harvest, error) {
	return f.harvest, f.err
}

func (f *fakeCollector) Validate(_ context.Context, specs []domain.SourceSpec) []collector.SourceCheck {
	out := make([]collector.SourceCheck, 0, len(specs))
	for _, s := range specs {
		out = append(out, collector.SourceCheck{Kind: s.Kind, Target: s.Target, Valid: true})
	}
	return out
}

type fakeCache struct {
	mu         sync.Mutex
	persistErr error
	persisted  int
}

func (c *fakeCache) Seen(string) bool { return false }
func (c *fakeCache) Record(string)    {}
func (c *fakeCache) Load() error      { return nil }
func (c *fakeCache) Len() int         { return 0 }
func (c *fakeCache) Persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persisted++
	return c.persistErr
}

type extractorFunc func(ctx context.Context, items []domain.CollectedItem) []domain.Insight

func (f extractorFunc) Extract(ctx context.Context, items []domain.CollectedItem) []domain.Insight {
	return f(ctx, items)
}

type staticTrends []domain.Trend

func (s staticTrends) Aggregate(context.Context, []domain.Insight) []domain.Trend { return s }

type composerFunc func(ctx context.Context, insights []domain.Insight, trends []domain.Trend) (domain.Brief, error)

func (f composerFunc) Compose(ctx context.Context, insights []domain.Insight, trends []domain.Trend) (domain.Brief, error) {
	return f(ctx, insights, trends)
}

type memoryArtifacts struct {
	mu     sync.Mutex
	briefs []domain.Brief
}

func (m *memoryArtifacts) SaveHarvest(context.Context, []domain.CollectedItem) (string, error) {
	return "harvest.json", nil
}

func (m *memoryArtifacts) SaveExtraction(context.Context, []domain.Insight, []domain.Trend) (string, error) {
	return "extraction.json", nil
}

func (m *memoryArtifacts) SaveBrief(_ context.Context, b domain.Brief) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.briefs = append(m.briefs, b)
	return "brief.json", nil
}

func (m *memoryArtifacts) ListBriefs(context.Context) ([]string, error) {
	return []string{"brief.json"}, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	reviewer string
	calls    int
}

func (n *recordingNotifier) NotifyPending(_ context.Context, _ domain.Brief, reviewer string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.reviewer = reviewer
	return nil
}

var settings = domain.RunSettings{
	FeedURLs:      []string{"https://feeds.example/a", "https://feeds.example/b"},
	FeedLimit:     10,
	Model:         "llama3.1",
	ReviewerEmail: "analyst@example.com",
}

func items() collector.Harvest {
	return collector.Harvest{
		Items:   []domain.CollectedItem{{SourceURL: "https://a.example/1", Fingerprint: "fp1"}},
		Sources: 2,
	}
}

func analysts(ex InsightExtractor, composer BriefComposer) AnalystFactory {
	return func(domain.RunSettings) Analysts {
		return Analysts{Extractor: ex, Trends: staticTrends{}, Composer: composer}
	}
}

func okExtractor() extractorFunc {
	return func(_ context.Context, items []domain.CollectedItem) []domain.Insight {
		return []domain.Insight{{ContentID: items[0].Fingerprint, Title: "t"}}
	}
}

func okComposer() composerFunc {
	return func(context.Context, []domain.Insight, []domain.Trend) (domain.Brief, error) {
		return domain.Brief{Title: "Brief", Metadata: map[string]any{}}, nil
	}
}

func waitDone(t *testing.T, p *Pipeline) domain.PipelineRun {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	run, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return run
}

func TestStatusIsIdleBeforeFirstRun(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{})
	if got := p.Status(); got.Stage != domain.StageIdle || got.RunID != "" {
		t.Fatalf("expected idle snapshot, got %+v", got)
	}
	if _, ok := p.LatestBrief(); ok {
		t.Fatal("no brief expected before a run")
	}
}

func TestRunCompletesAllStages(t *testing.T) {
	t.Parallel()

	artifacts := &memoryArtifacts{}
	notifier := &recordingNotifier{}
	p := NewPipeline(PipelineDeps{
		Collector: &fakeCollector{harvest: items()},
		Cache:     &fakeCache{},
		Analysts:  analysts(okExtractor(), okComposer()),
		Artifacts: artifacts,
		Notifier:  notifier,
	})

	started, err := p.Start(context.Background(), settings)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Stage != domain.StageHarvest || started.RunID == "" {
		t.Fatalf("unexpected first snapshot %+v", started)
	}

	run := waitDone(t, p)
	if run.Stage != domain.StageDone || run.ProgressPercent != 100 || run.FinishedAt == nil {
		t.Fatalf("unexpected final snapshot %+v", run)
	}
	if got := run.StageResults[domain.StageHarvest].Counts["items"]; got != 1 {
		t.Fatalf("expected 1 harvested item, got %d", got)
	}
	if got := run.StageResults[domain.StageExtract].Counts["insights"]; got != 1 {
		t.Fatalf("expected 1 insight, got %d", got)
	}

	brief, ok := p.LatestBrief()
	if !ok || brief.ApprovalStatus != domain.ApprovalPending {
		t.Fatalf("expected pending brief, got %+v", brief)
	}
	if notifier.calls != 1 || notifier.reviewer != "analyst@example.com" {
		t.Fatalf("reviewer not notified: %+v", notifier)
	}
	if len(artifacts.briefs) != 2 {
		t.Fatalf("expected brief written at report and review, got %d", len(artifacts.briefs))
	}
}

func TestStartRejectedDuringExtract(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := extractorFunc(func(_ context.Context, items []domain.CollectedItem) []domain.Insight {
		close(entered)
		<-release
		return nil
	})
	p := NewPipeline(PipelineDeps{
		Collector: &fakeCollector{harvest: items()},
		Cache:     &fakeCache{},
		Analysts:  analysts(blocking, okComposer()),
	})

	first, err := p.Start(context.Background(), settings)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("extract stage never started")
	}

	before := p.Status()
	if before.Stage != domain.StageExtract || before.ProgressPercent != 25 {
		t.Fatalf("expected extract at 25%%, got %+v", before)
	}

	_, err = p.Start(context.Background(), settings)
	var rejected *domain.ConcurrentRunRejected
	if !errors.As(err, &rejected) || !errors.Is(err, domain.ErrConcurrentRun) {
		t.Fatalf("expected concurrent run rejection, got %v", err)
	}
	if rejected.ActiveRunID != first.RunID || rejected.ActiveStage != domain.StageExtract {
		t.Fatalf("rejection does not describe the active run: %+v", rejected)
	}

	after := p.Status()
	if after.RunID != before.RunID || after.Stage != before.Stage || after.ProgressPercent != before.ProgressPercent {
		t.Fatalf("active run was modified: before %+v after %+v", before, after)
	}

	close(release)
	if run := waitDone(t, p); run.Stage != domain.StageDone || run.RunID != first.RunID {
		t.Fatalf("unexpected final run %+v", run)
	}
}

func TestStageFailureHaltsRun(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	failing := composerFunc(func(context.Context, []domain.Insight, []domain.Trend) (domain.Brief, error) {
		return domain.Brief{}, &domain.ModelInvocationFailure{Model: "mistral", Err: errors.New("down")}
	})
	p := NewPipeline(PipelineDeps{
		Collector: &fakeCollector{harvest: items()},
		Cache:     &fakeCache{},
		Analysts:  analysts(okExtractor(), failing),
		Notifier:  notifier,
	})

	if _, err := p.Start(context.Background(), settings); err != nil {
		t.Fatalf("start: %v", err)
	}
	run := waitDone(t, p)
	if run.Stage != domain.StageFailed || run.ProgressPercent != 50 {
		t.Fatalf("expected failure after extract, got %+v", run)
	}
	if !strings.Contains(run.Error, "report") || !strings.Contains(run.Error, "mistral") {
		t.Fatalf("error does not name stage and cause: %q", run.Error)
	}
	if _, ok := run.StageResults[domain.StageReview]; ok {
		t.Fatal("review must not run after a failed stage")
	}
	if notifier.calls != 0 {
		t.Fatal("reviewer notified for a failed run")
	}

	if _, err := p.Start(context.Background(), settings); err != nil {
		t.Fatalf("a failed run must not block the next one: %v", err)
	}
	waitDone(t, p)
}

func TestPanicBecomesStageFailure(t *testing.T) {
	t.Parallel()

	panicking := extractorFunc(func(context.Context, []domain.CollectedItem) []domain.Insight {
		panic("index out of range")
	})
	p := NewPipeline(PipelineDeps{
		Collector: &fakeCollector{harvest: items()},
		Cache:     &fakeCache{},
		Analysts:  analysts(panicking, okComposer()),
	})

	if _, err := p.Start(context.Background(), settings); err != nil {
		t.Fatalf("start: %v", err)
	}
	run := waitDone(t, p)
	if run.Stage != domain.StageFailed || !strings.Contains(run.Error, "index out of range") {
		t.Fatalf("expected recovered panic, got %+v", run)
	}
}

func TestCachePersistFailureIsAWarning(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{persistErr: &domain.CacheIOFailure{Op: "persist", Path: "/ro/cache.json", Err: errors.New("read-only")}}
	p := NewPipeline(PipelineDeps{
		Collector: &fakeCollector{harvest: items()},
		Cache:     cache,
		Analysts:  analysts(okExtractor(), okComposer()),
	})

	if _, err := p.Start(context.Background(), settings); err != nil {
		t.Fatalf("start: %v", err)
	}
	run := waitDone(t, p)
	if run.Stage != domain.StageDone {
		t.Fatalf("persist failure must not fail the run: %+v", run)
	}
	warnings := run.StageResults[domain.StageHarvest].Warnings
	if len(warnings) != 1 || !strings.Contains(warnings[0], "read-only") {
		t.Fatalf("expected cache warning, got %v", warnings)
	}
}

func TestStartRejectsInvalidSettings(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		Collector: &fakeCollector{},
		Cache:     &fakeCache{},
		Analysts:  analysts(okExtractor(), okComposer()),
	})
	if _, err := p.Start(context.Background(), domain.RunSettings{Model: "llama3.1"}); err == nil {
		t.Fatal("expected settings without sources to be rejected")
	}
	if got := p.Status(); got.Stage != domain.StageIdle {
		t.Fatalf("rejected start changed state: %+v", got)
	}
}

func TestReviewDecision(t *testing.T) {
	t.Parallel()

	artifacts := &memoryArtifacts{}
	p := NewPipeline(PipelineDeps{
		Collector: &fakeCollector{harvest: items()},
		Cache:     &fakeCache{},
		Analysts:  analysts(okExtractor(), okComposer()),
		Artifacts: artifacts,
	})

	if _, err := p.Review(context.Background(), "approve", "lead"); !errors.Is(err, ErrNoBrief) {
		t.Fatalf("expected ErrNoBrief, got %v", err)
	}

	if _, err := p.Start(context.Background(), settings); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, p)

	if _, err := p.Review(context.Background(), "maybe", "lead"); !errors.Is(err, ErrUnknownDecision) {
		t.Fatalf("expected ErrUnknownDecision, got %v", err)
	}
	brief, err := p.Review(context.Background(), "approve", "lead")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if brief.ApprovalStatus != domain.ApprovalApproved || brief.ApprovedBy != "lead" || brief.ApprovedAt == nil {
		t.Fatalf("unexpected reviewed brief %+v", brief)
	}
	if _, err := p.Review(context.Background(), "reject", "lead"); !errors.Is(err, domain.ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if len(artifacts.briefs) != 3 {
		t.Fatalf("expected reviewed brief to be written, got %d writes", len(artifacts.briefs))
	}
}

// gatedArtifacts blocks the n-th brief write until release is closed.
type gatedArtifacts struct {
	memoryArtifacts
	gateAt  int
	entered chan struct{}
	release chan struct{}
	writes  int
}

func (g *gatedArtifacts) SaveBrief(ctx context.Context, b domain.Brief) (string, error) {
	g.mu.Lock()
	g.writes++
	n := g.writes
	g.mu.Unlock()
	if n == g.gateAt {
		close(g.entered)
		<-g.release
	}
	return g.memoryArtifacts.SaveBrief(ctx, b)
}

func TestDecisionDuringReviewHandOffIsKept(t *testing.T) {
	t.Parallel()

	artifacts := &gatedArtifacts{gateAt: 2, entered: make(chan struct{}), release: make(chan struct{})}
	p := NewPipeline(PipelineDeps{
		Collector: &fakeCollector{harvest: items()},
		Cache:     &fakeCache{},
		Analysts:  analysts(okExtractor(), okComposer()),
		Artifacts: artifacts,
	})

	if _, err := p.Start(context.Background(), settings); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-artifacts.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("review stage never wrote the pending brief")
	}
	if got := p.Status().Stage; got != domain.StageReview {
		t.Fatalf("expected review stage, got %s", got)
	}

	type outcome struct {
		brief domain.Brief
		err   error
	}
	decided := make(chan outcome, 1)
	go func() {
		b, err := p.Review(context.Background(), "approve", "alice")
		decided <- outcome{b, err}
	}()

	close(artifacts.release)
	run := waitDone(t, p)
	if run.Stage != domain.StageDone {
		t.Fatalf("unexpected final run %+v", run)
	}

	var got outcome
	select {
	case got = <-decided:
	case <-time.After(5 * time.Second):
		t.Fatal("review decision never returned")
	}
	if got.err != nil || got.brief.ApprovalStatus != domain.ApprovalApproved {
		t.Fatalf("decision not applied: %+v %v", got.brief.ApprovalStatus, got.err)
	}

	latest, _ := p.LatestBrief()
	if latest.ApprovalStatus != domain.ApprovalApproved || latest.ApprovedBy != "alice" {
		t.Fatalf("approval was overwritten: status=%q by=%q", latest.ApprovalStatus, latest.ApprovedBy)
	}
	artifacts.mu.Lock()
	last := artifacts.briefs[len(artifacts.briefs)-1]
	artifacts.mu.Unlock()
	if last.ApprovalStatus != domain.ApprovalApproved {
		t.Fatalf("last stored brief is %q, want approved", last.ApprovalStatus)
	}
}
