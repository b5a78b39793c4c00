package usecase

import (
	"context"
	"fmt"
	"maps"
	"time"

	"IntelBrief/internal/domain"
)

// runState carries typed stage outputs from one stage to the next.
type runState struct {
	settings domain.RunSettings
	analysts Analysts
	items    []domain.CollectedItem
	insights []domain.Insight
	trends   []domain.Trend
	brief    domain.Brief
}

type stageStep struct {
	stage    domain.Stage
	progress int
	run      func(ctx context.Context, st *runState) (domain.StageResult, error)
}

func (p *Pipeline) steps() []stageStep {
	return []stageStep{
		{stage: domain.StageHarvest, progress: 25, run: p.harvest},
		{stage: domain.StageExtract, progress: 50, run: p.extract},
		{stage: domain.StageReport, progress: 75, run: p.report},
		{stage: domain.StageReview, progress: 100, run: p.review},
	}
}

func (p *Pipeline) execute(ctx context.Context, runID string, settings domain.RunSettings, done chan struct{}) {
	defer close(done)

	st := &runState{settings: settings}
	steps := p.steps()
	for i, step := range steps {
		result, err := p.runStage(ctx, step, st)
		if err != nil {
			p.fail(runID, err)
			return
		}

		next := domain.StageDone
		if i+1 < len(steps) {
			next = steps[i+1].stage
		}
		p.transition(func(run *domain.PipelineRun) {
			run.StageResults[step.stage] = result
			run.ProgressPercent = step.progress
			run.Stage = next
			if next == domain.StageDone {
				finishedAt := p.now().UTC()
				run.FinishedAt = &finishedAt
			}
		})
		p.debug("stage complete", "run", runID, "stage", step.stage, "counts", result.Counts)
	}

	p.metrics.RunFinished(domain.StageDone)
	p.info("run complete", "run", runID)
}

// runStage runs one step and turns errors and panics into a *domain.StageFailure.
func (p *Pipeline) runStage(ctx context.Context, step stageStep, st *runState) (result domain.StageResult, err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		p.metrics.ObserveStage(step.stage, time.Since(started))
		if err != nil {
			err = &domain.StageFailure{Stage: step.stage, Err: err}
		}
	}()
	return step.run(ctx, st)
}

func (p *Pipeline) fail(runID string, err error) {
	p.transition(func(run *domain.PipelineRun) {
		run.Stage = domain.StageFailed
		run.Error = err.Error()
		finishedAt := p.now().UTC()
		run.FinishedAt = &finishedAt
	})
	p.metrics.RunFinished(domain.StageFailed)
	p.logErr("run failed", "run", runID, "error", err)
}

// transition derives the next snapshot from the current one. Only the run
// goroutine calls it.
func (p *Pipeline) transition(apply func(run *domain.PipelineRun)) {
	next := p.Status()
	apply(&next)
	p.state.Store(&next)
}

func (p *Pipeline) harvest(ctx context.Context, st *runState) (domain.StageResult, error) {
	var warnings []string
	if err := p.cache.Load(); err != nil {
		p.warn("cache load failed, continuing with in-memory set", "error", err)
		warnings = append(warnings, err.Error())
	}

	harvest, err := p.collector.Collect(ctx, st.settings.Sources())
	if err != nil {
		return domain.StageResult{}, fmt.Errorf("collect: %w", err)
	}
	for _, failure := range harvest.Failures {
		warnings = append(warnings, failure.Error())
	}

	if err := p.cache.Persist(); err != nil {
		p.warn("cache persist failed", "error", err)
		warnings = append(warnings, err.Error())
	}

	result := domain.StageResult{
		Counts: map[string]int{
			"sources":    harvest.Sources,
			"items":      len(harvest.Items),
			"duplicates": harvest.Duplicates,
			"failures":   len(harvest.Failures),
		},
		Warnings: warnings,
	}
	if p.artifacts != nil {
		name, err := p.artifacts.SaveHarvest(ctx, harvest.Items)
		if err != nil {
			return domain.StageResult{}, fmt.Errorf("save harvest: %w", err)
		}
		result.Artifact = name
	}

	st.items = harvest.Items
	return result, nil
}

func (p *Pipeline) extract(ctx context.Context, st *runState) (domain.StageResult, error) {
	st.analysts = p.analysts(st.settings)
	if st.analysts.Extractor == nil || st.analysts.Trends == nil || st.analysts.Composer == nil {
		return domain.StageResult{}, fmt.Errorf("analysts are not configured")
	}

	st.insights = st.analysts.Extractor.Extract(ctx, st.items)
	st.trends = st.analysts.Trends.Aggregate(ctx, st.insights)

	result := domain.StageResult{Counts: map[string]int{
		"items":    len(st.items),
		"insights": len(st.insights),
		"trends":   len(st.trends),
	}}
	if p.artifacts != nil {
		name, err := p.artifacts.SaveExtraction(ctx, st.insights, st.trends)
		if err != nil {
			return domain.StageResult{}, fmt.Errorf("save extraction: %w", err)
		}
		result.Artifact = name
	}
	return result, ctx.Err()
}

func (p *Pipeline) report(ctx context.Context, st *runState) (domain.StageResult, error) {
	brief, err := st.analysts.Composer.Compose(ctx, st.insights, st.trends)
	if err != nil {
		return domain.StageResult{}, fmt.Errorf("compose brief: %w", err)
	}

	result := domain.StageResult{Counts: map[string]int{
		"sections":        len(brief.Sections),
		"keyFindings":     len(brief.KeyFindings),
		"recommendations": len(brief.Recommendations),
	}}
	if p.artifacts != nil {
		name, err := p.artifacts.SaveBrief(ctx, brief)
		if err != nil {
			return domain.StageResult{}, fmt.Errorf("save brief: %w", err)
		}
		result.Artifact = name
	}

	st.brief = brief
	p.publishBrief(brief)
	return result, nil
}

func (p *Pipeline) review(ctx context.Context, st *runState) (domain.StageResult, error) {
	brief := st.brief
	brief.ApprovalStatus = domain.ApprovalPending
	brief.Metadata = maps.Clone(brief.Metadata)
	if brief.Metadata == nil {
		brief.Metadata = map[string]any{}
	}
	brief.Metadata["reviewerEmail"] = st.settings.ReviewerEmail
	brief.Metadata["reviewRequestedAt"] = p.now().UTC().Format(time.RFC3339)

	result := domain.StageResult{Counts: map[string]int{"pending": 1}}

	// Save and publish under briefMu so a decision is only possible once the
	// pending brief is visible, and is never overwritten here.
	p.briefMu.Lock()
	if cur := p.brief; cur != nil && cur.Decided() && cur.GeneratedAt.Equal(brief.GeneratedAt) {
		p.briefMu.Unlock()
		p.warn("brief already decided, skipping review hand-off", "status", cur.ApprovalStatus)
		result.Counts = map[string]int{"pending": 0}
		result.Warnings = append(result.Warnings, "brief already decided")
		return result, nil
	}
	if p.artifacts != nil {
		name, err := p.artifacts.SaveBrief(ctx, brief)
		if err != nil {
			p.briefMu.Unlock()
			return domain.StageResult{}, fmt.Errorf("save pending brief: %w", err)
		}
		result.Artifact = name
	}
	p.brief = &brief
	p.briefMu.Unlock()

	if p.notifier != nil {
		if err := p.notifier.NotifyPending(ctx, brief, st.settings.ReviewerEmail); err != nil {
			p.warn("review notification failed", "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("notify reviewer: %v", err))
		}
	}
	return result, nil
}

func (p *Pipeline) publishBrief(brief domain.Brief) {
	p.briefMu.Lock()
	p.brief = &brief
	p.briefMu.Unlock()
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) logErr(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
