package domain

import (
	"maps"
	"time"
)

// Stage is one state of the pipeline run state machine.
type Stage string

const (
	StageIdle    Stage = "idle"
	StageHarvest Stage = "harvest"
	StageExtract Stage = "extract"
	StageReport  Stage = "report"
	StageReview  Stage = "review"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

// Active reports whether a run in this stage still owns the pipeline.
func (s Stage) Active() bool {
	switch s {
	case StageHarvest, StageExtract, StageReport, StageReview:
		return true
	default:
		return false
	}
}

// StageResult summarises what a finished stage produced.
type StageResult struct {
	Counts   map[string]int `json:"counts,omitempty"`
	Artifact string         `json:"artifact,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// PipelineRun is a point-in-time view of the current run. Values handed to
// readers are never mutated afterwards; writers derive a new value per transition.
type PipelineRun struct {
	RunID           string                `json:"runId,omitempty"`
	Stage           Stage                 `json:"stage"`
	ProgressPercent int                   `json:"progressPercent"`
	StageResults    map[Stage]StageResult `json:"stageResults"`
	Error           string                `json:"error,omitempty"`
	StartedAt       *time.Time            `json:"startedAt,omitempty"`
	FinishedAt      *time.Time            `json:"finishedAt,omitempty"`
}

// IdleRun is what status readers see before the first run.
func IdleRun() PipelineRun {
	return PipelineRun{Stage: StageIdle, StageResults: map[Stage]StageResult{}}
}

// Clone returns a copy whose maps and slices are not shared with r.
func (r PipelineRun) Clone() PipelineRun {
	out := r
	out.StageResults = make(map[Stage]StageResult, len(r.StageResults))
	for stage, res := range r.StageResults {
		res.Counts = maps.Clone(res.Counts)
		res.Warnings = append([]string(nil), res.Warnings...)
		out.StageResults[stage] = res
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		out.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
