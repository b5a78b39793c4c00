package domain

import (
	"errors"
	"strings"
	"time"
)

// ApprovalStatus tracks the reviewer decision on a brief.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

var (
	// ErrAlreadyDecided is returned when a reviewer decides on a brief twice.
	ErrAlreadyDecided = errors.New("brief already has a review decision")
	// ErrNotPending is returned for a decision on a brief not yet handed to review.
	ErrNotPending = errors.New("brief is not awaiting review")
	// ErrInvalidBriefName is returned for a brief artifact name outside the briefs directory.
	ErrInvalidBriefName = errors.New("invalid brief name")
)

// ReportSection is one topic chapter of a brief.
type ReportSection struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Insights   []Insight `json:"insights"`
	Citations  []string  `json:"citations"`
	Confidence float64   `json:"confidence"`
	WordCount  int       `json:"wordCount"`
}

// Brief is the analyst-reviewable output of a run.
type Brief struct {
	Title            string          `json:"title"`
	ExecutiveSummary string          `json:"executiveSummary"`
	Sections         []ReportSection `json:"sections"`
	Trends           []Trend         `json:"trends"`
	KeyFindings      []string        `json:"keyFindings"`
	Recommendations  []string        `json:"recommendations"`
	GeneratedAt      time.Time       `json:"generatedAt"`
	Metadata         map[string]any  `json:"metadata"`
	ApprovalStatus   ApprovalStatus  `json:"approvalStatus"`
	ApprovedBy       string          `json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time      `json:"approvedAt,omitempty"`
}

// Decided reports whether a reviewer has approved or rejected the brief.
func (b Brief) Decided() bool {
	return b.ApprovalStatus == ApprovalApproved || b.ApprovalStatus == ApprovalRejected
}

// Approve records a positive reviewer decision.
func (b *Brief) Approve(reviewer string, at time.Time) error {
	return b.decide(ApprovalApproved, reviewer, at)
}

// Reject records a negative reviewer decision.
func (b *Brief) Reject(reviewer string, at time.Time) error {
	return b.decide(ApprovalRejected, reviewer, at)
}

func (b *Brief) decide(status ApprovalStatus, reviewer string, at time.Time) error {
	switch b.ApprovalStatus {
	case ApprovalPending:
	case ApprovalApproved, ApprovalRejected:
		return ErrAlreadyDecided
	default:
		return ErrNotPending
	}
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return errors.New("reviewer is required")
	}
	b.ApprovalStatus = status
	b.ApprovedBy = reviewer
	decidedAt := at.UTC()
	b.ApprovedAt = &decidedAt
	return nil
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
