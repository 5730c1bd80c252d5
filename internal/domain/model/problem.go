package model

import (
	"time"
)

type ProblemDifficulty string
type ProblemStatus string

const (
	DifficultyEasy   ProblemDifficulty = "EASY"
	DifficultyMedium ProblemDifficulty = "MEDIUM"
	DifficultyHard   ProblemDifficulty = "HARD"

	ProblemStatusDraft         ProblemStatus = "DRAFT"
	ProblemStatusPendingReview ProblemStatus = "PENDING_REVIEW"
	ProblemStatusApproved      ProblemStatus = "APPROVED"
	ProblemStatusPublished     ProblemStatus = "PUBLISHED"
	ProblemStatusRejected      ProblemStatus = "REJECTED"
)

// ProblemStatuses lists every problem status in lifecycle order.
var ProblemStatuses = []ProblemStatus{
	ProblemStatusDraft,
	ProblemStatusPendingReview,
	ProblemStatusApproved,
	ProblemStatusPublished,
	ProblemStatusRejected,
}

func (s ProblemStatus) Valid() bool {
	for _, known := range ProblemStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (d ProblemDifficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

type Problem struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Slug            string            `json:"slug"`
	Summary         string            `json:"summary"`
	Content         string            `json:"content"` // Markdown
	Category        string            `json:"category"`
	ProblemType     string            `json:"problem_type"`
	Difficulty      ProblemDifficulty `json:"difficulty"`
	Tags            []string          `json:"tags"`
	Status          ProblemStatus     `json:"status"`
	CreatedByID     string            `json:"created_by_id"`
	ReviewedByID    *string           `json:"reviewed_by_id,omitempty"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	DeletedAt       *time.Time        `json:"deleted_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// IsDeleted reports whether the soft-delete marker is set.
func (p *Problem) IsDeleted() bool {
	return p.DeletedAt != nil
}

// IsPubliclyVisible holds only for published, non-deleted problems.
func (p *Problem) IsPubliclyVisible() bool {
	return p.Status == ProblemStatusPublished && !p.IsDeleted()
}

// Clone returns a deep copy so transitions never mutate the caller's snapshot.
func (p *Problem) Clone() *Problem {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.ReviewedByID = cloneString(p.ReviewedByID)
	c.RejectionReason = cloneString(p.RejectionReason)
	c.ReviewedAt = cloneTime(p.ReviewedAt)
	c.DeletedAt = cloneTime(p.DeletedAt)
	return &c
}

// ProblemListItem is a problem annotated for the requesting viewer.
type ProblemListItem struct {
	Problem
	Saved bool `json:"saved"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
