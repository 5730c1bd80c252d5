package model

import "time"

type SolutionStatus string

const (
	SolutionStatusSubmitted   SolutionStatus = "SUBMITTED"
	SolutionStatusUnderReview SolutionStatus = "UNDER_REVIEW"
	SolutionStatusApproved    SolutionStatus = "APPROVED"
	SolutionStatusRejected    SolutionStatus = "REJECTED"
)

var SolutionStatuses = []SolutionStatus{
	SolutionStatusSubmitted,
	SolutionStatusUnderReview,
	SolutionStatusApproved,
	SolutionStatusRejected,
}

func (s SolutionStatus) Valid() bool {
	for _, known := range SolutionStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Solution struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	ProblemID       string         `json:"problem_id"`
	RepositoryURL   string         `json:"repository_url"`
	LiveDemoURL     *string        `json:"live_demo_url,omitempty"`
	Content         string         `json:"content"` // Markdown
	TechStack       []string       `json:"tech_stack"`
	Status          SolutionStatus `json:"status"`
	IsPublic        bool           `json:"is_public"`
	ReviewedByID    *string        `json:"reviewed_by_id,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	UpvoteCount     int            `json:"upvote_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (s *Solution) Clone() *Solution {
	c := *s
	c.TechStack = append([]string(nil), s.TechStack...)
	c.LiveDemoURL = cloneString(s.LiveDemoURL)
	c.ReviewedByID = cloneString(s.ReviewedByID)
	c.RejectionReason = cloneString(s.RejectionReason)
	c.ReviewedAt = cloneTime(s.ReviewedAt)
	return &c
}

// SolutionView is a solution annotated for the requesting viewer. The upvoter set itself is never exposed.
type SolutionView struct {
	Solution
	HasLiked     bool   `json:"has_liked"`
	AuthorName   string `json:"author_name"`
	ProblemTitle string `json:"problem_title"`
	ProblemSlug  string `json:"problem_slug"`
}

// UpvoteResult reports the state after a toggle.
type UpvoteResult struct {
	SolutionID  string `json:"solution_id"`
	Upvoted     bool   `json:"upvoted"`
	UpvoteCount int    `json:"upvote_count"`
}
