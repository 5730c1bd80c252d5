package model

import (
	"strings"
)

// ProblemFilter is the listing predicate for problems. Zero-valued fields do not restrict;
// soft-deleted problems never match.
type ProblemFilter struct {
	Statuses    []ProblemStatus
	OwnerID     string
	Category    string
	ProblemType string
	Difficulty  ProblemDifficulty
	Tags        []string // matches when the problem carries any of them
	Search      string
	SavedBy     string // evaluated by the repository against saved problems
	Limit       int
	Offset      int
}

// Matches evaluates every field except SavedBy and paging.
func (f ProblemFilter) Matches(p *Problem) bool {
	if p.IsDeleted() {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, p.Status) {
		return false
	}
	if f.OwnerID != "" && !SameID(f.OwnerID, p.CreatedByID) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	if f.ProblemType != "" && !strings.EqualFold(f.ProblemType, p.ProblemType) {
		return false
	}
	if f.Difficulty != "" && f.Difficulty != p.Difficulty {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(f.Tags, p.Tags) {
		return false
	}
	if f.Search != "" && !matchesSearch(f.Search, p) {
		return false
	}
	return true
}

type SolutionSort string

const (
	SortNewest     SolutionSort = "newest"
	SortTopUpvoted SolutionSort = "top"
)

// SolutionFilter is the listing predicate for solutions. Zero-valued fields do not restrict.
type SolutionFilter struct {
	ProblemID  string
	UserID     string
	Statuses   []SolutionStatus
	PublicOnly bool
	Sort       SolutionSort
	Limit      int
	Offset     int
}

func (f SolutionFilter) Matches(s *Solution) bool {
	if f.PublicOnly && !s.IsPublic {
		return false
	}
	if f.ProblemID != "" && !SameID(f.ProblemID, s.ProblemID) {
		return false
	}
	if f.UserID != "" && !SameID(f.UserID, s.UserID) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if st == s.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Less orders a before b for this filter: by upvotes for SortTopUpvoted, then newest first.
func (f SolutionFilter) Less(a, b *Solution) bool {
	if f.Sort == SortTopUpvoted && a.UpvoteCount != b.UpvoteCount {
		return a.UpvoteCount > b.UpvoteCount
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func containsStatus(statuses []ProblemStatus, s ProblemStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func anyTag(wanted, have []string) bool {
	for _, w := range wanted {
		for _, h := range have {
			if strings.EqualFold(strings.TrimSpace(w), h) {
				return true
			}
		}
	}
	return false
}

func matchesSearch(term string, p *Problem) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Summary), term) ||
		strings.Contains(strings.ToLower(p.Content), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
