package moderation

import (
	"fmt"
	"strings"

	"designhub/internal/common"
	"designhub/internal/domain/model"
)

// Scope is the visibility context of a listing query.
type Scope string

const (
	ScopePublic  Scope = "public"
	ScopeOwn     Scope = "own"
	ScopeAdmin   Scope = "admin"
	ScopeProfile Scope = "profile"
)

// ProblemVisibility derives the problem listing predicate for a requester and scope.
// Caller-supplied statuses narrow the own and admin scopes only. Soft-deleted
// problems are excluded from every scope.
func ProblemVisibility(who *model.Identity, scope Scope, statuses []model.ProblemStatus) (model.ProblemFilter, error) {
	switch scope {
	case ScopePublic:
		return model.ProblemFilter{Statuses: []model.ProblemStatus{model.ProblemStatusPublished}}, nil
	case ScopeOwn:
		if who == nil {
			return model.ProblemFilter{}, fmt.Errorf("own problems: %w", common.ErrUnauthorized)
		}
		return model.ProblemFilter{OwnerID: who.ID, Statuses: statuses}, nil
	case ScopeAdmin:
		if err := requireAdmin(who); err != nil {
			return model.ProblemFilter{}, err
		}
		return model.ProblemFilter{Statuses: statuses}, nil
	}
	return model.ProblemFilter{}, fmt.Errorf("scope %q does not apply to problems: %w", scope, common.ErrBadRequest)
}

// SolutionVisibility derives the solution listing predicate. target is the problem id
// for the public scope and the profile owner's id for the profile scope.
func SolutionVisibility(who *model.Identity, scope Scope, target string, statuses []model.SolutionStatus) (model.SolutionFilter, error) {
	switch scope {
	case ScopePublic:
		if strings.TrimSpace(target) == "" {
			return model.SolutionFilter{}, fmt.Errorf("problem id required: %w", common.ErrValidation)
		}
		return model.SolutionFilter{
			ProblemID:  target,
			PublicOnly: true,
			Statuses:   []model.SolutionStatus{model.SolutionStatusApproved},
			Sort:       model.SortTopUpvoted,
		}, nil
	case ScopeProfile:
		if strings.TrimSpace(target) == "" {
			return model.SolutionFilter{}, fmt.Errorf("user id required: %w", common.ErrValidation)
		}
		return model.SolutionFilter{
			UserID:     target,
			PublicOnly: true,
			Statuses:   statuses,
			Sort:       model.SortNewest,
		}, nil
	case ScopeOwn:
		if who == nil {
			return model.SolutionFilter{}, fmt.Errorf("own solutions: %w", common.ErrUnauthorized)
		}
		return model.SolutionFilter{UserID: who.ID, Statuses: statuses, Sort: model.SortNewest}, nil
	case ScopeAdmin:
		if err := requireAdmin(who); err != nil {
			return model.SolutionFilter{}, err
		}
		return model.SolutionFilter{Statuses: statuses, Sort: model.SortNewest}, nil
	}
	return model.SolutionFilter{}, fmt.Errorf("unknown scope %q: %w", scope, common.ErrBadRequest)
}

// CanViewSolution reports whether who may read a single solution.
func CanViewSolution(who *model.Identity, s *model.Solution) bool {
	return s.IsPublic || who.Owns(s.UserID) || who.IsAdmin()
}

// ParseProblemStatuses reads a comma-separated status list; empty input means no restriction.
func ParseProblemStatuses(csv string) ([]model.ProblemStatus, error) {
	var out []model.ProblemStatus
	for _, part := range splitCSV(csv) {
		s := model.ProblemStatus(strings.ToUpper(part))
		if !s.Valid() {
			return nil, fmt.Errorf("unknown problem status %q: %w", part, common.ErrValidation)
		}
		out = append(out, s)
	}
	return out, nil
}

// ParseSolutionStatuses reads a comma-separated status list; empty input means no restriction.
func ParseSolutionStatuses(csv string) ([]model.SolutionStatus, error) {
	var out []model.SolutionStatus
	for _, part := range splitCSV(csv) {
		s := model.SolutionStatus(strings.ToUpper(part))
		if !s.Valid() {
			return nil, fmt.Errorf("unknown solution status %q: %w", part, common.ErrValidation)
		}
		out = append(out, s)
	}
	return out, nil
}

func requireAdmin(who *model.Identity) error {
	if who == nil {
		return fmt.Errorf("admin queue: %w", common.ErrUnauthorized)
	}
	if !who.IsAdmin() {
		return fmt.Errorf("admin queue requires an admin: %w", common.ErrForbidden)
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
