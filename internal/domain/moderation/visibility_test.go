package moderation

import (
	"errors"
	"testing"
	"time"

	"designhub/internal/common"
	"designhub/internal/domain/model"
)

func TestProblemVisibilityPublicIgnoresStatuses(t *testing.T) {
	f, err := ProblemVisibility(nil, ScopePublic, []model.ProblemStatus{model.ProblemStatusDraft})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Statuses) != 1 || f.Statuses[0] != model.ProblemStatusPublished {
		t.Fatalf("public scope must only see PUBLISHED, got %v", f.Statuses)
	}

	draft := &model.Problem{Status: model.ProblemStatusDraft}
	published := &model.Problem{Status: model.ProblemStatusPublished}
	now := time.Now()
	deleted := &model.Problem{Status: model.ProblemStatusPublished, DeletedAt: &now}
	if f.Matches(draft) || !f.Matches(published) || f.Matches(deleted) {
		t.Fatalf("public predicate mismatch")
	}
}

func TestProblemVisibilityScopes(t *testing.T) {
	if _, err := ProblemVisibility(nil, ScopeOwn, nil); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if _, err := ProblemVisibility(owner, ScopeAdmin, nil); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	own, err := ProblemVisibility(owner, ScopeOwn, []model.ProblemStatus{model.ProblemStatusRejected})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mine := &model.Problem{CreatedByID: "user-1", Status: model.ProblemStatusRejected}
	theirs := &model.Problem{CreatedByID: "user-2", Status: model.ProblemStatusRejected}
	if !own.Matches(mine) || own.Matches(theirs) {
		t.Fatalf("own predicate mismatch")
	}

	queue, err := ProblemVisibility(admin, ScopeAdmin, []model.ProblemStatus{model.ProblemStatusPendingReview})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if queue.Matches(mine) || !queue.Matches(&model.Problem{Status: model.ProblemStatusPendingReview}) {
		t.Fatalf("admin predicate mismatch")
	}
}

func TestSolutionVisibility(t *testing.T) {
	public, err := SolutionVisibility(nil, ScopePublic, "p-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approved := &model.Solution{ProblemID: "p-1", Status: model.SolutionStatusApproved, IsPublic: true}
	private := &model.Solution{ProblemID: "p-1", Status: model.SolutionStatusApproved}
	pending := &model.Solution{ProblemID: "p-1", Status: model.SolutionStatusSubmitted, IsPublic: true}
	if !public.Matches(approved) || public.Matches(private) || public.Matches(pending) {
		t.Fatalf("public solution predicate mismatch")
	}
	if public.Sort != model.SortTopUpvoted {
		t.Fatalf("community listing sorts by upvotes")
	}

	if _, err := SolutionVisibility(nil, ScopePublic, " ", nil); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	profile, err := SolutionVisibility(nil, ScopeProfile, "user-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !profile.Matches(&model.Solution{UserID: "user-1", Status: model.SolutionStatusSubmitted, IsPublic: true}) {
		t.Fatalf("profile shows public solutions in any status")
	}
	if profile.Matches(&model.Solution{UserID: "user-1", Status: model.SolutionStatusApproved}) {
		t.Fatalf("profile hides private solutions")
	}

	if _, err := SolutionVisibility(stranger, ScopeAdmin, "", nil); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestCanViewSolution(t *testing.T) {
	private := &model.Solution{UserID: "user-1"}
	if CanViewSolution(nil, private) || CanViewSolution(stranger, private) {
		t.Fatalf("private solution leaked")
	}
	if !CanViewSolution(owner, private) || !CanViewSolution(admin, private) {
		t.Fatalf("owner and admin can view private solutions")
	}
}

func TestParseStatuses(t *testing.T) {
	got, err := ParseProblemStatuses("draft, REJECTED,,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != model.ProblemStatusDraft || got[1] != model.ProblemStatusRejected {
		t.Fatalf("unexpected statuses: %v", got)
	}
	if _, err := ParseProblemStatuses("ARCHIVED"); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got, err := ParseSolutionStatuses(""); err != nil || got != nil {
		t.Fatalf("empty input means no restriction: %v, %v", got, err)
	}
	if _, err := ParseSolutionStatuses("under_review,nope"); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
