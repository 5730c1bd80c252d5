package moderation

import (
	"errors"
	"testing"

	"designhub/internal/common"
	"designhub/internal/domain/model"
)

var (
	owner      = &model.Identity{ID: "user-1", Role: model.RoleUser, IsVerified: true}
	stranger   = &model.Identity{ID: "user-2", Role: model.RoleUser, IsVerified: true}
	unverified = &model.Identity{ID: "user-1", Role: model.RoleUser}
	admin      = &model.Identity{ID: "admin-1", Role: model.RoleAdmin, IsVerified: true}
)

func TestGuardCheckPriority(t *testing.T) {
	guard := NewGuard(DefaultPolicy())
	approved := Subject{OwnerID: "user-1", Status: string(model.ProblemStatusApproved)}

	cases := []struct {
		name string
		who  *model.Identity
		op   Operation
		subj Subject
		want error
	}{
		{"anonymous before state", nil, OpSubmitProblem, approved, common.ErrUnauthorized},
		{"unverified before ownership", &model.Identity{ID: "user-9"}, OpSubmitProblem, approved, common.ErrAccountNotVerified},
		{"ownership before state", stranger, OpSubmitProblem, approved, common.ErrForbidden},
		{"state last", owner, OpSubmitProblem, approved, common.ErrInvalidTransition},
		{"admin only", owner, OpPublishProblem, approved, common.ErrForbidden},
		{"admin reviews regardless of verification", &model.Identity{ID: "a", Role: model.RoleAdmin}, OpPublishProblem, approved, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := guard.Authorize(tc.who, tc.op, tc.subj)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGuardUnverifiedOwnerCannotSubmit(t *testing.T) {
	guard := NewGuard(DefaultPolicy())
	_, err := guard.Authorize(unverified, OpSubmitProblem, Subject{OwnerID: "user-1", Status: string(model.ProblemStatusDraft)})
	if !errors.Is(err, common.ErrAccountNotVerified) {
		t.Fatalf("expected AccountNotVerified, got %v", err)
	}
}

func TestGuardOwnerIDsCompareNormalized(t *testing.T) {
	guard := NewGuard(DefaultPolicy())
	next, err := guard.Authorize(owner, OpSubmitProblem, Subject{OwnerID: "  USER-1 ", Status: string(model.ProblemStatusDraft)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != string(model.ProblemStatusPendingReview) {
		t.Fatalf("unexpected next status: %s", next)
	}
}

func TestGuardSelfUpvotePolicy(t *testing.T) {
	subj := Subject{OwnerID: "user-1", Status: string(model.SolutionStatusApproved)}

	if _, err := NewGuard(DefaultPolicy()).Authorize(owner, OpToggleUpvote, subj); err != nil {
		t.Fatalf("self upvote should be allowed by default: %v", err)
	}

	strict := NewGuard(Policy{AllowSelfUpvote: false})
	if _, err := strict.Authorize(owner, OpToggleUpvote, subj); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if _, err := strict.Authorize(stranger, OpToggleUpvote, subj); err != nil {
		t.Fatalf("other users may upvote: %v", err)
	}
}

func TestGuardAdminDeletePolicy(t *testing.T) {
	subj := Subject{OwnerID: "user-1", Status: string(model.ProblemStatusPublished)}

	if _, err := NewGuard(DefaultPolicy()).Authorize(admin, OpDeleteProblem, subj); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	next, err := NewGuard(Policy{AdminCanDeleteProblems: true}).Authorize(admin, OpDeleteProblem, subj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != string(model.ProblemStatusDraft) {
		t.Fatalf("delete should reset to DRAFT, got %s", next)
	}
}

func TestGuardUnknownOperation(t *testing.T) {
	guard := NewGuard(DefaultPolicy())
	if err := guard.Permit(admin, Operation("LAUNCH_ROCKET"), ""); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}
