package moderation

import (
	"fmt"

	"designhub/internal/common"
	"designhub/internal/domain/model"
)

// Policy carries the configurable parts of the authorization rules.
type Policy struct {
	SolutionFlow           SolutionFlow
	AllowSelfUpvote        bool
	AdminCanDeleteProblems bool
}

// DefaultPolicy is the staged review flow with self-upvotes permitted.
func DefaultPolicy() Policy {
	return Policy{SolutionFlow: FlowStaged, AllowSelfUpvote: true}
}

// Subject is the snapshot of the entity an operation targets.
// Status is empty when the entity does not exist yet.
type Subject struct {
	OwnerID string
	Status  string
}

// Guard decides whether an identity may invoke an operation on a subject.
type Guard struct {
	policy    Policy
	rules     map[Operation]Rule
	problems  *Machine
	solutions *Machine
}

func NewGuard(policy Policy) *Guard {
	if policy.SolutionFlow == "" {
		policy.SolutionFlow = FlowStaged
	}
	return &Guard{
		policy:    policy,
		rules:     defaultRules(policy),
		problems:  ProblemMachine(),
		solutions: SolutionMachine(policy.SolutionFlow),
	}
}

func (g *Guard) Policy() Policy {
	return g.policy
}

// Permit runs the identity checks of op in priority order:
// authentication, verification, then ownership or role.
func (g *Guard) Permit(who *model.Identity, op Operation, ownerID string) error {
	rule, ok := g.rules[op]
	if !ok {
		return fmt.Errorf("unknown operation %s: %w", op, common.ErrForbidden)
	}

	if rule.Authenticated && who == nil {
		return fmt.Errorf("%s: %w", op, common.ErrUnauthorized)
	}
	if rule.Verified && !who.IsVerified {
		return fmt.Errorf("%s: %w", op, common.ErrAccountNotVerified)
	}

	switch rule.Actor {
	case ActorOwner:
		if !who.Owns(ownerID) {
			return fmt.Errorf("%s requires the owner: %w", op, common.ErrForbidden)
		}
	case ActorAdmin:
		if !who.IsAdmin() {
			return fmt.Errorf("%s requires an admin: %w", op, common.ErrForbidden)
		}
	case ActorOwnerOrAdmin:
		if !who.Owns(ownerID) && !who.IsAdmin() {
			return fmt.Errorf("%s requires the owner or an admin: %w", op, common.ErrForbidden)
		}
	}

	if op == OpToggleUpvote && !g.policy.AllowSelfUpvote && who.Owns(ownerID) {
		return fmt.Errorf("owners cannot upvote their own solution: %w", common.ErrForbidden)
	}
	return nil
}

// Authorize runs Permit and then the state check, returning the status the
// operation leads to. Operations without a transition row skip the state check.
func (g *Guard) Authorize(who *model.Identity, op Operation, subj Subject) (string, error) {
	if err := g.Permit(who, op, subj.OwnerID); err != nil {
		return "", err
	}
	switch {
	case g.problems.Handles(op):
		return g.problems.Next(op, subj.Status)
	case g.solutions.Handles(op):
		return g.solutions.Next(op, subj.Status)
	case isSolutionOperation(op):
		// A solution operation missing from the active flow's table.
		return g.solutions.Next(op, subj.Status)
	}
	return subj.Status, nil
}

// AuthorizeProblem is Authorize typed for problem snapshots.
func (g *Guard) AuthorizeProblem(who *model.Identity, op Operation, p *model.Problem) (model.ProblemStatus, error) {
	next, err := g.Authorize(who, op, Subject{OwnerID: p.CreatedByID, Status: string(p.Status)})
	return model.ProblemStatus(next), err
}

// AuthorizeSolution is Authorize typed for solution snapshots.
func (g *Guard) AuthorizeSolution(who *model.Identity, op Operation, s *model.Solution) (model.SolutionStatus, error) {
	next, err := g.Authorize(who, op, Subject{OwnerID: s.UserID, Status: string(s.Status)})
	return model.SolutionStatus(next), err
}

func isSolutionOperation(op Operation) bool {
	switch op {
	case OpStartSolutionReview, OpApproveSolution, OpRejectSolution, OpUpdateSolution,
		OpDeleteSolution, OpToggleVisibility, OpToggleUpvote:
		return true
	}
	return false
}
