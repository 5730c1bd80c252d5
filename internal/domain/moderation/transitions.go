package moderation

import (
	"fmt"
	"strings"

	"designhub/internal/common"
	"designhub/internal/domain/model"
)

// SolutionFlow selects which solution review table is in force.
type SolutionFlow string

const (
	// FlowStaged makes UNDER_REVIEW a mandatory step before approval.
	FlowStaged SolutionFlow = "staged"
	// FlowDirect approves or rejects straight from SUBMITTED or REJECTED.
	FlowDirect SolutionFlow = "direct"
)

// ParseSolutionFlow accepts "staged" or "direct", case-insensitively.
func ParseSolutionFlow(s string) (SolutionFlow, error) {
	switch SolutionFlow(strings.ToLower(strings.TrimSpace(s))) {
	case FlowStaged, "":
		return FlowStaged, nil
	case FlowDirect:
		return FlowDirect, nil
	}
	return "", fmt.Errorf("unknown solution review flow %q: %w", s, common.ErrValidation)
}

// Transition is one row of a transition table. An empty From accepts every status;
// an empty To keeps the current status.
type Transition struct {
	From []string
	To   string
	Err  error
}

// Machine is a transition table keyed by operation.
type Machine struct {
	name  string
	table map[Operation]Transition
}

// Handles reports whether op has a row in this table.
func (m *Machine) Handles(op Operation) bool {
	_, ok := m.table[op]
	return ok
}

// Next returns the status reached by applying op from the given status.
func (m *Machine) Next(op Operation, from string) (string, error) {
	t, ok := m.table[op]
	if !ok {
		return "", fmt.Errorf("%s is not a %s transition: %w", op, m.name, common.ErrInvalidTransition)
	}
	if len(t.From) > 0 && !contains(t.From, from) {
		return "", fmt.Errorf("%s not allowed while %s is %s: %w", op, m.name, from, t.Err)
	}
	if t.To == "" {
		return from, nil
	}
	return t.To, nil
}

var problemTransitions = map[Operation]Transition{
	OpSubmitProblem: {
		From: problemStates(model.ProblemStatusDraft),
		To:   string(model.ProblemStatusPendingReview),
		Err:  common.ErrInvalidTransition,
	},
	OpResubmitProblem: {
		From: problemStates(model.ProblemStatusDraft, model.ProblemStatusRejected),
		To:   string(model.ProblemStatusPendingReview),
		Err:  common.ErrInvalidState,
	},
	OpApproveProblem: {
		From: problemStates(model.ProblemStatusPendingReview),
		To:   string(model.ProblemStatusApproved),
		Err:  common.ErrInvalidTransition,
	},
	OpRejectProblem: {
		From: problemStates(model.ProblemStatusPendingReview),
		To:   string(model.ProblemStatusRejected),
		Err:  common.ErrInvalidTransition,
	},
	OpPublishProblem: {
		From: problemStates(model.ProblemStatusApproved),
		To:   string(model.ProblemStatusPublished),
		Err:  common.ErrInvalidTransition,
	},
	OpUpdateProblem: {
		From: problemStates(model.ProblemStatusDraft, model.ProblemStatusRejected),
		Err:  common.ErrInvalidState,
	},
	OpDeleteProblem: {
		To: string(model.ProblemStatusDraft),
	},
	OpViewProblemAsOwner: {},
}

var stagedSolutionTransitions = map[Operation]Transition{
	OpStartSolutionReview: {
		From: solutionStates(model.SolutionStatusSubmitted),
		To:   string(model.SolutionStatusUnderReview),
		Err:  common.ErrInvalidTransition,
	},
	OpApproveSolution: {
		From: solutionStates(model.SolutionStatusUnderReview),
		To:   string(model.SolutionStatusApproved),
		Err:  common.ErrNotReviewable,
	},
	OpRejectSolution: {
		From: solutionStates(model.SolutionStatusSubmitted, model.SolutionStatusUnderReview),
		To:   string(model.SolutionStatusRejected),
		Err:  common.ErrNotReviewable,
	},
	OpUpdateSolution: {
		From: solutionStates(model.SolutionStatusSubmitted),
		Err:  common.ErrLockedForReview,
	},
	OpDeleteSolution:   {},
	OpToggleVisibility: {},
	OpToggleUpvote:     {},
}

var directSolutionTransitions = map[Operation]Transition{
	OpApproveSolution: {
		From: solutionStates(model.SolutionStatusSubmitted, model.SolutionStatusRejected),
		To:   string(model.SolutionStatusApproved),
		Err:  common.ErrNotReviewable,
	},
	OpRejectSolution: {
		From: solutionStates(model.SolutionStatusSubmitted, model.SolutionStatusRejected),
		To:   string(model.SolutionStatusRejected),
		Err:  common.ErrNotReviewable,
	},
	OpUpdateSolution: {
		From: solutionStates(model.SolutionStatusSubmitted),
		Err:  common.ErrLockedForReview,
	},
	OpDeleteSolution:   {},
	OpToggleVisibility: {},
	OpToggleUpvote:     {},
}

// ProblemMachine returns the problem lifecycle table.
func ProblemMachine() *Machine {
	return &Machine{name: "problem", table: problemTransitions}
}

// SolutionMachine returns the solution lifecycle table for the given flow.
func SolutionMachine(flow SolutionFlow) *Machine {
	if flow == FlowDirect {
		return &Machine{name: "solution", table: directSolutionTransitions}
	}
	return &Machine{name: "solution", table: stagedSolutionTransitions}
}

func problemStates(states ...model.ProblemStatus) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func solutionStates(states ...model.SolutionStatus) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
