package moderation

import (
	"fmt"
	"strings"

	"designhub/internal/common"
)

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Review is a validated admin decision.
type Review struct {
	Decision Decision
	Reason   string
}

// ParseReview checks the decision value and, for rejections, the reason.
func ParseReview(decision, reason string) (Review, error) {
	d := Decision(strings.ToUpper(strings.TrimSpace(decision)))
	switch d {
	case DecisionApprove:
		return Review{Decision: d}, nil
	case DecisionReject:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return Review{}, common.ErrMissingRejectionReason
		}
		return Review{Decision: d, Reason: reason}, nil
	}
	return Review{}, fmt.Errorf("got %q: %w", decision, common.ErrInvalidDecision)
}

// ProblemOperation maps the decision onto the problem transition it triggers.
func (r Review) ProblemOperation() Operation {
	if r.Decision == DecisionApprove {
		return OpApproveProblem
	}
	return OpRejectProblem
}

// SolutionOperation maps the decision onto the solution transition it triggers.
func (r Review) SolutionOperation() Operation {
	if r.Decision == DecisionApprove {
		return OpApproveSolution
	}
	return OpRejectSolution
}
