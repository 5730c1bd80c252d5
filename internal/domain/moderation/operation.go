// Package moderation holds the lifecycle transition tables for problems and solutions,
// the authorization guard consulted before every transition, and the visibility filter
// used by listings.
package moderation

// Operation names a guarded action on a problem, solution or registry entry.
type Operation string

const (
	OpCreateProblem      Operation = "CREATE_PROBLEM"
	OpSubmitProblem      Operation = "SUBMIT_PROBLEM_FOR_REVIEW"
	OpResubmitProblem    Operation = "RESUBMIT_PROBLEM"
	OpReviewProblem      Operation = "REVIEW_PROBLEM"
	OpApproveProblem     Operation = "APPROVE_PROBLEM"
	OpRejectProblem      Operation = "REJECT_PROBLEM"
	OpPublishProblem     Operation = "PUBLISH_PROBLEM"
	OpUpdateProblem      Operation = "UPDATE_PROBLEM"
	OpDeleteProblem      Operation = "DELETE_PROBLEM"
	OpViewProblemAsOwner Operation = "VIEW_PROBLEM_AS_OWNER"
	OpSaveProblem        Operation = "SAVE_PROBLEM"

	OpSubmitSolution      Operation = "SUBMIT_SOLUTION"
	OpStartSolutionReview Operation = "START_SOLUTION_REVIEW"
	OpReviewSolution      Operation = "REVIEW_SOLUTION"
	OpApproveSolution     Operation = "APPROVE_SOLUTION"
	OpRejectSolution      Operation = "REJECT_SOLUTION"
	OpUpdateSolution      Operation = "UPDATE_SOLUTION"
	OpDeleteSolution      Operation = "DELETE_SOLUTION"
	OpToggleVisibility    Operation = "TOGGLE_SOLUTION_VISIBILITY"
	OpToggleUpvote        Operation = "TOGGLE_UPVOTE"

	OpViewAdminQueue Operation = "VIEW_ADMIN_QUEUE"
	OpManageMetadata Operation = "MANAGE_METADATA"
	OpVerifyAccount  Operation = "VERIFY_ACCOUNT"
)

// Actor is the class of requester an operation is reserved for.
type Actor int

const (
	ActorAnyone Actor = iota
	ActorOwner
	ActorAdmin
	ActorOwnerOrAdmin
)

// Rule describes the identity requirements of one operation.
type Rule struct {
	Authenticated bool
	Verified      bool
	Actor         Actor
}

func defaultRules(policy Policy) map[Operation]Rule {
	deleteActor := ActorOwner
	if policy.AdminCanDeleteProblems {
		deleteActor = ActorOwnerOrAdmin
	}

	return map[Operation]Rule{
		OpCreateProblem:      {Authenticated: true, Verified: true, Actor: ActorAnyone},
		OpSubmitProblem:      {Authenticated: true, Verified: true, Actor: ActorOwner},
		OpResubmitProblem:    {Authenticated: true, Verified: true, Actor: ActorOwner},
		OpReviewProblem:      {Authenticated: true, Actor: ActorAdmin},
		OpApproveProblem:     {Authenticated: true, Actor: ActorAdmin},
		OpRejectProblem:      {Authenticated: true, Actor: ActorAdmin},
		OpPublishProblem:     {Authenticated: true, Actor: ActorAdmin},
		OpUpdateProblem:      {Authenticated: true, Actor: ActorOwner},
		OpDeleteProblem:      {Authenticated: true, Actor: deleteActor},
		OpViewProblemAsOwner: {Authenticated: true, Actor: ActorOwner},
		OpSaveProblem:        {Authenticated: true, Verified: true, Actor: ActorAnyone},

		OpSubmitSolution:      {Authenticated: true, Verified: true, Actor: ActorAnyone},
		OpStartSolutionReview: {Authenticated: true, Actor: ActorAdmin},
		OpReviewSolution:      {Authenticated: true, Actor: ActorAdmin},
		OpApproveSolution:     {Authenticated: true, Actor: ActorAdmin},
		OpRejectSolution:      {Authenticated: true, Actor: ActorAdmin},
		OpUpdateSolution:      {Authenticated: true, Actor: ActorOwner},
		OpDeleteSolution:      {Authenticated: true, Actor: ActorOwner},
		OpToggleVisibility:    {Authenticated: true, Actor: ActorOwner},
		OpToggleUpvote:        {Authenticated: true, Actor: ActorAnyone},

		OpViewAdminQueue: {Authenticated: true, Actor: ActorAdmin},
		OpManageMetadata: {Authenticated: true, Actor: ActorAdmin},
		OpVerifyAccount:  {Authenticated: true, Actor: ActorAdmin},
	}
}
