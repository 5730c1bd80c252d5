package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"designhub/internal/common"
	"designhub/internal/domain/model"
	"designhub/internal/domain/moderation"
	"designhub/internal/domain/repository"
	"designhub/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SolutionService struct {
	solutionRepo repository.SolutionRepository
	problemRepo  repository.ProblemRepository
	guard        *moderation.Guard
	now          func() time.Time
}

func NewSolutionService(
	solutionRepo repository.SolutionRepository,
	problemRepo repository.ProblemRepository,
	guard *moderation.Guard,
) *SolutionService {
	return &SolutionService{
		solutionRepo: solutionRepo,
		problemRepo:  problemRepo,
		guard:        guard,
		now:          time.Now,
	}
}

type SubmitSolutionRequest struct {
	ProblemID     string   `json:"problem_id"`
	RepositoryURL string   `json:"repository_url"`
	LiveDemoURL   *string  `json:"live_demo_url,omitempty"`
	Content       string   `json:"content"` // Markdown
	TechStack     []string `json:"tech_stack"`
	IsPublic      *bool    `json:"is_public,omitempty"` // Defaults to true
}

type UpdateSolutionRequest struct {
	RepositoryURL *string   `json:"repository_url,omitempty"`
	LiveDemoURL   *string   `json:"live_demo_url,omitempty"`
	Content       *string   `json:"content,omitempty"`
	TechStack     *[]string `json:"tech_stack,omitempty"`
	IsPublic      *bool     `json:"is_public,omitempty"`
}

func (s *SolutionService) Submit(ctx context.Context, who *model.Identity, req SubmitSolutionRequest) (*model.Solution, error) {
	if err := s.guard.Permit(who, moderation.OpSubmitSolution, ""); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ProblemID) == "" || strings.TrimSpace(req.RepositoryURL) == "" || strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("problem id, repository url and content are required: %w", common.ErrValidation)
	}
	repoURL, err := parseLink("repository url", req.RepositoryURL)
	if err != nil {
		return nil, err
	}
	demoURL, err := parseOptionalLink(req.LiveDemoURL)
	if err != nil {
		return nil, err
	}

	// Validate problem exists and is published
	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, err
	}
	if !problem.IsPubliclyVisible() {
		return nil, fmt.Errorf("problem is not published: %w", common.ErrNotFound)
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	now := s.now()
	solution := &model.Solution{
		ID:            uuid.NewString(),
		UserID:        who.ID,
		ProblemID:     problem.ID,
		RepositoryURL: repoURL,
		LiveDemoURL:   demoURL,
		Content:       req.Content,
		TechStack:     normalizeTags(req.TechStack),
		Status:        model.SolutionStatusSubmitted,
		IsPublic:      isPublic,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.solutionRepo.CreateSolution(ctx, solution); err != nil {
		return nil, err
	}

	logger.Info(ctx, "solution submitted", zap.String("solution_id", solution.ID), zap.String("problem_id", problem.ID))
	return solution, nil
}

// StartReview claims a submitted solution for review and stamps the reviewer.
func (s *SolutionService) StartReview(ctx context.Context, who *model.Identity, id string) (*model.Solution, error) {
	sol, err := s.solutionRepo.FindSolutionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.guard.AuthorizeSolution(who, moderation.OpStartSolutionReview, sol)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reviewer := who.ID
	updated := sol.Clone()
	updated.Status = next
	updated.ReviewedByID = &reviewer
	updated.ReviewedAt = &now
	updated.UpdatedAt = now
	return s.save(ctx, updated, sol.Status, common.ErrInvalidTransition)
}

func (s *SolutionService) Review(ctx context.Context, who *model.Identity, id string, req ReviewRequest) (*model.Solution, error) {
	if err := s.guard.Permit(who, moderation.OpReviewSolution, ""); err != nil {
		return nil, err
	}
	review, err := moderation.ParseReview(req.Decision, req.RejectionReason)
	if err != nil {
		return nil, err
	}

	sol, err := s.solutionRepo.FindSolutionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.guard.AuthorizeSolution(who, review.SolutionOperation(), sol)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reviewer := who.ID
	updated := sol.Clone()
	updated.Status = next
	updated.ReviewedByID = &reviewer
	updated.ReviewedAt = &now
	updated.UpdatedAt = now
	if review.Decision == moderation.DecisionApprove {
		updated.RejectionReason = nil
	} else {
		updated.RejectionReason = &review.Reason
	}

	saved, err := s.save(ctx, updated, sol.Status, common.ErrNotReviewable)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "solution reviewed", zap.String("solution_id", saved.ID), zap.String("decision", string(review.Decision)))
	return saved, nil
}

// Update edits a solution that has not entered review.
func (s *SolutionService) Update(ctx context.Context, who *model.Identity, id string, req UpdateSolutionRequest) (*model.Solution, error) {
	sol, err := s.solutionRepo.FindSolutionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.guard.AuthorizeSolution(who, moderation.OpUpdateSolution, sol)
	if err != nil {
		return nil, err
	}

	updated := sol.Clone()
	updated.Status = next
	if req.RepositoryURL != nil {
		if updated.RepositoryURL, err = parseLink("repository url", *req.RepositoryURL); err != nil {
			return nil, err
		}
	}
	if req.LiveDemoURL != nil {
		if updated.LiveDemoURL, err = parseOptionalLink(req.LiveDemoURL); err != nil {
			return nil, err
		}
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, fmt.Errorf("content cannot be empty: %w", common.ErrValidation)
		}
		updated.Content = *req.Content
	}
	if req.TechStack != nil {
		updated.TechStack = normalizeTags(*req.TechStack)
	}
	updated.UpdatedAt = s.now()

	saved, err := s.save(ctx, updated, sol.Status, common.ErrLockedForReview)
	if err != nil {
		return nil, err
	}
	// Visibility has its own write path so a review never overwrites it.
	if req.IsPublic != nil && *req.IsPublic != saved.IsPublic {
		return s.solutionRepo.SetVisibility(ctx, saved.ID, *req.IsPublic)
	}
	return saved, nil
}

// Delete removes the solution and its upvotes permanently.
func (s *SolutionService) Delete(ctx context.Context, who *model.Identity, id string) error {
	sol, err := s.solutionRepo.FindSolutionByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.guard.AuthorizeSolution(who, moderation.OpDeleteSolution, sol); err != nil {
		return err
	}
	if err := s.solutionRepo.DeleteSolution(ctx, sol.ID); err != nil {
		return err
	}
	logger.Info(ctx, "solution deleted", zap.String("solution_id", sol.ID))
	return nil
}

func (s *SolutionService) ToggleVisibility(ctx context.Context, who *model.Identity, id string) (*model.Solution, error) {
	sol, err := s.solutionRepo.FindSolutionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.AuthorizeSolution(who, moderation.OpToggleVisibility, sol); err != nil {
		return nil, err
	}
	return s.solutionRepo.ToggleVisibility(ctx, sol.ID)
}

// ToggleUpvote adds the requester to the upvoter set, or removes them if present.
// Solutions the requester cannot see are reported as not found.
func (s *SolutionService) ToggleUpvote(ctx context.Context, who *model.Identity, id string) (*model.UpvoteResult, error) {
	sol, err := s.solutionRepo.FindSolutionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.AuthorizeSolution(who, moderation.OpToggleUpvote, sol); err != nil {
		return nil, err
	}
	if !moderation.CanViewSolution(who, sol) {
		return nil, common.ErrNotFound
	}
	result, err := s.solutionRepo.ToggleUpvote(ctx, sol.ID, who.ID)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "upvote toggled",
		zap.String("solution_id", sol.ID), zap.Bool("upvoted", result.Upvoted), zap.Int("count", result.UpvoteCount))
	return result, nil
}

// Get returns a single solution if it is public or the requester owns or reviews it.
func (s *SolutionService) Get(ctx context.Context, who *model.Identity, id string) (*model.SolutionView, error) {
	viewerID := ""
	if who != nil {
		viewerID = who.ID
	}
	view, err := s.solutionRepo.FindSolutionView(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if !moderation.CanViewSolution(who, &view.Solution) {
		return nil, fmt.Errorf("solution is private: %w", common.ErrForbidden)
	}
	return view, nil
}

// ListByProblem is the community listing: public APPROVED solutions, most upvoted first.
func (s *SolutionService) ListByProblem(ctx context.Context, who *model.Identity, problemID string, pr PageRequest) (*Page[model.SolutionView], error) {
	filter, err := moderation.SolutionVisibility(who, moderation.ScopePublic, problemID, nil)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, who, filter, pr)
}

// ListByUser is a profile listing: the user's public solutions in any review state.
func (s *SolutionService) ListByUser(ctx context.Context, who *model.Identity, userID string, statuses []model.SolutionStatus, pr PageRequest) (*Page[model.SolutionView], error) {
	filter, err := moderation.SolutionVisibility(who, moderation.ScopeProfile, userID, statuses)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, who, filter, pr)
}

func (s *SolutionService) ListMine(ctx context.Context, who *model.Identity, statuses []model.SolutionStatus, pr PageRequest) (*Page[model.SolutionView], error) {
	filter, err := moderation.SolutionVisibility(who, moderation.ScopeOwn, "", statuses)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, who, filter, pr)
}

func (s *SolutionService) AdminList(ctx context.Context, who *model.Identity, statuses []model.SolutionStatus, pr PageRequest) (*Page[model.SolutionView], error) {
	filter, err := moderation.SolutionVisibility(who, moderation.ScopeAdmin, "", statuses)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, who, filter, pr)
}

func (s *SolutionService) AdminGet(ctx context.Context, who *model.Identity, id string) (*model.Solution, error) {
	if err := s.guard.Permit(who, moderation.OpViewAdminQueue, ""); err != nil {
		return nil, err
	}
	return s.solutionRepo.FindSolutionByID(ctx, id)
}

func (s *SolutionService) list(ctx context.Context, who *model.Identity, filter model.SolutionFilter, pr PageRequest) (*Page[model.SolutionView], error) {
	page := pr.normalize()
	filter.Limit, filter.Offset = page.limitOffset()
	viewerID := ""
	if who != nil {
		viewerID = who.ID
	}
	views, total, err := s.solutionRepo.ListSolutions(ctx, filter, viewerID)
	if err != nil {
		return nil, err
	}
	return &Page[model.SolutionView]{Items: views, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// save performs the conditional write, reporting a stale snapshot as stateErr
// or NotFound when the solution was deleted in between.
func (s *SolutionService) save(ctx context.Context, next *model.Solution, expected model.SolutionStatus, stateErr error) (*model.Solution, error) {
	saved, err := s.solutionRepo.SaveSolution(ctx, next, expected)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, repository.ErrStaleWrite) {
		return nil, err
	}
	if _, ferr := s.solutionRepo.FindSolutionByID(ctx, next.ID); errors.Is(ferr, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	logger.Warn(ctx, "solution changed concurrently", zap.String("solution_id", next.ID), zap.String("expected", string(expected)))
	return nil, fmt.Errorf("solution is no longer %s: %w", expected, stateErr)
}

func parseLink(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%s must be an http(s) URL: %w", field, common.ErrValidation)
	}
	return raw, nil
}

// parseOptionalLink treats a blank value as "no link".
func parseOptionalLink(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	link, err := parseLink("live demo url", *raw)
	if err != nil {
		return nil, err
	}
	return &link, nil
}
