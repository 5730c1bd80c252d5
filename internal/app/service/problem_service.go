package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"designhub/internal/common"
	"designhub/internal/domain/model"
	"designhub/internal/domain/moderation"
	"designhub/internal/domain/repository"
	"designhub/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug" // For slug generation
	"go.uber.org/zap"
)

// slugAttempts bounds the create retries when another writer takes the same slug first.
const slugAttempts = 5

type ProblemService struct {
	problemRepo repository.ProblemRepository
	savedRepo   repository.SavedProblemRepository
	metadata    *MetadataService
	guard       *moderation.Guard
	now         func() time.Time
}

func NewProblemService(
	problemRepo repository.ProblemRepository,
	savedRepo repository.SavedProblemRepository,
	metadata *MetadataService,
	guard *moderation.Guard,
) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		savedRepo:   savedRepo,
		metadata:    metadata,
		guard:       guard,
		now:         time.Now,
	}
}

type CreateProblemRequest struct {
	Title       string                  `json:"title"`
	Summary     string                  `json:"summary"`
	Content     string                  `json:"content"` // Markdown
	Category    string                  `json:"category"`
	ProblemType string                  `json:"problem_type"`
	Difficulty  model.ProblemDifficulty `json:"difficulty"`
	Tags        []string                `json:"tags"`
	Status      model.ProblemStatus     `json:"status"` // DRAFT (default) or PENDING_REVIEW
}

type UpdateProblemRequest struct {
	Title       *string                  `json:"title,omitempty"`
	Summary     *string                  `json:"summary,omitempty"`
	Content     *string                  `json:"content,omitempty"`
	Category    *string                  `json:"category,omitempty"`
	ProblemType *string                  `json:"problem_type,omitempty"`
	Difficulty  *model.ProblemDifficulty `json:"difficulty,omitempty"`
	Tags        *[]string                `json:"tags,omitempty"`
	Status      *model.ProblemStatus     `json:"status,omitempty"` // PENDING_REVIEW resubmits
}

type ReviewRequest struct {
	Decision        string `json:"decision"`
	RejectionReason string `json:"rejection_reason"`
}

// ProblemQuery holds the public feed filters.
type ProblemQuery struct {
	Search      string
	Category    string
	ProblemType string
	Difficulty  string
	Tags        []string
	SavedOnly   bool
	PageRequest
}

func (s *ProblemService) CreateProblem(ctx context.Context, who *model.Identity, req CreateProblemRequest) (*model.Problem, error) {
	if err := s.guard.Permit(who, moderation.OpCreateProblem, ""); err != nil {
		return nil, err
	}

	// Validate request
	title := strings.TrimSpace(req.Title)
	summary := strings.TrimSpace(req.Summary)
	if title == "" || summary == "" || strings.TrimSpace(req.Content) == "" ||
		strings.TrimSpace(req.Category) == "" || strings.TrimSpace(req.ProblemType) == "" {
		return nil, fmt.Errorf("title, summary, content, category and problem type are required: %w", common.ErrValidation)
	}

	status := req.Status
	if status == "" {
		status = model.ProblemStatusDraft
	}
	if status != model.ProblemStatusDraft && status != model.ProblemStatusPendingReview {
		return nil, fmt.Errorf("initial status must be DRAFT or PENDING_REVIEW: %w", common.ErrValidation)
	}

	difficulty, err := parseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}

	category, problemType, err := s.metadata.Validate(ctx, req.Category, req.ProblemType)
	if err != nil {
		return nil, err
	}

	now := s.now()
	problem := &model.Problem{
		ID:          uuid.NewString(),
		Title:       title,
		Summary:     summary,
		Content:     req.Content,
		Category:    category,
		ProblemType: problemType,
		Difficulty:  difficulty,
		Tags:        normalizeTags(req.Tags),
		Status:      status,
		CreatedByID: who.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for attempt := 0; ; attempt++ {
		problem.Slug, err = s.uniqueSlug(ctx, title, "")
		if err != nil {
			return nil, err
		}
		err = s.problemRepo.CreateProblem(ctx, problem)
		if err == nil {
			break
		}
		if !errors.Is(err, common.ErrConflict) || attempt+1 >= slugAttempts {
			return nil, err
		}
	}

	logger.Info(ctx, "problem created",
		zap.String("problem_id", problem.ID), zap.String("slug", problem.Slug), zap.String("status", string(problem.Status)))
	return problem, nil
}

// SubmitForReview moves a draft into the review queue.
func (s *ProblemService) SubmitForReview(ctx context.Context, who *model.Identity, id string) (*model.Problem, error) {
	p, err := s.findLive(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.guard.AuthorizeProblem(who, moderation.OpSubmitProblem, p)
	if err != nil {
		return nil, err
	}

	updated := p.Clone()
	updated.Status = next
	updated.UpdatedAt = s.now()
	return s.save(ctx, updated, p.Status, common.ErrInvalidTransition)
}

// Review applies an admin decision to a pending problem and stamps the reviewer.
func (s *ProblemService) Review(ctx context.Context, who *model.Identity, id string, req ReviewRequest) (*model.Problem, error) {
	if err := s.guard.Permit(who, moderation.OpReviewProblem, ""); err != nil {
		return nil, err
	}
	review, err := moderation.ParseReview(req.Decision, req.RejectionReason)
	if err != nil {
		return nil, err
	}

	p, err := s.findLive(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.guard.AuthorizeProblem(who, review.ProblemOperation(), p)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reviewer := who.ID
	updated := p.Clone()
	updated.Status = next
	updated.ReviewedByID = &reviewer
	updated.ReviewedAt = &now
	updated.UpdatedAt = now
	if review.Decision == moderation.DecisionApprove {
		updated.RejectionReason = nil
	} else {
		updated.RejectionReason = &review.Reason
	}

	saved, err := s.save(ctx, updated, p.Status, common.ErrInvalidTransition)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "problem reviewed",
		zap.String("problem_id", saved.ID), zap.String("decision", string(review.Decision)))
	return saved, nil
}

func (s *ProblemService) Publish(ctx context.Context, who *model.Identity, id string) (*model.Problem, error) {
	p, err := s.findLive(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.guard.AuthorizeProblem(who, moderation.OpPublishProblem, p)
	if err != nil {
		return nil, err
	}

	updated := p.Clone()
	updated.Status = next
	updated.UpdatedAt = s.now()
	saved, err := s.save(ctx, updated, p.Status, common.ErrInvalidTransition)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "problem published", zap.String("problem_id", saved.ID), zap.String("slug", saved.Slug))
	return saved, nil
}

// UpdateProblem edits a DRAFT or REJECTED problem. Setting status to PENDING_REVIEW
// resubmits it in the same write; the previous rejection reason stays until the next decision.
func (s *ProblemService) UpdateProblem(ctx context.Context, who *model.Identity, id string, req UpdateProblemRequest) (*model.Problem, error) {
	p, err := s.findLive(ctx, id)
	if err != nil {
		return nil, err
	}

	op := moderation.OpUpdateProblem
	if req.Status != nil {
		switch model.ProblemStatus(strings.ToUpper(string(*req.Status))) {
		case model.ProblemStatusPendingReview:
			op = moderation.OpResubmitProblem
		case p.Status:
		default:
			return nil, fmt.Errorf("status can only be changed to PENDING_REVIEW: %w", common.ErrValidation)
		}
	}
	next, err := s.guard.AuthorizeProblem(who, op, p)
	if err != nil {
		return nil, err
	}

	updated := p.Clone()
	updated.Status = next

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("title cannot be empty: %w", common.ErrValidation)
		}
		if title != p.Title {
			updated.Title = title
			if updated.Slug, err = s.uniqueSlug(ctx, title, p.Slug); err != nil {
				return nil, err
			}
		}
	}
	if req.Summary != nil {
		if strings.TrimSpace(*req.Summary) == "" {
			return nil, fmt.Errorf("summary cannot be empty: %w", common.ErrValidation)
		}
		updated.Summary = strings.TrimSpace(*req.Summary)
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, fmt.Errorf("content cannot be empty: %w", common.ErrValidation)
		}
		updated.Content = *req.Content
	}
	if req.Category != nil {
		if updated.Category, err = s.metadata.ValidateKey(ctx, model.MetadataTypeCategory, *req.Category); err != nil {
			return nil, err
		}
	}
	if req.ProblemType != nil {
		if updated.ProblemType, err = s.metadata.ValidateKey(ctx, model.MetadataTypeProblemType, *req.ProblemType); err != nil {
			return nil, err
		}
	}
	if req.Difficulty != nil {
		if updated.Difficulty, err = parseDifficulty(*req.Difficulty); err != nil {
			return nil, err
		}
	}
	if req.Tags != nil {
		updated.Tags = normalizeTags(*req.Tags)
	}
	updated.UpdatedAt = s.now()

	saved, err := s.save(ctx, updated, p.Status, common.ErrInvalidState)
	if err != nil {
		return nil, err
	}
	if op == moderation.OpResubmitProblem {
		logger.Info(ctx, "problem resubmitted", zap.String("problem_id", saved.ID))
	}
	return saved, nil
}

// DeleteProblem soft-deletes: the marker is set and the status returns to DRAFT.
// Delete is allowed from every status, so when a concurrent transition moves the
// problem between the read and the write the delete is re-read and retried once.
func (s *ProblemService) DeleteProblem(ctx context.Context, who *model.Identity, id string) error {
	for attempt := 1; ; attempt++ {
		p, err := s.findLive(ctx, id)
		if err != nil {
			return err
		}
		next, err := s.guard.AuthorizeProblem(who, moderation.OpDeleteProblem, p)
		if err != nil {
			return err
		}

		now := s.now()
		updated := p.Clone()
		updated.Status = next
		updated.DeletedAt = &now
		updated.UpdatedAt = now

		if attempt == 1 {
			_, err = s.problemRepo.SaveProblem(ctx, updated, p.Status)
			if errors.Is(err, repository.ErrStaleWrite) {
				logger.Debug(ctx, "problem moved during delete, retrying", zap.String("problem_id", p.ID))
				continue
			}
		} else {
			_, err = s.save(ctx, updated, p.Status, common.ErrConflict)
		}
		if err != nil {
			return err
		}
		logger.Info(ctx, "problem deleted", zap.String("problem_id", p.ID))
		return nil
	}
}

// GetPublishedBySlug is the public lookup: only live PUBLISHED problems resolve.
func (s *ProblemService) GetPublishedBySlug(ctx context.Context, who *model.Identity, slugValue string) (*model.ProblemListItem, error) {
	p, err := s.problemRepo.FindProblemBySlug(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	if !p.IsPubliclyVisible() {
		return nil, common.ErrNotFound
	}
	items, err := s.annotateSaved(ctx, who, []model.Problem{*p})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// GetOwnProblem is the author preview of a live problem in any status.
func (s *ProblemService) GetOwnProblem(ctx context.Context, who *model.Identity, id string) (*model.Problem, error) {
	p, err := s.findLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Permit(who, moderation.OpViewProblemAsOwner, p.CreatedByID); err != nil {
		return nil, err
	}
	return p, nil
}

// AdminGetProblem returns any problem, soft-deleted ones included.
func (s *ProblemService) AdminGetProblem(ctx context.Context, who *model.Identity, id string) (*model.Problem, error) {
	if err := s.guard.Permit(who, moderation.OpViewAdminQueue, ""); err != nil {
		return nil, err
	}
	return s.problemRepo.FindProblemByID(ctx, id)
}

func (s *ProblemService) ListPublic(ctx context.Context, who *model.Identity, q ProblemQuery) (*Page[model.ProblemListItem], error) {
	filter, err := moderation.ProblemVisibility(who, moderation.ScopePublic, nil)
	if err != nil {
		return nil, err
	}
	filter.Search = strings.TrimSpace(q.Search)
	filter.Category = strings.ToUpper(strings.TrimSpace(q.Category))
	filter.ProblemType = strings.ToUpper(strings.TrimSpace(q.ProblemType))
	if q.Difficulty != "" {
		if filter.Difficulty, err = parseDifficulty(model.ProblemDifficulty(q.Difficulty)); err != nil {
			return nil, err
		}
	}
	filter.Tags = normalizeTags(q.Tags)
	if q.SavedOnly {
		if who == nil {
			return nil, fmt.Errorf("saved filter: %w", common.ErrUnauthorized)
		}
		filter.SavedBy = who.ID
	}

	page := q.PageRequest.normalize()
	filter.Limit, filter.Offset = page.limitOffset()

	problems, total, err := s.problemRepo.ListProblems(ctx, filter)
	if err != nil {
		return nil, err
	}
	items, err := s.annotateSaved(ctx, who, problems)
	if err != nil {
		return nil, err
	}
	return &Page[model.ProblemListItem]{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// ListMine lists the requester's live problems, optionally narrowed by status.
func (s *ProblemService) ListMine(ctx context.Context, who *model.Identity, statuses []model.ProblemStatus, pr PageRequest) (*Page[model.Problem], error) {
	filter, err := moderation.ProblemVisibility(who, moderation.ScopeOwn, statuses)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter, pr)
}

// AdminQueue lists live problems of every owner, optionally narrowed by status.
func (s *ProblemService) AdminQueue(ctx context.Context, who *model.Identity, statuses []model.ProblemStatus, pr PageRequest) (*Page[model.Problem], error) {
	filter, err := moderation.ProblemVisibility(who, moderation.ScopeAdmin, statuses)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter, pr)
}

func (s *ProblemService) list(ctx context.Context, filter model.ProblemFilter, pr PageRequest) (*Page[model.Problem], error) {
	page := pr.normalize()
	filter.Limit, filter.Offset = page.limitOffset()
	problems, total, err := s.problemRepo.ListProblems(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[model.Problem]{Items: problems, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

func (s *ProblemService) annotateSaved(ctx context.Context, who *model.Identity, problems []model.Problem) ([]model.ProblemListItem, error) {
	items := make([]model.ProblemListItem, len(problems))
	for i := range problems {
		items[i].Problem = problems[i]
	}
	if who == nil || len(problems) == 0 {
		return items, nil
	}

	ids := make([]string, len(problems))
	for i := range problems {
		ids[i] = problems[i].ID
	}
	saved, err := s.savedRepo.SavedProblemIDs(ctx, who.ID, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Saved = saved[items[i].ID]
	}
	return items, nil
}

// findLive loads a problem that has not been soft-deleted.
func (s *ProblemService) findLive(ctx context.Context, id string) (*model.Problem, error) {
	p, err := s.problemRepo.FindProblemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, common.ErrNotFound
	}
	return p, nil
}

// save performs the conditional write. A stale snapshot is reported as stateErr,
// or NotFound when the problem was deleted in between.
func (s *ProblemService) save(ctx context.Context, next *model.Problem, expected model.ProblemStatus, stateErr error) (*model.Problem, error) {
	saved, err := s.problemRepo.SaveProblem(ctx, next, expected)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, repository.ErrStaleWrite) {
		return nil, err
	}
	if _, ferr := s.findLive(ctx, next.ID); errors.Is(ferr, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	logger.Warn(ctx, "problem changed concurrently", zap.String("problem_id", next.ID), zap.String("expected", string(expected)))
	return nil, fmt.Errorf("problem is no longer %s: %w", expected, stateErr)
}

// uniqueSlug slugifies title and appends -1, -2, ... until the slug is free.
// current is the problem's own slug, which it may keep.
func (s *ProblemService) uniqueSlug(ctx context.Context, title, current string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		return "", fmt.Errorf("title must contain letters or digits: %w", common.ErrValidation)
	}
	candidate := base
	for n := 1; ; n++ {
		if candidate == current {
			return candidate, nil
		}
		exists, err := s.problemRepo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func parseDifficulty(d model.ProblemDifficulty) (model.ProblemDifficulty, error) {
	if d == "" {
		return model.DifficultyEasy, nil
	}
	d = model.ProblemDifficulty(strings.ToUpper(strings.TrimSpace(string(d))))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q: %w", d, common.ErrValidation)
	}
	return d, nil
}

// normalizeTags trims, drops blanks and duplicates, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
