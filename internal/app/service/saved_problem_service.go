package service

import (
	"context"
	"fmt"
	"time"

	"designhub/internal/common"
	"designhub/internal/domain/model"
	"designhub/internal/domain/moderation"
	"designhub/internal/domain/repository"

	"github.com/google/uuid"
)

type SavedProblemService struct {
	savedRepo   repository.SavedProblemRepository
	problemRepo repository.ProblemRepository
	guard       *moderation.Guard
	now         func() time.Time
}

func NewSavedProblemService(savedRepo repository.SavedProblemRepository, problemRepo repository.ProblemRepository, guard *moderation.Guard) *SavedProblemService {
	return &SavedProblemService{savedRepo: savedRepo, problemRepo: problemRepo, guard: guard, now: time.Now}
}

// ToggleSave saves or unsaves a published problem and reports the resulting state.
func (s *SavedProblemService) ToggleSave(ctx context.Context, who *model.Identity, problemID string) (bool, error) {
	if err := s.guard.Permit(who, moderation.OpSaveProblem, ""); err != nil {
		return false, err
	}
	if err := s.requirePublished(ctx, problemID); err != nil {
		return false, err
	}
	return s.savedRepo.ToggleSave(ctx, &model.SavedProblem{
		ID:        uuid.NewString(),
		UserID:    who.ID,
		ProblemID: problemID,
		SavedAt:   s.now(),
	})
}

func (s *SavedProblemService) IsSaved(ctx context.Context, who *model.Identity, problemID string) (bool, error) {
	if who == nil {
		return false, fmt.Errorf("saved problems: %w", common.ErrUnauthorized)
	}
	if err := s.requirePublished(ctx, problemID); err != nil {
		return false, err
	}
	return s.savedRepo.IsSaved(ctx, who.ID, problemID)
}

// ListSaved returns the requester's saves, newest first. Problems that left the
// public feed since they were saved are skipped.
func (s *SavedProblemService) ListSaved(ctx context.Context, who *model.Identity) ([]model.SavedProblem, error) {
	if who == nil {
		return nil, fmt.Errorf("saved problems: %w", common.ErrUnauthorized)
	}
	saved, err := s.savedRepo.ListSaved(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	out := make([]model.SavedProblem, 0, len(saved))
	for _, sp := range saved {
		if sp.Problem != nil && sp.Problem.IsPubliclyVisible() {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (s *SavedProblemService) requirePublished(ctx context.Context, problemID string) error {
	p, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return err
	}
	if !p.IsPubliclyVisible() {
		return common.ErrNotFound
	}
	return nil
}
