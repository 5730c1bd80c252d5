package service

import (
	"context"
	"fmt"

	"designhub/internal/common"
	"designhub/internal/domain/model"
	"designhub/internal/domain/moderation"
	"designhub/internal/domain/repository"
)

// UserService serves account profiles and their activity counts.
type UserService struct {
	userRepo     repository.UserRepository
	problemRepo  repository.ProblemRepository
	solutionRepo repository.SolutionRepository
}

func NewUserService(
	userRepo repository.UserRepository,
	problemRepo repository.ProblemRepository,
	solutionRepo repository.SolutionRepository,
) *UserService {
	return &UserService{userRepo: userRepo, problemRepo: problemRepo, solutionRepo: solutionRepo}
}

func (s *UserService) Me(ctx context.Context, who *model.Identity) (*model.User, error) {
	if who == nil {
		return nil, fmt.Errorf("profile: %w", common.ErrUnauthorized)
	}
	return s.userRepo.FindByID(ctx, who.ID)
}

func (s *UserService) Profile(ctx context.Context, userID string) (*model.PublicProfile, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.PublicProfile(), nil
}

func (s *UserService) MyStats(ctx context.Context, who *model.Identity) (*model.UserStats, error) {
	if who == nil {
		return nil, fmt.Errorf("profile stats: %w", common.ErrUnauthorized)
	}
	return s.Stats(ctx, who, who.ID)
}

// Stats counts live problems of any status, and solutions through the same
// predicates as the listings: all of them for the owner, public ones for anyone else.
func (s *UserService) Stats(ctx context.Context, who *model.Identity, userID string) (*model.UserStats, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	problemFilter := model.ProblemFilter{OwnerID: u.ID}
	solutionFilter, err := moderation.SolutionVisibility(who, moderation.ScopeProfile, u.ID, nil)
	if who.Owns(u.ID) {
		if problemFilter, err = moderation.ProblemVisibility(who, moderation.ScopeOwn, nil); err != nil {
			return nil, err
		}
		solutionFilter, err = moderation.SolutionVisibility(who, moderation.ScopeOwn, "", nil)
	}
	if err != nil {
		return nil, err
	}

	problems, err := s.problemRepo.CountProblems(ctx, problemFilter)
	if err != nil {
		return nil, err
	}
	solutions, err := s.solutionRepo.CountSolutions(ctx, solutionFilter)
	if err != nil {
		return nil, err
	}
	return &model.UserStats{UserID: u.ID, ProblemsCreatedCount: problems, SolutionsSubmittedCount: solutions}, nil
}
