package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"designhub/internal/common"
	"designhub/internal/common/security"
	"designhub/internal/domain/model"
	"designhub/internal/domain/moderation"
	"designhub/internal/domain/repository"
	"designhub/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 8

type AuthService struct {
	userRepo repository.UserRepository
	guard    *moderation.Guard
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, guard *moderation.Guard) *AuthService {
	return &AuthService{userRepo: userRepo, guard: guard, now: time.Now}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Signup registers an unverified USER account and signs it in.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("name, email and password are required: %w", common.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email address: %w", common.ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           model.RoleUser, // Default role
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Repo might return common.ErrConflict
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logger.Info(ctx, "user signed up", zap.String("user_id", user.ID))

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required: %w", common.ErrValidation)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}
	return s.issue(user)
}

// VerifyAccount marks a user verified. The flag reaches their token at next login.
func (s *AuthService) VerifyAccount(ctx context.Context, who *model.Identity, userID string) (*model.User, error) {
	if err := s.guard.Permit(who, moderation.OpVerifyAccount, ""); err != nil {
		return nil, err
	}
	user, err := s.userRepo.SetVerified(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "account verified", zap.String("user_id", user.ID))
	return user, nil
}

// EnsureAdmin creates a verified ADMIN account for email unless the email is taken.
// It runs at startup so a fresh deployment has someone who can review.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("admin password must be at least %d characters: %w", minPasswordLength, common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	now := s.now()
	admin := &model.User{
		ID:                uuid.NewString(),
		Name:              name,
		Email:             email,
		HashedPassword:    hashedPassword,
		Role:              model.RoleAdmin,
		IsAccountVerified: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil && !errors.Is(err, common.ErrConflict) {
		return err
	}
	logger.Info(ctx, "bootstrap admin ensured", zap.String("email", email))
	return nil
}

func (s *AuthService) issue(user *model.User) (*AuthResponse, error) {
	token, err := security.GenerateToken(user.ID, user.Role, user.IsAccountVerified)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = "" // Clear password before returning
	return &AuthResponse{User: user, Token: token}, nil
}
