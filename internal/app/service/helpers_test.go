package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"designhub/internal/domain/model"
	"designhub/internal/domain/moderation"
	"designhub/internal/domain/repository"
)

// stepClock advances one second per reading so creation order is strict.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	store     *repository.MemoryStore
	guard     *moderation.Guard
	metadata  *MetadataService
	problems  *ProblemService
	saved     *SavedProblemService
	solutions *SolutionService
	auth      *AuthService
	users     *UserService
}

func newFixture(t *testing.T, policy moderation.Policy) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	guard := moderation.NewGuard(policy)
	clock := newStepClock()

	f := &fixture{store: store, guard: guard}
	f.metadata = NewMetadataService(store.Metadata(), nil, guard)
	f.problems = NewProblemService(store.Problems(), store.SavedProblems(), f.metadata, guard)
	f.saved = NewSavedProblemService(store.SavedProblems(), store.Problems(), guard)
	f.solutions = NewSolutionService(store.Solutions(), store.Problems(), guard)
	f.auth = NewAuthService(store.Users(), guard)
	f.users = NewUserService(store.Users(), store.Problems(), store.Solutions())

	f.metadata.now = clock.Now
	f.problems.now = clock.Now
	f.saved.now = clock.Now
	f.solutions.now = clock.Now
	f.auth.now = clock.Now

	if err := f.metadata.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed metadata failed: %v", err)
	}
	return f
}

func member(id string) *model.Identity {
	return &model.Identity{ID: id, Role: model.RoleUser, IsVerified: true}
}

var (
	author   = member("author-1")
	reviewer = &model.Identity{ID: "admin-1", Role: model.RoleAdmin, IsVerified: true}
)

func (f *fixture) draft(t *testing.T, who *model.Identity, title string) *model.Problem {
	t.Helper()
	p, err := f.problems.CreateProblem(context.Background(), who, CreateProblemRequest{
		Title:       title,
		Summary:     "Design it well",
		Content:     "## Requirements\n- low latency",
		Category:    "systems",
		ProblemType: "project",
		Difficulty:  model.DifficultyMedium,
		Tags:        []string{"caching", "distributed"},
	})
	if err != nil {
		t.Fatalf("create problem failed: %v", err)
	}
	return p
}

func (f *fixture) published(t *testing.T, who *model.Identity, title string) *model.Problem {
	t.Helper()
	ctx := context.Background()
	p := f.draft(t, who, title)
	if _, err := f.problems.SubmitForReview(ctx, who, p.ID); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := f.problems.Review(ctx, reviewer, p.ID, ReviewRequest{Decision: "APPROVE"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	p, err := f.problems.Publish(ctx, reviewer, p.ID)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	return p
}

func (f *fixture) submit(t *testing.T, who *model.Identity, problemID string) *model.Solution {
	t.Helper()
	sol, err := f.solutions.Submit(context.Background(), who, SubmitSolutionRequest{
		ProblemID:     problemID,
		RepositoryURL: "https://github.com/" + who.ID + "/solution",
		Content:       "LRU with write-through",
		TechStack:     []string{"go", "redis"},
	})
	if err != nil {
		t.Fatalf("submit solution failed: %v", err)
	}
	return sol
}

// account stores a verified user under the given id so profile lookups resolve.
func (f *fixture) account(t *testing.T, who *model.Identity, name string) {
	t.Helper()
	err := f.store.Users().Create(context.Background(), &model.User{
		ID:                who.ID,
		Name:              name,
		Email:             who.ID + "@example.com",
		HashedPassword:    "x",
		Role:              who.Role,
		IsAccountVerified: who.IsVerified,
	})
	if err != nil {
		t.Fatalf("create account failed: %v", err)
	}
}

// interleavedProblems runs before once, right ahead of the first conditional
// write, so another request lands between a service's read and its write.
type interleavedProblems struct {
	repository.ProblemRepository
	once   sync.Once
	before func()
}

func (r *interleavedProblems) SaveProblem(ctx context.Context, next *model.Problem, expected model.ProblemStatus) (*model.Problem, error) {
	r.once.Do(r.before)
	return r.ProblemRepository.SaveProblem(ctx, next, expected)
}

type interleavedSolutions struct {
	repository.SolutionRepository
	once   sync.Once
	before func()
}

func (r *interleavedSolutions) SaveSolution(ctx context.Context, next *model.Solution, expected model.SolutionStatus) (*model.Solution, error) {
	r.once.Do(r.before)
	return r.SolutionRepository.SaveSolution(ctx, next, expected)
}

// problemsInterleaved is a problem service over the fixture store whose first write is preceded by before.
func (f *fixture) problemsInterleaved(before func()) *ProblemService {
	repo := &interleavedProblems{ProblemRepository: f.store.Problems(), before: before}
	svc := NewProblemService(repo, f.store.SavedProblems(), f.metadata, f.guard)
	svc.now = f.problems.now
	return svc
}

func (f *fixture) solutionsInterleaved(before func()) *SolutionService {
	repo := &interleavedSolutions{SolutionRepository: f.store.Solutions(), before: before}
	svc := NewSolutionService(repo, f.store.Problems(), f.guard)
	svc.now = f.solutions.now
	return svc
}
