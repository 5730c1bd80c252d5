package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"designhub/internal/domain/model"
	"designhub/internal/platform/database"

	"github.com/google/uuid"
)

// openTestDB connects to the database named by DATABASE_URL and applies the schema.
// Tests that need it are skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type pgFixture struct {
	db        *sql.DB
	users     UserRepository
	problems  ProblemRepository
	solutions SolutionRepository
	userIDs   []string
}

func newPgFixture(t *testing.T) *pgFixture {
	db := openTestDB(t)
	f := &pgFixture{
		db:        db,
		users:     NewPgUserRepository(db),
		problems:  NewPgProblemRepository(db),
		solutions: NewPgSolutionRepository(db),
	}
	t.Cleanup(func() {
		ctx := context.Background()
		for _, stmt := range []string{
			`DELETE FROM solution_upvotes WHERE user_id = ANY($1)`,
			`DELETE FROM solutions WHERE user_id = ANY($1)`,
			`DELETE FROM saved_problems WHERE user_id = ANY($1)`,
			`DELETE FROM problems WHERE created_by = ANY($1)`,
			`DELETE FROM users WHERE id = ANY($1)`,
		} {
			if _, err := db.ExecContext(ctx, stmt, f.userIDs); err != nil {
				t.Logf("cleanup %q: %v", stmt, err)
			}
		}
	})
	return f
}

func (f *pgFixture) user(t *testing.T, name string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	u := &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		HashedPassword: "x",
		Role:           model.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	u.Email = u.ID + "@example.com"
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	f.userIDs = append(f.userIDs, u.ID)
	return u
}

func (f *pgFixture) problem(t *testing.T, owner *model.User, status model.ProblemStatus) *model.Problem {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.NewString()
	p := &model.Problem{
		ID:          id,
		Title:       "Rate Limiter " + id[:8],
		Slug:        "rate-limiter-" + id,
		Category:    "BACKEND",
		ProblemType: "SYSTEM_DESIGN",
		Difficulty:  model.DifficultyMedium,
		Tags:        []string{"redis"},
		Status:      status,
		CreatedByID: owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.problems.CreateProblem(context.Background(), p); err != nil {
		t.Fatalf("create problem: %v", err)
	}
	return p
}

func (f *pgFixture) solution(t *testing.T, author *model.User, p *model.Problem) *model.Solution {
	t.Helper()
	now := time.Now().UTC()
	s := &model.Solution{
		ID:            uuid.NewString(),
		UserID:        author.ID,
		ProblemID:     p.ID,
		RepositoryURL: "https://github.com/example/limiter",
		Status:        model.SolutionStatusSubmitted,
		IsPublic:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.solutions.CreateSolution(context.Background(), s); err != nil {
		t.Fatalf("create solution: %v", err)
	}
	return s
}

func TestPgSaveProblemRejectsStaleWrites(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Owner")
	p := f.problem(t, owner, model.ProblemStatusDraft)

	next := p.Clone()
	next.Status = model.ProblemStatusPendingReview
	saved, err := f.problems.SaveProblem(ctx, next, model.ProblemStatusDraft)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if saved.Status != model.ProblemStatusPendingReview {
		t.Fatalf("status = %s", saved.Status)
	}

	// Same transition again: the stored row is no longer DRAFT.
	if _, err := f.problems.SaveProblem(ctx, next, model.ProblemStatusDraft); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite for wrong status, got %v", err)
	}

	deleted := saved.Clone()
	now := time.Now().UTC()
	deleted.DeletedAt = &now
	if _, err := f.problems.SaveProblem(ctx, deleted, model.ProblemStatusPendingReview); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	edit := saved.Clone()
	edit.Title = "Edited"
	if _, err := f.problems.SaveProblem(ctx, edit, model.ProblemStatusPendingReview); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite for deleted row, got %v", err)
	}

	stored, err := f.problems.FindProblemByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Title == "Edited" || !stored.IsDeleted() {
		t.Fatalf("stale write leaked into the row: %+v", stored)
	}
}

func TestPgToggleUpvoteCountMatchesVoterSet(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Owner")
	author := f.user(t, "Author")
	p := f.problem(t, owner, model.ProblemStatusPublished)
	sol := f.solution(t, author, p)

	const voters = 8
	users := make([]*model.User, voters)
	for i := range users {
		users[i] = f.user(t, "Voter")
	}

	// Odd-indexed voters toggle twice and end up not voting.
	var wg sync.WaitGroup
	errs := make(chan error, voters*2)
	for i, u := range users {
		toggles := 1
		if i%2 == 1 {
			toggles = 2
		}
		wg.Add(1)
		go func(userID string, toggles int) {
			defer wg.Done()
			for n := 0; n < toggles; n++ {
				if _, err := f.solutions.ToggleUpvote(ctx, sol.ID, userID); err != nil {
					errs <- err
				}
			}
		}(u.ID, toggles)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("toggle: %v", err)
	}

	var set int
	for _, u := range users {
		ok, err := f.solutions.HasUpvoted(ctx, sol.ID, u.ID)
		if err != nil {
			t.Fatalf("has upvoted: %v", err)
		}
		if ok {
			set++
		}
	}
	if set != voters/2 {
		t.Fatalf("voter set = %d, want %d", set, voters/2)
	}

	stored, err := f.solutions.FindSolutionByID(ctx, sol.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.UpvoteCount != set {
		t.Fatalf("upvote_count = %d, voter set = %d", stored.UpvoteCount, set)
	}
}

func TestPgSolutionViewsAndCounts(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Owner")
	author := f.user(t, "Sol Ver")
	p := f.problem(t, owner, model.ProblemStatusPublished)
	sol := f.solution(t, author, p)

	if _, err := f.solutions.ToggleUpvote(ctx, sol.ID, owner.ID); err != nil {
		t.Fatalf("upvote: %v", err)
	}

	view, err := f.solutions.FindSolutionView(ctx, sol.ID, owner.ID)
	if err != nil {
		t.Fatalf("find view: %v", err)
	}
	if !view.HasLiked || view.AuthorName != "Sol Ver" || view.ProblemTitle != p.Title || view.ProblemSlug != p.Slug {
		t.Fatalf("unexpected view %+v", view)
	}

	anon, err := f.solutions.FindSolutionView(ctx, sol.ID, "")
	if err != nil {
		t.Fatalf("find anonymous view: %v", err)
	}
	if anon.HasLiked {
		t.Fatal("anonymous viewer should never have liked")
	}

	filter := model.SolutionFilter{UserID: author.ID, PublicOnly: true}
	if n, err := f.solutions.CountSolutions(ctx, filter); err != nil || n != 1 {
		t.Fatalf("public count = %d, %v", n, err)
	}
	if _, err := f.solutions.SetVisibility(ctx, sol.ID, false); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if n, err := f.solutions.CountSolutions(ctx, filter); err != nil || n != 0 {
		t.Fatalf("public count after hiding = %d, %v", n, err)
	}

	views, total, err := f.solutions.ListSolutions(ctx, model.SolutionFilter{ProblemID: p.ID, Limit: 10}, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(views) != 1 || !views[0].HasLiked || views[0].AuthorName != "Sol Ver" {
		t.Fatalf("unexpected listing total=%d %+v", total, views)
	}

	if n, err := f.problems.CountProblems(ctx, model.ProblemFilter{OwnerID: owner.ID}); err != nil || n != 1 {
		t.Fatalf("problem count = %d, %v", n, err)
	}
}
