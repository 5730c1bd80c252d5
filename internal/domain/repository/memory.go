package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"designhub/internal/common"
	"designhub/internal/domain/model"
)

// MemoryStore keeps every aggregate in process behind one lock. It backs the
// memory storage driver and the service tests, and mirrors the Postgres
// constraints: unique slugs, one solution per user and problem, unique
// metadata keys per type, and set semantics for upvotes and saves.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*model.User
	problems  map[string]*model.Problem
	solutions map[string]*model.Solution
	upvotes   map[string]map[string]struct{} // solution id -> user ids
	saved     map[string]*model.SavedProblem // savedKey(user, problem)
	metadata  map[string]*model.Metadata
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*model.User),
		problems:  make(map[string]*model.Problem),
		solutions: make(map[string]*model.Solution),
		upvotes:   make(map[string]map[string]struct{}),
		saved:     make(map[string]*model.SavedProblem),
		metadata:  make(map[string]*model.Metadata),
	}
}

func (m *MemoryStore) Users() UserRepository                 { return &memUserRepository{m} }
func (m *MemoryStore) Problems() ProblemRepository           { return &memProblemRepository{m} }
func (m *MemoryStore) Solutions() SolutionRepository         { return &memSolutionRepository{m} }
func (m *MemoryStore) Metadata() MetadataRepository          { return &memMetadataRepository{m} }
func (m *MemoryStore) SavedProblems() SavedProblemRepository { return &memSavedProblemRepository{m} }

func savedKey(userID, problemID string) string {
	return model.NormalizeID(userID) + "|" + model.NormalizeID(problemID)
}

func paginate(n, limit, offset int) (int, int) {
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}

// users

type memUserRepository struct{ s *MemoryStore }

func (r *memUserRepository) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
	}
	c := *user
	r.s.users[model.NormalizeID(user.ID)] = &c
	return nil
}

func (r *memUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[model.NormalizeID(id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUserRepository) SetVerified(_ context.Context, id string, verified bool) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[model.NormalizeID(id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	u.IsAccountVerified = verified
	u.UpdatedAt = time.Now()
	c := *u
	return &c, nil
}

// problems

type memProblemRepository struct{ s *MemoryStore }

func (r *memProblemRepository) CreateProblem(_ context.Context, p *model.Problem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.slugTaken(p.Slug, "") {
		return fmt.Errorf("problem with slug %q already exists: %w", p.Slug, common.ErrConflict)
	}
	r.s.problems[model.NormalizeID(p.ID)] = p.Clone()
	return nil
}

func (r *memProblemRepository) slugTaken(slug, exceptID string) bool {
	for id, p := range r.s.problems {
		if p.Slug == slug && id != model.NormalizeID(exceptID) {
			return true
		}
	}
	return false
}

func (r *memProblemRepository) SaveProblem(_ context.Context, next *model.Problem, expected model.ProblemStatus) (*model.Problem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.problems[model.NormalizeID(next.ID)]
	if !ok || cur.IsDeleted() || cur.Status != expected {
		return nil, ErrStaleWrite
	}
	if r.slugTaken(next.Slug, next.ID) {
		return nil, fmt.Errorf("problem with slug %q already exists: %w", next.Slug, common.ErrConflict)
	}
	stored := next.Clone()
	stored.CreatedAt = cur.CreatedAt
	stored.CreatedByID = cur.CreatedByID
	r.s.problems[model.NormalizeID(next.ID)] = stored
	return stored.Clone(), nil
}

func (r *memProblemRepository) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.problems[model.NormalizeID(id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *memProblemRepository) FindProblemBySlug(_ context.Context, slug string) (*model.Problem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.problems {
		if p.Slug == slug {
			return p.Clone(), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memProblemRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.slugTaken(slug, ""), nil
}

func (r *memProblemRepository) ListProblems(_ context.Context, f model.ProblemFilter) ([]model.Problem, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []model.Problem{}
	for _, p := range r.s.problems {
		if !f.Matches(p) {
			continue
		}
		if f.SavedBy != "" {
			if _, ok := r.s.saved[savedKey(f.SavedBy, p.ID)]; !ok {
				continue
			}
		}
		matched = append(matched, *p.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	start, end := paginate(len(matched), f.Limit, f.Offset)
	return matched[start:end], len(matched), nil
}

func (r *memProblemRepository) CountProblems(_ context.Context, f model.ProblemFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.problems {
		if !f.Matches(p) {
			continue
		}
		if f.SavedBy != "" {
			if _, ok := r.s.saved[savedKey(f.SavedBy, p.ID)]; !ok {
				continue
			}
		}
		n++
	}
	return n, nil
}

// solutions

type memSolutionRepository struct{ s *MemoryStore }

func (r *memSolutionRepository) CreateSolution(_ context.Context, sol *model.Solution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.solutions {
		if model.SameID(existing.UserID, sol.UserID) && model.SameID(existing.ProblemID, sol.ProblemID) {
			return common.ErrDuplicateSolution
		}
	}
	c := sol.Clone()
	c.UpvoteCount = 0
	r.s.solutions[model.NormalizeID(sol.ID)] = c
	return nil
}

func (r *memSolutionRepository) SaveSolution(_ context.Context, next *model.Solution, expected model.SolutionStatus) (*model.Solution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.solutions[model.NormalizeID(next.ID)]
	if !ok || cur.Status != expected {
		return nil, ErrStaleWrite
	}
	stored := next.Clone()
	// Counters and visibility have their own atomic paths.
	stored.UpvoteCount = cur.UpvoteCount
	stored.IsPublic = cur.IsPublic
	stored.UserID = cur.UserID
	stored.ProblemID = cur.ProblemID
	stored.CreatedAt = cur.CreatedAt
	r.s.solutions[model.NormalizeID(next.ID)] = stored
	return stored.Clone(), nil
}

func (r *memSolutionRepository) DeleteSolution(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := model.NormalizeID(id)
	if _, ok := r.s.solutions[key]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.solutions, key)
	delete(r.s.upvotes, key)
	return nil
}

func (r *memSolutionRepository) FindSolutionByID(_ context.Context, id string) (*model.Solution, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sol, ok := r.s.solutions[model.NormalizeID(id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return sol.Clone(), nil
}

func (r *memSolutionRepository) ToggleVisibility(_ context.Context, id string) (*model.Solution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sol, ok := r.s.solutions[model.NormalizeID(id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	sol.IsPublic = !sol.IsPublic
	sol.UpdatedAt = time.Now()
	return sol.Clone(), nil
}

func (r *memSolutionRepository) SetVisibility(_ context.Context, id string, public bool) (*model.Solution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sol, ok := r.s.solutions[model.NormalizeID(id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	sol.IsPublic = public
	sol.UpdatedAt = time.Now()
	return sol.Clone(), nil
}

func (r *memSolutionRepository) ToggleUpvote(_ context.Context, solutionID, userID string) (*model.UpvoteResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := model.NormalizeID(solutionID)
	sol, ok := r.s.solutions[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	voters, ok := r.s.upvotes[key]
	if !ok {
		voters = make(map[string]struct{})
		r.s.upvotes[key] = voters
	}

	voter := model.NormalizeID(userID)
	_, had := voters[voter]
	if had {
		delete(voters, voter)
	} else {
		voters[voter] = struct{}{}
	}
	sol.UpvoteCount = len(voters)

	return &model.UpvoteResult{SolutionID: sol.ID, Upvoted: !had, UpvoteCount: sol.UpvoteCount}, nil
}

func (r *memSolutionRepository) HasUpvoted(_ context.Context, solutionID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.upvotes[model.NormalizeID(solutionID)][model.NormalizeID(userID)]
	return ok, nil
}

func (r *memSolutionRepository) ListSolutions(_ context.Context, f model.SolutionFilter, viewerID string) ([]model.SolutionView, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []*model.Solution{}
	for _, sol := range r.s.solutions {
		if f.Matches(sol) {
			matched = append(matched, sol)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if f.Less(a, b) || f.Less(b, a) {
			return f.Less(a, b)
		}
		return a.ID < b.ID
	})

	start, end := paginate(len(matched), f.Limit, f.Offset)
	views := make([]model.SolutionView, 0, end-start)
	for _, sol := range matched[start:end] {
		views = append(views, r.view(sol, viewerID))
	}
	return views, len(matched), nil
}

func (r *memSolutionRepository) FindSolutionView(_ context.Context, id, viewerID string) (*model.SolutionView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sol, ok := r.s.solutions[model.NormalizeID(id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	v := r.view(sol, viewerID)
	return &v, nil
}

func (r *memSolutionRepository) CountSolutions(_ context.Context, f model.SolutionFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, sol := range r.s.solutions {
		if f.Matches(sol) {
			n++
		}
	}
	return n, nil
}

// view annotates sol like the joined Postgres row. Callers hold the read lock.
func (r *memSolutionRepository) view(sol *model.Solution, viewerID string) model.SolutionView {
	v := model.SolutionView{Solution: *sol.Clone()}
	if viewer := model.NormalizeID(viewerID); viewer != "" {
		_, v.HasLiked = r.s.upvotes[model.NormalizeID(sol.ID)][viewer]
	}
	if u, ok := r.s.users[model.NormalizeID(sol.UserID)]; ok {
		v.AuthorName = u.Name
	}
	if p, ok := r.s.problems[model.NormalizeID(sol.ProblemID)]; ok {
		v.ProblemTitle = p.Title
		v.ProblemSlug = p.Slug
	}
	return v
}

// metadata

type memMetadataRepository struct{ s *MemoryStore }

func (r *memMetadataRepository) CreateMetadata(_ context.Context, md *model.Metadata) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.metadata {
		if existing.Type == md.Type && existing.Key == md.Key {
			return fmt.Errorf("%s %q already exists: %w", md.Type, md.Key, common.ErrConflict)
		}
	}
	c := *md
	r.s.metadata[model.NormalizeID(md.ID)] = &c
	return nil
}

func (r *memMetadataRepository) UpdateMetadata(_ context.Context, md *model.Metadata) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.metadata[model.NormalizeID(md.ID)]
	if !ok {
		return common.ErrNotFound
	}
	cur.Label = md.Label
	cur.Description = md.Description
	cur.IsActive = md.IsActive
	cur.Order = md.Order
	cur.UpdatedAt = md.UpdatedAt
	return nil
}

func (r *memMetadataRepository) FindMetadataByID(_ context.Context, id string) (*model.Metadata, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	md, ok := r.s.metadata[model.NormalizeID(id)]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *md
	return &c, nil
}

func (r *memMetadataRepository) ListMetadata(_ context.Context, typ model.MetadataType, activeOnly bool) ([]model.Metadata, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	items := []model.Metadata{}
	for _, md := range r.s.metadata {
		if typ != "" && md.Type != typ {
			continue
		}
		if activeOnly && !md.IsActive {
			continue
		}
		items = append(items, *md)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type < items[j].Type
		}
		if items[i].Order != items[j].Order {
			return items[i].Order < items[j].Order
		}
		return items[i].Key < items[j].Key
	})
	return items, nil
}

// saved problems

type memSavedProblemRepository struct{ s *MemoryStore }

func (r *memSavedProblemRepository) ToggleSave(_ context.Context, c *model.SavedProblem) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := savedKey(c.UserID, c.ProblemID)
	if _, ok := r.s.saved[key]; ok {
		delete(r.s.saved, key)
		return false, nil
	}
	sp := *c
	sp.Problem = nil
	r.s.saved[key] = &sp
	return true, nil
}

func (r *memSavedProblemRepository) IsSaved(_ context.Context, userID, problemID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.saved[savedKey(userID, problemID)]
	return ok, nil
}

func (r *memSavedProblemRepository) ListSaved(_ context.Context, userID string) ([]model.SavedProblem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.SavedProblem{}
	for _, sp := range r.s.saved {
		if !model.SameID(sp.UserID, userID) {
			continue
		}
		p, ok := r.s.problems[model.NormalizeID(sp.ProblemID)]
		if !ok {
			continue
		}
		c := *sp
		c.Problem = p.Clone()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

func (r *memSavedProblemRepository) SavedProblemIDs(_ context.Context, userID string, problemIDs []string) (map[string]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]bool, len(problemIDs))
	if userID == "" {
		return out, nil
	}
	for _, id := range problemIDs {
		if _, ok := r.s.saved[savedKey(userID, id)]; ok {
			out[id] = true
		}
	}
	return out, nil
}
