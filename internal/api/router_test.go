package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"designhub/internal/app/service"
	"designhub/internal/common"
	"designhub/internal/common/security"
	"designhub/internal/domain/model"
	"designhub/internal/domain/moderation"
	"designhub/internal/domain/repository"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	security.InitJWT([]byte("router-secret"), time.Hour)

	store := repository.NewMemoryStore()
	guard := moderation.NewGuard(moderation.DefaultPolicy())
	metadata := service.NewMetadataService(store.Metadata(), nil, guard)
	svc := Services{
		Auth:          service.NewAuthService(store.Users(), guard),
		Metadata:      metadata,
		Problems:      service.NewProblemService(store.Problems(), store.SavedProblems(), metadata, guard),
		SavedProblems: service.NewSavedProblemService(store.SavedProblems(), store.Problems(), guard),
		Solutions:     service.NewSolutionService(store.Solutions(), store.Problems(), guard),
		Users:         service.NewUserService(store.Users(), store.Problems(), store.Solutions()),
	}

	ctx := context.Background()
	if err := metadata.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := svc.Auth.EnsureAdmin(ctx, "Admin", "admin@example.com", "admin-password"); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	return &testServer{t: t, handler: NewRouter(svc, RouterOptions{})}
}

func (s *testServer) do(method, path, token string, body interface{}, out interface{}) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: decode response failed: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func (s *testServer) login(email, password string) service.AuthResponse {
	s.t.Helper()
	var resp service.AuthResponse
	if code := s.do(http.MethodPost, "/api/v1/auth/login", "", service.LoginRequest{Email: email, Password: password}, &resp); code != http.StatusOK {
		s.t.Fatalf("login %s: unexpected status %d", email, code)
	}
	return resp
}

// verifiedMember signs up, has the admin verify the account, and logs in again.
func (s *testServer) verifiedMember(name, email, adminToken string) service.AuthResponse {
	s.t.Helper()
	var signup service.AuthResponse
	if code := s.do(http.MethodPost, "/api/v1/auth/signup", "", service.SignupRequest{Name: name, Email: email, Password: "password-123"}, &signup); code != http.StatusCreated {
		s.t.Fatalf("signup %s: unexpected status %d", email, code)
	}
	if code := s.do(http.MethodPatch, "/api/v1/admin/users/"+signup.User.ID+"/verify", adminToken, nil, nil); code != http.StatusOK {
		s.t.Fatalf("verify %s: unexpected status %d", email, code)
	}
	return s.login(email, "password-123")
}

func TestProblemAndSolutionFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin@example.com", "admin-password")
	author := s.verifiedMember("Author", "author@example.com", admin.Token)
	solver := s.verifiedMember("Solver", "solver@example.com", admin.Token)

	var errBody common.ErrorResponse
	createReq := service.CreateProblemRequest{
		Title: "Cache Design", Summary: "Design a cache", Content: "LRU please",
		Category: "systems", ProblemType: "project", Tags: []string{"caching"},
	}
	if code := s.do(http.MethodPost, "/api/v1/problems", "", createReq, &errBody); code != http.StatusUnauthorized || errBody.Kind != common.KindUnauthorized {
		t.Fatalf("anonymous create: %d %+v", code, errBody)
	}

	var problem model.Problem
	if code := s.do(http.MethodPost, "/api/v1/problems", author.Token, createReq, &problem); code != http.StatusCreated {
		t.Fatalf("create: unexpected status %d", code)
	}
	if problem.Slug != "cache-design" || problem.Status != model.ProblemStatusDraft {
		t.Fatalf("unexpected problem: %+v", problem)
	}

	if code := s.do(http.MethodGet, "/api/v1/problems/cache-design", "", nil, &errBody); code != http.StatusNotFound || errBody.Kind != common.KindNotFound {
		t.Fatalf("draft lookup: %d %+v", code, errBody)
	}
	if code := s.do(http.MethodGet, "/api/v1/problems/id/"+problem.ID, author.Token, nil, &problem); code != http.StatusOK {
		t.Fatalf("owner preview: unexpected status %d", code)
	}

	if code := s.do(http.MethodPatch, "/api/v1/problems/"+problem.ID+"/submit", author.Token, nil, &problem); code != http.StatusOK || problem.Status != model.ProblemStatusPendingReview {
		t.Fatalf("submit: %d %s", code, problem.Status)
	}

	if code := s.do(http.MethodGet, "/api/v1/admin/problems?status=PENDING_REVIEW", author.Token, nil, &errBody); code != http.StatusForbidden {
		t.Fatalf("non-admin queue access: unexpected status %d", code)
	}
	var queue service.Page[model.Problem]
	if code := s.do(http.MethodGet, "/api/v1/admin/problems?status=PENDING_REVIEW", admin.Token, nil, &queue); code != http.StatusOK || queue.Total != 1 {
		t.Fatalf("admin queue: %d %+v", code, queue)
	}

	if code := s.do(http.MethodPatch, "/api/v1/admin/problems/"+problem.ID+"/review", admin.Token, service.ReviewRequest{Decision: "REJECT"}, &errBody); code != http.StatusBadRequest || errBody.Kind != common.KindMissingRejectionReason {
		t.Fatalf("reject without reason: %d %+v", code, errBody)
	}
	if code := s.do(http.MethodPatch, "/api/v1/admin/problems/"+problem.ID+"/review", admin.Token, service.ReviewRequest{Decision: "APPROVE"}, &problem); code != http.StatusOK || problem.Status != model.ProblemStatusApproved {
		t.Fatalf("approve: %d %s", code, problem.Status)
	}
	if code := s.do(http.MethodPatch, "/api/v1/admin/problems/"+problem.ID+"/publish", admin.Token, nil, &problem); code != http.StatusOK || problem.Status != model.ProblemStatusPublished {
		t.Fatalf("publish: %d %s", code, problem.Status)
	}
	if code := s.do(http.MethodPatch, "/api/v1/admin/problems/"+problem.ID+"/publish", admin.Token, nil, &errBody); code != http.StatusConflict || errBody.Kind != common.KindInvalidTransition {
		t.Fatalf("publish twice: %d %+v", code, errBody)
	}

	var feed service.Page[model.ProblemListItem]
	if code := s.do(http.MethodGet, "/api/v1/problems?q=cache&tags=caching", "", nil, &feed); code != http.StatusOK || feed.Total != 1 {
		t.Fatalf("public feed: %d %+v", code, feed)
	}

	var solution model.Solution
	submitReq := service.SubmitSolutionRequest{ProblemID: problem.ID, RepositoryURL: "https://github.com/solver/cache", Content: "LRU + TTL"}
	if code := s.do(http.MethodPost, "/api/v1/solutions", solver.Token, submitReq, &solution); code != http.StatusCreated {
		t.Fatalf("submit solution: unexpected status %d", code)
	}
	if code := s.do(http.MethodPost, "/api/v1/solutions", solver.Token, submitReq, &errBody); code != http.StatusConflict || errBody.Kind != common.KindDuplicateSolution {
		t.Fatalf("duplicate solution: %d %+v", code, errBody)
	}

	var upvote model.UpvoteResult
	if code := s.do(http.MethodPost, "/api/v1/solutions/"+solution.ID+"/upvote", author.Token, nil, &upvote); code != http.StatusOK || !upvote.Upvoted || upvote.UpvoteCount != 1 {
		t.Fatalf("upvote: %d %+v", code, upvote)
	}

	if code := s.do(http.MethodPatch, "/api/v1/admin/solutions/"+solution.ID+"/start-review", admin.Token, nil, &solution); code != http.StatusOK || solution.Status != model.SolutionStatusUnderReview {
		t.Fatalf("start review: %d %s", code, solution.Status)
	}
	content := "edited late"
	if code := s.do(http.MethodPut, "/api/v1/solutions/"+solution.ID, solver.Token, service.UpdateSolutionRequest{Content: &content}, &errBody); code != http.StatusForbidden || errBody.Kind != common.KindLockedForReview {
		t.Fatalf("edit under review: %d %+v", code, errBody)
	}
	if code := s.do(http.MethodPatch, "/api/v1/admin/solutions/"+solution.ID+"/review", admin.Token, service.ReviewRequest{Decision: "APPROVE"}, &solution); code != http.StatusOK || solution.Status != model.SolutionStatusApproved {
		t.Fatalf("approve solution: %d %s", code, solution.Status)
	}

	var community service.Page[model.SolutionView]
	if code := s.do(http.MethodGet, "/api/v1/solutions/problem/"+problem.ID, author.Token, nil, &community); code != http.StatusOK || community.Total != 1 || !community.Items[0].HasLiked {
		t.Fatalf("community listing: %d %+v", code, community)
	}
	if upvote.UpvoteCount != community.Items[0].UpvoteCount {
		t.Fatalf("count drifted: %d vs %d", upvote.UpvoteCount, community.Items[0].UpvoteCount)
	}
}

func TestUnverifiedMemberCannotCreate(t *testing.T) {
	s := newTestServer(t)

	var signup service.AuthResponse
	if code := s.do(http.MethodPost, "/api/v1/auth/signup", "", service.SignupRequest{Name: "New", Email: "new@example.com", Password: "password-123"}, &signup); code != http.StatusCreated {
		t.Fatalf("signup: unexpected status %d", code)
	}
	var errBody common.ErrorResponse
	code := s.do(http.MethodPost, "/api/v1/problems", signup.Token, service.CreateProblemRequest{
		Title: "T", Summary: "S", Content: "C", Category: "WEB", ProblemType: "PROJECT",
	}, &errBody)
	if code != http.StatusForbidden || errBody.Kind != common.KindAccountNotVerified {
		t.Fatalf("unverified create: %d %+v", code, errBody)
	}
}

func TestRouterRejectsMalformedRequests(t *testing.T) {
	s := newTestServer(t)

	var errBody common.ErrorResponse
	if code := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "x"}, &errBody); code != http.StatusBadRequest || errBody.Kind != common.KindBadRequest {
		t.Fatalf("unknown fields: %d %+v", code, errBody)
	}
	if code := s.do(http.MethodGet, "/api/v1/problems/mine?status=ARCHIVED", s.login("admin@example.com", "admin-password").Token, nil, &errBody); code != http.StatusBadRequest || errBody.Kind != common.KindValidation {
		t.Fatalf("bad status filter: %d %+v", code, errBody)
	}
	if code := s.do(http.MethodGet, "/api/v1/nowhere", "", nil, &errBody); code != http.StatusNotFound || errBody.Kind != common.KindNotFound {
		t.Fatalf("unknown route: %d %+v", code, errBody)
	}

	var entries []model.Metadata
	if code := s.do(http.MethodGet, "/api/v1/metadata?type=PROBLEM_TYPE", "", nil, &entries); code != http.StatusOK || len(entries) != 3 {
		t.Fatalf("metadata: %d %d entries", code, len(entries))
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	if code := s.do(http.MethodGet, "/health", "", nil, nil); code != http.StatusOK {
		t.Fatalf("health: unexpected status %d", code)
	}
}

func TestUserProfilesAndVisibilityOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin@example.com", "admin-password")
	author := s.verifiedMember("Author", "author@example.com", admin.Token)
	solver := s.verifiedMember("Solver", "solver@example.com", admin.Token)

	var errBody common.ErrorResponse
	if code := s.do(http.MethodGet, "/api/v1/users/me", "", nil, &errBody); code != http.StatusUnauthorized {
		t.Fatalf("anonymous me: unexpected status %d", code)
	}
	var me model.User
	if code := s.do(http.MethodGet, "/api/v1/users/me", solver.Token, nil, &me); code != http.StatusOK || me.Email != "solver@example.com" {
		t.Fatalf("me: %d %+v", code, me)
	}

	var profile map[string]interface{}
	if code := s.do(http.MethodGet, "/api/v1/users/"+solver.User.ID, author.Token, nil, &profile); code != http.StatusOK || profile["name"] != "Solver" {
		t.Fatalf("profile: %d %+v", code, profile)
	}
	if _, ok := profile["email"]; ok {
		t.Fatalf("profile leaked email: %+v", profile)
	}

	// One published problem from the author, one solution from the solver.
	var problem model.Problem
	createReq := service.CreateProblemRequest{
		Title: "Queue Design", Summary: "Design a queue", Content: "At least once",
		Category: "systems", ProblemType: "project",
	}
	if code := s.do(http.MethodPost, "/api/v1/problems", author.Token, createReq, &problem); code != http.StatusCreated {
		t.Fatalf("create: unexpected status %d", code)
	}
	s.do(http.MethodPatch, "/api/v1/problems/"+problem.ID+"/submit", author.Token, nil, nil)
	s.do(http.MethodPatch, "/api/v1/admin/problems/"+problem.ID+"/review", admin.Token, service.ReviewRequest{Decision: "APPROVE"}, nil)
	if code := s.do(http.MethodPatch, "/api/v1/admin/problems/"+problem.ID+"/publish", admin.Token, nil, &problem); code != http.StatusOK {
		t.Fatalf("publish: unexpected status %d", code)
	}
	var solution model.Solution
	submitReq := service.SubmitSolutionRequest{ProblemID: problem.ID, RepositoryURL: "https://github.com/solver/queue"}
	if code := s.do(http.MethodPost, "/api/v1/solutions", solver.Token, submitReq, &solution); code != http.StatusCreated {
		t.Fatalf("submit solution: unexpected status %d", code)
	}

	var stats model.UserStats
	if code := s.do(http.MethodGet, "/api/v1/users/"+author.User.ID+"/stats", "", nil, &stats); code != http.StatusOK || stats.ProblemsCreatedCount != 1 {
		t.Fatalf("author stats: %d %+v", code, stats)
	}
	if code := s.do(http.MethodGet, "/api/v1/users/"+solver.User.ID+"/stats", "", nil, &stats); code != http.StatusOK || stats.SolutionsSubmittedCount != 1 {
		t.Fatalf("solver stats: %d %+v", code, stats)
	}

	private := false
	if code := s.do(http.MethodPut, "/api/v1/solutions/"+solution.ID, solver.Token, service.UpdateSolutionRequest{IsPublic: &private}, &solution); code != http.StatusOK || solution.IsPublic {
		t.Fatalf("hide via update: %d %+v", code, solution)
	}
	if code := s.do(http.MethodGet, "/api/v1/users/"+solver.User.ID+"/stats", "", nil, &stats); code != http.StatusOK || stats.SolutionsSubmittedCount != 0 {
		t.Fatalf("public stats after hiding: %d %+v", code, stats)
	}
	if code := s.do(http.MethodGet, "/api/v1/users/me/stats", solver.Token, nil, &stats); code != http.StatusOK || stats.SolutionsSubmittedCount != 1 {
		t.Fatalf("own stats after hiding: %d %+v", code, stats)
	}
}
