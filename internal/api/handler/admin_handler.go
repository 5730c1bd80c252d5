package handler

import (
	"net/http"

	"designhub/internal/api/middleware"
	"designhub/internal/app/service"
	"designhub/internal/common"
	"designhub/internal/domain/moderation"

	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the review queues and account verification.
type AdminHandler struct {
	problemService  *service.ProblemService
	solutionService *service.SolutionService
	authService     *service.AuthService
}

func NewAdminHandler(ps *service.ProblemService, ss *service.SolutionService, as *service.AuthService) *AdminHandler {
	return &AdminHandler{problemService: ps, solutionService: ss, authService: as}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Use(middleware.AdminOnly)

	r.Get("/problems", h.problemQueue)
	r.Get("/problems/{problemID}", h.getProblem)
	r.Patch("/problems/{problemID}/review", h.reviewProblem)
	r.Patch("/problems/{problemID}/publish", h.publishProblem)

	r.Get("/solutions", h.solutionQueue)
	r.Get("/solutions/{solutionID}", h.getSolution)
	r.Patch("/solutions/{solutionID}/start-review", h.startSolutionReview)
	r.Patch("/solutions/{solutionID}/review", h.reviewSolution)

	r.Patch("/users/{userID}/verify", h.verifyUser)
}

func (h *AdminHandler) problemQueue(w http.ResponseWriter, r *http.Request) {
	statuses, err := moderation.ParseProblemStatuses(r.URL.Query().Get("status"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	page, err := h.problemService.AdminQueue(r.Context(), middleware.IdentityFromContext(r.Context()), statuses, pageRequest(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.AdminGetProblem(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *AdminHandler) reviewProblem(w http.ResponseWriter, r *http.Request) {
	var req service.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	problem, err := h.problemService.Review(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problemID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *AdminHandler) publishProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.Publish(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *AdminHandler) solutionQueue(w http.ResponseWriter, r *http.Request) {
	statuses, err := moderation.ParseSolutionStatuses(r.URL.Query().Get("status"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	page, err := h.solutionService.AdminList(r.Context(), middleware.IdentityFromContext(r.Context()), statuses, pageRequest(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) getSolution(w http.ResponseWriter, r *http.Request) {
	solution, err := h.solutionService.AdminGet(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "solutionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, solution)
}

func (h *AdminHandler) startSolutionReview(w http.ResponseWriter, r *http.Request) {
	solution, err := h.solutionService.StartReview(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "solutionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, solution)
}

func (h *AdminHandler) reviewSolution(w http.ResponseWriter, r *http.Request) {
	var req service.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	solution, err := h.solutionService.Review(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "solutionID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, solution)
}

func (h *AdminHandler) verifyUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.VerifyAccount(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}
