package handler

import (
	"net/http"

	"designhub/internal/api/middleware"
	"designhub/internal/app/service"
	"designhub/internal/common"
	"designhub/internal/domain/moderation"

	"github.com/go-chi/chi/v5"
)

type SolutionHandler struct {
	solutionService *service.SolutionService
	upvoteLimiter   *middleware.KeyedRateLimiter
}

func NewSolutionHandler(ss *service.SolutionService, upvoteLimiter *middleware.KeyedRateLimiter) *SolutionHandler {
	return &SolutionHandler{solutionService: ss, upvoteLimiter: upvoteLimiter}
}

func (h *SolutionHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(public chi.Router) {
		public.Use(middleware.OptionalIdentity)
		public.Get("/problem/{problemID}", h.listByProblem)
		public.Get("/user/{userID}", h.listByUser)
		public.Get("/{solutionID}", h.getSolution)
	})

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/", h.submit)
		authed.Get("/mine", h.listMine)
		authed.Put("/{solutionID}", h.update)
		authed.Delete("/{solutionID}", h.delete)
		authed.Patch("/{solutionID}/visibility", h.toggleVisibility)
		authed.With(middleware.RateLimit(h.upvoteLimiter)).Post("/{solutionID}/upvote", h.toggleUpvote)
	})
}

func (h *SolutionHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitSolutionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	solution, err := h.solutionService.Submit(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, solution)
}

func (h *SolutionHandler) listByProblem(w http.ResponseWriter, r *http.Request) {
	page, err := h.solutionService.ListByProblem(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problemID"), pageRequest(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *SolutionHandler) listByUser(w http.ResponseWriter, r *http.Request) {
	statuses, err := moderation.ParseSolutionStatuses(r.URL.Query().Get("status"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	page, err := h.solutionService.ListByUser(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "userID"), statuses, pageRequest(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *SolutionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	statuses, err := moderation.ParseSolutionStatuses(r.URL.Query().Get("status"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	page, err := h.solutionService.ListMine(r.Context(), middleware.IdentityFromContext(r.Context()), statuses, pageRequest(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *SolutionHandler) getSolution(w http.ResponseWriter, r *http.Request) {
	solution, err := h.solutionService.Get(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "solutionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, solution)
}

func (h *SolutionHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSolutionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	solution, err := h.solutionService.Update(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "solutionID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, solution)
}

func (h *SolutionHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.solutionService.Delete(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "solutionID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "solution deleted"})
}

func (h *SolutionHandler) toggleVisibility(w http.ResponseWriter, r *http.Request) {
	solution, err := h.solutionService.ToggleVisibility(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "solutionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, solution)
}

func (h *SolutionHandler) toggleUpvote(w http.ResponseWriter, r *http.Request) {
	result, err := h.solutionService.ToggleUpvote(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "solutionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
