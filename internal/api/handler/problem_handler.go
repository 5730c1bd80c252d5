package handler

import (
	"net/http"

	"designhub/internal/api/middleware"
	"designhub/internal/app/service"
	"designhub/internal/common"
	"designhub/internal/domain/moderation"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
	savedService   *service.SavedProblemService
}

func NewProblemHandler(ps *service.ProblemService, ss *service.SavedProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps, savedService: ss}
}

// {problem} is a slug on GET and an id everywhere else.
func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(public chi.Router) {
		public.Use(middleware.OptionalIdentity)
		public.Get("/", h.listPublic)         // GET /api/v1/problems
		public.Get("/{problem}", h.getBySlug) // GET /api/v1/problems/cache-design
	})

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/", h.createProblem)
		authed.Get("/mine", h.listMine)
		authed.Get("/saved", h.listSaved)
		authed.Get("/id/{problemID}", h.getOwn)
		authed.Put("/{problem}", h.updateProblem)
		authed.Delete("/{problem}", h.deleteProblem)
		authed.Patch("/{problem}/submit", h.submitForReview)
		authed.Post("/{problem}/save", h.toggleSave)
		authed.Get("/{problem}/is-saved", h.isSaved)
	})
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProblemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	problem, err := h.problemService.CreateProblem(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) listPublic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	savedOnly, err := queryBool(r, "saved")
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	page, err := h.problemService.ListPublic(r.Context(), middleware.IdentityFromContext(r.Context()), service.ProblemQuery{
		Search:      q.Get("q"),
		Category:    q.Get("category"),
		ProblemType: q.Get("problemType"),
		Difficulty:  q.Get("difficulty"),
		Tags:        splitList(q.Get("tags")),
		SavedOnly:   savedOnly,
		PageRequest: pageRequest(r),
	})
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *ProblemHandler) getBySlug(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.GetPublishedBySlug(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problem"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) listMine(w http.ResponseWriter, r *http.Request) {
	statuses, err := moderation.ParseProblemStatuses(r.URL.Query().Get("status"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	page, err := h.problemService.ListMine(r.Context(), middleware.IdentityFromContext(r.Context()), statuses, pageRequest(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *ProblemHandler) listSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := h.savedService.ListSaved(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, saved)
}

func (h *ProblemHandler) getOwn(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.GetOwnProblem(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProblemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	problem, err := h.problemService.UpdateProblem(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problem"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	if err := h.problemService.DeleteProblem(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problem")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "problem deleted"})
}

func (h *ProblemHandler) submitForReview(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.SubmitForReview(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "problem"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

type savedResponse struct {
	ProblemID string `json:"problem_id"`
	Saved     bool   `json:"saved"`
}

func (h *ProblemHandler) toggleSave(w http.ResponseWriter, r *http.Request) {
	problemID := chi.URLParam(r, "problem")
	saved, err := h.savedService.ToggleSave(r.Context(), middleware.IdentityFromContext(r.Context()), problemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, savedResponse{ProblemID: problemID, Saved: saved})
}

func (h *ProblemHandler) isSaved(w http.ResponseWriter, r *http.Request) {
	problemID := chi.URLParam(r, "problem")
	saved, err := h.savedService.IsSaved(r.Context(), middleware.IdentityFromContext(r.Context()), problemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, savedResponse{ProblemID: problemID, Saved: saved})
}
