package handler

import (
	"net/http"

	"designhub/internal/api/middleware"
	"designhub/internal/app/service"
	"designhub/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(us *service.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Get("/me", h.me)
		authed.Get("/me/stats", h.myStats)
	})

	r.Group(func(public chi.Router) {
		public.Use(middleware.OptionalIdentity)
		public.Get("/{userID}", h.profile)
		public.Get("/{userID}/stats", h.stats)
	})
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) myStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.userService.MyStats(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *UserHandler) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.Profile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.userService.Stats(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}
