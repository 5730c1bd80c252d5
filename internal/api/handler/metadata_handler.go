package handler

import (
	"net/http"

	"designhub/internal/api/middleware"
	"designhub/internal/app/service"
	"designhub/internal/common"

	"github.com/go-chi/chi/v5"
)

type MetadataHandler struct {
	metadataService *service.MetadataService
}

func NewMetadataHandler(ms *service.MetadataService) *MetadataHandler {
	return &MetadataHandler{metadataService: ms}
}

func (h *MetadataHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listActive) // GET /api/v1/metadata?type=CATEGORY

	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.AdminOnly)
		adminRouter.Post("/", h.create)
		adminRouter.Put("/{metadataID}", h.update)
		adminRouter.Delete("/{metadataID}", h.deactivate)
	})
}

func (h *MetadataHandler) listActive(w http.ResponseWriter, r *http.Request) {
	entries, err := h.metadataService.ListActive(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *MetadataHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMetadataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	entry, err := h.metadataService.Create(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, entry)
}

func (h *MetadataHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateMetadataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	entry, err := h.metadataService.Update(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "metadataID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entry)
}

func (h *MetadataHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.metadataService.Deactivate(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "metadataID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "metadata deactivated"})
}
