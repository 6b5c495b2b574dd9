package handlers

import (
	"net/http"

	"aims/internal/logger"
	"aims/pkg/api"
)

// ListTemplates handles GET /admin/templates.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context())
	if err != nil {
		logger.FromContext(r.Context(), h.log).Error("template listing failed", "error", err)
		h.httpError(w, "Failed to list templates", http.StatusInternalServerError)
		return
	}

	resp := make([]api.TemplateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, api.TemplateResponse{
			ID:                t.ID.String(),
			Key:               t.Key,
			Name:              t.Name,
			Version:           t.Version,
			RequiredVariables: t.RequiredVariables,
		})
	}

	h.respondJson(w, http.StatusOK, resp)
}
