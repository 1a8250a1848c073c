package handlers

import (
	"net/http"

	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

type AuditHandler struct {
	Service *services.AuditService
}

func NewAuditHandler(service *services.AuditService) *AuditHandler {
	return &AuditHandler{Service: service}
}

// List returns the caller's audit trail; accepts limit, offset and action.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		respondError(w, err)
		return
	}

	logs, err := h.Service.List(r.Context(), owner, limit, offset, r.URL.Query().Get("action"))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, logs)
}
