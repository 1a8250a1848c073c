package handlers

import (
	"net/http"

	"rental-backend/internal/middleware"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

type TOTPHandler struct {
	Service *services.TOTPService
}

func NewTOTPHandler(service *services.TOTPService) *TOTPHandler {
	return &TOTPHandler{Service: service}
}

// Setup issues a new secret and QR code. 2FA stays off until Enable.
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.Setup(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, resp)
}

func (h *TOTPHandler) Enable(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req models.TOTPCodeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Service.Enable(r.Context(), userID, req.Code, middleware.ClientIP(r)); err != nil {
		respondError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Two-factor authentication enabled")
}

func (h *TOTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req models.TOTPDisableRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Service.Disable(r.Context(), userID, req.Password, req.Code); err != nil {
		respondError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Two-factor authentication disabled")
}
