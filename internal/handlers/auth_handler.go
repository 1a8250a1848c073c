package handlers

import (
	"net/http"

	"rental-backend/internal/middleware"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

type AuthHandler struct {
	Service *services.UserService
}

func NewAuthHandler(service *services.UserService) *AuthHandler {
	return &AuthHandler{Service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	resp, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusCreated, resp)
}

// Login returns a session, or the pending second-factor step for 2FA accounts.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}
	if result.Pending != nil {
		utils.RespondData(w, http.StatusOK, result.Pending)
		return
	}
	utils.RespondData(w, http.StatusOK, result.Auth)
}

func (h *AuthHandler) CompleteLogin(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPLoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	resp, err := h.Service.CompleteLogin(r.Context(), &req, middleware.ClientIP(r))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, resp)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	user, err := h.Service.Profile(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.Service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), userID, &req); err != nil {
		respondError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Password changed successfully")
}
