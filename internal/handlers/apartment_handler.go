package handlers

import (
	"net/http"

	"rental-backend/internal/middleware"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

type ApartmentHandler struct {
	Service *services.ApartmentService
}

func NewApartmentHandler(service *services.ApartmentService) *ApartmentHandler {
	return &ApartmentHandler{Service: service}
}

func (h *ApartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req models.CreateApartmentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	detail, err := h.Service.Create(r.Context(), owner, &req)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusCreated, detail)
}

func (h *ApartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	list, err := h.Service.List(r.Context(), owner)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, list)
}

func (h *ApartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.Service.Get(r.Context(), owner, id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, detail)
}

func (h *ApartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateApartmentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	apartment, err := h.Service.Update(r.Context(), owner, id, &req)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, apartment)
}

func (h *ApartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), owner, id, middleware.ClientIP(r)); err != nil {
		respondError(w, err)
		return
	}
	utils.RespondMessage(w, http.StatusOK, "Apartment deleted successfully")
}

func (h *ApartmentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	stats, err := h.Service.Stats(r.Context(), owner, id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, stats)
}
