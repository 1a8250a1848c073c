package handlers

import (
	"net/http"

	"rental-backend/internal/middleware"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

// UnitHandler serves unit pages and the tenancy and payment actions on them.
type UnitHandler struct {
	Units   *services.UnitService
	Billing *services.BillingService
}

func NewUnitHandler(units *services.UnitService, billing *services.BillingService) *UnitHandler {
	return &UnitHandler{Units: units, Billing: billing}
}

func (h *UnitHandler) Details(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	details, err := h.Units.Details(r.Context(), owner, id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, details)
}

func (h *UnitHandler) AssignTenant(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.AssignTenantRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Billing.AssignTenant(r.Context(), owner, id, &req, middleware.ClientIP(r))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusCreated, result)
}

func (h *UnitHandler) MoveOut(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.MoveOutRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	tenant, err := h.Billing.MoveOut(r.Context(), owner, id, &req, middleware.ClientIP(r))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, tenant)
}

func (h *UnitHandler) UpdateRent(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateRentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	unit, err := h.Units.UpdateRent(r.Context(), owner, id, &req, middleware.ClientIP(r))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, unit)
}

// PaymentHistory accepts month, status and limit query parameters.
func (h *UnitHandler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, err)
		return
	}
	filter := models.PaymentHistoryFilter{
		Month:  r.URL.Query().Get("month"),
		Status: models.RentLogStatus(r.URL.Query().Get("status")),
		Limit:  limit,
	}

	history, err := h.Units.PaymentHistory(r.Context(), owner, id, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, history)
}

func (h *UnitHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	rentLogID, ok := pathID(w, r, "rentLogId")
	if !ok {
		return
	}

	var req models.CreatePaymentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Billing.RecordPayment(r.Context(), owner, rentLogID, &req, middleware.ClientIP(r))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusCreated, result)
}
