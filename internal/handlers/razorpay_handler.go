package handlers

import (
	"io"
	"log"
	"net/http"

	"rental-backend/internal/apperror"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

const maxWebhookBody = 1 << 20

type RazorpayHandler struct {
	Service *services.RazorpayService
}

func NewRazorpayHandler(service *services.RazorpayService) *RazorpayHandler {
	return &RazorpayHandler{Service: service}
}

// CreateOrder opens a checkout order for a rent log's outstanding balance
// POST /api/rent-logs/{id}/online-order
func (h *RazorpayHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.Service.CreateOrder(r.Context(), owner, id)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusCreated, order)
}

// VerifyCheckout settles an order from the checkout success callback
// POST /api/payments/online/verify
func (h *RazorpayHandler) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req models.VerifyCheckoutRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	tr, err := h.Service.VerifyCheckout(r.Context(), owner, &req)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondData(w, http.StatusOK, tr)
}

// HandleWebhook processes Razorpay webhook events
// POST /webhooks/razorpay
func (h *RazorpayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, apperror.Validation("Failed to read body"))
		return
	}

	if !h.Service.VerifyWebhookSignature(body, r.Header.Get("X-Razorpay-Signature")) {
		log.Printf("[Razorpay] Invalid webhook signature")
		respondError(w, apperror.Auth("Invalid signature"))
		return
	}

	// Unexpected errors get a 500 so Razorpay retries; anything else is acknowledged
	if err := h.Service.ProcessWebhook(r.Context(), body); err != nil {
		log.Printf("[Razorpay] Webhook processing error: %v", err)
		if apperror.As(err).Kind == apperror.KindUnexpected {
			respondError(w, err)
			return
		}
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
