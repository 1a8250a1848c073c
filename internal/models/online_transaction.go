package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OnlineTransactionStatus represents the status of an online payment
type OnlineTransactionStatus string

const (
	OnlineTxStatusPending OnlineTransactionStatus = "pending"
	OnlineTxStatusSuccess OnlineTransactionStatus = "success"
	OnlineTxStatusFailed  OnlineTransactionStatus = "failed"
)

// OnlineTransaction represents a Razorpay order raised against a rent log balance
type OnlineTransaction struct {
	ID                int                     `json:"id"`
	RazorpayOrderID   string                  `json:"razorpay_order_id"`
	RazorpayPaymentID *string                 `json:"razorpay_payment_id,omitempty"`
	RentLogID         int                     `json:"rent_log_id"`
	OwnerID           int                     `json:"owner_id"`
	Receipt           string                  `json:"receipt"`
	Amount            decimal.Decimal         `json:"amount"`
	Currency          string                  `json:"currency"`
	Status            OnlineTransactionStatus `json:"status"`
	PaymentMethod     *string                 `json:"payment_method,omitempty"` // upi, card, netbanking, wallet
	FailureReason     *string                 `json:"failure_reason,omitempty"`
	PaymentRecordID   *int                    `json:"payment_record_id,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	CompletedAt       *time.Time              `json:"completed_at,omitempty"`
}

// CreateOrderResponse is what the frontend needs to open Razorpay checkout
type CreateOrderResponse struct {
	OrderID     string `json:"order_id"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
	Receipt     string `json:"receipt"`
}

// RazorpayWebhookPayload is the subset of the webhook body the service reads
type RazorpayWebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Amount           int64  `json:"amount"`
				Method           string `json:"method"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// VerifyCheckoutRequest is posted by the checkout page after Razorpay
// reports success in the browser
type VerifyCheckoutRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}
