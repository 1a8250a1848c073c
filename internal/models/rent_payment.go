package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCash          = "cash"
	PaymentMethodBankTransfer  = "bank_transfer"
	PaymentMethodMobileBanking = "mobile_banking"
	PaymentMethodCard          = "card"
	PaymentMethodCheque        = "cheque"
	PaymentMethodOnline        = "online"
)

// PaymentRecord is one append-only payment applied against a rent log
type PaymentRecord struct {
	ID            int             `json:"id"`
	RentLogID     int             `json:"rent_log_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
	PaymentMethod string          `json:"payment_method"`
	Note          *string         `json:"note"`
	CreatedBy     *int            `json:"created_by"`
	CreatedByName string          `json:"created_by_name,omitempty"` // Joined from users table
	CreatedAt     time.Time       `json:"created_at"`
}

type CreatePaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash bank_transfer mobile_banking card cheque online"`
	Note          *string         `json:"note" validate:"omitempty,max=500"`
}

// PaymentResult is the payment and the rent log it was applied to
type PaymentResult struct {
	Payment *PaymentRecord `json:"payment"`
	RentLog *RentLog       `json:"rent_log"`
}

// PaymentReceipt carries everything printed on a payment receipt
type PaymentReceipt struct {
	Payment       PaymentRecord
	RentLog       RentLog
	TenantName    string
	TenantPhone   string
	UnitNumber    string
	FloorNumber   int
	ApartmentName string
	Address       string
	OwnerID       int
}
