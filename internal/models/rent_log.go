package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RentLogStatus is the billing state of one month's obligation
type RentLogStatus string

const (
	RentStatusUnpaid  RentLogStatus = "unpaid"
	RentStatusPartial RentLogStatus = "partial"
	RentStatusPaid    RentLogStatus = "paid"
	RentStatusOverdue RentLogStatus = "overdue"
	RentStatusVoid    RentLogStatus = "void"
)

func (s RentLogStatus) Valid() bool {
	switch s {
	case RentStatusUnpaid, RentStatusPartial, RentStatusPaid, RentStatusOverdue, RentStatusVoid:
		return true
	}
	return false
}

type RentLog struct {
	ID         int             `json:"id"`
	TenantID   int             `json:"tenant_id"`
	UnitID     int             `json:"unit_id"`
	Month      string          `json:"month"` // YYYY-MM
	DueDate    time.Time       `json:"due_date"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Status     RentLogStatus   `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Balance is what is still owed; negative when overpaid.
func (r *RentLog) Balance() decimal.Decimal {
	return r.AmountDue.Sub(r.AmountPaid)
}

// StatusAfterPayment is paid once the running total covers the amount due,
// partial otherwise. It is only meaningful after a positive payment. An
// overdue log that is still short becomes partial until the next sweep.
func StatusAfterPayment(amountDue, amountPaid decimal.Decimal) RentLogStatus {
	if amountPaid.GreaterThanOrEqual(amountDue) {
		return RentStatusPaid
	}
	return RentStatusPartial
}

// RentLogHistory is a rent log together with the payments applied to it
type RentLogHistory struct {
	RentLog
	Payments []*PaymentRecord `json:"payments"`
}

// PaymentHistoryFilter narrows a unit's payment history
type PaymentHistoryFilter struct {
	Month  string
	Status RentLogStatus
	Limit  int
}

// GenerationResult reports a monthly rent log run
type GenerationResult struct {
	Month    string `json:"month"`
	Inserted int64  `json:"inserted"`
}
