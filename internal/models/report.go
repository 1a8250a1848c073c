package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportFilter is shared by the monthly report and the exports
type ReportFilter struct {
	ApartmentID *int
	From        string // YYYY-MM, inclusive
	To          string // YYYY-MM, inclusive
}

type MonthlyReportRow struct {
	Month            string          `json:"month"`
	ApartmentID      int             `json:"apartment_id"`
	ApartmentName    string          `json:"apartment_name"`
	TotalExpected    decimal.Decimal `json:"total_expected"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	PaidCount        int             `json:"paid_count"`
	PartialCount     int             `json:"partial_count"`
	UnpaidCount      int             `json:"unpaid_count"`
	OverdueCount     int             `json:"overdue_count"`
}

// OccupancyPoint is one apartment's occupancy at the start of a month
type OccupancyPoint struct {
	Month         string  `json:"month"`
	ApartmentID   int     `json:"apartment_id"`
	ApartmentName string  `json:"apartment_name"`
	TotalUnits    int     `json:"total_units"`
	OccupiedUnits int     `json:"occupied_units"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

type OverdueItem struct {
	RentLogID     int             `json:"rent_log_id"`
	Month         string          `json:"month"`
	DueDate       time.Time       `json:"due_date"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Remaining     decimal.Decimal `json:"remaining"`
	TenantID      int             `json:"tenant_id"`
	TenantName    string          `json:"tenant_name"`
	TenantPhone   string          `json:"tenant_phone"`
	UnitNumber    string          `json:"unit_number"`
	FloorNumber   int             `json:"floor_number"`
	ApartmentID   int             `json:"apartment_id"`
	ApartmentName string          `json:"apartment_name"`
}

type OverdueReport struct {
	Items            []*OverdueItem  `json:"items"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

const (
	ExportTenants  = "tenants"
	ExportPayments = "payments"
)

// TenantExportRow is one line of the tenants CSV export
type TenantExportRow struct {
	TenantName    string
	Phone         string
	NationalID    *string
	MoveInDate    time.Time
	MoveOutDate   *time.Time
	MonthlyRent   decimal.Decimal
	Notes         *string
	UnitNumber    string
	FloorNumber   int
	ApartmentName string
	Active        bool
}

// PaymentExportRow is one line of the payments CSV export
type PaymentExportRow struct {
	PaidAt        time.Time
	Amount        decimal.Decimal
	PaymentMethod string
	Note          *string
	RentMonth     string
	TenantName    string
	UnitNumber    string
	FloorNumber   int
	ApartmentName string
}

// ExportArchive describes a stored export in object storage
type ExportArchive struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Bytes     int       `json:"bytes"`
}
