package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tenant struct {
	ID          int             `json:"id"`
	UnitID      int             `json:"unit_id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	NationalID  *string         `json:"national_id"`
	MoveInDate  time.Time       `json:"move_in_date"`
	MoveOutDate *time.Time      `json:"move_out_date"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	Notes       *string         `json:"notes"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TenantSummary is the short form embedded in unit listings
type TenantSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type AssignTenantRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Phone       string          `json:"phone" validate:"required,max=20"`
	NationalID  *string         `json:"national_id" validate:"omitempty,max=50"`
	MoveInDate  string          `json:"move_in_date" validate:"required,datetime=2006-01-02"`
	MonthlyRent decimal.Decimal `json:"monthly_rent" validate:"gt=0"`
	Notes       *string         `json:"notes"`
}

type MoveOutRequest struct {
	MoveOutDate string `json:"move_out_date" validate:"required,datetime=2006-01-02"`
}

// AssignmentResult is returned after a tenant is placed in a unit
type AssignmentResult struct {
	Tenant  *Tenant  `json:"tenant"`
	RentLog *RentLog `json:"rent_log"`
}
