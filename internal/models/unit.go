package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	UnitStatusVacant   = "vacant"
	UnitStatusOccupied = "occupied"
)

type Unit struct {
	ID              int             `json:"id"`
	FloorID         int             `json:"floor_id"`
	UnitNumber      string          `json:"unit_number"`
	MonthlyRent     decimal.Decimal `json:"monthly_rent"`
	Status          string          `json:"status"`
	CurrentTenantID *int            `json:"current_tenant_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// UnitNumber builds the display number for the idx-th unit (1-based) on a
// floor: floor 1 unit 1 is "101", floor 12 unit 3 is "1203".
func UnitNumber(floor, idx int) string {
	return fmt.Sprintf("%d%02d", floor, idx)
}

// UnitWithTenant is a unit row in the apartment tree
type UnitWithTenant struct {
	Unit
	Tenant *TenantSummary `json:"tenant"`
}

// UnitLocation is the unit plus the apartment it belongs to
type UnitLocation struct {
	Unit
	FloorNumber   int    `json:"floor_number"`
	ApartmentID   int    `json:"apartment_id"`
	ApartmentName string `json:"apartment_name"`
	OwnerID       int    `json:"-"`
	RentDueDay    int    `json:"-"`
}

// UnitDetails is the full unit page: tenancy, billing history and past tenants
type UnitDetails struct {
	UnitLocation
	Tenant          *Tenant           `json:"tenant"`
	RentLogs        []*RentLogHistory `json:"rent_logs"`
	PreviousTenants []*Tenant         `json:"previous_tenants"`
}

type UpdateRentRequest struct {
	MonthlyRent decimal.Decimal `json:"monthly_rent" validate:"gte=0"`
}
