package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Apartment struct {
	ID             int       `json:"id"`
	OwnerID        int       `json:"owner_id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	CaretakerName  *string   `json:"caretaker_name"`
	CaretakerPhone *string   `json:"caretaker_phone"`
	FloorsCount    int       `json:"floors_count"`
	UnitsPerFloor  int       `json:"units_per_floor"`
	RentDueDay     int       `json:"rent_due_day"`
	OverdueDay     int       `json:"overdue_day"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ApartmentSummary is a list row with live occupancy counts
type ApartmentSummary struct {
	Apartment
	ActualFloors  int             `json:"actual_floors"`
	TotalUnits    int             `json:"total_units"`
	OccupiedUnits int             `json:"occupied_units"`
	ExpectedRent  decimal.Decimal `json:"expected_rent"`
}

// ApartmentDetail nests floors, their units and each unit's active tenant
type ApartmentDetail struct {
	Apartment
	Floors []*FloorWithUnits `json:"floors"`
}

type Floor struct {
	ID          int       `json:"id"`
	ApartmentID int       `json:"apartment_id"`
	FloorNumber int       `json:"floor_number"`
	UnitsCount  int       `json:"units_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type FloorWithUnits struct {
	Floor
	Units []*UnitWithTenant `json:"units"`
}

type CreateApartmentRequest struct {
	Name           string           `json:"name" validate:"required,max=100"`
	Address        string           `json:"address" validate:"required"`
	CaretakerName  *string          `json:"caretaker_name" validate:"omitempty,max=100"`
	CaretakerPhone *string          `json:"caretaker_phone" validate:"omitempty,max=20"`
	FloorsCount    int              `json:"floors_count" validate:"required,min=1,max=200"`
	UnitsPerFloor  int              `json:"units_per_floor" validate:"required,min=1,max=99"`
	RentDueDay     *int             `json:"rent_due_day" validate:"omitempty,min=1,max=28"`
	OverdueDay     *int             `json:"overdue_day" validate:"omitempty,min=0,max=60"`
	DefaultRent    *decimal.Decimal `json:"default_rent" validate:"omitempty,gte=0"`
}

// UpdateApartmentRequest lists every field an owner may change; nil means unchanged
type UpdateApartmentRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=100"`
	Address        *string `json:"address" validate:"omitempty,min=1"`
	CaretakerName  *string `json:"caretaker_name" validate:"omitempty,max=100"`
	CaretakerPhone *string `json:"caretaker_phone" validate:"omitempty,max=20"`
	RentDueDay     *int    `json:"rent_due_day" validate:"omitempty,min=1,max=28"`
	OverdueDay     *int    `json:"overdue_day" validate:"omitempty,min=0,max=60"`
}

// Empty reports whether the request changes nothing.
func (r *UpdateApartmentRequest) Empty() bool {
	return r.Name == nil && r.Address == nil && r.CaretakerName == nil &&
		r.CaretakerPhone == nil && r.RentDueDay == nil && r.OverdueDay == nil
}

type ApartmentStats struct {
	TotalFloors     int             `json:"total_floors"`
	TotalUnits      int             `json:"total_units"`
	OccupiedUnits   int             `json:"occupied_units"`
	VacantUnits     int             `json:"vacant_units"`
	ExpectedRent    decimal.Decimal `json:"expected_rent"`
	CollectedRent   decimal.Decimal `json:"collected_rent"`
	OutstandingRent decimal.Decimal `json:"outstanding_rent"`
	OverdueCount    int             `json:"overdue_count"`
	OccupancyRate   int             `json:"occupancy_rate"`
}
