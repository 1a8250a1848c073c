package services

import (
	"context"
	"fmt"
	"log"

	"rental-backend/internal/apperror"
	"rental-backend/internal/cache"
	"rental-backend/internal/models"
	"rental-backend/internal/realtime"
	"rental-backend/internal/repositories"
)

type UnitService struct {
	DB       repositories.DBTX
	Units    *repositories.UnitRepository
	Tenants  *repositories.TenantRepository
	RentLogs *repositories.RentLogRepository
	Payments *repositories.PaymentRepository
	Audit    *repositories.AuditLogRepository
	Events   *realtime.Hub
}

func NewUnitService(
	db repositories.DBTX,
	units *repositories.UnitRepository,
	tenants *repositories.TenantRepository,
	rentLogs *repositories.RentLogRepository,
	payments *repositories.PaymentRepository,
	audit *repositories.AuditLogRepository,
	events *realtime.Hub,
) *UnitService {
	return &UnitService{
		DB:       db,
		Units:    units,
		Tenants:  tenants,
		RentLogs: rentLogs,
		Payments: payments,
		Audit:    audit,
		Events:   events,
	}
}

func (s *UnitService) location(ctx context.Context, unitID, ownerID int) (*models.UnitLocation, error) {
	unit, err := s.Units.GetLocation(ctx, unitID, ownerID, false)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("Unit")
		}
		return nil, err
	}
	return unit, nil
}

// Details returns the unit, its active tenant with their billing history and
// the unit's previous tenants.
func (s *UnitService) Details(ctx context.Context, ownerID, unitID int) (*models.UnitDetails, error) {
	unit, err := s.location(ctx, unitID, ownerID)
	if err != nil {
		return nil, err
	}

	details := &models.UnitDetails{UnitLocation: *unit, RentLogs: []*models.RentLogHistory{}}

	tenant, err := s.Tenants.GetActiveByUnit(ctx, unit.ID)
	switch {
	case err == nil:
		details.Tenant = tenant
		logs, err := s.RentLogs.ListByTenant(ctx, tenant.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rent logs: %w", err)
		}
		if details.RentLogs, err = s.withPayments(ctx, logs); err != nil {
			return nil, err
		}
	case repositories.IsNotFound(err):
	default:
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	details.PreviousTenants, err = s.Tenants.ListPreviousByUnit(ctx, unit.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous tenants: %w", err)
	}
	return details, nil
}

// UpdateRent changes the unit's rent and, when occupied, the active tenant's
// rent. Existing rent logs keep their amount_due.
func (s *UnitService) UpdateRent(ctx context.Context, ownerID, unitID int, req *models.UpdateRentRequest, ipAddress string) (*models.UnitLocation, error) {
	if req.MonthlyRent.IsNegative() {
		return nil, apperror.Validation("Valid rent amount is required",
			apperror.FieldError{Field: "monthly_rent", Message: "must be 0 or greater"})
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	unit, err := s.Units.WithTx(tx).GetLocation(ctx, unitID, ownerID, true)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("Unit")
		}
		return nil, err
	}
	oldRent := unit.MonthlyRent

	if err := s.Units.WithTx(tx).UpdateRent(ctx, unit.ID, req.MonthlyRent); err != nil {
		return nil, fmt.Errorf("failed to update unit rent: %w", err)
	}

	var tenantID *int
	tenant, err := s.Tenants.WithTx(tx).GetActiveByUnit(ctx, unit.ID)
	switch {
	case err == nil:
		if err := s.Tenants.WithTx(tx).UpdateRent(ctx, tenant.ID, req.MonthlyRent); err != nil {
			return nil, fmt.Errorf("failed to update tenant rent: %w", err)
		}
		tenantID = &tenant.ID
	case repositories.IsNotFound(err):
	default:
		return nil, err
	}

	if err := s.Audit.WithTx(tx).Create(ctx, models.AuditEntry{
		UserID:    ownerID,
		Action:    models.AuditRentUpdated,
		TableName: "units",
		RecordID:  unit.ID,
		OldValues: map[string]interface{}{"monthly_rent": oldRent},
		NewValues: map[string]interface{}{"monthly_rent": req.MonthlyRent, "tenant_id": tenantID},
		IPAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("failed to write audit log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	unit.MonthlyRent = req.MonthlyRent
	log.Printf("[Units] Rent for unit %s (%s) changed from %s to %s",
		unit.UnitNumber, unit.ApartmentName, oldRent.StringFixed(2), req.MonthlyRent.StringFixed(2))
	cache.InvalidateOwner(ctx, ownerID)
	s.Events.Publish(ownerID, realtime.EventRentUpdated, map[string]interface{}{
		"unit_id": unit.ID, "apartment_id": unit.ApartmentID, "monthly_rent": req.MonthlyRent,
	})
	return unit, nil
}

// PaymentHistory lists the unit's rent logs across tenants with their payments.
func (s *UnitService) PaymentHistory(ctx context.Context, ownerID, unitID int, filter models.PaymentHistoryFilter) ([]*models.RentLogHistory, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.Validation("Invalid status filter",
			apperror.FieldError{Field: "status", Message: "must be one of unpaid, partial, paid, overdue, void"})
	}
	if _, err := s.location(ctx, unitID, ownerID); err != nil {
		return nil, err
	}

	logs, err := s.RentLogs.ListByUnit(ctx, unitID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment history: %w", err)
	}
	return s.withPayments(ctx, logs)
}

func (s *UnitService) withPayments(ctx context.Context, logs []*models.RentLog) ([]*models.RentLogHistory, error) {
	ids := make([]int, len(logs))
	for i, l := range logs {
		ids[i] = l.ID
	}
	payments, err := s.Payments.ListByRentLogs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	history := make([]*models.RentLogHistory, len(logs))
	for i, l := range logs {
		p := payments[l.ID]
		if p == nil {
			p = []*models.PaymentRecord{}
		}
		history[i] = &models.RentLogHistory{RentLog: *l, Payments: p}
	}
	return history, nil
}
