package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"rental-backend/internal/apperror"
	"rental-backend/internal/cache"
	"rental-backend/internal/metrics"
	"rental-backend/internal/models"
	"rental-backend/internal/realtime"
	"rental-backend/internal/repositories"
	"rental-backend/internal/timeutil"
)

var (
	errUnitOccupied   = apperror.BusinessRule("Unit is already occupied")
	errNoActiveTenant = apperror.BusinessRule("No active tenant found for this unit")
	errVoidRentLog    = apperror.BusinessRule("Cannot record a payment against a void rent log")
)

// BillingService owns the tenancy and rent lifecycle: assignment, move-out,
// payment application and the two batch jobs. Every mutation runs in one
// transaction.
type BillingService struct {
	DB       repositories.DBTX
	Units    *repositories.UnitRepository
	Tenants  *repositories.TenantRepository
	RentLogs *repositories.RentLogRepository
	Payments *repositories.PaymentRepository
	Audit    *repositories.AuditLogRepository
	Events   *realtime.Hub

	now func() time.Time
}

func NewBillingService(
	db repositories.DBTX,
	units *repositories.UnitRepository,
	tenants *repositories.TenantRepository,
	rentLogs *repositories.RentLogRepository,
	payments *repositories.PaymentRepository,
	audit *repositories.AuditLogRepository,
	events *realtime.Hub,
) *BillingService {
	return &BillingService{
		DB:       db,
		Units:    units,
		Tenants:  tenants,
		RentLogs: rentLogs,
		Payments: payments,
		Audit:    audit,
		Events:   events,
		now:      timeutil.Now,
	}
}

// AssignTenant places a tenant in a vacant unit and opens the current
// month's rent log.
func (s *BillingService) AssignTenant(ctx context.Context, ownerID, unitID int, req *models.AssignTenantRequest, ipAddress string) (*models.AssignmentResult, error) {
	moveIn, err := timeutil.ParseDate(req.MoveInDate)
	if err != nil {
		return nil, apperror.Validation("Invalid move-in date",
			apperror.FieldError{Field: "move_in_date", Message: "must be a date in YYYY-MM-DD format"})
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
	if unit.Status == models.UnitStatusOccupied || unit.CurrentTenantID != nil {
		return nil, errUnitOccupied
	}

	tenant := &models.Tenant{
		UnitID:      unit.ID,
		Name:        req.Name,
		Phone:       req.Phone,
		NationalID:  req.NationalID,
		MoveInDate:  moveIn,
		MonthlyRent: req.MonthlyRent,
		Notes:       req.Notes,
	}
	if err := s.Tenants.WithTx(tx).Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	if err := s.Units.WithTx(tx).MarkOccupied(ctx, unit.ID, tenant.ID); err != nil {
		return nil, fmt.Errorf("failed to occupy unit: %w", err)
	}

	month := timeutil.MonthKey(s.now())
	dueDate, err := timeutil.DueDate(month, unit.RentDueDay)
	if err != nil {
		return nil, err
	}
	rentLog := &models.RentLog{
		TenantID:  tenant.ID,
		UnitID:    unit.ID,
		Month:     month,
		DueDate:   dueDate,
		AmountDue: req.MonthlyRent,
		Status:    models.RentStatusUnpaid,
	}
	if err := s.RentLogs.WithTx(tx).Create(ctx, rentLog); err != nil {
		return nil, fmt.Errorf("failed to create rent log: %w", err)
	}

	if err := s.Audit.WithTx(tx).Create(ctx, models.AuditEntry{
		UserID:    ownerID,
		Action:    models.AuditTenantAssigned,
		TableName: "tenants",
		RecordID:  tenant.ID,
		NewValues: tenant,
		IPAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("failed to write audit log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Printf("[Billing] Tenant %d assigned to unit %s (%s), rent log %s opened",
		tenant.ID, unit.UnitNumber, unit.ApartmentName, month)
	metrics.TenancyEvents.WithLabelValues("assigned").Inc()
	s.afterOwnerChange(ctx, ownerID, realtime.EventTenantAssigned, map[string]interface{}{
		"unit_id": unit.ID, "apartment_id": unit.ApartmentID, "tenant_id": tenant.ID,
	})

	return &models.AssignmentResult{Tenant: tenant, RentLog: rentLog}, nil
}

// MoveOut ends the unit's active tenancy. Unpaid logs of the tenant are
// voided; partial and overdue logs keep their balance.
func (s *BillingService) MoveOut(ctx context.Context, ownerID, unitID int, req *models.MoveOutRequest, ipAddress string) (*models.Tenant, error) {
	moveOut, err := timeutil.ParseDate(req.MoveOutDate)
	if err != nil {
		return nil, apperror.Validation("Invalid move-out date",
			apperror.FieldError{Field: "move_out_date", Message: "must be a date in YYYY-MM-DD format"})
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

	tenant, err := s.Tenants.WithTx(tx).GetActiveByUnit(ctx, unit.ID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, errNoActiveTenant
		}
		return nil, err
	}
	if moveOut.Before(tenant.MoveInDate) {
		return nil, apperror.Validation("Move-out date cannot be before the move-in date",
			apperror.FieldError{Field: "move_out_date", Message: "must not be before move_in_date"})
	}

	moved, err := s.Tenants.WithTx(tx).MoveOut(ctx, tenant.ID, moveOut)
	if err != nil {
		return nil, fmt.Errorf("failed to move tenant out: %w", err)
	}
	if !moved {
		return nil, errNoActiveTenant
	}

	if err := s.Units.WithTx(tx).MarkVacant(ctx, unit.ID); err != nil {
		return nil, fmt.Errorf("failed to vacate unit: %w", err)
	}

	voided, err := s.RentLogs.WithTx(tx).VoidUnpaidForTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to void rent logs: %w", err)
	}

	before := *tenant
	tenant.Active = false
	tenant.MoveOutDate = &moveOut

	if err := s.Audit.WithTx(tx).Create(ctx, models.AuditEntry{
		UserID:    ownerID,
		Action:    models.AuditTenantMovedOut,
		TableName: "tenants",
		RecordID:  tenant.ID,
		OldValues: before,
		NewValues: map[string]interface{}{
			"active":           false,
			"move_out_date":    moveOut.Format(timeutil.DateLayout),
			"voided_rent_logs": voided,
			"unit_id":          unit.ID,
		},
		IPAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("failed to write audit log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Printf("[Billing] Tenant %d moved out of unit %s (%s), %d unpaid rent logs voided",
		tenant.ID, unit.UnitNumber, unit.ApartmentName, voided)
	metrics.TenancyEvents.WithLabelValues("moved_out").Inc()
	s.afterOwnerChange(ctx, ownerID, realtime.EventTenantMovedOut, map[string]interface{}{
		"unit_id": unit.ID, "apartment_id": unit.ApartmentID, "tenant_id": tenant.ID,
	})

	return tenant, nil
}

// RecordPayment applies a manual payment to one of the owner's rent logs.
func (s *BillingService) RecordPayment(ctx context.Context, ownerID, rentLogID int, req *models.CreatePaymentRequest, ipAddress string) (*models.PaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("Valid payment amount is required",
			apperror.FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rentLog, err := s.RentLogs.WithTx(tx).GetForOwner(ctx, rentLogID, ownerID, true)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("Rent log")
		}
		return nil, err
	}

	createdBy := ownerID
	payment := &models.PaymentRecord{
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
		CreatedBy:     &createdBy,
	}
	if err := s.applyPayment(ctx, tx, ownerID, rentLog, payment, ipAddress); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.paymentCommitted(ctx, ownerID, rentLog, payment)
	return &models.PaymentResult{Payment: payment, RentLog: rentLog}, nil
}

// applyPayment inserts the payment, advances the log's running total and
// status, and audits it, all inside tx. The log must already be locked.
func (s *BillingService) applyPayment(ctx context.Context, tx pgx.Tx, ownerID int, rentLog *models.RentLog, payment *models.PaymentRecord, ipAddress string) error {
	if rentLog.Status == models.RentStatusVoid {
		return errVoidRentLog
	}

	payment.RentLogID = rentLog.ID
	if payment.PaidAt.IsZero() {
		payment.PaidAt = s.now()
	}
	if payment.PaymentMethod == "" {
		payment.PaymentMethod = models.PaymentMethodCash
	}
	if err := s.Payments.WithTx(tx).Create(ctx, payment); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	rentLog.AmountPaid = rentLog.AmountPaid.Add(payment.Amount)
	rentLog.Status = models.StatusAfterPayment(rentLog.AmountDue, rentLog.AmountPaid)
	if err := s.RentLogs.WithTx(tx).ApplyPayment(ctx, rentLog); err != nil {
		return fmt.Errorf("failed to update rent log: %w", err)
	}

	if err := s.Audit.WithTx(tx).Create(ctx, models.AuditEntry{
		UserID:    ownerID,
		Action:    models.AuditPaymentCreated,
		TableName: "payment_records",
		RecordID:  payment.ID,
		NewValues: payment,
		IPAddress: ipAddress,
	}); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *BillingService) paymentCommitted(ctx context.Context, ownerID int, rentLog *models.RentLog, payment *models.PaymentRecord) {
	log.Printf("[Billing] Payment %d of %s (%s) on rent log %d, now %s",
		payment.ID, payment.Amount.StringFixed(2), payment.PaymentMethod, rentLog.ID, rentLog.Status)
	metrics.PaymentsRecorded.WithLabelValues(payment.PaymentMethod).Inc()
	s.afterOwnerChange(ctx, ownerID, realtime.EventPaymentRecorded, map[string]interface{}{
		"rent_log_id": rentLog.ID,
		"payment_id":  payment.ID,
		"amount":      payment.Amount,
		"status":      rentLog.Status,
	})
}

// GenerateMonthly opens a rent log for every active tenant that has none for
// month. An empty month means next month. Safe to run repeatedly.
func (s *BillingService) GenerateMonthly(ctx context.Context, month string) (*models.GenerationResult, error) {
	if month == "" {
		month = timeutil.NextMonthKey(s.now())
	}
	if _, err := timeutil.ParseMonth(month); err != nil {
		return nil, apperror.Validation(err.Error(),
			apperror.FieldError{Field: "month", Message: "must be in YYYY-MM format"})
	}

	inserted, err := s.RentLogs.GenerateForMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("failed to generate rent logs for %s: %w", month, err)
	}

	log.Printf("[Billing] Generated %d rent logs for %s", inserted, month)
	metrics.RentLogsGenerated.Add(float64(inserted))
	if inserted > 0 {
		cache.InvalidateAllOwners(ctx)
		s.Events.PublishAll(realtime.EventRentLogsCreated, map[string]interface{}{"month": month, "inserted": inserted})
	}

	return &models.GenerationResult{Month: month, Inserted: inserted}, nil
}

// SweepOverdue marks unpaid and partial logs past their grace period as
// overdue. Returns how many logs changed.
func (s *BillingService) SweepOverdue(ctx context.Context) (int64, error) {
	today := timeutil.StartOfDay(s.now())

	updated, err := s.RentLogs.SweepOverdue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep overdue rent logs: %w", err)
	}

	log.Printf("[Billing] Overdue sweep for %s marked %d rent logs", today.Format(timeutil.DateLayout), updated)
	metrics.RentLogsMarkedOverdue.Add(float64(updated))
	if updated > 0 {
		cache.InvalidateAllOwners(ctx)
		s.Events.PublishAll(realtime.EventRentLogsOverdue, map[string]interface{}{"updated": updated})
	}
	return updated, nil
}

// RunScheduledPass opens the current month's rent logs and then sweeps
// overdue ones. The sweep still runs when generation fails.
func (s *BillingService) RunScheduledPass(ctx context.Context) error {
	_, genErr := s.GenerateMonthly(ctx, timeutil.MonthKey(s.now()))
	_, sweepErr := s.SweepOverdue(ctx)
	return errors.Join(genErr, sweepErr)
}

func (s *BillingService) afterOwnerChange(ctx context.Context, ownerID int, event string, data interface{}) {
	cache.InvalidateOwner(ctx, ownerID)
	s.Events.Publish(ownerID, event, data)
}
