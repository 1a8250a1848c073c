package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/apperror"
	"rental-backend/internal/models"
	"rental-backend/internal/repositories"
	"rental-backend/internal/timeutil"
)

func newUnitService(t *testing.T) (*UnitService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewUnitService(mock,
		repositories.NewUnitRepository(mock),
		repositories.NewTenantRepository(mock),
		repositories.NewRentLogRepository(mock),
		repositories.NewPaymentRepository(mock),
		repositories.NewAuditLogRepository(mock),
		nil,
	), mock
}

func activeTenantRow() *pgxmock.Rows {
	moveIn := time.Date(2025, time.March, 1, 0, 0, 0, 0, timeutil.IST)
	return pgxmock.NewRows(tenantCols).AddRow(
		7, 11, "Meera", "9876543210", (*string)(nil), moveIn, (*time.Time)(nil),
		decimal.NewFromInt(5000), (*string)(nil), true, fixedNow, fixedNow)
}

var paymentCols = []string{"id", "rent_log_id", "amount", "paid_at", "payment_method", "note",
	"created_by", "created_by_name", "created_at"}

func TestUnitDetailsWithActiveTenant(t *testing.T) {
	svc, mock := newUnitService(t)
	owner := 42
	tenantID := 7

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.id = $1 AND a.owner_id = $2")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusOccupied, &tenantID))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE unit_id = $1 AND active = true")).
		WithArgs(11).
		WillReturnRows(activeTenantRow())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rl.tenant_id = $1")).
		WithArgs(7).
		WillReturnRows(rentLogRow(2000, models.RentStatusPartial))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.rent_log_id = ANY($1)")).
		WithArgs([]int{9}).
		WillReturnRows(pgxmock.NewRows(paymentCols).AddRow(
			1, 9, decimal.NewFromInt(2000), fixedNow, models.PaymentMethodCash, (*string)(nil), &owner, "Asha Rao", fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE unit_id = $1 AND active = false")).
		WithArgs(11).
		WillReturnRows(pgxmock.NewRows(tenantCols))

	details, err := svc.Details(context.Background(), 42, 11)
	require.NoError(t, err)

	assert.Equal(t, "101", details.UnitNumber)
	assert.Equal(t, "Lake View", details.ApartmentName)
	require.NotNil(t, details.Tenant)
	assert.Equal(t, "Meera", details.Tenant.Name)
	require.Len(t, details.RentLogs, 1)
	require.Len(t, details.RentLogs[0].Payments, 1)
	assert.Equal(t, "Asha Rao", details.RentLogs[0].Payments[0].CreatedByName)
	assert.Empty(t, details.PreviousTenants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitDetailsVacant(t *testing.T) {
	svc, mock := newUnitService(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.id = $1 AND a.owner_id = $2")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusVacant, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE unit_id = $1 AND active = true")).
		WithArgs(11).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE unit_id = $1 AND active = false")).
		WithArgs(11).
		WillReturnRows(pgxmock.NewRows(tenantCols))

	details, err := svc.Details(context.Background(), 42, 11)
	require.NoError(t, err)
	assert.Nil(t, details.Tenant)
	assert.NotNil(t, details.RentLogs)
	assert.Empty(t, details.RentLogs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitDetailsForeignUnit(t *testing.T) {
	svc, mock := newUnitService(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.id = $1 AND a.owner_id = $2")).
		WithArgs(11, 99).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.Details(context.Background(), 99, 11)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRentAlsoUpdatesActiveTenant(t *testing.T) {
	svc, mock := newUnitService(t)
	tenantID := 7

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF u")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusOccupied, &tenantID))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE units SET monthly_rent = $2")).
		WithArgs(11, amount(5500)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE unit_id = $1 AND active = true")).
		WithArgs(11).
		WillReturnRows(activeTenantRow())
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tenants SET monthly_rent = $2")).
		WithArgs(7, amount(5500)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(42, models.AuditRentUpdated, "units", 11, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	unit, err := svc.UpdateRent(context.Background(), 42, 11, &models.UpdateRentRequest{MonthlyRent: decimal.NewFromInt(5500)}, "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, unit.MonthlyRent.Equal(decimal.NewFromInt(5500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRentVacantUnit(t *testing.T) {
	svc, mock := newUnitService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF u")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusVacant, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE units SET monthly_rent = $2")).
		WithArgs(11, amount(0)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE unit_id = $1 AND active = true")).
		WithArgs(11).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(42, models.AuditRentUpdated, "units", 11, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	_, err := svc.UpdateRent(context.Background(), 42, 11, &models.UpdateRentRequest{MonthlyRent: decimal.Zero}, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRentRejectsNegative(t *testing.T) {
	svc, mock := newUnitService(t)

	_, err := svc.UpdateRent(context.Background(), 42, 11, &models.UpdateRentRequest{MonthlyRent: decimal.NewFromInt(-1)}, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentHistoryFilters(t *testing.T) {
	svc, mock := newUnitService(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.id = $1 AND a.owner_id = $2")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusVacant, nil))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rl.unit_id = $1 AND rl.month = $2 AND rl.status = $3 ORDER BY rl.month DESC LIMIT $4")).
		WithArgs(11, "2025-03", "paid", 12).
		WillReturnRows(pgxmock.NewRows(rentLogCols))

	history, err := svc.PaymentHistory(context.Background(), 42, 11, models.PaymentHistoryFilter{
		Month: "2025-03", Status: models.RentStatusPaid,
	})
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentHistoryRejectsUnknownStatus(t *testing.T) {
	svc, mock := newUnitService(t)

	_, err := svc.PaymentHistory(context.Background(), 42, 11, models.PaymentHistoryFilter{Status: "late"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}
