package services

import (
	"context"
	"errors"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/apperror"
	"rental-backend/internal/models"
	"rental-backend/internal/realtime"
	"rental-backend/internal/repositories"
	"rental-backend/internal/timeutil"
)

// decimalArg matches a decimal argument by value rather than representation.
type decimalArg struct{ want decimal.Decimal }

func (d decimalArg) Match(v interface{}) bool {
	got, ok := v.(decimal.Decimal)
	return ok && got.Equal(d.want)
}

func amount(n int64) decimalArg { return decimalArg{want: decimal.NewFromInt(n)} }

var fixedNow = time.Date(2025, time.March, 10, 11, 30, 0, 0, timeutil.IST)

func newBillingService(t *testing.T) (*BillingService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	svc := NewBillingService(mock,
		repositories.NewUnitRepository(mock),
		repositories.NewTenantRepository(mock),
		repositories.NewRentLogRepository(mock),
		repositories.NewPaymentRepository(mock),
		repositories.NewAuditLogRepository(mock),
		nil,
	)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

var unitLocationCols = []string{"id", "floor_id", "unit_number", "monthly_rent", "status", "current_tenant_id",
	"created_at", "updated_at", "floor_number", "apartment_id", "apartment_name", "owner_id", "rent_due_day"}

func unitRow(status string, tenantID *int) *pgxmock.Rows {
	return pgxmock.NewRows(unitLocationCols).AddRow(
		11, 2, "101", decimal.NewFromInt(5000), status, tenantID,
		fixedNow, fixedNow, 1, 3, "Lake View", 42, 5)
}

var tenantCols = []string{"id", "unit_id", "name", "phone", "national_id", "move_in_date", "move_out_date",
	"monthly_rent", "notes", "active", "created_at", "updated_at"}

var rentLogCols = []string{"id", "tenant_id", "unit_id", "month", "due_date", "amount_due", "amount_paid",
	"status", "created_at", "updated_at"}

func rentLogRow(paid int64, status models.RentLogStatus) *pgxmock.Rows {
	due := time.Date(2025, time.March, 5, 0, 0, 0, 0, timeutil.IST)
	return pgxmock.NewRows(rentLogCols).AddRow(
		9, 7, 11, "2025-03", due, decimal.NewFromInt(5000), decimal.NewFromInt(paid),
		status, fixedNow, fixedNow)
}

func TestAssignTenantOpensCurrentMonthRentLog(t *testing.T) {
	svc, mock := newBillingService(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF u")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusVacant, nil))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tenants")).
		WithArgs(11, "Meera", "9876543210", (*string)(nil), time.Date(2025, time.March, 1, 0, 0, 0, 0, timeutil.IST),
			amount(5000), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE units SET status = 'occupied'")).
		WithArgs(11, 7).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO rent_logs")).
		WithArgs(7, 11, "2025-03", time.Date(2025, time.March, 5, 0, 0, 0, 0, timeutil.IST), amount(5000), models.RentStatusUnpaid).
		WillReturnRows(pgxmock.NewRows([]string{"id", "amount_paid", "created_at", "updated_at"}).
			AddRow(9, decimal.Zero, fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(42, models.AuditTenantAssigned, "tenants", 7, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	res, err := svc.AssignTenant(ctx, 42, 11, &models.AssignTenantRequest{
		Name:        "Meera",
		Phone:       "9876543210",
		MoveInDate:  "2025-03-01",
		MonthlyRent: decimal.NewFromInt(5000),
	}, "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, 7, res.Tenant.ID)
	assert.True(t, res.Tenant.Active)
	assert.Equal(t, "2025-03", res.RentLog.Month)
	assert.Equal(t, models.RentStatusUnpaid, res.RentLog.Status)
	assert.True(t, res.RentLog.AmountDue.Equal(decimal.NewFromInt(5000)))
	assert.True(t, res.RentLog.AmountPaid.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignTenantToOccupiedUnitChangesNothing(t *testing.T) {
	svc, mock := newBillingService(t)
	current := 3

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF u")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusOccupied, &current))
	mock.ExpectRollback()

	_, err := svc.AssignTenant(context.Background(), 42, 11, &models.AssignTenantRequest{
		Name: "Meera", Phone: "1", MoveInDate: "2025-03-01", MonthlyRent: decimal.NewFromInt(5000),
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindBusinessRule))
	assert.Equal(t, 400, apperror.As(err).Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignTenantUnknownOrForeignUnit(t *testing.T) {
	svc, mock := newBillingService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF u")).
		WithArgs(11, 99).
		WillReturnRows(pgxmock.NewRows(unitLocationCols))
	mock.ExpectRollback()

	_, err := svc.AssignTenant(context.Background(), 99, 11, &models.AssignTenantRequest{
		Name: "Meera", Phone: "1", MoveInDate: "2025-03-01", MonthlyRent: decimal.NewFromInt(5000),
	}, "")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignTenantRejectsBadDateBeforeTouchingDB(t *testing.T) {
	svc, mock := newBillingService(t)

	_, err := svc.AssignTenant(context.Background(), 42, 11, &models.AssignTenantRequest{
		Name: "Meera", Phone: "1", MoveInDate: "01/03/2025", MonthlyRent: decimal.NewFromInt(5000),
	}, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectPayment(mock pgxmock.PgxPoolIface, paidBefore int64, statusBefore models.RentLogStatus, pay, paidAfter int64, statusAfter models.RentLogStatus, paymentID int) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF rl")).
		WithArgs(9, 42).
		WillReturnRows(rentLogRow(paidBefore, statusBefore))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payment_records")).
		WithArgs(9, amount(pay), fixedNow, models.PaymentMethodCash, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(paymentID, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE rent_logs SET amount_paid")).
		WithArgs(9, amount(paidAfter), statusAfter).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(42, models.AuditPaymentCreated, "payment_records", paymentID,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
}

func TestPaymentsAccumulateUntilPaid(t *testing.T) {
	svc, mock := newBillingService(t)
	ctx := context.Background()

	expectPayment(mock, 0, models.RentStatusUnpaid, 2000, 2000, models.RentStatusPartial, 100)
	res, err := svc.RecordPayment(ctx, 42, 9, &models.CreatePaymentRequest{Amount: decimal.NewFromInt(2000)}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RentStatusPartial, res.RentLog.Status)
	assert.True(t, res.RentLog.AmountPaid.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, models.PaymentMethodCash, res.Payment.PaymentMethod)
	assert.Equal(t, 42, *res.Payment.CreatedBy)

	expectPayment(mock, 2000, models.RentStatusPartial, 3000, 5000, models.RentStatusPaid, 101)
	res, err = svc.RecordPayment(ctx, 42, 9, &models.CreatePaymentRequest{Amount: decimal.NewFromInt(3000)}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RentStatusPaid, res.RentLog.Status)
	assert.True(t, res.RentLog.AmountPaid.Equal(decimal.NewFromInt(5000)))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverpaymentIsAcceptedAsPaid(t *testing.T) {
	svc, mock := newBillingService(t)

	expectPayment(mock, 0, models.RentStatusOverdue, 6000, 6000, models.RentStatusPaid, 100)
	res, err := svc.RecordPayment(context.Background(), 42, 9, &models.CreatePaymentRequest{Amount: decimal.NewFromInt(6000)}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RentStatusPaid, res.RentLog.Status)
	assert.True(t, res.RentLog.Balance().IsNegative())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShortPaymentOnOverdueLogIsResweptToOverdue(t *testing.T) {
	svc, mock := newBillingService(t)
	ctx := context.Background()

	expectPayment(mock, 0, models.RentStatusOverdue, 1000, 1000, models.RentStatusPartial, 100)
	res, err := svc.RecordPayment(ctx, 42, 9, &models.CreatePaymentRequest{Amount: decimal.NewFromInt(1000)}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RentStatusPartial, res.RentLog.Status)
	assert.True(t, res.RentLog.Balance().Equal(decimal.NewFromInt(4000)))

	mock.ExpectExec(regexp.QuoteMeta("rl.status IN ('unpaid', 'partial')")).
		WithArgs(time.Date(2025, time.March, 10, 0, 0, 0, 0, timeutil.IST)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	n, err := svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentOnVoidRentLogIsRejected(t *testing.T) {
	svc, mock := newBillingService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF rl")).
		WithArgs(9, 42).
		WillReturnRows(rentLogRow(0, models.RentStatusVoid))
	mock.ExpectRollback()

	_, err := svc.RecordPayment(context.Background(), 42, 9, &models.CreatePaymentRequest{Amount: decimal.NewFromInt(100)}, "")
	assert.True(t, apperror.Is(err, apperror.KindBusinessRule))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentOnForeignRentLogIsNotFound(t *testing.T) {
	svc, mock := newBillingService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF rl")).
		WithArgs(9, 7).
		WillReturnRows(pgxmock.NewRows(rentLogCols))
	mock.ExpectRollback()

	_, err := svc.RecordPayment(context.Background(), 7, 9, &models.CreatePaymentRequest{Amount: decimal.NewFromInt(100)}, "")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRequiresPositiveAmount(t *testing.T) {
	svc, mock := newBillingService(t)

	_, err := svc.RecordPayment(context.Background(), 42, 9, &models.CreatePaymentRequest{Amount: decimal.Zero}, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveOutVacatesUnitAndVoidsUnpaidLogs(t *testing.T) {
	svc, mock := newBillingService(t)
	current := 7
	moveIn := time.Date(2024, time.June, 1, 0, 0, 0, 0, timeutil.IST)
	moveOut := time.Date(2025, time.March, 31, 0, 0, 0, 0, timeutil.IST)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF u")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusOccupied, &current))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE unit_id = $1 AND active = true")).
		WithArgs(11).
		WillReturnRows(pgxmock.NewRows(tenantCols).AddRow(
			7, 11, "Meera", "9876543210", (*string)(nil), moveIn, (*time.Time)(nil),
			decimal.NewFromInt(5000), (*string)(nil), true, fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tenants SET active = false")).
		WithArgs(7, moveOut).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE units SET status = 'vacant', current_tenant_id = NULL")).
		WithArgs(11).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'void'")).
		WithArgs(7).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(42, models.AuditTenantMovedOut, "tenants", 7, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tenant, err := svc.MoveOut(context.Background(), 42, 11, &models.MoveOutRequest{MoveOutDate: "2025-03-31"}, "")
	require.NoError(t, err)
	assert.False(t, tenant.Active)
	require.NotNil(t, tenant.MoveOutDate)
	assert.True(t, tenant.MoveOutDate.Equal(moveOut))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveOutWithoutActiveTenantIsRejected(t *testing.T) {
	svc, mock := newBillingService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF u")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusVacant, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE unit_id = $1 AND active = true")).
		WithArgs(11).
		WillReturnRows(pgxmock.NewRows(tenantCols))
	mock.ExpectRollback()

	_, err := svc.MoveOut(context.Background(), 42, 11, &models.MoveOutRequest{MoveOutDate: "2025-03-31"}, "")
	assert.True(t, apperror.Is(err, apperror.KindBusinessRule))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveOutBeforeMoveInIsRejected(t *testing.T) {
	svc, mock := newBillingService(t)
	current := 7
	moveIn := time.Date(2025, time.March, 1, 0, 0, 0, 0, timeutil.IST)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF u")).
		WithArgs(11, 42).
		WillReturnRows(unitRow(models.UnitStatusOccupied, &current))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE unit_id = $1 AND active = true")).
		WithArgs(11).
		WillReturnRows(pgxmock.NewRows(tenantCols).AddRow(
			7, 11, "Meera", "1", (*string)(nil), moveIn, (*time.Time)(nil),
			decimal.NewFromInt(5000), (*string)(nil), true, fixedNow, fixedNow))
	mock.ExpectRollback()

	_, err := svc.MoveOut(context.Background(), 42, 11, &models.MoveOutRequest{MoveOutDate: "2025-02-01"}, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateMonthlyIsIdempotent(t *testing.T) {
	svc, mock := newBillingService(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (tenant_id, month) DO NOTHING")).
		WithArgs("2025-04").
		WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (tenant_id, month) DO NOTHING")).
		WithArgs("2025-04").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	first, err := svc.GenerateMonthly(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-04", first.Month)
	assert.EqualValues(t, 3, first.Inserted)

	second, err := svc.GenerateMonthly(ctx, "2025-04")
	require.NoError(t, err)
	assert.EqualValues(t, 0, second.Inserted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateMonthlyRejectsBadMonth(t *testing.T) {
	svc, mock := newBillingService(t)

	_, err := svc.GenerateMonthly(context.Background(), "2025-13")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepOverdueUsesStartOfToday(t *testing.T) {
	svc, mock := newBillingService(t)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'overdue'")).
		WithArgs(time.Date(2025, time.March, 10, 0, 0, 0, 0, timeutil.IST)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	n, err := svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledPassNotifiesConnectedOwners(t *testing.T) {
	svc, mock := newBillingService(t)
	hub := realtime.NewHub()
	svc.Events = hub
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.ServeWS(func(string) (int, error) { return 42, nil }))
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount(42) == 1 }, time.Second, 10*time.Millisecond)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (tenant_id, month) DO NOTHING")).
		WithArgs("2025-03").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'overdue'")).
		WithArgs(time.Date(2025, time.March, 10, 0, 0, 0, 0, timeutil.IST)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, svc.RunScheduledPass(context.Background()))

	for _, want := range []string{realtime.EventRentLogsCreated, realtime.EventRentLogsOverdue} {
		var got realtime.Event
		conn.SetReadDeadline(time.Now().Add(time.Second))
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, want, got.Type)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledPassSweepsWhenGenerationFails(t *testing.T) {
	svc, mock := newBillingService(t)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (tenant_id, month) DO NOTHING")).
		WithArgs("2025-03").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'overdue'")).
		WithArgs(time.Date(2025, time.March, 10, 0, 0, 0, 0, timeutil.IST)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := svc.RunScheduledPass(context.Background())
	assert.ErrorContains(t, err, "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}
