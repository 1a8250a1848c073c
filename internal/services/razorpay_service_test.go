package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/apperror"
	"rental-backend/internal/models"
	"rental-backend/internal/repositories"
)

type fakeOrders struct {
	data map[string]interface{}
	err  error
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.data = data
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{"id": "order_123", "status": "created"}, nil
}

func newRazorpayService(t *testing.T) (*RazorpayService, pgxmock.PgxPoolIface) {
	t.Helper()
	billing, mock := newBillingService(t)
	svc := NewRazorpayService("", "key_secret", "hook_secret", "INR",
		repositories.NewOnlineTransactionRepository(mock), billing)
	return svc, mock
}

var onlineTxCols = []string{"id", "razorpay_order_id", "razorpay_payment_id", "rent_log_id", "owner_id", "receipt",
	"amount", "currency", "status", "payment_method", "failure_reason", "payment_record_id", "created_at", "completed_at"}

func onlineTxRow(status models.OnlineTransactionStatus) *pgxmock.Rows {
	return pgxmock.NewRows(onlineTxCols).AddRow(
		1, "order_123", (*string)(nil), 9, 42, "rl_9_abc", decimal.NewFromInt(3000), "INR", status,
		(*string)(nil), (*string)(nil), (*int)(nil), fixedNow, (*time.Time)(nil))
}

func TestWebhookSignature(t *testing.T) {
	svc, _ := newRazorpayService(t)
	body := []byte(`{"event":"payment.captured"}`)

	assert.True(t, svc.VerifyWebhookSignature(body, signHex("hook_secret", body)))
	assert.False(t, svc.VerifyWebhookSignature(body, signHex("other_secret", body)))
	assert.False(t, svc.VerifyWebhookSignature(append(body, ' '), signHex("hook_secret", body)))
	assert.False(t, svc.VerifyWebhookSignature(body, ""))

	svc.webhookSecret = ""
	assert.False(t, svc.VerifyWebhookSignature(body, signHex("", body)))
}

func TestCreateOrderForOutstandingBalance(t *testing.T) {
	svc, mock := newRazorpayService(t)
	orders := &fakeOrders{}
	svc.orders = orders

	mock.ExpectQuery(regexp.QuoteMeta("WHERE rl.id = $1 AND a.owner_id = $2")).
		WithArgs(9, 42).
		WillReturnRows(rentLogRow(2000, models.RentStatusPartial))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO online_transactions")).
		WithArgs("order_123", 9, 42, pgxmock.AnyArg(), amount(3000), "INR", models.OnlineTxStatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(1, fixedNow))

	res, err := svc.CreateOrder(context.Background(), 42, 9)
	require.NoError(t, err)
	assert.Equal(t, "order_123", res.OrderID)
	assert.EqualValues(t, 300000, res.AmountPaise)
	assert.EqualValues(t, 300000, orders.data["amount"])
	assert.Regexp(t, `^rl_9_[0-9a-f]{16}$`, res.Receipt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderOnPaidLogIsRejected(t *testing.T) {
	svc, mock := newRazorpayService(t)
	svc.orders = &fakeOrders{}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE rl.id = $1 AND a.owner_id = $2")).
		WithArgs(9, 42).
		WillReturnRows(rentLogRow(5000, models.RentStatusPaid))

	_, err := svc.CreateOrder(context.Background(), 42, 9)
	assert.True(t, apperror.Is(err, apperror.KindBusinessRule))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderGatewayError(t *testing.T) {
	svc, mock := newRazorpayService(t)
	svc.orders = &fakeOrders{err: errors.New("gateway down")}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE rl.id = $1 AND a.owner_id = $2")).
		WithArgs(9, 42).
		WillReturnRows(rentLogRow(0, models.RentStatusUnpaid))

	_, err := svc.CreateOrder(context.Background(), 42, 9)
	assert.ErrorContains(t, err, "gateway down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderWithoutCredentials(t *testing.T) {
	svc, _ := newRazorpayService(t)

	_, err := svc.CreateOrder(context.Background(), 42, 9)
	assert.True(t, apperror.Is(err, apperror.KindBusinessRule))
}

const capturedWebhook = `{"event":"payment.captured","payload":{"payment":{"entity":
	{"id":"pay_1","order_id":"order_123","amount":300000,"method":"upi"}}}}`

func TestCapturedWebhookAppliesPayment(t *testing.T) {
	svc, mock := newRazorpayService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM online_transactions WHERE razorpay_order_id = $1 FOR UPDATE")).
		WithArgs("order_123").
		WillReturnRows(onlineTxRow(models.OnlineTxStatusPending))
	mock.ExpectQuery(regexp.QuoteMeta("FROM rent_logs rl WHERE rl.id = $1 FOR UPDATE")).
		WithArgs(9).
		WillReturnRows(rentLogRow(2000, models.RentStatusPartial))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payment_records")).
		WithArgs(9, amount(3000), fixedNow, models.PaymentMethodOnline, pgxmock.AnyArg(), (*int)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(100, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE rent_logs SET amount_paid")).
		WithArgs(9, amount(5000), models.RentStatusPaid).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(42, models.AuditPaymentCreated, "payment_records", 100, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE online_transactions")).
		WithArgs("order_123", "pay_1", "upi", 100, models.OnlineTxStatusSuccess, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, svc.ProcessWebhook(context.Background(), []byte(capturedWebhook)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateCapturedWebhookIsNoop(t *testing.T) {
	svc, mock := newRazorpayService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM online_transactions WHERE razorpay_order_id = $1 FOR UPDATE")).
		WithArgs("order_123").
		WillReturnRows(onlineTxRow(models.OnlineTxStatusSuccess))
	mock.ExpectRollback()

	require.NoError(t, svc.ProcessWebhook(context.Background(), []byte(capturedWebhook)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedWebhookMarksTransaction(t *testing.T) {
	svc, mock := newRazorpayService(t)
	body := `{"event":"payment.failed","payload":{"payment":{"entity":
		{"id":"pay_2","order_id":"order_123","error_description":"Card declined"}}}}`

	mock.ExpectExec(regexp.QuoteMeta("AND status = 'pending'")).
		WithArgs("order_123", "pay_2", models.OnlineTxStatusFailed, "Card declined", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, svc.ProcessWebhook(context.Background(), []byte(body)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	svc, _ := newRazorpayService(t)

	err := svc.ProcessWebhook(context.Background(), []byte("not json"))
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
