package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"rental-backend/internal/models"
)

type OnlineTransactionRepository struct {
	DB DBTX
}

func NewOnlineTransactionRepository(db DBTX) *OnlineTransactionRepository {
	return &OnlineTransactionRepository{DB: db}
}

// WithTx returns a copy bound to tx.
func (r *OnlineTransactionRepository) WithTx(tx pgx.Tx) *OnlineTransactionRepository {
	return &OnlineTransactionRepository{DB: tx}
}

const onlineTxColumns = `id, razorpay_order_id, razorpay_payment_id, rent_log_id, owner_id, receipt,
	amount, currency, status, payment_method, failure_reason, payment_record_id, created_at, completed_at`

// Create records a pending order raised against a rent log
func (r *OnlineTransactionRepository) Create(ctx context.Context, tx *models.OnlineTransaction) error {
	query := `
		INSERT INTO online_transactions (razorpay_order_id, rent_log_id, owner_id, receipt, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.DB.QueryRow(ctx, query,
		tx.RazorpayOrderID,
		tx.RentLogID,
		tx.OwnerID,
		tx.Receipt,
		tx.Amount,
		tx.Currency,
		models.OnlineTxStatusPending,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create online transaction: %w", err)
	}

	tx.Status = models.OnlineTxStatusPending
	return nil
}

// GetByOrderID retrieves a transaction by Razorpay order ID. With lock set
// the row is held until the surrounding transaction ends, which serialises
// duplicate webhook deliveries.
func (r *OnlineTransactionRepository) GetByOrderID(ctx context.Context, orderID string, lock bool) (*models.OnlineTransaction, error) {
	query := `SELECT ` + onlineTxColumns + ` FROM online_transactions WHERE razorpay_order_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	tx := &models.OnlineTransaction{}
	err := r.DB.QueryRow(ctx, query, orderID).Scan(
		&tx.ID, &tx.RazorpayOrderID, &tx.RazorpayPaymentID, &tx.RentLogID, &tx.OwnerID, &tx.Receipt,
		&tx.Amount, &tx.Currency, &tx.Status, &tx.PaymentMethod, &tx.FailureReason, &tx.PaymentRecordID,
		&tx.CreatedAt, &tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// MarkSuccess closes the order and links it to the payment record it produced
func (r *OnlineTransactionRepository) MarkSuccess(ctx context.Context, orderID, paymentID, method string, paymentRecordID int) error {
	query := `
		UPDATE online_transactions
		SET razorpay_payment_id = $2, payment_method = $3, payment_record_id = $4,
		    status = $5, completed_at = $6
		WHERE razorpay_order_id = $1
	`
	_, err := r.DB.Exec(ctx, query,
		orderID, paymentID, method, paymentRecordID, models.OnlineTxStatusSuccess, time.Now())
	return err
}

// MarkFailed marks the transaction as failed
func (r *OnlineTransactionRepository) MarkFailed(ctx context.Context, orderID, paymentID, reason string) error {
	query := `
		UPDATE online_transactions
		SET razorpay_payment_id = NULLIF($2, ''), status = $3, failure_reason = $4, completed_at = $5
		WHERE razorpay_order_id = $1 AND status = 'pending'
	`
	_, err := r.DB.Exec(ctx, query, orderID, paymentID, models.OnlineTxStatusFailed, reason, time.Now())
	return err
}
