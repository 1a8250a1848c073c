package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"rental-backend/internal/apperror"
	"rental-backend/internal/models"
	"rental-backend/internal/repositories"
)

// orderCreator is the slice of the Razorpay client used to open orders.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayService collects rent online. Captured payments are applied to the
// rent log through the same path as manual payments.
type RazorpayService struct {
	Transactions *repositories.OnlineTransactionRepository
	Billing      *BillingService

	orders        orderCreator
	keyID         string
	keySecret     string
	webhookSecret string
	currency      string
}

func NewRazorpayService(
	keyID, keySecret, webhookSecret, currency string,
	transactions *repositories.OnlineTransactionRepository,
	billing *BillingService,
) *RazorpayService {
	s := &RazorpayService{
		Transactions:  transactions,
		Billing:       billing,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		currency:      currency,
	}
	if s.currency == "" {
		s.currency = "INR"
	}
	if keyID != "" && keySecret != "" {
		s.orders = razorpay.NewClient(keyID, keySecret).Order
	} else {
		log.Printf("[Razorpay] Credentials not configured, online payments disabled")
	}
	return s
}

// Enabled reports whether orders can be created.
func (s *RazorpayService) Enabled() bool {
	return s.orders != nil
}

// CreateOrder opens a Razorpay order for the outstanding balance of a rent log.
func (s *RazorpayService) CreateOrder(ctx context.Context, ownerID, rentLogID int) (*models.CreateOrderResponse, error) {
	if !s.Enabled() {
		return nil, apperror.BusinessRule("Online payments are not configured")
	}

	rentLog, err := s.Billing.RentLogs.GetForOwner(ctx, rentLogID, ownerID, false)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("Rent log")
		}
		return nil, err
	}
	if rentLog.Status == models.RentStatusVoid {
		return nil, errVoidRentLog
	}

	balance := repositories.OutstandingBalance(rentLog)
	if !balance.IsPositive() {
		return nil, apperror.BusinessRule("Rent log has no outstanding balance")
	}
	amountPaise := balance.Shift(2).IntPart()

	receipt := fmt.Sprintf("rl_%d_%s", rentLog.ID, strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
	order, err := s.orders.Create(map[string]interface{}{
		"amount":   amountPaise,
		"currency": s.currency,
		"receipt":  receipt,
		"notes": map[string]interface{}{
			"rent_log_id": rentLog.ID,
			"month":       rentLog.Month,
			"owner_id":    ownerID,
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}
	orderID, ok := order["id"].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("razorpay order response has no id")
	}

	tr := &models.OnlineTransaction{
		RazorpayOrderID: orderID,
		RentLogID:       rentLog.ID,
		OwnerID:         ownerID,
		Receipt:         receipt,
		Amount:          balance,
		Currency:        s.currency,
	}
	if err := s.Transactions.Create(ctx, tr); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}

	log.Printf("[Razorpay] Order %s for rent log %d (%s %s)", orderID, rentLog.ID, balance.StringFixed(2), s.currency)
	return &models.CreateOrderResponse{
		OrderID:     orderID,
		AmountPaise: amountPaise,
		Currency:    s.currency,
		KeyID:       s.keyID,
		Receipt:     receipt,
	}, nil
}

func signHex(secret string, data []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyWebhookSignature checks X-Razorpay-Signature against the raw body.
// Without a configured webhook secret every delivery is rejected.
func (s *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" || signature == "" {
		return false
	}
	expected := signHex(s.webhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyCheckout settles an order from the browser callback. The signature
// is HMAC(order_id|payment_id) under the key secret.
func (s *RazorpayService) VerifyCheckout(ctx context.Context, ownerID int, req *models.VerifyCheckoutRequest) (*models.OnlineTransaction, error) {
	if s.keySecret == "" {
		return nil, apperror.BusinessRule("Online payments are not configured")
	}
	expected := signHex(s.keySecret, []byte(req.RazorpayOrderID+"|"+req.RazorpayPaymentID))
	if !hmac.Equal([]byte(expected), []byte(req.RazorpaySignature)) {
		return nil, apperror.Validation("Invalid payment signature")
	}

	tr, err := s.Transactions.GetByOrderID(ctx, req.RazorpayOrderID, false)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("Transaction")
		}
		return nil, err
	}
	if tr.OwnerID != ownerID {
		return nil, apperror.NotFound("Transaction")
	}

	if err := s.settle(ctx, req.RazorpayOrderID, req.RazorpayPaymentID, "", 0); err != nil {
		return nil, err
	}
	return s.Transactions.GetByOrderID(ctx, req.RazorpayOrderID, false)
}

// ProcessWebhook handles a verified webhook body. Deliveries for orders that
// are already settled are acknowledged without side effects.
func (s *RazorpayService) ProcessWebhook(ctx context.Context, body []byte) error {
	var payload models.RazorpayWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return apperror.Validation("Invalid webhook payload")
	}
	entity := payload.Payload.Payment.Entity

	switch payload.Event {
	case "payment.captured", "order.paid":
		if entity.OrderID == "" {
			return apperror.Validation("Webhook payment has no order id")
		}
		return s.settle(ctx, entity.OrderID, entity.ID, entity.Method, entity.Amount)
	case "payment.failed":
		reason := entity.ErrorDescription
		if reason == "" {
			reason = "payment failed"
		}
		if err := s.Transactions.MarkFailed(ctx, entity.OrderID, entity.ID, reason); err != nil {
			return fmt.Errorf("failed to mark transaction failed: %w", err)
		}
		log.Printf("[Razorpay] Order %s failed: %s", entity.OrderID, reason)
		return nil
	default:
		log.Printf("[Razorpay] Ignoring webhook event %s", payload.Event)
		return nil
	}
}

// settle applies a captured payment to the order's rent log exactly once.
// amountPaise of 0 means the amount stored on the order.
func (s *RazorpayService) settle(ctx context.Context, orderID, paymentID, method string, amountPaise int64) error {
	b := s.Billing
	tx, err := b.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	transactions := s.Transactions.WithTx(tx)
	tr, err := transactions.GetByOrderID(ctx, orderID, true)
	if err != nil {
		if repositories.IsNotFound(err) {
			return apperror.NotFound("Transaction")
		}
		return err
	}
	if tr.Status == models.OnlineTxStatusSuccess {
		return nil
	}

	rentLog, err := b.RentLogs.WithTx(tx).GetByID(ctx, tr.RentLogID, true)
	if err != nil {
		return fmt.Errorf("failed to load rent log %d: %w", tr.RentLogID, err)
	}

	amount := tr.Amount
	if amountPaise > 0 {
		amount = decimal.New(amountPaise, -2)
	}
	note := "Razorpay " + paymentID
	payment := &models.PaymentRecord{
		Amount:        amount,
		PaymentMethod: models.PaymentMethodOnline,
		Note:          &note,
	}
	if err := b.applyPayment(ctx, tx, tr.OwnerID, rentLog, payment, ""); err != nil {
		if apperror.Is(err, apperror.KindBusinessRule) {
			if ferr := transactions.MarkFailed(ctx, orderID, paymentID, err.Error()); ferr != nil {
				return ferr
			}
			log.Printf("[Razorpay] Order %s captured but not applied: %v", orderID, err)
			return tx.Commit(ctx)
		}
		return err
	}

	if err := transactions.MarkSuccess(ctx, orderID, paymentID, method, payment.ID); err != nil {
		return fmt.Errorf("failed to mark transaction success: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("[Razorpay] Order %s settled as payment %d", orderID, payment.ID)
	b.paymentCommitted(ctx, tr.OwnerID, rentLog, payment)
	return nil
}
