package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"rental-backend/internal/models"
)

type PaymentRepository struct {
	DB DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

// WithTx returns a copy bound to tx.
func (r *PaymentRepository) WithTx(tx pgx.Tx) *PaymentRepository {
	return &PaymentRepository{DB: tx}
}

// Create appends a payment record. Records are never updated or deleted.
func (r *PaymentRepository) Create(ctx context.Context, p *models.PaymentRecord) error {
	if p.PaymentMethod == "" {
		p.PaymentMethod = models.PaymentMethodCash
	}
	query := `
		INSERT INTO payment_records (rent_log_id, amount, paid_at, payment_method, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.DB.QueryRow(ctx, query,
		p.RentLogID, p.Amount, p.PaidAt, p.PaymentMethod, p.Note, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt)
}

// ListByRentLogs returns payments for the given rent logs, newest first,
// grouped by rent log id.
func (r *PaymentRepository) ListByRentLogs(ctx context.Context, rentLogIDs []int) (map[int][]*models.PaymentRecord, error) {
	out := make(map[int][]*models.PaymentRecord, len(rentLogIDs))
	if len(rentLogIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT p.id, p.rent_log_id, p.amount, p.paid_at, p.payment_method, p.note, p.created_by,
		       COALESCE(u.name, ''), p.created_at
		FROM payment_records p
		LEFT JOIN users u ON u.id = p.created_by
		WHERE p.rent_log_id = ANY($1)
		ORDER BY p.paid_at DESC, p.id DESC
	`
	rows, err := r.DB.Query(ctx, query, rentLogIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.PaymentRecord
		if err := rows.Scan(&p.ID, &p.RentLogID, &p.Amount, &p.PaidAt, &p.PaymentMethod, &p.Note,
			&p.CreatedBy, &p.CreatedByName, &p.CreatedAt); err != nil {
			return nil, err
		}
		out[p.RentLogID] = append(out[p.RentLogID], &p)
	}
	return out, rows.Err()
}

// GetReceipt loads a payment with its tenancy context for receipt printing.
// Payments outside ownerID's apartments yield pgx.ErrNoRows.
func (r *PaymentRepository) GetReceipt(ctx context.Context, paymentID, ownerID int) (*models.PaymentReceipt, error) {
	query := `
		SELECT p.id, p.rent_log_id, p.amount, p.paid_at, p.payment_method, p.note, p.created_by,
		       COALESCE(usr.name, ''), p.created_at,
		       ` + rentLogColumns + `,
		       t.name, t.phone, un.unit_number, f.floor_number, a.name, a.address, a.owner_id
		FROM payment_records p
		JOIN rent_logs rl ON rl.id = p.rent_log_id
		JOIN tenants t ON t.id = rl.tenant_id
		JOIN units un ON un.id = rl.unit_id
		JOIN floors f ON f.id = un.floor_id
		JOIN apartments a ON a.id = f.apartment_id
		LEFT JOIN users usr ON usr.id = p.created_by
		WHERE p.id = $1 AND a.owner_id = $2
	`
	var rc models.PaymentReceipt
	p, l := &rc.Payment, &rc.RentLog
	err := r.DB.QueryRow(ctx, query, paymentID, ownerID).Scan(
		&p.ID, &p.RentLogID, &p.Amount, &p.PaidAt, &p.PaymentMethod, &p.Note, &p.CreatedBy,
		&p.CreatedByName, &p.CreatedAt,
		&l.ID, &l.TenantID, &l.UnitID, &l.Month, &l.DueDate, &l.AmountDue, &l.AmountPaid,
		&l.Status, &l.CreatedAt, &l.UpdatedAt,
		&rc.TenantName, &rc.TenantPhone, &rc.UnitNumber, &rc.FloorNumber, &rc.ApartmentName, &rc.Address, &rc.OwnerID,
	)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}
