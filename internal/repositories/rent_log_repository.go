package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"rental-backend/internal/models"
)

type RentLogRepository struct {
	DB DBTX
}

func NewRentLogRepository(db DBTX) *RentLogRepository {
	return &RentLogRepository{DB: db}
}

// WithTx returns a copy bound to tx.
func (r *RentLogRepository) WithTx(tx pgx.Tx) *RentLogRepository {
	return &RentLogRepository{DB: tx}
}

const rentLogColumns = `rl.id, rl.tenant_id, rl.unit_id, rl.month, rl.due_date, rl.amount_due, rl.amount_paid,
	rl.status, rl.created_at, rl.updated_at`

func scanRentLog(row pgx.Row) (*models.RentLog, error) {
	var l models.RentLog
	err := row.Scan(&l.ID, &l.TenantID, &l.UnitID, &l.Month, &l.DueDate, &l.AmountDue, &l.AmountPaid,
		&l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a rent log. The (tenant_id, month) unique key rejects duplicates.
func (r *RentLogRepository) Create(ctx context.Context, l *models.RentLog) error {
	if l.Status == "" {
		l.Status = models.RentStatusUnpaid
	}
	query := `
		INSERT INTO rent_logs (tenant_id, unit_id, month, due_date, amount_due, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, amount_paid, created_at, updated_at
	`
	return r.DB.QueryRow(ctx, query,
		l.TenantID, l.UnitID, l.Month, l.DueDate, l.AmountDue, l.Status,
	).Scan(&l.ID, &l.AmountPaid, &l.CreatedAt, &l.UpdatedAt)
}

// GetForOwner loads a rent log only if it belongs to one of ownerID's
// apartments. With lock set the row is held FOR UPDATE.
func (r *RentLogRepository) GetForOwner(ctx context.Context, id, ownerID int, lock bool) (*models.RentLog, error) {
	query := `
		SELECT ` + rentLogColumns + `
		FROM rent_logs rl
		JOIN units u ON u.id = rl.unit_id
		JOIN floors f ON f.id = u.floor_id
		JOIN apartments a ON a.id = f.apartment_id
		WHERE rl.id = $1 AND a.owner_id = $2
	`
	if lock {
		query += ` FOR UPDATE OF rl`
	}
	return scanRentLog(r.DB.QueryRow(ctx, query, id, ownerID))
}

// GetByID loads a rent log without an ownership check (webhook path).
func (r *RentLogRepository) GetByID(ctx context.Context, id int, lock bool) (*models.RentLog, error) {
	query := `SELECT ` + rentLogColumns + ` FROM rent_logs rl WHERE rl.id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	return scanRentLog(r.DB.QueryRow(ctx, query, id))
}

// ApplyPayment stores the new running total and status.
func (r *RentLogRepository) ApplyPayment(ctx context.Context, l *models.RentLog) error {
	query := `
		UPDATE rent_logs SET amount_paid = $2, status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at
	`
	return r.DB.QueryRow(ctx, query, l.ID, l.AmountPaid, l.Status).Scan(&l.UpdatedAt)
}

// VoidUnpaidForTenant marks the tenant's untouched logs void. Partial and
// overdue logs keep their status.
func (r *RentLogRepository) VoidUnpaidForTenant(ctx context.Context, tenantID int) (int64, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE rent_logs SET status = 'void', updated_at = CURRENT_TIMESTAMP
		 WHERE tenant_id = $1 AND status = 'unpaid'`, tenantID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GenerateForMonth creates the month's log for every active tenant that
// lacks one. Re-running for the same month inserts nothing.
func (r *RentLogRepository) GenerateForMonth(ctx context.Context, month string) (int64, error) {
	query := `
		INSERT INTO rent_logs (tenant_id, unit_id, month, due_date, amount_due, status)
		SELECT t.id, t.unit_id, $1,
		       (to_date($1, 'YYYY-MM') + (LEAST(GREATEST(a.rent_due_day, 1), 28) - 1))::date,
		       t.monthly_rent, 'unpaid'
		FROM tenants t
		JOIN units u ON u.id = t.unit_id
		JOIN floors f ON f.id = u.floor_id
		JOIN apartments a ON a.id = f.apartment_id
		WHERE t.active = true
		  AND NOT EXISTS (
		      SELECT 1 FROM rent_logs rl WHERE rl.tenant_id = t.id AND rl.month = $1
		  )
		ON CONFLICT (tenant_id, month) DO NOTHING
	`
	tag, err := r.DB.Exec(ctx, query, month)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SweepOverdue moves unpaid and partial logs past their apartment's grace
// period to overdue. It never moves a log out of overdue.
func (r *RentLogRepository) SweepOverdue(ctx context.Context, today time.Time) (int64, error) {
	query := `
		UPDATE rent_logs rl SET status = 'overdue', updated_at = CURRENT_TIMESTAMP
		FROM units u
		JOIN floors f ON f.id = u.floor_id
		JOIN apartments a ON a.id = f.apartment_id
		WHERE rl.unit_id = u.id
		  AND rl.status IN ('unpaid', 'partial')
		  AND rl.amount_paid < rl.amount_due
		  AND rl.due_date < ($1::date - a.overdue_day)
	`
	tag, err := r.DB.Exec(ctx, query, today)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByTenant returns a tenant's logs, newest month first.
func (r *RentLogRepository) ListByTenant(ctx context.Context, tenantID int) ([]*models.RentLog, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+rentLogColumns+` FROM rent_logs rl WHERE rl.tenant_id = $1 ORDER BY rl.month DESC`,
		tenantID)
	if err != nil {
		return nil, err
	}
	return collectRentLogs(rows)
}

// ListByUnit returns a unit's logs across all tenants, filtered and limited.
func (r *RentLogRepository) ListByUnit(ctx context.Context, unitID int, filter models.PaymentHistoryFilter) ([]*models.RentLog, error) {
	conditions := []string{"rl.unit_id = $1"}
	args := []any{unitID}

	if filter.Month != "" {
		args = append(args, filter.Month)
		conditions = append(conditions, fmt.Sprintf("rl.month = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("rl.status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 12
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM rent_logs rl WHERE %s ORDER BY rl.month DESC LIMIT $%d`,
		rentLogColumns, strings.Join(conditions, " AND "), len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRentLogs(rows)
}

// OutstandingBalance is amount_due minus amount_paid, floored at zero.
func OutstandingBalance(l *models.RentLog) decimal.Decimal {
	b := l.Balance()
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

func collectRentLogs(rows pgx.Rows) ([]*models.RentLog, error) {
	defer rows.Close()

	logs := []*models.RentLog{}
	for rows.Next() {
		l, err := scanRentLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
