package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"rental-backend/internal/models"
)

type TenantRepository struct {
	DB DBTX
}

func NewTenantRepository(db DBTX) *TenantRepository {
	return &TenantRepository{DB: db}
}

// WithTx returns a copy bound to tx.
func (r *TenantRepository) WithTx(tx pgx.Tx) *TenantRepository {
	return &TenantRepository{DB: tx}
}

const tenantColumns = `id, unit_id, name, phone, national_id, move_in_date, move_out_date,
	monthly_rent, notes, active, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.UnitID, &t.Name, &t.Phone, &t.NationalID, &t.MoveInDate, &t.MoveOutDate,
		&t.MonthlyRent, &t.Notes, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) Create(ctx context.Context, t *models.Tenant) error {
	t.Active = true
	return r.DB.QueryRow(ctx,
		`INSERT INTO tenants (unit_id, name, phone, national_id, move_in_date, monthly_rent, notes)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at, updated_at`,
		t.UnitID, t.Name, t.Phone, t.NationalID, t.MoveInDate, t.MonthlyRent, t.Notes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// GetActiveByUnit returns the unit's current tenant or pgx.ErrNoRows.
func (r *TenantRepository) GetActiveByUnit(ctx context.Context, unitID int) (*models.Tenant, error) {
	return scanTenant(r.DB.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE unit_id = $1 AND active = true
         ORDER BY move_in_date DESC LIMIT 1`, unitID))
}

// ListPreviousByUnit returns inactive tenants, most recent move-out first.
func (r *TenantRepository) ListPreviousByUnit(ctx context.Context, unitID int) ([]*models.Tenant, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE unit_id = $1 AND active = false
         ORDER BY move_out_date DESC NULLS LAST`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := []*models.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// MoveOut deactivates an active tenant. Reports false when the tenant was
// already inactive.
func (r *TenantRepository) MoveOut(ctx context.Context, tenantID int, moveOutDate time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE tenants SET active = false, move_out_date = $2, updated_at = CURRENT_TIMESTAMP
         WHERE id = $1 AND active = true`, tenantID, moveOutDate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TenantRepository) UpdateRent(ctx context.Context, tenantID int, rent decimal.Decimal) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE tenants SET monthly_rent = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		tenantID, rent)
	return err
}
