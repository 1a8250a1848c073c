package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"rental-backend/internal/models"
)

type UnitRepository struct {
	DB DBTX
}

func NewUnitRepository(db DBTX) *UnitRepository {
	return &UnitRepository{DB: db}
}

// WithTx returns a copy bound to tx.
func (r *UnitRepository) WithTx(tx pgx.Tx) *UnitRepository {
	return &UnitRepository{DB: tx}
}

const unitLocationQuery = `SELECT u.id, u.floor_id, u.unit_number, u.monthly_rent, u.status, u.current_tenant_id,
         u.created_at, u.updated_at, f.floor_number, a.id, a.name, a.owner_id, a.rent_due_day
     FROM units u
     JOIN floors f ON f.id = u.floor_id
     JOIN apartments a ON a.id = f.apartment_id
     WHERE u.id = $1 AND a.owner_id = $2`

// GetLocation loads a unit with its floor and apartment, scoped to the owner.
// With lock set the unit row is held FOR UPDATE until the transaction ends.
func (r *UnitRepository) GetLocation(ctx context.Context, unitID, ownerID int, lock bool) (*models.UnitLocation, error) {
	query := unitLocationQuery
	if lock {
		query += ` FOR UPDATE OF u`
	}

	var l models.UnitLocation
	err := r.DB.QueryRow(ctx, query, unitID, ownerID).Scan(
		&l.ID, &l.FloorID, &l.UnitNumber, &l.MonthlyRent, &l.Status, &l.CurrentTenantID,
		&l.CreatedAt, &l.UpdatedAt, &l.FloorNumber, &l.ApartmentID, &l.ApartmentName, &l.OwnerID, &l.RentDueDay)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *UnitRepository) MarkOccupied(ctx context.Context, unitID, tenantID int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE units SET status = 'occupied', current_tenant_id = $2, updated_at = CURRENT_TIMESTAMP
         WHERE id = $1`, unitID, tenantID)
	return err
}

func (r *UnitRepository) MarkVacant(ctx context.Context, unitID int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE units SET status = 'vacant', current_tenant_id = NULL, updated_at = CURRENT_TIMESTAMP
         WHERE id = $1`, unitID)
	return err
}

func (r *UnitRepository) UpdateRent(ctx context.Context, unitID int, rent decimal.Decimal) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE units SET monthly_rent = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		unitID, rent)
	return err
}
