package repositories

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"rental-backend/internal/models"
)

type ApartmentRepository struct {
	DB DBTX
}

func NewApartmentRepository(db DBTX) *ApartmentRepository {
	return &ApartmentRepository{DB: db}
}

const apartmentColumns = `a.id, a.owner_id, a.name, a.address, a.caretaker_name, a.caretaker_phone,
	a.floors_count, a.units_per_floor, a.rent_due_day, a.overdue_day, a.created_at, a.updated_at`

func scanApartment(row pgx.Row, extra ...any) (*models.Apartment, error) {
	var a models.Apartment
	dest := append([]any{&a.ID, &a.OwnerID, &a.Name, &a.Address, &a.CaretakerName, &a.CaretakerPhone,
		&a.FloorsCount, &a.UnitsPerFloor, &a.RentDueDay, &a.OverdueDay, &a.CreatedAt, &a.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateWithLayout inserts the apartment, floors 1..FloorsCount and
// UnitsPerFloor units on each floor in a single transaction.
func (r *ApartmentRepository) CreateWithLayout(ctx context.Context, a *models.Apartment, defaultRent decimal.Decimal) (*models.ApartmentDetail, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO apartments (owner_id, name, address, caretaker_name, caretaker_phone,
             floors_count, units_per_floor, rent_due_day, overdue_day)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         RETURNING id, created_at, updated_at`,
		a.OwnerID, a.Name, a.Address, a.CaretakerName, a.CaretakerPhone,
		a.FloorsCount, a.UnitsPerFloor, a.RentDueDay, a.OverdueDay,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	detail := &models.ApartmentDetail{Apartment: *a, Floors: make([]*models.FloorWithUnits, 0, a.FloorsCount)}

	for floorNum := 1; floorNum <= a.FloorsCount; floorNum++ {
		floor := &models.FloorWithUnits{Floor: models.Floor{
			ApartmentID: a.ID,
			FloorNumber: floorNum,
			UnitsCount:  a.UnitsPerFloor,
		}}
		err := tx.QueryRow(ctx,
			`INSERT INTO floors (apartment_id, floor_number, units_count)
             VALUES ($1, $2, $3)
             RETURNING id, created_at`,
			a.ID, floorNum, a.UnitsPerFloor,
		).Scan(&floor.ID, &floor.CreatedAt)
		if err != nil {
			return nil, err
		}

		numbers := make([]string, a.UnitsPerFloor)
		for idx := range numbers {
			numbers[idx] = models.UnitNumber(floorNum, idx+1)
		}

		rows, err := tx.Query(ctx,
			`INSERT INTO units (floor_id, unit_number, monthly_rent)
             SELECT $1, n, $3 FROM unnest($2::text[]) AS n
             RETURNING id, unit_number, monthly_rent, status, created_at, updated_at`,
			floor.ID, numbers, defaultRent)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			u := &models.UnitWithTenant{}
			u.FloorID = floor.ID
			if err := rows.Scan(&u.ID, &u.UnitNumber, &u.MonthlyRent, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
				rows.Close()
				return nil, err
			}
			floor.Units = append(floor.Units, u)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		detail.Floors = append(detail.Floors, floor)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListByOwner returns the owner's apartments with live unit counts.
func (r *ApartmentRepository) ListByOwner(ctx context.Context, ownerID int) ([]*models.ApartmentSummary, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+apartmentColumns+`,
             COUNT(DISTINCT f.id) AS actual_floors,
             COUNT(DISTINCT u.id) AS total_units,
             COUNT(DISTINCT u.id) FILTER (WHERE u.status = 'occupied') AS occupied_units,
             COALESCE(SUM(u.monthly_rent) FILTER (WHERE u.status = 'occupied'), 0) AS expected_rent
         FROM apartments a
         LEFT JOIN floors f ON f.apartment_id = a.id
         LEFT JOIN units u ON u.floor_id = f.id
         WHERE a.owner_id = $1
         GROUP BY a.id
         ORDER BY a.created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.ApartmentSummary{}
	for rows.Next() {
		s := &models.ApartmentSummary{}
		a, err := scanApartment(rows, &s.ActualFloors, &s.TotalUnits, &s.OccupiedUnits, &s.ExpectedRent)
		if err != nil {
			return nil, err
		}
		s.Apartment = *a
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetByID returns the apartment only when ownerID owns it.
func (r *ApartmentRepository) GetByID(ctx context.Context, id, ownerID int) (*models.Apartment, error) {
	return scanApartment(r.DB.QueryRow(ctx,
		`SELECT `+apartmentColumns+` FROM apartments a WHERE a.id = $1 AND a.owner_id = $2`,
		id, ownerID))
}

// GetDetail loads the apartment tree: floors, units and each unit's active tenant.
func (r *ApartmentRepository) GetDetail(ctx context.Context, id, ownerID int) (*models.ApartmentDetail, error) {
	a, err := r.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx,
		`SELECT f.id, f.floor_number, f.units_count, f.created_at,
             u.id, u.unit_number, u.monthly_rent, u.status, u.current_tenant_id, u.created_at, u.updated_at,
             t.id, t.name, t.phone
         FROM floors f
         LEFT JOIN units u ON u.floor_id = f.id
         LEFT JOIN tenants t ON t.id = u.current_tenant_id AND t.active = true
         WHERE f.apartment_id = $1
         ORDER BY f.floor_number, u.unit_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detail := &models.ApartmentDetail{Apartment: *a, Floors: []*models.FloorWithUnits{}}
	var current *models.FloorWithUnits
	for rows.Next() {
		var (
			f                        models.Floor
			unitID, tenantID         *int
			unitNumber, status       *string
			rent                     decimal.NullDecimal
			currentTenantID          *int
			unitCreated, unitUpdated *time.Time
			tenantName, tenantPhone  *string
		)
		if err := rows.Scan(&f.ID, &f.FloorNumber, &f.UnitsCount, &f.CreatedAt,
			&unitID, &unitNumber, &rent, &status, &currentTenantID, &unitCreated, &unitUpdated,
			&tenantID, &tenantName, &tenantPhone); err != nil {
			return nil, err
		}

		if current == nil || current.ID != f.ID {
			f.ApartmentID = id
			current = &models.FloorWithUnits{Floor: f, Units: []*models.UnitWithTenant{}}
			detail.Floors = append(detail.Floors, current)
		}
		if unitID == nil {
			continue
		}

		u := &models.UnitWithTenant{Unit: models.Unit{
			ID:              *unitID,
			FloorID:         f.ID,
			UnitNumber:      deref(unitNumber),
			MonthlyRent:     rent.Decimal,
			Status:          deref(status),
			CurrentTenantID: currentTenantID,
		}}
		if unitCreated != nil {
			u.CreatedAt = *unitCreated
		}
		if unitUpdated != nil {
			u.UpdatedAt = *unitUpdated
		}
		if tenantID != nil {
			u.Tenant = &models.TenantSummary{ID: *tenantID, Name: deref(tenantName), Phone: deref(tenantPhone)}
		}
		current.Units = append(current.Units, u)
	}
	return detail, rows.Err()
}

// Update applies the non-nil fields of req. Returns pgx.ErrNoRows when the
// apartment does not exist or is not owned by ownerID.
func (r *ApartmentRepository) Update(ctx context.Context, id, ownerID int, req *models.UpdateApartmentRequest) (*models.Apartment, error) {
	return scanApartment(r.DB.QueryRow(ctx,
		`UPDATE apartments a SET
             name = COALESCE($3, a.name),
             address = COALESCE($4, a.address),
             caretaker_name = COALESCE($5, a.caretaker_name),
             caretaker_phone = COALESCE($6, a.caretaker_phone),
             rent_due_day = COALESCE($7, a.rent_due_day),
             overdue_day = COALESCE($8, a.overdue_day),
             updated_at = CURRENT_TIMESTAMP
         WHERE a.id = $1 AND a.owner_id = $2
         RETURNING `+apartmentColumns,
		id, ownerID, req.Name, req.Address, req.CaretakerName, req.CaretakerPhone, req.RentDueDay, req.OverdueDay))
}

// Delete removes the apartment; floors, units, tenants and billing cascade.
func (r *ApartmentRepository) Delete(ctx context.Context, id, ownerID int) (bool, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM apartments WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Stats computes occupancy and current-month billing totals for one apartment.
func (r *ApartmentRepository) Stats(ctx context.Context, id, ownerID int, month string) (*models.ApartmentStats, error) {
	var s models.ApartmentStats
	err := r.DB.QueryRow(ctx,
		`WITH apt_units AS (
             SELECT u.* FROM units u
             JOIN floors f ON f.id = u.floor_id
             WHERE f.apartment_id = $1
         ),
         apt_logs AS (
             SELECT rl.* FROM rent_logs rl
             JOIN apt_units u ON u.id = rl.unit_id
         )
         SELECT
             (SELECT COUNT(*) FROM floors WHERE apartment_id = $1),
             (SELECT COUNT(*) FROM apt_units),
             (SELECT COUNT(*) FROM apt_units WHERE status = 'occupied'),
             (SELECT COUNT(*) FROM apt_units WHERE status = 'vacant'),
             (SELECT COALESCE(SUM(monthly_rent), 0) FROM apt_units WHERE status = 'occupied'),
             (SELECT COALESCE(SUM(amount_paid), 0) FROM apt_logs WHERE month = $3 AND status <> 'void'),
             (SELECT COALESCE(SUM(amount_due - amount_paid), 0) FROM apt_logs
                 WHERE month = $3 AND status IN ('unpaid', 'partial', 'overdue')),
             (SELECT COUNT(*) FROM apt_logs WHERE status = 'overdue')
         FROM apartments a
         WHERE a.id = $1 AND a.owner_id = $2`,
		id, ownerID, month,
	).Scan(&s.TotalFloors, &s.TotalUnits, &s.OccupiedUnits, &s.VacantUnits,
		&s.ExpectedRent, &s.CollectedRent, &s.OutstandingRent, &s.OverdueCount)
	if err != nil {
		return nil, err
	}
	if s.TotalUnits > 0 {
		s.OccupancyRate = int(math.Round(float64(s.OccupiedUnits) / float64(s.TotalUnits) * 100))
	}
	return &s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
