package repositories

import (
	"context"
	"fmt"
	"math"
	"time"

	"rental-backend/internal/models"
)

type ReportRepository struct {
	DB DBTX
}

func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{DB: db}
}

// reportScope builds the owner/apartment/month WHERE clause shared by the
// reports. monthExpr is the SQL expression compared against From and To.
func reportScope(ownerID int, filter models.ReportFilter, monthExpr string) (string, []interface{}) {
	whereClause := "WHERE a.owner_id = $1"
	args := []interface{}{ownerID}
	argNum := 2

	if filter.ApartmentID != nil {
		whereClause += fmt.Sprintf(" AND a.id = $%d", argNum)
		args = append(args, *filter.ApartmentID)
		argNum++
	}
	if filter.From != "" {
		whereClause += fmt.Sprintf(" AND %s >= $%d", monthExpr, argNum)
		args = append(args, filter.From)
		argNum++
	}
	if filter.To != "" {
		whereClause += fmt.Sprintf(" AND %s <= $%d", monthExpr, argNum)
		args = append(args, filter.To)
	}
	return whereClause, args
}

// Monthly aggregates billing per month and apartment. Void logs are excluded.
func (r *ReportRepository) Monthly(ctx context.Context, ownerID int, filter models.ReportFilter) ([]*models.MonthlyReportRow, error) {
	whereClause, args := reportScope(ownerID, filter, "rl.month")

	query := fmt.Sprintf(`
		SELECT rl.month, a.id, a.name,
		       COALESCE(SUM(rl.amount_due), 0),
		       COALESCE(SUM(rl.amount_paid), 0),
		       COALESCE(SUM(GREATEST(rl.amount_due - rl.amount_paid, 0)), 0),
		       COUNT(*) FILTER (WHERE rl.status = 'paid'),
		       COUNT(*) FILTER (WHERE rl.status = 'partial'),
		       COUNT(*) FILTER (WHERE rl.status = 'unpaid'),
		       COUNT(*) FILTER (WHERE rl.status = 'overdue')
		FROM rent_logs rl
		JOIN units u ON u.id = rl.unit_id
		JOIN floors f ON f.id = u.floor_id
		JOIN apartments a ON a.id = f.apartment_id
		%s AND rl.status <> 'void'
		GROUP BY rl.month, a.id, a.name
		ORDER BY rl.month DESC, a.name
	`, whereClause)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := []*models.MonthlyReportRow{}
	for rows.Next() {
		var m models.MonthlyReportRow
		if err := rows.Scan(&m.Month, &m.ApartmentID, &m.ApartmentName,
			&m.TotalExpected, &m.TotalCollected, &m.TotalOutstanding,
			&m.PaidCount, &m.PartialCount, &m.UnpaidCount, &m.OverdueCount); err != nil {
			return nil, err
		}
		report = append(report, &m)
	}
	return report, rows.Err()
}

// Occupancy evaluates every tenancy's date range against the first day of
// each of the last `months` months ending with the month containing today.
func (r *ReportRepository) Occupancy(ctx context.Context, ownerID, months int, today time.Time) ([]*models.OccupancyPoint, error) {
	query := `
		WITH months AS (
			SELECT generate_series(
				date_trunc('month', $2::date) - make_interval(months => $3 - 1),
				date_trunc('month', $2::date),
				interval '1 month'
			)::date AS month_start
		)
		SELECT to_char(m.month_start, 'YYYY-MM'), a.id, a.name,
		       (SELECT COUNT(*) FROM units u JOIN floors f ON f.id = u.floor_id
		         WHERE f.apartment_id = a.id),
		       (SELECT COUNT(DISTINCT t.unit_id) FROM tenants t
		         JOIN units u ON u.id = t.unit_id
		         JOIN floors f ON f.id = u.floor_id
		         WHERE f.apartment_id = a.id
		           AND t.move_in_date <= m.month_start
		           AND (t.move_out_date IS NULL OR t.move_out_date >= m.month_start))
		FROM months m
		CROSS JOIN apartments a
		WHERE a.owner_id = $1
		ORDER BY m.month_start DESC, a.name
	`
	rows, err := r.DB.Query(ctx, query, ownerID, today, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []*models.OccupancyPoint{}
	for rows.Next() {
		var p models.OccupancyPoint
		if err := rows.Scan(&p.Month, &p.ApartmentID, &p.ApartmentName, &p.TotalUnits, &p.OccupiedUnits); err != nil {
			return nil, err
		}
		if p.TotalUnits > 0 {
			p.OccupancyRate = math.Round(float64(p.OccupiedUnits)/float64(p.TotalUnits)*10000) / 100
		}
		points = append(points, &p)
	}
	return points, rows.Err()
}

// Overdue lists overdue logs that still carry a balance, oldest due date first.
func (r *ReportRepository) Overdue(ctx context.Context, ownerID int, apartmentID *int) ([]*models.OverdueItem, error) {
	query := `
		SELECT rl.id, rl.month, rl.due_date, rl.amount_due, rl.amount_paid,
		       rl.amount_due - rl.amount_paid,
		       t.id, t.name, t.phone, u.unit_number, f.floor_number, a.id, a.name
		FROM rent_logs rl
		JOIN tenants t ON t.id = rl.tenant_id
		JOIN units u ON u.id = rl.unit_id
		JOIN floors f ON f.id = u.floor_id
		JOIN apartments a ON a.id = f.apartment_id
		WHERE a.owner_id = $1
		  AND ($2::int IS NULL OR a.id = $2)
		  AND rl.status = 'overdue'
		  AND rl.amount_paid < rl.amount_due
		ORDER BY rl.due_date, a.name, f.floor_number, u.unit_number
	`
	rows, err := r.DB.Query(ctx, query, ownerID, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.OverdueItem{}
	for rows.Next() {
		var it models.OverdueItem
		if err := rows.Scan(&it.RentLogID, &it.Month, &it.DueDate, &it.AmountDue, &it.AmountPaid, &it.Remaining,
			&it.TenantID, &it.TenantName, &it.TenantPhone, &it.UnitNumber, &it.FloorNumber,
			&it.ApartmentID, &it.ApartmentName); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// ExportTenants returns every tenant, active or not, in the owner's
// apartments. From/To filter on the move-in month.
func (r *ReportRepository) ExportTenants(ctx context.Context, ownerID int, filter models.ReportFilter) ([]*models.TenantExportRow, error) {
	whereClause, args := reportScope(ownerID, filter, "to_char(t.move_in_date, 'YYYY-MM')")

	query := fmt.Sprintf(`
		SELECT t.name, t.phone, t.national_id, t.move_in_date, t.move_out_date, t.monthly_rent, t.notes,
		       u.unit_number, f.floor_number, a.name, t.active
		FROM tenants t
		JOIN units u ON u.id = t.unit_id
		JOIN floors f ON f.id = u.floor_id
		JOIN apartments a ON a.id = f.apartment_id
		%s
		ORDER BY a.name, f.floor_number, u.unit_number, t.move_in_date
	`, whereClause)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.TenantExportRow{}
	for rows.Next() {
		var t models.TenantExportRow
		if err := rows.Scan(&t.TenantName, &t.Phone, &t.NationalID, &t.MoveInDate, &t.MoveOutDate,
			&t.MonthlyRent, &t.Notes, &t.UnitNumber, &t.FloorNumber, &t.ApartmentName, &t.Active); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// ExportPayments returns payment records, newest first. From/To filter on the
// month the payment was made.
func (r *ReportRepository) ExportPayments(ctx context.Context, ownerID int, filter models.ReportFilter) ([]*models.PaymentExportRow, error) {
	whereClause, args := reportScope(ownerID, filter, "to_char(pr.paid_at, 'YYYY-MM')")

	query := fmt.Sprintf(`
		SELECT pr.paid_at, pr.amount, pr.payment_method, pr.note, rl.month,
		       t.name, u.unit_number, f.floor_number, a.name
		FROM payment_records pr
		JOIN rent_logs rl ON rl.id = pr.rent_log_id
		JOIN tenants t ON t.id = rl.tenant_id
		JOIN units u ON u.id = rl.unit_id
		JOIN floors f ON f.id = u.floor_id
		JOIN apartments a ON a.id = f.apartment_id
		%s
		ORDER BY pr.paid_at DESC, pr.id DESC
	`, whereClause)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.PaymentExportRow{}
	for rows.Next() {
		var p models.PaymentExportRow
		if err := rows.Scan(&p.PaidAt, &p.Amount, &p.PaymentMethod, &p.Note, &p.RentMonth,
			&p.TenantName, &p.UnitNumber, &p.FloorNumber, &p.ApartmentName); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
