package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"

	"rental-backend/internal/apperror"
	"rental-backend/internal/cache"
	"rental-backend/internal/models"
	"rental-backend/internal/repositories"
	"rental-backend/internal/storage"
	"rental-backend/internal/timeutil"
)

const (
	defaultOccupancyMonths = 6
	maxOccupancyMonths     = 36
)

// exportUploader is the part of storage.ExportStore the report service needs.
type exportUploader interface {
	Key(ownerID int, name string) string
	Put(ctx context.Context, key string, data []byte, contentType string) (string, time.Time, error)
}

// ReportService serves the owner's read-only reports, CSV exports and
// payment receipts.
type ReportService struct {
	Repo     *repositories.ReportRepository
	Payments *repositories.PaymentRepository

	exports exportUploader
	now     func() time.Time
}

func NewReportService(repo *repositories.ReportRepository, payments *repositories.PaymentRepository, exports *storage.ExportStore) *ReportService {
	s := &ReportService{Repo: repo, Payments: payments, now: timeutil.Now}
	if exports != nil {
		s.exports = exports
	}
	return s
}

func validateFilter(filter models.ReportFilter) error {
	for field, value := range map[string]string{"from": filter.From, "to": filter.To} {
		if value == "" {
			continue
		}
		if _, err := timeutil.ParseMonth(value); err != nil {
			return apperror.Validation("Invalid month filter",
				apperror.FieldError{Field: field, Message: "must be in YYYY-MM format"})
		}
	}
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		return apperror.Validation("Invalid month range",
			apperror.FieldError{Field: "from", Message: "must not be after to"})
	}
	return nil
}

func filterKey(filter models.ReportFilter) string {
	apt := "all"
	if filter.ApartmentID != nil {
		apt = strconv.Itoa(*filter.ApartmentID)
	}
	return fmt.Sprintf("apt=%s:from=%s:to=%s", apt, filter.From, filter.To)
}

// cached serves key from Redis when present, otherwise runs load and stores
// the result.
func cached[T any](ctx context.Context, key string, load func() (T, error)) (T, error) {
	if data, ok := cache.GetCached(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err == nil {
		cache.SetCached(ctx, key, data, cache.ReportTTL)
	}
	return v, nil
}

// Monthly returns expected, collected and outstanding totals per month and apartment.
func (s *ReportService) Monthly(ctx context.Context, ownerID int, filter models.ReportFilter) ([]*models.MonthlyReportRow, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	key := cache.ReportKey(ownerID, "monthly:"+filterKey(filter))
	return cached(ctx, key, func() ([]*models.MonthlyReportRow, error) {
		return s.Repo.Monthly(ctx, ownerID, filter)
	})
}

// Occupancy returns per-apartment occupancy for the last months months.
func (s *ReportService) Occupancy(ctx context.Context, ownerID, months int) ([]*models.OccupancyPoint, error) {
	if months == 0 {
		months = defaultOccupancyMonths
	}
	if months < 1 || months > maxOccupancyMonths {
		return nil, apperror.Validation("Invalid months",
			apperror.FieldError{Field: "months", Message: "must be between 1 and 36"})
	}

	today := timeutil.StartOfDay(s.now())
	key := cache.ReportKey(ownerID, fmt.Sprintf("occupancy:%d:%s", months, timeutil.MonthKey(today)))
	return cached(ctx, key, func() ([]*models.OccupancyPoint, error) {
		return s.Repo.Occupancy(ctx, ownerID, months, today)
	})
}

// Overdue lists overdue rent logs with the total still owed.
func (s *ReportService) Overdue(ctx context.Context, ownerID int, apartmentID *int) (*models.OverdueReport, error) {
	key := cache.ReportKey(ownerID, "overdue:"+filterKey(models.ReportFilter{ApartmentID: apartmentID}))
	return cached(ctx, key, func() (*models.OverdueReport, error) {
		items, err := s.Repo.Overdue(ctx, ownerID, apartmentID)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for _, it := range items {
			total = total.Add(it.Remaining)
		}
		return &models.OverdueReport{Items: items, TotalOutstanding: total}, nil
	})
}

// Export renders the tenants or payments export as CSV and returns it with
// a suggested file name.
func (s *ReportService) Export(ctx context.Context, ownerID int, exportType string, filter models.ReportFilter) ([]byte, string, error) {
	if err := validateFilter(filter); err != nil {
		return nil, "", err
	}

	var records [][]string
	switch exportType {
	case models.ExportTenants:
		rows, err := s.Repo.ExportTenants(ctx, ownerID, filter)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load tenants: %w", err)
		}
		records = tenantRecords(rows)
	case models.ExportPayments:
		rows, err := s.Repo.ExportPayments(ctx, ownerID, filter)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load payments: %w", err)
		}
		records = paymentRecords(rows)
	default:
		return nil, "", apperror.Validation("Invalid export type",
			apperror.FieldError{Field: "type", Message: "must be tenants or payments"})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, "", fmt.Errorf("failed to write csv: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.csv", exportType, s.now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

// Archive stores an export in the bucket and returns a presigned link to it.
func (s *ReportService) Archive(ctx context.Context, ownerID int, exportType string, filter models.ReportFilter) (*models.ExportArchive, error) {
	if s.exports == nil {
		return nil, apperror.BusinessRule("Export storage is not configured")
	}

	data, filename, err := s.Export(ctx, ownerID, exportType, filter)
	if err != nil {
		return nil, err
	}

	key := s.exports.Key(ownerID, filename)
	url, expires, err := s.exports.Put(ctx, key, data, "text/csv")
	if err != nil {
		return nil, err
	}

	log.Printf("[Reports] Archived %s export for owner %d to %s", exportType, ownerID, key)
	return &models.ExportArchive{Key: key, URL: url, ExpiresAt: expires, Bytes: len(data)}, nil
}

func tenantRecords(rows []*models.TenantExportRow) [][]string {
	records := [][]string{{
		"Tenant Name", "Phone", "National ID", "Apartment", "Floor", "Unit",
		"Move In Date", "Move Out Date", "Monthly Rent", "Status", "Notes",
	}}
	for _, t := range rows {
		status := "Moved Out"
		if t.Active {
			status = "Active"
		}
		moveOut := ""
		if t.MoveOutDate != nil {
			moveOut = t.MoveOutDate.Format(timeutil.DateLayout)
		}
		records = append(records, []string{
			t.TenantName,
			t.Phone,
			optional(t.NationalID),
			t.ApartmentName,
			strconv.Itoa(t.FloorNumber),
			t.UnitNumber,
			t.MoveInDate.Format(timeutil.DateLayout),
			moveOut,
			t.MonthlyRent.StringFixed(2),
			status,
			optional(t.Notes),
		})
	}
	return records
}

func paymentRecords(rows []*models.PaymentExportRow) [][]string {
	records := [][]string{{
		"Paid At", "Amount", "Payment Method", "Rent Month", "Tenant Name",
		"Apartment", "Floor", "Unit", "Note",
	}}
	for _, p := range rows {
		records = append(records, []string{
			timeutil.ToIST(p.PaidAt).Format(timeutil.DateTimeLayout),
			p.Amount.StringFixed(2),
			p.PaymentMethod,
			p.RentMonth,
			p.TenantName,
			p.ApartmentName,
			strconv.Itoa(p.FloorNumber),
			p.UnitNumber,
			optional(p.Note),
		})
	}
	return records
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Receipt renders a one-page PDF receipt for a payment owned by ownerID.
func (s *ReportService) Receipt(ctx context.Context, ownerID, paymentID int) ([]byte, string, error) {
	rc, err := s.Payments.GetReceipt(ctx, paymentID, ownerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, "", apperror.NotFound("Payment")
		}
		return nil, "", err
	}

	data, err := s.receiptPDF(rc)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("receipt_%d.pdf", rc.Payment.ID), nil
}

func (s *ReportService) receiptPDF(rc *models.PaymentReceipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(180, 10, rc.ApartmentName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(180, 6, rc.Address, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(180, 9, "Rent Payment Receipt", "B", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(90, 7, fmt.Sprintf("Receipt No: %d", rc.Payment.ID), "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 7, fmt.Sprintf("Date: %s", timeutil.ToIST(rc.Payment.PaidAt).Format(timeutil.DisplayLayout)), "", 1, "R", false, 0, "")
	pdf.Ln(3)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(180, 8, "Tenant", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(90, 7, fmt.Sprintf("Name: %s", rc.TenantName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(90, 7, fmt.Sprintf("Phone: %s", rc.TenantPhone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(90, 7, fmt.Sprintf("Unit: %s", rc.UnitNumber), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(90, 7, fmt.Sprintf("Floor: %d", rc.FloorNumber), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(180, 8, "Payment", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{"Rent Month", rc.RentLog.Month},
		{"Amount Due", "Rs. " + rc.RentLog.AmountDue.StringFixed(2)},
		{"Amount Received", "Rs. " + rc.Payment.Amount.StringFixed(2)},
		{"Payment Method", rc.Payment.PaymentMethod},
		{"Total Paid for Month", "Rs. " + rc.RentLog.AmountPaid.StringFixed(2)},
		{"Balance", "Rs. " + repositories.OutstandingBalance(&rc.RentLog).StringFixed(2)},
		{"Status", string(rc.RentLog.Status)},
	}
	if rc.Payment.Note != nil && *rc.Payment.Note != "" {
		rows = append(rows, [2]string{"Note", *rc.Payment.Note})
	}
	for _, row := range rows {
		pdf.CellFormat(70, 7, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(110, 7, row[1], "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "I", 9)
	if rc.Payment.CreatedByName != "" {
		pdf.CellFormat(180, 6, fmt.Sprintf("Received by %s", rc.Payment.CreatedByName), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(180, 6, fmt.Sprintf("Generated: %s", s.now().Format(timeutil.DisplayLayout)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
