package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"rental-backend/internal/apperror"
	"rental-backend/internal/cache"
	"rental-backend/internal/models"
	"rental-backend/internal/realtime"
	"rental-backend/internal/repositories"
	"rental-backend/internal/timeutil"
)

const (
	defaultRentDueDay = 1
	defaultOverdueDay = 10
)

type ApartmentService struct {
	Repo   *repositories.ApartmentRepository
	Audit  *repositories.AuditLogRepository
	Events *realtime.Hub

	now func() time.Time
}

func NewApartmentService(repo *repositories.ApartmentRepository, audit *repositories.AuditLogRepository, events *realtime.Hub) *ApartmentService {
	return &ApartmentService{Repo: repo, Audit: audit, Events: events, now: timeutil.Now}
}

// Create inserts the apartment with its full floor and unit layout.
func (s *ApartmentService) Create(ctx context.Context, ownerID int, req *models.CreateApartmentRequest) (*models.ApartmentDetail, error) {
	if req.FloorsCount < 1 || req.UnitsPerFloor < 1 {
		return nil, apperror.Validation("Floors and units per floor must be at least 1")
	}

	apartment := &models.Apartment{
		OwnerID:        ownerID,
		Name:           req.Name,
		Address:        req.Address,
		CaretakerName:  req.CaretakerName,
		CaretakerPhone: req.CaretakerPhone,
		FloorsCount:    req.FloorsCount,
		UnitsPerFloor:  req.UnitsPerFloor,
		RentDueDay:     defaultRentDueDay,
		OverdueDay:     defaultOverdueDay,
	}
	if req.RentDueDay != nil {
		apartment.RentDueDay = *req.RentDueDay
	}
	if req.OverdueDay != nil {
		apartment.OverdueDay = *req.OverdueDay
	}
	if apartment.RentDueDay < 1 || apartment.RentDueDay > 28 {
		return nil, apperror.Validation("Rent due day must be between 1 and 28",
			apperror.FieldError{Field: "rent_due_day", Message: "must be between 1 and 28"})
	}
	defaultRent := decimal.Zero
	if req.DefaultRent != nil {
		defaultRent = *req.DefaultRent
	}

	detail, err := s.Repo.CreateWithLayout(ctx, apartment, defaultRent)
	if err != nil {
		return nil, fmt.Errorf("failed to create apartment: %w", err)
	}

	log.Printf("[Apartments] Created %q for owner %d with %d floors x %d units",
		apartment.Name, ownerID, apartment.FloorsCount, apartment.UnitsPerFloor)
	s.changed(ctx, ownerID, apartment.ID, "created")
	return detail, nil
}

func (s *ApartmentService) List(ctx context.Context, ownerID int) ([]*models.ApartmentSummary, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}

func (s *ApartmentService) Get(ctx context.Context, ownerID, id int) (*models.ApartmentDetail, error) {
	detail, err := s.Repo.GetDetail(ctx, id, ownerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("Apartment")
		}
		return nil, err
	}
	return detail, nil
}

func (s *ApartmentService) Update(ctx context.Context, ownerID, id int, req *models.UpdateApartmentRequest) (*models.Apartment, error) {
	if req.Empty() {
		return nil, apperror.Validation("No valid fields to update")
	}

	apartment, err := s.Repo.Update(ctx, id, ownerID, req)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("Apartment")
		}
		return nil, fmt.Errorf("failed to update apartment: %w", err)
	}

	s.changed(ctx, ownerID, id, "updated")
	return apartment, nil
}

// Delete removes the apartment and everything under it.
func (s *ApartmentService) Delete(ctx context.Context, ownerID, id int, ipAddress string) error {
	apartment, err := s.Repo.GetByID(ctx, id, ownerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return apperror.NotFound("Apartment")
		}
		return err
	}

	deleted, err := s.Repo.Delete(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete apartment: %w", err)
	}
	if !deleted {
		return apperror.NotFound("Apartment")
	}

	if err := s.Audit.Create(ctx, models.AuditEntry{
		UserID:    ownerID,
		Action:    models.AuditApartmentDelete,
		TableName: "apartments",
		RecordID:  id,
		OldValues: apartment,
		IPAddress: ipAddress,
	}); err != nil {
		log.Printf("[Apartments] Failed to audit deletion of %d: %v", id, err)
	}

	log.Printf("[Apartments] Deleted %q (%d) for owner %d", apartment.Name, id, ownerID)
	s.changed(ctx, ownerID, id, "deleted")
	return nil
}

// Stats returns occupancy and current-month collection figures. Results are
// cached per owner, apartment and month.
func (s *ApartmentService) Stats(ctx context.Context, ownerID, id int) (*models.ApartmentStats, error) {
	month := timeutil.MonthKey(s.now())
	key := cache.ApartmentStatsKey(ownerID, id, month)

	if data, ok := cache.GetCached(ctx, key); ok {
		var stats models.ApartmentStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
	}

	stats, err := s.Repo.Stats(ctx, id, ownerID, month)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, apperror.NotFound("Apartment")
		}
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		cache.SetCached(ctx, key, data, cache.StatsTTL)
	}
	return stats, nil
}

func (s *ApartmentService) changed(ctx context.Context, ownerID, apartmentID int, change string) {
	cache.InvalidateOwner(ctx, ownerID)
	s.Events.Publish(ownerID, realtime.EventApartmentChanged, map[string]interface{}{
		"apartment_id": apartmentID, "change": change,
	})
}
