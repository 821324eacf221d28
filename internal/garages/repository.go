package garages

import (
	"context"
	"errors"
	"time"

	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrGarageNotFound = errors.New("garage not found")
	ErrSpotNotFound   = errors.New("parking spot not found")
	ErrSpotOccupied   = errors.New("parking spot is already occupied")
)

// SpotRegistry owns the available/occupied state of parking spots.
// Both calls join the transaction carried by ctx, if any.
type SpotRegistry interface {
	Reserve(ctx context.Context, spotID uuid.UUID) error
	Release(ctx context.Context, spotID uuid.UUID) error
}

type Repository interface {
	SpotRegistry

	CreateGarage(ctx context.Context, garage *Garage) error
	GetGarageByID(ctx context.Context, id uuid.UUID) (*Garage, error)
	// FindGarage also returns deactivated garages; existing bookings still reference them
	FindGarage(ctx context.Context, id uuid.UUID) (*Garage, error)
	ListGarages(ctx context.Context, query GarageListQuery) ([]Garage, int64, error)
	UpdateGarage(ctx context.Context, garage *Garage) error
	DeactivateGarage(ctx context.Context, id uuid.UUID) error

	CreateSpot(ctx context.Context, spot *ParkingSpot) error
	GetSpotByID(ctx context.Context, id uuid.UUID) (*ParkingSpot, error)
	ListSpots(ctx context.Context, garageID uuid.UUID, status SpotStatus) ([]ParkingSpot, error)
	CountActiveSpots(ctx context.Context, garageID uuid.UUID) (int64, error)
	DeactivateSpot(ctx context.Context, garageID, spotID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateGarage(ctx context.Context, garage *Garage) error {
	return database.Conn(ctx, r.db).Create(garage).Error
}

func (r *repository) GetGarageByID(ctx context.Context, id uuid.UUID) (*Garage, error) {
	var garage Garage
	err := database.Conn(ctx, r.db).Where("id = ? AND is_active = ?", id, true).First(&garage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGarageNotFound
		}
		return nil, err
	}
	return &garage, nil
}

func (r *repository) FindGarage(ctx context.Context, id uuid.UUID) (*Garage, error) {
	var garage Garage
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&garage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGarageNotFound
		}
		return nil, err
	}
	return &garage, nil
}

func (r *repository) ListGarages(ctx context.Context, query GarageListQuery) ([]Garage, int64, error) {
	var garages []Garage
	var total int64

	base := database.Conn(ctx, r.db).Model(&Garage{}).Where("is_active = ?", true)
	if query.Governorate != "" {
		base = base.Where("governorate = ?", query.Governorate)
	}
	if query.ManagerID != "" {
		base = base.Where("manager_id = ?", query.ManagerID)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := base.Order("name ASC").Offset(offset).Limit(query.Limit).Find(&garages).Error
	return garages, total, err
}

func (r *repository) UpdateGarage(ctx context.Context, garage *Garage) error {
	result := database.Conn(ctx, r.db).
		Model(&Garage{}).
		Where("id = ? AND is_active = ?", garage.ID, true).
		Updates(map[string]interface{}{
			"name":                garage.Name,
			"address":             garage.Address,
			"governorate":         garage.Governorate,
			"latitude":            garage.Latitude,
			"longitude":           garage.Longitude,
			"total_capacity":      garage.TotalCapacity,
			"hourly_rate":         garage.HourlyRate,
			"floors_number":       garage.FloorsNumber,
			"working_hours":       garage.WorkingHours,
			"cancellation_policy": garage.CancellationPolicy,
			"min_booking_hours":   garage.MinBookingHours,
			"cancellation_fee":    garage.CancellationFee,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGarageNotFound
	}
	return nil
}

func (r *repository) DeactivateGarage(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).
		Model(&Garage{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGarageNotFound
	}
	return nil
}

func (r *repository) CreateSpot(ctx context.Context, spot *ParkingSpot) error {
	return database.Conn(ctx, r.db).Create(spot).Error
}

// GetSpotByID returns active spots only
func (r *repository) GetSpotByID(ctx context.Context, id uuid.UUID) (*ParkingSpot, error) {
	var spot ParkingSpot
	err := database.Conn(ctx, r.db).Where("id = ? AND is_active = ?", id, true).First(&spot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpotNotFound
		}
		return nil, err
	}
	return &spot, nil
}

func (r *repository) ListSpots(ctx context.Context, garageID uuid.UUID, status SpotStatus) ([]ParkingSpot, error) {
	var spots []ParkingSpot
	query := database.Conn(ctx, r.db).Where("garage_id = ? AND is_active = ?", garageID, true)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("floor_number ASC, spot_number ASC").Find(&spots).Error
	return spots, err
}

func (r *repository) CountActiveSpots(ctx context.Context, garageID uuid.UUID) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&ParkingSpot{}).
		Where("garage_id = ? AND is_active = ?", garageID, true).
		Count(&count).Error
	return count, err
}

// DeactivateSpot soft-deletes a free spot; occupied spots must be released first
func (r *repository) DeactivateSpot(ctx context.Context, garageID, spotID uuid.UUID) error {
	result := database.Conn(ctx, r.db).
		Model(&ParkingSpot{}).
		Where("id = ? AND garage_id = ? AND is_active = ? AND status = ?", spotID, garageID, true, SpotStatusAvailable).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	spot, err := r.GetSpotByID(ctx, spotID)
	if err != nil {
		return err
	}
	if spot.GarageID != garageID {
		return ErrSpotNotFound
	}
	return ErrSpotOccupied
}

// Reserve flips a spot to occupied with a single conditional update, so of
// two concurrent callers exactly one sees a row affected.
func (r *repository) Reserve(ctx context.Context, spotID uuid.UUID) error {
	now := time.Now().UTC()
	result := database.Conn(ctx, r.db).
		Model(&ParkingSpot{}).
		Where("id = ? AND is_active = ? AND status = ?", spotID, true, SpotStatusAvailable).
		Updates(map[string]interface{}{
			"status":         SpotStatusOccupied,
			"last_booked_at": now,
			"updated_at":     now,
		})
	if result.Error != nil {
		return apperrors.Internal(result.Error, "failed to reserve parking spot")
	}
	if result.RowsAffected == 1 {
		return nil
	}

	if _, err := r.GetSpotByID(ctx, spotID); err != nil {
		if errors.Is(err, ErrSpotNotFound) {
			return apperrors.NotFound(ErrSpotNotFound, "parking spot not found")
		}
		return apperrors.Internal(err, "failed to load parking spot")
	}
	return apperrors.Conflict(ErrSpotOccupied, "parking spot is not available")
}

func (r *repository) Release(ctx context.Context, spotID uuid.UUID) error {
	result := database.Conn(ctx, r.db).
		Model(&ParkingSpot{}).
		Where("id = ?", spotID).
		Updates(map[string]interface{}{
			"status":     SpotStatusAvailable,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return apperrors.Internal(result.Error, "failed to release parking spot")
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(ErrSpotNotFound, "parking spot %s not found", spotID)
	}
	return nil
}
