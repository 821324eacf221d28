package bookings

import (
	"context"
	"errors"

	"parkly/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrInvalidState     = errors.New("booking state does not allow this transition")
)

// ListFilter narrows booking listings; zero values are ignored
type ListFilter struct {
	CustomerID uuid.UUID
	GarageID   uuid.UUID
	Status     Status
	Page       int
	Limit      int
}

type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// GetForUpdate locks the row until the surrounding transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)
	MarkPaid(ctx context.Context, id uuid.UUID, reference string) error
	MarkCancelled(ctx context.Context, id uuid.UUID, c cancellation) error
	List(ctx context.Context, filter ListFilter) ([]Booking, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, booking *Booking) error {
	return database.Conn(ctx, r.db).Create(booking).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// MarkPaid confirms a booking that is still pending payment
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, reference string) error {
	updates := map[string]interface{}{
		"payment_status": PaymentPaid,
		"status":         StatusConfirmed,
		"updated_at":     gorm.Expr("NOW()"),
	}
	if reference != "" {
		updates["payment_reference"] = reference
	}

	result := database.Conn(ctx, r.db).
		Model(&Booking{}).
		Where("id = ? AND status = ?", id, StatusPendingPayment).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidState
	}
	return nil
}

func (r *repository) MarkCancelled(ctx context.Context, id uuid.UUID, c cancellation) error {
	result := database.Conn(ctx, r.db).
		Model(&Booking{}).
		Where("id = ? AND status <> ?", id, StatusCancelled).
		Updates(map[string]interface{}{
			"status":              StatusCancelled,
			"cancellation_fee":    c.Fee,
			"within_grace_period": c.WithinGracePeriod,
			"cancellation_time":   c.At,
			"updated_at":          c.At,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyCancelled
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Booking, int64, error) {
	var bookings []Booking
	var total int64

	base := database.Conn(ctx, r.db).Model(&Booking{})
	if filter.CustomerID != uuid.Nil {
		base = base.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.GarageID != uuid.Nil {
		base = base.Where("garage_id = ?", filter.GarageID)
	}
	if filter.Status != "" {
		base = base.Where("status = ?", filter.Status)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := base.Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&bookings).Error
	return bookings, total, err
}
