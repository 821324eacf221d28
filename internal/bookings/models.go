package bookings

import (
	"time"

	"parkly/internal/wallets"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking ties a customer to one spot for a time window. Status is cancelled
// exactly when CancellationTime is set, and confirmed implies paid.
type Booking struct {
	ID                uuid.UUID             `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CustomerID        uuid.UUID             `gorm:"type:uuid;not null;index" json:"customer_id"`
	GarageID          uuid.UUID             `gorm:"type:uuid;not null;index" json:"garage_id"`
	SpotID            uuid.UUID             `gorm:"type:uuid;not null;index" json:"spot_id"`
	EntryTime         time.Time             `gorm:"not null" json:"booked_entry_time"`
	ExitTime          time.Time             `gorm:"not null" json:"booked_exit_time"`
	DurationHours     decimal.Decimal       `gorm:"type:decimal(8,2);not null" json:"booked_duration_hours"`
	BookingFee        decimal.Decimal       `gorm:"type:decimal(10,2);not null" json:"booking_fee"`
	PaymentMethod     wallets.PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus     PaymentStatus         `gorm:"type:varchar(20);not null;default:'unpaid';check:payment_status IN ('unpaid','paid')" json:"payment_status"`
	PaymentReference  string                `gorm:"type:varchar(100)" json:"payment_reference,omitempty"`
	Status            Status                `gorm:"type:varchar(20);not null;default:'pending_payment';index;check:status IN ('pending_payment','confirmed','cancelled')" json:"status"`
	TicketIdentifier  string                `gorm:"type:varchar(64);not null;uniqueIndex" json:"ticket_identifier"`
	TicketExpiresAt   time.Time             `gorm:"not null" json:"ticket_expires_at"`
	CancellationFee   decimal.NullDecimal   `gorm:"type:decimal(10,2)" json:"cancellation_fee"`
	WithinGracePeriod *bool                 `json:"is_cancelled_within_grace_period,omitempty"`
	CancellationTime  *time.Time            `json:"cancellation_time,omitempty"`
	CreatedAt         time.Time             `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) IsOwnedBy(userID uuid.UUID) bool {
	return b.CustomerID == userID
}

// cancellation is what Cancel writes onto a booking
type cancellation struct {
	Fee               decimal.Decimal
	WithinGracePeriod bool
	At                time.Time
}
