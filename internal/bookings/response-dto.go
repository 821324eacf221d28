package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateBookingResponse struct {
	BookingID        uuid.UUID       `json:"booking_id"`
	Status           Status          `json:"status"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	DurationHours    decimal.Decimal `json:"booked_duration_hours"`
	BookingFee       decimal.Decimal `json:"booking_fee"`
	TicketIdentifier string          `json:"ticket_identifier"`
	TicketPayload    string          `json:"ticket_payload"`
	TicketExpiresAt  time.Time       `json:"ticket_expires_at"`
}

type CancelBookingResponse struct {
	BookingID         uuid.UUID       `json:"booking_id"`
	Status            Status          `json:"status"`
	CancellationFee   decimal.Decimal `json:"cancellation_fee"`
	WithinGracePeriod bool            `json:"is_cancelled_within_grace_period"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
	CancellationTime  time.Time       `json:"cancellation_time"`
}

type BookingListResponse struct {
	Bookings   []Booking `json:"bookings"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}
