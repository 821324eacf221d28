// Package pricing turns garage configuration into booking and cancellation fees.
package pricing

import (
	"errors"
	"time"

	"parkly/internal/garages"
	"parkly/internal/shared/apperrors"

	"github.com/shopspring/decimal"
)

// DefaultGracePeriod is how long after creation a booking can be cancelled for free
const DefaultGracePeriod = 15 * time.Minute

var ErrInvalidDuration = errors.New("invalid booking duration")

var hour = decimal.NewFromInt(int64(time.Hour))

// Quote is a priced booking window
type Quote struct {
	DurationHours decimal.Decimal
	Fee           decimal.Decimal
}

// Cancellation is the outcome of pricing a cancellation
type Cancellation struct {
	Fee               decimal.Decimal
	WithinGracePeriod bool
}

type Policy struct {
	gracePeriod time.Duration
}

func NewPolicy(gracePeriod time.Duration) *Policy {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &Policy{gracePeriod: gracePeriod}
}

func (p *Policy) GracePeriod() time.Duration {
	return p.gracePeriod
}

// QuoteBookingFee prices the window [entry, exit) as hours × hourly rate × spot modifier
func (p *Policy) QuoteBookingFee(garage *garages.Garage, spot *garages.ParkingSpot, entry, exit time.Time) (Quote, error) {
	if !exit.After(entry) {
		return Quote{}, minimumDurationError(garage)
	}

	hours := decimal.NewFromInt(int64(exit.Sub(entry))).Div(hour)
	if hours.LessThan(garage.MinBookingHours) {
		return Quote{}, minimumDurationError(garage)
	}

	modifier := spot.PriceModifier
	if modifier.IsZero() {
		modifier = decimal.NewFromInt(1)
	}

	fee := hours.Mul(garage.HourlyRate).Mul(modifier).Round(2)
	return Quote{DurationHours: hours.Round(2), Fee: fee}, nil
}

// QuoteCancellationFee is free up to and including the grace period after
// createdAt and the garage's flat fee afterwards.
func (p *Policy) QuoteCancellationFee(garage *garages.Garage, createdAt, now time.Time) Cancellation {
	if now.Sub(createdAt) <= p.gracePeriod {
		return Cancellation{Fee: decimal.Zero, WithinGracePeriod: true}
	}
	return Cancellation{Fee: garage.CancellationFee.Round(2), WithinGracePeriod: false}
}

// RefundAmount is what goes back to the wallet; a fee at or above the booking fee forfeits everything
func RefundAmount(bookingFee, cancellationFee decimal.Decimal, paid bool) decimal.Decimal {
	if !paid || cancellationFee.GreaterThanOrEqual(bookingFee) {
		return decimal.Zero
	}
	return bookingFee.Sub(cancellationFee).Round(2)
}

func minimumDurationError(garage *garages.Garage) error {
	return apperrors.Validation(ErrInvalidDuration, "Minimum booking duration is %s hours", garage.MinBookingHours.String())
}
