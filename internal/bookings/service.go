package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkly/internal/audit"
	"parkly/internal/garages"
	"parkly/internal/notifications"
	"parkly/internal/pricing"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/database"
	"parkly/internal/tickets"
	"parkly/internal/users"
	"parkly/internal/wallets"
	"parkly/pkg/logger"
	"parkly/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Inventory is the slice of the garage store the lifecycle needs
type Inventory interface {
	garages.SpotRegistry
	GetSpotByID(ctx context.Context, id uuid.UUID) (*garages.ParkingSpot, error)
	GetGarageByID(ctx context.Context, id uuid.UUID) (*garages.Garage, error)
	FindGarage(ctx context.Context, id uuid.UUID) (*garages.Garage, error)
}

// StaffDirectory answers which garages an employee works at
type StaffDirectory interface {
	IsAssigned(ctx context.Context, userID, garageID uuid.UUID) (bool, error)
}

type Service interface {
	Create(ctx context.Context, principal users.Principal, req CreateBookingRequest) (*CreateBookingResponse, error)
	Cancel(ctx context.Context, principal users.Principal, bookingID uuid.UUID) (*CancelBookingResponse, error)
	// ConfirmPayment settles a pending booking paid outside the wallet
	ConfirmPayment(ctx context.Context, principal users.Principal, bookingID uuid.UUID, req ConfirmPaymentRequest) (*Booking, error)

	Get(ctx context.Context, principal users.Principal, bookingID uuid.UUID) (*Booking, error)
	ListForCustomer(ctx context.Context, principal users.Principal, query BookingListQuery) (*BookingListResponse, error)
	ListForGarage(ctx context.Context, principal users.Principal, garageID uuid.UUID, query BookingListQuery) (*BookingListResponse, error)
}

// Dependencies groups the collaborators of the booking service.
// Notifier, Audit and Metrics may be nil. A nil Staff locks employees out.
type Dependencies struct {
	Repo      Repository
	Inventory Inventory
	Staff     StaffDirectory
	Pricing   *pricing.Policy
	Ledger    wallets.Ledger
	Tickets   tickets.Issuer
	Tx        database.Transactor
	Notifier  notifications.Notifier
	Audit     audit.Recorder
	Metrics   *metrics.Metrics
	Log       *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	inventory Inventory
	staff     StaffDirectory
	pricing   *pricing.Policy
	ledger    wallets.Ledger
	tickets   tickets.Issuer
	tx        database.Transactor
	notifier  notifications.Notifier
	audit     audit.Recorder
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func NewService(deps Dependencies) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	policy := deps.Pricing
	if policy == nil {
		policy = pricing.NewPolicy(pricing.DefaultGracePeriod)
	}
	return &service{
		repo:      deps.Repo,
		inventory: deps.Inventory,
		staff:     deps.Staff,
		pricing:   policy,
		ledger:    deps.Ledger,
		tickets:   deps.Tickets,
		tx:        deps.Tx,
		notifier:  deps.Notifier,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		log:       deps.Log,
		now:       now,
	}
}

func (s *service) Create(ctx context.Context, principal users.Principal, req CreateBookingRequest) (*CreateBookingResponse, error) {
	if principal.Role != users.RoleCustomer {
		return nil, apperrors.Forbidden(nil, "only customers can book parking spots")
	}
	garageID, err := uuid.Parse(req.GarageID)
	if err != nil {
		return nil, apperrors.Validation(err, "invalid garage ID")
	}
	spotID, err := uuid.Parse(req.SpotID)
	if err != nil {
		return nil, apperrors.Validation(err, "invalid spot ID")
	}
	if req.EntryTime.IsZero() || req.ExitTime.IsZero() {
		return nil, apperrors.Validation(nil, "booked_entry_time and booked_exit_time are required")
	}
	method := wallets.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		return nil, apperrors.Validation(nil, "invalid payment method %q", req.PaymentMethod)
	}

	var (
		booking   *Booking
		ticket    *tickets.Ticket
		spot      *garages.ParkingSpot
		garage    *garages.Garage
		fundsErr  error
		createdAt = s.now().UTC()
	)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		spot, err = s.inventory.GetSpotByID(ctx, spotID)
		if err != nil {
			if errors.Is(err, garages.ErrSpotNotFound) {
				return apperrors.NotFound(err, "Parking spot not found")
			}
			return apperrors.Internal(err, "failed to load parking spot")
		}
		if spot.GarageID != garageID {
			return apperrors.Validation(nil, "Parking spot does not belong to this garage")
		}
		if !spot.IsAvailable() {
			return apperrors.Conflict(garages.ErrSpotOccupied, "Parking spot is not available")
		}

		garage, err = s.inventory.GetGarageByID(ctx, garageID)
		if err != nil {
			if errors.Is(err, garages.ErrGarageNotFound) {
				return apperrors.NotFound(err, "Garage not found")
			}
			return apperrors.Internal(err, "failed to load garage")
		}

		quote, err := s.pricing.QuoteBookingFee(garage, spot, req.EntryTime, req.ExitTime)
		if err != nil {
			return err
		}

		// reserve before any payment so a lost race never touches the wallet
		if err := s.inventory.Reserve(ctx, spotID); err != nil {
			return err
		}

		booking = &Booking{
			ID:            uuid.New(),
			CustomerID:    principal.UserID,
			GarageID:      garageID,
			SpotID:        spotID,
			EntryTime:     req.EntryTime.UTC(),
			ExitTime:      req.ExitTime.UTC(),
			DurationHours: quote.DurationHours,
			BookingFee:    quote.Fee,
			PaymentMethod: method,
			PaymentStatus: PaymentUnpaid,
			Status:        StatusPendingPayment,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		}

		ticket, err = s.tickets.Issue(ctx, booking.ID)
		if err != nil {
			return err
		}
		booking.TicketIdentifier = ticket.Identifier
		booking.TicketExpiresAt = ticket.ExpiresAt

		if err := s.repo.Create(ctx, booking); err != nil {
			return apperrors.Internal(err, "failed to save booking")
		}

		if method != wallets.PaymentEWallet {
			return nil
		}

		_, err = s.ledger.Debit(ctx, principal.UserID, garageID, quote.Fee, booking.ID)
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			// keep the failed attempt on record and free the spot, then commit
			fundsErr = err
			return s.abandon(ctx, booking)
		}
		if err != nil {
			return err
		}

		if err := s.repo.MarkPaid(ctx, booking.ID, ""); err != nil {
			return apperrors.Internal(err, "failed to confirm booking")
		}
		booking.PaymentStatus = PaymentPaid
		booking.Status = StatusConfirmed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BookingCreated(booking.Status.String())
	s.log.LogBookingCreated(ctx, booking.ID.String(), spotID.String(), principal.UserID.String(), booking.Status.String())
	if fundsErr != nil {
		return nil, fundsErr
	}

	statusText := "pending payment"
	if booking.Status == StatusConfirmed {
		statusText = "confirmed"
	}
	s.notify(ctx, booking, "Booking Created",
		fmt.Sprintf("Your booking for spot %s at %s is %s.", spot.SpotNumber, garage.Name, statusText))
	s.record(ctx, principal, "Booking created", booking.ID, map[string]interface{}{
		"garage_id":      garageID.String(),
		"spot_id":        spotID.String(),
		"payment_method": method.String(),
		"booking_fee":    booking.BookingFee.StringFixed(2),
	})

	return &CreateBookingResponse{
		BookingID:        booking.ID,
		Status:           booking.Status,
		PaymentStatus:    booking.PaymentStatus,
		DurationHours:    booking.DurationHours,
		BookingFee:       booking.BookingFee,
		TicketIdentifier: ticket.Identifier,
		TicketPayload:    ticket.Payload,
		TicketExpiresAt:  ticket.ExpiresAt,
	}, nil
}

// abandon cancels a booking whose wallet payment failed
func (s *service) abandon(ctx context.Context, booking *Booking) error {
	now := s.now().UTC()
	c := cancellation{Fee: decimal.Zero, WithinGracePeriod: true, At: now}
	if err := s.repo.MarkCancelled(ctx, booking.ID, c); err != nil {
		return apperrors.Internal(err, "failed to cancel unpaid booking")
	}
	if err := s.inventory.Release(ctx, booking.SpotID); err != nil {
		return err
	}
	applyCancellation(booking, c)
	return nil
}

func (s *service) Cancel(ctx context.Context, principal users.Principal, bookingID uuid.UUID) (*CancelBookingResponse, error) {
	var (
		booking *Booking
		garage  *garages.Garage
		quote   pricing.Cancellation
		refund  decimal.Decimal
		at      time.Time
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.repo.GetForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, ErrBookingNotFound) {
				return apperrors.NotFound(err, "Booking not found")
			}
			return apperrors.Internal(err, "failed to load booking")
		}
		if !booking.IsOwnedBy(principal.UserID) {
			return apperrors.Forbidden(nil, "Booking belongs to another customer")
		}
		if !booking.Status.CanTransitionTo(StatusCancelled) {
			return apperrors.Conflict(ErrAlreadyCancelled, "Booking is already cancelled")
		}

		garage, err = s.inventory.FindGarage(ctx, booking.GarageID)
		if err != nil {
			return apperrors.Internal(err, "failed to load garage for booking")
		}

		at = s.now().UTC()
		quote = s.pricing.QuoteCancellationFee(garage, booking.CreatedAt, at)
		c := cancellation{Fee: quote.Fee, WithinGracePeriod: quote.WithinGracePeriod, At: at}
		if err := s.repo.MarkCancelled(ctx, booking.ID, c); err != nil {
			if errors.Is(err, ErrAlreadyCancelled) {
				return apperrors.Conflict(err, "Booking is already cancelled")
			}
			return apperrors.Internal(err, "failed to cancel booking")
		}
		applyCancellation(booking, c)

		if err := s.inventory.Release(ctx, booking.SpotID); err != nil {
			return err
		}

		// bookings settled outside the wallet are refunded out of band
		paidByWallet := booking.PaymentStatus == PaymentPaid && booking.PaymentMethod == wallets.PaymentEWallet
		refund = pricing.RefundAmount(booking.BookingFee, quote.Fee, paidByWallet)
		if !refund.IsPositive() {
			return nil
		}

		id := booking.ID
		_, err = s.ledger.Credit(ctx, wallets.CreditInput{
			CustomerID:  booking.CustomerID,
			GarageID:    booking.GarageID,
			Amount:      refund,
			Kind:        wallets.TransactionRefund,
			BookingID:   &id,
			Method:      wallets.PaymentEWallet,
			Description: fmt.Sprintf("Refund for cancelled booking %s", booking.ID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BookingCancelled(quote.WithinGracePeriod)
	s.log.LogBookingCancelled(ctx, booking.ID.String(), booking.SpotID.String(), principal.UserID.String(), refund.StringFixed(2))

	message := fmt.Sprintf("Your booking at %s has been cancelled.", garage.Name)
	if quote.Fee.IsPositive() {
		message += fmt.Sprintf(" Cancellation fee: %s", quote.Fee.StringFixed(2))
	}
	s.notify(ctx, booking, "Booking Cancelled", message)
	s.record(ctx, principal, "Booking cancelled", booking.ID, map[string]interface{}{
		"cancellation_fee":                 quote.Fee.StringFixed(2),
		"is_cancelled_within_grace_period": quote.WithinGracePeriod,
		"refund_amount":                    refund.StringFixed(2),
	})

	return &CancelBookingResponse{
		BookingID:         booking.ID,
		Status:            booking.Status,
		CancellationFee:   quote.Fee,
		WithinGracePeriod: quote.WithinGracePeriod,
		RefundAmount:      refund,
		CancellationTime:  at,
	}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, principal users.Principal, bookingID uuid.UUID, req ConfirmPaymentRequest) (*Booking, error) {
	if !principal.IsStaff() {
		return nil, apperrors.Forbidden(nil, "only garage staff can confirm payments")
	}

	var booking *Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.repo.GetForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, ErrBookingNotFound) {
				return apperrors.NotFound(err, "Booking not found")
			}
			return apperrors.Internal(err, "failed to load booking")
		}
		if err := s.authorizeStaff(ctx, principal, booking.GarageID); err != nil {
			return err
		}
		if booking.Status != StatusPendingPayment {
			return apperrors.Conflict(ErrInvalidState, "Only bookings pending payment can be confirmed, booking is %s", booking.Status)
		}

		if err := s.repo.MarkPaid(ctx, booking.ID, req.PaymentReference); err != nil {
			if errors.Is(err, ErrInvalidState) {
				return apperrors.Conflict(err, "Booking is no longer pending payment")
			}
			return apperrors.Internal(err, "failed to confirm payment")
		}
		booking.PaymentStatus = PaymentPaid
		booking.Status = StatusConfirmed
		booking.PaymentReference = req.PaymentReference
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogBookingConfirmed(ctx, booking.ID.String(), principal.UserID.String())
	s.notify(ctx, booking, "Payment Confirmed",
		fmt.Sprintf("Payment of %s for your booking has been received. Your booking is confirmed.", booking.BookingFee.StringFixed(2)))
	s.record(ctx, principal, "Booking payment confirmed", booking.ID, map[string]interface{}{
		"payment_reference": req.PaymentReference,
		"payment_method":    booking.PaymentMethod.String(),
	})
	return booking, nil
}

func (s *service) Get(ctx context.Context, principal users.Principal, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, apperrors.NotFound(err, "Booking not found")
		}
		return nil, apperrors.Internal(err, "failed to load booking")
	}
	if booking.IsOwnedBy(principal.UserID) {
		return booking, nil
	}
	if !principal.IsStaff() {
		return nil, apperrors.Forbidden(nil, "Booking belongs to another customer")
	}
	if err := s.authorizeStaff(ctx, principal, booking.GarageID); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) ListForCustomer(ctx context.Context, principal users.Principal, query BookingListQuery) (*BookingListResponse, error) {
	return s.list(ctx, ListFilter{CustomerID: principal.UserID}, query)
}

func (s *service) ListForGarage(ctx context.Context, principal users.Principal, garageID uuid.UUID, query BookingListQuery) (*BookingListResponse, error) {
	if !principal.IsStaff() {
		return nil, apperrors.Forbidden(nil, "only garage staff can list garage bookings")
	}
	if err := s.authorizeStaff(ctx, principal, garageID); err != nil {
		return nil, err
	}
	return s.list(ctx, ListFilter{GarageID: garageID}, query)
}

func (s *service) list(ctx context.Context, filter ListFilter, query BookingListQuery) (*BookingListResponse, error) {
	if query.Status != "" {
		status, err := ParseStatus(query.Status)
		if err != nil {
			return nil, apperrors.Validation(err, "invalid status filter")
		}
		filter.Status = status
	}
	filter.Page = query.Page
	if filter.Page <= 0 {
		filter.Page = 1
	}
	filter.Limit = query.Limit
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list bookings")
	}

	return &BookingListResponse{
		Bookings:   bookings,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalCount: total,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
	}, nil
}

// authorizeStaff lets admins through. A garage_admin must manage the garage
// and an employee must hold an active assignment to it.
func (s *service) authorizeStaff(ctx context.Context, principal users.Principal, garageID uuid.UUID) error {
	switch principal.Role {
	case users.RoleAdmin:
		return nil
	case users.RoleEmployee:
		if s.staff == nil {
			return apperrors.Forbidden(nil, "you are not assigned to this garage")
		}
		assigned, err := s.staff.IsAssigned(ctx, principal.UserID, garageID)
		if err != nil {
			return apperrors.Internal(err, "failed to check garage assignment")
		}
		if !assigned {
			return apperrors.Forbidden(nil, "you are not assigned to this garage")
		}
		return nil
	case users.RoleGarageAdmin:
		garage, err := s.inventory.FindGarage(ctx, garageID)
		if err != nil {
			if errors.Is(err, garages.ErrGarageNotFound) {
				return apperrors.NotFound(err, "Garage not found")
			}
			return apperrors.Internal(err, "failed to load garage")
		}
		if !garage.IsManagedBy(principal.UserID) {
			return apperrors.Forbidden(nil, "you do not manage this garage")
		}
		return nil
	}
	return apperrors.Forbidden(nil, "only garage staff can perform this action")
}

func applyCancellation(booking *Booking, c cancellation) {
	at := c.At
	grace := c.WithinGracePeriod
	booking.Status = StatusCancelled
	booking.CancellationFee = decimal.NewNullDecimal(c.Fee)
	booking.WithinGracePeriod = &grace
	booking.CancellationTime = &at
}

// side effects run after commit and never fail the operation

func (s *service) notify(ctx context.Context, booking *Booking, title, message string) {
	if s.notifier == nil {
		return
	}
	notification := notifications.NewNotificationBuilder().
		WithRecipient(booking.CustomerID).
		WithType(notifications.NotificationTypeInApp).
		WithContent(title, message).
		WithBookingContext(booking.ID).
		Build()

	if err := s.notifier.Notify(context.WithoutCancel(ctx), notification); err != nil {
		s.log.LogSideEffectFailure(ctx, "notification", booking.ID.String(), err)
		s.metrics.SideEffectFailed("notification")
	}
}

func (s *service) record(ctx context.Context, principal users.Principal, action string, bookingID uuid.UUID, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(context.WithoutCancel(ctx), audit.Entry{
		UserID:     principal.UserID,
		Action:     action,
		EntityType: audit.EntityBooking,
		EntityID:   bookingID,
		Details:    details,
	})
	if err != nil {
		s.log.LogSideEffectFailure(ctx, "audit", bookingID.String(), err)
		s.metrics.SideEffectFailed("audit")
	}
}
