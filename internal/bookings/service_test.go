package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"parkly/internal/garages"
	"parkly/internal/pricing"
	"parkly/internal/shared/apperrors"
	"parkly/internal/tickets"
	"parkly/internal/users"
	"parkly/internal/wallets"
	"parkly/pkg/logger"
	"parkly/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	entry = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	exit  = time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)
)

type fixture struct {
	w        *world
	svc      Service
	ledger   wallets.Service
	notifier *recordingNotifier
	audit    *recordingAudit
	clock    time.Time
	manager  uuid.UUID
	garage   garages.Garage
	spot     garages.ParkingSpot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		w:        newWorld(),
		notifier: &recordingNotifier{},
		audit:    &recordingAudit{},
		clock:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		manager:  uuid.New(),
	}

	f.garage = garages.Garage{
		ID:              uuid.New(),
		ManagerID:       f.manager,
		Name:            "Downtown",
		HourlyRate:      decimal.NewFromInt(10),
		MinBookingHours: decimal.NewFromInt(1),
		CancellationFee: decimal.NewFromInt(5),
		IsActive:        true,
	}
	f.w.garages[f.garage.ID] = f.garage
	f.spot = f.addSpot("A-01")

	tx := &serialTx{w: f.w}
	f.ledger = wallets.NewService(walletStore{w: f.w}, inventory{w: f.w}, tx, nil, nil, logger.Discard(), "EGP")
	f.svc = NewService(Dependencies{
		Repo:      bookingStore{w: f.w},
		Inventory: inventory{w: f.w},
		Staff:     staffRoster{w: f.w},
		Pricing:   pricing.NewPolicy(15 * time.Minute),
		Ledger:    f.ledger,
		Tickets:   tickets.NewIssuer(15 * time.Minute),
		Tx:        tx,
		Notifier:  f.notifier,
		Audit:     f.audit,
		Metrics:   metrics.New(),
		Log:       logger.Discard(),
		Now:       func() time.Time { return f.clock },
	})
	return f
}

func (f *fixture) addSpot(number string) garages.ParkingSpot {
	spot := garages.ParkingSpot{
		ID:            uuid.New(),
		GarageID:      f.garage.ID,
		SpotNumber:    number,
		PriceModifier: decimal.NewFromInt(1),
		Status:        garages.SpotStatusAvailable,
		IsActive:      true,
	}
	f.w.spots[spot.ID] = spot
	return spot
}

func (f *fixture) customer(balance string) users.Principal {
	p := users.Principal{UserID: uuid.New(), Role: users.RoleCustomer}
	if balance == "" {
		return p
	}
	id := uuid.New()
	amount := decimal.RequireFromString(balance)
	f.w.wallets[id] = wallets.Wallet{ID: id, UserID: p.UserID, GarageID: f.garage.ID, Balance: amount, Currency: "EGP", IsActive: true}
	if amount.IsPositive() {
		f.w.txns = append(f.w.txns, wallets.Transaction{
			ID: uuid.New(), WalletID: id, Type: wallets.TransactionTopUp, Amount: amount,
			Status: wallets.TransactionCompleted, PaymentMethod: wallets.PaymentCash,
		})
	}
	return p
}

// employee returns an employee working at the fixture garage
func (f *fixture) employee() users.Principal {
	p := users.Principal{UserID: uuid.New(), Role: users.RoleEmployee}
	f.w.assignments[p.UserID] = map[uuid.UUID]bool{f.garage.ID: true}
	return p
}

func (f *fixture) walletOf(p users.Principal) wallets.Wallet {
	for _, w := range f.w.wallets {
		if w.UserID == p.UserID {
			return w
		}
	}
	return wallets.Wallet{}
}

func (f *fixture) request(spot garages.ParkingSpot, method string, from, to time.Time) CreateBookingRequest {
	return CreateBookingRequest{
		GarageID:      f.garage.ID.String(),
		SpotID:        spot.ID.String(),
		EntryTime:     from,
		ExitTime:      to,
		PaymentMethod: method,
	}
}

func (f *fixture) spotStatus(id uuid.UUID) garages.SpotStatus {
	return f.w.spots[id].Status
}

func (f *fixture) activeBookingsFor(spotID uuid.UUID) int {
	n := 0
	for _, b := range f.w.bookings {
		if b.SpotID == spotID && b.Status.IsActive() {
			n++
		}
	}
	return n
}

func TestCreateWalletBookingRoundTrip(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("100")

	result, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "e_wallet", entry, exit))
	require.NoError(t, err)

	assert.True(t, result.BookingFee.Equal(decimal.NewFromInt(30)))
	assert.True(t, result.DurationHours.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, StatusConfirmed, result.Status)
	assert.Equal(t, PaymentPaid, result.PaymentStatus)
	assert.Regexp(t, `^QR_\d+_[0-9a-z]{9}$`, result.TicketIdentifier)
	assert.Contains(t, result.TicketPayload, "data:image/png;base64,")
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), result.TicketExpiresAt, 5*time.Second)

	assert.True(t, f.walletOf(customer).Balance.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, garages.SpotStatusOccupied, f.spotStatus(f.spot.ID))

	stored := f.w.bookings[result.BookingID]
	assert.Equal(t, result.TicketIdentifier, stored.TicketIdentifier)
	assert.Nil(t, stored.CancellationTime)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "Booking Created", f.notifier.sent[0].Title)
	assert.Equal(t, "Your booking for spot A-01 at Downtown is confirmed.", f.notifier.sent[0].Message)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "Booking created", f.audit.entries[0].Action)
}

func TestCreateInsufficientFundsCancelsAndReleases(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("5")

	_, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "e_wallet", entry, exit))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.Equal(t, garages.SpotStatusAvailable, f.spotStatus(f.spot.ID))
	assert.True(t, f.walletOf(customer).Balance.Equal(decimal.NewFromInt(5)))

	require.Len(t, f.w.bookings, 1)
	for _, b := range f.w.bookings {
		assert.Equal(t, StatusCancelled, b.Status)
		assert.Equal(t, PaymentUnpaid, b.PaymentStatus)
		assert.NotNil(t, b.CancellationTime)
		assert.True(t, b.CancellationFee.Decimal.IsZero())
	}
	for _, txn := range f.w.txns {
		assert.NotEqual(t, wallets.TransactionBookingFee, txn.Type)
	}
	assert.Empty(t, f.notifier.sent)
}

func TestCreateRejectsSubMinimumDuration(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("100")

	_, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "e_wallet", entry, entry.Add(30*time.Minute)))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, "Minimum booking duration is 1 hours", apperrors.MessageOf(err))
	assert.Equal(t, garages.SpotStatusAvailable, f.spotStatus(f.spot.ID))
	assert.True(t, f.walletOf(customer).Balance.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, f.w.bookings)
}

func TestConcurrentCreateForSameSpot(t *testing.T) {
	f := newFixture(t)
	first, second := f.customer("100"), f.customer("100")

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
	)
	for i, p := range []users.Principal{first, second} {
		wg.Add(1)
		go func(i int, p users.Principal) {
			defer wg.Done()
			_, results[i] = f.svc.Create(context.Background(), p, f.request(f.spot, "e_wallet", entry, exit))
		}(i, p)
	}
	wg.Wait()

	succeeded, conflicted := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrConflict):
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
	assert.Equal(t, garages.SpotStatusOccupied, f.spotStatus(f.spot.ID))
	assert.Equal(t, 1, f.activeBookingsFor(f.spot.ID))

	charged := 0
	for _, p := range []users.Principal{first, second} {
		if f.walletOf(p).Balance.Equal(decimal.NewFromInt(70)) {
			charged++
		}
	}
	assert.Equal(t, 1, charged)
}

func TestLostReservationRaceLeavesWalletUntouched(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("100")
	f.w.beforeReserve = func() {
		f.w.mu.Lock()
		spot := f.w.spots[f.spot.ID]
		spot.Status = garages.SpotStatusOccupied
		f.w.spots[f.spot.ID] = spot
		f.w.mu.Unlock()
	}

	_, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "e_wallet", entry, exit))

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.ErrorIs(t, err, garages.ErrSpotOccupied)
	assert.True(t, f.walletOf(customer).Balance.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, f.w.bookings)
}

func TestCreateWithCashStaysPending(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("")

	result, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "cash", entry, exit))
	require.NoError(t, err)

	assert.Equal(t, StatusPendingPayment, result.Status)
	assert.Equal(t, PaymentUnpaid, result.PaymentStatus)
	assert.Equal(t, garages.SpotStatusOccupied, f.spotStatus(f.spot.ID))
	assert.Equal(t, "Your booking for spot A-01 at Downtown is pending payment.", f.notifier.sent[0].Message)
}

func TestCreateWithoutWalletRollsBack(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("")

	_, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "e_wallet", entry, exit))

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, f.w.bookings)
	assert.Equal(t, garages.SpotStatusAvailable, f.spotStatus(f.spot.ID))
}

func TestCreateLookupFailures(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("100")

	occupied := f.addSpot("A-02")
	occupied.Status = garages.SpotStatusOccupied
	f.w.spots[occupied.ID] = occupied

	inactive := f.addSpot("A-03")
	inactive.IsActive = false
	f.w.spots[inactive.ID] = inactive

	otherGarage := f.addSpot("B-01")
	otherGarage.GarageID = uuid.New()
	f.w.spots[otherGarage.ID] = otherGarage

	tests := []struct {
		name string
		req  CreateBookingRequest
		want error
	}{
		{"occupied spot", f.request(occupied, "e_wallet", entry, exit), apperrors.ErrConflict},
		{"inactive spot", f.request(inactive, "e_wallet", entry, exit), apperrors.ErrNotFound},
		{"unknown spot", CreateBookingRequest{GarageID: f.garage.ID.String(), SpotID: uuid.NewString(), EntryTime: entry, ExitTime: exit, PaymentMethod: "cash"}, apperrors.ErrNotFound},
		{"spot of another garage", f.request(otherGarage, "e_wallet", entry, exit), apperrors.ErrValidation},
		{"missing times", f.request(f.spot, "cash", time.Time{}, exit), apperrors.ErrValidation},
		{"unknown payment method", f.request(f.spot, "bitcoin", entry, exit), apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), customer, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.svc.Create(context.Background(), users.Principal{UserID: uuid.New(), Role: users.RoleEmployee}, f.request(f.spot, "cash", entry, exit))
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	assert.Empty(t, f.w.bookings)
}

func TestCancelGracePeriodBoundary(t *testing.T) {
	tests := []struct {
		name       string
		after      time.Duration
		wantFee    int64
		wantRefund int64
		wantGrace  bool
	}{
		{"inside grace", 14*time.Minute + 59*time.Second, 0, 30, true},
		{"outside grace", 15*time.Minute + 1*time.Second, 5, 25, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			customer := f.customer("100")
			created, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "e_wallet", entry, exit))
			require.NoError(t, err)

			f.clock = f.clock.Add(tt.after)
			result, err := f.svc.Cancel(context.Background(), customer, created.BookingID)
			require.NoError(t, err)

			assert.Equal(t, StatusCancelled, result.Status)
			assert.Equal(t, tt.wantGrace, result.WithinGracePeriod)
			assert.True(t, result.CancellationFee.Equal(decimal.NewFromInt(tt.wantFee)))
			assert.True(t, result.RefundAmount.Equal(decimal.NewFromInt(tt.wantRefund)))
			assert.True(t, f.walletOf(customer).Balance.Equal(decimal.NewFromInt(70+tt.wantRefund)))
			assert.Equal(t, garages.SpotStatusAvailable, f.spotStatus(f.spot.ID))

			stored := f.w.bookings[created.BookingID]
			require.NotNil(t, stored.CancellationTime)
			assert.Equal(t, f.clock, *stored.CancellationTime)
		})
	}
}

func TestCancelTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("100")
	created, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "e_wallet", entry, exit))
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), customer, created.BookingID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), customer, created.BookingID)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.True(t, f.walletOf(customer).Balance.Equal(decimal.NewFromInt(100)))

	refunds := 0
	for _, txn := range f.w.txns {
		if txn.Type == wallets.TransactionRefund {
			refunds++
		}
	}
	assert.Equal(t, 1, refunds)
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture(t)
	owner := f.customer("100")
	created, err := f.svc.Create(context.Background(), owner, f.request(f.spot, "e_wallet", entry, exit))
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.customer(""), created.BookingID)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	_, err = f.svc.Cancel(context.Background(), owner, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, StatusConfirmed, f.w.bookings[created.BookingID].Status)
}

func TestCancelFeeAboveBookingFeeForfeitsEverything(t *testing.T) {
	f := newFixture(t)
	g := f.w.garages[f.garage.ID]
	g.CancellationFee = decimal.NewFromInt(50)
	f.w.garages[f.garage.ID] = g

	customer := f.customer("100")
	created, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "e_wallet", entry, exit))
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Hour)
	result, err := f.svc.Cancel(context.Background(), customer, created.BookingID)
	require.NoError(t, err)

	assert.True(t, result.RefundAmount.IsZero())
	assert.True(t, f.walletOf(customer).Balance.Equal(decimal.NewFromInt(70)))
}

func TestCancelUnpaidBookingRefundsNothing(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("100")
	created, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "cash", entry, exit))
	require.NoError(t, err)

	result, err := f.svc.Cancel(context.Background(), customer, created.BookingID)
	require.NoError(t, err)

	assert.True(t, result.RefundAmount.IsZero())
	assert.True(t, f.walletOf(customer).Balance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, garages.SpotStatusAvailable, f.spotStatus(f.spot.ID))
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("")
	created, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "cash", entry, exit))
	require.NoError(t, err)

	req := ConfirmPaymentRequest{PaymentReference: "CASH-0001"}

	_, err = f.svc.ConfirmPayment(context.Background(), customer, created.BookingID, req)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	stranger := users.Principal{UserID: uuid.New(), Role: users.RoleGarageAdmin}
	_, err = f.svc.ConfirmPayment(context.Background(), stranger, created.BookingID, req)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	manager := users.Principal{UserID: f.manager, Role: users.RoleGarageAdmin}
	booking, err := f.svc.ConfirmPayment(context.Background(), manager, created.BookingID, req)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, booking.Status)
	assert.Equal(t, PaymentPaid, booking.PaymentStatus)
	assert.Equal(t, "CASH-0001", f.w.bookings[created.BookingID].PaymentReference)

	_, err = f.svc.ConfirmPayment(context.Background(), f.employee(), created.BookingID, req)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestConfirmPaymentByForeignEmployeeIsForbidden(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("")
	created, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "cash", entry, exit))
	require.NoError(t, err)
	req := ConfirmPaymentRequest{PaymentReference: "CASH-0003"}

	// works at another garage
	foreign := users.Principal{UserID: uuid.New(), Role: users.RoleEmployee}
	f.w.assignments[foreign.UserID] = map[uuid.UUID]bool{uuid.New(): true}

	_, err = f.svc.ConfirmPayment(context.Background(), foreign, created.BookingID, req)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	assert.Equal(t, StatusPendingPayment, f.w.bookings[created.BookingID].Status)

	_, err = f.svc.Get(context.Background(), foreign, created.BookingID)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	_, err = f.svc.ListForGarage(context.Background(), foreign, f.garage.ID, BookingListQuery{})
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	booking, err := f.svc.ConfirmPayment(context.Background(), f.employee(), created.BookingID, req)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, booking.Status)
}

func TestConfirmedCashBookingIsRefundedOutOfBand(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("10")
	created, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "cash", entry, exit))
	require.NoError(t, err)

	admin := users.Principal{UserID: uuid.New(), Role: users.RoleAdmin}
	_, err = f.svc.ConfirmPayment(context.Background(), admin, created.BookingID, ConfirmPaymentRequest{PaymentReference: "CASH-0002"})
	require.NoError(t, err)

	result, err := f.svc.Cancel(context.Background(), customer, created.BookingID)
	require.NoError(t, err)
	assert.True(t, result.RefundAmount.IsZero())
	assert.True(t, f.walletOf(customer).Balance.Equal(decimal.NewFromInt(10)))
}

func TestLedgerIdentityAcrossLifecycle(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("100")
	second := f.addSpot("A-02")
	ctx := context.Background()

	b1, err := f.svc.Create(ctx, customer, f.request(f.spot, "e_wallet", entry, exit))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, customer, f.request(second, "e_wallet", entry, entry.Add(90*time.Minute)))
	require.NoError(t, err)

	f.clock = f.clock.Add(20 * time.Minute)
	_, err = f.svc.Cancel(ctx, customer, b1.BookingID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, customer, f.request(f.spot, "e_wallet", entry, exit.Add(6*time.Hour)))
	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	wallet := f.walletOf(customer)
	result, err := f.ledger.Reconcile(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, result.Balanced, "drift %s", result.Drift)
	// 100 - 30 - 15 + 25
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(80)))

	for _, spot := range []uuid.UUID{f.spot.ID, second.ID} {
		assert.LessOrEqual(t, f.activeBookingsFor(spot), 1)
	}
}

func TestSideEffectFailuresDoNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("kafka unavailable")
	customer := f.customer("100")

	result, err := f.svc.Create(context.Background(), customer, f.request(f.spot, "e_wallet", entry, exit))

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, result.Status)
	assert.Len(t, f.audit.entries, 1)
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)
	owner := f.customer("100")
	created, err := f.svc.Create(context.Background(), owner, f.request(f.spot, "e_wallet", entry, exit))
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), owner, created.BookingID)
	assert.NoError(t, err)
	_, err = f.svc.Get(context.Background(), f.customer(""), created.BookingID)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
	_, err = f.svc.Get(context.Background(), users.Principal{UserID: f.manager, Role: users.RoleGarageAdmin}, created.BookingID)
	assert.NoError(t, err)

	mine, err := f.svc.ListForCustomer(context.Background(), owner, BookingListQuery{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.TotalCount)
	assert.Equal(t, 20, mine.Limit)

	_, err = f.svc.ListForGarage(context.Background(), users.Principal{UserID: uuid.New(), Role: users.RoleGarageAdmin}, f.garage.ID, BookingListQuery{})
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	all, err := f.svc.ListForGarage(context.Background(), f.employee(), f.garage.ID, BookingListQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Bookings, 1)
}
