package bookings

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"parkly/internal/audit"
	"parkly/internal/garages"
	"parkly/internal/notifications"
	"parkly/internal/shared/apperrors"
	"parkly/internal/wallets"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// world is an in-memory stand-in for the database shared by every fake store
type world struct {
	mu       sync.Mutex
	spots    map[uuid.UUID]garages.ParkingSpot
	garages  map[uuid.UUID]garages.Garage
	bookings map[uuid.UUID]Booking
	wallets  map[uuid.UUID]wallets.Wallet
	txns     []wallets.Transaction
	// employee -> garages they work at
	assignments map[uuid.UUID]map[uuid.UUID]bool

	beforeReserve func()
}

func newWorld() *world {
	return &world{
		spots:    map[uuid.UUID]garages.ParkingSpot{},
		garages:  map[uuid.UUID]garages.Garage{},
		bookings: map[uuid.UUID]Booking{},
		wallets:  map[uuid.UUID]wallets.Wallet{},

		assignments: map[uuid.UUID]map[uuid.UUID]bool{},
	}
}

type worldState struct {
	spots    map[uuid.UUID]garages.ParkingSpot
	garages  map[uuid.UUID]garages.Garage
	bookings map[uuid.UUID]Booking
	wallets  map[uuid.UUID]wallets.Wallet
	txns     []wallets.Transaction
}

func (w *world) snapshot() worldState {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := worldState{
		spots:    make(map[uuid.UUID]garages.ParkingSpot, len(w.spots)),
		garages:  make(map[uuid.UUID]garages.Garage, len(w.garages)),
		bookings: make(map[uuid.UUID]Booking, len(w.bookings)),
		wallets:  make(map[uuid.UUID]wallets.Wallet, len(w.wallets)),
		txns:     append([]wallets.Transaction(nil), w.txns...),
	}
	for k, v := range w.spots {
		s.spots[k] = v
	}
	for k, v := range w.garages {
		s.garages[k] = v
	}
	for k, v := range w.bookings {
		s.bookings[k] = v
	}
	for k, v := range w.wallets {
		s.wallets[k] = v
	}
	return s
}

func (w *world) restore(s worldState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spots, w.garages, w.bookings, w.wallets, w.txns = s.spots, s.garages, s.bookings, s.wallets, s.txns
}

// serialTx runs one transaction at a time and rolls the world back on error.
// Nested calls join the outer transaction.
// Whole transactions never overlap here, so this package's concurrency tests only
// cover the service's ordering. The conditional UPDATEs that guard spots and
// balances are checked in garages/repository_test.go and wallets/repository_test.go.
type serialTx struct {
	mu sync.Mutex
	w  *world
}

type inTxKey struct{}

func (t *serialTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	before := t.w.snapshot()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		t.w.restore(before)
		return err
	}
	return nil
}

type inventory struct{ w *world }

func (i inventory) Reserve(_ context.Context, spotID uuid.UUID) error {
	if i.w.beforeReserve != nil {
		i.w.beforeReserve()
	}
	i.w.mu.Lock()
	defer i.w.mu.Unlock()
	spot, ok := i.w.spots[spotID]
	if !ok || !spot.IsActive {
		return apperrors.NotFound(garages.ErrSpotNotFound, "parking spot not found")
	}
	if spot.Status != garages.SpotStatusAvailable {
		return apperrors.Conflict(garages.ErrSpotOccupied, "parking spot is not available")
	}
	now := time.Now()
	spot.Status = garages.SpotStatusOccupied
	spot.LastBookedAt = &now
	i.w.spots[spotID] = spot
	return nil
}

func (i inventory) Release(_ context.Context, spotID uuid.UUID) error {
	i.w.mu.Lock()
	defer i.w.mu.Unlock()
	spot, ok := i.w.spots[spotID]
	if !ok {
		return apperrors.NotFound(garages.ErrSpotNotFound, "parking spot %s not found", spotID)
	}
	spot.Status = garages.SpotStatusAvailable
	i.w.spots[spotID] = spot
	return nil
}

func (i inventory) GetSpotByID(_ context.Context, id uuid.UUID) (*garages.ParkingSpot, error) {
	i.w.mu.Lock()
	defer i.w.mu.Unlock()
	spot, ok := i.w.spots[id]
	if !ok || !spot.IsActive {
		return nil, garages.ErrSpotNotFound
	}
	return &spot, nil
}

func (i inventory) GetGarageByID(_ context.Context, id uuid.UUID) (*garages.Garage, error) {
	i.w.mu.Lock()
	defer i.w.mu.Unlock()
	g, ok := i.w.garages[id]
	if !ok || !g.IsActive {
		return nil, garages.ErrGarageNotFound
	}
	return &g, nil
}

func (i inventory) FindGarage(_ context.Context, id uuid.UUID) (*garages.Garage, error) {
	i.w.mu.Lock()
	defer i.w.mu.Unlock()
	g, ok := i.w.garages[id]
	if !ok {
		return nil, garages.ErrGarageNotFound
	}
	return &g, nil
}

type staffRoster struct{ w *world }

func (r staffRoster) IsAssigned(_ context.Context, userID, garageID uuid.UUID) (bool, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return r.w.assignments[userID][garageID], nil
}

type bookingStore struct{ w *world }

func (b bookingStore) Create(_ context.Context, booking *Booking) error {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	for _, existing := range b.w.bookings {
		if existing.TicketIdentifier == booking.TicketIdentifier {
			return errors.New("duplicate key value violates unique constraint on ticket_identifier")
		}
		if existing.SpotID == booking.SpotID && existing.Status.IsActive() {
			return errors.New("duplicate key value violates unique constraint idx_bookings_active_spot")
		}
	}
	b.w.bookings[booking.ID] = *booking
	return nil
}

func (b bookingStore) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	booking, ok := b.w.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &booking, nil
}

func (b bookingStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return b.GetByID(ctx, id)
}

func (b bookingStore) MarkPaid(_ context.Context, id uuid.UUID, reference string) error {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	booking, ok := b.w.bookings[id]
	if !ok || booking.Status != StatusPendingPayment {
		return ErrInvalidState
	}
	booking.PaymentStatus = PaymentPaid
	booking.Status = StatusConfirmed
	if reference != "" {
		booking.PaymentReference = reference
	}
	b.w.bookings[id] = booking
	return nil
}

func (b bookingStore) MarkCancelled(_ context.Context, id uuid.UUID, c cancellation) error {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	booking, ok := b.w.bookings[id]
	if !ok || booking.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	applyCancellation(&booking, c)
	b.w.bookings[id] = booking
	return nil
}

func (b bookingStore) List(_ context.Context, filter ListFilter) ([]Booking, int64, error) {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	var out []Booking
	for _, booking := range b.w.bookings {
		if filter.CustomerID != uuid.Nil && booking.CustomerID != filter.CustomerID {
			continue
		}
		if filter.GarageID != uuid.Nil && booking.GarageID != filter.GarageID {
			continue
		}
		if filter.Status != "" && booking.Status != filter.Status {
			continue
		}
		out = append(out, booking)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

type walletStore struct{ w *world }

func (s walletStore) CreateWallet(_ context.Context, wallet *wallets.Wallet) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for _, existing := range s.w.wallets {
		if existing.UserID == wallet.UserID && existing.GarageID == wallet.GarageID {
			return nil
		}
	}
	wallet.ID = uuid.New()
	s.w.wallets[wallet.ID] = *wallet
	return nil
}

func (s walletStore) GetWalletByID(_ context.Context, id uuid.UUID) (*wallets.Wallet, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	wallet, ok := s.w.wallets[id]
	if !ok {
		return nil, wallets.ErrWalletNotFound
	}
	return &wallet, nil
}

func (s walletStore) GetWalletByOwner(_ context.Context, userID, garageID uuid.UUID) (*wallets.Wallet, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for _, wallet := range s.w.wallets {
		if wallet.UserID == userID && wallet.GarageID == garageID {
			return &wallet, nil
		}
	}
	return nil, wallets.ErrWalletNotFound
}

func (s walletStore) ListWalletsByUser(_ context.Context, userID uuid.UUID) ([]wallets.Wallet, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []wallets.Wallet
	for _, wallet := range s.w.wallets {
		if wallet.UserID == userID {
			out = append(out, wallet)
		}
	}
	return out, nil
}

func (s walletStore) ListWalletIDs(_ context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var ids []uuid.UUID
	for id := range s.w.wallets {
		if afterID == uuid.Nil || id.String() > afterID.String() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s walletStore) Debit(_ context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	wallet, ok := s.w.wallets[walletID]
	if !ok || !wallet.IsActive || wallet.Balance.LessThan(amount) {
		return decimal.Zero, false, nil
	}
	wallet.Balance = wallet.Balance.Sub(amount)
	s.w.wallets[walletID] = wallet
	return wallet.Balance, true, nil
}

func (s walletStore) Credit(_ context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	wallet, ok := s.w.wallets[walletID]
	if !ok {
		return decimal.Zero, wallets.ErrWalletNotFound
	}
	wallet.Balance = wallet.Balance.Add(amount)
	s.w.wallets[walletID] = wallet
	return wallet.Balance, nil
}

func (s walletStore) CreateTransaction(_ context.Context, txn *wallets.Transaction) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	txn.ID = uuid.New()
	txn.CreatedAt = time.Now()
	s.w.txns = append(s.w.txns, *txn)
	return nil
}

func (s walletStore) ListTransactions(_ context.Context, walletID uuid.UUID, _ wallets.TransactionListQuery) ([]wallets.Transaction, int64, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []wallets.Transaction
	for _, txn := range s.w.txns {
		if txn.WalletID == walletID {
			out = append(out, txn)
		}
	}
	return out, int64(len(out)), nil
}

func (s walletStore) LedgerTotals(_ context.Context, walletID uuid.UUID) (map[wallets.TransactionType]decimal.Decimal, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	totals := map[wallets.TransactionType]decimal.Decimal{}
	for _, txn := range s.w.txns {
		if txn.WalletID == walletID && txn.Status == wallets.TransactionCompleted {
			totals[txn.Type] = totals[txn.Type].Add(txn.Amount)
		}
	}
	return totals, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, notification *notifications.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, *notification)
	return nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAudit) Record(_ context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}
