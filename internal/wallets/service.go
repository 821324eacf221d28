package wallets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"parkly/internal/audit"
	"parkly/internal/garages"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/database"
	"parkly/internal/users"
	"parkly/pkg/logger"
	"parkly/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const reconcileBatchSize = 200

// GarageDirectory resolves the garage a wallet is opened against
type GarageDirectory interface {
	GetGarageByID(ctx context.Context, id uuid.UUID) (*garages.Garage, error)
}

// Ledger is the part of the wallet service the booking lifecycle settles against.
// Both calls join the transaction carried by ctx, if any.
type Ledger interface {
	Debit(ctx context.Context, customerID, garageID uuid.UUID, amount decimal.Decimal, bookingID uuid.UUID) (*Transaction, error)
	Credit(ctx context.Context, input CreditInput) (*Transaction, error)
}

// CreditInput describes a refund or top-up entry
type CreditInput struct {
	CustomerID  uuid.UUID
	GarageID    uuid.UUID
	Amount      decimal.Decimal
	Kind        TransactionType
	BookingID   *uuid.UUID
	Method      PaymentMethod
	Description string
}

type Service interface {
	Ledger

	OpenWallet(ctx context.Context, principal users.Principal, req OpenWalletRequest) (*Wallet, error)
	TopUp(ctx context.Context, principal users.Principal, req TopUpRequest) (*TopUpResponse, error)
	GetWallet(ctx context.Context, principal users.Principal, id uuid.UUID) (*Wallet, error)
	ListWallets(ctx context.Context, principal users.Principal) (*WalletListResponse, error)
	ListTransactions(ctx context.Context, principal users.Principal, walletID uuid.UUID, query TransactionListQuery) (*TransactionListResponse, error)

	Reconcile(ctx context.Context, walletID uuid.UUID) (*Reconciliation, error)
	// ReconcileAll checks every wallet and returns how many drifted
	ReconcileAll(ctx context.Context) (int, error)
}

type service struct {
	repo            Repository
	garages         GarageDirectory
	tx              database.Transactor
	audit           audit.Recorder
	metrics         *metrics.Metrics
	log             *logger.Logger
	defaultCurrency string
}

// NewService wires the wallet service; recorder and m may be nil
func NewService(repo Repository, garageDir GarageDirectory, tx database.Transactor, recorder audit.Recorder, m *metrics.Metrics, log *logger.Logger, defaultCurrency string) Service {
	if defaultCurrency == "" {
		defaultCurrency = "EGP"
	}
	return &service{
		repo:            repo,
		garages:         garageDir,
		tx:              tx,
		audit:           recorder,
		metrics:         m,
		log:             log,
		defaultCurrency: defaultCurrency,
	}
}

func (s *service) Debit(ctx context.Context, customerID, garageID uuid.UUID, amount decimal.Decimal, bookingID uuid.UUID) (*Transaction, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.Validation(nil, "debit amount must be positive")
	}

	var (
		txn     *Transaction
		balance decimal.Decimal
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := s.activeWallet(ctx, customerID, garageID)
		if err != nil {
			return err
		}

		var debited bool
		balance, debited, err = s.repo.Debit(ctx, wallet.ID, amount)
		if err != nil {
			return apperrors.Internal(err, "failed to debit wallet")
		}
		if !debited {
			return apperrors.InsufficientFunds(ErrInsufficientFunds,
				"Insufficient wallet balance: required %s", amount.StringFixed(2))
		}

		txn = &Transaction{
			WalletID:      wallet.ID,
			BookingID:     &bookingID,
			Type:          TransactionBookingFee,
			Amount:        amount,
			Status:        TransactionCompleted,
			PaymentMethod: PaymentEWallet,
			Description:   "Booking fee",
		}
		if err := s.repo.CreateTransaction(ctx, txn); err != nil {
			return apperrors.Internal(err, "failed to record booking fee")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.LogWalletDebited(ctx, txn.WalletID.String(), amount.StringFixed(2), balance.StringFixed(2))
	s.metrics.WalletMovement(TransactionBookingFee.String(), amount.InexactFloat64())
	return txn, nil
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*Transaction, error) {
	var (
		txn    *Transaction
		wallet *Wallet
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		wallet, err = s.repo.GetWalletByOwner(ctx, input.CustomerID, input.GarageID)
		if err != nil {
			if errors.Is(err, ErrWalletNotFound) {
				return apperrors.NotFound(err, "no wallet for this garage")
			}
			return apperrors.Internal(err, "failed to load wallet")
		}
		txn, err = s.credit(ctx, wallet, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// credit must run inside a transaction
func (s *service) credit(ctx context.Context, wallet *Wallet, input CreditInput) (*Transaction, error) {
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperrors.Validation(nil, "credit amount must be positive")
	}
	if !input.Kind.IsCredit() {
		return nil, apperrors.Validation(nil, "transaction type %q does not credit a wallet", input.Kind)
	}
	if !input.Method.IsValid() {
		return nil, apperrors.Validation(nil, "invalid payment method %q", input.Method)
	}

	balance, err := s.repo.Credit(ctx, wallet.ID, amount)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to credit wallet")
	}

	txn := &Transaction{
		WalletID:      wallet.ID,
		BookingID:     input.BookingID,
		Type:          input.Kind,
		Amount:        amount,
		Status:        TransactionCompleted,
		PaymentMethod: input.Method,
		Description:   input.Description,
	}
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, apperrors.Internal(err, "failed to record %s", input.Kind)
	}

	wallet.Balance = balance
	s.log.LogWalletCredited(ctx, wallet.ID.String(), input.Kind.String(), amount.StringFixed(2), wallet.Balance.StringFixed(2))
	s.metrics.WalletMovement(input.Kind.String(), amount.InexactFloat64())
	return txn, nil
}

func (s *service) OpenWallet(ctx context.Context, principal users.Principal, req OpenWalletRequest) (*Wallet, error) {
	if principal.Role != users.RoleCustomer {
		return nil, apperrors.Forbidden(nil, "only customers hold wallets")
	}
	garageID, err := uuid.Parse(req.GarageID)
	if err != nil {
		return nil, apperrors.Validation(err, "invalid garage ID")
	}
	if _, err := s.garages.GetGarageByID(ctx, garageID); err != nil {
		if errors.Is(err, garages.ErrGarageNotFound) {
			return nil, apperrors.NotFound(err, "garage %s not found", garageID)
		}
		return nil, apperrors.Internal(err, "failed to load garage")
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	wallet := &Wallet{
		UserID:   principal.UserID,
		GarageID: garageID,
		Balance:  decimal.Zero,
		Currency: currency,
		IsActive: true,
	}
	if err := s.repo.CreateWallet(ctx, wallet); err != nil {
		return nil, apperrors.Internal(err, "failed to open wallet")
	}

	// on conflict the insert is skipped and wallet.ID stays nil
	existing, err := s.repo.GetWalletByOwner(ctx, principal.UserID, garageID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load wallet")
	}

	if wallet.ID != uuid.Nil && wallet.ID == existing.ID {
		s.record(ctx, principal, "Wallet opened", audit.EntityWallet, existing.ID, map[string]interface{}{
			"garage_id": garageID.String(),
			"currency":  existing.Currency,
		})
	}
	return existing, nil
}

func (s *service) TopUp(ctx context.Context, principal users.Principal, req TopUpRequest) (*TopUpResponse, error) {
	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		return nil, apperrors.Validation(err, "invalid wallet ID")
	}
	method := PaymentMethod(req.PaymentMethod)
	if method == PaymentEWallet {
		return nil, apperrors.Validation(nil, "a wallet cannot be topped up from itself")
	}

	var (
		txn    *Transaction
		wallet *Wallet
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err = s.repo.GetWalletByID(ctx, walletID)
		if err != nil {
			if errors.Is(err, ErrWalletNotFound) {
				return apperrors.NotFound(err, "wallet %s not found", walletID)
			}
			return apperrors.Internal(err, "failed to load wallet")
		}
		if !wallet.IsOwnedBy(principal.UserID) {
			return apperrors.Forbidden(nil, "wallet does not belong to you")
		}
		if !wallet.IsActive {
			return apperrors.Conflict(nil, "wallet is not active")
		}

		txn, err = s.credit(ctx, wallet, CreditInput{
			CustomerID:  wallet.UserID,
			GarageID:    wallet.GarageID,
			Amount:      req.Amount,
			Kind:        TransactionTopUp,
			Method:      method,
			Description: fmt.Sprintf("Wallet top-up via %s", method),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, principal, "Wallet topped up", audit.EntityTransaction, txn.ID, map[string]interface{}{
		"wallet_id": wallet.ID.String(),
		"amount":    txn.Amount.StringFixed(2),
		"method":    method.String(),
	})
	return &TopUpResponse{Transaction: txn, Balance: wallet.Balance}, nil
}

func (s *service) GetWallet(ctx context.Context, principal users.Principal, id uuid.UUID) (*Wallet, error) {
	wallet, err := s.repo.GetWalletByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, apperrors.NotFound(err, "wallet %s not found", id)
		}
		return nil, apperrors.Internal(err, "failed to load wallet")
	}
	if !wallet.IsOwnedBy(principal.UserID) && principal.Role != users.RoleAdmin {
		return nil, apperrors.Forbidden(nil, "wallet does not belong to you")
	}
	return wallet, nil
}

func (s *service) ListWallets(ctx context.Context, principal users.Principal) (*WalletListResponse, error) {
	wallets, err := s.repo.ListWalletsByUser(ctx, principal.UserID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list wallets")
	}
	return &WalletListResponse{Wallets: wallets, Count: len(wallets)}, nil
}

func (s *service) ListTransactions(ctx context.Context, principal users.Principal, walletID uuid.UUID, query TransactionListQuery) (*TransactionListResponse, error) {
	if _, err := s.GetWallet(ctx, principal, walletID); err != nil {
		return nil, err
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	txns, total, err := s.repo.ListTransactions(ctx, walletID, query)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list transactions")
	}

	return &TransactionListResponse{
		WalletID:     walletID,
		Transactions: txns,
		Page:         query.Page,
		Limit:        query.Limit,
		TotalCount:   total,
		TotalPages:   int((total + int64(query.Limit) - 1) / int64(query.Limit)),
	}, nil
}

// Reconcile recomputes top_up - booking_fee + refund and compares it to the stored balance
func (s *service) Reconcile(ctx context.Context, walletID uuid.UUID) (*Reconciliation, error) {
	wallet, err := s.repo.GetWalletByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, apperrors.NotFound(err, "wallet %s not found", walletID)
		}
		return nil, apperrors.Internal(err, "failed to load wallet")
	}

	totals, err := s.repo.LedgerTotals(ctx, walletID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to sum ledger")
	}

	ledger := totals[TransactionTopUp].
		Sub(totals[TransactionBookingFee]).
		Add(totals[TransactionRefund])
	drift := wallet.Balance.Sub(ledger)

	return &Reconciliation{
		WalletID:      walletID,
		CachedBalance: wallet.Balance,
		LedgerBalance: ledger,
		Drift:         drift,
		Balanced:      drift.IsZero(),
	}, nil
}

func (s *service) ReconcileAll(ctx context.Context) (int, error) {
	drifted := 0
	after := uuid.Nil
	for {
		ids, err := s.repo.ListWalletIDs(ctx, after, reconcileBatchSize)
		if err != nil {
			return drifted, apperrors.Internal(err, "failed to list wallets")
		}
		for _, id := range ids {
			if ctx.Err() != nil {
				return drifted, ctx.Err()
			}
			result, err := s.Reconcile(ctx, id)
			if err != nil {
				s.log.WithError(err).Warn("Wallet reconciliation failed", "wallet_id", id.String())
				continue
			}
			if !result.Balanced {
				drifted++
				s.log.LogLedgerDrift(ctx, id.String(), result.CachedBalance.StringFixed(2), result.LedgerBalance.StringFixed(2))
				s.metrics.LedgerDrift()
			}
		}
		if len(ids) < reconcileBatchSize {
			return drifted, nil
		}
		after = ids[len(ids)-1]
	}
}

func (s *service) activeWallet(ctx context.Context, customerID, garageID uuid.UUID) (*Wallet, error) {
	wallet, err := s.repo.GetWalletByOwner(ctx, customerID, garageID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return nil, apperrors.NotFound(err, "no active wallet for this garage")
		}
		return nil, apperrors.Internal(err, "failed to load wallet")
	}
	if !wallet.IsActive {
		return nil, apperrors.NotFound(ErrWalletNotFound, "no active wallet for this garage")
	}
	return wallet, nil
}

func (s *service) record(ctx context.Context, principal users.Principal, action string, entity audit.EntityType, id uuid.UUID, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, audit.Entry{
		UserID:     principal.UserID,
		Action:     action,
		EntityType: entity,
		EntityID:   id,
		Details:    details,
	})
	if err != nil {
		s.log.LogSideEffectFailure(ctx, "audit", id.String(), err)
	}
}
