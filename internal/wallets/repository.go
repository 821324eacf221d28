package wallets

import (
	"context"
	"errors"

	"parkly/internal/shared/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
)

type Repository interface {
	CreateWallet(ctx context.Context, wallet *Wallet) error
	GetWalletByID(ctx context.Context, id uuid.UUID) (*Wallet, error)
	GetWalletByOwner(ctx context.Context, userID, garageID uuid.UUID) (*Wallet, error)
	ListWalletsByUser(ctx context.Context, userID uuid.UUID) ([]Wallet, error)
	ListWalletIDs(ctx context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error)

	// Debit subtracts amount only when the balance covers it and returns the new balance.
	// ok is false when the wallet was left untouched.
	Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (balance decimal.Decimal, ok bool, err error)
	// Credit returns the balance after the credit
	Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)

	CreateTransaction(ctx context.Context, txn *Transaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, query TransactionListQuery) ([]Transaction, int64, error)
	LedgerTotals(ctx context.Context, walletID uuid.UUID) (map[TransactionType]decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CreateWallet leaves an existing (user, garage) wallet untouched
func (r *repository) CreateWallet(ctx context.Context, wallet *Wallet) error {
	return database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "garage_id"}},
			DoNothing: true,
		}).
		Create(wallet).Error
}

func (r *repository) GetWalletByID(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	var wallet Wallet
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) GetWalletByOwner(ctx context.Context, userID, garageID uuid.UUID) (*Wallet, error) {
	var wallet Wallet
	err := database.Conn(ctx, r.db).
		Where("user_id = ? AND garage_id = ?", userID, garageID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) ListWalletsByUser(ctx context.Context, userID uuid.UUID) ([]Wallet, error) {
	var wallets []Wallet
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&wallets).Error
	return wallets, err
}

// ListWalletIDs pages through every wallet in id order
func (r *repository) ListWalletIDs(ctx context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := database.Conn(ctx, r.db).Model(&Wallet{}).Order("id ASC").Limit(limit)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	err := query.Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	var wallet Wallet
	result := database.Conn(ctx, r.db).
		Model(&wallet).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "balance"}}}).
		Where("id = ? AND is_active = ? AND balance >= ?", walletID, true, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return decimal.Zero, false, result.Error
	}
	if result.RowsAffected != 1 {
		return decimal.Zero, false, nil
	}
	return wallet.Balance, true, nil
}

func (r *repository) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var wallet Wallet
	result := database.Conn(ctx, r.db).
		Model(&wallet).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "balance"}}}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return decimal.Zero, result.Error
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, ErrWalletNotFound
	}
	return wallet.Balance, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *Transaction) error {
	return database.Conn(ctx, r.db).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, query TransactionListQuery) ([]Transaction, int64, error) {
	var txns []Transaction
	var total int64

	base := database.Conn(ctx, r.db).Model(&Transaction{}).Where("wallet_id = ?", walletID)
	if query.Type != "" {
		base = base.Where("type = ?", query.Type)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := base.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&txns).Error
	return txns, total, err
}

// LedgerTotals sums completed transaction amounts per type
func (r *repository) LedgerTotals(ctx context.Context, walletID uuid.UUID) (map[TransactionType]decimal.Decimal, error) {
	var rows []struct {
		Type  TransactionType
		Total decimal.Decimal
	}
	err := database.Conn(ctx, r.db).
		Model(&Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("wallet_id = ? AND status = ?", walletID, TransactionCompleted).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[TransactionType]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.Type] = row.Total
	}
	return totals, nil
}
