package wallets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a customer's prepaid balance at one garage
type Wallet struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_owner" json:"user_id"`
	GarageID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wallet_owner" json:"garage_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;check:balance >= 0" json:"balance"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'EGP'" json:"currency"`
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (w *Wallet) IsOwnedBy(userID uuid.UUID) bool {
	return w.UserID == userID
}

type TransactionType string

const (
	TransactionTopUp      TransactionType = "top_up"
	TransactionBookingFee TransactionType = "booking_fee"
	TransactionRefund     TransactionType = "refund"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTopUp, TransactionBookingFee, TransactionRefund:
		return true
	}
	return false
}

// IsCredit reports whether the type adds to the balance
func (t TransactionType) IsCredit() bool {
	return t == TransactionTopUp || t == TransactionRefund
}

func (t TransactionType) String() string {
	return string(t)
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
)

type PaymentMethod string

const (
	PaymentEWallet    PaymentMethod = "e_wallet"
	PaymentCash       PaymentMethod = "cash"
	PaymentCreditCard PaymentMethod = "credit_card"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentEWallet, PaymentCash, PaymentCreditCard:
		return true
	}
	return false
}

func (m PaymentMethod) String() string {
	return string(m)
}

// Transaction is an append-only ledger entry. Amount is always positive;
// Type decides the sign.
type Transaction struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WalletID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"wallet_id"`
	BookingID     *uuid.UUID        `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	Type          TransactionType   `gorm:"type:varchar(20);not null;check:type IN ('top_up','booking_fee','refund')" json:"type"`
	Amount        decimal.Decimal   `gorm:"type:decimal(12,2);not null;check:amount > 0" json:"amount"`
	Status        TransactionStatus `gorm:"type:varchar(20);not null;default:'completed'" json:"status"`
	PaymentMethod PaymentMethod     `gorm:"type:varchar(20);not null" json:"payment_method"`
	Description   string            `gorm:"type:text" json:"description"`
	CreatedAt     time.Time         `gorm:"index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
