package wallets

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletListResponse struct {
	Wallets []Wallet `json:"wallets"`
	Count   int      `json:"count"`
}

type TransactionListResponse struct {
	WalletID     uuid.UUID     `json:"wallet_id"`
	Transactions []Transaction `json:"transactions"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
	TotalCount   int64         `json:"total_count"`
	TotalPages   int           `json:"total_pages"`
}

type TopUpResponse struct {
	Transaction *Transaction    `json:"transaction"`
	Balance     decimal.Decimal `json:"balance"`
}

// Reconciliation compares the cached balance against the ledger sum
type Reconciliation struct {
	WalletID      uuid.UUID       `json:"wallet_id"`
	CachedBalance decimal.Decimal `json:"cached_balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Drift         decimal.Decimal `json:"drift"`
	Balanced      bool            `json:"balanced"`
}
