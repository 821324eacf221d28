package wallets

import "github.com/shopspring/decimal"

type OpenWalletRequest struct {
	GarageID string `json:"garage_id" validate:"required,uuid"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type TopUpRequest struct {
	WalletID      string          `json:"wallet_id" validate:"required,uuid"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash credit_card"`
}

type TransactionListQuery struct {
	Type  string `form:"type" binding:"omitempty,oneof=top_up booking_fee refund"`
	Page  int    `form:"page" binding:"omitempty,min=1"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
