package bookings

import "time"

type CreateBookingRequest struct {
	GarageID      string    `json:"garage_id" validate:"required,uuid"`
	SpotID        string    `json:"spot_id" validate:"required,uuid"`
	EntryTime     time.Time `json:"booked_entry_time"`
	ExitTime      time.Time `json:"booked_exit_time"`
	PaymentMethod string    `json:"payment_method" validate:"required,oneof=e_wallet cash credit_card"`
}

type ConfirmPaymentRequest struct {
	PaymentReference string `json:"payment_reference" validate:"required,min=3,max=100"`
}

type BookingListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending_payment confirmed cancelled"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
