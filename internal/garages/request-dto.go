package garages

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CreateGarageRequest struct {
	Name               string          `json:"name" validate:"required,min=2,max=255"`
	Address            string          `json:"address" validate:"required,min=5"`
	Governorate        string          `json:"governorate" validate:"omitempty,max=100"`
	Latitude           float64         `json:"latitude" validate:"min=-90,max=90"`
	Longitude          float64         `json:"longitude" validate:"min=-180,max=180"`
	TotalCapacity      int             `json:"total_capacity" validate:"required,min=1"`
	HourlyRate         decimal.Decimal `json:"hourly_rate" validate:"gt=0"`
	FloorsNumber       int             `json:"floors_number" validate:"required,min=1,max=50"`
	WorkingHours       datatypes.JSON  `json:"working_hours,omitempty"`
	CancellationPolicy string          `json:"cancellation_policy" validate:"omitempty,max=2000"`
	MinBookingHours    decimal.Decimal `json:"min_booking_hours" validate:"gt=0"`
	CancellationFee    decimal.Decimal `json:"cancellation_fee" validate:"gte=0"`
}

// UpdateGarageRequest carries only the fields being changed
type UpdateGarageRequest struct {
	Name               *string          `json:"name" validate:"omitempty,min=2,max=255"`
	Address            *string          `json:"address" validate:"omitempty,min=5"`
	Governorate        *string          `json:"governorate" validate:"omitempty,max=100"`
	Latitude           *float64         `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude          *float64         `json:"longitude" validate:"omitempty,min=-180,max=180"`
	TotalCapacity      *int             `json:"total_capacity" validate:"omitempty,min=1"`
	HourlyRate         *decimal.Decimal `json:"hourly_rate" validate:"omitempty,gt=0"`
	FloorsNumber       *int             `json:"floors_number" validate:"omitempty,min=1,max=50"`
	WorkingHours       datatypes.JSON   `json:"working_hours,omitempty"`
	CancellationPolicy *string          `json:"cancellation_policy" validate:"omitempty,max=2000"`
	MinBookingHours    *decimal.Decimal `json:"min_booking_hours" validate:"omitempty,gt=0"`
	CancellationFee    *decimal.Decimal `json:"cancellation_fee" validate:"omitempty,gte=0"`
}

type CreateSpotRequest struct {
	FloorNumber   int             `json:"floor_number" validate:"min=0,max=50"`
	SpotNumber    string          `json:"spot_number" validate:"required,min=1,max=20"`
	SpotType      string          `json:"spot_type" validate:"omitempty,oneof=regular compact large accessible electric"`
	PriceModifier decimal.Decimal `json:"price_modifier" validate:"omitempty,gt=0,lte=10"`
}

type GarageListQuery struct {
	Governorate string `form:"governorate"`
	ManagerID   string `form:"manager_id" binding:"omitempty,uuid"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type SpotListQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=available occupied"`
}
