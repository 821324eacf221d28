package garages

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Garage is the pricing and inventory configuration owned by a garage_admin
type Garage struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ManagerID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"manager_id"`
	Name               string          `gorm:"type:varchar(255);not null" json:"name"`
	Address            string          `gorm:"type:text;not null" json:"address"`
	Governorate        string          `gorm:"type:varchar(100);index" json:"governorate"`
	Latitude           float64         `json:"latitude"`
	Longitude          float64         `json:"longitude"`
	TotalCapacity      int             `gorm:"not null;check:total_capacity > 0" json:"total_capacity"`
	HourlyRate         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"hourly_rate"`
	FloorsNumber       int             `gorm:"not null;default:1" json:"floors_number"`
	WorkingHours       datatypes.JSON  `gorm:"type:jsonb" json:"working_hours,omitempty"`
	CancellationPolicy string          `gorm:"type:text" json:"cancellation_policy"`
	MinBookingHours    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:1" json:"min_booking_hours"`
	CancellationFee    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"cancellation_fee"`
	RatingAverage      decimal.Decimal `gorm:"type:decimal(3,2);not null;default:0" json:"rating_average"`
	IsActive           bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (Garage) TableName() string {
	return "garages"
}

// IsManagedBy reports whether userID is the garage_admin that owns the garage
func (g *Garage) IsManagedBy(userID uuid.UUID) bool {
	return g.ManagerID == userID
}

type SpotStatus string

const (
	SpotStatusAvailable SpotStatus = "available"
	SpotStatusOccupied  SpotStatus = "occupied"
)

func (s SpotStatus) IsValid() bool {
	return s == SpotStatusAvailable || s == SpotStatusOccupied
}

func (s SpotStatus) String() string {
	return string(s)
}

type SpotType string

const (
	SpotTypeRegular    SpotType = "regular"
	SpotTypeCompact    SpotType = "compact"
	SpotTypeLarge      SpotType = "large"
	SpotTypeAccessible SpotType = "accessible"
	SpotTypeElectric   SpotType = "electric"
)

func (t SpotType) IsValid() bool {
	switch t {
	case SpotTypeRegular, SpotTypeCompact, SpotTypeLarge, SpotTypeAccessible, SpotTypeElectric:
		return true
	}
	return false
}

// ParkingSpot is never deleted physically; IsActive=false hides it
type ParkingSpot struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GarageID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_spot_position" json:"garage_id"`
	FloorNumber   int             `gorm:"not null;uniqueIndex:idx_spot_position" json:"floor_number"`
	SpotNumber    string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_spot_position" json:"spot_number"`
	SpotType      SpotType        `gorm:"type:varchar(20);not null;default:'regular'" json:"spot_type"`
	PriceModifier decimal.Decimal `gorm:"type:decimal(4,2);not null;default:1;check:price_modifier > 0" json:"price_modifier"`
	Status        SpotStatus      `gorm:"type:varchar(20);not null;default:'available';check:status IN ('available','occupied')" json:"status"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	LastBookedAt  *time.Time      `json:"last_booked_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Garage *Garage `gorm:"foreignKey:GarageID;constraint:OnDelete:RESTRICT;" json:"-"`
}

func (ParkingSpot) TableName() string {
	return "parking_spots"
}

func (s *ParkingSpot) IsAvailable() bool {
	return s.IsActive && s.Status == SpotStatusAvailable
}
