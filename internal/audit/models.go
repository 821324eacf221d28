package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog is an immutable record of a state-changing action
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action     string         `gorm:"type:varchar(100);not null" json:"action"`
	EntityType EntityType     `gorm:"type:varchar(50);not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   *uuid.UUID     `gorm:"type:uuid;index:idx_audit_entity" json:"entity_id,omitempty"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

type EntityType string

const (
	EntityBooking     EntityType = "booking"
	EntityGarage      EntityType = "garage"
	EntitySpot        EntityType = "parking_spot"
	EntityWallet      EntityType = "wallet"
	EntityTransaction EntityType = "transaction"
	EntityUser        EntityType = "user"
)

func (e EntityType) IsValid() bool {
	switch e {
	case EntityBooking, EntityGarage, EntitySpot, EntityWallet, EntityTransaction, EntityUser:
		return true
	}
	return false
}

// Entry is what callers hand to Record
type Entry struct {
	UserID     uuid.UUID
	Action     string
	EntityType EntityType
	EntityID   uuid.UUID
	Details    map[string]interface{}
}
