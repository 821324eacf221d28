// Package migrations creates and updates the parkly schema.
package migrations

import (
	"fmt"

	"parkly/internal/audit"
	"parkly/internal/bookings"
	"parkly/internal/garages"
	"parkly/internal/notifications"
	"parkly/internal/staff"
	"parkly/internal/users"
	"parkly/internal/wallets"

	"gorm.io/gorm"
)

// Models lists every table owned by the service, in creation order
func Models() []interface{} {
	return []interface{}{
		&users.User{},
		&garages.Garage{},
		&garages.ParkingSpot{},
		&staff.GarageEmployee{},
		&wallets.Wallet{},
		&wallets.Transaction{},
		&bookings.Booking{},
		&notifications.Notification{},
		&audit.AuditLog{},
	}
}

// postMigrate holds statements AutoMigrate cannot express
var postMigrate = []string{
	// at most one live booking per spot, the database backstop for SpotRegistry
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_spot ON bookings (spot_id) WHERE status IN ('pending_payment','confirmed')`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_wallet_created ON transactions (wallet_id, created_at DESC)`,
}

func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to enable uuid-ossp: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	for _, stmt := range postMigrate {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}
	return nil
}
