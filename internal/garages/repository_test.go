package garages

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestReserveOnlyMatchesAvailableSpots(t *testing.T) {
	db, err := gorm.Open(postgres.Open("host=localhost user=parkly dbname=parkly sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	var (
		sql  string
		vars []interface{}
	)
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:capture_update", func(tx *gorm.DB) {
		sql = tx.Statement.SQL.String()
		vars = tx.Statement.Vars
	}))

	spotID := uuid.New()
	_ = NewRepository(db).Reserve(context.Background(), spotID)

	assert.Contains(t, sql, `UPDATE "parking_spots"`)
	assert.Contains(t, sql, "status = $")
	assert.Contains(t, sql, "is_active = $")
	assert.Contains(t, vars, spotID)
	assert.Contains(t, vars, SpotStatusAvailable)
	assert.Contains(t, vars, SpotStatusOccupied)
}
