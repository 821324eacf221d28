package notifications

import (
	"context"
	"time"

	"parkly/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Create is idempotent on the notification id so redelivered Kafka messages are harmless
	Create(ctx context.Context, notification *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Notification, int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, notification *Notification) error {
	return database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(notification).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Notification, int64, error) {
	var items []Notification
	var total int64

	base := database.Conn(ctx, r.db).Model(&Notification{}).Where("user_id = ?", userID)
	if query.Status != "" {
		base = base.Where("status = ?", query.Status)
	}
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := base.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&items).Error
	return items, total, err
}

// MarkRead reports false when no notification with id belongs to userID
func (r *repository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"status":  NotificationStatusRead,
			"read_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
