package audit

import (
	"context"

	"parkly/internal/shared/database"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, query ListQuery) ([]AuditLog, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, log *AuditLog) error {
	return database.Conn(ctx, r.db).Create(log).Error
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]AuditLog, int64, error) {
	var logs []AuditLog
	var total int64

	base := database.Conn(ctx, r.db).Model(&AuditLog{})
	if query.EntityType != "" {
		base = base.Where("entity_type = ?", query.EntityType)
	}
	if query.EntityID != "" {
		base = base.Where("entity_id = ?", query.EntityID)
	}
	if query.UserID != "" {
		base = base.Where("user_id = ?", query.UserID)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := base.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&logs).Error
	return logs, total, err
}
