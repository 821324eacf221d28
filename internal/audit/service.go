package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"parkly/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Recorder is the narrow view other packages depend on
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type Service interface {
	Recorder
	List(ctx context.Context, query ListQuery) (*ListResponse, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Record(ctx context.Context, entry Entry) error {
	if entry.Action == "" || !entry.EntityType.IsValid() {
		return apperrors.Validation(nil, "audit entry needs an action and a known entity type")
	}

	log := &AuditLog{
		Action:     entry.Action,
		EntityType: entry.EntityType,
	}
	if entry.UserID != uuid.Nil {
		userID := entry.UserID
		log.UserID = &userID
	}
	if entry.EntityID != uuid.Nil {
		entityID := entry.EntityID
		log.EntityID = &entityID
	}
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		log.Details = datatypes.JSON(raw)
	}

	if err := s.repo.Create(ctx, log); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *service) List(ctx context.Context, query ListQuery) (*ListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	logs, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list audit logs")
	}

	totalPages := int(total) / query.Limit
	if int(total)%query.Limit != 0 {
		totalPages++
	}

	return &ListResponse{
		Logs:       logs,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}
