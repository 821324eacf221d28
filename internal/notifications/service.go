package notifications

import (
	"context"
	"fmt"

	"parkly/internal/shared/apperrors"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

// Notifier is the narrow view the booking and wallet services depend on
type Notifier interface {
	Notify(ctx context.Context, notification *Notification) error
}

type Service interface {
	Notifier
	ListForUser(ctx context.Context, userID uuid.UUID, query ListQuery) (*ListResponse, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

type service struct {
	repo     Repository
	producer Producer
	log      *logger.Logger
}

// NewService delivers through producer when it is non-nil and writes rows directly otherwise
func NewService(repo Repository, producer Producer, log *logger.Logger) Service {
	return &service{repo: repo, producer: producer, log: log}
}

func (s *service) Notify(ctx context.Context, notification *Notification) error {
	if notification.UserID == uuid.Nil || notification.Title == "" {
		return apperrors.Validation(nil, "notification needs a recipient and a title")
	}

	if s.producer != nil {
		err := s.producer.Publish(ctx, notification)
		if err == nil {
			return nil
		}
		s.log.Warn("Kafka publish failed, storing notification directly", "error", err)
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, query ListQuery) (*ListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	items, total, err := s.repo.ListByUser(ctx, userID, query)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list notifications")
	}

	return &ListResponse{
		Notifications: items,
		Page:          query.Page,
		Limit:         query.Limit,
		TotalCount:    total,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	found, err := s.repo.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return apperrors.Internal(err, "failed to update notification")
	}
	if !found {
		return apperrors.NotFound(nil, "notification not found")
	}
	return nil
}
