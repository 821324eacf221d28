package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"parkly/internal/shared/apperrors"
	"parkly/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]Notification
	fails int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[uuid.UUID]Notification)}
}

func (m *memoryRepo) Create(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails > 0 {
		m.fails--
		return errors.New("db unavailable")
	}
	if _, exists := m.items[n.ID]; !exists {
		m.items[n.ID] = *n
	}
	return nil
}

func (m *memoryRepo) ListByUser(_ context.Context, userID uuid.UUID, _ ListQuery) ([]Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryRepo) MarkRead(_ context.Context, id, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.Status = NotificationStatusRead
	m.items[id] = n
	return true, nil
}

func bookingNotification(userID uuid.UUID) *Notification {
	return NewNotificationBuilder().
		WithRecipient(userID).
		WithContent("Booking Created", "Your booking for spot A-12 at Downtown is confirmed.").
		WithBookingContext(uuid.New()).
		Build()
}

func TestNotifyWithoutProducerWritesRow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, logger.Discard())
	userID := uuid.New()

	require.NoError(t, svc.Notify(context.Background(), bookingNotification(userID)))

	list, err := svc.ListForUser(context.Background(), userID, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 1)
	assert.Equal(t, NotificationStatusUnread, list.Notifications[0].Status)
}

func TestNotifyPublishesToKafka(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	userID := uuid.New()
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var n Notification
		if err := json.Unmarshal(val, &n); err != nil {
			return err
		}
		if n.UserID != userID {
			return errors.New("unexpected recipient")
		}
		return nil
	})

	repo := newMemoryRepo()
	svc := NewService(repo, NewKafkaProducerWithClient(producer, "parkly-notifications", logger.Discard()), logger.Discard())

	require.NoError(t, svc.Notify(context.Background(), bookingNotification(userID)))
	assert.Empty(t, repo.items, "row is written by the consumer, not the publisher")
	require.NoError(t, producer.Close())
}

func TestNotifyFallsBackWhenKafkaFails(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	repo := newMemoryRepo()
	svc := NewService(repo, NewKafkaProducerWithClient(producer, "parkly-notifications", logger.Discard()), logger.Discard())

	require.NoError(t, svc.Notify(context.Background(), bookingNotification(uuid.New())))
	assert.Len(t, repo.items, 1)
	require.NoError(t, producer.Close())
}

func TestNotifyRejectsMissingRecipient(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, logger.Discard())

	err := svc.Notify(context.Background(), NewNotificationBuilder().WithContent("t", "m").Build())

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestMarkReadOnlyForOwner(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, logger.Discard())
	owner := uuid.New()
	n := bookingNotification(owner)
	require.NoError(t, svc.Notify(context.Background(), n))

	err := svc.MarkRead(context.Background(), uuid.New(), n.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, svc.MarkRead(context.Background(), owner, n.ID))
	assert.Equal(t, NotificationStatusRead, repo.items[n.ID].Status)
}

func TestConsumerPersistsMessageIdempotently(t *testing.T) {
	repo := newMemoryRepo()
	repo.fails = 1
	handler := &ConsumerGroupHandler{repo: repo, log: logger.Discard(), maxRetries: 2}

	n := bookingNotification(uuid.New())
	payload, err := n.ToJSON()
	require.NoError(t, err)
	msg := &sarama.ConsumerMessage{Value: payload}

	require.NoError(t, handler.processMessage(context.Background(), msg))
	require.NoError(t, handler.processMessage(context.Background(), msg))

	assert.Len(t, repo.items, 1)
}

func TestConsumerRejectsGarbage(t *testing.T) {
	handler := &ConsumerGroupHandler{repo: newMemoryRepo(), log: logger.Discard()}

	err := handler.processMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("{not json")})

	assert.Error(t, err)
}
