package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeInApp NotificationType = "in_app"
	NotificationTypeEmail NotificationType = "email"
)

func (t NotificationType) IsValid() bool {
	return t == NotificationTypeInApp || t == NotificationTypeEmail
}

type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

type RelatedEntity string

const (
	RelatedEntityBooking RelatedEntity = "booking"
	RelatedEntityWallet  RelatedEntity = "wallet"
	RelatedEntityGarage  RelatedEntity = "garage"
)

// Notification is a message shown to a user inside the app
type Notification struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID          `gorm:"type:uuid;not null;index:idx_notifications_user_created" json:"user_id"`
	Type            NotificationType   `gorm:"type:varchar(20);not null;default:'in_app'" json:"type"`
	Title           string             `gorm:"type:varchar(255);not null" json:"title"`
	Message         string             `gorm:"type:text;not null" json:"message"`
	RelatedEntity   RelatedEntity      `gorm:"type:varchar(50)" json:"related_entity,omitempty"`
	RelatedEntityID *uuid.UUID         `gorm:"type:uuid" json:"related_entity_id,omitempty"`
	Status          NotificationStatus `gorm:"type:varchar(20);not null;default:'unread';check:status IN ('unread','read')" json:"status"`
	CreatedAt       time.Time          `gorm:"index:idx_notifications_user_created" json:"created_at"`
	ReadAt          *time.Time         `json:"read_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

// GetPartitionKey keeps one user's notifications ordered on a single partition
func (n *Notification) GetPartitionKey() string {
	return n.UserID.String()
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

type NotificationBuilder struct {
	notification *Notification
}

func NewNotificationBuilder() *NotificationBuilder {
	return &NotificationBuilder{
		notification: &Notification{
			ID:        uuid.New(),
			Type:      NotificationTypeInApp,
			Status:    NotificationStatusUnread,
			CreatedAt: time.Now().UTC(),
		},
	}
}

func (nb *NotificationBuilder) WithRecipient(userID uuid.UUID) *NotificationBuilder {
	nb.notification.UserID = userID
	return nb
}

func (nb *NotificationBuilder) WithType(notType NotificationType) *NotificationBuilder {
	nb.notification.Type = notType
	return nb
}

func (nb *NotificationBuilder) WithContent(title, message string) *NotificationBuilder {
	nb.notification.Title = title
	nb.notification.Message = message
	return nb
}

func (nb *NotificationBuilder) WithBookingContext(bookingID uuid.UUID) *NotificationBuilder {
	return nb.withEntity(RelatedEntityBooking, bookingID)
}

func (nb *NotificationBuilder) WithWalletContext(walletID uuid.UUID) *NotificationBuilder {
	return nb.withEntity(RelatedEntityWallet, walletID)
}

func (nb *NotificationBuilder) withEntity(entity RelatedEntity, id uuid.UUID) *NotificationBuilder {
	nb.notification.RelatedEntity = entity
	nb.notification.RelatedEntityID = &id
	return nb
}

func (nb *NotificationBuilder) Build() *Notification {
	return nb.notification
}
