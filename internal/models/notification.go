package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationLike   NotificationType = "LIKE"
	NotificationFollow NotificationType = "FOLLOW"
	NotificationReply  NotificationType = "REPLY"
	NotificationRepost NotificationType = "REPOST"
	NotificationQuote  NotificationType = "QUOTE"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationLike, NotificationFollow, NotificationReply, NotificationRepost, NotificationQuote:
		return true
	}
	return false
}

// Notification is an immutable activity record; only Read ever changes.
type Notification struct {
	ID        string           `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	Type      NotificationType `json:"type" gorm:"size:10;not null" bson:"type"`
	UserID    string           `json:"user_id" gorm:"size:36;not null;index:idx_notification_recipient" bson:"user_id"` // recipient
	ActorID   string           `json:"actor_id" gorm:"size:36;not null" bson:"actor_id"`
	PostID    *string          `json:"post_id,omitempty" gorm:"size:36" bson:"post_id,omitempty"`
	Read      bool             `json:"read" gorm:"not null;default:false" bson:"read"`
	CreatedAt time.Time        `json:"created_at" gorm:"index:idx_notification_recipient" bson:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
