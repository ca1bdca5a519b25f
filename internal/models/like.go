package models

import (
	"time"

	"gorm.io/gorm"
)

// Like represents a like on a post; one per (user, post).
type Like struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	UserID    string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_like_user_post" bson:"user_id"`
	PostID    string    `json:"post_id" gorm:"size:36;not null;index;uniqueIndex:idx_like_user_post" bson:"post_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (l *Like) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
