package models

import (
	"time"

	"gorm.io/gorm"
)

// Follow represents an Instagram-style follow relationship
type Follow struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	FollowerID  string    `json:"follower_id" gorm:"size:36;not null;uniqueIndex:idx_follower_following" bson:"follower_id"`
	FollowingID string    `json:"following_id" gorm:"size:36;not null;index;uniqueIndex:idx_follower_following" bson:"following_id"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

func (f *Follow) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
