package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a top-level post, a reply (ParentID), a repost (RepostID) or a quote (QuoteID).
// At most one of the three references is set.
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	AuthorID  string    `json:"author_id" gorm:"size:36;index;not null" bson:"author_id"`
	Content   string    `json:"content" gorm:"type:text" bson:"content"`
	ParentID  *string   `json:"parent_id,omitempty" gorm:"size:36;index" bson:"parent_id,omitempty"`
	RepostID  *string   `json:"repost_id,omitempty" gorm:"size:36;index" bson:"repost_id,omitempty"`
	QuoteID   *string   `json:"quote_id,omitempty" gorm:"size:36;index" bson:"quote_id,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"index" bson:"created_at"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// CreatePostRequest defines the request body for creating a post, reply, repost or quote
type CreatePostRequest struct {
	Content  string `json:"content" validate:"required_without=RepostID,max=280"`
	ParentID string `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	RepostID string `json:"repost_id,omitempty" validate:"omitempty,uuid"`
	QuoteID  string `json:"quote_id,omitempty" validate:"omitempty,uuid"`
}
