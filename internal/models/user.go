package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	Username    string    `json:"username" gorm:"size:30;uniqueIndex;not null" bson:"username"`
	Name        string    `json:"name" gorm:"size:50" bson:"name"`
	Email       string    `json:"email,omitempty" gorm:"uniqueIndex;not null" bson:"email"`
	Image       string    `json:"image,omitempty" bson:"image,omitempty"`
	Password    string    `json:"-" bson:"password,omitempty"`                                      // bcrypt hash
	FirebaseUID *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex" bson:"firebase_uid,omitempty"` // set for Firebase-backed accounts
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// UserCompact is the public, embeddable view of a user.
type UserCompact struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Image    string `json:"image"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, Image: u.Image}
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type FirebaseLoginRequest struct {
	IDToken  string `json:"id_token" validate:"required"`
	Username string `json:"username" validate:"omitempty,alphanum,min=3,max=30"`
}
