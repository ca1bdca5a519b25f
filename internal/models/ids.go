package models

import "github.com/google/uuid"

// NewID returns a fresh identifier for any persisted entity.
func NewID() string {
	return uuid.NewString()
}

func ensureID(id *string) {
	if *id == "" {
		*id = NewID()
	}
}

// StringPtr returns nil for the empty string.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
