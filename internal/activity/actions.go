// Package activity applies user actions to the store and records the
// notification each action implies in the same transaction.
package activity

import (
	"github.com/anonto42/nano-midea/notifier/internal/models"
)

// Action is a request-level user action: ToggleLike, ToggleFollow or CreatePost.
type Action interface {
	kind() string
}

// ToggleLike likes PostID, or removes the like when one already exists.
type ToggleLike struct {
	PostID string
}

// ToggleFollow follows the target user, or unfollows when already following.
// UserID wins over Username when both are set.
type ToggleFollow struct {
	UserID   string
	Username string
}

// CreatePost inserts a post. At most one of ParentID, RepostID, QuoteID may be set.
type CreatePost struct {
	Content  string
	ParentID string
	RepostID string
	QuoteID  string
}

func (ToggleLike) kind() string   { return "like" }
func (ToggleFollow) kind() string { return "follow" }
func (CreatePost) kind() string   { return "post" }

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeRemoved Outcome = "removed"
	// OutcomeConflict means a concurrent request inserted the same relation
	// first. Nothing was written by this call.
	OutcomeConflict Outcome = "conflict"
)

// Result reports what Apply did. Post is the liked or created post, Target the
// followed user. Notification is set only when a row was committed.
type Result struct {
	Outcome      Outcome
	Post         *models.Post
	Target       *models.User
	Notification *models.Notification
}

// Committed is published once the transaction carrying Notification has committed.
type Committed struct {
	Notification *models.Notification
	Actor        *models.User
	Post         *models.Post
}

// Publisher receives committed notifications. Implementations must not block.
type Publisher interface {
	OnCommitted(event Committed)
}
