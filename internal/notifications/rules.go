// Package notifications decides which user actions produce a notification.
// Everything here is pure: inputs are entities the caller already loaded.
package notifications

import (
	"github.com/anonto42/nano-midea/notifier/internal/models"
)

// Action is one of Like, Unlike, Follow, Unfollow or CreatePost.
type Action interface {
	isAction()
}

type Like struct {
	ActorID string
	Post    models.Post
}

type Unlike struct {
	ActorID string
	Post    models.Post
}

type Follow struct {
	ActorID string
	Target  models.User
}

type Unfollow struct {
	ActorID string
	Target  models.User
}

// CreatePost carries the freshly inserted post and, for replies, reposts and
// quotes, the referenced post. At most one of Parent, Repost, Quote is set.
type CreatePost struct {
	ActorID string
	Post    models.Post
	Parent  *models.Post
	Repost  *models.Post
	Quote   *models.Post
}

func (Like) isAction()       {}
func (Unlike) isAction()     {}
func (Follow) isAction()     {}
func (Unfollow) isAction()   {}
func (CreatePost) isAction() {}

// Intent describes the notification row to persist.
type Intent struct {
	Type    models.NotificationType
	UserID  string
	ActorID string
	PostID  *string
}

// Notification builds the row for the intent. ID and CreatedAt are assigned by the store.
func (i Intent) Notification() *models.Notification {
	return &models.Notification{
		Type:    i.Type,
		UserID:  i.UserID,
		ActorID: i.ActorID,
		PostID:  i.PostID,
	}
}

// Decide returns the notification intent for action, or false when the action
// notifies nobody. Self-directed actions never notify.
func Decide(action Action) (Intent, bool) {
	switch a := action.(type) {
	case Like:
		return intentFor(models.NotificationLike, a.Post.AuthorID, a.ActorID, a.Post.ID)
	case Follow:
		return intentFor(models.NotificationFollow, a.Target.ID, a.ActorID, "")
	case CreatePost:
		switch {
		case a.Parent != nil:
			return intentFor(models.NotificationReply, a.Parent.AuthorID, a.ActorID, a.Post.ID)
		case a.Repost != nil:
			return intentFor(models.NotificationRepost, a.Repost.AuthorID, a.ActorID, a.Repost.ID)
		case a.Quote != nil:
			return intentFor(models.NotificationQuote, a.Quote.AuthorID, a.ActorID, a.Post.ID)
		}
	}
	return Intent{}, false
}

func intentFor(t models.NotificationType, recipientID, actorID, postID string) (Intent, bool) {
	if recipientID == "" || recipientID == actorID {
		return Intent{}, false
	}
	return Intent{
		Type:    t,
		UserID:  recipientID,
		ActorID: actorID,
		PostID:  models.StringPtr(postID),
	}, true
}
