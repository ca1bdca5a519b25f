package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/nano-midea/notifier/internal/models"
)

var (
	// ErrNotFound is returned when a lookup or scoped update matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint,
	// or when a like or follow write loses a race with a concurrent toggle.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	FindPostByID(ctx context.Context, id string) (*models.Post, error)
}

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, userID, postID string) error
	FindLike(ctx context.Context, userID, postID string) (*models.Like, error)
}

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	CreateFollow(ctx context.Context, follow *models.Follow) error
	DeleteFollow(ctx context.Context, followerID, followingID string) error
	FindFollow(ctx context.Context, followerID, followingID string) (*models.Follow, error)
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	ListNotifications(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, recipientID, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string) error
}

// Store is the full persistence surface. RunAtomic executes fn as one unit:
// every operation on tx commits together or none does. fn must use the ctx it
// is given and only tx for store access.
type Store interface {
	UserRepository
	PostRepository
	LikeRepository
	FollowRepository
	NotificationRepository

	RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
