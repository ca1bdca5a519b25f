package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection         = "users"
	postsCollection         = "posts"
	likesCollection         = "likes"
	followsCollection       = "follows"
	notificationsCollection = "notifications"

	writeConflictCode = 112
)

// MongoStore implements Store on MongoDB. RunAtomic needs a replica set or
// sharded cluster because it relies on multi-document transactions.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore creates a new MongoStore
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database)}
}

func (s *MongoStore) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// RunAtomic runs fn inside a session transaction. The driver may re-run fn on
// transient transaction errors, so fn must not have effects outside the store.
func (s *MongoStore) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "firebase_uid", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		postsCollection: {
			{Keys: bson.D{{Key: "author_id", Value: 1}}},
			{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		},
		likesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "post_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "post_id", Value: 1}}},
		},
		followsCollection: {
			{Keys: bson.D{{Key: "follower_id", Value: 1}, {Key: "following_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "following_id", Value: 1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.col(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// translateRelation is translateMongo for writes to likes and follows. Two
// transactions toggling the same pair collide with a WriteConflict, which the
// driver labels transient and would retry by re-running the whole toggle. The
// retry would observe the other transaction's row and undo it, so the conflict
// is reported as ErrDuplicate. Wrapping with %v drops the error labels, which
// makes WithTransaction abort instead of retrying.
func translateRelation(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(writeConflictCode) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return translateMongo(err)
}

func isRelation(collection string) bool {
	return collection == likesCollection || collection == followsCollection
}

func now() time.Time {
	return time.Now().UTC()
}

func (s *MongoStore) insert(ctx context.Context, collection string, doc any) error {
	_, err := s.col(collection).InsertOne(ctx, doc)
	if isRelation(collection) {
		return translateRelation(err)
	}
	return translateMongo(err)
}

func (s *MongoStore) findOne(ctx context.Context, collection string, filter bson.M, out any) error {
	return translateMongo(s.col(collection).FindOne(ctx, filter).Decode(out))
}

func (s *MongoStore) deleteOne(ctx context.Context, collection string, filter bson.M) error {
	res, err := s.col(collection).DeleteOne(ctx, filter)
	if err != nil {
		if isRelation(collection) {
			return translateRelation(err)
		}
		return translateMongo(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt
	return s.insert(ctx, usersCollection, user)
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"firebase_uid": uid})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.findOne(ctx, usersCollection, filter, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = models.NewID()
	}
	post.CreatedAt = now()
	return s.insert(ctx, postsCollection, post)
}

func (s *MongoStore) FindPostByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.findOne(ctx, postsCollection, bson.M{"_id": id}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *MongoStore) CreateLike(ctx context.Context, like *models.Like) error {
	if like.ID == "" {
		like.ID = models.NewID()
	}
	like.CreatedAt = now()
	return s.insert(ctx, likesCollection, like)
}

func (s *MongoStore) DeleteLike(ctx context.Context, userID, postID string) error {
	return s.deleteOne(ctx, likesCollection, bson.M{"user_id": userID, "post_id": postID})
}

func (s *MongoStore) FindLike(ctx context.Context, userID, postID string) (*models.Like, error) {
	var like models.Like
	if err := s.findOne(ctx, likesCollection, bson.M{"user_id": userID, "post_id": postID}, &like); err != nil {
		return nil, err
	}
	return &like, nil
}

func (s *MongoStore) CreateFollow(ctx context.Context, follow *models.Follow) error {
	if follow.ID == "" {
		follow.ID = models.NewID()
	}
	follow.CreatedAt = now()
	return s.insert(ctx, followsCollection, follow)
}

func (s *MongoStore) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	return s.deleteOne(ctx, followsCollection, bson.M{"follower_id": followerID, "following_id": followingID})
}

func (s *MongoStore) FindFollow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	var follow models.Follow
	filter := bson.M{"follower_id": followerID, "following_id": followingID}
	if err := s.findOne(ctx, followsCollection, filter, &follow); err != nil {
		return nil, err
	}
	return &follow, nil
}

func (s *MongoStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = models.NewID()
	}
	notification.CreatedAt = now()
	return s.insert(ctx, notificationsCollection, notification)
}

func (s *MongoStore) ListNotifications(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error) {
	filter := bson.M{"user_id": recipientID}
	col := s.col(notificationsCollection)

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translateMongo(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(pageOffset(page, limit))).
		SetLimit(int64(limit))
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translateMongo(err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, translateMongo(err)
	}
	return notifications, total, nil
}

func (s *MongoStore) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	count, err := s.col(notificationsCollection).CountDocuments(ctx, bson.M{"user_id": recipientID, "read": false})
	return count, translateMongo(err)
}

func (s *MongoStore) MarkNotificationRead(ctx context.Context, recipientID, notificationID string) error {
	res, err := s.col(notificationsCollection).UpdateOne(ctx,
		bson.M{"_id": notificationID, "user_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	_, err := s.col(notificationsCollection).UpdateMany(ctx,
		bson.M{"user_id": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	return translateMongo(err)
}
