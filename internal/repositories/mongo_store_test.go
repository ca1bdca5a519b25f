package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/notifier/internal/models"
	"github.com/anonto42/nano-midea/notifier/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const mongoDB = "notifier"

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("lookups translate no documents to ErrNotFound", func(mt *mtest.T) {
		store := repositories.NewMongoStore(mt.Client, mongoDB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mongoDB+".users", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, mongoDB+".posts", mtest.FirstBatch),
		)

		_, err := store.FindUserByUsername(ctx, "ghost")
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
		_, err = store.FindPostByID(ctx, "missing")
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})

	mt.Run("lookup decodes the document", func(mt *mtest.T) {
		store := repositories.NewMongoStore(mt.Client, mongoDB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mongoDB+".users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "username", Value: "alice"},
			{Key: "email", Value: "alice@example.com"},
		}))

		user, err := store.FindUserByUsername(ctx, "alice")
		require.NoError(mt, err)
		assert.Equal(mt, "u1", user.ID)
		assert.Equal(mt, "alice@example.com", user.Email)
		assert.Equal(mt, "alice", mt.GetStartedEvent().Command.Lookup("filter", "username").StringValue())
	})

	mt.Run("duplicate key is ErrDuplicate", func(mt *mtest.T) {
		store := repositories.NewMongoStore(mt.Client, mongoDB)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Code: 11000, Message: "E11000 duplicate key error"}),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Code: 11000, Message: "E11000 duplicate key error"}),
		)

		err := store.CreateUser(ctx, &models.User{Username: "alice", Email: "alice@example.com"})
		assert.ErrorIs(mt, err, repositories.ErrDuplicate)
		err = store.CreateLike(ctx, &models.Like{UserID: "u1", PostID: "p1"})
		assert.ErrorIs(mt, err, repositories.ErrDuplicate)
	})

	mt.Run("deleting a missing relation is ErrNotFound", func(mt *mtest.T) {
		store := repositories.NewMongoStore(mt.Client, mongoDB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		assert.ErrorIs(mt, store.DeleteLike(ctx, "u1", "p1"), repositories.ErrNotFound)
		assert.NoError(mt, store.DeleteFollow(ctx, "u1", "u2"))
	})

	mt.Run("atomic unit commits", func(mt *mtest.T) {
		store := repositories.NewMongoStore(mt.Client, mongoDB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(),
		)

		err := store.RunAtomic(ctx, func(ctx context.Context, tx repositories.Store) error {
			if err := tx.CreateFollow(ctx, &models.Follow{FollowerID: "u1", FollowingID: "u2"}); err != nil {
				return err
			}
			return tx.CreateNotification(ctx, &models.Notification{Type: models.NotificationFollow, UserID: "u2", ActorID: "u1"})
		})
		require.NoError(mt, err)

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 3)
		assert.True(mt, events[0].Command.Lookup("startTransaction").Boolean())
		assert.Equal(mt, "insert", events[1].CommandName)
		assert.Equal(mt, "commitTransaction", events[2].CommandName)
	})

	mt.Run("write conflict on a relation aborts without re-running", func(mt *mtest.T) {
		store := repositories.NewMongoStore(mt.Client, mongoDB)
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    112,
				Name:    "WriteConflict",
				Message: "write conflict during plan execution",
				Labels:  []string{"TransientTransactionError"},
			}),
			mtest.CreateSuccessResponse(),
		)

		calls := 0
		err := store.RunAtomic(ctx, func(ctx context.Context, tx repositories.Store) error {
			calls++
			return tx.CreateLike(ctx, &models.Like{UserID: "u1", PostID: "p1"})
		})
		assert.ErrorIs(mt, err, repositories.ErrDuplicate)
		assert.Equal(mt, 1, calls, "the toggle must not run again after losing the race")
		inserts := 0
		for _, name := range commandNames(mt) {
			if name == "insert" {
				inserts++
			}
		}
		assert.Equal(mt, 1, inserts)
	})

	mt.Run("write conflict on a relation delete is ErrDuplicate", func(mt *mtest.T) {
		store := repositories.NewMongoStore(mt.Client, mongoDB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    112,
			Name:    "WriteConflict",
			Message: "write conflict",
		}))

		assert.ErrorIs(mt, store.DeleteLike(ctx, "u1", "p1"), repositories.ErrDuplicate)
	})

	mt.Run("mark read is scoped to the recipient", func(mt *mtest.T) {
		store := repositories.NewMongoStore(mt.Client, mongoDB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := store.MarkNotificationRead(ctx, "bob", "n1")
		assert.ErrorIs(mt, err, repositories.ErrNotFound)

		evt := mt.GetStartedEvent()
		require.Equal(mt, "update", evt.CommandName)
		assert.Equal(mt, "n1", evt.Command.Lookup("updates", "0", "q", "_id").StringValue())
		assert.Equal(mt, "bob", evt.Command.Lookup("updates", "0", "q", "user_id").StringValue())
	})

	mt.Run("history is newest first with paging", func(mt *mtest.T) {
		store := repositories.NewMongoStore(mt.Client, mongoDB)
		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		ns := mongoDB + ".notifications"
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: 3}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "n1"},
				{Key: "type", Value: "FOLLOW"},
				{Key: "user_id", Value: "alice"},
				{Key: "actor_id", Value: "bob"},
				{Key: "read", Value: false},
				{Key: "created_at", Value: base},
			}),
		)

		page, total, err := store.ListNotifications(ctx, "alice", 2, 2)
		require.NoError(mt, err)
		assert.EqualValues(mt, 3, total)
		require.Len(mt, page, 1)
		assert.Equal(mt, "n1", page[0].ID)
		assert.Equal(mt, models.NotificationFollow, page[0].Type)
		assert.True(mt, base.Equal(page[0].CreatedAt))

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 2)
		assert.Equal(mt, "aggregate", events[0].CommandName)
		find := events[1].Command
		assert.Equal(mt, "find", events[1].CommandName)
		assert.Equal(mt, "alice", find.Lookup("filter", "user_id").StringValue())
		assert.EqualValues(mt, -1, find.Lookup("sort", "created_at").AsInt64())
		assert.EqualValues(mt, -1, find.Lookup("sort", "_id").AsInt64())
		assert.EqualValues(mt, 2, find.Lookup("skip").AsInt64())
		assert.EqualValues(mt, 2, find.Lookup("limit").AsInt64())
	})
}
